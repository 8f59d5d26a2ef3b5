// Package healthcheck tracks dependency health and exposes it through the
// standard gRPC health service and the HTTP readiness probe.
package healthcheck

import (
	"context"
	"sort"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"upiguard/pkg/logger"
)

// ServiceName is the gRPC health service name reported alongside ""
const ServiceName = "upiguard.FraudEngine"

const checkTimeout = 3 * time.Second

// CheckFunc returns nil when the dependency is usable
type CheckFunc func(ctx context.Context) error

// Checker runs the registered dependency checks
type Checker struct {
	server *health.Server
	logger *logger.Logger

	mu     sync.RWMutex
	checks map[string]CheckFunc
	last   map[string]error
}

// NewChecker creates a checker whose gRPC health server starts SERVING
func NewChecker(log *logger.Logger) *Checker {
	srv := health.NewServer()
	srv.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	srv.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Checker{
		server: srv,
		logger: log.WithComponent("healthcheck"),
		checks: make(map[string]CheckFunc),
		last:   make(map[string]error),
	}
}

// Add registers a named check
func (c *Checker) Add(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// Register attaches the health service to a gRPC server
func (c *Checker) Register(s *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(s, c.server)
}

// Check runs every check and updates the serving status. The result maps
// each dependency to its error, nil when healthy.
func (c *Checker) Check(ctx context.Context) map[string]error {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	results := make(map[string]error, len(checks))
	var wg sync.WaitGroup
	var mu sync.Mutex
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			defer cancel()
			err := fn(cctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()

	status := grpc_health_v1.HealthCheckResponse_SERVING
	for _, name := range sortedKeys(results) {
		if err := results[name]; err != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
			c.mu.RLock()
			wasHealthy := c.last[name] == nil
			c.mu.RUnlock()
			if wasHealthy {
				c.logger.Warn().Err(err).Str("dependency", name).Msg("dependency unhealthy")
			}
		}
	}

	c.mu.Lock()
	c.last = results
	c.mu.Unlock()

	c.server.SetServingStatus("", status)
	c.server.SetServingStatus(ServiceName, status)
	return results
}

// Run re-checks on every tick until ctx is done, then marks the service
// as shutting down.
func (c *Checker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			c.server.Shutdown()
			return
		case <-ticker.C:
			c.Check(ctx)
		}
	}
}

func sortedKeys(m map[string]error) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
