package healthcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health/grpc_health_v1"

	"upiguard/pkg/logger"
)

func servingStatus(t *testing.T, c *Checker, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := c.server.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.Status
}

func TestChecker_ReflectsDependencies(t *testing.T) {
	c := NewChecker(logger.NewNop())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(t, c, ""))

	redisErr := errors.New("connection refused")
	healthy := true
	c.Add("postgres", func(ctx context.Context) error { return nil })
	c.Add("redis", func(ctx context.Context) error {
		if healthy {
			return nil
		}
		return redisErr
	})

	results := c.Check(context.Background())
	assert.Len(t, results, 2)
	assert.NoError(t, results["redis"])
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(t, c, ServiceName))

	healthy = false
	results = c.Check(context.Background())
	assert.ErrorIs(t, results["redis"], redisErr)
	assert.NoError(t, results["postgres"])
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, servingStatus(t, c, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, servingStatus(t, c, ServiceName))
}

func TestChecker_NoChecksIsServing(t *testing.T) {
	c := NewChecker(logger.NewNop())
	assert.Empty(t, c.Check(context.Background()))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, servingStatus(t, c, ""))
}
