package streaming

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"upiguard/internal/config"
	"upiguard/pkg/logger"
)

const (
	defaultStreamName = "UPIGUARD_FRAUD"
	subjectRoot       = "fraud"
)

var errNATSDisconnected = errors.New("NATS not connected")

// NATSPublisher writes fraud events to a JetStream stream and reads them back
// for other instances.
type NATSPublisher struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	logger *logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewNATSPublisher connects and ensures the fraud event stream exists
func NewNATSPublisher(ctx context.Context, cfg config.NATSConfig, log *logger.Logger) (*NATSPublisher, error) {
	log = log.WithComponent("nats")

	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.StreamName == "" {
		cfg.StreamName = defaultStreamName
	}

	log.Info().Str("url", cfg.URL).Str("stream", cfg.StreamName).Msg("connecting to NATS")

	conn, err := nats.Connect(cfg.URL,
		nats.Name("upiguard"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "UPI fraud verdicts and blacklist reports",
		Subjects:    []string{subjectRoot + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      72 * time.Hour,
		MaxMsgs:     500000,
		Discard:     jetstream.DiscardOld,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	log.Info().Str("stream", cfg.StreamName).Msg("NATS stream ready")

	return &NATSPublisher{conn: conn, js: js, stream: stream, logger: log}, nil
}

// Close closes the connection
func (p *NATSPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		p.conn.Close()
		p.closed = true
	}
}

// IsConnected reports whether the connection is usable
func (p *NATSPublisher) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed && p.conn.IsConnected()
}

// Publish writes event under fraud.<type>.<severity> and waits for the ack
func (p *NATSPublisher) Publish(ctx context.Context, event *FraudEvent) error {
	if !p.IsConnected() {
		return errNATSDisconnected
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := eventSubject(event)
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID)); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug().Str("subject", subject).Str("subject_id", event.SubjectID).Msg("published fraud event")
	return nil
}

// Subscribe delivers new events that match sub until ctx is cancelled
func (p *NATSPublisher) Subscribe(ctx context.Context, sub *Subscription) (<-chan *FraudEvent, error) {
	if !p.IsConnected() {
		return nil, errNATSDisconnected
	}

	consumer, err := p.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy:     jetstream.DeliverNewPolicy,
		AckPolicy:         jetstream.AckExplicitPolicy,
		MaxDeliver:        3,
		FilterSubject:     subscriptionSubject(sub),
		InactiveThreshold: 5 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	msgs, err := consumer.Messages()
	if err != nil {
		return nil, fmt.Errorf("failed to open message iterator: %w", err)
	}

	events := make(chan *FraudEvent, 100)
	go func() {
		<-ctx.Done()
		msgs.Stop()
	}()

	go func() {
		defer close(events)
		for {
			msg, err := msgs.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, jetstream.ErrMsgIteratorClosed) {
					return
				}
				p.logger.Warn().Err(err).Msg("error getting next message")
				continue
			}

			var event FraudEvent
			if err := json.Unmarshal(msg.Data(), &event); err != nil {
				p.logger.Warn().Err(err).Str("subject", msg.Subject()).Msg("dropping malformed event")
				_ = msg.Term()
				continue
			}
			_ = msg.Ack()

			if !sub.Matches(&event) {
				continue
			}
			select {
			case events <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}

func eventSubject(event *FraudEvent) string {
	severity := string(event.Severity)
	if severity == "" {
		severity = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s", subjectRoot, event.Type, severity)
}

// subscriptionSubject narrows the consumer when a single type is wanted;
// severity is filtered in code since it is a threshold.
func subscriptionSubject(sub *Subscription) string {
	if sub != nil && len(sub.Types) == 1 {
		return fmt.Sprintf("%s.%s.*", subjectRoot, sub.Types[0])
	}
	return subjectRoot + ".>"
}
