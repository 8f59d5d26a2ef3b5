package streaming

import (
	"context"

	"github.com/google/uuid"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
)

// Publisher adapts the EventBus to services.EventPublisher
type Publisher struct {
	bus *EventBus
}

var _ services.EventPublisher = (*Publisher)(nil)

// NewPublisher creates a publisher on bus
func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) PublishURLVerdict(ctx context.Context, a *models.PhishingAnalysis) error {
	return p.bus.Publish(ctx, NewPhishingEvent(a))
}

func (p *Publisher) PublishTransactionVerdict(ctx context.Context, userID uuid.UUID, input models.TransactionInput, r *models.TransactionAnalysisResult) error {
	return p.bus.Publish(ctx, NewTransactionEvent(userID, input, r))
}

func (p *Publisher) PublishBlacklistReport(ctx context.Context, entry *models.BlacklistEntry) error {
	return p.bus.Publish(ctx, NewBlacklistEvent(entry))
}
