package outbox

import (
	"context"
	"time"

	"github.com/kmassidik/walletengine/internal/common/kafka"
	"github.com/kmassidik/walletengine/internal/common/logger"
)

// Publisher polls for pending outbox rows and ships them to Kafka,
// retrying failed publishes up to maxAttempts before giving up on an
// event permanently.
type Publisher struct {
	repo     *Repository
	producer *kafka.Producer
	log      *logger.Logger
	interval time.Duration
}

func NewPublisher(repo *Repository, producer *kafka.Producer, log *logger.Logger, interval time.Duration) *Publisher {
	return &Publisher{repo: repo, producer: producer, log: log, interval: interval}
}

// Start runs the poll loop until ctx is canceled.
func (p *Publisher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publishPending(ctx)
		}
	}
}

func (p *Publisher) publishPending(ctx context.Context) {
	events, err := p.repo.GetPendingEvents(ctx, 50)
	if err != nil {
		p.log.Errorf("outbox: fetch pending events: %v", err)
		return
	}

	for _, event := range events {
		err := p.producer.PublishEvent(ctx, event.Topic, event.AggregateID, event.Payload)
		if err != nil {
			p.log.Errorf("outbox: publish event %s failed: %v", event.ID, err)
			if event.Attempts+1 >= maxAttempts {
				if markErr := p.repo.MarkAsFailed(ctx, event.ID, err.Error()); markErr != nil {
					p.log.Errorf("outbox: mark failed for %s: %v", event.ID, markErr)
				}
				continue
			}
			if markErr := p.repo.IncrementAttempt(ctx, event.ID, err.Error()); markErr != nil {
				p.log.Errorf("outbox: increment attempt for %s: %v", event.ID, markErr)
			}
			continue
		}
		if err := p.repo.MarkAsPublished(ctx, event.ID); err != nil {
			p.log.Errorf("outbox: mark published for %s: %v", event.ID, err)
		}
	}
}
