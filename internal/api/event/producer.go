package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abdullah0035/itip-sub000/internal/api/domain"
	pkgkafka "github.com/abdullah0035/itip-sub000/pkg/kafka"
)

// Kafka topics for iTIP domain events.
const (
	TopicAccountRegistered = "itip.account.registered"
	TopicTipReceived       = "itip.tip.received"
)

// Aggregate type constants.
const (
	AggregateTypeAccount = "account"
	AggregateTypeTip     = "tip"
)

// Source identifier for events originating from the api binary.
const SourceAPI = "itip-api"

// AccountRegisteredData is the payload for an account.registered event.
type AccountRegisteredData struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Country   string `json:"country,omitempty"`
}

// TipReceivedData is the payload for a tip.received event.
type TipReceivedData struct {
	ID         string  `json:"id"`
	QRCodeID   string  `json:"qr_code_id"`
	ProviderID string  `json:"provider_id"`
	CustomerID *string `json:"customer_id,omitempty"`
	Amount     int64   `json:"amount"`
	Currency   string  `json:"currency"`
	Status     string  `json:"status"`
}

// Publisher is the subset of the event producer the services depend on, so
// tests can substitute a mock.
type Publisher interface {
	PublishAccountRegistered(ctx context.Context, account *domain.Account) error
	PublishTipReceived(ctx context.Context, tip *domain.Tip) error
}

// Producer publishes iTIP domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishAccountRegistered publishes an account.registered event.
func (p *Producer) PublishAccountRegistered(ctx context.Context, account *domain.Account) error {
	data := AccountRegisteredData{
		ID:        account.ID,
		Type:      account.Type,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		Country:   account.Country,
	}

	event, err := pkgkafka.NewEvent(TopicAccountRegistered, account.ID, AggregateTypeAccount, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create account.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicAccountRegistered, event); err != nil {
		return fmt.Errorf("publish account.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published account.registered event",
		slog.String("account_id", account.ID),
		slog.String("type", account.Type),
	)

	return nil
}

// PublishTipReceived publishes a tip.received event.
func (p *Producer) PublishTipReceived(ctx context.Context, tip *domain.Tip) error {
	data := TipReceivedData{
		ID:         tip.ID,
		QRCodeID:   tip.QRCodeID,
		ProviderID: tip.ProviderID,
		CustomerID: tip.CustomerID,
		Amount:     tip.Amount,
		Currency:   tip.Currency,
		Status:     tip.Status,
	}

	event, err := pkgkafka.NewEvent(TopicTipReceived, tip.ProviderID, AggregateTypeTip, SourceAPI, data)
	if err != nil {
		return fmt.Errorf("create tip.received event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicTipReceived, event); err != nil {
		return fmt.Errorf("publish tip.received event: %w", err)
	}

	p.logger.DebugContext(ctx, "published tip.received event",
		slog.String("tip_id", tip.ID),
		slog.String("provider_id", tip.ProviderID),
		slog.Int64("amount", tip.Amount),
	)

	return nil
}
