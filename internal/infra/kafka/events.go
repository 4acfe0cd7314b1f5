package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/domain"
	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Sub       int64            `json:"sub,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType string, sub int64, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		Sub:       sub,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLogin publishes auth.login events.
func (p *EventPublisher) PublishLogin(ctx context.Context, event domain.LoginEvent) error {
	payload := struct {
		Sub      int64          `json:"sub"`
		Username string         `json:"username"`
		Method   string         `json:"method"`
		At       time.Time      `json:"at"`
		Metadata map[string]any `json:"metadata,omitempty"`
	}{
		Sub:      event.Sub,
		Username: event.Username,
		Method:   event.Method,
		At:       event.At.UTC(),
		Metadata: event.Metadata,
	}

	return p.publish(ctx, event.EventID, "auth.login", event.Sub, event.At, payload)
}

// PublishLoginFailed publishes auth.fail events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event domain.LoginFailedEvent) error {
	payload := struct {
		Identifier string    `json:"identifier"`
		Reason     string    `json:"reason"`
		At         time.Time `json:"at"`
	}{
		Identifier: event.Identifier,
		Reason:     event.Reason,
		At:         event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.fail", 0, event.At, payload)
}

// PublishAccountRegistered publishes auth.register events.
func (p *EventPublisher) PublishAccountRegistered(ctx context.Context, event domain.AccountRegisteredEvent) error {
	payload := struct {
		Sub      int64     `json:"sub"`
		Username string    `json:"username"`
		Email    string    `json:"email,omitempty"`
		Provider string    `json:"provider,omitempty"`
		At       time.Time `json:"at"`
	}{
		Sub:      event.Sub,
		Username: event.Username,
		Email:    event.Email,
		Provider: event.Provider,
		At:       event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.register", event.Sub, event.At, payload)
}

// PublishIdentityAssociated publishes auth.associate events.
func (p *EventPublisher) PublishIdentityAssociated(ctx context.Context, event domain.IdentityAssociatedEvent) error {
	payload := struct {
		Sub        int64     `json:"sub"`
		Provider   string    `json:"provider"`
		ExternalID string    `json:"external_id"`
		At         time.Time `json:"at"`
	}{
		Sub:        event.Sub,
		Provider:   event.Provider,
		ExternalID: event.ExternalID,
		At:         event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.associate", event.Sub, event.At, payload)
}

// PublishIdentityDisconnected publishes auth.disconnect events.
func (p *EventPublisher) PublishIdentityDisconnected(ctx context.Context, event domain.IdentityDisconnectedEvent) error {
	payload := struct {
		Sub        int64     `json:"sub"`
		Provider   string    `json:"provider"`
		ExternalID string    `json:"external_id"`
		At         time.Time `json:"at"`
	}{
		Sub:        event.Sub,
		Provider:   event.Provider,
		ExternalID: event.ExternalID,
		At:         event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.disconnect", event.Sub, event.At, payload)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		Sub    int64     `json:"sub"`
		Reason string    `json:"reason"`
		At     time.Time `json:"at"`
	}{
		Sub:    event.Sub,
		Reason: event.Reason,
		At:     event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.password.changed", event.Sub, event.At, payload)
}

// PublishAccountDisabled publishes auth.account.disabled events.
func (p *EventPublisher) PublishAccountDisabled(ctx context.Context, event domain.AccountDisabledEvent) error {
	payload := struct {
		Sub   int64     `json:"sub"`
		Actor int64     `json:"actor"`
		At    time.Time `json:"at"`
	}{
		Sub:   event.Sub,
		Actor: event.Actor,
		At:    event.At.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.account.disabled", event.Sub, event.At, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
