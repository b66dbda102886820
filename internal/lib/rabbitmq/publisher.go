package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-sync/internal/models"
)

// Channel — часть amqp.Channel, нужная для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishMessage публикует сообщение в формате JSON.
func PublishMessage(ch Channel, exchange string, routingKey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SyncCompletedEvent — событие о завершённом прогоне синхронизации.
type SyncCompletedEvent struct {
	models.SyncRunSummary
	FinishedAt time.Time `json:"finished_at"`
}

// Publisher публикует события синхронизации в заданный exchange.
type Publisher struct {
	ch       Channel
	exchange string
}

// NewPublisher создаёт Publisher поверх открытого канала.
func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{ch: ch, exchange: exchange}
}

// PublishSyncCompleted отправляет итог прогона с ключом sync.completed.
func (p *Publisher) PublishSyncCompleted(ctx context.Context, summary models.SyncRunSummary) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rabbitmq.PublishSyncCompleted: %w", err)
	}
	event := SyncCompletedEvent{
		SyncRunSummary: summary,
		FinishedAt:     time.Now().UTC(),
	}
	return PublishMessage(p.ch, p.exchange, RoutingKeySyncCompleted, event)
}
