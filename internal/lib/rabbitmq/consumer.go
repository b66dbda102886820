package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/subscription-sync/internal/lib/sl"
)

// maxInFlight — сколько сообщений обрабатывается одновременно.
const maxInFlight = 10

// Consumer — часть amqp.Channel, нужная для чтения очереди.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// ConsumeMessages читает очередь queueName до отмены ctx или закрытия канала.
// Успешно обработанные сообщения подтверждаются, при ошибке handler сообщение
// возвращается в очередь. Метод не блокируется: возвращаемый канал закрывается,
// когда чтение остановлено и все запущенные обработчики завершились.
func ConsumeMessages(ctx context.Context, ch Consumer, queueName string, log *slog.Logger, handler func(context.Context, []byte) error) (<-chan struct{}, error) {
	const op = "rabbitmq.ConsumeMessages"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	done := make(chan struct{})
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup

	go func() {
		defer close(done)
		defer wg.Wait()
		for {
			var d amqp.Delivery
			var ok bool
			select {
			case d, ok = <-delivery:
				if !ok {
					log.Info("delivery channel closed")
					return
				}
			case <-ctx.Done():
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				// неподтверждённое сообщение брокер вернёт в очередь сам
				return
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				handle(ctx, d, handler, log)
			}(d)
		}
	}()
	return done, nil
}

func handle(ctx context.Context, d amqp.Delivery, handler func(context.Context, []byte) error, log *slog.Logger) {
	if err := handler(ctx, d.Body); err != nil {
		log.Warn("failed to handle message, requeueing", sl.Err(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			log.Error("failed to nack message", sl.Err(nackErr))
		}
		return
	}
	if ackErr := d.Ack(false); ackErr != nil {
		log.Error("failed to ack message", sl.Err(ackErr))
	}
}
