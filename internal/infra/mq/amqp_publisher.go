package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"jobapply-gateway/internal/config"
	"jobapply-gateway/internal/domain"
)

// AMQPPublisher publishes message batches to a RabbitMQ topic exchange on a
// confirm-mode channel, so a broker-side failure is visible per batch.
type AMQPPublisher struct {
	mu          sync.Mutex
	conn        *amqp.Connection
	ch          *amqp.Channel
	exchange    string
	confirmWait time.Duration
	log         *zerolog.Logger
}

func NewAMQPPublisher(cfg *config.BrokerConfig, logger *zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: confirm mode: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: declare exchange %q: %w", cfg.Exchange, err)
	}

	pubLog := logger.With().Str("component", "AMQPPublisher").Logger()
	return &AMQPPublisher{
		conn:        conn,
		ch:          ch,
		exchange:    cfg.Exchange,
		confirmWait: cfg.ConfirmWait,
		log:         &pubLog,
	}, nil
}

// PublishBatch sends every body in order on one routing key and waits for
// broker confirms. Channels are not safe for concurrent publish, so the
// whole batch goes out under the publisher lock.
func (p *AMQPPublisher) PublishBatch(ctx context.Context, exchange, routingKey string, bodies [][]byte) error {
	if len(bodies) == 0 {
		return nil
	}
	if exchange == "" {
		exchange = p.exchange
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch.IsClosed() {
		return fmt.Errorf("%w: channel closed", domain.ErrPublisherUnavailable)
	}

	confirms := make([]*amqp.DeferredConfirmation, 0, len(bodies))
	for _, body := range bodies {
		dc, err := p.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("amqp: publish to %s/%s: %w", exchange, routingKey, err)
		}
		confirms = append(confirms, dc)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.confirmWait)
	defer cancel()
	for _, dc := range confirms {
		acked, err := dc.WaitContext(waitCtx)
		if err != nil {
			return fmt.Errorf("amqp: confirm wait on %s/%s: %w", exchange, routingKey, err)
		}
		if !acked {
			return fmt.Errorf("amqp: broker nacked publish to %s/%s", exchange, routingKey)
		}
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.log.Debug().Err(err).Msg("channel close")
	}
	return p.conn.Close()
}
