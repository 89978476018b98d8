package adapter

import "context"

// BrokerPublisher sends already-encoded messages to the queue collaborator.
// PublishBatch delivers every message in order on one routing key; an error
// applies to the batch as a whole.
type BrokerPublisher interface {
	PublishBatch(ctx context.Context, exchange, routingKey string, bodies [][]byte) error
	Close() error
}
