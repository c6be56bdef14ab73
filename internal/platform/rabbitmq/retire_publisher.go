package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RetireBatchMessage asks the sweeper to delete every chunk of a
// generation that is no longer live.
type RetireBatchMessage struct {
	OwnerID string    `json:"owner_id"`
	BatchID uuid.UUID `json:"batch_id"`
}

// RetirePublisher enqueues retired generations for asynchronous
// garbage collection, keeping the ingest request path free of bulk
// deletes.
type RetirePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewRetirePublisher(conn *amqp.Connection, queueName string) *RetirePublisher {
	return &RetirePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *RetirePublisher) Publish(ctx context.Context, msg RetireBatchMessage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare retire queue failed: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal retire message failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish retire message failed: %w", err)
	}
	return nil
}
