package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"notesage/internal/platform/rabbitmq"
)

// BatchDeleter removes all chunks of one retired generation.
type BatchDeleter interface {
	DeleteBatch(ctx context.Context, ownerID string, batchID uuid.UUID) (int64, error)
}

// GenerationSweeper consumes retire messages and garbage-collects the
// chunks of generations that a newer upload batch has replaced. Doing
// this off the request path keeps ingestion latency flat and removes
// the delete/insert race of a wholesale clear.
type GenerationSweeper struct {
	conn      *amqp.Connection
	deleter   BatchDeleter
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewGenerationSweeper(conn *amqp.Connection, deleter BatchDeleter, queueName string) *GenerationSweeper {
	return &GenerationSweeper{
		conn:      conn,
		deleter:   deleter,
		queueName: queueName,
	}
}

func (w *GenerationSweeper) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open sweeper channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare sweeper queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume sweeper queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, delivery)
			}
		}
	}()

	return nil
}

func (w *GenerationSweeper) handle(ctx context.Context, delivery amqp.Delivery) {
	var msg rabbitmq.RetireBatchMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		log.Printf("sweeper: drop malformed retire message: %v", err)
		_ = delivery.Ack(false)
		return
	}

	deleted, err := w.deleter.DeleteBatch(ctx, msg.OwnerID, msg.BatchID)
	if err != nil {
		log.Printf("sweeper: delete batch %s failed, requeueing: %v", msg.BatchID, err)
		_ = delivery.Nack(false, true)
		return
	}

	log.Printf("sweeper: retired batch %s (%d chunks)", msg.BatchID, deleted)
	_ = delivery.Ack(false)
}

func (w *GenerationSweeper) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
