package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// PublishAnalysis sends one analysis event to the events queue.
func (q *QueueService) PublishAnalysis(ctx context.Context, event models.AnalysisEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := newPublishing(event)
	if err != nil {
		return err
	}

	q.mu.Lock()
	err = q.channel.Publish(
		"",          // exchange
		q.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		msg,
	)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	q.logger.Debug("Analysis event published",
		zap.String("event_id", event.ID),
		zap.Bool("success", event.Success))
	return nil
}

func newPublishing(event models.AnalysisEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    event.ID,
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.CreatedAt,
	}, nil
}
