package queue

import (
	"fmt"

	"github.com/streadway/amqp"
)

// QueueStats describes the events queue as the broker sees it.
type QueueStats struct {
	Name      string `json:"name"`
	Pending   int    `json:"pending"`
	Consumers int    `json:"consumers"`
}

// Unconsumed reports whether events are piling up with nobody reading them.
func (s QueueStats) Unconsumed() bool {
	return s.Pending > 0 && s.Consumers == 0
}

func newQueueStats(q amqp.Queue) QueueStats {
	return QueueStats{
		Name:      q.Name,
		Pending:   q.Messages,
		Consumers: q.Consumers,
	}
}

func (q *QueueService) GetQueueStats() (QueueStats, error) {
	q.mu.Lock()
	info, err := q.channel.QueueInspect(q.queueName)
	q.mu.Unlock()
	if err != nil {
		return QueueStats{}, fmt.Errorf("failed to inspect %s: %w", q.queueName, err)
	}
	return newQueueStats(info), nil
}

// HealthCheck reports the broker connection state in health-endpoint form.
func (q *QueueService) HealthCheck() string {
	switch {
	case q.conn == nil || q.conn.IsClosed():
		return "unhealthy: connection closed"
	case q.channel == nil:
		return "unhealthy: channel not available"
	default:
		return "healthy"
	}
}
