package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPNotificationQueue 透過 RabbitMQ 的預設 exchange 投遞到具名的 durable queue
type AMQPNotificationQueue struct {
	conn      *amqp.Connection
	mu        sync.Mutex
	pub       *amqp.Channel
	queueName string
	prefetch  int
	log       *zap.Logger
}

func NewAMQPNotificationQueue(url, queueName string) (*AMQPNotificationQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}

	return &AMQPNotificationQueue{
		conn:      conn,
		pub:       ch,
		queueName: queueName,
		prefetch:  50,
		log:       logger.WithComponent("mq"),
	}, nil
}

func (q *AMQPNotificationQueue) PublishNotification(ctx context.Context, n *model.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID.String(),
		Type:         string(n.Kind),
		Timestamp:    n.OccurredAt,
		Headers:      amqp.Table{"seq": strconv.FormatUint(n.Seq, 10)},
		Body:         body,
	}

	// amqp.Channel 不可多個 goroutine 同時發送
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.pub.PublishWithContext(ctx, "", q.queueName, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func (q *AMQPNotificationQueue) SubscribeNotifications(ctx context.Context) (<-chan Delivery, error) {
	ch, err := q.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		q.log.Warn("set QoS failed", zap.Error(err))
	}
	msgs, err := ch.ConsumeWithContext(ctx, q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue consume: %w", err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		defer func() { _ = ch.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var n model.Notification
				if err := json.Unmarshal(m.Body, &n); err != nil {
					q.log.Warn("unmarshal notification failed", zap.String("message_id", m.MessageId), zap.Error(err))
					_ = m.Nack(false, false)
					continue
				}
				d := Delivery{
					Data: &n,
					Ack: func() {
						if err := m.Ack(false); err != nil {
							q.log.Error("ack failed", zap.String("message_id", m.MessageId), zap.Error(err))
						}
					},
					Nack: func(requeue bool) {
						if err := m.Nack(false, requeue); err != nil {
							q.log.Error("nack failed", zap.String("message_id", m.MessageId), zap.Error(err))
						}
					},
				}
				select {
				case out <- d:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (q *AMQPNotificationQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	_ = q.pub.Close()
	return q.conn.Close()
}

var _ NotificationQueue = (*AMQPNotificationQueue)(nil)
