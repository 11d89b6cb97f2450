package worker

import (
	"context"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/queue"
	"event-ticket-ledger/pkg/logger"

	"go.uber.org/zap"
)

// NotificationHandler 處理一筆通知；回傳錯誤時訊息會被重新排入隊列
type NotificationHandler func(ctx context.Context, n *model.Notification) error

type NotificationConsumer interface {
	// 訂閱通知隊列
	Start(ctx context.Context) error
}

type NotificationConsumerImpl struct {
	queue   queue.NotificationQueue
	handler NotificationHandler
}

func NewNotificationConsumer(q queue.NotificationQueue, handler NotificationHandler) NotificationConsumer {
	return &NotificationConsumerImpl{
		queue:   q,
		handler: handler,
	}
}

func (w *NotificationConsumerImpl) Start(ctx context.Context) error {
	msgs, err := w.queue.SubscribeNotifications(ctx)
	if err != nil {
		return err
	}

	go func() {
		for msg := range msgs {
			if err := w.handler(ctx, msg.Data); err != nil {
				msg.Nack(true)
				continue
			}
			msg.Ack()
		}
	}()
	return nil
}

// LogNotification 預設的處理方式：以結構化日誌輸出
func LogNotification(ctx context.Context, n *model.Notification) error {
	logger.WithComponent("notifications").Info("notification",
		zap.Uint64("seq", n.Seq),
		zap.String("id", n.ID.String()),
		zap.String("kind", string(n.Kind)),
		zap.Uint64("event_id", n.EventID),
		zap.Uint64("ticket_type_id", n.TicketTypeID),
		zap.Uint64("auction_id", n.AuctionID),
		zap.String("actor", string(n.Actor)),
		zap.String("counterparty", string(n.Counterparty)),
		zap.Uint64("quantity", n.Quantity),
		zap.Uint64("amount", n.Amount),
		zap.Time("occurred_at", n.OccurredAt))
	return nil
}
