package worker

import (
	"context"
	"time"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/queue"
	"event-ticket-ledger/pkg/logger"

	"go.uber.org/zap"
)

// Outbox 尚未轉送的通知來源
type Outbox interface {
	Unpublished(ctx context.Context, limit int) ([]model.Notification, error)
	MarkPublished(ctx context.Context, seqs []uint64) error
}

type NotificationRelay interface {
	Start(ctx context.Context) error
	// RelayOnce 轉送一批通知，回傳成功轉送的筆數
	RelayOnce(ctx context.Context) (int, error)
}

// NotificationRelayImpl 定時把 outbox 內的通知依 seq 順序送進隊列；
// 送出後才標記已發送，因此下游可能收到重複通知（至少一次）
type NotificationRelayImpl struct {
	outbox   Outbox
	queue    queue.NotificationQueue
	interval time.Duration
	batch    int
	log      *zap.Logger
}

func NewNotificationRelay(outbox Outbox, q queue.NotificationQueue, interval time.Duration, batch int) NotificationRelay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &NotificationRelayImpl{
		outbox:   outbox,
		queue:    q,
		interval: interval,
		batch:    batch,
		log:      logger.WithComponent("relay"),
	}
}

func (r *NotificationRelayImpl) Start(ctx context.Context) error {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// 一次排空所有積壓
				for {
					n, err := r.RelayOnce(ctx)
					if err != nil {
						if ctx.Err() == nil {
							r.log.Warn("relay notifications failed", zap.Error(err))
						}
						break
					}
					if n < r.batch {
						break
					}
				}
			}
		}
	}()
	return nil
}

func (r *NotificationRelayImpl) RelayOnce(ctx context.Context) (int, error) {
	pending, err := r.outbox.Unpublished(ctx, r.batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	seqs := make([]uint64, 0, len(pending))
	var publishErr error
	for i := range pending {
		if publishErr = r.queue.PublishNotification(ctx, &pending[i]); publishErr != nil {
			break
		}
		seqs = append(seqs, pending[i].Seq)
	}

	if len(seqs) > 0 {
		if err := r.outbox.MarkPublished(ctx, seqs); err != nil {
			return 0, err
		}
		r.log.Debug("notifications relayed",
			zap.Int("count", len(seqs)),
			zap.Uint64("last_seq", seqs[len(seqs)-1]))
	}
	return len(seqs), publishErr
}
