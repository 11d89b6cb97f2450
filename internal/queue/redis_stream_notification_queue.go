package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	StreamKey          = "ledger:notifications"
	ConsumerGroupName  = "notification-consumers"
	ConsumerNamePrefix = "consumer"

	notificationField = "notification"
)

// RedisStreamConfig 可注入的逾時與重試設定；nil 或零值時使用預設
type RedisStreamConfig struct {
	ClaimMinIdleTime   time.Duration // PEL 中超過此時間才被 XAUTOCLAIM 領取
	MaxRetryCount      int           // 超過此次數視為毒藥消息並丟棄
	ReadGroupBlockTime time.Duration
	MaxLen             int64 // 串流保留的大約長度，0 表示不修剪
}

func defaultRedisStreamConfig() RedisStreamConfig {
	return RedisStreamConfig{
		ClaimMinIdleTime:   5 * time.Second,
		MaxRetryCount:      5,
		ReadGroupBlockTime: 2 * time.Second,
		MaxLen:             100000,
	}
}

type RedisStreamNotificationQueue struct {
	client       *redis.Client
	streamKey    string
	groupName    string
	consumerName string
	cfg          RedisStreamConfig
	log          *zap.Logger
}

// NewRedisStreamNotificationQueue 建立 Redis Stream 版 NotificationQueue。config 可為 nil
func NewRedisStreamNotificationQueue(ctx context.Context, client *redis.Client, consumerID string, config *RedisStreamConfig) (*RedisStreamNotificationQueue, error) {
	if consumerID == "" {
		consumerID = uuid.New().String()
	}
	cfg := defaultRedisStreamConfig()
	if config != nil {
		if config.ClaimMinIdleTime > 0 {
			cfg.ClaimMinIdleTime = config.ClaimMinIdleTime
		}
		if config.MaxRetryCount > 0 {
			cfg.MaxRetryCount = config.MaxRetryCount
		}
		if config.ReadGroupBlockTime > 0 {
			cfg.ReadGroupBlockTime = config.ReadGroupBlockTime
		}
		if config.MaxLen > 0 {
			cfg.MaxLen = config.MaxLen
		}
	}
	q := &RedisStreamNotificationQueue{
		client:       client,
		streamKey:    StreamKey,
		groupName:    ConsumerGroupName,
		consumerName: fmt.Sprintf("%s:%s", ConsumerNamePrefix, consumerID),
		cfg:          cfg,
		log:          logger.WithComponent("mq"),
	}
	if err := q.ensureConsumerGroup(ctx); err != nil {
		return nil, fmt.Errorf("ensure consumer group: %w", err)
	}
	return q, nil
}

func (q *RedisStreamNotificationQueue) ensureConsumerGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.streamKey, q.groupName, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return err
	}
	return nil
}

func (q *RedisStreamNotificationQueue) PublishNotification(ctx context.Context, n *model.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: q.streamKey,
		ID:     "*",
		Values: map[string]interface{}{
			notificationField: string(body),
			"seq":             strconv.FormatUint(n.Seq, 10),
			"kind":            string(n.Kind),
		},
	}
	if q.cfg.MaxLen > 0 {
		args.MaxLen = q.cfg.MaxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd: %w", err)
	}
	return nil
}

func (q *RedisStreamNotificationQueue) SubscribeNotifications(ctx context.Context) (<-chan Delivery, error) {
	out := make(chan Delivery)
	go func() {
		defer close(out)
		done := make(chan struct{})
		go func() {
			defer close(done)
			q.runAutoClaim(ctx, out)
		}()
		q.runReadLoop(ctx, out)
		<-done
	}()
	return out, nil
}

func (q *RedisStreamNotificationQueue) runReadLoop(ctx context.Context, out chan<- Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			q.readAndDeliver(ctx, out)
		}
	}
}

// readAndDeliver 只讀 ">"（新訊息）；已投遞但未 Ack 的訊息由 XAUTOCLAIM 逾時後領回重試
func (q *RedisStreamNotificationQueue) readAndDeliver(ctx context.Context, out chan<- Delivery) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.groupName,
		Consumer: q.consumerName,
		Streams:  []string{q.streamKey, ">"},
		Count:    10,
		Block:    q.cfg.ReadGroupBlockTime,
	}).Result()

	if errors.Is(err, redis.Nil) {
		return
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		q.log.Error("XReadGroup failed", zap.Error(err))
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return
	}

	for _, stream := range streams {
		if stream.Stream != q.streamKey {
			continue
		}
		for _, msg := range stream.Messages {
			d := q.newDelivery(ctx, msg)
			if d == nil {
				continue
			}
			select {
			case out <- *d:
			case <-ctx.Done():
				return
			}
		}
	}
}

// shouldRetry 重試次數達上限的訊息直接 Ack 丟棄
func (q *RedisStreamNotificationQueue) shouldRetry(ctx context.Context, messageID string) bool {
	n, err := q.retryCount(ctx, messageID)
	if err != nil {
		q.log.Warn("retryCount failed", zap.String("message_id", messageID), zap.Error(err))
		return true
	}
	if n >= q.cfg.MaxRetryCount {
		q.log.Warn("discard poison message",
			zap.String("message_id", messageID),
			zap.Int("retries", n),
			zap.Int("max_retries", q.cfg.MaxRetryCount))
		_ = q.client.XAck(ctx, q.streamKey, q.groupName, messageID).Err()
		return false
	}
	return true
}

func (q *RedisStreamNotificationQueue) retryCount(ctx context.Context, messageID string) (int, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: q.streamKey,
		Group:  q.groupName,
		Start:  messageID,
		End:    messageID,
		Count:  1,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}
	return int(pending[0].RetryCount), nil
}

// runAutoClaim 定時用 XAUTOCLAIM 領取逾時未 Ack 的訊息
func (q *RedisStreamNotificationQueue) runAutoClaim(ctx context.Context, out chan<- Delivery) {
	ticker := time.NewTicker(q.cfg.ClaimMinIdleTime)
	defer ticker.Stop()
	startID := "0-0"

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			claimed, nextID, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   q.streamKey,
				Group:    q.groupName,
				Consumer: q.consumerName,
				MinIdle:  q.cfg.ClaimMinIdleTime,
				Count:    10,
				Start:    startID,
			}).Result()

			if err != nil && !errors.Is(err, redis.Nil) {
				if ctx.Err() == nil {
					q.log.Error("XAutoClaim failed", zap.Error(err))
				}
				continue
			}
			if nextID != "" {
				startID = nextID
			} else {
				startID = "0-0"
			}

			for _, msg := range claimed {
				if !q.shouldRetry(ctx, msg.ID) {
					continue
				}
				d := q.newDelivery(ctx, msg)
				if d == nil {
					continue
				}
				select {
				case out <- *d:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (q *RedisStreamNotificationQueue) newDelivery(ctx context.Context, msg redis.XMessage) *Delivery {
	body, ok := msg.Values[notificationField].(string)
	if !ok {
		q.log.Warn("invalid message: missing notification field", zap.String("message_id", msg.ID))
		_ = q.client.XAck(ctx, q.streamKey, q.groupName, msg.ID).Err()
		return nil
	}
	var n model.Notification
	if err := json.Unmarshal([]byte(body), &n); err != nil {
		q.log.Warn("unmarshal notification failed", zap.String("message_id", msg.ID), zap.Error(err))
		_ = q.client.XAck(ctx, q.streamKey, q.groupName, msg.ID).Err()
		return nil
	}
	msgID := msg.ID
	return &Delivery{
		Data: &n,
		Ack: func() {
			if err := q.client.XAck(ctx, q.streamKey, q.groupName, msgID).Err(); err != nil {
				q.log.Error("XAck failed", zap.String("message_id", msgID), zap.Error(err))
			}
		},
		Nack: func(requeue bool) {
			if requeue {
				// 留在 PEL，等 ClaimMinIdleTime 後由 XAUTOCLAIM 領回
				q.log.Info("message nack(requeue), will retry",
					zap.String("message_id", msgID),
					zap.Duration("claim_min_idle", q.cfg.ClaimMinIdleTime))
				return
			}
			if err := q.client.XAck(ctx, q.streamKey, q.groupName, msgID).Err(); err != nil {
				q.log.Error("XAck discard failed", zap.String("message_id", msgID), zap.Error(err))
			}
		},
	}
}

var _ NotificationQueue = (*RedisStreamNotificationQueue)(nil)
