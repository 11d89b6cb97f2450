package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/queue"
	"event-ticket-ledger/internal/repository"
	"event-ticket-ledger/internal/worker"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOutbox(t *testing.T, store *repository.MemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.WithTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			return tx.Append(ctx, model.Notification{Kind: model.NotificationFundsDeposited, Actor: "alice", Amount: 1})
		})
		require.NoError(t, err)
	}
}

type failingQueue struct {
	queue.NotificationQueue
	failAt uint64
	sent   []uint64
}

func (q *failingQueue) PublishNotification(ctx context.Context, n *model.Notification) error {
	if n.Seq == q.failAt {
		return errors.New("broker down")
	}
	q.sent = append(q.sent, n.Seq)
	return nil
}

func TestNotificationRelay_RelayOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedOutbox(t, store, 3)
		q := queue.NewNotificationQueue(10)
		relay := worker.NewNotificationRelay(store, q, time.Second, 2)

		n, err := relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		n, err = relay.RelayOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		pending, err := store.Unpublished(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("Failed - publish error keeps the rest pending", func(t *testing.T) {
		store := repository.NewMemoryStore()
		seedOutbox(t, store, 3)
		q := &failingQueue{failAt: 2}
		relay := worker.NewNotificationRelay(store, q, time.Second, 10)

		n, err := relay.RelayOnce(ctx)
		require.Error(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []uint64{1}, q.sent)

		pending, err := store.Unpublished(ctx, 0)
		require.NoError(t, err)
		require.Len(t, pending, 2)
		assert.Equal(t, uint64(2), pending[0].Seq)
	})
}

func TestNotificationRelay_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// 1. 準備：outbox 內有兩筆通知
	store := repository.NewMemoryStore()
	seedOutbox(t, store, 2)
	q := queue.NewNotificationQueue(10)

	// 2. 啟動 consumer 與 relay
	received := make(chan uint64, 2)
	consumer := worker.NewNotificationConsumer(q, func(ctx context.Context, n *model.Notification) error {
		received <- n.Seq
		return nil
	})
	require.NoError(t, consumer.Start(ctx))
	require.NoError(t, worker.NewNotificationRelay(store, q, 10*time.Millisecond, 10).Start(ctx))

	// 3. 驗證：依序收到
	for want := uint64(1); want <= 2; want++ {
		select {
		case seq := <-received:
			assert.Equal(t, want, seq)
		case <-ctx.Done():
			t.Fatal("超時！relay 沒有在時間內轉送通知")
		}
	}
}

func TestNotificationConsumer_RetriesOnError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	q := queue.NewNotificationQueue(10)
	attempts := make(chan struct{}, 2)
	calls := 0
	consumer := worker.NewNotificationConsumer(q, func(ctx context.Context, n *model.Notification) error {
		calls++
		attempts <- struct{}{}
		if calls == 1 {
			return errors.New("temporary")
		}
		return nil
	})
	require.NoError(t, consumer.Start(ctx))
	require.NoError(t, q.PublishNotification(ctx, &model.Notification{Seq: 1}))

	for i := 0; i < 2; i++ {
		select {
		case <-attempts:
		case <-ctx.Done():
			t.Fatal("超時！Nack 後沒有重新投遞")
		}
	}
	assert.NoError(t, worker.LogNotification(ctx, &model.Notification{Seq: 1, Kind: model.NotificationBidPlaced}))
}
