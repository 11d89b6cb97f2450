package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	"event-ticket-ledger/internal/service"
	apperrors "event-ticket-ledger/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payoutFunc func(ctx context.Context, to model.Principal, amount model.Amount) error

func (f payoutFunc) Payout(ctx context.Context, to model.Principal, amount model.Amount) error {
	return f(ctx, to, amount)
}

type registryFunc func(ctx context.Context) error

func (f registryFunc) Mint(ctx context.Context, eventID, ticketTypeID uint64, to model.Principal, quantity uint64) error {
	return f(ctx)
}

func (f registryFunc) Transfer(ctx context.Context, eventID, ticketTypeID uint64, from, to model.Principal, quantity uint64) error {
	return f(ctx)
}

func TestLedgerService_Funds(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - deposit and withdraw", func(t *testing.T) {
		var paid model.Amount
		f := setup(t, service.WithPayoutGateway(payoutFunc(func(ctx context.Context, to model.Principal, amount model.Amount) error {
			paid += amount
			return nil
		})))

		balance, err := f.svc.Deposit(ctx, alice, 50)
		require.NoError(t, err)
		assert.Equal(t, model.Amount(50), balance)

		balance, err = f.svc.Withdraw(ctx, alice, 20)
		require.NoError(t, err)
		assert.Equal(t, model.Amount(30), balance)
		assert.Equal(t, model.Amount(20), paid)
	})

	t.Run("Failed - invalid amounts", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.Deposit(ctx, alice, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		_, err = f.svc.Withdraw(ctx, alice, 0)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		_, err = f.svc.Withdraw(ctx, alice, 1)
		assert.ErrorIs(t, err, apperrors.ErrInsufficientFunds)
		_, err = f.svc.Deposit(ctx, "", 1)
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})

	t.Run("Failed - payout error rolls back", func(t *testing.T) {
		boom := errors.New("gateway down")
		f := setup(t, service.WithPayoutGateway(payoutFunc(func(ctx context.Context, to model.Principal, amount model.Amount) error {
			return boom
		})))
		f.fund(t, alice, 50)

		_, err := f.svc.Withdraw(ctx, alice, 20)
		assert.ErrorIs(t, err, boom)

		balance, _ := f.svc.Balance(ctx, alice)
		assert.Equal(t, model.Amount(50), balance)
		assert.NotContains(t, f.kinds(t), model.NotificationFundsWithdrawn)
	})
}

func TestLedgerService_Reentrancy(t *testing.T) {
	ctx := context.Background()

	t.Run("payout callback cannot re-enter", func(t *testing.T) {
		var f *fixture
		var inner error
		f = setup(t, service.WithPayoutGateway(payoutFunc(func(ctx context.Context, to model.Principal, amount model.Amount) error {
			_, inner = f.svc.Withdraw(ctx, to, amount)
			return nil
		})))
		f.fund(t, alice, 50)

		balance, err := f.svc.Withdraw(ctx, alice, 20)
		require.NoError(t, err)
		assert.ErrorIs(t, inner, apperrors.ErrReentrantCall)
		assert.Equal(t, model.Amount(30), balance)
	})

	t.Run("registry callback cannot read or write", func(t *testing.T) {
		var f *fixture
		var reads, writes error
		f = setup(t, service.WithAssetRegistry(registryFunc(func(ctx context.Context) error {
			_, reads = f.svc.Balance(ctx, alice)
			_, writes = f.svc.Deposit(ctx, alice, 1)
			return nil
		})))
		e := f.createEvent(t, 10)
		tt := f.addTicketType(t, e.ID, 1, 10)
		f.fund(t, alice, 1)

		_, err := f.svc.PurchaseTicket(ctx, alice, model.PurchaseParams{EventID: e.ID, TicketTypeID: tt.ID, Quantity: 1, Value: 1})
		require.NoError(t, err)
		assert.ErrorIs(t, reads, apperrors.ErrReentrantCall)
		assert.ErrorIs(t, writes, apperrors.ErrReentrantCall)

		balance, _ := f.svc.Balance(ctx, alice)
		assert.Zero(t, balance)
	})

	t.Run("payout callback with a detached context is rejected", func(t *testing.T) {
		var f *fixture
		var inner error
		f = setup(t,
			service.WithCallbackWait(50*time.Millisecond),
			service.WithPayoutGateway(payoutFunc(func(_ context.Context, to model.Principal, amount model.Amount) error {
				_, inner = f.svc.Withdraw(context.Background(), to, amount)
				return nil
			})))
		f.fund(t, alice, 50)

		done := make(chan struct{})
		var balance model.Amount
		var err error
		go func() {
			defer close(done)
			balance, err = f.svc.Withdraw(ctx, alice, 20)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("withdraw did not return")
		}

		require.NoError(t, err)
		assert.ErrorIs(t, inner, apperrors.ErrReentrantCall)
		assert.Equal(t, model.Amount(30), balance)

		// 之後的呼叫不受影響
		balance, err = f.svc.Withdraw(ctx, alice, 30)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})

	t.Run("registry callback with a detached context is rejected", func(t *testing.T) {
		var f *fixture
		var purchase, reads error
		f = setup(t,
			service.WithCallbackWait(50*time.Millisecond),
			service.WithAssetRegistry(registryFunc(func(_ context.Context) error {
				detached := context.Background()
				_, purchase = f.svc.PurchaseTicket(detached, bob, model.PurchaseParams{EventID: 1, TicketTypeID: 0, Quantity: 1, Value: 1})
				_, reads = f.svc.Notifications(detached, 0, 10)
				return nil
			})))
		e := f.createEvent(t, 10)
		f.addTicketType(t, e.ID, 1, 10)

		// 直接寫入持有數，避免 Mint 觸發回呼
		require.NoError(t, f.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.PutHolding(ctx, e.ID, alice, 2)
		}))

		done := make(chan error, 1)
		go func() {
			done <- f.svc.TransferTicket(ctx, alice, model.TransferParams{EventID: e.ID, To: bob, Quantity: 1})
		}()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("transfer did not return")
		}

		assert.ErrorIs(t, purchase, apperrors.ErrReentrantCall)
		assert.ErrorIs(t, reads, apperrors.ErrReentrantCall)
		held, _ := f.svc.GetHolding(ctx, e.ID, bob)
		assert.Equal(t, uint64(1), held)
	})

	t.Run("concurrent caller waits for the payout to finish", func(t *testing.T) {
		started := make(chan struct{})
		f := setup(t,
			service.WithCallbackWait(time.Second),
			service.WithPayoutGateway(payoutFunc(func(ctx context.Context, to model.Principal, amount model.Amount) error {
				close(started)
				time.Sleep(50 * time.Millisecond)
				return nil
			})))
		f.fund(t, alice, 10)

		deposited := make(chan error, 1)
		go func() {
			<-started
			_, err := f.svc.Deposit(ctx, bob, 5)
			deposited <- err
		}()

		_, err := f.svc.Withdraw(ctx, alice, 10)
		require.NoError(t, err)
		require.NoError(t, <-deposited)

		balance, _ := f.svc.Balance(ctx, bob)
		assert.Equal(t, model.Amount(5), balance)
	})

	t.Run("registry failure rolls back the purchase", func(t *testing.T) {
		f := setup(t, service.WithAssetRegistry(registryFunc(func(ctx context.Context) error {
			return errors.New("mint failed")
		})))
		e := f.createEvent(t, 10)
		tt := f.addTicketType(t, e.ID, 1, 10)
		f.fund(t, alice, 1)

		_, err := f.svc.PurchaseTicket(ctx, alice, model.PurchaseParams{EventID: e.ID, TicketTypeID: tt.ID, Quantity: 1, Value: 1})
		require.Error(t, err)

		got, _ := f.svc.GetTicketType(ctx, e.ID, tt.ID)
		assert.Zero(t, got.CurrentSupply)
		balance, _ := f.svc.Balance(ctx, alice)
		assert.Equal(t, model.Amount(1), balance)
		held, _ := f.svc.GetHolding(ctx, e.ID, alice)
		assert.Zero(t, held)
	})
}
