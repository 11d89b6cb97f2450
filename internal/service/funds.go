package service

import (
	"context"
	"fmt"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	apperrors "event-ticket-ledger/pkg/app_errors"

	"go.uber.org/zap"
)

func (s *LedgerServiceImpl) Deposit(ctx context.Context, caller model.Principal, amount model.Amount) (model.Amount, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: deposit amount must be positive", apperrors.ErrInvalidInput)
	}

	var balance model.Amount
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if balance, err = credit(ctx, tx, caller, amount); err != nil {
			return err
		}
		return s.emit(ctx, tx, model.Notification{
			Kind:   model.NotificationFundsDeposited,
			Actor:  caller,
			Amount: amount,
		})
	})
	return balance, err
}

func (s *LedgerServiceImpl) Withdraw(ctx context.Context, caller model.Principal, amount model.Amount) (model.Amount, error) {
	if err := requireCaller(caller); err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: withdraw amount must be positive", apperrors.ErrInvalidInput)
	}

	var balance model.Amount
	err := s.runGuarded(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if balance, err = debit(ctx, tx, caller, amount); err != nil {
			return err
		}
		if err := s.emit(ctx, tx, model.Notification{
			Kind:   model.NotificationFundsWithdrawn,
			Actor:  caller,
			Amount: amount,
		}); err != nil {
			return err
		}

		// 先記帳再匯出，匯出失敗整筆回滾
		if err := s.payout(ctx, caller, amount); err != nil {
			s.log.Warn("payout failed",
				zap.String("principal", string(caller)),
				zap.Uint64("amount", amount),
				zap.Error(err))
			return err
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("funds withdrawn",
		zap.String("principal", string(caller)),
		zap.Uint64("amount", amount),
		zap.Uint64("balance", balance))
	return balance, nil
}

func (s *LedgerServiceImpl) Balance(ctx context.Context, who model.Principal) (model.Amount, error) {
	var balance model.Amount
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		balance, err = tx.GetBalance(ctx, who)
		return err
	})
	return balance, err
}

func (s *LedgerServiceImpl) Notifications(ctx context.Context, afterSeq uint64, limit int) ([]model.Notification, error) {
	marked, err := s.guard.admit(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Notifications(marked, afterSeq, limit)
}

func credit(ctx context.Context, tx repository.Tx, who model.Principal, amount model.Amount) (model.Amount, error) {
	balance, err := tx.GetBalance(ctx, who)
	if err != nil {
		return 0, err
	}
	if balance+amount < balance {
		return 0, fmt.Errorf("%w: balance of %s would overflow", apperrors.ErrInvalidInput, who)
	}
	balance += amount
	return balance, tx.PutBalance(ctx, who, balance)
}

func debit(ctx context.Context, tx repository.Tx, who model.Principal, amount model.Amount) (model.Amount, error) {
	balance, err := tx.GetBalance(ctx, who)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, fmt.Errorf("%w: balance %d, need %d", apperrors.ErrInsufficientFunds, balance, amount)
	}
	balance -= amount
	return balance, tx.PutBalance(ctx, who, balance)
}
