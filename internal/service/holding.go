package service

import (
	"context"
	"fmt"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	apperrors "event-ticket-ledger/pkg/app_errors"
)

// TransferTicket 轉讓持有的票；持有數以活動為單位，票種僅隨通知帶出
func (s *LedgerServiceImpl) TransferTicket(ctx context.Context, caller model.Principal, params model.TransferParams) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if params.Quantity == 0 {
		return fmt.Errorf("%w: quantity must be positive", apperrors.ErrInvalidInput)
	}
	if params.To.IsZero() {
		return fmt.Errorf("%w: recipient is required", apperrors.ErrInvalidInput)
	}

	return s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := activeEvent(ctx, tx, params.EventID); err != nil {
			return err
		}

		from, err := tx.GetHolding(ctx, params.EventID, caller)
		if err != nil {
			return err
		}
		if from < params.Quantity {
			return fmt.Errorf("%w: holding %d, transferring %d", apperrors.ErrInsufficientBalance, from, params.Quantity)
		}
		if err := tx.PutHolding(ctx, params.EventID, caller, from-params.Quantity); err != nil {
			return err
		}
		// 轉給自己時要讀扣除後的值
		to, err := tx.GetHolding(ctx, params.EventID, params.To)
		if err != nil {
			return err
		}
		if err := tx.PutHolding(ctx, params.EventID, params.To, to+params.Quantity); err != nil {
			return err
		}

		if err := s.transferAsset(ctx, params.EventID, params.TicketTypeID, caller, params.To, params.Quantity); err != nil {
			return err
		}

		return s.emit(ctx, tx, model.Notification{
			Kind:         model.NotificationTicketTransferred,
			EventID:      params.EventID,
			TicketTypeID: params.TicketTypeID,
			Actor:        caller,
			Counterparty: params.To,
			Quantity:     params.Quantity,
		})
	})
}

func (s *LedgerServiceImpl) GetHolding(ctx context.Context, eventID uint64, holder model.Principal) (uint64, error) {
	var qty uint64
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		qty, err = tx.GetHolding(ctx, eventID, holder)
		return err
	})
	return qty, err
}
