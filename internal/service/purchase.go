package service

import (
	"context"
	"fmt"
	"math/bits"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	apperrors "event-ticket-ledger/pkg/app_errors"
)

func (s *LedgerServiceImpl) PurchaseTicket(ctx context.Context, caller model.Principal, params model.PurchaseParams) (*model.Purchase, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var purchase model.Purchase
	err := s.runGuarded(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := activeEvent(ctx, tx, params.EventID)
		if err != nil {
			return err
		}
		tt, err := ticketType(ctx, tx, params.EventID, params.TicketTypeID)
		if err != nil {
			return err
		}
		if params.Quantity == 0 {
			return fmt.Errorf("%w: quantity must be positive", apperrors.ErrInvalidInput)
		}
		if params.Quantity > tt.Available() {
			return fmt.Errorf("%w: %d left, requested %d", apperrors.ErrSoldOut, tt.Available(), params.Quantity)
		}
		total, ok := totalPrice(tt.Price, params.Quantity)
		if !ok || total != params.Value {
			return fmt.Errorf("%w: expected %d x %d, got %d", apperrors.ErrPaymentMismatch, tt.Price, params.Quantity, params.Value)
		}
		if params.Quantity > s.policy.MaxPerPurchase {
			return fmt.Errorf("%w: at most %d tickets per purchase", apperrors.ErrRateLimited, s.policy.MaxPerPurchase)
		}

		now := s.clock.Now()
		last, found, err := tx.GetLastPurchase(ctx, caller)
		if err != nil {
			return err
		}
		// 剛好等於冷卻結束時間即可再次購買
		if found && last.Add(s.policy.PurchaseCooldown).After(now) {
			return fmt.Errorf("%w: cooldown until %s", apperrors.ErrRateLimited, last.Add(s.policy.PurchaseCooldown))
		}

		if _, err := debit(ctx, tx, caller, total); err != nil {
			return err
		}
		if _, err := credit(ctx, tx, event.Organizer, total); err != nil {
			return err
		}

		tt.CurrentSupply += params.Quantity
		event.TicketsSold += params.Quantity
		holding, err := tx.GetHolding(ctx, params.EventID, caller)
		if err != nil {
			return err
		}
		if err := tx.PutTicketType(ctx, tt); err != nil {
			return err
		}
		if err := tx.PutEvent(ctx, event); err != nil {
			return err
		}
		if err := tx.PutHolding(ctx, params.EventID, caller, holding+params.Quantity); err != nil {
			return err
		}
		if err := tx.PutLastPurchase(ctx, caller, now); err != nil {
			return err
		}

		if err := s.mint(ctx, params.EventID, params.TicketTypeID, caller, params.Quantity); err != nil {
			return err
		}

		purchase = model.Purchase{
			EventID:      params.EventID,
			TicketTypeID: params.TicketTypeID,
			Buyer:        caller,
			Quantity:     params.Quantity,
			TotalPrice:   total,
		}
		return s.emit(ctx, tx, model.Notification{
			Kind:         model.NotificationTicketPurchased,
			EventID:      params.EventID,
			TicketTypeID: params.TicketTypeID,
			Actor:        caller,
			Counterparty: event.Organizer,
			Quantity:     params.Quantity,
			Amount:       total,
		})
	})
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}

// totalPrice 溢位時回傳 false
func totalPrice(price model.Amount, quantity uint64) (model.Amount, bool) {
	hi, lo := bits.Mul64(price, quantity)
	return lo, hi == 0
}
