package service

import (
	"context"
	"fmt"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	apperrors "event-ticket-ledger/pkg/app_errors"
)

func (s *LedgerServiceImpl) CreateEvent(ctx context.Context, caller model.Principal, params model.CreateEventParams) (*model.Event, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var created model.Event
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		now := s.clock.Now()
		switch {
		case params.Name == "":
			return fmt.Errorf("%w: event name is required", apperrors.ErrInvalidInput)
		case params.MaxTickets == 0:
			return fmt.Errorf("%w: max tickets must be positive", apperrors.ErrInvalidInput)
		case !params.Date.After(now):
			return fmt.Errorf("%w: event date must be in the future", apperrors.ErrInvalidInput)
		}

		id, err := tx.NextEventID(ctx)
		if err != nil {
			return err
		}

		created = model.Event{
			ID:          id,
			Name:        params.Name,
			Description: params.Description,
			Date:        params.Date.UTC(),
			BasePrice:   params.BasePrice,
			MaxTickets:  params.MaxTickets,
			IsActive:    true,
			Organizer:   caller,
			CreatedAt:   now,
		}
		if err := tx.PutEvent(ctx, created); err != nil {
			return err
		}

		return s.emit(ctx, tx, model.Notification{
			Kind:     model.NotificationEventCreated,
			EventID:  id,
			Actor:    caller,
			Quantity: params.MaxTickets,
			Amount:   params.BasePrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *LedgerServiceImpl) AddTicketType(ctx context.Context, caller model.Principal, eventID uint64, params model.AddTicketTypeParams) (*model.TicketType, error) {
	var added model.TicketType
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := activeEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := requireOrganizer(event, caller); err != nil {
			return err
		}
		switch {
		case params.Name == "":
			return fmt.Errorf("%w: ticket type name is required", apperrors.ErrInvalidInput)
		case params.Price == 0:
			return fmt.Errorf("%w: price must be positive", apperrors.ErrInvalidInput)
		case params.MaxSupply == 0:
			return fmt.Errorf("%w: max supply must be positive", apperrors.ErrInvalidInput)
		}

		existing, err := tx.ListTicketTypes(ctx, eventID)
		if err != nil {
			return err
		}
		var allotted uint64
		for _, tt := range existing {
			allotted += tt.MaxSupply
		}
		if params.MaxSupply > event.MaxTickets-allotted {
			return fmt.Errorf("%w: max supply %d, remaining %d of %d",
				apperrors.ErrEventCapacityExceeded, params.MaxSupply, event.MaxTickets-allotted, event.MaxTickets)
		}

		added = model.TicketType{
			EventID:   eventID,
			ID:        event.TicketTypeCount,
			Name:      params.Name,
			Price:     params.Price,
			MaxSupply: params.MaxSupply,
		}
		event.TicketTypeCount++

		if err := tx.PutTicketType(ctx, added); err != nil {
			return err
		}
		if err := tx.PutEvent(ctx, event); err != nil {
			return err
		}

		return s.emit(ctx, tx, model.Notification{
			Kind:         model.NotificationTicketTypeAdded,
			EventID:      eventID,
			TicketTypeID: added.ID,
			Actor:        caller,
			Quantity:     added.MaxSupply,
			Amount:       added.Price,
		})
	})
	if err != nil {
		return nil, err
	}
	return &added, nil
}

func (s *LedgerServiceImpl) UpdateEvent(ctx context.Context, caller model.Principal, eventID uint64, params model.UpdateEventParams) (*model.Event, error) {
	var updated model.Event
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := activeEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if err := requireOrganizer(event, caller); err != nil {
			return err
		}
		switch {
		case params.Name == "":
			return fmt.Errorf("%w: event name is required", apperrors.ErrInvalidInput)
		case !params.Date.After(s.clock.Now()):
			return fmt.Errorf("%w: event date must be in the future", apperrors.ErrInvalidInput)
		}
		if !event.IsEditable() {
			return fmt.Errorf("%w: event %d already has %d tickets sold", apperrors.ErrConflict, eventID, event.TicketsSold)
		}

		event.Name = params.Name
		event.Description = params.Description
		event.Date = params.Date.UTC()
		event.BasePrice = params.BasePrice
		if err := tx.PutEvent(ctx, event); err != nil {
			return err
		}
		updated = event

		return s.emit(ctx, tx, model.Notification{
			Kind:    model.NotificationEventUpdated,
			EventID: eventID,
			Actor:   caller,
			Amount:  params.BasePrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *LedgerServiceImpl) GetEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
	var event model.Event
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		event, err = activeEvent(ctx, tx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *LedgerServiceImpl) GetEventCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		count, err = tx.CountEvents(ctx)
		return err
	})
	return count, err
}

func (s *LedgerServiceImpl) GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (*model.TicketType, error) {
	var tt model.TicketType
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		tt, err = ticketType(ctx, tx, eventID, ticketTypeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tt, nil
}

// GetEventTicketTypes 自 0 號開始往上數，遇到第一個不存在的票種即停止；
// 票種 ID 由活動內的流水號配發，因此結果等於票種總數
func (s *LedgerServiceImpl) GetEventTicketTypes(ctx context.Context, eventID uint64) (uint64, error) {
	var count uint64
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		for {
			_, found, err := tx.GetTicketType(ctx, eventID, count)
			if err != nil {
				return err
			}
			if !found {
				return nil
			}
			count++
		}
	})
	return count, err
}

func (s *LedgerServiceImpl) ListTicketTypes(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
	var out []model.TicketType
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := activeEvent(ctx, tx, eventID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListTicketTypes(ctx, eventID)
		return err
	})
	return out, err
}

func (s *LedgerServiceImpl) IsEventOrganizer(ctx context.Context, eventID uint64, who model.Principal) (bool, error) {
	var ok bool
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, found, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		ok = found && !who.IsZero() && event.Organizer == who
		return nil
	})
	return ok, err
}
