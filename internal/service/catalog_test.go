package service_test

import (
	"context"
	"testing"
	"time"

	"event-ticket-ledger/internal/model"
	apperrors "event-ticket-ledger/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_CreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := setup(t)

		first := f.createEvent(t, 100)
		second := f.createEvent(t, 10)

		assert.Equal(t, uint64(1), first.ID)
		assert.Equal(t, uint64(2), second.ID)
		assert.Equal(t, organizer, first.Organizer)
		assert.True(t, first.IsActive)
		assert.Zero(t, first.TicketsSold)

		count, err := f.svc.GetEventCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), count)
		assert.Equal(t, []model.NotificationKind{model.NotificationEventCreated, model.NotificationEventCreated}, f.kinds(t))
	})

	t.Run("Failed - InvalidInput", func(t *testing.T) {
		f := setup(t)
		now := f.clock.Now()

		cases := map[string]model.CreateEventParams{
			"date now":      {Name: "x", Date: now, MaxTickets: 1},
			"date past":     {Name: "x", Date: now.Add(-time.Second), MaxTickets: 1},
			"zero capacity": {Name: "x", Date: now.Add(time.Hour)},
			"empty name":    {Date: now.Add(time.Hour), MaxTickets: 1},
		}
		for name, params := range cases {
			_, err := f.svc.CreateEvent(ctx, organizer, params)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput, name)
		}

		count, err := f.svc.GetEventCount(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		assert.Empty(t, f.kinds(t))
	})

	t.Run("Failed - Unauthenticated", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.CreateEvent(ctx, "", model.CreateEventParams{Name: "x", Date: f.clock.Now().Add(time.Hour), MaxTickets: 1})
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	})
}

func TestLedgerService_AddTicketType(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - ids are contiguous per event", func(t *testing.T) {
		f := setup(t)
		e1 := f.createEvent(t, 100)
		e2 := f.createEvent(t, 100)

		a := f.addTicketType(t, e1.ID, 10, 10)
		b := f.addTicketType(t, e1.ID, 20, 10)
		c := f.addTicketType(t, e2.ID, 30, 10)

		assert.Equal(t, uint64(0), a.ID)
		assert.Equal(t, uint64(1), b.ID)
		assert.Equal(t, uint64(0), c.ID)

		n, err := f.svc.GetEventTicketTypes(ctx, e1.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), n)

		list, err := f.svc.ListTicketTypes(ctx, e1.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, model.Amount(20), list[1].Price)
	})

	t.Run("Failed - NotFound", func(t *testing.T) {
		f := setup(t)
		_, err := f.svc.AddTicketType(ctx, organizer, 42, model.AddTicketTypeParams{Name: "x", Price: 1, MaxSupply: 1})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("Failed - Unauthorized", func(t *testing.T) {
		f := setup(t)
		e := f.createEvent(t, 100)
		_, err := f.svc.AddTicketType(ctx, alice, e.ID, model.AddTicketTypeParams{Name: "x", Price: 1, MaxSupply: 1})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Failed - InvalidInput", func(t *testing.T) {
		f := setup(t)
		e := f.createEvent(t, 100)
		f.addTicketType(t, e.ID, 10, 60)

		cases := map[string]model.AddTicketTypeParams{
			"empty name":    {Price: 1, MaxSupply: 1},
			"zero price":    {Name: "x", MaxSupply: 1},
			"zero supply":   {Name: "x", Price: 1},
			"over capacity": {Name: "x", Price: 1, MaxSupply: 41},
		}
		for name, params := range cases {
			_, err := f.svc.AddTicketType(ctx, organizer, e.ID, params)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput, name)
			if name == "over capacity" {
				assert.ErrorIs(t, err, apperrors.ErrEventCapacityExceeded)
				assert.Equal(t, "event_capacity_exceeded", apperrors.Code(err))
			} else {
				assert.NotErrorIs(t, err, apperrors.ErrEventCapacityExceeded, name)
				assert.Equal(t, "invalid_input", apperrors.Code(err), name)
			}
		}

		// 剛好用完剩餘容量可以
		_, err := f.svc.AddTicketType(ctx, organizer, e.ID, model.AddTicketTypeParams{Name: "y", Price: 1, MaxSupply: 40})
		require.NoError(t, err)

		n, err := f.svc.GetEventTicketTypes(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), n)
	})
}

func TestLedgerService_UpdateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := setup(t)
		e := f.createEvent(t, 100)
		date := f.clock.Now().Add(48 * time.Hour)

		updated, err := f.svc.UpdateEvent(ctx, organizer, e.ID, model.UpdateEventParams{
			Name: "Renamed", Description: "d", Date: date, BasePrice: 99,
		})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, model.Amount(99), updated.BasePrice)
		assert.Equal(t, uint64(100), updated.MaxTickets)

		got, err := f.svc.GetEvent(ctx, e.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Name)
		assert.True(t, got.Date.Equal(date))
	})

	t.Run("Failed - Unauthorized", func(t *testing.T) {
		f := setup(t)
		e := f.createEvent(t, 100)
		_, err := f.svc.UpdateEvent(ctx, alice, e.ID, model.UpdateEventParams{Name: "x", Date: f.clock.Now().Add(time.Hour)})
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("Failed - InvalidInput", func(t *testing.T) {
		f := setup(t)
		e := f.createEvent(t, 100)
		_, err := f.svc.UpdateEvent(ctx, organizer, e.ID, model.UpdateEventParams{Name: "x", Date: f.clock.Now()})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Failed - Conflict after a sale", func(t *testing.T) {
		f := setup(t)
		e := f.createEvent(t, 100)
		tt := f.addTicketType(t, e.ID, 10, 50)
		f.fund(t, alice, 10)
		_, err := f.svc.PurchaseTicket(ctx, alice, model.PurchaseParams{EventID: e.ID, TicketTypeID: tt.ID, Quantity: 1, Value: 10})
		require.NoError(t, err)

		_, err = f.svc.UpdateEvent(ctx, organizer, e.ID, model.UpdateEventParams{Name: "x", Date: f.clock.Now().Add(time.Hour)})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestLedgerService_Reads(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	e := f.createEvent(t, 100)

	_, err := f.svc.GetEvent(ctx, 99)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.GetTicketType(ctx, e.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	n, err := f.svc.GetEventTicketTypes(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := f.svc.IsEventOrganizer(ctx, e.ID, organizer)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.IsEventOrganizer(ctx, e.ID, alice)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.IsEventOrganizer(ctx, 99, organizer)
	require.NoError(t, err)
	assert.False(t, ok)
}
