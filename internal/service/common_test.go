package service_test

import (
	"context"
	"testing"
	"time"

	"event-ticket-ledger/internal/clock"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	"event-ticket-ledger/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	organizer model.Principal = "organizer"
	alice     model.Principal = "alice"
	bob       model.Principal = "bob"
	carol     model.Principal = "carol"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *repository.MemoryStore
	clock *clock.Manual
	svc   *service.LedgerServiceImpl
}

func setup(t *testing.T, opts ...service.Option) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clk := clock.NewManual(epoch)
	return &fixture{
		store: store,
		clock: clk,
		svc:   service.NewLedgerService(store, clk, opts...),
	}
}

func (f *fixture) createEvent(t *testing.T, maxTickets uint64) *model.Event {
	t.Helper()
	event, err := f.svc.CreateEvent(context.Background(), organizer, model.CreateEventParams{
		Name:       "Concert",
		Date:       f.clock.Now().Add(24 * time.Hour),
		BasePrice:  10,
		MaxTickets: maxTickets,
	})
	require.NoError(t, err)
	return event
}

func (f *fixture) addTicketType(t *testing.T, eventID uint64, price model.Amount, maxSupply uint64) *model.TicketType {
	t.Helper()
	tt, err := f.svc.AddTicketType(context.Background(), organizer, eventID, model.AddTicketTypeParams{
		Name:      "General",
		Price:     price,
		MaxSupply: maxSupply,
	})
	require.NoError(t, err)
	return tt
}

func (f *fixture) fund(t *testing.T, who model.Principal, amount model.Amount) {
	t.Helper()
	_, err := f.svc.Deposit(context.Background(), who, amount)
	require.NoError(t, err)
}

func (f *fixture) kinds(t *testing.T) []model.NotificationKind {
	t.Helper()
	ns, err := f.svc.Notifications(context.Background(), 0, 0)
	require.NoError(t, err)
	out := make([]model.NotificationKind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

// assertSoldMatchesSupply 活動售出數必須等於所有票種 currentSupply 的總和
func (f *fixture) assertSoldMatchesSupply(t *testing.T, eventID uint64) uint64 {
	t.Helper()
	event, err := f.svc.GetEvent(context.Background(), eventID)
	require.NoError(t, err)
	types, err := f.svc.ListTicketTypes(context.Background(), eventID)
	require.NoError(t, err)

	var supply uint64
	for _, tt := range types {
		supply += tt.CurrentSupply
	}
	assert.Equal(t, supply, event.TicketsSold)
	return event.TicketsSold
}
