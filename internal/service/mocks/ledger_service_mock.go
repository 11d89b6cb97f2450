package mocks

import (
	"context"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockLedgerService struct {
	mock.Mock
}

func NewMockLedgerService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockLedgerService {
	m := &MockLedgerService{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

var _ service.LedgerService = (*MockLedgerService)(nil)

func (m *MockLedgerService) CreateEvent(ctx context.Context, caller model.Principal, params model.CreateEventParams) (*model.Event, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockLedgerService) AddTicketType(ctx context.Context, caller model.Principal, eventID uint64, params model.AddTicketTypeParams) (*model.TicketType, error) {
	args := m.Called(ctx, caller, eventID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketType), args.Error(1)
}

func (m *MockLedgerService) UpdateEvent(ctx context.Context, caller model.Principal, eventID uint64, params model.UpdateEventParams) (*model.Event, error) {
	args := m.Called(ctx, caller, eventID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockLedgerService) GetEvent(ctx context.Context, eventID uint64) (*model.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Event), args.Error(1)
}

func (m *MockLedgerService) GetEventCount(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerService) GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (*model.TicketType, error) {
	args := m.Called(ctx, eventID, ticketTypeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TicketType), args.Error(1)
}

func (m *MockLedgerService) GetEventTicketTypes(ctx context.Context, eventID uint64) (uint64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerService) ListTicketTypes(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TicketType), args.Error(1)
}

func (m *MockLedgerService) IsEventOrganizer(ctx context.Context, eventID uint64, who model.Principal) (bool, error) {
	args := m.Called(ctx, eventID, who)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerService) PurchaseTicket(ctx context.Context, caller model.Principal, params model.PurchaseParams) (*model.Purchase, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockLedgerService) TransferTicket(ctx context.Context, caller model.Principal, params model.TransferParams) error {
	args := m.Called(ctx, caller, params)
	return args.Error(0)
}

func (m *MockLedgerService) GetHolding(ctx context.Context, eventID uint64, holder model.Principal) (uint64, error) {
	args := m.Called(ctx, eventID, holder)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockLedgerService) StartAuction(ctx context.Context, caller model.Principal, params model.StartAuctionParams) (*model.Auction, error) {
	args := m.Called(ctx, caller, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Auction), args.Error(1)
}

func (m *MockLedgerService) PlaceBid(ctx context.Context, caller model.Principal, auctionID uint64, value model.Amount) (*model.Auction, error) {
	args := m.Called(ctx, caller, auctionID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Auction), args.Error(1)
}

func (m *MockLedgerService) EndAuction(ctx context.Context, caller model.Principal, auctionID uint64) (*model.Settlement, error) {
	args := m.Called(ctx, caller, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Settlement), args.Error(1)
}

func (m *MockLedgerService) GetAuction(ctx context.Context, auctionID uint64) (*model.Auction, error) {
	args := m.Called(ctx, auctionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Auction), args.Error(1)
}

func (m *MockLedgerService) Deposit(ctx context.Context, caller model.Principal, amount model.Amount) (model.Amount, error) {
	args := m.Called(ctx, caller, amount)
	return args.Get(0).(model.Amount), args.Error(1)
}

func (m *MockLedgerService) Withdraw(ctx context.Context, caller model.Principal, amount model.Amount) (model.Amount, error) {
	args := m.Called(ctx, caller, amount)
	return args.Get(0).(model.Amount), args.Error(1)
}

func (m *MockLedgerService) Balance(ctx context.Context, who model.Principal) (model.Amount, error) {
	args := m.Called(ctx, who)
	return args.Get(0).(model.Amount), args.Error(1)
}

func (m *MockLedgerService) Notifications(ctx context.Context, afterSeq uint64, limit int) ([]model.Notification, error) {
	args := m.Called(ctx, afterSeq, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Notification), args.Error(1)
}
