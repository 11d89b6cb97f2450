package service

import (
	"context"
	"fmt"
	"time"

	"event-ticket-ledger/internal/clock"
	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	apperrors "event-ticket-ledger/pkg/app_errors"
	"event-ticket-ledger/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type LedgerService interface {
	// 活動目錄
	CreateEvent(ctx context.Context, caller model.Principal, params model.CreateEventParams) (*model.Event, error)
	AddTicketType(ctx context.Context, caller model.Principal, eventID uint64, params model.AddTicketTypeParams) (*model.TicketType, error)
	UpdateEvent(ctx context.Context, caller model.Principal, eventID uint64, params model.UpdateEventParams) (*model.Event, error)
	GetEvent(ctx context.Context, eventID uint64) (*model.Event, error)
	GetEventCount(ctx context.Context) (uint64, error)
	GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (*model.TicketType, error)
	GetEventTicketTypes(ctx context.Context, eventID uint64) (uint64, error)
	ListTicketTypes(ctx context.Context, eventID uint64) ([]model.TicketType, error)
	IsEventOrganizer(ctx context.Context, eventID uint64, who model.Principal) (bool, error)

	// 購票與持有
	PurchaseTicket(ctx context.Context, caller model.Principal, params model.PurchaseParams) (*model.Purchase, error)
	TransferTicket(ctx context.Context, caller model.Principal, params model.TransferParams) error
	GetHolding(ctx context.Context, eventID uint64, holder model.Principal) (uint64, error)

	// 拍賣
	StartAuction(ctx context.Context, caller model.Principal, params model.StartAuctionParams) (*model.Auction, error)
	PlaceBid(ctx context.Context, caller model.Principal, auctionID uint64, value model.Amount) (*model.Auction, error)
	EndAuction(ctx context.Context, caller model.Principal, auctionID uint64) (*model.Settlement, error)
	GetAuction(ctx context.Context, auctionID uint64) (*model.Auction, error)

	// 資金
	Deposit(ctx context.Context, caller model.Principal, amount model.Amount) (model.Amount, error)
	Withdraw(ctx context.Context, caller model.Principal, amount model.Amount) (model.Amount, error)
	Balance(ctx context.Context, who model.Principal) (model.Amount, error)

	Notifications(ctx context.Context, afterSeq uint64, limit int) ([]model.Notification, error)
}

// Policy 防刷策略
type Policy struct {
	PurchaseCooldown time.Duration
	MaxPerPurchase   uint64
}

func DefaultPolicy() Policy {
	return Policy{
		PurchaseCooldown: time.Minute,
		MaxPerPurchase:   5,
	}
}

// PayoutGateway 把帳本內的餘額實際匯出；失敗時整筆提領回滾
type PayoutGateway interface {
	Payout(ctx context.Context, to model.Principal, amount model.Amount) error
}

// AssetRegistry 外部的票券資產登錄（NFT 等）。帳本的持有紀錄是權威資料，
// 這裡只在同一筆交易內同步通知外部；回傳錯誤會讓整筆操作回滾
type AssetRegistry interface {
	Mint(ctx context.Context, eventID, ticketTypeID uint64, to model.Principal, quantity uint64) error
	Transfer(ctx context.Context, eventID, ticketTypeID uint64, from, to model.Principal, quantity uint64) error
}

type nopPayoutGateway struct{}

func (nopPayoutGateway) Payout(ctx context.Context, to model.Principal, amount model.Amount) error {
	return nil
}

type nopAssetRegistry struct{}

func (nopAssetRegistry) Mint(ctx context.Context, eventID, ticketTypeID uint64, to model.Principal, quantity uint64) error {
	return nil
}

func (nopAssetRegistry) Transfer(ctx context.Context, eventID, ticketTypeID uint64, from, to model.Principal, quantity uint64) error {
	return nil
}

type LedgerServiceImpl struct {
	store    repository.Store
	clock    clock.Clock
	policy   Policy
	payouts  PayoutGateway
	registry AssetRegistry
	guard    *guard
	log      *zap.Logger
}

type Option func(*LedgerServiceImpl)

func WithPolicy(p Policy) Option {
	return func(s *LedgerServiceImpl) {
		if p.PurchaseCooldown >= 0 {
			s.policy.PurchaseCooldown = p.PurchaseCooldown
		}
		if p.MaxPerPurchase > 0 {
			s.policy.MaxPerPurchase = p.MaxPerPurchase
		}
	}
}

func WithPayoutGateway(g PayoutGateway) Option {
	return func(s *LedgerServiceImpl) {
		if g != nil {
			s.payouts = g
		}
	}
}

func WithAssetRegistry(r AssetRegistry) Option {
	return func(s *LedgerServiceImpl) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithCallbackWait 外部協作者執行期間新進呼叫的最長等待時間，逾時視為重入
func WithCallbackWait(d time.Duration) Option {
	return func(s *LedgerServiceImpl) {
		if d > 0 {
			s.guard.wait = d
		}
	}
}

func NewLedgerService(store repository.Store, clk clock.Clock, opts ...Option) *LedgerServiceImpl {
	s := &LedgerServiceImpl{
		guard:    newGuard(DefaultCallbackWait),
		store:    store,
		clock:    clk,
		policy:   DefaultPolicy(),
		payouts:  nopPayoutGateway{},
		registry: nopAssetRegistry{},
		log:      logger.WithComponent("ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ LedgerService = (*LedgerServiceImpl)(nil)

// run 在單一交易內執行 fn；重入的呼叫一律拒絕
func (s *LedgerServiceImpl) run(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	marked, err := s.guard.admit(ctx)
	if err != nil {
		return err
	}
	return s.store.WithTx(marked, fn)
}

// runGuarded 用於會移動資金的操作：先取得不可重入鎖再開交易
func (s *LedgerServiceImpl) runGuarded(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	guarded, release, err := s.guard.enter(ctx)
	if err != nil {
		return err
	}
	defer release()
	return s.store.WithTx(guarded, fn)
}

func (s *LedgerServiceImpl) payout(ctx context.Context, to model.Principal, amount model.Amount) error {
	return s.guard.callOut(func() error {
		return s.payouts.Payout(ctx, to, amount)
	})
}

func (s *LedgerServiceImpl) mint(ctx context.Context, eventID, ticketTypeID uint64, to model.Principal, quantity uint64) error {
	return s.guard.callOut(func() error {
		return s.registry.Mint(ctx, eventID, ticketTypeID, to, quantity)
	})
}

func (s *LedgerServiceImpl) transferAsset(ctx context.Context, eventID, ticketTypeID uint64, from, to model.Principal, quantity uint64) error {
	return s.guard.callOut(func() error {
		return s.registry.Transfer(ctx, eventID, ticketTypeID, from, to, quantity)
	})
}

func (s *LedgerServiceImpl) emit(ctx context.Context, tx repository.Tx, n model.Notification) error {
	n.ID = uuid.New()
	n.OccurredAt = s.clock.Now()
	return tx.Append(ctx, n)
}

// activeEvent 讀取存在且有效的活動
func activeEvent(ctx context.Context, tx repository.Tx, eventID uint64) (model.Event, error) {
	event, found, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		return model.Event{}, err
	}
	if !found || !event.IsActive {
		return model.Event{}, fmt.Errorf("%w: event %d", apperrors.ErrNotFound, eventID)
	}
	return event, nil
}

func ticketType(ctx context.Context, tx repository.Tx, eventID, ticketTypeID uint64) (model.TicketType, error) {
	tt, found, err := tx.GetTicketType(ctx, eventID, ticketTypeID)
	if err != nil {
		return model.TicketType{}, err
	}
	if !found {
		return model.TicketType{}, fmt.Errorf("%w: ticket type %d of event %d", apperrors.ErrNotFound, ticketTypeID, eventID)
	}
	return tt, nil
}

func requireOrganizer(event model.Event, caller model.Principal) error {
	if caller.IsZero() || event.Organizer != caller {
		return fmt.Errorf("%w: event %d", apperrors.ErrUnauthorized, event.ID)
	}
	return nil
}

func requireCaller(caller model.Principal) error {
	if caller.IsZero() {
		return apperrors.ErrUnauthenticated
	}
	return nil
}
