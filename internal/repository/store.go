package repository

import (
	"context"
	"time"

	"event-ticket-ledger/internal/model"
)

// Store 帳本狀態的持久層。所有變更都必須在 WithTx 內完成：
// fn 回傳錯誤時整筆交易（含通知）回滾，不留下任何部分寫入
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Notifications 依序回傳 seq 大於 afterSeq 的通知
	Notifications(ctx context.Context, afterSeq uint64, limit int) ([]model.Notification, error)
	// Unpublished 回傳尚未轉送到外部佇列的通知（outbox）
	Unpublished(ctx context.Context, limit int) ([]model.Notification, error)
	MarkPublished(ctx context.Context, seqs []uint64) error
}

// Tx 單筆交易內可見的狀態操作；Get 系列以 found 明確表示資料是否存在
type Tx interface {
	NextEventID(ctx context.Context) (uint64, error)
	CountEvents(ctx context.Context) (uint64, error)
	GetEvent(ctx context.Context, id uint64) (model.Event, bool, error)
	PutEvent(ctx context.Context, event model.Event) error

	GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (model.TicketType, bool, error)
	PutTicketType(ctx context.Context, ticketType model.TicketType) error
	ListTicketTypes(ctx context.Context, eventID uint64) ([]model.TicketType, error)

	GetHolding(ctx context.Context, eventID uint64, holder model.Principal) (uint64, error)
	PutHolding(ctx context.Context, eventID uint64, holder model.Principal, quantity uint64) error

	NextAuctionID(ctx context.Context) (uint64, error)
	GetAuction(ctx context.Context, id uint64) (model.Auction, bool, error)
	PutAuction(ctx context.Context, auction model.Auction) error

	GetLastPurchase(ctx context.Context, who model.Principal) (time.Time, bool, error)
	PutLastPurchase(ctx context.Context, who model.Principal, at time.Time) error

	GetBalance(ctx context.Context, who model.Principal) (model.Amount, error)
	PutBalance(ctx context.Context, who model.Principal, amount model.Amount) error

	Append(ctx context.Context, n model.Notification) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
