package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotificationEventCreated      NotificationKind = "EventCreated"
	NotificationEventUpdated      NotificationKind = "EventUpdated"
	NotificationTicketTypeAdded   NotificationKind = "TicketTypeAdded"
	NotificationTicketPurchased   NotificationKind = "TicketPurchased"
	NotificationTicketTransferred NotificationKind = "TicketTransferred"
	NotificationAuctionStarted    NotificationKind = "AuctionStarted"
	NotificationBidPlaced         NotificationKind = "BidPlaced"
	NotificationBidRefunded       NotificationKind = "BidRefunded"
	NotificationAuctionEnded      NotificationKind = "AuctionEnded"
	NotificationFundsDeposited    NotificationKind = "FundsDeposited"
	NotificationFundsWithdrawn    NotificationKind = "FundsWithdrawn"
)

// Notification 帳本對外的通知；Seq 由儲存層在交易提交時依序配發
type Notification struct {
	Seq          uint64           `json:"seq"`
	ID           uuid.UUID        `json:"id"`
	Kind         NotificationKind `json:"kind"`
	OccurredAt   time.Time        `json:"occurred_at"`
	EventID      uint64           `json:"event_id"`
	TicketTypeID uint64           `json:"ticket_type_id,omitempty"`
	AuctionID    uint64           `json:"auction_id,omitempty"`
	Actor        Principal        `json:"actor,omitempty"`
	Counterparty Principal        `json:"counterparty,omitempty"`
	Quantity     uint64           `json:"quantity,omitempty"`
	Amount       Amount           `json:"amount,omitempty"`
}
