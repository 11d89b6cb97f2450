package model

import "time"

// AuctionStatus 拍賣狀態
type AuctionStatus string

const (
	AuctionStatusActive  AuctionStatus = "active"
	AuctionStatusExpired AuctionStatus = "expired"
	AuctionStatusEnded   AuctionStatus = "ended"
)

// Auction 針對單張票的英式拍賣；HighestBid 起始為起標價，有人出價後即託管中的金額
type Auction struct {
	ID            uint64    `json:"id"`
	EventID       uint64    `json:"event_id"`
	TicketTypeID  uint64    `json:"ticket_type_id"`
	Organizer     Principal `json:"organizer"`
	StartingPrice Amount    `json:"starting_price"`
	HighestBidder Principal `json:"highest_bidder,omitempty"`
	HighestBid    Amount    `json:"highest_bid"`
	EndTime       time.Time `json:"end_time"`
	Active        bool      `json:"active"`
}

func (a *Auction) HasBidder() bool {
	return !a.HighestBidder.IsZero()
}

// StatusAt 依給定時間推導狀態
func (a *Auction) StatusAt(now time.Time) AuctionStatus {
	switch {
	case !a.Active:
		return AuctionStatusEnded
	case !now.Before(a.EndTime):
		return AuctionStatusExpired
	default:
		return AuctionStatusActive
	}
}

type StartAuctionParams struct {
	EventID       uint64
	TicketTypeID  uint64
	StartingPrice Amount
	Duration      time.Duration
}

// Settlement endAuction 的結果；無人出價時 Winner 為空
type Settlement struct {
	AuctionID  uint64    `json:"auction_id"`
	Winner     Principal `json:"winner,omitempty"`
	WinningBid Amount    `json:"winning_bid"`
}
