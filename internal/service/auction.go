package service

import (
	"context"
	"fmt"

	"event-ticket-ledger/internal/model"
	"event-ticket-ledger/internal/repository"
	apperrors "event-ticket-ledger/pkg/app_errors"

	"go.uber.org/zap"
)

// StartAuction 由主辦方開啟一張票的拍賣，並從票種保留一張
func (s *LedgerServiceImpl) StartAuction(ctx context.Context, caller model.Principal, params model.StartAuctionParams) (*model.Auction, error) {
	var auction model.Auction
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		event, err := activeEvent(ctx, tx, params.EventID)
		if err != nil {
			return err
		}
		if err := requireOrganizer(event, caller); err != nil {
			return err
		}
		if params.Duration <= 0 {
			return fmt.Errorf("%w: duration must be positive", apperrors.ErrInvalidInput)
		}
		tt, err := ticketType(ctx, tx, params.EventID, params.TicketTypeID)
		if err != nil {
			return err
		}
		if tt.Available() == 0 {
			return fmt.Errorf("%w: no unit left to auction", apperrors.ErrSoldOut)
		}

		id, err := tx.NextAuctionID(ctx)
		if err != nil {
			return err
		}
		tt.Reserved++
		if err := tx.PutTicketType(ctx, tt); err != nil {
			return err
		}

		auction = model.Auction{
			ID:            id,
			EventID:       params.EventID,
			TicketTypeID:  params.TicketTypeID,
			Organizer:     caller,
			StartingPrice: params.StartingPrice,
			HighestBid:    params.StartingPrice,
			EndTime:       s.clock.Now().Add(params.Duration),
			Active:        true,
		}
		if err := tx.PutAuction(ctx, auction); err != nil {
			return err
		}

		return s.emit(ctx, tx, model.Notification{
			Kind:         model.NotificationAuctionStarted,
			EventID:      params.EventID,
			TicketTypeID: params.TicketTypeID,
			AuctionID:    id,
			Actor:        caller,
			Amount:       params.StartingPrice,
		})
	})
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// PlaceBid 出價必須嚴格高於目前最高價；前一位最高出價者的託管金額退回其餘額
func (s *LedgerServiceImpl) PlaceBid(ctx context.Context, caller model.Principal, auctionID uint64, value model.Amount) (*model.Auction, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	var auction model.Auction
	err := s.runGuarded(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		if auction, err = loadAuction(ctx, tx, auctionID); err != nil {
			return err
		}
		if !auction.Active {
			return fmt.Errorf("%w: auction %d", apperrors.ErrClosed, auctionID)
		}
		if !s.clock.Now().Before(auction.EndTime) {
			return fmt.Errorf("%w: auction %d ended at %s", apperrors.ErrExpired, auctionID, auction.EndTime)
		}
		if value <= auction.HighestBid {
			return fmt.Errorf("%w: highest bid is %d", apperrors.ErrBidTooLow, auction.HighestBid)
		}

		if auction.HasBidder() {
			if _, err := credit(ctx, tx, auction.HighestBidder, auction.HighestBid); err != nil {
				return err
			}
			if err := s.emit(ctx, tx, model.Notification{
				Kind:         model.NotificationBidRefunded,
				EventID:      auction.EventID,
				TicketTypeID: auction.TicketTypeID,
				AuctionID:    auctionID,
				Actor:        auction.HighestBidder,
				Amount:       auction.HighestBid,
			}); err != nil {
				return err
			}
		}
		if _, err := debit(ctx, tx, caller, value); err != nil {
			return err
		}

		auction.HighestBidder = caller
		auction.HighestBid = value
		if err := tx.PutAuction(ctx, auction); err != nil {
			return err
		}

		return s.emit(ctx, tx, model.Notification{
			Kind:         model.NotificationBidPlaced,
			EventID:      auction.EventID,
			TicketTypeID: auction.TicketTypeID,
			AuctionID:    auctionID,
			Actor:        caller,
			Amount:       value,
		})
	})
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

// EndAuction 任何人皆可在結束時間後結算；得標款撥入主辦方餘額，保留的票轉給得標者
func (s *LedgerServiceImpl) EndAuction(ctx context.Context, caller model.Principal, auctionID uint64) (*model.Settlement, error) {
	var settlement model.Settlement
	err := s.runGuarded(ctx, func(ctx context.Context, tx repository.Tx) error {
		auction, err := loadAuction(ctx, tx, auctionID)
		if err != nil {
			return err
		}
		if !auction.Active {
			return fmt.Errorf("%w: auction %d already ended", apperrors.ErrClosed, auctionID)
		}
		if s.clock.Now().Before(auction.EndTime) {
			return fmt.Errorf("%w: auction %d ends at %s", apperrors.ErrNotYetEnded, auctionID, auction.EndTime)
		}

		auction.Active = false
		if err := tx.PutAuction(ctx, auction); err != nil {
			return err
		}
		settlement = model.Settlement{AuctionID: auctionID}

		tt, found, err := tx.GetTicketType(ctx, auction.EventID, auction.TicketTypeID)
		if err != nil {
			return err
		}
		if found && tt.Reserved > 0 {
			tt.Reserved--
		}

		if !auction.HasBidder() {
			// 流標：釋出保留的票
			if found {
				return tx.PutTicketType(ctx, tt)
			}
			return nil
		}

		if _, err := credit(ctx, tx, auction.Organizer, auction.HighestBid); err != nil {
			return err
		}
		if found {
			tt.CurrentSupply++
			if err := tx.PutTicketType(ctx, tt); err != nil {
				return err
			}
		}
		event, found, err := tx.GetEvent(ctx, auction.EventID)
		if err != nil {
			return err
		}
		if found {
			event.TicketsSold++
			if err := tx.PutEvent(ctx, event); err != nil {
				return err
			}
		}
		holding, err := tx.GetHolding(ctx, auction.EventID, auction.HighestBidder)
		if err != nil {
			return err
		}
		if err := tx.PutHolding(ctx, auction.EventID, auction.HighestBidder, holding+1); err != nil {
			return err
		}
		if err := s.transferAsset(ctx, auction.EventID, auction.TicketTypeID, auction.Organizer, auction.HighestBidder, 1); err != nil {
			return err
		}

		settlement.Winner = auction.HighestBidder
		settlement.WinningBid = auction.HighestBid
		return s.emit(ctx, tx, model.Notification{
			Kind:         model.NotificationAuctionEnded,
			EventID:      auction.EventID,
			TicketTypeID: auction.TicketTypeID,
			AuctionID:    auctionID,
			Actor:        auction.HighestBidder,
			Counterparty: auction.Organizer,
			Quantity:     1,
			Amount:       auction.HighestBid,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("auction settled",
		zap.Uint64("auction_id", auctionID),
		zap.String("ended_by", string(caller)),
		zap.String("winner", string(settlement.Winner)),
		zap.Uint64("winning_bid", settlement.WinningBid))
	return &settlement, nil
}

func (s *LedgerServiceImpl) GetAuction(ctx context.Context, auctionID uint64) (*model.Auction, error) {
	var auction model.Auction
	err := s.run(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		auction, err = loadAuction(ctx, tx, auctionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &auction, nil
}

func loadAuction(ctx context.Context, tx repository.Tx, auctionID uint64) (model.Auction, error) {
	auction, found, err := tx.GetAuction(ctx, auctionID)
	if err != nil {
		return model.Auction{}, err
	}
	if !found {
		return model.Auction{}, fmt.Errorf("%w: auction %d", apperrors.ErrNotFound, auctionID)
	}
	return auction, nil
}
