package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticket-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore 以 PostgreSQL 保存帳本狀態；每筆交易使用 SERIALIZABLE 隔離等級
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &postgresTx{tx: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) Notifications(ctx context.Context, afterSeq uint64, limit int) ([]model.Notification, error) {
	query := `
		SELECT seq, id, kind, occurred_at, event_id, ticket_type_id, auction_id,
			actor, counterparty, quantity, amount
		FROM notifications
		WHERE seq > $1
		ORDER BY seq
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, afterSeq, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

func (s *PostgresStore) Unpublished(ctx context.Context, limit int) ([]model.Notification, error) {
	query := `
		SELECT seq, id, kind, occurred_at, event_id, ticket_type_id, auction_id,
			actor, counterparty, quantity, amount
		FROM notifications
		WHERE published_at IS NULL
		ORDER BY seq
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limitOrAll(limit))
	if err != nil {
		return nil, err
	}
	return scanNotifications(rows)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, seqs []uint64) error {
	if len(seqs) == 0 {
		return nil
	}
	query := `
		UPDATE notifications
		SET published_at = $1
		WHERE seq = ANY($2) AND published_at IS NULL
	`
	ids := make([]int64, len(seqs))
	for i, seq := range seqs {
		ids[i] = int64(seq)
	}
	_, err := s.pool.Exec(ctx, query, time.Now().UTC(), ids)
	return err
}

func limitOrAll(limit int) int {
	if limit <= 0 {
		return 1 << 30
	}
	return limit
}

func scanNotifications(rows pgx.Rows) ([]model.Notification, error) {
	defer rows.Close()

	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		var id string
		err := rows.Scan(
			&n.Seq,
			&id,
			&n.Kind,
			&n.OccurredAt,
			&n.EventID,
			&n.TicketTypeID,
			&n.AuctionID,
			&n.Actor,
			&n.Counterparty,
			&n.Quantity,
			&n.Amount,
		)
		if err != nil {
			return nil, err
		}
		if n.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("notification %d: %w", n.Seq, err)
		}
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) nextCounter(ctx context.Context, name string) (uint64, error) {
	query := `UPDATE ledger_counters SET value = value + 1 WHERE name = $1 RETURNING value`
	var value uint64
	if err := t.tx.QueryRow(ctx, query, name).Scan(&value); err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return value, nil
}

func (t *postgresTx) NextEventID(ctx context.Context) (uint64, error) {
	return t.nextCounter(ctx, "event")
}

func (t *postgresTx) CountEvents(ctx context.Context) (uint64, error) {
	var value uint64
	err := t.tx.QueryRow(ctx, `SELECT value FROM ledger_counters WHERE name = 'event'`).Scan(&value)
	return value, err
}

func (t *postgresTx) GetEvent(ctx context.Context, id uint64) (model.Event, bool, error) {
	query := `
		SELECT id, name, description, date, base_price, max_tickets, tickets_sold,
			is_active, organizer, ticket_type_count, created_at
		FROM events
		WHERE id = $1
		FOR UPDATE
	`

	var event model.Event
	err := t.tx.QueryRow(ctx, query, id).Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.Date,
		&event.BasePrice,
		&event.MaxTickets,
		&event.TicketsSold,
		&event.IsActive,
		&event.Organizer,
		&event.TicketTypeCount,
		&event.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, false, nil
		}
		return model.Event{}, false, err
	}
	return event, true, nil
}

func (t *postgresTx) PutEvent(ctx context.Context, event model.Event) error {
	query := `
		INSERT INTO events (
			id, name, description, date, base_price, max_tickets, tickets_sold,
			is_active, organizer, ticket_type_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			date = EXCLUDED.date,
			base_price = EXCLUDED.base_price,
			tickets_sold = EXCLUDED.tickets_sold,
			is_active = EXCLUDED.is_active,
			ticket_type_count = EXCLUDED.ticket_type_count
	`
	_, err := t.tx.Exec(ctx, query,
		event.ID, event.Name, event.Description, event.Date, event.BasePrice,
		event.MaxTickets, event.TicketsSold, event.IsActive, event.Organizer,
		event.TicketTypeCount, event.CreatedAt,
	)
	return err
}

func (t *postgresTx) GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (model.TicketType, bool, error) {
	query := `
		SELECT event_id, id, name, price, max_supply, current_supply, reserved
		FROM ticket_types
		WHERE event_id = $1 AND id = $2
		FOR UPDATE
	`

	var tt model.TicketType
	err := t.tx.QueryRow(ctx, query, eventID, ticketTypeID).Scan(
		&tt.EventID,
		&tt.ID,
		&tt.Name,
		&tt.Price,
		&tt.MaxSupply,
		&tt.CurrentSupply,
		&tt.Reserved,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TicketType{}, false, nil
		}
		return model.TicketType{}, false, err
	}
	return tt, true, nil
}

func (t *postgresTx) PutTicketType(ctx context.Context, tt model.TicketType) error {
	query := `
		INSERT INTO ticket_types (event_id, id, name, price, max_supply, current_supply, reserved)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id, id) DO UPDATE SET
			current_supply = EXCLUDED.current_supply,
			reserved = EXCLUDED.reserved
	`
	_, err := t.tx.Exec(ctx, query,
		tt.EventID, tt.ID, tt.Name, tt.Price, tt.MaxSupply, tt.CurrentSupply, tt.Reserved,
	)
	return err
}

func (t *postgresTx) ListTicketTypes(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
	query := `
		SELECT event_id, id, name, price, max_supply, current_supply, reserved
		FROM ticket_types
		WHERE event_id = $1
		ORDER BY id
	`
	rows, err := t.tx.Query(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ticketTypes := make([]model.TicketType, 0)
	for rows.Next() {
		var tt model.TicketType
		err := rows.Scan(
			&tt.EventID,
			&tt.ID,
			&tt.Name,
			&tt.Price,
			&tt.MaxSupply,
			&tt.CurrentSupply,
			&tt.Reserved,
		)
		if err != nil {
			return nil, err
		}
		ticketTypes = append(ticketTypes, tt)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ticketTypes, nil
}

func (t *postgresTx) GetHolding(ctx context.Context, eventID uint64, holder model.Principal) (uint64, error) {
	query := `SELECT quantity FROM holdings WHERE event_id = $1 AND holder = $2 FOR UPDATE`
	var qty uint64
	err := t.tx.QueryRow(ctx, query, eventID, holder).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return qty, err
}

func (t *postgresTx) PutHolding(ctx context.Context, eventID uint64, holder model.Principal, quantity uint64) error {
	query := `
		INSERT INTO holdings (event_id, holder, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, holder) DO UPDATE SET quantity = EXCLUDED.quantity
	`
	_, err := t.tx.Exec(ctx, query, eventID, holder, quantity)
	return err
}

func (t *postgresTx) NextAuctionID(ctx context.Context) (uint64, error) {
	return t.nextCounter(ctx, "auction")
}

func (t *postgresTx) GetAuction(ctx context.Context, id uint64) (model.Auction, bool, error) {
	query := `
		SELECT id, event_id, ticket_type_id, organizer, starting_price,
			highest_bidder, highest_bid, end_time, active
		FROM auctions
		WHERE id = $1
		FOR UPDATE
	`

	var a model.Auction
	err := t.tx.QueryRow(ctx, query, id).Scan(
		&a.ID,
		&a.EventID,
		&a.TicketTypeID,
		&a.Organizer,
		&a.StartingPrice,
		&a.HighestBidder,
		&a.HighestBid,
		&a.EndTime,
		&a.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Auction{}, false, nil
		}
		return model.Auction{}, false, err
	}
	return a, true, nil
}

func (t *postgresTx) PutAuction(ctx context.Context, a model.Auction) error {
	query := `
		INSERT INTO auctions (
			id, event_id, ticket_type_id, organizer, starting_price,
			highest_bidder, highest_bid, end_time, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			highest_bidder = EXCLUDED.highest_bidder,
			highest_bid = EXCLUDED.highest_bid,
			active = EXCLUDED.active
	`
	_, err := t.tx.Exec(ctx, query,
		a.ID, a.EventID, a.TicketTypeID, a.Organizer, a.StartingPrice,
		a.HighestBidder, a.HighestBid, a.EndTime, a.Active,
	)
	return err
}

func (t *postgresTx) GetLastPurchase(ctx context.Context, who model.Principal) (time.Time, bool, error) {
	query := `SELECT last_purchase_at FROM purchase_cooldowns WHERE principal = $1 FOR UPDATE`
	var at time.Time
	err := t.tx.QueryRow(ctx, query, who).Scan(&at)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, err
	}
	return at.UTC(), true, nil
}

func (t *postgresTx) PutLastPurchase(ctx context.Context, who model.Principal, at time.Time) error {
	query := `
		INSERT INTO purchase_cooldowns (principal, last_purchase_at)
		VALUES ($1, $2)
		ON CONFLICT (principal) DO UPDATE SET last_purchase_at = EXCLUDED.last_purchase_at
	`
	_, err := t.tx.Exec(ctx, query, who, at)
	return err
}

func (t *postgresTx) GetBalance(ctx context.Context, who model.Principal) (model.Amount, error) {
	query := `SELECT amount FROM balances WHERE principal = $1 FOR UPDATE`
	var amount model.Amount
	err := t.tx.QueryRow(ctx, query, who).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return amount, err
}

func (t *postgresTx) PutBalance(ctx context.Context, who model.Principal, amount model.Amount) error {
	query := `
		INSERT INTO balances (principal, amount)
		VALUES ($1, $2)
		ON CONFLICT (principal) DO UPDATE SET amount = EXCLUDED.amount
	`
	_, err := t.tx.Exec(ctx, query, who, amount)
	return err
}

// Append 通知序號取自計數列，列鎖讓序號順序與提交順序一致
func (t *postgresTx) Append(ctx context.Context, n model.Notification) error {
	seq, err := t.nextCounter(ctx, "notification")
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (
			seq, id, kind, occurred_at, event_id, ticket_type_id, auction_id,
			actor, counterparty, quantity, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = t.tx.Exec(ctx, query,
		seq, n.ID.String(), n.Kind, n.OccurredAt, n.EventID, n.TicketTypeID, n.AuctionID,
		n.Actor, n.Counterparty, n.Quantity, n.Amount,
	)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}
