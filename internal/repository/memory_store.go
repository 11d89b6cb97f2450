package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"event-ticket-ledger/internal/model"
)

type ticketTypeKey struct {
	eventID      uint64
	ticketTypeID uint64
}

type holdingKey struct {
	eventID uint64
	holder  model.Principal
}

type memoryState struct {
	nextEventID   uint64
	nextAuctionID uint64
	events        map[uint64]model.Event
	ticketTypes   map[ticketTypeKey]model.TicketType
	holdings      map[holdingKey]uint64
	auctions      map[uint64]model.Auction
	lastPurchase  map[model.Principal]time.Time
	balances      map[model.Principal]model.Amount
	log           []model.Notification
	published     map[uint64]bool
}

// MemoryStore 以行程內記憶體保存帳本狀態，一次只允許一筆交易
type MemoryStore struct {
	mu    sync.Mutex
	state *memoryState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memoryState{
			events:       make(map[uint64]model.Event),
			ticketTypes:  make(map[ticketTypeKey]model.TicketType),
			holdings:     make(map[holdingKey]uint64),
			auctions:     make(map[uint64]model.Auction),
			lastPurchase: make(map[model.Principal]time.Time),
			balances:     make(map[model.Principal]model.Amount),
			published:    make(map[uint64]bool),
		},
	}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemoryTx(s.state)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemoryStore) Notifications(ctx context.Context, afterSeq uint64, limit int) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// seq 自 1 起連續，log[i].Seq == i+1
	if afterSeq >= uint64(len(s.state.log)) {
		return []model.Notification{}, nil
	}
	rest := s.state.log[afterSeq:]
	if limit > 0 && len(rest) > limit {
		rest = rest[:limit]
	}
	return append([]model.Notification(nil), rest...), nil
}

func (s *MemoryStore) Unpublished(ctx context.Context, limit int) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Notification, 0)
	for _, n := range s.state.log {
		if s.state.published[n.Seq] {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(ctx context.Context, seqs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, seq := range seqs {
		s.state.published[seq] = true
	}
	return nil
}

// overlay 交易內的寫入暫存，提交前對其他交易不可見
type overlay[K comparable, V any] struct {
	base   map[K]V
	writes map[K]V
}

func newOverlay[K comparable, V any](base map[K]V) *overlay[K, V] {
	return &overlay[K, V]{base: base, writes: make(map[K]V)}
}

func (o *overlay[K, V]) get(k K) (V, bool) {
	if v, ok := o.writes[k]; ok {
		return v, true
	}
	v, ok := o.base[k]
	return v, ok
}

func (o *overlay[K, V]) put(k K, v V) {
	o.writes[k] = v
}

func (o *overlay[K, V]) commit() {
	for k, v := range o.writes {
		o.base[k] = v
	}
}

type memoryTx struct {
	state         *memoryState
	nextEventID   uint64
	nextAuctionID uint64
	events        *overlay[uint64, model.Event]
	ticketTypes   *overlay[ticketTypeKey, model.TicketType]
	holdings      *overlay[holdingKey, uint64]
	auctions      *overlay[uint64, model.Auction]
	lastPurchase  *overlay[model.Principal, time.Time]
	balances      *overlay[model.Principal, model.Amount]
	appended      []model.Notification
}

func newMemoryTx(state *memoryState) *memoryTx {
	return &memoryTx{
		state:         state,
		nextEventID:   state.nextEventID,
		nextAuctionID: state.nextAuctionID,
		events:        newOverlay(state.events),
		ticketTypes:   newOverlay(state.ticketTypes),
		holdings:      newOverlay(state.holdings),
		auctions:      newOverlay(state.auctions),
		lastPurchase:  newOverlay(state.lastPurchase),
		balances:      newOverlay(state.balances),
	}
}

func (t *memoryTx) commit() {
	t.state.nextEventID = t.nextEventID
	t.state.nextAuctionID = t.nextAuctionID
	t.events.commit()
	t.ticketTypes.commit()
	t.holdings.commit()
	t.auctions.commit()
	t.lastPurchase.commit()
	t.balances.commit()
	for _, n := range t.appended {
		n.Seq = uint64(len(t.state.log)) + 1
		t.state.log = append(t.state.log, n)
	}
}

func (t *memoryTx) NextEventID(ctx context.Context) (uint64, error) {
	t.nextEventID++
	return t.nextEventID, nil
}

func (t *memoryTx) CountEvents(ctx context.Context) (uint64, error) {
	return t.nextEventID, nil
}

func (t *memoryTx) GetEvent(ctx context.Context, id uint64) (model.Event, bool, error) {
	event, ok := t.events.get(id)
	return event, ok, nil
}

func (t *memoryTx) PutEvent(ctx context.Context, event model.Event) error {
	t.events.put(event.ID, event)
	return nil
}

func (t *memoryTx) GetTicketType(ctx context.Context, eventID, ticketTypeID uint64) (model.TicketType, bool, error) {
	tt, ok := t.ticketTypes.get(ticketTypeKey{eventID, ticketTypeID})
	return tt, ok, nil
}

func (t *memoryTx) PutTicketType(ctx context.Context, ticketType model.TicketType) error {
	t.ticketTypes.put(ticketTypeKey{ticketType.EventID, ticketType.ID}, ticketType)
	return nil
}

func (t *memoryTx) ListTicketTypes(ctx context.Context, eventID uint64) ([]model.TicketType, error) {
	seen := make(map[uint64]bool)
	out := make([]model.TicketType, 0)
	for k, v := range t.ticketTypes.writes {
		if k.eventID == eventID {
			seen[k.ticketTypeID] = true
			out = append(out, v)
		}
	}
	for k, v := range t.ticketTypes.base {
		if k.eventID == eventID && !seen[k.ticketTypeID] {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memoryTx) GetHolding(ctx context.Context, eventID uint64, holder model.Principal) (uint64, error) {
	qty, _ := t.holdings.get(holdingKey{eventID, holder})
	return qty, nil
}

func (t *memoryTx) PutHolding(ctx context.Context, eventID uint64, holder model.Principal, quantity uint64) error {
	t.holdings.put(holdingKey{eventID, holder}, quantity)
	return nil
}

func (t *memoryTx) NextAuctionID(ctx context.Context) (uint64, error) {
	t.nextAuctionID++
	return t.nextAuctionID, nil
}

func (t *memoryTx) GetAuction(ctx context.Context, id uint64) (model.Auction, bool, error) {
	auction, ok := t.auctions.get(id)
	return auction, ok, nil
}

func (t *memoryTx) PutAuction(ctx context.Context, auction model.Auction) error {
	t.auctions.put(auction.ID, auction)
	return nil
}

func (t *memoryTx) GetLastPurchase(ctx context.Context, who model.Principal) (time.Time, bool, error) {
	at, ok := t.lastPurchase.get(who)
	return at, ok, nil
}

func (t *memoryTx) PutLastPurchase(ctx context.Context, who model.Principal, at time.Time) error {
	t.lastPurchase.put(who, at)
	return nil
}

func (t *memoryTx) GetBalance(ctx context.Context, who model.Principal) (model.Amount, error) {
	amount, _ := t.balances.get(who)
	return amount, nil
}

func (t *memoryTx) PutBalance(ctx context.Context, who model.Principal, amount model.Amount) error {
	t.balances.put(who, amount)
	return nil
}

func (t *memoryTx) Append(ctx context.Context, n model.Notification) error {
	t.appended = append(t.appended, n)
	return nil
}
