package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryworks/atelier/internal/domain"
)

// ============================================================================
// Fakes
// ============================================================================

// fakeStore is an in-memory FulfillmentStore. A transaction holds the store
// lock from Begin to Commit/Rollback, which serializes transactions the way
// row locks do in Postgres: buffered writes apply atomically on Commit and
// vanish on Rollback.
type fakeStore struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order      // keyed by session id
	items    map[string][]domain.OrderItem // keyed by order id
	artworks map[string]*domain.Artwork    // keyed by uuid string
	editions map[string]*domain.Edition

	// Failure injection
	beginErr       error
	commitErr      error
	insertOrderErr error
	insertItemErr  error
	decrementErr   error

	// forceProbeMiss makes the in-tx idempotency probe miss, simulating a
	// concurrent duplicate that commits between the probe and the insert.
	forceProbeMiss bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[string]*domain.Order),
		items:    make(map[string][]domain.OrderItem),
		artworks: make(map[string]*domain.Artwork),
		editions: make(map[string]*domain.Edition),
	}
}

func (s *fakeStore) addArtwork(id string, a domain.Artwork) {
	a.ID = mustUUID(id)
	s.artworks[id] = &a
}

func (s *fakeStore) addEdition(id string, e domain.Edition) {
	e.ID = mustUUID(id)
	s.editions[id] = &e
}

func (s *fakeStore) BeginFulfillment(ctx context.Context) (domain.FulfillmentTx, error) {
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.mu.Lock()
	return &fakeTx{store: s}, nil
}

func (s *fakeStore) GetOrder(ctx context.Context, id pgtype.UUID) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (s *fakeStore) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[sessionID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrOrderNotFound
}

func (s *fakeStore) GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[domain.UUIDString(orderID)], nil
}

type fakeTx struct {
	store *fakeStore
	done  bool

	pendingOrder     *domain.Order
	pendingItems     []domain.OrderItem
	pendingDecrement string
}

func (f *fakeTx) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	if f.store.forceProbeMiss {
		return nil, domain.ErrOrderNotFound
	}
	if o, ok := f.store.orders[sessionID]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeTx) GetArtwork(ctx context.Context, id pgtype.UUID) (*domain.Artwork, error) {
	if a, ok := f.store.artworks[domain.UUIDString(id)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrArtworkNotFound
}

func (f *fakeTx) GetEdition(ctx context.Context, id pgtype.UUID) (*domain.Edition, error) {
	if e, ok := f.store.editions[domain.UUIDString(id)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, domain.ErrEditionNotFound
}

func (f *fakeTx) DecrementEditionStock(ctx context.Context, id pgtype.UUID) (bool, error) {
	if f.store.decrementErr != nil {
		return false, f.store.decrementErr
	}
	e, ok := f.store.editions[domain.UUIDString(id)]
	if !ok || e.Stock <= 0 {
		return false, nil
	}
	f.pendingDecrement = domain.UUIDString(id)
	return true, nil
}

func (f *fakeTx) InsertOrder(ctx context.Context, params domain.CreateOrderParams) (*domain.Order, error) {
	if f.store.insertOrderErr != nil {
		return nil, f.store.insertOrderErr
	}
	if _, exists := f.store.orders[params.SessionID]; exists {
		return nil, domain.ErrSessionAlreadyProcessed
	}
	o := &domain.Order{
		ID:               mustUUID(uuid.New().String()),
		StripeSessionID:  params.SessionID,
		Status:           params.Status,
		AmountTotalCents: params.AmountTotalCents,
		Currency:         params.Currency,
		CustomerEmail:    params.CustomerEmail,
		CustomerName:     params.CustomerName,
		Flagged:          params.Flagged,
	}
	if params.FlagReason != "" {
		o.FlagReason = pgtype.Text{String: params.FlagReason, Valid: true}
	}
	f.pendingOrder = o
	cp := *o
	return &cp, nil
}

func (f *fakeTx) InsertOrderItem(ctx context.Context, params domain.CreateOrderItemParams) (*domain.OrderItem, error) {
	if f.store.insertItemErr != nil {
		return nil, f.store.insertItemErr
	}
	item := domain.OrderItem{
		ID:             mustUUID(uuid.New().String()),
		OrderID:        params.OrderID,
		ArtworkID:      params.ArtworkID,
		EditionID:      params.EditionID,
		Quantity:       params.Quantity,
		UnitPriceCents: params.UnitPriceCents,
		TitleSnapshot:  params.TitleSnapshot,
	}
	f.pendingItems = append(f.pendingItems, item)
	return &item, nil
}

func (f *fakeTx) Commit(ctx context.Context) error {
	if f.done {
		return errors.New("tx already finished")
	}
	f.done = true
	defer f.store.mu.Unlock()

	if f.store.commitErr != nil {
		return f.store.commitErr
	}
	if f.pendingDecrement != "" {
		f.store.editions[f.pendingDecrement].Stock--
	}
	if f.pendingOrder != nil {
		f.store.orders[f.pendingOrder.StripeSessionID] = f.pendingOrder
		f.store.items[domain.UUIDString(f.pendingOrder.ID)] = f.pendingItems
	}
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if f.done {
		return nil
	}
	f.done = true
	f.store.mu.Unlock()
	return nil
}

// fakeQueue records receipt enqueues and can fail on demand.
type fakeQueue struct {
	mu       sync.Mutex
	enqueued []string
	err      error
}

func (q *fakeQueue) EnqueueReceipt(ctx context.Context, orderID pgtype.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, domain.UUIDString(orderID))
	return nil
}

func (q *fakeQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.enqueued)
}

// ============================================================================
// Helpers
// ============================================================================

const (
	editionID = "6b1e3c2a-7e49-4b2f-9a6e-0f8f4f1c9d11"
	artworkID = "a3f1d9c0-1234-4cde-8f00-5e6a7b8c9d0e"
)

func mustUUID(s string) pgtype.UUID {
	id, err := domain.UUIDFromString(s)
	if err != nil {
		panic(err)
	}
	return id
}

func editionEvent(sessionID string) domain.CheckoutCompleted {
	return domain.CheckoutCompleted{
		EventID:          "evt_" + sessionID,
		SessionID:        sessionID,
		AmountTotalCents: 3000,
		Currency:         "usd",
		CustomerEmail:    "buyer@example.com",
		CustomerName:     "A Buyer",
		RawCatalogType:   "edition",
		RawCatalogID:     editionID,
	}
}

func artworkEvent(sessionID string) domain.CheckoutCompleted {
	ev := editionEvent(sessionID)
	ev.AmountTotalCents = 250000
	ev.RawCatalogType = "artwork"
	ev.RawCatalogID = artworkID
	return ev
}

func seededStore(stock int32) *fakeStore {
	store := newFakeStore()
	store.addEdition(editionID, domain.Edition{
		Title:      "Harbor Light II (edition of 50)",
		PriceCents: 3000,
		Stock:      stock,
	})
	store.addArtwork(artworkID, domain.Artwork{
		Title:      "Harbor Light",
		Artist:     "M. Vasquez",
		PriceCents: pgtype.Int4{Int32: 250000, Valid: true},
		Status:     domain.ArtworkStatusPublished,
	})
	return store
}

// ============================================================================
// Tests
// ============================================================================

func TestFulfillCheckout_CreatesEditionOrder(t *testing.T) {
	store := seededStore(3)
	queue := &fakeQueue{}
	svc := NewFulfillmentService(store, queue, nil)

	result, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
	require.NoError(t, err)
	require.NotNil(t, result.Order)
	assert.False(t, result.AlreadyProcessed)

	order := result.Order
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, int64(3000), order.AmountTotalCents)
	assert.Equal(t, "usd", order.Currency)
	assert.Equal(t, "buyer@example.com", order.CustomerEmail)
	assert.False(t, order.Flagged)

	assert.Equal(t, int32(2), store.editions[editionID].Stock)

	items := store.items[domain.UUIDString(order.ID)]
	require.Len(t, items, 1)
	assert.Equal(t, "Harbor Light II (edition of 50)", items[0].TitleSnapshot)
	assert.Equal(t, int32(1), items[0].Quantity)
	assert.True(t, items[0].EditionID.Valid)
	assert.False(t, items[0].ArtworkID.Valid)

	assert.Equal(t, 1, queue.count())
}

func TestFulfillCheckout_Idempotent(t *testing.T) {
	store := seededStore(5)
	queue := &fakeQueue{}
	svc := NewFulfillmentService(store, queue, nil)
	ctx := context.Background()

	first, err := svc.FulfillCheckout(ctx, editionEvent("sess_123"))
	require.NoError(t, err)

	// Same event delivered again: same order, no new side effects.
	for i := 0; i < 3; i++ {
		again, err := svc.FulfillCheckout(ctx, editionEvent("sess_123"))
		require.NoError(t, err)
		assert.True(t, again.AlreadyProcessed)
		assert.Equal(t, first.Order.ID, again.Order.ID)
	}

	assert.Equal(t, int32(4), store.editions[editionID].Stock, "stock decremented exactly once")
	assert.Len(t, store.orders, 1)
	assert.Equal(t, 1, queue.count(), "receipt enqueued exactly once")
}

func TestFulfillCheckout_ConcurrentDuplicateDelivery(t *testing.T) {
	// sess_123 scenario: one copy left, the same completed event delivered
	// twice at the same time.
	store := seededStore(1)
	queue := &fakeQueue{}
	svc := NewFulfillmentService(store, queue, nil)

	const deliveries = 2
	results := make([]*domain.FulfillmentResult, deliveries)
	errs := make([]error, deliveries)

	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i].Order)
		if !results[i].AlreadyProcessed {
			created++
		}
	}

	assert.Equal(t, 1, created, "exactly one delivery creates the order")
	assert.Equal(t, results[0].Order.ID, results[1].Order.ID)
	assert.Len(t, store.orders, 1)
	assert.Equal(t, int32(0), store.editions[editionID].Stock)
	assert.False(t, store.orders["sess_123"].Flagged)
}

func TestFulfillCheckout_InventoryExhausted(t *testing.T) {
	store := seededStore(0)
	svc := NewFulfillmentService(store, &fakeQueue{}, nil)

	result, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_late"))
	require.NoError(t, err, "exhausted stock is a business outcome, not an error")

	order := result.Order
	assert.True(t, order.Flagged)
	assert.Equal(t, domain.FlagInventoryExhausted, order.FlagReason.String)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, int32(0), store.editions[editionID].Stock, "stock never goes negative")

	items := store.items[domain.UUIDString(order.ID)]
	require.Len(t, items, 1)
	assert.True(t, items[0].EditionID.Valid, "item still references the edition")
	assert.Equal(t, "Harbor Light II (edition of 50)", items[0].TitleSnapshot)
}

func TestFulfillCheckout_ConcurrentStockRace(t *testing.T) {
	// Five distinct sessions race for two remaining copies: every payment
	// gets an order, exactly two decrements happen, the rest are flagged.
	store := seededStore(2)
	svc := NewFulfillmentService(store, &fakeQueue{}, nil)

	const buyers = 5
	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ev := editionEvent("sess_race_" + string(rune('a'+i)))
			_, errs[i] = svc.FulfillCheckout(context.Background(), ev)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	assert.Len(t, store.orders, buyers)
	assert.Equal(t, int32(0), store.editions[editionID].Stock)

	flagged := 0
	for _, o := range store.orders {
		if o.Flagged {
			assert.Equal(t, domain.FlagInventoryExhausted, o.FlagReason.String)
			flagged++
		}
	}
	assert.Equal(t, buyers-2, flagged)
}

func TestFulfillCheckout_OriginalArtwork(t *testing.T) {
	// sess_456 scenario: a one-of-a-kind original. The order is created and
	// the artwork row is left exactly as it was.
	store := seededStore(1)
	svc := NewFulfillmentService(store, &fakeQueue{}, nil)

	result, err := svc.FulfillCheckout(context.Background(), artworkEvent("sess_456"))
	require.NoError(t, err)

	order := result.Order
	assert.False(t, order.Flagged)
	assert.Equal(t, int64(250000), order.AmountTotalCents)

	items := store.items[domain.UUIDString(order.ID)]
	require.Len(t, items, 1)
	assert.True(t, items[0].ArtworkID.Valid)
	assert.False(t, items[0].EditionID.Valid)
	assert.Equal(t, "Harbor Light", items[0].TitleSnapshot)

	assert.Equal(t, domain.ArtworkStatusPublished, store.artworks[artworkID].Status,
		"fulfillment does not touch artwork availability")
}

func TestFulfillCheckout_CatalogUnresolved(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.CheckoutCompleted)
	}{
		{
			name: "unknown edition id",
			mutate: func(e *domain.CheckoutCompleted) {
				e.RawCatalogID = "59d2f6a1-0b3c-4d5e-8f90-123456789abc"
			},
		},
		{
			name: "unknown artwork id",
			mutate: func(e *domain.CheckoutCompleted) {
				e.RawCatalogType = "artwork"
				e.RawCatalogID = "59d2f6a1-0b3c-4d5e-8f90-123456789abc"
			},
		},
		{
			name: "unknown catalog type",
			mutate: func(e *domain.CheckoutCompleted) {
				e.RawCatalogType = "sculpture"
			},
		},
		{
			name: "garbled catalog id",
			mutate: func(e *domain.CheckoutCompleted) {
				e.RawCatalogID = "not-a-uuid"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore(3)
			svc := NewFulfillmentService(store, &fakeQueue{}, nil)

			ev := editionEvent("sess_" + tt.name)
			tt.mutate(&ev)

			result, err := svc.FulfillCheckout(context.Background(), ev)
			require.NoError(t, err, "unresolvable reference still produces an order")

			order := result.Order
			assert.True(t, order.Flagged)
			assert.Equal(t, domain.FlagCatalogUnresolved, order.FlagReason.String)
			assert.Equal(t, domain.OrderStatusPaid, order.Status)

			items := store.items[domain.UUIDString(order.ID)]
			require.Len(t, items, 1)
			assert.False(t, items[0].ArtworkID.Valid)
			assert.False(t, items[0].EditionID.Valid)
			assert.Equal(t, "(unavailable)", items[0].TitleSnapshot)

			assert.Equal(t, int32(3), store.editions[editionID].Stock, "no stock movement")
		})
	}
}

func TestFulfillCheckout_AtomicityOnFailure(t *testing.T) {
	// A failure after the decrement but before commit must leave no trace:
	// no order, no item, no stock movement.
	store := seededStore(2)
	store.insertItemErr = errors.New("connection reset")
	svc := NewFulfillmentService(store, &fakeQueue{}, nil)

	_, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
	require.Error(t, err)

	assert.Empty(t, store.orders)
	assert.Empty(t, store.items)
	assert.Equal(t, int32(2), store.editions[editionID].Stock)

	// The retry after the transient failure succeeds cleanly.
	store.insertItemErr = nil
	result, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
	require.NoError(t, err)
	assert.False(t, result.AlreadyProcessed)
	assert.Equal(t, int32(1), store.editions[editionID].Stock)
}

func TestFulfillCheckout_CommitFailure(t *testing.T) {
	store := seededStore(2)
	store.commitErr = errors.New("connection lost during commit")
	svc := NewFulfillmentService(store, &fakeQueue{}, nil)

	_, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
	require.Error(t, err)
	assert.Empty(t, store.orders)
	assert.Equal(t, int32(2), store.editions[editionID].Stock)
}

func TestFulfillCheckout_InsertConflictFallback(t *testing.T) {
	// The narrow race: the probe misses, a concurrent delivery commits, and
	// our insert hits the unique constraint. We must return the winner's
	// order and drop our own work.
	store := seededStore(1)
	winner := &domain.Order{
		ID:              mustUUID(uuid.New().String()),
		StripeSessionID: "sess_123",
		Status:          domain.OrderStatusPaid,
	}
	store.orders["sess_123"] = winner
	store.forceProbeMiss = true
	queue := &fakeQueue{}
	svc := NewFulfillmentService(store, queue, nil)

	result, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, winner.ID, result.Order.ID)

	assert.Equal(t, int32(1), store.editions[editionID].Stock, "loser's decrement rolled back")
	assert.Equal(t, 0, queue.count(), "no receipt for a duplicate")
}

func TestFulfillCheckout_NotificationFailureLeavesOrderIntact(t *testing.T) {
	store := seededStore(2)
	queue := &fakeQueue{err: errors.New("nats: connection closed")}
	svc := NewFulfillmentService(store, queue, nil)

	result, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
	require.NoError(t, err, "notification failure never fails fulfillment")

	order := store.orders["sess_123"]
	require.NotNil(t, order)
	assert.False(t, order.Flagged)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	assert.Equal(t, result.Order.ID, order.ID)
	assert.Equal(t, int32(1), store.editions[editionID].Stock)
}

func TestFulfillCheckout_InvalidEvent(t *testing.T) {
	store := seededStore(2)
	svc := NewFulfillmentService(store, &fakeQueue{}, nil)

	ev := editionEvent("sess_123")
	ev.SessionID = ""

	_, err := svc.FulfillCheckout(context.Background(), ev)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	assert.Empty(t, store.orders)
}

func TestFulfillCheckout_BeginFailure(t *testing.T) {
	store := seededStore(2)
	store.beginErr = domain.Internal(errors.New("pool exhausted"), "store.begin", "failed to begin transaction")
	svc := NewFulfillmentService(store, &fakeQueue{}, nil)

	_, err := svc.FulfillCheckout(context.Background(), editionEvent("sess_123"))
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}
