package cart

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

type mockPersister struct {
	m         sync.RWMutex
	snapshots map[string][]domain.CartItem
	history   [][]domain.CartItem
	loadErr   error
	saveErr   error
	saves     int
}

func newMockPersister() *mockPersister {
	return &mockPersister{snapshots: make(map[string][]domain.CartItem)}
}

func (m *mockPersister) Load(_ context.Context, sessionID string) ([]domain.CartItem, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	items, ok := m.snapshots[sessionID]
	if !ok {
		return nil, ErrNoSnapshot
	}
	return items, nil
}

func (m *mockPersister) Save(_ context.Context, sessionID string, items []domain.CartItem) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshots[sessionID] = items
	m.history = append(m.history, items)
	m.saves++
	return nil
}

func (m *mockPersister) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.snapshots, sessionID)
	return nil
}

func (m *mockPersister) snapshot(sessionID string) []domain.CartItem {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.snapshots[sessionID]
}

func (m *mockPersister) saveCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.saves
}

func (m *mockPersister) savedHistory() [][]domain.CartItem {
	m.m.RLock()
	defer m.m.RUnlock()
	out := make([][]domain.CartItem, len(m.history))
	copy(out, m.history)
	return out
}

func newTestStore(t *testing.T, p Persister) *Store {
	t.Helper()
	s := NewStore(p)
	t.Cleanup(func() { s.Close() })
	return s
}

func testProduct(id int64, price float64) domain.Product {
	return domain.Product{
		ID:         id,
		Name:       fmt.Sprintf("Produkt %d", id),
		Price:      price,
		StockUnits: 5,
		CategoryID: 1,
		CreatedAt:  time.Now(),
	}
}

// Aggregates must always equal a from-scratch recomputation of the items.
func assertTotalsConsistent(t *testing.T, c *domain.Cart) {
	t.Helper()
	items := 0
	var price float64
	for _, it := range c.Items {
		items += it.Quantity
		price += it.Price * float64(it.Quantity)
	}
	assert.Equal(t, items, c.TotalItems)
	assert.InDelta(t, price, c.TotalPrice, 1e-9)
}

func TestAddItem_NewProduct(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	c := sut.AddItem(context.Background(), "s1", testProduct(1, 129.95))
	require.Len(t, c.Items, 1)
	assert.Equal(t, int64(1), c.Items[0].ID)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assertTotalsConsistent(t, c)
}

func TestAddItem_SameProductTwice_SingleLineItem(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	c := sut.AddItem(context.Background(), "s1", testProduct(1, 100))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, 2, c.TotalItems)
	assert.InDelta(t, 200.0, c.TotalPrice, 1e-9)
}

func TestUpdateQuantity_Zero_RemovesItem(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	c := sut.UpdateQuantity(context.Background(), "s1", 1, 0)

	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalItems)
	assert.Equal(t, 0.0, c.TotalPrice)
}

func TestUpdateQuantity_Negative_ClampedToRemoval(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	c := sut.UpdateQuantity(context.Background(), "s1", 1, -5)

	assert.Empty(t, c.Items)
	assertTotalsConsistent(t, c)
}

func TestUpdateQuantity_UnknownProduct_NoOp(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	c := sut.UpdateQuantity(context.Background(), "s1", 99, 3)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
}

func TestRemoveItem_AbsentId_NoOp(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	c := sut.RemoveItem(context.Background(), "s1", 42)

	require.Len(t, c.Items, 1)
	assertTotalsConsistent(t, c)
}

func TestClear_ResetsEverything(t *testing.T) {
	mockP := newMockPersister()
	sut := newTestStore(t, mockP)

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	sut.AddItem(context.Background(), "s1", testProduct(2, 59.95))
	c := sut.Clear(context.Background(), "s1")

	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalItems)
	assert.Equal(t, 0.0, c.TotalPrice)

	// Persisted snapshot goes away too
	require.Eventually(t, func() bool {
		return mockP.snapshot("s1") == nil
	}, 100*time.Millisecond, 10*time.Millisecond, "snapshot was not deleted")
}

func TestCartScenario_EndToEnd(t *testing.T) {
	sut := newTestStore(t, newMockPersister())
	ctx := context.Background()
	p := testProduct(1, 100.00)

	c := sut.AddItem(ctx, "s1", p)
	assert.Equal(t, 1, c.TotalItems)
	assert.InDelta(t, 100.00, c.TotalPrice, 1e-9)

	c = sut.AddItem(ctx, "s1", p)
	assert.Equal(t, 2, c.TotalItems)
	assert.InDelta(t, 200.00, c.TotalPrice, 1e-9)

	c = sut.UpdateQuantity(ctx, "s1", 1, 1)
	assert.Equal(t, 1, c.TotalItems)
	assert.InDelta(t, 100.00, c.TotalPrice, 1e-9)

	c = sut.RemoveItem(ctx, "s1", 1)
	assert.Equal(t, 0, c.TotalItems)
	assert.Equal(t, 0.0, c.TotalPrice)
	assert.Empty(t, c.Items)
}

func TestTotals_NeverDriftAcrossMutations(t *testing.T) {
	sut := newTestStore(t, newMockPersister())
	ctx := context.Background()

	sut.AddItem(ctx, "s1", testProduct(1, 129.95))
	sut.AddItem(ctx, "s1", testProduct(2, 59.95))
	sut.AddItem(ctx, "s1", testProduct(1, 129.95))
	sut.UpdateQuantity(ctx, "s1", 2, 7)
	sut.RemoveItem(ctx, "s1", 1)
	c := sut.AddItem(ctx, "s1", testProduct(3, 249.00))

	assertTotalsConsistent(t, c)
	require.Len(t, c.Items, 2)
}

func TestGet_RestoresFromPersister(t *testing.T) {
	mockP := newMockPersister()
	mockP.snapshots["s1"] = []domain.CartItem{
		{Product: testProduct(1, 100), Quantity: 3},
		{Product: testProduct(2, 50), Quantity: 1},
	}
	sut := newTestStore(t, mockP)

	c := sut.Get(context.Background(), "s1")
	require.Len(t, c.Items, 2)
	assert.Equal(t, 4, c.TotalItems)
	assert.InDelta(t, 350.0, c.TotalPrice, 1e-9)
}

func TestGet_CorruptSnapshot_StartsEmpty(t *testing.T) {
	mockP := newMockPersister()
	mockP.loadErr = fmt.Errorf("unmarshal cart snapshot failed")
	sut := newTestStore(t, mockP)

	c := sut.Get(context.Background(), "s1")
	assert.Empty(t, c.Items)
	assert.Equal(t, 0, c.TotalItems)
}

func TestAddItem_PersistsAfterMutation(t *testing.T) {
	mockP := newMockPersister()
	sut := newTestStore(t, mockP)

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))

	require.Eventually(t, func() bool {
		items := mockP.snapshot("s1")
		return len(items) == 1 && items[0].Quantity == 1
	}, 100*time.Millisecond, 10*time.Millisecond, "mutation was not persisted")
}

func TestAddItem_PersisterError_NotSurfaced(t *testing.T) {
	mockP := newMockPersister()
	mockP.saveErr = fmt.Errorf("redis set failed")
	sut := newTestStore(t, mockP)

	c := sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	require.Len(t, c.Items, 1)

	// The in-memory cart keeps working without the persister.
	c = sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	assert.Equal(t, 2, c.TotalItems)
}

func TestSnapshot_CallerMutationDoesNotLeakIn(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	c := sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	c.Items[0].Quantity = 99

	again := sut.Get(context.Background(), "s1")
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestEvictIdle_DropsUntouchedCarts(t *testing.T) {
	mockP := newMockPersister()
	sut := newTestStore(t, mockP)
	ctx := context.Background()

	sut.AddItem(ctx, "s1", testProduct(1, 129.95))
	require.Eventually(t, func() bool {
		return len(mockP.snapshot("s1")) == 1
	}, 100*time.Millisecond, 10*time.Millisecond, "mutation was not persisted")

	sut.mu.Lock()
	sut.carts["s1"].lastAccess = time.Now().Add(-2 * IdleTTL)
	sut.mu.Unlock()
	sut.evictIdle()

	sut.mu.Lock()
	_, held := sut.carts["s1"]
	sut.mu.Unlock()
	require.False(t, held, "idle cart still resident after eviction")

	// The persisted snapshot brings an evicted cart back on next access.
	c := sut.Get(ctx, "s1")
	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.TotalItems)
	assert.InDelta(t, 129.95, c.TotalPrice, 1e-9)
}

func TestEvictIdle_KeepsRecentlyUsedCarts(t *testing.T) {
	sut := newTestStore(t, newMockPersister())

	sut.AddItem(context.Background(), "s1", testProduct(1, 100))
	sut.evictIdle()

	sut.mu.Lock()
	_, held := sut.carts["s1"]
	sut.mu.Unlock()
	assert.True(t, held, "recently used cart was evicted")
}

func TestPersist_SnapshotsNeverRegress(t *testing.T) {
	mockP := newMockPersister()
	sut := newTestStore(t, mockP)
	ctx := context.Background()

	p := testProduct(1, 100)
	for i := 0; i < 25; i++ {
		sut.AddItem(ctx, "s1", p)
	}

	require.Eventually(t, func() bool {
		items := mockP.snapshot("s1")
		return len(items) == 1 && items[0].Quantity == 25
	}, 200*time.Millisecond, 10*time.Millisecond, "persisted snapshot lagged behind the cart")

	// However the writes interleaved, no older snapshot landed after a
	// newer one.
	prev := 0
	for _, items := range mockP.savedHistory() {
		require.Len(t, items, 1)
		require.GreaterOrEqual(t, items[0].Quantity, prev, "snapshot written out of order")
		prev = items[0].Quantity
	}
}
