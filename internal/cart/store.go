package cart

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

const (
	// IdleTTL is how long an untouched cart stays in memory. Evicted
	// carts restore from their persisted snapshot on next access.
	IdleTTL = 30 * time.Minute

	// CleanupInterval is how often the background eviction runs
	CleanupInterval = time.Minute

	writeTimeout = 2 * time.Second
)

type cartEntry struct {
	cart       *domain.Cart
	lastAccess time.Time
}

type pendingWrite struct {
	items  []domain.CartItem
	remove bool
}

// Store owns the authoritative cart state for every session. Mutations run
// under the store lock, recompute the derived totals, then queue a snapshot
// of the item list for the background writer. A broken persister degrades
// carts to in-memory only; it never fails a mutation.
//
// The writer keeps only the latest queued snapshot per session and flushes
// from a single goroutine, so snapshots never reach the persister out of
// order. Idle carts are evicted after IdleTTL to keep anonymous traffic
// from growing the map forever.
type Store struct {
	mu        sync.RWMutex
	carts     map[string]*cartEntry
	persister Persister

	writeMu sync.Mutex
	writes  map[string]pendingWrite
	wake    chan struct{}

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewStore(persister Persister) *Store {
	s := &Store{
		carts:     make(map[string]*cartEntry),
		persister: persister,
		writes:    make(map[string]pendingWrite),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}

	s.wg.Add(2)
	go s.cleanupLoop()
	go s.writeLoop()

	return s
}

// Close stops the background eviction, flushes queued snapshots and waits
// for both loops to finish.
func (s *Store) Close() error {
	close(s.stop)
	s.wg.Wait()
	return nil
}

// Get returns the cart for the session, restoring it from the persister on
// first access. A missing or malformed snapshot starts the cart empty.
func (s *Store) Get(ctx context.Context, sessionID string) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.cart(ctx, sessionID))
}

// AddItem increments the quantity of an existing line item for the product,
// or appends a new line item with quantity 1. Stock is intentionally not
// checked here; capping to stock_units is the caller's call.
func (s *Store) AddItem(ctx context.Context, sessionID string, product domain.Product) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(ctx, sessionID)
	now := time.Now()

	found := false
	for i := range c.Items {
		if c.Items[i].ID == product.ID {
			c.Items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, domain.CartItem{
			Product:  product,
			Quantity: 1,
			AddedAt:  now,
		})
	}

	c.RecomputeTotals()
	c.UpdatedAt = now
	s.persist(sessionID, c.Items)
	return snapshot(c)
}

// UpdateQuantity sets the line item's quantity to max(0, quantity). A zero
// result removes the item entirely. Unknown product ids are a no-op.
func (s *Store) UpdateQuantity(ctx context.Context, sessionID string, productID int64, quantity int) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(ctx, sessionID)
	if quantity < 0 {
		quantity = 0
	}

	for i := range c.Items {
		if c.Items[i].ID != productID {
			continue
		}
		if quantity == 0 {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
		} else {
			c.Items[i].Quantity = quantity
		}
		c.RecomputeTotals()
		c.UpdatedAt = time.Now()
		s.persist(sessionID, c.Items)
		break
	}
	return snapshot(c)
}

// RemoveItem deletes the line item for the product. Absent ids are a no-op,
// not an error.
func (s *Store) RemoveItem(ctx context.Context, sessionID string, productID int64) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(ctx, sessionID)
	for i := range c.Items {
		if c.Items[i].ID != productID {
			continue
		}
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		c.RecomputeTotals()
		c.UpdatedAt = time.Now()
		s.persist(sessionID, c.Items)
		break
	}
	return snapshot(c)
}

// Clear empties the cart and drops the persisted snapshot.
func (s *Store) Clear(ctx context.Context, sessionID string) *domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cart(ctx, sessionID)
	c.Items = nil
	c.RecomputeTotals()
	c.UpdatedAt = time.Now()

	s.enqueue(sessionID, pendingWrite{remove: true})
	return snapshot(c)
}

func (s *Store) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictIdle()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-IdleTTL)
	for id, e := range s.carts {
		if e.lastAccess.Before(cutoff) {
			delete(s.carts, id)
		}
	}
}

// cart returns the live cart for the session, restoring it once. Callers
// must hold the store lock.
func (s *Store) cart(ctx context.Context, sessionID string) *domain.Cart {
	now := time.Now()
	if e, ok := s.carts[sessionID]; ok {
		e.lastAccess = now
		return e.cart
	}

	c := &domain.Cart{
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	items, err := s.persister.Load(ctx, sessionID)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		// Corrupt or unreachable snapshot: start empty, keep going.
		log.Printf("cart restore error for session %s: %v", sessionID, err)
	}
	if err == nil {
		c.Items = items
	}
	c.RecomputeTotals()

	s.carts[sessionID] = &cartEntry{cart: c, lastAccess: now}
	return c
}

// persist queues the item list for the background writer. The slice is
// copied first so the writer never sees later mutations.
func (s *Store) persist(sessionID string, items []domain.CartItem) {
	copied := make([]domain.CartItem, len(items))
	copy(copied, items)
	s.enqueue(sessionID, pendingWrite{items: copied})
}

func (s *Store) enqueue(sessionID string, w pendingWrite) {
	s.writeMu.Lock()
	s.writes[sessionID] = w
	s.writeMu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.wake:
			s.flushWrites()
		case <-s.stop:
			s.flushWrites()
			return
		}
	}
}

func (s *Store) flushWrites() {
	for {
		s.writeMu.Lock()
		var (
			sessionID string
			w         pendingWrite
			ok        bool
		)
		for id, pw := range s.writes {
			sessionID, w, ok = id, pw, true
			break
		}
		if !ok {
			s.writeMu.Unlock()
			return
		}
		delete(s.writes, sessionID)
		s.writeMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		var err error
		if w.remove {
			err = s.persister.Delete(ctx, sessionID)
		} else {
			err = s.persister.Save(ctx, sessionID, w.items)
		}
		cancel()
		if err != nil {
			log.Printf("cart persist error for session %s: %v", sessionID, err)
		}
	}
}

func snapshot(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = make([]domain.CartItem, len(c.Items))
	copy(out.Items, c.Items)
	return &out
}
