package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// Common errors returned by the flow
var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrOrderInProgress   = errors.New("order placement already in progress")
	ErrIllegalTransition = errors.New("illegal transition of checkout stage")
)

// ValidationError carries the per-field error map that blocked a forward
// transition. The stage does not change when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(e.Fields))
}

const (
	// SessionTTL is how long an idle checkout session is kept around
	SessionTTL = 30 * time.Minute

	// CleanupInterval is how often the background cleanup runs
	CleanupInterval = time.Minute
)

// Session is one customer's progress through the checkout stages.
type Session struct {
	ID          string              `json:"id"`
	Stage       domain.Stage        `json:"stage"`
	Customer    domain.CustomerInfo `json:"customer_info"`
	Payment     domain.PaymentInfo  `json:"payment_info"`
	Order       *domain.Order       `json:"order,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	processing  bool
}

// CartAccess is the slice of the cart store the flow needs: a read for the
// order snapshot and a clear once the order is placed.
type CartAccess interface {
	Get(ctx context.Context, sessionID string) *domain.Cart
	Clear(ctx context.Context, sessionID string) *domain.Cart
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

// Flow owns the checkout sessions and their stage transitions. Forward
// transitions are gated on validation of the stage being left; backward
// transitions are unconditional. Order placement is atomic from the flow's
// view: validation, order synthesis, cart clear and the stage change either
// all happen or none do.
type Flow struct {
	mu              sync.Mutex
	sessions        map[string]*Session
	cart            CartAccess
	publisher       Publisher
	processingDelay time.Duration

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewFlow(cart CartAccess, publisher Publisher, processingDelay time.Duration) *Flow {
	f := &Flow{
		sessions:        make(map[string]*Session),
		cart:            cart,
		publisher:       publisher,
		processingDelay: processingDelay,
		stopCleanup:     make(chan struct{}),
	}

	f.wg.Add(1)
	go f.cleanupLoop()

	return f
}

func (f *Flow) cleanupLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.expireSessions()
		case <-f.stopCleanup:
			return
		}
	}
}

func (f *Flow) expireSessions() {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-SessionTTL)
	for id, s := range f.sessions {
		if !s.processing && s.UpdatedAt.Before(cutoff) {
			delete(f.sessions, id)
		}
	}
}

// Close stops the background cleanup and waits for it to finish.
func (f *Flow) Close() error {
	close(f.stopCleanup)
	f.wg.Wait()
	return nil
}

// Current returns the session for the id, creating one at the cart stage on
// first use. An empty cart blocks the flow everywhere except the
// confirmation stage, which survives the cart being cleared by order
// placement.
func (f *Flow) Current(ctx context.Context, sessionID string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.view(), nil
}

// SetCustomerInfo stores the shipping data group without validating it;
// validation happens when the customer tries to leave the shipping stage.
// An unset country defaults to Danmark.
func (f *Flow) SetCustomerInfo(ctx context.Context, sessionID string, info domain.CustomerInfo) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if info.Country == "" {
		info.Country = "Danmark"
	}
	s.Customer = info
	s.UpdatedAt = time.Now()
	return s.view(), nil
}

// SetPaymentInfo stores the payment data group without validating it.
func (f *Flow) SetPaymentInfo(ctx context.Context, sessionID string, info domain.PaymentInfo) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.Payment = info
	s.UpdatedAt = time.Now()
	return s.view(), nil
}

// Advance moves the session one stage forward. Leaving shipping requires
// the customer info to validate; leaving payment requires the payment info
// to validate and places the order. On a validation failure the stage stays
// put and the field errors ride back on a *ValidationError.
func (f *Flow) Advance(ctx context.Context, sessionID string) (*Session, error) {
	f.mu.Lock()

	s, err := f.session(ctx, sessionID)
	if err != nil {
		f.mu.Unlock()
		return nil, err
	}

	switch s.Stage {
	case domain.StageCart:
		s.Stage = domain.StageShipping
		s.UpdatedAt = time.Now()
		v := s.view()
		f.mu.Unlock()
		return v, nil

	case domain.StageShipping:
		if errs := ValidateCustomerInfo(s.Customer); len(errs) > 0 {
			f.mu.Unlock()
			return nil, &ValidationError{Fields: errs}
		}
		s.Stage = domain.StagePayment
		s.UpdatedAt = time.Now()
		v := s.view()
		f.mu.Unlock()
		return v, nil

	case domain.StagePayment:
		return f.placeOrder(ctx, s)

	default:
		f.mu.Unlock()
		return nil, ErrIllegalTransition
	}
}

// placeOrder finishes the payment stage. Called with the flow lock held;
// the lock is released while the simulated processing delay runs so other
// sessions keep moving, with the processing flag guarding re-entry.
func (f *Flow) placeOrder(ctx context.Context, s *Session) (*Session, error) {
	if errs := ValidatePaymentInfo(s.Payment); len(errs) > 0 {
		f.mu.Unlock()
		return nil, &ValidationError{Fields: errs}
	}
	if s.processing {
		f.mu.Unlock()
		return nil, ErrOrderInProgress
	}
	s.processing = true
	sessionID := s.ID
	f.mu.Unlock()

	// Simulated payment processing; nothing was charged, so cancellation
	// needs no compensating action.
	if f.processingDelay > 0 {
		select {
		case <-time.After(f.processingDelay):
		case <-ctx.Done():
			f.mu.Lock()
			s.processing = false
			f.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	snapshot := f.cart.Get(ctx, sessionID)

	f.mu.Lock()
	now := time.Now()
	order := &domain.Order{
		ID:          uuid.New().String(),
		Number:      orderNumber(now),
		SessionID:   sessionID,
		Items:       orderItems(snapshot),
		TotalAmount: snapshot.TotalPrice,
		Currency:    "DKK",
		PlacedAt:    now,
	}
	s.Order = order
	s.Stage = domain.StageConfirmation
	s.UpdatedAt = now
	s.processing = false
	v := s.view()
	f.mu.Unlock()

	f.cart.Clear(ctx, sessionID)
	f.publish(order)

	return v, nil
}

// Back moves one stage backward, unconditionally. From the cart stage
// backward navigation exits the flow entirely, which is the caller's move;
// the confirmation stage is terminal. While an order placement is in
// flight the stage is pinned, otherwise the finishing placement would
// overwrite a concurrent retreat.
func (f *Flow) Back(ctx context.Context, sessionID string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, err := f.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.processing {
		return nil, ErrOrderInProgress
	}

	switch s.Stage {
	case domain.StagePayment:
		s.Stage = domain.StageShipping
	case domain.StageShipping:
		s.Stage = domain.StageCart
	case domain.StageCart:
		// leaving the flow is external navigation, the stage stays put
	default:
		return nil, ErrIllegalTransition
	}
	s.UpdatedAt = time.Now()
	return s.view(), nil
}

// Reset drops the session so the next access starts a fresh checkout.
func (f *Flow) Reset(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
}

// session returns the live session, creating it at the cart stage. Callers
// must hold the flow lock.
func (f *Flow) session(ctx context.Context, sessionID string) (*Session, error) {
	if s, ok := f.sessions[sessionID]; ok {
		if s.Stage != domain.StageConfirmation && f.cart.Get(ctx, sessionID).TotalItems == 0 {
			return nil, ErrEmptyCart
		}
		return s, nil
	}

	if f.cart.Get(ctx, sessionID).TotalItems == 0 {
		return nil, ErrEmptyCart
	}

	now := time.Now()
	s := &Session{
		ID:        sessionID,
		Stage:     domain.StageCart,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.sessions[sessionID] = s
	return s, nil
}

func (f *Flow) publish(order *domain.Order) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.publisher.PublishOrderPlaced(ctx, order); err != nil {
			log.Printf("failed to publish order %s: %v", order.Number, err)
		}
	}()
}

func (s *Session) view() *Session {
	out := *s
	out.processing = false
	if s.Order != nil {
		o := *s.Order
		out.Order = &o
	}
	return &out
}

func orderItems(c *domain.Cart) []domain.OrderItem {
	items := make([]domain.OrderItem, len(c.Items))
	for i, it := range c.Items {
		items[i] = domain.OrderItem{
			ProductID:   it.ID,
			ProductName: it.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Price,
			Subtotal:    it.Price * float64(it.Quantity),
		}
	}
	return items
}

// orderNumber mimics the storefront's display format: PAN- plus the last
// six digits of the unix millisecond clock. Deliberately weak uniqueness;
// the order also carries a uuid for anything that needs identity.
func orderNumber(now time.Time) string {
	return fmt.Sprintf("PAN-%06d", now.UnixMilli()%1_000_000)
}
