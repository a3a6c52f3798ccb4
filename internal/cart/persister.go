package cart

import (
	"context"
	"errors"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// Persister stores cart item snapshots across sessions. The store treats
// every call as best-effort: a failing persister never fails a cart mutation.
type Persister interface {
	Load(ctx context.Context, sessionID string) ([]domain.CartItem, error)
	Save(ctx context.Context, sessionID string, items []domain.CartItem) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrNoSnapshot = errors.New("no cart snapshot")
