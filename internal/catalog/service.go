package catalog

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/omega-fast-coder/panoptikon/internal/domain"
)

// Service is the read-only data-access boundary the rest of the app talks
// to. Query failures are absorbed here: they get logged and come back as
// empty/absent results, never as errors. A circuit breaker stops hammering
// a broken database.
type Service struct {
	repo    RepoInterface
	breaker *gobreaker.CircuitBreaker[any]
}

func NewService(repo RepoInterface) *Service {
	settings := gobreaker.Settings{
		Name:     "catalog",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// Not-found is an answer, not a database failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrCategoryNotFound)
		},
	}
	return &Service{
		repo:    repo,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (s *Service) ListProducts(ctx context.Context) []*domain.Product {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.repo.GetAllProducts(ctx)
	})
	if err != nil {
		log.Printf("[LIST_PRODUCTS] %v", err)
		return nil
	}
	return v.([]*domain.Product)
}

func (s *Service) ListProductsByCategory(ctx context.Context, categoryID int64) []*domain.Product {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.repo.GetProductsByCategory(ctx, categoryID)
	})
	if err != nil {
		log.Printf("[LIST_PRODUCTS_BY_CATEGORY] %v", err)
		return nil
	}
	return v.([]*domain.Product)
}

// GetProductByID returns nil when the product does not exist or the query
// fails; the distinction is logged, not propagated.
func (s *Service) GetProductByID(ctx context.Context, id int64) *domain.Product {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.repo.GetProduct(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrProductNotFound) {
			log.Printf("[GET_PRODUCT] %v", err)
		}
		return nil
	}
	return v.(*domain.Product)
}

func (s *Service) ListCategories(ctx context.Context) []*domain.Category {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.repo.GetAllCategories(ctx)
	})
	if err != nil {
		log.Printf("[LIST_CATEGORIES] %v", err)
		return nil
	}
	return v.([]*domain.Category)
}

func (s *Service) GetCategoryByID(ctx context.Context, id int64) *domain.Category {
	v, err := s.breaker.Execute(func() (any, error) {
		return s.repo.GetCategory(ctx, id)
	})
	if err != nil {
		if !errors.Is(err, ErrCategoryNotFound) {
			log.Printf("[GET_CATEGORY] %v", err)
		}
		return nil
	}
	return v.(*domain.Category)
}
