package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cache"
)

type Service interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]Variant, error)
}

type service struct {
	repo     Repository
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewService wraps the repository with a read-through cache for product
// reads. cache may be nil, in which case every read goes to the database.
func NewService(repo Repository, c cache.Cache, ttl time.Duration) Service {
	return &service{
		repo:     repo,
		cache:    c,
		cacheTTL: ttl,
	}
}

func (s *service) ListProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if s.cachedGet(ctx, "products", "all", &products) {
		return products, nil
	}

	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list products: %w", err)
	}

	s.cachedSet(ctx, "products", "all", products)
	return products, nil
}

func (s *service) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	var product Product
	if s.cachedGet(ctx, "product", slug, &product) {
		return &product, nil
	}

	p, err := s.repo.GetProductBySlug(ctx, slug)
	if err != nil {
		if err == ErrProductNotFound {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("service: failed to get product by slug: %w", err)
	}

	s.cachedSet(ctx, "product", slug, p)
	return p, nil
}

// GetVariantsByIDs always reads the database: stock and price feed order
// creation and must not be served stale.
func (s *service) GetVariantsByIDs(ctx context.Context, ids []uuid.UUID) ([]Variant, error) {
	variants, err := s.repo.GetVariantsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get variants: %w", err)
	}
	return variants, nil
}

// cachedGet reports whether the key was found and decoded. Cache errors are
// logged and treated as misses so Redis outages degrade to database reads.
func (s *service) cachedGet(ctx context.Context, operation, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}

	raw, err := s.cache.Get(ctx, s.cache.GenerateKey(operation, key))
	if err != nil {
		log.Warn().Err(err).Str("operation", operation).Str("key", key).Msg("catalog: cache read failed")
		return false
	}
	if raw == "" {
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		log.Warn().Err(err).Str("operation", operation).Str("key", key).Msg("catalog: cache entry corrupt")
		return false
	}

	return true
}

func (s *service) cachedSet(ctx context.Context, operation, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("operation", operation).Str("key", key).Msg("catalog: failed to marshal cache entry")
		return
	}

	if err := s.cache.Set(ctx, s.cache.GenerateKey(operation, key), string(raw), s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("operation", operation).Str("key", key).Msg("catalog: cache write failed")
	}
}
