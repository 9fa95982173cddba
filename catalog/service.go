// Package catalog covers the product browsing surface of the shop API,
// fronted by a short-lived cache so repeated page views do not hammer
// the catalog endpoints.
package catalog

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-shop-client/client"
)

// ProductAttributes mirrors the attribute block on a product document.
type ProductAttributes struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Color        string `json:"color"`
}

// ProductShop identifies the selling shop on a product document.
type ProductShop struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product is a catalog entry as the API returns it.
type Product struct {
	ID          string            `json:"_id"`
	Name        string            `json:"product_name"`
	Thumb       string            `json:"product_thumb"`
	Description string            `json:"product_description"`
	Price       float64           `json:"product_price"`
	Quantity    int               `json:"product_quantity"`
	Type        string            `json:"product_type"`
	Shop        ProductShop       `json:"product_shop"`
	Attributes  ProductAttributes `json:"product_attributes"`
	Images      []string          `json:"product_images,omitempty"`
	Colors      []string          `json:"product_colors,omitempty"`
	Sizes       []string          `json:"product_sizes,omitempty"`
	IsDraft     bool              `json:"isDraft"`
	IsPublished bool              `json:"isPublished"`
	Hot         bool              `json:"product_hot"`
}

// DefaultCacheTTL bounds how stale a cached product listing may get.
const DefaultCacheTTL = 2 * time.Minute

// Cache keys for the listing cache.
const (
	keyPublished      = "published"
	keyHot            = "hot"
	keySearchPrefix   = "search:"
	keyFindOnePrefix  = "product:"
	publishedPath     = "/product/published"
	hotPath           = "/product/hot"
	searchPathPrefix  = "/product/search/"
	findOnePathPrefix = "/product/findOne/"
)

// Service fetches products through the shared client.
type Service struct {
	client    *client.Client
	listCache *ttlcache.Cache[string, []Product]
	itemCache *ttlcache.Cache[string, *Product]
	logger    zerolog.Logger
}

// ServiceOption modifies the Service during construction.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	ttl    time.Duration
	logger zerolog.Logger
}

// WithCacheTTL overrides the listing cache lifetime.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(cfg *serviceConfig) { cfg.ttl = ttl }
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(cfg *serviceConfig) { cfg.logger = logger }
}

func NewService(c *client.Client, options ...ServiceOption) *Service {
	cfg := serviceConfig{ttl: DefaultCacheTTL, logger: zerolog.Nop()}
	for _, opt := range options {
		opt(&cfg)
	}
	listCache := ttlcache.New(
		ttlcache.WithTTL[string, []Product](cfg.ttl),
		ttlcache.WithDisableTouchOnHit[string, []Product](),
	)
	itemCache := ttlcache.New(
		ttlcache.WithTTL[string, *Product](cfg.ttl),
		ttlcache.WithDisableTouchOnHit[string, *Product](),
	)
	go listCache.Start()
	go itemCache.Start()
	return &Service{
		client:    c,
		listCache: listCache,
		itemCache: itemCache,
		logger:    cfg.logger,
	}
}

// Close stops the cache janitors.
func (s *Service) Close() {
	s.listCache.Stop()
	s.itemCache.Stop()
}

// Published returns the published product listing.
func (s *Service) Published(ctx context.Context) ([]Product, error) {
	return s.listing(ctx, keyPublished, publishedPath)
}

// Hot returns the featured product listing.
func (s *Service) Hot(ctx context.Context) ([]Product, error) {
	return s.listing(ctx, keyHot, hotPath)
}

// Search returns products matching a category.
func (s *Service) Search(ctx context.Context, category string) ([]Product, error) {
	return s.listing(ctx, keySearchPrefix+category, searchPathPrefix+category)
}

// Get returns a single product by id.
func (s *Service) Get(ctx context.Context, productID string) (*Product, error) {
	if item := s.itemCache.Get(keyFindOnePrefix + productID); item != nil {
		return item.Value(), nil
	}
	var p Product
	if err := s.client.Get(ctx, findOnePathPrefix+productID, &p); err != nil {
		return nil, errors.Wrap(err, "[Service.Get] find one")
	}
	s.itemCache.Set(keyFindOnePrefix+productID, &p, ttlcache.DefaultTTL)
	return &p, nil
}

// Update patches a product document and drops it from the cache. The
// fields map is sent as-is so partial updates stay partial.
func (s *Service) Update(ctx context.Context, productID string, fields map[string]any) (*Product, error) {
	var p Product
	if err := s.client.Patch(ctx, "/product/update/"+productID, fields, &p); err != nil {
		return nil, errors.Wrap(err, "[Service.Update] update product")
	}
	s.invalidate(productID)
	return &p, nil
}

// Publish puts a draft product onto the storefront listing.
func (s *Service) Publish(ctx context.Context, productID string) error {
	if err := s.client.Post(ctx, "/product/publish/"+productID, struct{}{}, nil); err != nil {
		return errors.Wrap(err, "[Service.Publish] publish product")
	}
	s.invalidate(productID)
	return nil
}

// Unpublish removes a product from the storefront listing.
func (s *Service) Unpublish(ctx context.Context, productID string) error {
	if err := s.client.Post(ctx, "/product/unpublished/"+productID, struct{}{}, nil); err != nil {
		return errors.Wrap(err, "[Service.Unpublish] unpublish product")
	}
	s.invalidate(productID)
	return nil
}

func (s *Service) listing(ctx context.Context, cacheKey, path string) ([]Product, error) {
	if item := s.listCache.Get(cacheKey); item != nil {
		return item.Value(), nil
	}
	var products []Product
	if err := s.client.Get(ctx, path, &products); err != nil {
		return nil, errors.Wrapf(err, "[Service.listing] %s", path)
	}
	s.listCache.Set(cacheKey, products, ttlcache.DefaultTTL)
	return products, nil
}

func (s *Service) invalidate(productID string) {
	s.itemCache.Delete(keyFindOnePrefix + productID)
	s.listCache.DeleteAll()
	s.logger.Debug().Str("product_id", productID).Msg("catalog cache invalidated")
}
