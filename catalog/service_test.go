package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-shop-client/catalog"
	"github.com/jrsteele09/go-shop-client/client"
	"github.com/jrsteele09/go-shop-client/kvstore"
	"github.com/jrsteele09/go-shop-client/session"
)

type fakeCatalogAPI struct {
	t *testing.T

	listCalls   atomic.Int32
	getCalls    atomic.Int32
	updateCalls atomic.Int32
	searchCalls atomic.Int32
	published   atomic.Int32
	unpublished atomic.Int32

	mu           sync.Mutex
	lastCategory string
}

func (a *fakeCatalogAPI) category() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastCategory
}

func newCatalogFixture(t *testing.T, options ...catalog.ServiceOption) (*fakeCatalogAPI, *catalog.Service) {
	t.Helper()

	api := &fakeCatalogAPI{t: t}
	mux := http.NewServeMux()
	mux.HandleFunc("/product/published", func(w http.ResponseWriter, r *http.Request) {
		api.listCalls.Add(1)
		api.envelope(w, []map[string]any{
			{"_id": "p1", "product_name": "widget", "product_price": 10.0, "isPublished": true},
			{"_id": "p2", "product_name": "gadget", "product_price": 20.0, "isPublished": true},
		})
	})
	mux.HandleFunc("/product/hot", func(w http.ResponseWriter, r *http.Request) {
		api.listCalls.Add(1)
		api.envelope(w, []map[string]any{
			{"_id": "p2", "product_name": "gadget", "product_hot": true},
		})
	})
	mux.HandleFunc("/product/search/", func(w http.ResponseWriter, r *http.Request) {
		api.searchCalls.Add(1)
		api.mu.Lock()
		api.lastCategory = r.URL.Path[len("/product/search/"):]
		api.mu.Unlock()
		api.envelope(w, []map[string]any{{"_id": "p1", "product_name": "widget"}})
	})
	mux.HandleFunc("/product/findOne/", func(w http.ResponseWriter, r *http.Request) {
		api.getCalls.Add(1)
		api.envelope(w, map[string]any{
			"_id": "p1", "product_name": "widget",
			"product_attributes": map[string]any{"color": "red"},
		})
	})
	mux.HandleFunc("/product/update/", func(w http.ResponseWriter, r *http.Request) {
		api.updateCalls.Add(1)
		var fields map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
		api.envelope(w, map[string]any{"_id": "p1", "product_name": fields["product_name"]})
	})
	mux.HandleFunc("/product/publish/", func(w http.ResponseWriter, r *http.Request) {
		api.published.Add(1)
		api.envelope(w, nil)
	})
	mux.HandleFunc("/product/unpublished/", func(w http.ResponseWriter, r *http.Request) {
		api.unpublished.Add(1)
		api.envelope(w, nil)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	store := session.NewStore(kvstore.NewMemory())
	require.NoError(t, store.Save(context.Background(), session.Session{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		User:         &session.User{ID: "u1"},
	}))

	service := catalog.NewService(client.New(server.URL, store), options...)
	t.Cleanup(service.Close)
	return api, service
}

func (a *fakeCatalogAPI) envelope(w http.ResponseWriter, metadata any) {
	w.Header().Set("Content-Type", "application/json")
	body := map[string]any{"message": "OK", "code": 200}
	if metadata != nil {
		body["metadata"] = metadata
	}
	require.NoError(a.t, json.NewEncoder(w).Encode(body))
}

func TestPublishedListingIsCached(t *testing.T) {
	api, service := newCatalogFixture(t)
	ctx := context.Background()

	first, err := service.Published(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, "widget", first[0].Name)

	second, err := service.Published(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), api.listCalls.Load(), "second read must come from cache")
}

func TestCacheExpires(t *testing.T) {
	api, service := newCatalogFixture(t, catalog.WithCacheTTL(30*time.Millisecond))
	ctx := context.Background()

	_, err := service.Published(ctx)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, err := service.Published(ctx)
		require.NoError(t, err)
		return api.listCalls.Load() >= 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestSearchKeyedByCategory(t *testing.T) {
	api, service := newCatalogFixture(t)
	ctx := context.Background()

	_, err := service.Search(ctx, "Electronics")
	require.NoError(t, err)
	require.Equal(t, "Electronics", api.category())

	_, err = service.Search(ctx, "Electronics")
	require.NoError(t, err)
	require.Equal(t, int32(1), api.searchCalls.Load())

	_, err = service.Search(ctx, "Clothing")
	require.NoError(t, err)
	require.Equal(t, int32(2), api.searchCalls.Load(), "a different category is a different cache entry")
}

func TestGetProductCached(t *testing.T) {
	api, service := newCatalogFixture(t)
	ctx := context.Background()

	p, err := service.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "widget", p.Name)
	require.Equal(t, "red", p.Attributes.Color)

	_, err = service.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int32(1), api.getCalls.Load())
}

func TestUpdateInvalidatesCaches(t *testing.T) {
	api, service := newCatalogFixture(t)
	ctx := context.Background()

	_, err := service.Published(ctx)
	require.NoError(t, err)
	_, err = service.Get(ctx, "p1")
	require.NoError(t, err)

	updated, err := service.Update(ctx, "p1", map[string]any{"product_name": "widget v2"})
	require.NoError(t, err)
	require.Equal(t, "widget v2", updated.Name)

	_, err = service.Published(ctx)
	require.NoError(t, err)
	_, err = service.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, int32(2), api.listCalls.Load())
	require.Equal(t, int32(2), api.getCalls.Load())
}

func TestPublishStateChangesInvalidateListings(t *testing.T) {
	api, service := newCatalogFixture(t)
	ctx := context.Background()

	_, err := service.Published(ctx)
	require.NoError(t, err)

	require.NoError(t, service.Unpublish(ctx, "p1"))
	require.Equal(t, int32(1), api.unpublished.Load())

	_, err = service.Published(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), api.listCalls.Load())

	require.NoError(t, service.Publish(ctx, "p1"))
	require.Equal(t, int32(1), api.published.Load())

	_, err = service.Published(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(3), api.listCalls.Load())
}
