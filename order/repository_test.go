package order_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/models/enum"
	"gofalre.io/storefront/order"
	"gofalre.io/storefront/transport"
)

type token string

func (t token) Token() string { return string(t) }

type orderBackend struct {
	mu     sync.Mutex
	orders []*models.Order
	hits   map[string]int
	keys   []string
}

func (b *orderBackend) Hits(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

func setup(t *testing.T) (*orderBackend, order.Repository) {
	t.Helper()
	b := &orderBackend{
		orders: []*models.Order{
			{ID: 1, Status: enum.OrderStatusShipped, Currency: "USD", Total: decimal.NewFromInt(30)},
		},
		hits: make(map[string]int),
	}
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	router := mux.NewRouter()
	router.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.hits[r.Method+" /orders"]++
		if r.Method == http.MethodGet {
			writeJSON(w, b.orders)
			return
		}
		var req order.PlaceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.LineIDs) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		b.keys = append(b.keys, r.Header.Get("Idempotency-Key"))
		o := &models.Order{ID: uint64(len(b.orders) + 1), Status: enum.OrderStatusPending, Currency: req.Currency}
		for _, id := range req.LineIDs {
			o.Items = append(o.Items, models.OrderItem{ProductID: "line-" + id, Quantity: 1})
		}
		b.orders = append(b.orders, o)
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, o)
	}).Methods(http.MethodGet, http.MethodPost)

	router.HandleFunc("/orders/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
		b.hits["GET /orders/"+mux.Vars(r)["id"]]++
		for _, o := range b.orders {
			if o.ID == id {
				writeJSON(w, o)
				return
			}
		}
		http.NotFound(w, r)
	}).Methods(http.MethodGet)

	router.HandleFunc("/orders/{id:[0-9]+}/cancel", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
		for _, o := range b.orders {
			if o.ID != id {
				continue
			}
			if !o.CanCancel() {
				http.Error(w, "order already shipped", http.StatusConflict)
				return
			}
			o.Status = enum.OrderStatusCancelled
			writeJSON(w, o)
			return
		}
		http.NotFound(w, r)
	}).Methods(http.MethodPost)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client, err := transport.New(srv.URL, token("t"), zap.NewNop())
	require.NoError(t, err)
	return b, order.NewRepository(client, cache.NewLocal(nil), zap.NewNop())
}

func TestPlaceInvalidatesListing(t *testing.T) {
	ctx := context.Background()
	b, repo := setup(t)

	orders, err := repo.List(ctx, "u-1", 1, 10)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	_, err = repo.List(ctx, "u-1", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Hits("GET /orders"))

	placed, err := repo.Place(ctx, "u-1", order.PlaceRequest{LineIDs: []string{"7", "9"}, Currency: "USD"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), placed.ID)
	assert.Equal(t, enum.OrderStatusPending, placed.Status)
	assert.Len(t, placed.Items, 2)

	orders, err = repo.List(ctx, "u-1", 1, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 2)
	assert.Equal(t, 2, b.Hits("GET /orders"))

	b.mu.Lock()
	require.Len(t, b.keys, 1)
	assert.NotEmpty(t, b.keys[0])
	b.mu.Unlock()
}

func TestGetIsCachedPerUser(t *testing.T) {
	ctx := context.Background()
	b, repo := setup(t)

	_, err := repo.Get(ctx, "u-1", 1)
	require.NoError(t, err)
	_, err = repo.Get(ctx, "u-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Hits("GET /orders/1"))

	_, err = repo.Get(ctx, "u-2", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Hits("GET /orders/1"))
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	b, repo := setup(t)

	placed, err := repo.Place(ctx, "u-1", order.PlaceRequest{LineIDs: []string{"1"}})
	require.NoError(t, err)
	_, err = repo.Get(ctx, "u-1", placed.ID)
	require.NoError(t, err)

	cancelled, err := repo.Cancel(ctx, "u-1", placed.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCancelled, cancelled.Status)

	got, err := repo.Get(ctx, "u-1", placed.ID)
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusCancelled, got.Status)
	assert.Equal(t, 2, b.Hits("GET /orders/2"))

	_, err = repo.Cancel(ctx, "u-1", 1)
	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Status)
}
