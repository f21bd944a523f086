package transport_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofalre.io/storefront/transport"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/echo", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&body)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"method":      r.Method,
			"auth":        r.Header.Get("Authorization"),
			"idempotency": r.Header.Get("Idempotency-Key"),
			"client":      r.Header.Get("X-Client"),
			"query":       r.URL.RawQuery,
			"body":        body,
			"price":       12.50,
		})
	}).Methods(http.MethodGet, http.MethodPost)

	api.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such thing", http.StatusNotFound)
	})

	api.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestDo(t *testing.T) {
	srv := newServer(t)
	client, err := transport.New(srv.URL+"/api/", staticToken("tok"), nil, transport.WithHeader("X-Client", "storefront"))
	require.NoError(t, err)

	ctx := transport.WithIdempotencyKey(context.Background(), "idem-1")

	var out map[string]any
	err = client.Do(ctx, http.MethodPost, "/echo", url.Values{"b": {"2"}, "a": {"1"}}, map[string]int{"quantity": 2}, &out)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, out["method"])
	assert.Equal(t, "Bearer tok", out["auth"])
	assert.Equal(t, "idem-1", out["idempotency"])
	assert.Equal(t, "storefront", out["client"])
	assert.Equal(t, "a=1&b=2", out["query"])
	assert.Equal(t, json.Number("12.5"), out["price"])
	assert.Equal(t, map[string]any{"quantity": json.Number("2")}, out["body"])
}

func TestDoAnonymous(t *testing.T) {
	srv := newServer(t)
	client, err := transport.New(srv.URL+"/api", staticToken(""), nil)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, client.Do(context.Background(), http.MethodGet, "echo", nil, nil, &out))
	assert.Empty(t, out["auth"])
	assert.Empty(t, out["idempotency"])
}

func TestDoStatusError(t *testing.T) {
	srv := newServer(t)
	client, err := transport.New(srv.URL+"/api", nil, nil)
	require.NoError(t, err)

	err = client.Do(context.Background(), http.MethodGet, "/missing", nil, nil, nil)
	require.Error(t, err)

	var statusErr *transport.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode())
	assert.Equal(t, "no such thing", statusErr.Body)
	assert.Contains(t, err.Error(), "404")
}

func TestDoNoContent(t *testing.T) {
	srv := newServer(t)
	client, err := transport.New(srv.URL+"/api", nil, nil)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, client.Do(context.Background(), http.MethodDelete, "/empty", nil, nil, &out))
	assert.Nil(t, out)
}

func TestDoNetworkError(t *testing.T) {
	srv := newServer(t)
	client, err := transport.New(srv.URL, nil, nil)
	require.NoError(t, err)
	srv.Close()

	err = client.Do(context.Background(), http.MethodGet, "/api/echo", nil, nil, nil)
	require.Error(t, err)

	var statusErr *transport.StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := transport.New("", nil, nil)
	assert.ErrorIs(t, err, transport.ErrNoBaseURL)
}

func TestDoKeepsEscapedPath(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.EscapedPath())
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	client, err := transport.New(srv.URL+"/api", nil, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Do(ctx, http.MethodGet, "/products/"+url.PathEscape("red shoe/42"), nil, nil, nil))
	require.NoError(t, client.Do(ctx, http.MethodGet, "products/plain", nil, nil, nil))

	err = client.Do(ctx, http.MethodGet, "/products/%zz", nil, nil, nil)
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/api/products/red%20shoe%2F42", "/api/products/plain"}, seen)
}
