package category_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/category"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/transport"
)

type token string

func (t token) Token() string { return string(t) }

func ptr[T any](v T) *T { return &v }

type backend struct {
	mu         sync.Mutex
	categories map[uint64]*models.Category
	hits       map[string]int
}

func (b *backend) hit(r *http.Request) {
	b.mu.Lock()
	b.hits[r.Method+" "+r.URL.Path]++
	b.mu.Unlock()
}

func (b *backend) Hits(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[key]
}

func newBackend(t *testing.T) (*backend, category.Repository) {
	t.Helper()
	b := &backend{
		categories: map[uint64]*models.Category{
			1: {ID: 1, Name: "Clothing"},
			2: {ID: 2, Name: "Shirts", ParentID: ptr[uint64](1)},
			3: {ID: 3, Name: "Shoes"},
		},
		hits: make(map[string]int),
	}

	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	ordered := func() []*models.Category {
		out := make([]*models.Category, 0, len(b.categories))
		for id := uint64(1); id <= uint64(len(b.categories))+10; id++ {
			if c, ok := b.categories[id]; ok {
				out = append(out, c)
			}
		}
		return out
	}

	router := mux.NewRouter()
	router.HandleFunc("/categories", func(w http.ResponseWriter, r *http.Request) {
		b.hit(r)
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.Method == http.MethodPost {
			var c models.Category
			_ = json.NewDecoder(r.Body).Decode(&c)
			c.ID = uint64(len(b.categories) + 1)
			b.categories[c.ID] = &c
			writeJSON(w, c)
			return
		}
		all := ordered()
		if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit < len(all) {
			all = all[:limit]
		}
		writeJSON(w, all)
	}).Methods(http.MethodGet, http.MethodPost)

	router.HandleFunc("/categories/{id:[0-9]+}", func(w http.ResponseWriter, r *http.Request) {
		b.hit(r)
		id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		c, ok := b.categories[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, c)
		case http.MethodPut:
			_ = json.NewDecoder(r.Body).Decode(c)
			writeJSON(w, c)
		case http.MethodDelete:
			delete(b.categories, id)
			w.WriteHeader(http.StatusNoContent)
		}
	}).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)

	router.HandleFunc("/categories/{id:[0-9]+}/subcategories", func(w http.ResponseWriter, r *http.Request) {
		b.hit(r)
		id, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
		b.mu.Lock()
		defer b.mu.Unlock()
		var out []*models.Category
		for _, c := range ordered() {
			if c.ParentID != nil && *c.ParentID == id {
				out = append(out, c)
			}
		}
		writeJSON(w, out)
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	client, err := transport.New(srv.URL, token("t"), zap.NewNop())
	require.NoError(t, err)
	return b, category.NewRepository(client, cache.NewLocal(nil), zap.NewNop())
}

func TestGetByIDIsCached(t *testing.T) {
	ctx := context.Background()
	b, repo := newBackend(t)

	first, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)

	assert.Equal(t, "Shirts", first.Name)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, b.Hits("GET /categories/2"))

	// callers never share memory with the cache
	second.Name = "mutated"
	third, err := repo.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Shirts", third.Name)
}

func TestWritesInvalidateEveryCategoryKey(t *testing.T) {
	ctx := context.Background()
	b, repo := newBackend(t)

	_, err := repo.List(ctx, 10, 0)
	require.NoError(t, err)
	_, err = repo.ListSubcategories(ctx, 1)
	require.NoError(t, err)
	_, err = repo.GetByID(ctx, 3)
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, &models.Category{ID: 3, Name: "Footwear"}))

	got, err := repo.GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Footwear", got.Name)
	_, err = repo.List(ctx, 10, 0)
	require.NoError(t, err)
	_, err = repo.ListSubcategories(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, b.Hits("GET /categories/3"))
	assert.Equal(t, 2, b.Hits("GET /categories"))
	assert.Equal(t, 2, b.Hits("GET /categories/1/subcategories"))
}

func TestCreateAndDelete(t *testing.T) {
	ctx := context.Background()
	_, repo := newBackend(t)

	before, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, before, 3)

	created := &models.Category{Name: "Hats"}
	require.NoError(t, repo.Create(ctx, created))
	assert.Equal(t, uint64(4), created.ID)

	after, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, after, 4)

	require.NoError(t, repo.Delete(ctx, 4))
	_, err = repo.GetByID(ctx, 4)
	var se *transport.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestTree(t *testing.T) {
	_, repo := newBackend(t)

	roots, err := repo.Tree(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "Clothing", roots[0].Name)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "Shirts", roots[0].Children[0].Name)
	assert.Equal(t, "Shoes", roots[1].Name)
	assert.Empty(t, roots[1].Children)
}

func TestBuildTreeDropsOrphans(t *testing.T) {
	roots := category.BuildTree([]*models.Category{
		{ID: 1, Name: "root"},
		{ID: 2, Name: "orphan", ParentID: ptr[uint64](99)},
		{ID: 3, Name: "child", ParentID: ptr[uint64](1)},
		{ID: 4, Name: "grandchild", ParentID: ptr[uint64](3)},
	})

	require.Len(t, roots, 1)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "child", roots[0].Children[0].Name)
	require.Len(t, roots[0].Children[0].Children, 1)
	assert.Equal(t, "grandchild", roots[0].Children[0].Children[0].Name)
}
