package application_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/internal/application"
	"github.com/oksasatya/library-catalog/internal/domain/apperr"
	"github.com/oksasatya/library-catalog/pkg/helpers"
)

// fakeES keeps the last document indexed per id.
type fakeES struct {
	mu   sync.Mutex
	docs map[string]map[string]any
	fail bool
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"unavailable"}`))
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodPut && len(parts) == 3 && parts[1] == "_doc":
		var doc map[string]any
		if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.docs[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.Method == http.MethodDelete && len(parts) == 3:
		delete(f.docs, parts[2])
		_, _ = w.Write([]byte(`{"result":"deleted"}`))
	default:
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}
}

func (f *fakeES) available(t *testing.T, id string) int {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	require.True(t, ok, "book %s was never indexed", id)
	return int(doc["available_copies"].(float64))
}

func withIndex(t *testing.T, f *fixture) *fakeES {
	t.Helper()
	fake := &fakeES{docs: map[string]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	index := application.NewBookIndex(es, "books", helpers.NewDiscardLogger())
	f.catalog.Index = index
	f.borrows.Index = index
	return fake
}

func TestBorrowAndReturnReindexAvailability(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	fake := withIndex(t, f)
	b := f.book(t, "Dune", 2)
	r := f.reader(t, "Ann", nil)
	assert.Equal(t, 2, fake.available(t, b.ID))

	rec, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.available(t, b.ID))

	_, err = f.borrows.ReturnBorrow(f.ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.available(t, b.ID))
}

func TestIndexFailureDoesNotUndoBorrow(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	fake := withIndex(t, f)
	b := f.book(t, "Dune", 1)
	r := f.reader(t, "Ann", nil)

	fake.mu.Lock()
	fake.fail = true
	fake.mu.Unlock()

	_, err := f.borrows.CreateBorrow(f.ctx, r.ID, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, b.ID))

	_, err = f.catalog.ReindexBooks(f.ctx)
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestDeleteBookRemovesDocument(t *testing.T) {
	f := newFixture(t, application.LendingPolicy{})
	fake := withIndex(t, f)
	b := f.book(t, "Dune", 1)

	require.NoError(t, f.catalog.DeleteBook(f.ctx, b.ID))
	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.NotContains(t, fake.docs, b.ID)
}
