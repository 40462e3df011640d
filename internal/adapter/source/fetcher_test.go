package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPFetcher_Success(t *testing.T) {
	body := modelCSV(false, "", map[string]string{"001.": "1"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/results_2021.csv", r.URL.Path)
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/results_%d.csv", 5*time.Second, discardLogger())
	data, err := f.Fetch(context.Background(), 2021)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
}

func TestHTTPFetcher_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such year", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/%d.csv", 5*time.Second, discardLogger())
	_, err := f.Fetch(context.Background(), 1899)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "no such year")
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/%d.csv", 50*time.Millisecond, discardLogger())
	_, err := f.Fetch(context.Background(), 2000)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	body := modelCSV(false, "", map[string]string{"001.": "1", "002.": "2"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFileName(2005)), []byte(body), 0o600))

	src := NewCSVSource(NewDirFetcher(dir))

	records, err := src.Load(context.Background(), 2005, domain.Phosphorus)
	require.NoError(t, err)
	assert.Len(t, records, 22)

	_, err = src.Load(context.Background(), 2006, domain.Phosphorus)
	require.ErrorIs(t, err, domain.ErrDataUnavailable)
}

func TestCSVSource_SchemaMismatchNamesYear(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ModelFileName(2005)), []byte("regine,x\n001.,1\n"), 0o600))

	_, err := NewCSVSource(NewDirFetcher(dir)).Load(context.Background(), 2005, domain.Nitrogen)
	require.ErrorIs(t, err, domain.ErrSchemaMismatch)
	assert.Contains(t, err.Error(), "2005")
}

func TestDirFetcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDirFetcher(t.TempDir()).Fetch(ctx, 2000)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- cache ---

type countingFetcher struct {
	calls map[int]int
	err   error
}

func (m *countingFetcher) Fetch(_ context.Context, year int) ([]byte, error) {
	if m.calls == nil {
		m.calls = map[int]int{}
	}
	m.calls[year]++
	if m.err != nil {
		return nil, m.err
	}
	return []byte(fmt.Sprintf("table %d", year)), nil
}

func TestCachedFetcher_Hit(t *testing.T) {
	inner := &countingFetcher{}
	cached := NewCachedFetcher(inner, 10)

	d1, err := cached.Fetch(context.Background(), 2000)
	require.NoError(t, err)
	d2, err := cached.Fetch(context.Background(), 2000)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, inner.calls[2000], "should only call inner once")
}

func TestCachedFetcher_ErrorsNotCached(t *testing.T) {
	inner := &countingFetcher{err: errors.New("boom")}
	cached := NewCachedFetcher(inner, 10)

	_, err := cached.Fetch(context.Background(), 2000)
	require.Error(t, err)
	_, err = cached.Fetch(context.Background(), 2000)
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls[2000])
	assert.Equal(t, 0, cached.cache.size())
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[int, string](2)

	c.put(1, "a")
	c.put(2, "b")
	c.put(3, "c") // evicts 1

	_, ok := c.get(1)
	assert.False(t, ok, "1 should have been evicted")

	v, ok := c.get(2)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[int, string](2)

	c.put(1, "a")
	c.put(2, "b")
	c.get(1)
	c.put(3, "c") // evicts 2, the least recently used

	_, ok := c.get(2)
	assert.False(t, ok)
	_, ok = c.get(1)
	assert.True(t, ok)
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string, string](2)
	c.put("k", "old")
	c.put("k", "new")

	v, ok := c.get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, c.size())
}

// --- postgres ---

func TestModelQuery(t *testing.T) {
	query, args, err := modelQuery(2010, domain.Phosphorus)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT regine, variable, value FROM teotil_results WHERE year = $1 AND variable LIKE $2 ORDER BY regine, variable",
		query)
	assert.Equal(t, []any{2010, "accum_%-p_tonnes"}, args)
}

func TestRecordsFromRows(t *testing.T) {
	var rows []modelRow
	for _, v := range domain.RequiredVariables(domain.Nitrogen) {
		rows = append(rows,
			modelRow{Regine: "004.", Variable: v, Value: 2},
			modelRow{Regine: "400.", Variable: v, Value: 2},
		)
	}
	// LIKE treats '_' as a wildcard, so near misses must be filtered here.
	rows = append(rows, modelRow{Regine: "004.", Variable: "accum_x-n_tonnesX", Value: 1})

	records, err := recordsFromRows(2010, domain.Nitrogen, rows)
	require.NoError(t, err)
	assert.Len(t, records, 11)
	for _, r := range records {
		assert.Equal(t, "004.", r.CatchmentID)
		assert.Equal(t, 2010, r.Year)
	}

	t.Run("no rows", func(t *testing.T) {
		_, err := recordsFromRows(2010, domain.Nitrogen, nil)
		assert.ErrorIs(t, err, domain.ErrDataUnavailable)
	})
	t.Run("missing variable", func(t *testing.T) {
		_, err := recordsFromRows(2010, domain.Nitrogen, rows[2:])
		require.ErrorIs(t, err, domain.ErrSchemaMismatch)
		assert.True(t, strings.Contains(err.Error(), "accum_aqu_tot-n_tonnes"))
	})
}
