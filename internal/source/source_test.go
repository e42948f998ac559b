package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/tree"
)

const ordersJSON = `{"Orders": [{"data": {"id": 1, "total": 10}, "kids": {"Items": [{"data": {"sku": "A"}}]}}]}`

func TestLoadStdin(t *testing.T) {
	doc, err := Load(context.Background(), "-", Options{Stdin: strings.NewReader(ordersJSON)})
	require.NoError(t, err)
	assert.Equal(t, "Orders", doc.Tree.Title)
	assert.Equal(t, "-", doc.Ref)
	assert.False(t, doc.LoadedAt.IsZero())
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"orders.json": ordersJSON,
		"orders.yaml": "Orders:\n  - data: {id: 1}\n",
		"orders.txt":  ordersJSON,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	for name := range files {
		t.Run(name, func(t *testing.T) {
			doc, err := Load(context.Background(), filepath.Join(dir, name), Options{})
			require.NoError(t, err)
			assert.Equal(t, "Orders", doc.Tree.Title)
			assert.Len(t, doc.Tree.Group, 1)
		})
	}

	_, err := Load(context.Background(), filepath.Join(dir, "missing.json"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestLoadWrapsBareArray verifies that a fetched array lands under the
// configured title.
func TestLoadWrapsBareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 1, "name": "Ada"}, {"id": 2, "name": "Alan"}]`))
	}))
	defer srv.Close()

	doc, err := Load(context.Background(), srv.URL+"/people.json", Options{Title: "people"})
	require.NoError(t, err)
	assert.Equal(t, "people", doc.Tree.Title)
	assert.Equal(t, []string{"id", "name"}, doc.Tree.Columns())
	assert.Len(t, doc.Tree.Group, 2)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(ordersJSON))
	}))
	defer srv.Close()

	doc, err := Load(context.Background(), srv.URL, Options{Retries: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, "Orders", doc.Tree.Title)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL, Options{Retries: 3, RetryDelay: time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := Load(context.Background(), srv.URL, Options{Retries: 1, RetryDelay: time.Millisecond})
	var retryable *RetryableError
	assert.True(t, errors.As(err, &retryable))
	assert.ErrorIs(t, err, ErrFetch)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, 5, time.Hour, func() error {
		calls++
		cancel()
		return &RetryableError{Err: errors.New("boom")}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetryDoublesWaits(t *testing.T) {
	var waits []time.Duration
	calls := 0
	err := retry(context.Background(), 4, time.Millisecond,
		func(attempt int, wait time.Duration, err error) {
			assert.Equal(t, len(waits)+1, attempt)
			waits = append(waits, wait)
		},
		func() error {
			calls++
			return &RetryableError{Err: errors.New("boom")}
		})
	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{time.Millisecond, 2 * time.Millisecond, 4 * time.Millisecond}, waits)
}

func TestRetryNonPositiveAttempts(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 0, time.Hour, func() error {
		calls++
		return &RetryableError{Err: errors.New("boom")}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestLoadFromStore(t *testing.T) {
	_, err := Load(context.Background(), "store:orders", Options{})
	assert.ErrorIs(t, err, ErrNoStore)

	store, err := database.NewDBService(":memory:")
	require.NoError(t, err)
	defer store.Close()

	saved, err := database.NewDocument("orders", "test", tree.New("Orders"))
	require.NoError(t, err)
	require.NoError(t, store.SaveDocument(saved))

	doc, err := Load(context.Background(), "store:orders", Options{Store: store})
	require.NoError(t, err)
	assert.Equal(t, "Orders", doc.Tree.Title)

	_, err = Load(context.Background(), "store:nope", Options{Store: store})
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestLoadReportsIgnoredTitles(t *testing.T) {
	doc, err := Load(context.Background(), "-", Options{Stdin: strings.NewReader(`{"A": [], "B": []}`)})
	require.NoError(t, err)
	assert.Equal(t, []string{"B"}, doc.Ignored)
}

func TestName(t *testing.T) {
	tests := map[string]string{
		"-":                                   "stdin",
		"store:orders":                        "orders",
		"/tmp/data/orders.json":               "orders",
		"people.yaml":                         "people",
		"https://example.com/api/users.json":  "users",
		"https://example.com/api/users?x=1#f": "users",
		"https://example.com/":                "download",
	}
	for in, want := range tests {
		assert.Equal(t, want, Name(in), "Name(%q)", in)
	}
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.json"))
	assert.True(t, Supported("a.YML"))
	assert.True(t, Supported("a.yaml"))
	assert.False(t, Supported("a.txt"))
	assert.False(t, Supported("json"))
}

func TestWatchDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(ordersJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired atomic.Int32
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, path, 20*time.Millisecond, func() { fired.Add(1) }) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	for range 3 {
		require.NoError(t, os.WriteFile(path, []byte(ordersJSON), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("[]"), 0o644))

	require.Eventually(t, func() bool { return fired.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())

	cancel()
	require.NoError(t, <-done)
}
