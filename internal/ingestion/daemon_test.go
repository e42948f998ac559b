package ingestion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/tree"
)

const ordersJSON = `{"Orders": [{"data": {"id": 1}}, {"data": {"id": 2}}]}`

func newTestDaemon(t *testing.T, mutate func(*Config)) (*DaemonIngester, *database.DBService, string) {
	t.Helper()
	store, err := database.NewDBService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	dir := t.TempDir()
	cfg := Config{
		WatchDir:      dir,
		BatchSize:     10,
		FlushInterval: 20 * time.Millisecond,
		Debounce:      10 * time.Millisecond,
		DefaultTitle:  "data",
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewDaemonIngester(cfg, store, nil), store, dir
}

func documentCount(t *testing.T, store database.Store) int {
	t.Helper()
	docs, err := store.ListDocuments(database.DocumentFilter{})
	require.NoError(t, err)
	return len(docs)
}

func TestDaemonIngestsExistingAndNewFiles(t *testing.T) {
	d, store, dir := newTestDaemon(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.json"), []byte(ordersJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.Eventually(t, func() bool { return documentCount(t, store) == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "people.yaml"), []byte("- name: Ada\n- name: Alan\n"), 0o644))
	require.Eventually(t, func() bool { return documentCount(t, store) == 2 },
		2*time.Second, 10*time.Millisecond)

	people, err := store.GetDocument("people")
	require.NoError(t, err)
	assert.Equal(t, "data", people.Title)
	assert.Equal(t, 2, people.Records)
	assert.Equal(t, filepath.Join(dir, "people.yaml"), people.Source)

	require.Eventually(t, func() bool { return d.Metrics().RecordsIngested >= 4 },
		2*time.Second, 10*time.Millisecond)
	m := d.Metrics()
	assert.GreaterOrEqual(t, m.DocumentsIngested, int64(2))
	assert.GreaterOrEqual(t, m.BatchesCommitted, int64(1))
	assert.Zero(t, m.ErrorCount)

	require.Eventually(t, func() bool {
		pending, err := store.GetPendingPayloads()
		return err == nil && len(pending) == 0
	}, 2*time.Second, 10*time.Millisecond, "saved documents commit their staged payload")
}

func TestDaemonCountsBadFiles(t *testing.T) {
	d, store, dir := newTestDaemon(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"X": [`), 0o644))

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	require.Eventually(t, func() bool { return d.Metrics().ErrorCount == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, documentCount(t, store))

	pending, err := store.GetPendingPayloads()
	require.NoError(t, err)
	assert.Empty(t, pending, "undecodable payloads are not replayed")
}

func TestDaemonReplaysPendingWrites(t *testing.T) {
	d, store, _ := newTestDaemon(t, nil)
	_, err := store.WritePendingPayload("/lost/orders.json", []byte(ordersJSON))
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	doc, err := store.GetDocument("orders")
	require.NoError(t, err)
	assert.Equal(t, "/lost/orders.json", doc.Source)
	assert.Equal(t, int64(1), d.Metrics().PendingReplayed)

	pending, err := store.GetPendingPayloads()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDaemonStopFlushesBuffer(t *testing.T) {
	d, store, _ := newTestDaemon(t, func(c *Config) { c.FlushInterval = time.Hour })
	require.NoError(t, d.Start(context.Background()))

	doc, err := database.NewDocument("buffered", "test", tree.New("T", tree.Record{}))
	require.NoError(t, err)
	writeID, err := store.WritePendingPayload("test", []byte(`{"T": [{}]}`))
	require.NoError(t, err)
	d.docs <- staged{doc: doc, writeID: writeID}

	require.NoError(t, d.Stop())
	require.NoError(t, d.Stop(), "second stop is a no-op")

	_, err = store.GetDocument("buffered")
	assert.NoError(t, err)
	assert.Equal(t, int64(1), d.Metrics().DocumentsIngested)
}

func TestHandler(t *testing.T) {
	d, _, _ := newTestDaemon(t, nil)
	d.metrics.DocumentsIngested = 3
	d.metrics.ErrorCount = 1

	srv := httptest.NewServer(d.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	var health map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "ok", health["status"])

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), "jsonview_documents_ingested_total 3\n")
	assert.Contains(t, string(body), "# TYPE jsonview_uptime_seconds gauge")

	m, err := FetchMetrics(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.DocumentsIngested)
	assert.Equal(t, int64(1), m.ErrorCount)

	resp, err = http.Post(srv.URL+"/health", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestDaemonServesMetrics(t *testing.T) {
	d, _, _ := newTestDaemon(t, func(c *Config) { c.MetricsAddr = "127.0.0.1:0" })
	require.NoError(t, d.Start(context.Background()))
	defer d.Stop()

	addr := d.MetricsAddr()
	require.NotEmpty(t, addr)
	m, err := FetchMetrics(context.Background(), nil, addr)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Uptime, int64(0))
}

func TestFetchMetricsUnreachable(t *testing.T) {
	_, err := FetchMetrics(context.Background(), nil, "127.0.0.1:1")
	assert.Error(t, err)
}
