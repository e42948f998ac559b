// Package ingestion implements the crash-safe document ingestion daemon.
// It watches a drop directory, decodes every JSON or YAML file written
// there and batches the resulting documents into the library.
//
// Architecture:
//
//	drop dir → fsnotify → read + stage → decode → batch buffer → Store
//
// Each file's raw bytes are staged in the pending_writes table before
// decoding; the stage is committed only once the document is saved, so
// files read before a crash are replayed on the next start.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/Mr-Dark-debug/jsonview/internal/config"
	"github.com/Mr-Dark-debug/jsonview/internal/database"
	"github.com/Mr-Dark-debug/jsonview/internal/source"
	"github.com/Mr-Dark-debug/jsonview/internal/tree"
)

// Ingester defines the ingestion service lifecycle.
type Ingester interface {
	// Start begins watching and serving metrics.
	Start(ctx context.Context) error
	// Stop shuts down, flushing buffered documents.
	Stop() error
	// Metrics returns the current counters.
	Metrics() IngestionMetrics
}

// IngestionMetrics tracks throughput and error rates.
type IngestionMetrics struct {
	DocumentsIngested int64 `json:"documents_ingested"`
	RecordsIngested   int64 `json:"records_ingested"`
	ErrorCount        int64 `json:"errors"`
	BatchesCommitted  int64 `json:"batches_committed"`
	PendingReplayed   int64 `json:"pending_replayed"`
	Uptime            int64 `json:"uptime_seconds"`
}

// Config holds configuration for the ingestion daemon.
type Config struct {
	// WatchDir is the drop directory. It is created if missing.
	WatchDir string `json:"watch_dir"`

	// MetricsAddr is the HTTP address for health and metrics.
	// Empty disables the metrics server.
	MetricsAddr string `json:"metrics_addr"`

	// BatchSize is the maximum number of documents per transaction.
	BatchSize int `json:"batch_size"`

	// FlushInterval is the maximum time a document waits in the buffer.
	FlushInterval time.Duration `json:"flush_interval"`

	// Debounce is how long a file must stay quiet before it is read.
	Debounce time.Duration `json:"debounce"`

	// DefaultTitle names the group of files holding a bare array.
	DefaultTitle string `json:"default_title"`
}

// DefaultConfig returns the daemon defaults.
func DefaultConfig() Config {
	return FromConfig(config.Default())
}

// FromConfig extracts the daemon settings from the application config.
func FromConfig(c *config.Config) Config {
	return Config{
		WatchDir:      c.Daemon.WatchDir,
		MetricsAddr:   c.Daemon.MetricsAddr,
		BatchSize:     c.Daemon.BatchSize,
		FlushInterval: c.Daemon.FlushInterval,
		Debounce:      source.DefaultDebounce,
		DefaultTitle:  c.DefaultTitle,
	}
}

// staged is a decoded document waiting for its batch, with the pending
// write that guards it.
type staged struct {
	doc     *database.Document
	writeID int64
}

// DaemonIngester is the production Ingester.
type DaemonIngester struct {
	config  Config
	store   database.Store
	logger  *log.Logger
	metrics IngestionMetrics

	paths chan string
	docs  chan staged

	watcher  *fsnotify.Watcher
	listener net.Listener
	server   *http.Server

	timersMu sync.Mutex
	timers   map[string]*time.Timer

	readers sync.WaitGroup // watch, scan and read loops
	flusher sync.WaitGroup
	started time.Time

	cancel   context.CancelFunc
	stopOnce sync.Once
}

// NewDaemonIngester creates a daemon. A nil logger discards output.
func NewDaemonIngester(cfg Config, store database.Store, logger *log.Logger) *DaemonIngester {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 2 * time.Second
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = source.DefaultDebounce
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &DaemonIngester{
		config: cfg,
		store:  store,
		logger: logger,
		paths:  make(chan string, cfg.BatchSize*2),
		docs:   make(chan staged, cfg.BatchSize*2),
		timers: make(map[string]*time.Timer),
	}
}

// Start replays staged payloads from a previous run, starts watching
// WatchDir, queues the files already there and starts the metrics server.
func (d *DaemonIngester) Start(ctx context.Context) error {
	d.started = time.Now()

	if err := d.replayPending(); err != nil {
		d.logger.Warn("failed to replay pending writes", "err", err)
	}

	if err := os.MkdirAll(d.config.WatchDir, 0o755); err != nil {
		return fmt.Errorf("creating watch dir %s: %w", d.config.WatchDir, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Add(d.config.WatchDir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", d.config.WatchDir, err)
	}
	d.watcher = w

	if d.config.MetricsAddr != "" {
		ln, err := net.Listen("tcp", d.config.MetricsAddr)
		if err != nil {
			w.Close()
			return fmt.Errorf("listening on %s: %w", d.config.MetricsAddr, err)
		}
		d.listener = ln
	}

	ctx, d.cancel = context.WithCancel(ctx)

	d.flusher.Add(1)
	go d.flushLoop()

	d.readers.Add(3)
	go d.watchLoop(ctx)
	go d.readLoop(ctx)
	go d.scan(ctx)

	if d.listener != nil {
		d.server = &http.Server{Handler: d.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go d.serveMetrics()
	}

	d.logger.Info("daemon watching", "dir", d.config.WatchDir, "metrics", d.MetricsAddr())
	return nil
}

// Stop cancels the loops, flushes buffered documents and closes the
// metrics server. It is safe to call more than once.
func (d *DaemonIngester) Stop() error {
	d.stopOnce.Do(func() {
		d.logger.Info("shutting down daemon")
		if d.cancel != nil {
			d.cancel()
		}
		if d.watcher != nil {
			d.watcher.Close()
		}

		d.timersMu.Lock()
		for p, t := range d.timers {
			t.Stop()
			delete(d.timers, p)
		}
		d.timersMu.Unlock()

		d.readers.Wait()
		close(d.docs)
		d.flusher.Wait()

		if d.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			d.server.Shutdown(shutdownCtx)
		}
		d.logger.Info("daemon stopped")
	})
	return nil
}

// Metrics returns a snapshot of the counters.
func (d *DaemonIngester) Metrics() IngestionMetrics {
	m := IngestionMetrics{
		DocumentsIngested: atomic.LoadInt64(&d.metrics.DocumentsIngested),
		RecordsIngested:   atomic.LoadInt64(&d.metrics.RecordsIngested),
		ErrorCount:        atomic.LoadInt64(&d.metrics.ErrorCount),
		BatchesCommitted:  atomic.LoadInt64(&d.metrics.BatchesCommitted),
		PendingReplayed:   atomic.LoadInt64(&d.metrics.PendingReplayed),
	}
	if !d.started.IsZero() {
		m.Uptime = int64(time.Since(d.started).Seconds())
	}
	return m
}

// MetricsAddr returns the bound metrics address, or "" when disabled.
func (d *DaemonIngester) MetricsAddr() string {
	if d.listener == nil {
		return ""
	}
	return d.listener.Addr().String()
}

// watchLoop turns write and create events for supported files into
// debounced read requests.
func (d *DaemonIngester) watchLoop(ctx context.Context) {
	defer d.readers.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if !source.Supported(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				d.debounce(ctx, ev.Name)
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.logger.Error("watcher error", "err", err)
			atomic.AddInt64(&d.metrics.ErrorCount, 1)
		}
	}
}

func (d *DaemonIngester) debounce(ctx context.Context, path string) {
	d.timersMu.Lock()
	defer d.timersMu.Unlock()

	if t, ok := d.timers[path]; ok {
		t.Reset(d.config.Debounce)
		return
	}
	d.timers[path] = time.AfterFunc(d.config.Debounce, func() {
		d.timersMu.Lock()
		delete(d.timers, path)
		d.timersMu.Unlock()
		d.enqueue(ctx, path)
	})
}

// scan queues the supported files already in the drop directory.
func (d *DaemonIngester) scan(ctx context.Context) {
	defer d.readers.Done()

	entries, err := os.ReadDir(d.config.WatchDir)
	if err != nil {
		d.logger.Error("scanning watch dir", "err", err)
		atomic.AddInt64(&d.metrics.ErrorCount, 1)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !source.Supported(e.Name()) {
			continue
		}
		if !d.enqueue(ctx, filepath.Join(d.config.WatchDir, e.Name())) {
			return
		}
	}
}

func (d *DaemonIngester) enqueue(ctx context.Context, path string) bool {
	select {
	case d.paths <- path:
		return true
	case <-ctx.Done():
		return false
	}
}

// readLoop stages, decodes and forwards each queued file.
func (d *DaemonIngester) readLoop(ctx context.Context) {
	defer d.readers.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case path := <-d.paths:
			s, err := d.ingestFile(path)
			if err != nil {
				d.logger.Error("ingesting file", "path", path, "err", err)
				atomic.AddInt64(&d.metrics.ErrorCount, 1)
				continue
			}
			select {
			case d.docs <- s:
				continue
			default:
			}
			select {
			case d.docs <- s:
			case <-ctx.Done():
				// Still staged; replayed on the next start.
				return
			}
		}
	}
}

func (d *DaemonIngester) ingestFile(path string) (staged, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return staged{}, fmt.Errorf("reading: %w", err)
	}
	writeID, err := d.store.WritePendingPayload(path, raw)
	if err != nil {
		return staged{}, err
	}

	doc, err := d.decode(path, raw)
	if err != nil {
		// A payload that never decodes must not be replayed forever.
		if cerr := d.store.CommitPendingPayload(writeID); cerr != nil {
			d.logger.Error("committing undecodable payload", "id", writeID, "err", cerr)
		}
		return staged{}, err
	}
	d.logger.Debug("file decoded", "path", path, "records", doc.Records)
	return staged{doc: doc, writeID: writeID}, nil
}

func (d *DaemonIngester) decode(path string, raw []byte) (*database.Document, error) {
	res, err := tree.DecodeBytes(raw, tree.WithTitle(d.config.DefaultTitle))
	if err != nil {
		return nil, fmt.Errorf("decoding: %w", err)
	}
	for _, w := range res.Warnings {
		d.logger.Warn("document degraded", "path", path, "detail", w)
	}
	return database.NewDocument(source.Name(path), path, res.Tree)
}

// flushLoop saves buffered documents when BatchSize accumulate or
// FlushInterval elapses, and drains the buffer once docs is closed.
func (d *DaemonIngester) flushLoop() {
	defer d.flusher.Done()

	ticker := time.NewTicker(d.config.FlushInterval)
	defer ticker.Stop()

	buf := make([]staged, 0, d.config.BatchSize)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		docs := make([]*database.Document, len(buf))
		records := 0
		for i, s := range buf {
			docs[i] = s.doc
			records += s.doc.Records
		}
		if err := d.store.BatchSaveDocuments(docs); err != nil {
			d.logger.Error("flushing document batch", "size", len(docs), "err", err)
			atomic.AddInt64(&d.metrics.ErrorCount, 1)
			buf = buf[:0]
			return
		}
		for _, s := range buf {
			if err := d.store.CommitPendingPayload(s.writeID); err != nil {
				d.logger.Error("committing pending write", "id", s.writeID, "err", err)
			}
		}
		atomic.AddInt64(&d.metrics.DocumentsIngested, int64(len(docs)))
		atomic.AddInt64(&d.metrics.RecordsIngested, int64(records))
		atomic.AddInt64(&d.metrics.BatchesCommitted, 1)
		d.logger.Debug("batch committed", "documents", len(docs), "records", records)
		buf = buf[:0]
	}

	for {
		select {
		case s, ok := <-d.docs:
			if !ok {
				flush()
				return
			}
			buf = append(buf, s)
			if len(buf) >= d.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// replayPending saves payloads staged but not committed by a previous run.
func (d *DaemonIngester) replayPending() error {
	pending, err := d.store.GetPendingPayloads()
	if err != nil {
		return fmt.Errorf("getting pending payloads: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	d.logger.Info("replaying pending writes", "count", len(pending))

	for _, pw := range pending {
		doc, err := d.decode(pw.Source, pw.Payload)
		if err != nil {
			d.logger.Warn("skipping corrupt pending write", "id", pw.WriteID, "err", err)
		} else if err := d.store.SaveDocument(doc); err != nil {
			d.logger.Error("failed to replay pending write", "id", pw.WriteID, "err", err)
			continue
		} else {
			atomic.AddInt64(&d.metrics.PendingReplayed, 1)
			atomic.AddInt64(&d.metrics.DocumentsIngested, 1)
			atomic.AddInt64(&d.metrics.RecordsIngested, int64(doc.Records))
		}
		if err := d.store.CommitPendingPayload(pw.WriteID); err != nil {
			d.logger.Error("failed to commit pending write", "id", pw.WriteID, "err", err)
		}
	}
	return nil
}

func (d *DaemonIngester) serveMetrics() {
	d.logger.Info("metrics server listening", "url", "http://"+d.MetricsAddr()+"/metrics")
	if err := d.server.Serve(d.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		d.logger.Error("metrics server", "err", err)
	}
}
