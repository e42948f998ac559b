package ingestion

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler returns the health and metrics routes:
//
//	GET /health       {"status":"ok"}
//	GET /metrics      Prometheus text format
//	GET /api/metrics  IngestionMetrics as JSON
func (d *DaemonIngester) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Get("/metrics", d.handlePrometheus)
	r.Get("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.Metrics())
	})
	return r
}

func (d *DaemonIngester) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	m := d.Metrics()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	metrics := []struct {
		name, help, kind string
		value            int64
	}{
		{"jsonview_documents_ingested_total", "Total documents ingested", "counter", m.DocumentsIngested},
		{"jsonview_records_ingested_total", "Total records in ingested documents", "counter", m.RecordsIngested},
		{"jsonview_errors_total", "Total ingestion errors", "counter", m.ErrorCount},
		{"jsonview_batches_committed_total", "Total batches committed", "counter", m.BatchesCommitted},
		{"jsonview_pending_replayed_total", "Staged payloads replayed at startup", "counter", m.PendingReplayed},
		{"jsonview_uptime_seconds", "Uptime in seconds", "gauge", m.Uptime},
	}
	for _, mt := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", mt.name, mt.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", mt.name, mt.kind)
		fmt.Fprintf(w, "%s %d\n", mt.name, mt.value)
	}
}
