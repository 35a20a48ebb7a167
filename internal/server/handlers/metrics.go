package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vzahanych/weather-data-fetcher/internal/server/middlewares"
)

// HTTPMetricsProvider exposes the request counters collected by middleware.
type HTTPMetricsProvider interface {
	Snapshot() middlewares.HTTPSnapshot
}

// AppMetrics holds dataset fetch and save counters.
type AppMetrics struct {
	mutex        sync.RWMutex
	fetchesTotal map[string]int64
	fetchErrors  map[string]int64
	savesTotal   map[string]int64
	saveErrors   map[string]int64
}

type MetricsHandler struct {
	logger      *zap.Logger
	httpMetrics HTTPMetricsProvider
	appMetrics  *AppMetrics
}

func NewMetricsHandler(logger *zap.Logger, httpMetrics HTTPMetricsProvider) *MetricsHandler {
	return &MetricsHandler{
		logger:      logger,
		httpMetrics: httpMetrics,
		appMetrics: &AppMetrics{
			fetchesTotal: make(map[string]int64),
			fetchErrors:  make(map[string]int64),
			savesTotal:   make(map[string]int64),
			saveErrors:   make(map[string]int64),
		},
	}
}

// RecordDatasetFetch records one upstream request for a dataset
func (h *MetricsHandler) RecordDatasetFetch(ctx context.Context, dataset string, success bool) {
	h.appMetrics.mutex.Lock()
	defer h.appMetrics.mutex.Unlock()

	h.appMetrics.fetchesTotal[dataset]++
	if !success {
		h.appMetrics.fetchErrors[dataset]++
	}
}

// RecordDatasetSave records one file write for a dataset
func (h *MetricsHandler) RecordDatasetSave(ctx context.Context, dataset string, success bool) {
	h.appMetrics.mutex.Lock()
	defer h.appMetrics.mutex.Unlock()

	h.appMetrics.savesTotal[dataset]++
	if !success {
		h.appMetrics.saveErrors[dataset]++
	}
}

// ServeMetrics exposes metrics in Prometheus text format.
func (h *MetricsHandler) ServeMetrics(c *gin.Context) {
	var b strings.Builder

	if h.httpMetrics != nil {
		snap := h.httpMetrics.Snapshot()

		writeHeader(&b, "http_requests_total", "Total number of HTTP requests", "counter")
		for _, key := range sortedKeys(snap.RequestsTotal) {
			fmt.Fprintf(&b, "http_requests_total{route_status=%q} %d\n", key, snap.RequestsTotal[key])
		}

		writeHeader(&b, "http_request_duration_seconds_avg", "Average duration of HTTP requests", "gauge")
		fmt.Fprintf(&b, "http_request_duration_seconds_avg %.6f\n", snap.AvgDurationSeconds)

		writeHeader(&b, "http_active_requests", "Number of active HTTP requests", "gauge")
		fmt.Fprintf(&b, "http_active_requests %d\n", snap.ActiveRequests)
	}

	h.appMetrics.mutex.RLock()
	writeCounter(&b, "dataset_fetches_total", "Total upstream dataset requests", h.appMetrics.fetchesTotal)
	writeCounter(&b, "dataset_fetch_errors_total", "Total failed upstream dataset requests", h.appMetrics.fetchErrors)
	writeCounter(&b, "dataset_saves_total", "Total dataset file writes", h.appMetrics.savesTotal)
	writeCounter(&b, "dataset_save_errors_total", "Total failed dataset file writes", h.appMetrics.saveErrors)
	h.appMetrics.mutex.RUnlock()

	c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	c.String(200, b.String())
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	fmt.Fprintf(b, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, kind)
}

func writeCounter(b *strings.Builder, name, help string, values map[string]int64) {
	writeHeader(b, name, help, "counter")
	for _, key := range sortedKeys(values) {
		fmt.Fprintf(b, "%s{dataset=%q} %d\n", name, key, values[key])
	}
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
