// Package metrics is the observability hook for the bulk stages: stores
// emit one event per stage instead of scattering timing code through the
// import logic.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"go.uber.org/zap"
)

// Observer receives one event per completed bulk stage (schema setup,
// per-entity insert, query, delete).
type Observer interface {
	ObserveStage(store, stage string, count int, elapsed time.Duration)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) ObserveStage(string, string, int, time.Duration) {}

// Track starts a stage timer; the returned func records the stage on call.
// Typical use: defer metrics.Track(obs, "postgres", "insert-orders", n)()
func Track(obs Observer, store, stage string, count int) func() {
	start := time.Now()
	return func() {
		obs.ObserveStage(store, stage, count, time.Since(start))
	}
}

// LatencyRecorder aggregates stage durations in HDR histograms, one per
// store/stage pair. Max latency 10s, 3 significant figures.
type LatencyRecorder struct {
	mu    sync.Mutex
	hists map[string]*hdrhistogram.Histogram
	ops   map[string]int
}

func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{
		hists: make(map[string]*hdrhistogram.Histogram),
		ops:   make(map[string]int),
	}
}

func (r *LatencyRecorder) ObserveStage(store, stage string, count int, elapsed time.Duration) {
	key := store + "/" + stage
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hists[key]
	if !ok {
		h = hdrhistogram.New(1, 10000000000, 3)
		r.hists[key] = h
	}
	h.RecordValue(elapsed.Microseconds())
	r.ops[key] += count
}

type StageSummary struct {
	Stage          string        `json:"stage"`
	Operations     int           `json:"operations"`
	Calls          int64         `json:"calls"`
	AverageLatency time.Duration `json:"averageLatency"`
	P95Latency     time.Duration `json:"p95Latency"`
	P99Latency     time.Duration `json:"p99Latency"`
}

// Summary renders the aggregated stages sorted by name.
func (r *LatencyRecorder) Summary() []StageSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StageSummary, 0, len(r.hists))
	for key, h := range r.hists {
		out = append(out, StageSummary{
			Stage:          key,
			Operations:     r.ops[key],
			Calls:          h.TotalCount(),
			AverageLatency: time.Duration(h.Mean()) * time.Microsecond,
			P95Latency:     time.Duration(h.ValueAtQuantile(95)) * time.Microsecond,
			P99Latency:     time.Duration(h.ValueAtQuantile(99)) * time.Microsecond,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Stage < out[j].Stage })
	return out
}

// LogObserver logs each stage through zap and forwards to the next
// observer in the chain.
type LogObserver struct {
	Log  *zap.Logger
	Next Observer
}

func (o *LogObserver) ObserveStage(store, stage string, count int, elapsed time.Duration) {
	o.Log.Debug("stage complete",
		zap.String("store", store),
		zap.String("stage", stage),
		zap.Int("count", count),
		zap.Duration("elapsed", elapsed))
	if o.Next != nil {
		o.Next.ObserveStage(store, stage, count, elapsed)
	}
}
