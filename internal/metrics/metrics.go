// Package metrics exposes Prometheus metrics for the tile engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tileview"

// Metrics holds the engine collectors. A nil *Metrics records nothing.
type Metrics struct {
	TilesDecoded   prometheus.Counter
	TilesMissing   prometheus.Counter
	TilesCancelled prometheus.Counter
	TilesEvicted   *prometheus.CounterVec
	DecodeSeconds  prometheus.Histogram
	DecodeAvg      prometheus.Gauge
	InFlight       prometheus.Gauge
	CacheEntries   prometheus.Gauge
	Frames         prometheus.Counter
	FramesDeferred prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TilesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_decoded_total",
			Help:      "Tiles decoded into the cache.",
		}),
		TilesMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_missing_total",
			Help:      "Tile loads that produced no image.",
		}),
		TilesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_cancelled_total",
			Help:      "In-flight retrievals dropped after a LOD change.",
		}),
		TilesEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_evicted_total",
			Help:      "Cache entries evicted, by sweep.",
		}, []string{"phase"}),
		DecodeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decode_seconds",
			Help:      "Tile decode latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		DecodeAvg: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "decode_avg_seconds",
			Help:      "Rolling average decode latency used for frame budgeting.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inflight",
			Help:      "Tile retrievals in flight.",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Tile cache entries, present or missing.",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frames processed.",
		}),
		FramesDeferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_deferred_total",
			Help:      "Frames that left retrievals for later to stay within budget.",
		}),
	}

	reg.MustRegister(
		m.TilesDecoded, m.TilesMissing, m.TilesCancelled, m.TilesEvicted,
		m.DecodeSeconds, m.DecodeAvg, m.InFlight, m.CacheEntries,
		m.Frames, m.FramesDeferred,
	)
	return m
}

func (m *Metrics) ObserveDecode(seconds, avg float64) {
	if m == nil {
		return
	}
	m.TilesDecoded.Inc()
	m.DecodeSeconds.Observe(seconds)
	m.DecodeAvg.Set(avg)
}

func (m *Metrics) ObserveMissing() {
	if m == nil {
		return
	}
	m.TilesMissing.Inc()
}

func (m *Metrics) ObserveCancelled(n int) {
	if m == nil || n == 0 {
		return
	}
	m.TilesCancelled.Add(float64(n))
}

func (m *Metrics) ObserveEvicted(offscreen, crossLOD int) {
	if m == nil {
		return
	}
	m.TilesEvicted.WithLabelValues("offscreen").Add(float64(offscreen))
	m.TilesEvicted.WithLabelValues("cross_lod").Add(float64(crossLOD))
}

func (m *Metrics) ObserveFrame(inFlight, cacheEntries int, deferred bool) {
	if m == nil {
		return
	}
	m.Frames.Inc()
	if deferred {
		m.FramesDeferred.Inc()
	}
	m.InFlight.Set(float64(inFlight))
	m.CacheEntries.Set(float64(cacheEntries))
}

// Provider owns a private registry with the Go and process collectors.
type Provider struct {
	reg *prometheus.Registry
}

func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Provider{reg: reg}
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
