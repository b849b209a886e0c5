package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zipatch"

var (
	// Registry is a dedicated Prometheus registry for all zipatch metrics.
	Registry = prometheus.NewRegistry()

	// GenerateDuration measures time spent producing a patch stream.
	GenerateDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generate_duration_ms",
			Help:      "Duration of patch generation in milliseconds",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	// ApplyDuration measures time spent applying a patch stream.
	ApplyDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_ms",
			Help:      "Duration of patch application in milliseconds",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
	)

	// DirectivesTotal counts emitted directives by kind (copy | refresh | patch | new).
	DirectivesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "directives_total",
			Help:      "Total number of directives emitted, by kind",
		},
		[]string{"kind"},
	)

	// BytesAvoidedTotal accumulates payload bytes not retransmitted in full.
	BytesAvoidedTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_avoided_total",
			Help:      "Cumulative payload bytes avoided by COPY/REFRESH/PATCH instead of NEW",
		},
	)

	// BytesIntroducedTotal accumulates blob bytes written by PATCH/NEW directives.
	BytesIntroducedTotal = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_introduced_total",
			Help:      "Cumulative blob bytes written into patch streams",
		},
	)

	// CacheLookupsTotal counts delta cache lookups by outcome (hit | miss).
	CacheLookupsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total delta cache lookups, by outcome",
		},
		[]string{"outcome"},
	)

	// EngineUsageTotal counts delta/compression engine selections by id.
	EngineUsageTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_usage_total",
			Help:      "Total selections of a delta or compression engine",
		},
		[]string{"role", "engine_id"}, // role: delta | compression
	)

	// PatchesTotal counts complete generate/apply runs by outcome.
	PatchesTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_total",
			Help:      "Total number of generate/apply runs, by operation and outcome",
		},
		[]string{"operation", "outcome"}, // operation: generate | apply
	)

	// AgentInfo exposes static information about the running binary.
	AgentInfo = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "agent_info",
			Help:      "Static information about the running binary",
		},
		[]string{"os", "arch", "version"},
	)

	// Up is a liveness gauge for the metrics endpoint.
	Up = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "up",
			Help:      "1 if the process is running and healthy",
		},
	)
)

func init() {
	Registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	Registry.MustRegister(prometheus.NewGoCollector())
	Up.Set(1)
}

// SetAgentInfo publishes a single info metric for the running binary.
func SetAgentInfo(osName, arch, version string) {
	if osName == "" {
		osName = runtime.GOOS
	}
	if arch == "" {
		arch = runtime.GOARCH
	}
	if version == "" {
		version = "dev"
	}
	AgentInfo.WithLabelValues(osName, arch, version).Set(1)
}

// ObserveGenerate records generation duration and directive/byte counters
// from a completed run's report-shaped counts.
func ObserveGenerate(start time.Time, copyCount, refreshCount, patchCount, newCount int, bytesAvoided, bytesIntroduced uint64) {
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	GenerateDuration.Observe(elapsed)

	DirectivesTotal.WithLabelValues("copy").Add(float64(copyCount))
	DirectivesTotal.WithLabelValues("refresh").Add(float64(refreshCount))
	DirectivesTotal.WithLabelValues("patch").Add(float64(patchCount))
	DirectivesTotal.WithLabelValues("new").Add(float64(newCount))

	BytesAvoidedTotal.Add(float64(bytesAvoided))
	BytesIntroducedTotal.Add(float64(bytesIntroduced))
}

// ObserveApply records apply duration for a completed run.
func ObserveApply(start time.Time) {
	elapsed := float64(time.Since(start)) / float64(time.Millisecond)
	ApplyDuration.Observe(elapsed)
}

// ObserveCacheLookup records a single delta cache lookup outcome.
func ObserveCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveEngineUsage records a single engine selection.
func ObserveEngineUsage(role string, engineID uint32) {
	EngineUsageTotal.WithLabelValues(role, formatEngineID(engineID)).Inc()
}

// ObservePatchOutcome records a completed generate/apply run's outcome.
func ObservePatchOutcome(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PatchesTotal.WithLabelValues(operation, outcome).Inc()
}

// SetUp toggles the liveness gauge.
func SetUp(healthy bool) {
	if healthy {
		Up.Set(1)
		return
	}
	Up.Set(0)
}

// Serve starts the /metrics HTTP endpoint on the provided address.
func Serve(ctx context.Context, addr string, logger *log.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = log.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	srv := &http.Server{Addr: addr, Handler: mux}

	idleClosed := make(chan struct{})
	go func() {
		defer close(idleClosed)
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	logger.Printf("[Metrics] Prometheus endpoint listening on %s", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-idleClosed
		return nil
	}

	return err
}

func formatEngineID(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}
