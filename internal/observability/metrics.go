package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once
	registry     = prometheus.NewRegistry()

	packageBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antkit",
			Subsystem: "antpkg",
			Name:      "builds_total",
			Help:      "Total package builds by result.",
		},
		[]string{"version", "result"},
	)
	packageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "antkit",
			Subsystem: "antpkg",
			Name:      "build_duration_seconds",
			Help:      "Package build duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"version", "result"},
	)
	extractedEntries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "antkit",
			Subsystem: "antpkg",
			Name:      "extracted_entries_total",
			Help:      "Archive entries written to the package root, by kind.",
		},
		[]string{"kind"},
	)
	extractedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "antkit",
			Subsystem: "antpkg",
			Name:      "extracted_bytes_total",
			Help:      "Bytes of regular file content extracted.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		registry.MustRegister(packageBuilds, packageDuration, extractedEntries, extractedBytes)
	})
}

// Registry is the gatherer holding antkit metrics.
func Registry() *prometheus.Registry {
	RegisterMetrics()
	return registry
}

func RecordBuild(version string, success bool, duration time.Duration) {
	RegisterMetrics()
	result := "success"
	if !success {
		result = "failure"
	}
	packageBuilds.WithLabelValues(version, result).Inc()
	packageDuration.WithLabelValues(version, result).Observe(duration.Seconds())
}

func RecordExtraction(files, dirs, symlinks, skipped int, bytes int64) {
	RegisterMetrics()
	extractedEntries.WithLabelValues("file").Add(float64(files))
	extractedEntries.WithLabelValues("dir").Add(float64(dirs))
	extractedEntries.WithLabelValues("symlink").Add(float64(symlinks))
	extractedEntries.WithLabelValues("skipped").Add(float64(skipped))
	extractedBytes.Add(float64(bytes))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry())
}
