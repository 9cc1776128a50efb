// Package metrics exposes processor activity as Prometheus metrics.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/IgorBayerl/mfp/internal/processor"
)

// Observer records processor events on its own registry so that several
// processors, or tests, never collide on the default one.
type Observer struct {
	registry *prometheus.Registry

	filesProcessed prometheus.Counter
	filesFailed    *prometheus.CounterVec
	wordsCounted   prometheus.Counter
	linesRead      prometheus.Counter
	fileDuration   prometheus.Histogram
	batches        *prometheus.CounterVec
	batchDuration  prometheus.Gauge
}

// NewObserver creates an Observer with every metric registered.
func NewObserver() *Observer {
	o := &Observer{
		registry: prometheus.NewRegistry(),
		filesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mfp_files_processed_total",
			Help: "Total number of files whose words were counted",
		}),
		filesFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mfp_files_failed_total",
			Help: "Total number of files that could not be processed, by failure kind",
		}, []string{"kind"}),
		wordsCounted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mfp_words_counted_total",
			Help: "Total number of words counted across processed files",
		}),
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mfp_lines_read_total",
			Help: "Total number of lines read from processed files",
		}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mfp_file_processing_duration_seconds",
			Help:    "Time taken to process a single file",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mfp_batches_total",
			Help: "Total number of batches, by outcome",
		}, []string{"outcome"}),
		batchDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mfp_last_batch_duration_seconds",
			Help: "Wall-clock duration of the most recent batch",
		}),
	}

	o.registry.MustRegister(
		o.filesProcessed,
		o.filesFailed,
		o.wordsCounted,
		o.linesRead,
		o.fileDuration,
		o.batches,
		o.batchDuration,
	)
	return o
}

// Registry returns the registry holding the observer's metrics.
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

func (o *Observer) BatchStarted(string, int) {}

func (o *Observer) FileSucceeded(_, _ string, result processor.FileProcessingResult, elapsed time.Duration) {
	o.filesProcessed.Inc()
	o.wordsCounted.Add(float64(result.TotalWords))
	o.linesRead.Add(float64(len(result.LineCounts)))
	o.fileDuration.Observe(elapsed.Seconds())
}

func (o *Observer) FileFailed(_, _ string, err error) {
	o.filesFailed.WithLabelValues(processor.KindOf(err).String()).Inc()
}

func (o *Observer) BatchFinished(summary processor.BatchSummary) {
	outcome := "success"
	if !summary.Succeeded() {
		outcome = "partial_failure"
	}
	o.batches.WithLabelValues(outcome).Inc()
	o.batchDuration.Set(summary.Elapsed.Seconds())
}

// WriteTextfile writes the current metrics to path in the text exposition
// format read by the node exporter textfile collector.
func (o *Observer) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, o.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
