// SPDX-License-Identifier: EPL-2.0

// Package metrics exposes the prometheus collectors shared by the audio
// pipeline. Collectors register with the default registry on first use.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "audclip"

var (
	metricsOnce sync.Once
	metrics     *pipelineMetrics
)

type pipelineMetrics struct {
	levelsTotal       *prometheus.CounterVec
	levelsDuration    prometheus.Histogram
	compositionsTotal *prometheus.CounterVec
	compositionTime   *prometheus.HistogramVec
	sessionsTotal     *prometheus.CounterVec
	previewsDiscarded prometheus.Counter
	recordingsTotal   *prometheus.CounterVec
	uploadsTotal      *prometheus.CounterVec
}

func get() *pipelineMetrics {
	metricsOnce.Do(func() {
		metrics = &pipelineMetrics{
			levelsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "level_extractions_total",
					Help:      "Level extractions by result (ok, error, cached)",
				},
				[]string{"result"},
			),
			levelsDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "level_extraction_duration_seconds",
					Help:      "Time spent decoding and downsampling a file",
				},
			),
			compositionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "compositions_total",
					Help:      "Rendered compositions by operation and result",
				},
				[]string{"op", "result"},
			),
			compositionTime: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: namespace,
					Name:      "composition_duration_seconds",
					Help:      "Time spent rendering a composition",
				},
				[]string{"op"},
			),
			sessionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "edit_sessions_total",
					Help:      "Finished edit sessions by mode and outcome",
				},
				[]string{"mode", "outcome"},
			),
			previewsDiscarded: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "previews_discarded_total",
					Help:      "Preview renders dropped because a newer one was requested",
				},
			),
			recordingsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "recordings_total",
					Help:      "Finished recordings by outcome (finished, capped, discarded, error)",
				},
				[]string{"outcome"},
			),
			uploadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: namespace,
					Name:      "uploads_total",
					Help:      "Clip store uploads by result",
				},
				[]string{"result"},
			),
		}
	})
	return metrics
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// LevelsExtracted records one extraction that started at start.
func LevelsExtracted(start time.Time, err error) {
	m := get()
	m.levelsTotal.WithLabelValues(result(err)).Inc()
	m.levelsDuration.Observe(time.Since(start).Seconds())
}

// LevelsCached records a cache hit.
func LevelsCached() {
	get().levelsTotal.WithLabelValues("cached").Inc()
}

// Composed records one rendered composition for op.
func Composed(op string, start time.Time, err error) {
	m := get()
	m.compositionsTotal.WithLabelValues(op, result(err)).Inc()
	m.compositionTime.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// SessionFinished records the terminal outcome of an edit session.
func SessionFinished(mode, outcome string) {
	get().sessionsTotal.WithLabelValues(mode, outcome).Inc()
}

// PreviewDiscarded records a stale preview.
func PreviewDiscarded() {
	get().previewsDiscarded.Inc()
}

// RecordingFinished records how a recording ended.
func RecordingFinished(outcome string) {
	get().recordingsTotal.WithLabelValues(outcome).Inc()
}

// Uploaded records one upload attempt sequence.
func Uploaded(err error) {
	get().uploadsTotal.WithLabelValues(result(err)).Inc()
}
