// SPDX-License-Identifier: EPL-2.0

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestCounters(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		labels map[string]string
		record func()
	}{
		{
			name:   "levels ok",
			metric: "audclip_level_extractions_total",
			labels: map[string]string{"result": "ok"},
			record: func() { LevelsExtracted(time.Now(), nil) },
		},
		{
			name:   "levels cached",
			metric: "audclip_level_extractions_total",
			labels: map[string]string{"result": "cached"},
			record: LevelsCached,
		},
		{
			name:   "composition error",
			metric: "audclip_compositions_total",
			labels: map[string]string{"op": "trim", "result": "error"},
			record: func() { Composed("trim", time.Now(), errors.New("boom")) },
		},
		{
			name:   "session applied",
			metric: "audclip_edit_sessions_total",
			labels: map[string]string{"mode": "cut", "outcome": "applied"},
			record: func() { SessionFinished("cut", "applied") },
		},
		{
			name:   "preview discarded",
			metric: "audclip_previews_discarded_total",
			record: PreviewDiscarded,
		},
		{
			name:   "recording capped",
			metric: "audclip_recordings_total",
			labels: map[string]string{"outcome": "capped"},
			record: func() { RecordingFinished("capped") },
		},
		{
			name:   "upload ok",
			metric: "audclip_uploads_total",
			labels: map[string]string{"result": "ok"},
			record: func() { Uploaded(nil) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, tt.metric, tt.labels)
			tt.record()
			if got := counterValue(t, tt.metric, tt.labels); got != before+1 {
				t.Errorf("%s%v = %v, want %v", tt.metric, tt.labels, got, before+1)
			}
		})
	}
}
