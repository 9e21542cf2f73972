package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceLayout/pkg/kicad/pcb"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout"
	"github.com/OpenTraceLab/OpenTraceLayout/pkg/layout/errkind"
)

// value returns the counter value of the named metric with exactly the
// given labels.
func value(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if matches(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, labels)
	return 0
}

func matches(m *dto.Metric, labels map[string]string) bool {
	if len(m.GetLabel()) != len(labels) {
		return false
	}
	for _, l := range m.GetLabel() {
		if labels[l.GetName()] != l.GetValue() {
			return false
		}
	}
	return true
}

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Replicated(pcb.KindFootprint, 4)
	r.Replicated(pcb.KindTrack, 10)
	r.Replicated(pcb.KindTrack, 2)
	r.Skipped(pcb.KindZone, "copper zone on net GND has no counterpart")
	r.Completed(layout.OpRestore, 20*time.Millisecond)
	r.Failed(layout.OpRestore, errkind.New(errkind.ContentDrift, "sheet changed"))
	r.Failed(layout.OpSave, errors.New("disk full"))

	assert.Equal(t, 4.0, value(t, r.Registry(), "otl_elements_replicated_total", map[string]string{"kind": "footprint"}))
	assert.Equal(t, 12.0, value(t, r.Registry(), "otl_elements_replicated_total", map[string]string{"kind": "track"}))
	assert.Equal(t, 1.0, value(t, r.Registry(), "otl_elements_skipped_total", map[string]string{"kind": "zone"}))
	assert.Equal(t, 1.0, value(t, r.Registry(), "otl_operations_total", map[string]string{"operation": "restore", "status": "ok"}))
	assert.Equal(t, 1.0, value(t, r.Registry(), "otl_operations_total", map[string]string{"operation": "restore", "status": "error"}))
	assert.Equal(t, 1.0, value(t, r.Registry(), "otl_errors_total", map[string]string{"operation": "restore", "type": "content_drift"}))
	assert.Equal(t, 1.0, value(t, r.Registry(), "otl_errors_total", map[string]string{"operation": "save", "type": "internal"}))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Completed(layout.OpSave, time.Second)

	path := filepath.Join(t.TempDir(), "otl.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `otl_operations_total{operation="save",status="ok"} 1`), text)
	assert.Contains(t, text, "otl_operation_duration_seconds_count")
}
