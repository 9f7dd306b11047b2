package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// family gathers the registry and returns the named metric family.
func family(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("metric %s not registered", name)
	return nil
}

func counterWithLabel(t *testing.T, mf *dto.MetricFamily, label, value string) float64 {
	t.Helper()
	for _, metric := range mf.GetMetric() {
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.FrameIngested("term")
	m.FrameIngested("term")
	m.FrameIngested("typedef")
	m.Warning()
	m.ImportResolved(SourceFile)
	m.ObserveLoad(150 * time.Millisecond)

	frames := family(t, m, "ontograph_ingest_frames_total")
	assert.Equal(t, 2.0, counterWithLabel(t, frames, "kind", "term"))
	assert.Equal(t, 1.0, counterWithLabel(t, frames, "kind", "typedef"))

	warnings := family(t, m, "ontograph_ingest_warnings_total")
	assert.Equal(t, 1.0, warnings.GetMetric()[0].GetCounter().GetValue())

	imports := family(t, m, "ontograph_imports_resolved_total")
	assert.Equal(t, 1.0, counterWithLabel(t, imports, "source", SourceFile))

	load := family(t, m, "ontograph_load_duration_seconds")
	assert.Equal(t, uint64(1), load.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameIngested("term")
		m.Warning()
		m.ImportResolved(SourcePURL)
		m.ObserveLoad(time.Second)
	})
	assert.Nil(t, m.Registry())
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.FrameIngested("term")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `ontograph_ingest_frames_total{kind="term"} 1`)
}
