package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hooksink/hooksink/internal/metric"
)

func TestTextfileWrite(t *testing.T) {
	dir := t.TempDir()
	src := staticSnapshot{entry(metric.Record{
		Name:   "deploys_total",
		Help:   "Deploys seen",
		Type:   metric.TypeCounter,
		Labels: map[string]string{"env": "prod"},
		Value:  3,
	})}

	tf := NewTextfile(dir, "webhook_metrics.prom", src, zap.NewNop())
	require.NoError(t, tf.Write())

	data, err := os.ReadFile(filepath.Join(dir, "webhook_metrics.prom"))
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "# TYPE deploys_total counter")
	assert.Contains(t, out, `deploys_total{env="prod"} 3`)
}

func TestTextfileWriteReplacesPreviousContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "webhook_metrics.prom")
	require.NoError(t, os.WriteFile(path, []byte("stale_series 1\n"), 0o644))

	src := staticSnapshot{entry(metric.Record{
		Name:   "fresh_series",
		Type:   metric.TypeGauge,
		Labels: map[string]string{},
		Value:  1,
	})}

	tf := NewTextfile(dir, "webhook_metrics.prom", src, zap.NewNop())
	require.NoError(t, tf.Write())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale_series")
	assert.Contains(t, string(data), "fresh_series")
}
