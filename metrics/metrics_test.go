package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	r := New()
	r.ObserveStage("filter.kcore", 100, 40, 10*time.Millisecond)
	r.ObserveStage("filter.kcore", 40, 40, time.Millisecond)

	assert.Equal(t, 140.0, testutil.ToFloat64(r.StageRows.WithLabelValues("filter.kcore", "in")))
	assert.Equal(t, 80.0, testutil.ToFloat64(r.StageRows.WithLabelValues("filter.kcore", "out")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.StageDuration))
}

func TestRecordersAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.FileWritten()
	a.FileWritten()
	b.FileWritten()
	assert.Equal(t, 2.0, testutil.ToFloat64(a.FilesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.FilesWritten))
}

func TestWriteTextfile(t *testing.T) {
	r := New()
	r.Experiment("train", "failed")
	r.VariantWritten("ml-1m", "random", 12)

	path := filepath.Join(t.TempDir(), "recmin.prom")
	require.NoError(t, r.WriteTextfile(path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `recmin_experiment_runs_total{phase="train",status="failed"} 1`)
	assert.Contains(t, string(b), `recmin_variant_rows_total{dataset="ml-1m",strategy="random"} 12`)

	assert.NoError(t, r.WriteTextfile(""))
}
