// Package metrics 记录批处理运行的 Prometheus 指标，运行结束时可写出 textfile。
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder 持有一次运行的指标；每个 Recorder 使用独立的 registry。
type Recorder struct {
	registry *prometheus.Registry

	StageRows     *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	FilesWritten  prometheus.Counter
	RowsWritten   *prometheus.CounterVec
	Experiments   *prometheus.CounterVec
	Datasets      *prometheus.CounterVec
}

// New 创建 Recorder 并注册全部指标。
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		StageRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recmin_stage_rows_total",
				Help: "Rows entering and leaving each pipeline stage",
			},
			[]string{"stage", "direction"}, // direction: in / out
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recmin_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		FilesWritten: f.NewCounter(
			prometheus.CounterOpts{
				Name: "recmin_files_written_total",
				Help: "Number of TSV files written",
			},
		),
		RowsWritten: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recmin_variant_rows_total",
				Help: "Rows retained per minimization strategy",
			},
			[]string{"dataset", "strategy"},
		),
		Experiments: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recmin_experiment_runs_total",
				Help: "External experiment runs by phase and status",
			},
			[]string{"phase", "status"}, // status: ok / failed / skipped / rendered
		),
		Datasets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recmin_datasets_total",
				Help: "Datasets processed by status",
			},
			[]string{"status"},
		),
	}
}

// Registry 返回底层 registry（测试与自定义导出用）。
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveStage 实现 pipeline.Observer。
func (r *Recorder) ObserveStage(stage string, rowsIn, rowsOut int, elapsed time.Duration) {
	r.StageRows.WithLabelValues(stage, "in").Add(float64(rowsIn))
	r.StageRows.WithLabelValues(stage, "out").Add(float64(rowsOut))
	r.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// FileWritten 记录一个输出文件。
func (r *Recorder) FileWritten() { r.FilesWritten.Inc() }

// VariantWritten 记录某策略输出的行数。
func (r *Recorder) VariantWritten(dataset, strategy string, rows int) {
	r.RowsWritten.WithLabelValues(dataset, strategy).Add(float64(rows))
}

// Experiment 记录一次外部实验调用的结果。
func (r *Recorder) Experiment(phase, status string) {
	r.Experiments.WithLabelValues(phase, status).Inc()
}

// Dataset 记录一个数据集的处理结果。
func (r *Recorder) Dataset(status string) {
	r.Datasets.WithLabelValues(status).Inc()
}

// WriteTextfile 以 node_exporter textfile 格式写出全部指标；path 为空时不写。
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return prometheus.WriteToTextfile(path, r.registry)
}
