// Package driver 串起一次批处理：加载、预处理、划分、按策略与预算最小化、写出文件。
package driver

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/recmin/config"
	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
	"github.com/rushteam/recmin/experiment"
	"github.com/rushteam/recmin/feature"
	"github.com/rushteam/recmin/logging"
	"github.com/rushteam/recmin/metrics"
	"github.com/rushteam/recmin/minimize"
	"github.com/rushteam/recmin/split"
	"github.com/rushteam/recmin/store"
)

// Driver 持有一次运行的配置、目录约定与指标。
type Driver struct {
	Config  *config.Config
	Layout  dataset.Layout
	Metrics *metrics.Recorder
}

// New 创建 Driver。
func New(cfg *config.Config) *Driver {
	return &Driver{
		Config:  cfg,
		Layout:  dataset.Layout{DataDir: cfg.DataDir, OutputDir: cfg.OutputDir},
		Metrics: metrics.New(),
	}
}

// Summary 是一个数据集的处理结果（行数）。
type Summary struct {
	Dataset     string
	Raw         int
	Prepared    int
	DataSubject int
	Minimizer   int
	Candidate   int
	Val         int
	Test        int
	Variants    int
	SideInfo    []*feature.Result
}

// Run 使用 cfg 处理全部数据集。
func Run(ctx context.Context, cfg *config.Config) ([]*Summary, error) {
	return New(cfg).Run(ctx)
}

// Run 依次处理全部数据集；任一数据集失败即返回错误。指标文件总会写出。
func (d *Driver) Run(ctx context.Context) ([]*Summary, error) {
	var out []*Summary
	rctx := core.NewRunContext("", d.Config.Seed)
	start := time.Now()
	defer func() {
		if werr := d.Metrics.WriteTextfile(d.Config.Metrics.Textfile); werr != nil {
			logging.Err(werr).Str("path", d.Config.Metrics.Textfile).Msg("write metrics textfile")
		}
	}()

	for i := range d.Config.Datasets {
		ds := &d.Config.Datasets[i]
		s, err := d.Dataset(ctx, rctx.WithDataset(ds.Name), ds)
		if err != nil {
			d.Metrics.Dataset("failed")
			return out, fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		d.Metrics.Dataset("ok")
		out = append(out, s)
	}
	logging.Info().
		Str("run_id", rctx.RunID).
		Int("datasets", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("run finished")
	return out, nil
}

// Dataset 处理单个数据集。
func (d *Driver) Dataset(ctx context.Context, rctx *core.RunContext, ds *config.DatasetConfig) (*Summary, error) {
	log := logging.With().Str("run_id", rctx.RunID).Str("dataset", ds.Name).Logger()
	s := &Summary{Dataset: ds.Name}

	kws, err := ds.SchemaKeywords()
	if err != nil {
		return nil, err
	}
	delim, err := ds.Separator()
	if err != nil {
		return nil, err
	}
	raw, err := dataset.LoadInteractions(d.Config.DataDir, ds.Name, ds.File, delim, kws)
	if err != nil {
		return nil, err
	}
	s.Raw = raw.Len()
	log.Info().Int("rows", s.Raw).Msg("dataset loaded")

	p, err := config.BuildPipeline(ds, d.Layout.SourceDir(ds.Name))
	if err != nil {
		return nil, err
	}
	p.Observer = d.Metrics
	prepared, err := p.Run(ctx, rctx, raw)
	if err != nil {
		return nil, err
	}
	s.Prepared = prepared.Len()

	candidate, err := d.prepare(rctx, ds, prepared, s)
	if err != nil {
		return nil, err
	}

	src := d.Layout.SourceDir(ds.Name)
	for _, spec := range ds.SideInfo {
		res, err := feature.Process(spec, src, src)
		if err != nil {
			return nil, fmt.Errorf("side info %s: %w", spec.File, err)
		}
		s.SideInfo = append(s.SideInfo, res)
	}

	n, err := d.minimize(ctx, rctx, ds, candidate)
	if err != nil {
		return nil, err
	}
	s.Variants = n

	log.Info().
		Int("prepared", s.Prepared).
		Int("data_subject", s.DataSubject).
		Int("minimizer", s.Minimizer).
		Int("candidate", s.Candidate).
		Int("variants", s.Variants).
		Msg("dataset finished")
	return s, nil
}

// prepare 划分数据主体 / 最小化器，再把最小化器按用户划分为 candidate/val/test，返回 candidate。
func (d *Driver) prepare(rctx *core.RunContext, ds *config.DatasetConfig, t *core.Table, s *Summary) (*core.Table, error) {
	subject, minimizer, err := split.ByEntity(t, core.ColumnUser, d.Config.Population.Ratio, rctx.Seed)
	if err != nil {
		return nil, err
	}
	s.DataSubject, s.Minimizer = subject.Len(), minimizer.Len()

	parts, err := split.PerEntity3(minimizer, core.ColumnUser, d.Config.Temporal, rctx.Seed)
	if err != nil {
		return nil, err
	}
	s.Candidate, s.Val, s.Test = parts.Train.Len(), parts.Val.Len(), parts.Test.Len()

	l := d.Layout
	writes := []struct {
		path  string
		table *core.Table
		full  bool
	}{
		{l.Prepared(ds.Name, dataset.FileDataSubject), subject, true},
		{l.Prepared(ds.Name, dataset.FileDataMinimizer), minimizer, true},
		{l.Prepared(ds.Name, dataset.FileCandidate), parts.Train, true},
		{l.Prepared(ds.Name, dataset.FileVal), parts.Val, false},
		{l.Prepared(ds.Name, dataset.FileValFull), parts.Val, true},
		{l.Prepared(ds.Name, dataset.FileTest), parts.Test, false},
		{l.Prepared(ds.Name, dataset.FileTestFull), parts.Test, true},
	}
	for _, w := range writes {
		write := dataset.WriteCanonical
		if w.full {
			write = dataset.WriteFull
		}
		if err := write(w.path, w.table); err != nil {
			return nil, err
		}
		d.Metrics.FileWritten()
		logging.Debug().Str("path", w.path).Int("rows", w.table.Len()).Msg("file written")
	}

	shared := []struct{ src, name string }{
		{l.Prepared(ds.Name, dataset.FileVal), "val"},
		{l.Prepared(ds.Name, dataset.FileTest), "test"},
	}
	for _, c := range shared {
		if err := dataset.CopyFile(l.Shared(ds.Name, c.name), c.src); err != nil {
			return nil, err
		}
		d.Metrics.FileWritten()
	}
	return parts.Train, nil
}

type variant struct {
	kind minimize.Kind
	n    int
}

// minimize 对 candidate 应用每个 策略 × 预算（full 只有预算 1），并发度受 Concurrency 限制。
func (d *Driver) minimize(ctx context.Context, rctx *core.RunContext, ds *config.DatasetConfig, candidate *core.Table) (int, error) {
	var variants []variant
	for _, name := range ds.StrategiesOr(d.Config.Strategies) {
		kind, err := minimize.Parse(name)
		if err != nil {
			return 0, err
		}
		if kind == minimize.Full {
			variants = append(variants, variant{kind, 1})
			continue
		}
		for _, n := range ds.BudgetsOr(d.Config.Budgets) {
			variants = append(variants, variant{kind, n})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Config.Concurrency)
	for _, v := range variants {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return d.variant(rctx, ds.Name, candidate, v)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(variants), nil
}

func (d *Driver) variant(rctx *core.RunContext, name string, candidate *core.Table, v variant) error {
	s, err := minimize.New(v.kind, minimize.WithSeed(rctx.Seed))
	if err != nil {
		return err
	}
	out, err := s.Apply(candidate, v.n)
	if err != nil {
		return fmt.Errorf("%s n=%d: %w", v.kind, v.n, err)
	}
	path := d.Layout.Variant(name, string(v.kind), v.n)
	if err := dataset.WriteCanonical(path, out); err != nil {
		return err
	}
	if err := dataset.WriteFull(d.Layout.VariantFull(name, string(v.kind), v.n), out); err != nil {
		return err
	}
	d.Metrics.FileWritten()
	d.Metrics.FileWritten()
	d.Metrics.VariantWritten(name, string(v.kind), out.Len())
	logging.Info().
		Str("run_id", rctx.RunID).
		Str("dataset", name).
		Str("strategy", string(v.kind)).
		Int("n", v.n).
		Int("rows", out.Len()).
		Str("path", path).
		Msg("variant written")
	return nil
}

// Sweep 按配置执行一个实验阶段。
func (d *Driver) Sweep(ctx context.Context, phase experiment.Phase) (*experiment.Report, error) {
	st, err := store.New(d.Config.Checkpoint)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	sw := experiment.NewSweep(d.Config.Experiment, d.Layout, st)
	sw.Observer = d.Metrics
	defer func() {
		if werr := d.Metrics.WriteTextfile(d.Config.Metrics.Textfile); werr != nil {
			logging.Err(werr).Str("path", d.Config.Metrics.Textfile).Msg("write metrics textfile")
		}
	}()
	return sw.Run(ctx, phase, d.Config.Plans())
}
