package experiment

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
	"github.com/rushteam/recmin/logging"
)

// Phase 是实验扫描的阶段。
type Phase string

const (
	PhaseTrain   Phase = "train"
	PhaseRecs    Phase = "recs"
	PhaseMetrics Phase = "metrics"
)

// ParsePhase 解析阶段名。
func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseTrain, PhaseRecs, PhaseMetrics:
		return p, nil
	}
	return "", core.Errorf(core.ModuleExperiment, core.ErrorCodeInvalidInput,
		"unknown phase %q (supported: train, recs, metrics)", s)
}

// 运行状态，用于指标标签
const (
	StatusRendered  = "rendered"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusSkipped   = "skipped"
)

// Plan 是一个数据集要扫描的策略与预算。
type Plan struct {
	Dataset    string
	Strategies []string
	Budgets    []int
}

// Targets 展开计划；full 策略只有预算 1。
func (p Plan) Targets() []Target {
	var out []Target
	for _, s := range p.Strategies {
		if s == "full" {
			out = append(out, Target{Dataset: p.Dataset, Strategy: s, N: 1})
			continue
		}
		for _, n := range p.Budgets {
			out = append(out, Target{Dataset: p.Dataset, Strategy: s, N: n})
		}
	}
	return out
}

// Unit 是一次外部框架运行。
type Unit struct {
	Phase      Phase
	Target     Target
	Model      string
	ConfigPath string
}

// Key 返回检查点 key。
func (u Unit) Key() string {
	return CheckpointPrefix + string(u.Phase) + ":" + u.Target.Name() + ":" + u.Model
}

// CheckpointPrefix 检查点 key 前缀
const CheckpointPrefix = "recmin:sweep:"

// Observer 接收每次运行的结果（metrics.Recorder 实现）。
type Observer interface {
	Experiment(phase, status string)
}

// Report 汇总一次扫描。
type Report struct {
	Rendered  int
	Succeeded int
	Failed    int
	Skipped   int
	// Checkpointed 开始时该阶段已有的检查点数（Reset 之后）
	Checkpointed int
	// Cleared Reset 删除的检查点数
	Cleared int
}

// Sweep 依次渲染并执行 数据集 × 模型 × 策略 × 预算。
//
// 渲染失败（配置错误）立即返回；外部运行失败写入 ErrorLog 后继续。
type Sweep struct {
	Config   Config
	Layout   dataset.Layout
	Runner   Runner     // nil 时只渲染
	Store    core.Store // nil 时不做检查点
	Observer Observer
	ErrorLog *ErrorLog

	now func() time.Time
}

// NewSweep 按配置创建扫描；Command 非空时使用 CommandRunner。
func NewSweep(cfg Config, layout dataset.Layout, store core.Store) *Sweep {
	s := &Sweep{
		Config:   cfg,
		Layout:   layout,
		Store:    store,
		ErrorLog: NewErrorLog(cfg.ErrorLog),
	}
	if len(cfg.Command) > 0 {
		s.Runner = &CommandRunner{Command: cfg.Command, Dir: cfg.WorkDir}
	}
	return s
}

// Run 执行某阶段。
func (s *Sweep) Run(ctx context.Context, phase Phase, plans []Plan) (*Report, error) {
	r := &Renderer{Config: s.Config, Layout: s.Layout}
	report := &Report{}
	if s.Config.Reset {
		n, err := s.Reset(ctx, phase)
		if err != nil {
			return report, err
		}
		report.Cleared = n
	}
	if keys, err := s.Checkpoints(ctx, phase); err != nil {
		logging.Warn().Err(err).Str("store", s.Store.Name()).Msg("checkpoint listing failed")
	} else if len(keys) > 0 {
		report.Checkpointed = len(keys)
		logging.Info().
			Str("phase", string(phase)).
			Int("checkpoints", len(keys)).
			Bool("resume", s.Config.Resume).
			Msg("checkpoints found")
	}
	for _, plan := range plans {
		for _, t := range plan.Targets() {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			var err error
			switch phase {
			case PhaseTrain:
				err = s.train(ctx, r, t, report)
			case PhaseRecs:
				err = s.recs(ctx, r, t, report)
			case PhaseMetrics:
				err = s.metrics(ctx, r, t, report)
			default:
				_, err = ParsePhase(string(phase))
			}
			if err != nil {
				return report, err
			}
		}
	}
	logging.Info().
		Str("phase", string(phase)).
		Int("rendered", report.Rendered).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("skipped", report.Skipped).
		Msg("sweep finished")
	return report, nil
}

// Checkpoints 返回某阶段已完成运行的检查点 key（有序）；未配置 Store 时为空。
func (s *Sweep) Checkpoints(ctx context.Context, phase Phase) ([]string, error) {
	if s.Store == nil {
		return nil, nil
	}
	return s.Store.Keys(ctx, CheckpointPrefix+string(phase)+":")
}

// Reset 删除某阶段的全部检查点，返回删除数量。
func (s *Sweep) Reset(ctx context.Context, phase Phase) (int, error) {
	keys, err := s.Checkpoints(ctx, phase)
	if err != nil {
		return 0, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "list checkpoints", err)
	}
	for i, key := range keys {
		if err := s.Store.Delete(ctx, key); err != nil {
			return i, core.WrapDomainError(core.ModuleStore, core.ErrorCodeUnavailable, "delete checkpoint "+key, err)
		}
	}
	if len(keys) > 0 {
		logging.Info().Str("phase", string(phase)).Int("checkpoints", len(keys)).Msg("checkpoints cleared")
	}
	return len(keys), nil
}

func (s *Sweep) train(ctx context.Context, r *Renderer, t Target, report *Report) error {
	for _, m := range s.Config.Models {
		u := Unit{Phase: PhaseTrain, Target: t, Model: m.Name}
		if s.done(ctx, u) {
			s.observe(report, u.Phase, StatusSkipped)
			continue
		}
		doc, err := r.RenderTrain(t, m)
		if err != nil {
			return fmt.Errorf("render %s %s: %w", t.Name(), m.Name, err)
		}
		if err := s.execute(ctx, u, doc, report); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweep) recs(ctx context.Context, r *Renderer, t Target, report *Report) error {
	best, err := ScanBestModels(s.Config.ResultsDir, t.Name())
	if err != nil {
		u := Unit{Phase: PhaseRecs, Target: t}
		s.fail(u, err, report)
		return nil
	}
	for _, bm := range best {
		m, ok := s.model(bm.Model)
		if !ok {
			return core.Errorf(core.ModuleExperiment, core.ErrorCodeInvalidConfig,
				"no model configured for best model %q (%s)", bm.Model, bm.Path)
		}
		u := Unit{Phase: PhaseRecs, Target: t, Model: m.Name}
		if s.done(ctx, u) {
			s.observe(report, u.Phase, StatusSkipped)
			continue
		}
		doc, err := r.RenderRecs(t, m, bm)
		if err != nil {
			return fmt.Errorf("render %s %s: %w", t.Name(), m.Name, err)
		}
		if err := s.execute(ctx, u, doc, report); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sweep) metrics(ctx context.Context, r *Renderer, t Target, report *Report) error {
	u := Unit{Phase: PhaseMetrics, Target: t}
	if s.done(ctx, u) {
		s.observe(report, u.Phase, StatusSkipped)
		return nil
	}
	doc, err := r.RenderMetrics(t)
	if err != nil {
		return fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return s.execute(ctx, u, doc, report)
}

func (s *Sweep) model(key string) (Model, bool) {
	for _, m := range s.Config.Models {
		if m.Key() == key || m.Name == key {
			return m, true
		}
	}
	return Model{}, false
}

// execute 写出配置并运行；只有 ctx 取消与写文件失败会中止扫描。
func (s *Sweep) execute(ctx context.Context, u Unit, doc *Document, report *Report) error {
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	u.ConfigPath = filepath.Join(s.Config.ConfigDir, configFileName(u))
	if err := dataset.WriteFile(u.ConfigPath, data); err != nil {
		return err
	}
	log := logging.With().
		Str("phase", string(u.Phase)).
		Str("dataset", u.Target.Name()).
		Str("model", u.Model).
		Str("config", u.ConfigPath).
		Logger()

	if s.Runner == nil {
		s.observe(report, u.Phase, StatusRendered)
		log.Debug().Msg("experiment config rendered")
		return nil
	}
	start := time.Now()
	if err := s.Runner.Run(ctx, u.ConfigPath); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.fail(u, err, report)
		return nil
	}
	s.observe(report, u.Phase, StatusSucceeded)
	s.checkpoint(ctx, u)
	log.Info().Dur("elapsed", time.Since(start)).Msg("experiment finished")
	return nil
}

func (s *Sweep) fail(u Unit, cause error, report *Report) {
	s.observe(report, u.Phase, StatusFailed)
	logging.Err(cause).
		Str("phase", string(u.Phase)).
		Str("dataset", u.Target.Name()).
		Str("model", u.Model).
		Msg("experiment failed")
	if s.ErrorLog == nil {
		return
	}
	if err := s.ErrorLog.Record(u, cause); err != nil {
		logging.Err(err).Str("path", s.ErrorLog.Path()).Msg("write error log")
	}
}

func (s *Sweep) done(ctx context.Context, u Unit) bool {
	if s.Store == nil || !s.Config.Resume {
		return false
	}
	_, err := s.Store.Get(ctx, u.Key())
	if err != nil {
		if !core.IsStoreNotFound(err) {
			logging.Warn().Err(err).Str("store", s.Store.Name()).Str("key", u.Key()).Msg("checkpoint lookup failed")
		}
		return false
	}
	return true
}

func (s *Sweep) checkpoint(ctx context.Context, u Unit) {
	if s.Store == nil {
		return
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	if err := s.Store.Set(ctx, u.Key(), []byte(now().UTC().Format(time.RFC3339)), s.Config.CheckpointTTL); err != nil {
		logging.Warn().Err(err).Str("store", s.Store.Name()).Str("key", u.Key()).Msg("checkpoint write failed")
	}
}

func (s *Sweep) observe(report *Report, phase Phase, status string) {
	switch status {
	case StatusRendered:
		report.Rendered++
	case StatusSucceeded:
		report.Succeeded++
	case StatusFailed:
		report.Failed++
	case StatusSkipped:
		report.Skipped++
	}
	if s.Observer != nil {
		s.Observer.Experiment(string(phase), status)
	}
}

func configFileName(u Unit) string {
	name := string(u.Phase) + "_" + u.Target.Name()
	if u.Model != "" {
		name += "_" + strings.ReplaceAll(u.Model, string(filepath.Separator), "_")
	}
	return name + ".yml"
}
