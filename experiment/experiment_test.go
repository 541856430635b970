package experiment

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
	"github.com/rushteam/recmin/store"
)

type fixture struct {
	root   string
	cfg    Config
	layout dataset.Layout
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.ConfigDir = filepath.Join(root, "config_files")
	cfg.ResultsDir = filepath.Join(root, "results")
	cfg.ErrorLog = filepath.Join(root, "error_log.txt")
	cfg.Clustering = map[string]Clustering{
		"ml-1m": {UserName: "user_gender", UserFile: "user_gender.tsv", ItemName: "item_year", ItemFile: "item_year.tsv"},
	}
	return &fixture{
		root:   root,
		cfg:    cfg,
		layout: dataset.Layout{DataDir: filepath.Join(root, "data"), OutputDir: filepath.Join(root, "dataset")},
	}
}

func (f *fixture) renderer() *Renderer { return &Renderer{Config: f.cfg, Layout: f.layout} }

func decode(t *testing.T, doc *Document) map[string]any {
	t.Helper()
	data, err := doc.Marshal()
	require.NoError(t, err)
	out := make(map[string]any)
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out["experiment"].(map[string]any)
}

func writeBestModel(t *testing.T, resultsDir, name, file, content string) {
	t.Helper()
	dir := filepath.Join(resultsDir, name, "performance")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644))
}

const bestBPRMF = `[
  {"meta": {"name": "external.BPRMF"}},
  {"recommender": "BPRMF_seed=123_e=300_factors=64", "configuration": {"lr": 0.005, "l_w": 0.01, "best_iteration": 17}}
]`

func TestFill(t *testing.T) {
	params := map[string]any{"lr": 0.01, "dataset": "ml-1m", "n": "3"}

	out, err := Fill(map[string]any{
		"lr":     "{lr}",
		"folder": "results/{dataset}_{n}/recs",
		"fixed":  64,
		"list":   []any{"{dataset}", 1},
	}, params)
	require.NoError(t, err)
	m := out.(map[string]any)
	assert.Equal(t, 0.01, m["lr"])
	assert.Equal(t, "results/ml-1m_3/recs", m["folder"])
	assert.Equal(t, 64, m["fixed"])
	assert.Equal(t, []any{"ml-1m", 1}, m["list"])

	_, err = Fill(map[string]any{"x": "{missing}"}, params)
	require.Error(t, err)
	assert.True(t, core.IsInvalidConfig(err))
	assert.Contains(t, err.Error(), "missing required parameter in the dictionary: missing")

	_, err = Fill("prefix-{other}", params)
	assert.True(t, core.IsInvalidConfig(err))
}

func TestRenderTrain(t *testing.T) {
	f := newFixture(t)
	target := Target{Dataset: "ml-1m", Strategy: "random", N: 3}

	doc, err := f.renderer().RenderTrain(target, f.cfg.Models[0])
	require.NoError(t, err)
	assert.Equal(t, "ml-1m_random_3", doc.Experiment.Dataset)
	assert.Equal(t, "../dataset/ml-1m/random/3.tsv", doc.Experiment.DataConfig.TrainPath)
	assert.Equal(t, "../dataset/ml-1m/val.tsv", doc.Experiment.DataConfig.ValidationPath)
	assert.Equal(t, "../dataset/ml-1m/test.tsv", doc.Experiment.DataConfig.TestPath)

	exp := decode(t, doc)
	assert.Equal(t, "pytorch", exp["backend"])
	assert.Equal(t, 10, exp["top_k"])
	models := exp["models"].(map[string]any)
	require.Contains(t, models, "external.BPRMF")
	bpr := models["external.BPRMF"].(map[string]any)
	assert.Equal(t, 300, bpr["epochs"])
	assert.Equal(t, false, bpr["meta"].(map[string]any)["save_recs"])
}

func TestReadBestModel(t *testing.T) {
	dir := t.TempDir()
	writeBestModel(t, dir, "ml-1m_full_1", "bestmodel_BPRMF.json", bestBPRMF)
	writeBestModel(t, dir, "ml-1m_full_1", "other.json", `[]`)

	best, err := ScanBestModels(dir, "ml-1m_full_1")
	require.NoError(t, err)
	require.Len(t, best, 1)
	bm := best[0]
	assert.Equal(t, "BPRMF", bm.Model)
	assert.Equal(t, "BPRMF_seed=123_e=300_factors=64", bm.Recommender)
	assert.Equal(t, int64(17), bm.Params["epochs"])
	assert.Equal(t, int64(17), bm.Params["validation_rate"])
	assert.Equal(t, 0.005, bm.Params["lr"])

	_, err = ScanBestModels(dir, "ml-1m_random_1")
	assert.True(t, core.IsNotFound(err))

	writeBestModel(t, dir, "broken", "bestmodel_x.json", `{"not": "a list"}`)
	_, err = ScanBestModels(dir, "broken")
	assert.True(t, core.IsInvalidInput(err))
}

func TestRenderRecs(t *testing.T) {
	f := newFixture(t)
	writeBestModel(t, f.cfg.ResultsDir, "ml-1m_full_1", "bestmodel_BPRMF.json", bestBPRMF)
	best, err := ScanBestModels(f.cfg.ResultsDir, "ml-1m_full_1")
	require.NoError(t, err)

	target := Target{Dataset: "ml-1m", Strategy: "full", N: 1}
	doc, err := f.renderer().RenderRecs(target, f.cfg.Models[0], best[0])
	require.NoError(t, err)

	bpr := decode(t, doc)["models"].(map[string]any)["external.BPRMF"].(map[string]any)
	assert.Equal(t, 17, bpr["epochs"])
	assert.Equal(t, 0.005, bpr["lr"])
	assert.Equal(t, 0.01, bpr["l_w"])
	meta := bpr["meta"].(map[string]any)
	assert.Equal(t, true, meta["save_recs"])
	assert.Equal(t, 17, meta["validation_rate"])

	m := f.cfg.Models[0]
	m.Recs = map[string]any{"neighbors": "{neighbors}"}
	_, err = f.renderer().RenderRecs(target, m, best[0])
	assert.True(t, core.IsInvalidConfig(err))

	m.Recs = nil
	_, err = f.renderer().RenderRecs(target, m, best[0])
	assert.True(t, core.IsInvalidConfig(err))
}

func TestRenderMetrics(t *testing.T) {
	f := newFixture(t)
	doc, err := f.renderer().RenderMetrics(Target{Dataset: "ml-1m", Strategy: "most_rated", N: 7})
	require.NoError(t, err)

	exp := decode(t, doc)
	assert.Equal(t, 20, exp["top_k"])
	eval := exp["evaluation"].(map[string]any)
	assert.Equal(t, []any{1, 10, 20}, eval["cutoffs"])
	complexMetrics := eval["complex_metrics"].([]any)
	require.Len(t, complexMetrics, 6)
	reo := complexMetrics[0].(map[string]any)
	assert.Equal(t, "REO", reo["metric"])
	assert.Equal(t, "item_year", reo["clustering_name"])
	assert.Equal(t, "../data/ml-1m/item_year.tsv", reo["clustering_file"])
	mad := complexMetrics[5].(map[string]any)
	assert.Equal(t, "../data/ml-1m/user_gender.tsv", mad["clustering_file"])

	folder := exp["models"].(map[string]any)["RecommendationFolder"].(map[string]any)["folder"]
	assert.Equal(t, f.cfg.ResultsDir+"/ml-1m_most_rated_7/recs", folder)

	_, err = f.renderer().RenderMetrics(Target{Dataset: "ambar", Strategy: "random", N: 1})
	require.Error(t, err)
	assert.True(t, core.IsInvalidConfig(err))
}

func TestPlanTargets(t *testing.T) {
	p := Plan{Dataset: "ml-1m", Strategies: []string{"random", "full"}, Budgets: []int{1, 3}}
	assert.Equal(t, []Target{
		{Dataset: "ml-1m", Strategy: "random", N: 1},
		{Dataset: "ml-1m", Strategy: "random", N: 3},
		{Dataset: "ml-1m", Strategy: "full", N: 1},
	}, p.Targets())
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("recs")
	require.NoError(t, err)
	assert.Equal(t, PhaseRecs, p)

	_, err = ParsePhase("deploy")
	assert.True(t, core.IsInvalidInput(err))
}

type countingObserver map[string]int

func (c countingObserver) Experiment(phase, status string) { c[phase+"/"+status]++ }

func TestSweepRenderOnly(t *testing.T) {
	f := newFixture(t)
	obs := countingObserver{}
	s := NewSweep(f.cfg, f.layout, nil)
	s.Observer = obs

	plans := []Plan{{Dataset: "ml-1m", Strategies: []string{"random", "full"}, Budgets: []int{1, 3}}}
	report, err := s.Run(context.Background(), PhaseTrain, plans)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Rendered)
	assert.Equal(t, 3, obs["train/rendered"])
	assert.FileExists(t, filepath.Join(f.cfg.ConfigDir, "train_ml-1m_random_3_external.BPRMF.yml"))
	assert.FileExists(t, filepath.Join(f.cfg.ConfigDir, "train_ml-1m_full_1_external.BPRMF.yml"))
	assert.NoFileExists(t, f.cfg.ErrorLog)
}

func TestSweepFailuresAndResume(t *testing.T) {
	f := newFixture(t)
	f.cfg.Resume = true
	st := store.NewMemoryStore()
	defer st.Close()

	var calls []string
	s := NewSweep(f.cfg, f.layout, st)
	s.Runner = RunnerFunc(func(_ context.Context, configPath string) error {
		calls = append(calls, filepath.Base(configPath))
		if strings.Contains(configPath, "random_3") {
			return errors.New("boom")
		}
		return nil
	})

	plans := []Plan{{Dataset: "ml-1m", Strategies: []string{"random", "full"}, Budgets: []int{1, 3}}}
	report, err := s.Run(context.Background(), PhaseTrain, plans)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Len(t, calls, 3)

	entries := errorLogEntries(t, f.cfg.ErrorLog)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "error", e["level"])
	assert.Equal(t, "Error Processing", e["message"])
	assert.Equal(t, "train", e["phase"])
	assert.Equal(t, "ml-1m", e["dataset"])
	assert.Equal(t, "random", e["strategy"])
	assert.Equal(t, float64(3), e["n"])
	assert.Equal(t, "external.BPRMF", e["model"])
	assert.Equal(t, filepath.Join(f.cfg.ConfigDir, "train_ml-1m_random_3_external.BPRMF.yml"), e["config"])
	assert.Equal(t, "boom", e["error"])
	assert.NotEmpty(t, e["time"])

	keys, err := st.Keys(context.Background(), CheckpointPrefix+"train:")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"recmin:sweep:train:ml-1m_full_1:external.BPRMF",
		"recmin:sweep:train:ml-1m_random_1:external.BPRMF",
	}, keys)

	calls = nil
	report, err = s.Run(context.Background(), PhaseTrain, plans)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 2, report.Checkpointed)
	assert.Equal(t, []string{"train_ml-1m_random_3_external.BPRMF.yml"}, calls)
	// 追加写，保留上一轮的记录
	assert.Len(t, errorLogEntries(t, f.cfg.ErrorLog), 2)

	calls = nil
	s.Config.Reset = true
	report, err = s.Run(context.Background(), PhaseTrain, plans)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Cleared)
	assert.Equal(t, 0, report.Checkpointed)
	assert.Equal(t, 0, report.Skipped)
	assert.Len(t, calls, 3)
}

type ttlStore struct {
	*store.MemoryStore
	ttls []int
}

func (s *ttlStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	s.ttls = append(s.ttls, ttl...)
	return s.MemoryStore.Set(ctx, key, value, ttl...)
}

func TestSweepCheckpointTTLAndReset(t *testing.T) {
	f := newFixture(t)
	f.cfg.CheckpointTTL = 3600
	st := &ttlStore{MemoryStore: store.NewMemoryStore()}
	ctx := context.Background()
	// 其他阶段的检查点不受 Reset 影响
	require.NoError(t, st.Set(ctx, CheckpointPrefix+"recs:ml-1m_full_1:external.BPRMF", []byte("x")))

	s := NewSweep(f.cfg, f.layout, st)
	s.Runner = RunnerFunc(func(context.Context, string) error { return nil })
	plans := []Plan{{Dataset: "ml-1m", Strategies: []string{"random"}, Budgets: []int{1, 3}}}
	_, err := s.Run(ctx, PhaseTrain, plans)
	require.NoError(t, err)
	assert.Equal(t, []int{3600, 3600}, st.ttls)

	keys, err := s.Checkpoints(ctx, PhaseTrain)
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	n, err := s.Reset(ctx, PhaseTrain)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	keys, err = s.Checkpoints(ctx, PhaseTrain)
	require.NoError(t, err)
	assert.Empty(t, keys)
	keys, err = s.Checkpoints(ctx, PhaseRecs)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	n, err = NewSweep(f.cfg, f.layout, nil).Reset(ctx, PhaseTrain)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func errorLogEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e), line)
		out = append(out, e)
	}
	return out
}

func TestSweepRecs(t *testing.T) {
	f := newFixture(t)
	writeBestModel(t, f.cfg.ResultsDir, "ml-1m_full_1", "bestmodel_BPRMF.json", bestBPRMF)

	var ran []string
	s := NewSweep(f.cfg, f.layout, nil)
	s.Runner = RunnerFunc(func(_ context.Context, configPath string) error {
		ran = append(ran, filepath.Base(configPath))
		return nil
	})

	plans := []Plan{{Dataset: "ml-1m", Strategies: []string{"random", "full"}, Budgets: []int{1}}}
	report, err := s.Run(context.Background(), PhaseRecs, plans)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"recs_ml-1m_full_1_external.BPRMF.yml"}, ran)

	entries := errorLogEntries(t, f.cfg.ErrorLog)
	require.Len(t, entries, 1)
	assert.Equal(t, "recs", entries[0]["phase"])
	assert.Equal(t, "ml-1m", entries[0]["dataset"])
	assert.Equal(t, "random", entries[0]["strategy"])
	assert.Equal(t, float64(1), entries[0]["n"])
	assert.Empty(t, entries[0]["model"])
	assert.NotEmpty(t, entries[0]["error"])
}

func TestSweepRecsUnknownModel(t *testing.T) {
	f := newFixture(t)
	writeBestModel(t, f.cfg.ResultsDir, "ml-1m_full_1", "bestmodel_EASER.json",
		`[{"recommender": "EASER_l2_norm=10", "configuration": {"l2_norm": 10}}]`)

	s := NewSweep(f.cfg, f.layout, nil)
	_, err := s.Run(context.Background(), PhaseRecs, []Plan{{Dataset: "ml-1m", Strategies: []string{"full"}}})
	require.Error(t, err)
	assert.True(t, core.IsInvalidConfig(err))
}

func TestSweepMetricsMissingClustering(t *testing.T) {
	f := newFixture(t)
	s := NewSweep(f.cfg, f.layout, nil)
	_, err := s.Run(context.Background(), PhaseMetrics, []Plan{{Dataset: "ambar", Strategies: []string{"full"}}})
	require.Error(t, err)
	assert.True(t, core.IsInvalidConfig(err))
}

func TestSweepCanceled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSweep(f.cfg, f.layout, nil)
	_, err := s.Run(ctx, PhaseTrain, []Plan{{Dataset: "ml-1m", Strategies: []string{"full"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCommandRunner(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "conf.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("experiment: {}\n"), 0o644))

	ok := &CommandRunner{Command: []string{"sh", "-c", "test -f {config}"}}
	require.NoError(t, ok.Run(context.Background(), cfgPath))

	failing := &CommandRunner{Command: []string{"sh", "-c", "echo boom; exit 3"}}
	err := failing.Run(context.Background(), cfgPath)
	require.Error(t, err)
	assert.True(t, core.IsExternal(err))
	assert.Contains(t, err.Error(), "boom")

	empty := &CommandRunner{}
	assert.True(t, core.IsInvalidConfig(empty.Run(context.Background(), cfgPath)))
}
