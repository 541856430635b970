package experiment

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
)

// Target 是一个最小化数据变体：<dataset>/<strategy>/<n>.tsv。
type Target struct {
	Dataset  string
	Strategy string
	N        int
}

// Name 返回外部框架使用的数据集名 <dataset>_<strategy>_<n>。
func (t Target) Name() string {
	return t.Dataset + "_" + t.Strategy + "_" + strconv.Itoa(t.N)
}

// Document 是外部训练框架的配置文件。
type Document struct {
	Experiment Experiment `yaml:"experiment"`
}

// Experiment 是配置文件的 experiment 段。
type Experiment struct {
	Backend            string         `yaml:"backend,omitempty"`
	DataConfig         DataConfig     `yaml:"data_config"`
	Dataset            string         `yaml:"dataset"`
	TopK               int            `yaml:"top_k"`
	Evaluation         map[string]any `yaml:"evaluation,omitempty"`
	GPU                int            `yaml:"gpu"`
	ExternalModelsPath string         `yaml:"external_models_path,omitempty"`
	Models             map[string]any `yaml:"models"`
}

// DataConfig 指向固定划分的 train/val/test 文件。
type DataConfig struct {
	Strategy       string `yaml:"strategy"`
	TrainPath      string `yaml:"train_path"`
	ValidationPath string `yaml:"validation_path"`
	TestPath       string `yaml:"test_path"`
}

// Marshal 序列化为 YAML。
func (d *Document) Marshal() ([]byte, error) {
	return yaml.Marshal(d)
}

// Renderer 根据实验配置与目录约定渲染三个阶段的配置文件。
type Renderer struct {
	Config Config
	Layout dataset.Layout
}

// RenderTrain 渲染训练配置：模型块原样使用 train 搜索空间（其中的占位符同样会被填充）。
func (r *Renderer) RenderTrain(t Target, m Model) (*Document, error) {
	params := r.params(t)
	block, err := Fill(m.Train, params)
	if err != nil {
		return nil, err
	}
	doc := r.base(t, r.Config.TopK, r.backend(m.Backend))
	evaluation, err := Fill(r.Config.Evaluation, params)
	if err != nil {
		return nil, err
	}
	doc.Experiment.Evaluation = asMap(evaluation)
	doc.Experiment.ExternalModelsPath = r.Config.ExternalModelsPath
	doc.Experiment.Models = map[string]any{m.Name: block}
	return doc, nil
}

// RenderRecs 用最优模型参数填充 recs 模板，生成保存推荐结果的配置。
func (r *Renderer) RenderRecs(t Target, m Model, best *BestModel) (*Document, error) {
	if len(m.Recs) == 0 {
		return nil, core.Errorf(core.ModuleExperiment, core.ErrorCodeInvalidConfig,
			"model %q has no recs template", m.Name)
	}
	params := make(map[string]any, len(best.Params)+8)
	for k, v := range best.Params {
		params[k] = v
	}
	for k, v := range r.params(t) {
		params[k] = v
	}
	block, err := Fill(m.Recs, params)
	if err != nil {
		return nil, err
	}
	evaluation, err := Fill(r.Config.Evaluation, params)
	if err != nil {
		return nil, err
	}
	doc := r.base(t, r.Config.TopK, r.backend(m.Backend))
	doc.Experiment.Evaluation = asMap(evaluation)
	doc.Experiment.ExternalModelsPath = r.Config.ExternalModelsPath
	doc.Experiment.Models = map[string]any{m.Name: block}
	return doc, nil
}

// RenderMetrics 渲染指标计算配置，分组文件取自 <data_dir>/<ds>/。
func (r *Renderer) RenderMetrics(t Target) (*Document, error) {
	mc := r.Config.Metrics
	params := r.params(t)
	if c, ok := r.Config.Clustering[t.Dataset]; ok {
		src := r.Layout.SourceDir(t.Dataset)
		params["user_clustering_name"] = c.UserName
		params["item_clustering_name"] = c.ItemName
		if c.UserFile != "" {
			params["user_clustering_file"] = r.relative(filepath.Join(src, c.UserFile))
		}
		if c.ItemFile != "" {
			params["item_clustering_file"] = r.relative(filepath.Join(src, c.ItemFile))
		}
	}
	evaluation, err := Fill(mc.Evaluation, params)
	if err != nil {
		return nil, err
	}
	models, err := Fill(mc.Models, params)
	if err != nil {
		return nil, err
	}
	backend := mc.Backend
	if backend == "" {
		backend = r.Config.Backend
	}
	doc := r.base(t, mc.TopK, backend)
	doc.Experiment.Evaluation = asMap(evaluation)
	doc.Experiment.Models = asMap(models)
	return doc, nil
}

func (r *Renderer) base(t Target, topK int, backend string) *Document {
	return &Document{Experiment: Experiment{
		Backend: backend,
		DataConfig: DataConfig{
			Strategy:       "fixed",
			TrainPath:      r.relative(r.Layout.Variant(t.Dataset, t.Strategy, t.N)),
			ValidationPath: r.relative(r.Layout.Shared(t.Dataset, "val")),
			TestPath:       r.relative(r.Layout.Shared(t.Dataset, "test")),
		},
		Dataset: t.Name(),
		TopK:    topK,
		GPU:     r.Config.GPU,
	}}
}

func (r *Renderer) backend(model string) string {
	if model != "" {
		return model
	}
	return r.Config.Backend
}

func (r *Renderer) params(t Target) map[string]any {
	n := strconv.Itoa(t.N)
	return map[string]any{
		"dataset":           t.Dataset,
		"strategy":          t.Strategy,
		"n":                 n,
		"interactions_numb": n,
		"dataset_name":      t.Name(),
		"results_dir":       r.Config.ResultsDir,
	}
}

// relative 返回 target 相对配置目录的路径；无法求相对路径时返回绝对路径。
func (r *Renderer) relative(target string) string {
	base, err := filepath.Abs(r.Config.ConfigDir)
	if err != nil {
		return target
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return target
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

var placeholder = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Fill 深度复制 v 并替换字符串中的 {key} 占位符。
//
// 整个字符串恰为一个占位符时保留参数原值（数字仍为数字）；否则按文本拼接。
// 参数缺失返回 INVALID_CONFIG。
func Fill(v any, params map[string]any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			filled, err := Fill(child, params)
			if err != nil {
				return nil, err
			}
			out[k] = filled
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, child := range x {
			filled, err := Fill(child, params)
			if err != nil {
				return nil, err
			}
			out[i] = filled
		}
		return out, nil
	case string:
		return fillString(x, params)
	default:
		return v, nil
	}
}

func fillString(s string, params map[string]any) (any, error) {
	if m := placeholder.FindStringSubmatchIndex(s); m != nil && m[0] == 0 && m[1] == len(s) {
		key := s[m[2]:m[3]]
		val, ok := params[key]
		if !ok {
			return nil, missingParam(key)
		}
		return val, nil
	}
	var missing string
	out := placeholder.ReplaceAllStringFunc(s, func(tok string) string {
		key := tok[1 : len(tok)-1]
		val, ok := params[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return tok
		}
		return fmt.Sprint(val)
	})
	if missing != "" {
		return nil, missingParam(missing)
	}
	return out, nil
}

func missingParam(key string) error {
	return core.Errorf(core.ModuleExperiment, core.ErrorCodeInvalidConfig,
		"missing required parameter in the dictionary: %s", key)
}
