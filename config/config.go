// Package config 负责运行配置的加载与校验，以及 pipeline 阶段的全局注册表。
//
// 加载顺序（后者覆盖前者）：结构体默认值 → YAML 文件 → RECMIN_ 环境变量。
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
	"github.com/rushteam/recmin/experiment"
	"github.com/rushteam/recmin/feature"
	"github.com/rushteam/recmin/minimize"
	"github.com/rushteam/recmin/pipeline"
	"github.com/rushteam/recmin/schema"
	"github.com/rushteam/recmin/split"
	"github.com/rushteam/recmin/store"
)

// EnvPrefix 环境变量前缀，例如 RECMIN_SEED=7、RECMIN_LOG_LEVEL=debug、RECMIN_EXPERIMENT__TOP_K=20
const EnvPrefix = "RECMIN_"

// Config 是一次批处理运行的全部配置。
type Config struct {
	Seed        int64  `koanf:"seed"`
	Concurrency int    `koanf:"concurrency" validate:"gte=1"`
	DataDir     string `koanf:"data_dir" validate:"required"`
	OutputDir   string `koanf:"output_dir" validate:"required"`

	Log        LogConfig        `koanf:"log"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Checkpoint store.Config     `koanf:"checkpoint"`
	Population PopulationConfig `koanf:"population"`
	Temporal   split.Ratios     `koanf:"temporal"`

	// Strategies 与 Budgets 是所有数据集的默认扫描范围
	Strategies []string `koanf:"strategies" validate:"min=1"`
	Budgets    []int    `koanf:"budgets" validate:"min=1,dive,gte=1"`

	Datasets   []DatasetConfig   `koanf:"datasets" validate:"dive"`
	Experiment experiment.Config `koanf:"experiment"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// MetricsConfig 指标输出配置；Textfile 为空时不写出。
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// PopulationConfig 数据主体 / 最小化器划分比例（按用户）。
type PopulationConfig struct {
	Ratio float64 `koanf:"ratio" validate:"gt=0,lt=1"`
}

// DatasetConfig 单个数据集。
type DatasetConfig struct {
	Name     string          `koanf:"name" validate:"required"`
	File     string          `koanf:"file" validate:"required"`
	// Delimiter 原始文件分隔符：默认 tab，可为 "comma" 或任意单个字符
	Delimiter string          `koanf:"delimiter"`
	Keywords  []KeywordConfig `koanf:"keywords" validate:"dive"`
	// Stages 预处理阶段；为空时使用 DefaultStages
	Stages []pipeline.NodeConfig `koanf:"stages"`
	// Strategies / Budgets 为空时使用全局配置
	Strategies []string           `koanf:"strategies"`
	Budgets    []int              `koanf:"budgets" validate:"dive,gte=1"`
	SideInfo   []feature.SideInfo `koanf:"side_info" validate:"dive"`
}

// KeywordConfig 列关键字配置。
type KeywordConfig struct {
	Column   string `koanf:"column" validate:"required"`
	Keyword  string `koanf:"keyword" validate:"required"`
	Optional bool   `koanf:"optional"`
}

// DefaultStages 返回默认预处理：user+item 45-core，再抽样 2500 个用户。
func DefaultStages() []pipeline.NodeConfig {
	return []pipeline.NodeConfig{
		{Type: "filter.kcore", Config: map[string]any{"k": 45, "columns": []any{"user", "item"}}},
		{Type: "split.sample", Config: map[string]any{"column": "user", "n": 2500}},
	}
}

// Default 返回默认配置。
func Default() *Config {
	strategies := make([]string, 0, len(minimize.SupportedKinds()))
	for _, k := range minimize.SupportedKinds() {
		strategies = append(strategies, string(k))
	}
	return &Config{
		Seed:        42,
		Concurrency: 1,
		DataDir:     "data",
		OutputDir:   "dataset",
		Log:         LogConfig{Level: "info", Format: "console"},
		Checkpoint:  store.Config{Type: "memory"},
		Population:  PopulationConfig{Ratio: 0.7},
		Temporal:    split.DefaultRatios(),
		Strategies:  strategies,
		Budgets:     []int{1, 3, 7, 15, 100},
		Experiment:  experiment.DefaultConfig(),
	}
}

// Load 依次加载默认值、path（可为空）与环境变量，然后校验。
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				fmt.Sprintf("failed to load config file %s", path), err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	processSliceFields(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig,
			"failed to unmarshal configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envTransformFunc RECMIN_LOG_LEVEL -> log.level；RECMIN_EXPERIMENT__TOP_K -> experiment.top_k。
// 顶层字段保持原样，其余第一个 "_" 视为层级分隔；"__" 显式表示层级。
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if strings.Contains(key, "__") {
		return strings.ReplaceAll(key, "__", ".")
	}
	switch key {
	case "seed", "concurrency", "data_dir", "output_dir", "strategies", "budgets":
		return key
	}
	if section, rest, ok := strings.Cut(key, "_"); ok {
		return section + "." + rest
	}
	return key
}

// processSliceFields 把环境变量中的字符串拆成列表：策略与预算按逗号，命令按空白。
func processSliceFields(k *koanf.Koanf) {
	splitters := map[string]func(string) []string{
		"strategies":         commaFields,
		"budgets":            commaFields,
		"experiment.command": strings.Fields,
	}
	for key, fn := range splitters {
		s, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		parts := fn(s)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		_ = k.Set(key, out)
	}
}

func commaFields(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var validate = validator.New()

// Validate 结构校验（validator 标签）加语义校验；失败返回 INVALID_CONFIG（比例错误为 INVALID_RATIO）。
func (c *Config) Validate() error {
	if err := c.Temporal.Validate(); err != nil {
		return fmt.Errorf("temporal: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				"invalid value for %s: failed %q check", fe.Namespace(), fe.Tag())
		}
		return core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig, "configuration validation failed", err)
	}
	if err := checkStrategies(c.Strategies); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Datasets))
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		if _, dup := seen[ds.Name]; dup {
			return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig, "duplicate dataset name %q", ds.Name)
		}
		seen[ds.Name] = struct{}{}
		if err := checkStrategies(ds.Strategies); err != nil {
			return fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		if _, err := ds.SchemaKeywords(); err != nil {
			return fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		if _, err := ds.Separator(); err != nil {
			return fmt.Errorf("dataset %s: %w", ds.Name, err)
		}
		for _, side := range ds.SideInfo {
			if _, err := dataset.ParseDelimiter(side.Delimiter); err != nil {
				return fmt.Errorf("dataset %s: side info %s: %w", ds.Name, side.File, err)
			}
		}
	}
	return nil
}

func checkStrategies(names []string) error {
	for _, name := range names {
		if _, err := minimize.Parse(name); err != nil {
			return err
		}
	}
	return nil
}

// Separator 返回原始交互文件的分隔符。
func (d *DatasetConfig) Separator() (rune, error) {
	return dataset.ParseDelimiter(d.Delimiter)
}

// SchemaKeywords 返回列关键字映射；未配置时使用 schema.DefaultKeywords。
func (d *DatasetConfig) SchemaKeywords() (schema.Keywords, error) {
	if len(d.Keywords) == 0 {
		return schema.DefaultKeywords(), nil
	}
	out := make(schema.Keywords, 0, len(d.Keywords))
	for _, kc := range d.Keywords {
		col, err := core.ParseColumn(kc.Column)
		if err != nil {
			return nil, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				fmt.Sprintf("invalid keyword column %q", kc.Column), err)
		}
		out = append(out, schema.Keyword{Column: col, Keyword: kc.Keyword, Optional: kc.Optional})
	}
	// 规范输出文件需要 user、item、rating 三列
	for _, required := range []core.Column{core.ColumnUser, core.ColumnItem, core.ColumnRating} {
		if !hasRequiredKeyword(out, required) {
			return nil, core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				"keywords must map a non-optional %q column", required.String())
		}
	}
	return out, nil
}

func hasRequiredKeyword(kws schema.Keywords, col core.Column) bool {
	for _, kw := range kws {
		if kw.Column == col && !kw.Optional {
			return true
		}
	}
	return false
}

// PipelineConfig 返回该数据集的预处理 pipeline 配置。
func (d *DatasetConfig) PipelineConfig() *pipeline.Config {
	stages := d.Stages
	if len(stages) == 0 {
		stages = DefaultStages()
	}
	return pipeline.NewConfig(d.Name, stages)
}

// StrategiesOr 返回数据集的策略列表，未配置时用 fallback。
func (d *DatasetConfig) StrategiesOr(fallback []string) []string {
	if len(d.Strategies) > 0 {
		return d.Strategies
	}
	return fallback
}

// BudgetsOr 返回数据集的预算列表，未配置时用 fallback。
func (d *DatasetConfig) BudgetsOr(fallback []int) []int {
	if len(d.Budgets) > 0 {
		return d.Budgets
	}
	return fallback
}

// Dataset 按名称查找数据集。
func (c *Config) Dataset(name string) (*DatasetConfig, bool) {
	for i := range c.Datasets {
		if c.Datasets[i].Name == name {
			return &c.Datasets[i], true
		}
	}
	return nil, false
}

// Plans 返回实验扫描计划。
func (c *Config) Plans() []experiment.Plan {
	plans := make([]experiment.Plan, 0, len(c.Datasets))
	for i := range c.Datasets {
		ds := &c.Datasets[i]
		plans = append(plans, experiment.Plan{
			Dataset:    ds.Name,
			Strategies: ds.StrategiesOr(c.Strategies),
			Budgets:    ds.BudgetsOr(c.Budgets),
		})
	}
	return plans
}
