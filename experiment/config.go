package experiment

import "strings"

// Config 描述离线实验扫描：渲染外部训练框架的配置文件并逐个执行。
type Config struct {
	// ConfigDir 渲染后的配置文件目录；配置内的数据路径相对该目录
	ConfigDir string `koanf:"config_dir" validate:"required"`
	// ResultsDir 外部框架的结果目录，<results_dir>/<dataset_name>/performance/bestmodel*
	ResultsDir string `koanf:"results_dir" validate:"required"`
	// ErrorLog 失败记录文件（追加写）
	ErrorLog string `koanf:"error_log" validate:"required"`
	// WorkDir 外部命令的工作目录，空为当前目录
	WorkDir string `koanf:"work_dir"`
	// Command 外部命令，{config} 替换为配置路径；为空时只渲染不执行
	Command []string `koanf:"command"`
	// Resume 跳过检查点中已完成的运行
	Resume bool `koanf:"resume"`
	// Reset 运行前删除该阶段的全部检查点
	Reset bool `koanf:"reset"`
	// CheckpointTTL 检查点过期秒数，0 为不过期
	CheckpointTTL int `koanf:"checkpoint_ttl" validate:"gte=0"`

	Backend            string         `koanf:"backend"`
	TopK               int            `koanf:"top_k" validate:"gte=1"`
	GPU                int            `koanf:"gpu"`
	ExternalModelsPath string         `koanf:"external_models_path"`
	Evaluation         map[string]any `koanf:"evaluation"`

	Models     []Model               `koanf:"models" validate:"dive"`
	Metrics    MetricsConfig         `koanf:"metrics"`
	Clustering map[string]Clustering `koanf:"clustering"`
}

// Model 是一个模型的两份参数块：train 为超参搜索空间，recs 为最优参数占位模板。
type Model struct {
	// Name 外部框架中的模型名，例如 external.BPRMF
	Name    string         `koanf:"name" validate:"required"`
	Backend string         `koanf:"backend"`
	Train   map[string]any `koanf:"train"`
	Recs    map[string]any `koanf:"recs"`
}

// Key 返回与 bestmodel 文件中 recommender 前缀对应的短名（最后一个 "." 之后）。
func (m Model) Key() string {
	if i := strings.LastIndex(m.Name, "."); i >= 0 {
		return m.Name[i+1:]
	}
	return m.Name
}

// MetricsConfig 指标阶段的评测配置。
type MetricsConfig struct {
	Backend    string         `koanf:"backend"`
	TopK       int            `koanf:"top_k" validate:"gte=1"`
	Evaluation map[string]any `koanf:"evaluation"`
	Models     map[string]any `koanf:"models"`
}

// Clustering 是某数据集用于复杂指标的用户/物品分组文件（位于 <data_dir>/<ds>/）。
type Clustering struct {
	UserName string `koanf:"user_name"`
	UserFile string `koanf:"user_file"`
	ItemName string `koanf:"item_name"`
	ItemFile string `koanf:"item_file"`
}

// DefaultConfig 返回默认实验配置。
func DefaultConfig() Config {
	return Config{
		ConfigDir:  "config_files",
		ResultsDir: "results",
		ErrorLog:   "error_log.txt",
		Backend:    "pytorch",
		TopK:       10,
		Evaluation: map[string]any{
			"cutoffs":        []any{10},
			"simple_metrics": []any{"nDCGRendle2020"},
		},
		Models:  []Model{defaultBPRMF()},
		Metrics: defaultMetrics(),
	}
}

func defaultBPRMF() Model {
	return Model{
		Name: "external.BPRMF",
		Train: map[string]any{
			"meta": map[string]any{
				"verbose":           true,
				"save_recs":         false,
				"validation_rate":   1,
				"validation_metric": "nDCGRendle2020@10",
			},
			"lr":         []any{0.01, 0.005, 0.001},
			"epochs":     300,
			"factors":    64,
			"batch_size": 1024,
			"l_w":        []any{0.01, 0.005, 0.001},
			"seed":       123,
			"early_stopping": map[string]any{
				"patience": 5,
				"mode":     "auto",
				"monitor":  "nDCGRendle2020@10",
				"verbose":  true,
			},
		},
		Recs: map[string]any{
			"meta": map[string]any{
				"verbose":           true,
				"save_recs":         true,
				"validation_rate":   "{validation_rate}",
				"validation_metric": "nDCGRendle2020@10",
			},
			"lr":         "{lr}",
			"epochs":     "{epochs}",
			"factors":    64,
			"batch_size": 1024,
			"l_w":        "{l_w}",
			"seed":       123,
		},
	}
}

func defaultMetrics() MetricsConfig {
	item := func(metric string) map[string]any {
		return map[string]any{
			"metric":          metric,
			"clustering_name": "{item_clustering_name}",
			"clustering_file": "{item_clustering_file}",
		}
	}
	bias := func(metric string) map[string]any {
		return map[string]any{
			"metric":               metric,
			"user_clustering_name": "{user_clustering_name}",
			"user_clustering_file": "{user_clustering_file}",
			"item_clustering_name": "{item_clustering_name}",
			"item_clustering_file": "{item_clustering_file}",
		}
	}
	return MetricsConfig{
		Backend: "pytorch",
		TopK:    20,
		Evaluation: map[string]any{
			"cutoffs":      []any{1, 10, 20},
			"paired_ttest": true,
			"simple_metrics": []any{
				"nDCG", "nDCGRendle2020", "HR", "Recall", "PopREO", "PopRSP", "Gini", "ItemCoverage",
			},
			"complex_metrics": []any{
				item("REO"),
				item("RSP"),
				bias("BiasDisparityBD"),
				bias("BiasDisparityBR"),
				bias("BiasDisparityBS"),
				map[string]any{
					"metric":          "UserMADRanking",
					"clustering_name": "{user_clustering_name}",
					"clustering_file": "{user_clustering_file}",
				},
			},
		},
		Models: map[string]any{
			"RecommendationFolder": map[string]any{
				"folder": "{results_dir}/{dataset_name}/recs",
			},
		},
	}
}
