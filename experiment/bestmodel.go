package experiment

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rushteam/recmin/core"
)

// BestModel 是外部框架为某个模型写出的最优配置。
type BestModel struct {
	// Path bestmodel 文件路径
	Path string
	// Model recommender 字段中第一个 "_" 之前的部分，例如 BPRMF
	Model string
	// Recommender 原始 recommender 字段
	Recommender string
	// Params 合并后的超参数
	Params map[string]any
}

// ScanBestModels 读取 <results_dir>/<dataset_name>/performance/ 下所有 bestmodel* 文件，按文件名排序。
func ScanBestModels(resultsDir, datasetName string) ([]*BestModel, error) {
	dir := filepath.Join(resultsDir, datasetName, "performance")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.Errorf(core.ModuleExperiment, core.ErrorCodeNotFound,
				"performance directory not found: %s", dir)
		}
		return nil, err
	}
	var out []*BestModel
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "bestmodel") {
			continue
		}
		bm, err := ReadBestModel(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, bm)
	}
	return out, nil
}

// ReadBestModel 解析单个 bestmodel 文件。
//
// 文件是 JSON 数组，元素可能带 recommender 与 configuration；configuration 依次合并。
// 存在 best_iteration 时覆盖 validation_rate 与 epochs。
func ReadBestModel(path string) (*BestModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []map[string]json.RawMessage
	dec := json.NewDecoder(f)
	if err := dec.Decode(&entries); err != nil {
		return nil, core.WrapDomainError(core.ModuleExperiment, core.ErrorCodeInvalidInput,
			fmt.Sprintf("invalid best model file %s", path), err)
	}

	bm := &BestModel{Path: path, Params: make(map[string]any)}
	for _, entry := range entries {
		if raw, ok := entry["recommender"]; ok {
			if err := json.Unmarshal(raw, &bm.Recommender); err != nil {
				return nil, core.WrapDomainError(core.ModuleExperiment, core.ErrorCodeInvalidInput,
					fmt.Sprintf("invalid recommender in %s", path), err)
			}
			bm.Model, _, _ = strings.Cut(bm.Recommender, "_")
		}
		if raw, ok := entry["configuration"]; ok {
			conf := make(map[string]any)
			d := json.NewDecoder(strings.NewReader(string(raw)))
			d.UseNumber()
			if err := d.Decode(&conf); err != nil {
				return nil, core.WrapDomainError(core.ModuleExperiment, core.ErrorCodeInvalidInput,
					fmt.Sprintf("invalid configuration in %s", path), err)
			}
			for k, v := range conf {
				bm.Params[k] = plain(v)
			}
		}
	}
	if bm.Model == "" {
		return nil, core.Errorf(core.ModuleExperiment, core.ErrorCodeInvalidInput,
			"best model file %s has no recommender", path)
	}
	if it, ok := bm.Params["best_iteration"]; ok {
		bm.Params["validation_rate"] = it
		bm.Params["epochs"] = it
	}
	bm.Params["model"] = bm.Model
	return bm, nil
}

// plain 把 json.Number 转为 int64 或 float64，便于 YAML 按数字输出。
func plain(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i := range x {
			x[i] = plain(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = plain(x[k])
		}
		return x
	}
	return v
}
