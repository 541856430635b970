// Package builders 注册内置的预处理阶段，供配置驱动的 pipeline 使用。
package builders

import (
	"fmt"
	"path/filepath"

	"github.com/rushteam/recmin/config"
	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
	"github.com/rushteam/recmin/feature"
	"github.com/rushteam/recmin/filter"
	"github.com/rushteam/recmin/minimize"
	"github.com/rushteam/recmin/pipeline"
	"github.com/rushteam/recmin/pkg/conv"
	"github.com/rushteam/recmin/split"
)

func init() {
	config.Register("filter.kcore", BuildKCoreNode)
	config.Register("filter.expr", BuildExprNode)
	config.Register("filter.attribute", BuildAttributeNode)
	config.Register("split.sample", BuildSampleNode)
	config.Register("minimize.strategy", BuildMinimizeNode)
}

// BuildKCoreNode 配置：k（必需），columns（默认 [user, item]）。
func BuildKCoreNode(cfg map[string]any) (pipeline.Node, error) {
	k := conv.ConfigGetInt64(cfg, "k", 0)
	if k < 1 {
		return nil, fmt.Errorf("k must be >= 1, got %d", k)
	}
	cols, err := columns(cfg["columns"])
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{&filter.KCore{K: int(k), Columns: cols}}}, nil
}

// BuildExprNode 配置：expr，CEL 行谓词。
func BuildExprNode(cfg map[string]any) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("expr not found")
	}
	f, err := filter.NewExpr(expr)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

// BuildAttributeNode 配置：file（属性表路径，相对路径按数据集目录解析），key（实体列），attribute，
// column（user/item，默认 user），delimiter（默认 tab）。
func BuildAttributeNode(cfg map[string]any) (pipeline.Node, error) {
	path := conv.ConfigGet(cfg, "file", "")
	key := conv.ConfigGet(cfg, "key", "")
	attr := conv.ConfigGet(cfg, "attribute", "")
	if path == "" || key == "" || attr == "" {
		return nil, fmt.Errorf("file, key and attribute are required")
	}
	col, err := core.ParseColumn(conv.ConfigGet(cfg, "column", "user"))
	if err != nil {
		return nil, err
	}
	delim, err := dataset.ParseDelimiter(conv.ConfigGet(cfg, "delimiter", ""))
	if err != nil {
		return nil, err
	}
	if dir := conv.ConfigGet(cfg, config.SourceDirKey, ""); dir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	values, err := feature.LoadAttributes(path, delim, key, attr)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{
		&filter.Attribute{Column: col, Attribute: attr, Values: values},
	}}, nil
}

// BuildSampleNode 配置：column（默认 user），n，可选 seed（默认使用运行 seed）。
func BuildSampleNode(cfg map[string]any) (pipeline.Node, error) {
	col, err := core.ParseColumn(conv.ConfigGet(cfg, "column", "user"))
	if err != nil {
		return nil, err
	}
	n := conv.ConfigGetInt64(cfg, "n", 0)
	if n < 1 {
		return nil, fmt.Errorf("n must be >= 1, got %d", n)
	}
	return &split.SampleNode{Column: col, N: int(n), Seed: seed(cfg)}, nil
}

// BuildMinimizeNode 配置：strategy，n，可选 seed。
func BuildMinimizeNode(cfg map[string]any) (pipeline.Node, error) {
	kind, err := minimize.Parse(conv.ConfigGet(cfg, "strategy", ""))
	if err != nil {
		return nil, err
	}
	n := conv.ConfigGetInt64(cfg, "n", 0)
	if n < 1 {
		return nil, fmt.Errorf("n must be >= 1, got %d", n)
	}
	return &minimize.MinimizeNode{Strategy: kind, N: int(n), Seed: seed(cfg)}, nil
}

func seed(cfg map[string]any) *int64 {
	if _, ok := cfg["seed"]; !ok {
		return nil
	}
	s := conv.ConfigGetInt64(cfg, "seed", 0)
	return &s
}

func columns(v any) ([]core.Column, error) {
	names := conv.SliceAnyToString(v)
	if len(names) == 0 {
		return []core.Column{core.ColumnUser, core.ColumnItem}, nil
	}
	cols := make([]core.Column, 0, len(names))
	for _, name := range names {
		c, err := core.ParseColumn(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}
