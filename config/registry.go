package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/pipeline"
)

// 使用配置驱动时，需在入口处 import _ "github.com/rushteam/recmin/config/builders"
// 以触发内置阶段（filter.kcore、filter.expr、filter.attribute、split.sample、minimize.strategy）的注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
type NodeBuilder = pipeline.NodeBuilder

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种阶段的构建逻辑，建议在 init 中调用。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回已注册的阶段类型（排序）。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// DefaultFactory 返回包含全部已注册阶段的 NodeFactory。
func DefaultFactory() *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 校验所有阶段类型均已注册。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	for _, nc := range cfg.Pipeline.Nodes {
		if _, ok := defaultBuilders[nc.Type]; !ok {
			supported := make([]string, 0, len(defaultBuilders))
			for t := range defaultBuilders {
				supported = append(supported, t)
			}
			sort.Strings(supported)
			return core.Errorf(core.ModuleConfig, core.ErrorCodeInvalidConfig,
				"unsupported node type %q (supported: %v)", nc.Type, supported)
		}
	}
	return nil
}

// SourceDirKey 由 BuildPipeline 注入每个阶段配置，值为数据集原始文件目录。
const SourceDirKey = "source_dir"

// BuildPipeline 校验并构建某数据集的预处理 pipeline。
// sourceDir 非空时注入各阶段配置（SourceDirKey），阶段内的相对文件路径据此解析。
func BuildPipeline(ds *DatasetConfig, sourceDir string) (*pipeline.Pipeline, error) {
	pc := ds.PipelineConfig()
	if sourceDir != "" {
		nodes := make([]pipeline.NodeConfig, len(pc.Pipeline.Nodes))
		for i, nc := range pc.Pipeline.Nodes {
			cfg := make(map[string]any, len(nc.Config)+1)
			for k, v := range nc.Config {
				cfg[k] = v
			}
			cfg[SourceDirKey] = sourceDir
			nodes[i] = pipeline.NodeConfig{Type: nc.Type, Config: cfg}
		}
		pc.Pipeline.Nodes = nodes
	}
	if err := ValidatePipelineConfig(pc); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	p, err := pc.BuildPipeline(DefaultFactory())
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleConfig, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("dataset %s: build stages", ds.Name), err)
	}
	return p, nil
}
