package core

import "github.com/google/uuid"

// RunContext 承载一次数据集处理的运行信息，贯穿整个 Pipeline 透传。
type RunContext struct {
	// RunID 用于关联同一次运行的日志、指标和输出
	RunID string

	// Dataset 当前处理的数据集名称
	Dataset string

	// Seed 是所有抽样/打乱操作的随机种子，未单独配置 seed 的节点使用它
	Seed int64
}

// NewRunContext 创建带新 RunID 的运行上下文。
func NewRunContext(dataset string, seed int64) *RunContext {
	return &RunContext{
		RunID:   uuid.NewString(),
		Dataset: dataset,
		Seed:    seed,
	}
}

// WithDataset 复制上下文并切换数据集，RunID 保持不变。
func (rctx *RunContext) WithDataset(dataset string) *RunContext {
	cp := *rctx
	cp.Dataset = dataset
	return &cp
}
