package pipeline

import (
	"context"

	"github.com/rushteam/recmin/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindFilter   Kind = "filter"   // 过滤阶段：k-core、表达式、属性缺失清洗
	KindSample   Kind = "sample"   // 抽样阶段：固定规模的实体子集
	KindMinimize Kind = "minimize" // 最小化阶段：按策略把每个用户截断到预算 n
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入表 -> 输出表”的形态；Node 不得修改输入表。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RunContext,
		t *core.Table,
	) (*core.Table, error)
}
