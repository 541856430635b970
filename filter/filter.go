package filter

import (
	"context"

	"github.com/rushteam/recmin/core"
)

// Filter 是表级过滤器的抽象接口：输入一张交互表，返回删除部分行后的新表。
// 实现不得修改输入表。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// Apply 返回过滤后的新表
	Apply(ctx context.Context, rctx *core.RunContext, t *core.Table) (*core.Table, error)
}
