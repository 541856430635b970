package filter

import (
	"context"

	"github.com/rushteam/recmin/core"
)

// KCore 把表收缩到 k-core：监控列中的每个实体至少出现 k 次。
// 只监控一列时等价于 KCoreColumn，监控 user+item 时等价于 IterativeKCore。
type KCore struct {
	K       int
	Columns []core.Column
}

func (f *KCore) Name() string { return "filter.kcore" }

func (f *KCore) Apply(ctx context.Context, _ *core.RunContext, t *core.Table) (*core.Table, error) {
	cols := f.Columns
	if len(cols) == 0 {
		cols = []core.Column{core.ColumnUser, core.ColumnItem}
	}
	return kcore(ctx, t, f.K, cols...)
}

// KCoreColumn 单列 k-core：反复删除出现次数 < k 的实体的所有行，直到不动点。
// 结果为空表不是错误。
func KCoreColumn(t *core.Table, col core.Column, k int) (*core.Table, error) {
	return kcore(context.Background(), t, k, col)
}

// IterativeKCore 二部图 k-core：每一轮在同一张表上同时统计 user 和 item 的次数，
// 删除 user 或 item 次数 < k 的行，直到没有任何 user 且没有任何 item 低于 k。
func IterativeKCore(t *core.Table, k int) (*core.Table, error) {
	return kcore(context.Background(), t, k, core.ColumnUser, core.ColumnItem)
}

func kcore(ctx context.Context, t *core.Table, k int, cols ...core.Column) (*core.Table, error) {
	if k < 1 {
		return nil, core.Errorf(core.ModuleFilter, core.ErrorCodeInvalidInput, "k-core threshold must be >= 1, got %d", k)
	}
	for _, c := range cols {
		if c != core.ColumnUser && c != core.ColumnItem {
			return nil, core.Errorf(core.ModuleFilter, core.ErrorCodeInvalidInput, "k-core monitors user/item columns, got %q", c.String())
		}
	}

	cur := t.Clone()
	for cur.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		counts := make([]map[string]int, len(cols))
		for i, c := range cols {
			counts[i] = cur.Counts(c)
		}
		next := cur.Where(func(row *core.Interaction) bool {
			for i, c := range cols {
				if counts[i][entity(row, c)] < k {
					return false
				}
			}
			return true
		})
		// 不动点：本轮没有删除任何行
		if next.Len() == cur.Len() {
			break
		}
		cur = next
	}
	return cur, nil
}

func entity(row *core.Interaction, c core.Column) string {
	if c == core.ColumnItem {
		return row.Item
	}
	return row.User
}
