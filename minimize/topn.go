package minimize

import (
	"math"
	"sort"

	"github.com/rushteam/recmin/core"
)

// TopN 是所有截断型策略共用的分组 Top-N 执行器。
//
// 按用户分组（用户按 key 排序），组内按分数降序稳定排序（同分保持输入顺序），
// 每组保留 min(n, 组大小) 行。scores 与 t.Rows 一一对应，NaN 视为最低分。
func TopN(t *core.Table, n int, scores []float64) (*core.Table, error) {
	if n < 1 {
		return nil, core.Errorf(core.ModuleMinimize, core.ErrorCodeInvalidInput, "budget must be >= 1, got %d", n)
	}
	if len(scores) != t.Len() {
		return nil, core.Errorf(core.ModuleMinimize, core.ErrorCodeInternalError,
			"got %d scores for %d rows", len(scores), t.Len())
	}
	keys, groups := t.GroupBy(core.ColumnUser)
	idx := make([]int, 0, t.Len())
	for _, k := range keys {
		g := append([]int(nil), groups[k]...)
		sort.SliceStable(g, func(a, b int) bool {
			return higher(scores[g[a]], scores[g[b]])
		})
		if len(g) > n {
			g = g[:n]
		}
		idx = append(idx, g...)
	}
	return t.Select(idx), nil
}

func higher(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a > b
}
