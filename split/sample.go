// Package split 负责人口抽样与按实体划分：所有随机操作都使用显式 seed。
package split

import (
	"context"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/pipeline"
)

// Sample 从 col 的唯一值中无放回地均匀抽取 n 个实体，返回这些实体的全部行（保持输入顺序）。
// 相同的 (表, 列, n, seed) 总是得到相同的结果。
func Sample(t *core.Table, col core.Column, n int, seed int64) (*core.Table, error) {
	if n < 1 {
		return nil, core.Errorf(core.ModuleSplit, core.ErrorCodeInvalidInput, "sample size must be >= 1, got %d", n)
	}
	uniq := t.Unique(col)
	if len(uniq) < n {
		return nil, core.Errorf(core.ModuleSplit, core.ErrorCodeInsufficientPopulation,
			"cannot sample %d unique %s values: only %d available", n, col, len(uniq))
	}
	rng := core.NewRand(seed)
	perm := rng.Perm(len(uniq))
	chosen := make(map[string]struct{}, n)
	for _, p := range perm[:n] {
		chosen[uniq[p]] = struct{}{}
	}
	return keep(t, col, chosen), nil
}

func keep(t *core.Table, col core.Column, set map[string]struct{}) *core.Table {
	idx := make([]int, 0, t.Len())
	for i := range t.Rows {
		if _, ok := set[t.Value(i, col)]; ok {
			idx = append(idx, i)
		}
	}
	return t.Select(idx)
}

// SampleNode 是抽样 Node；Seed 为 nil 时使用运行上下文的 seed。
type SampleNode struct {
	Column core.Column
	N      int
	Seed   *int64
}

func (n *SampleNode) Name() string { return "split.sample" }

func (n *SampleNode) Kind() pipeline.Kind { return pipeline.KindSample }

func (n *SampleNode) Process(_ context.Context, rctx *core.RunContext, t *core.Table) (*core.Table, error) {
	seed := rctx.Seed
	if n.Seed != nil {
		seed = *n.Seed
	}
	return Sample(t, n.Column, n.N, seed)
}
