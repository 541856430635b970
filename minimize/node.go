package minimize

import (
	"context"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/pipeline"
)

// MinimizeNode 以预算 N 应用一个策略；Seed 为 nil 时 random 策略使用运行上下文的 seed。
type MinimizeNode struct {
	Strategy Kind
	N        int
	Seed     *int64
}

func (n *MinimizeNode) Name() string { return "minimize." + string(n.Strategy) }

func (n *MinimizeNode) Kind() pipeline.Kind { return pipeline.KindMinimize }

func (n *MinimizeNode) Process(_ context.Context, rctx *core.RunContext, t *core.Table) (*core.Table, error) {
	seed := rctx.Seed
	if n.Seed != nil {
		seed = *n.Seed
	}
	s, err := New(n.Strategy, WithSeed(seed))
	if err != nil {
		return nil, err
	}
	return s.Apply(t, n.N)
}
