package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/logging"
)

// Observer 接收每个 Node 的执行结果（用于指标）。
type Observer interface {
	ObserveStage(stage string, rowsIn, rowsOut int, elapsed time.Duration)
}

// Pipeline 把数据准备拆成可组合的 Node 链：每个 Node 消费上一张表、产出新表。
type Pipeline struct {
	Nodes    []Node
	Observer Observer
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RunContext,
	t *core.Table,
) (*core.Table, error) {
	cur := t
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Name(), err)
		}
		elapsed := time.Since(start)
		logging.Debug().
			Str("run_id", rctx.RunID).
			Str("dataset", rctx.Dataset).
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("rows_in", cur.Len()).
			Int("rows_out", next.Len()).
			Dur("elapsed", elapsed).
			Msg("node processed")
		if p.Observer != nil {
			p.Observer.ObserveStage(node.Name(), cur.Len(), next.Len(), elapsed)
		}
		cur = next
	}
	return cur, nil
}
