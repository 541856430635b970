package filter

import (
	"context"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/logging"
	"github.com/rushteam/recmin/pipeline"
)

// FilterNode 是过滤 Node，按顺序组合多个过滤器。
// 任一过滤器出错都会中断当前数据集的处理。
type FilterNode struct {
	Filters []Filter
}

// Name 只有一个过滤器时返回该过滤器的名字。
func (n *FilterNode) Name() string {
	if len(n.Filters) == 1 {
		return n.Filters[0].Name()
	}
	return "filter.node"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RunContext,
	t *core.Table,
) (*core.Table, error) {
	cur := t
	for _, f := range n.Filters {
		before := cur.Len()
		next, err := f.Apply(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		logging.Debug().
			Str("filter", f.Name()).
			Int("rows_in", before).
			Int("rows_out", next.Len()).
			Msg("filter applied")
		cur = next
	}
	return cur, nil
}
