package filter

import (
	"context"
	"fmt"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/pkg/dsl"
)

// Expr 按 CEL 表达式保留行：表达式为 false 的行被删除。
// 用于各数据集自己的清洗规则，例如 `rating > 0.0`。
type Expr struct {
	program *dsl.Program
}

// NewExpr 编译表达式。
func NewExpr(expr string) (*Expr, error) {
	p, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.WrapDomainError(core.ModuleFilter, core.ErrorCodeInvalidConfig,
			fmt.Sprintf("filter expression %q", expr), err)
	}
	return &Expr{program: p}, nil
}

func (f *Expr) Name() string { return "filter.expr" }

func (f *Expr) Apply(ctx context.Context, _ *core.RunContext, t *core.Table) (*core.Table, error) {
	rows := make([]core.Interaction, 0, t.Len())
	for i := range t.Rows {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ok, err := f.program.Eval(t.Schema, &t.Rows[i])
		if err != nil {
			return nil, fmt.Errorf("filter expression %q on row %d: %w", f.program.String(), i+1, err)
		}
		if ok {
			rows = append(rows, t.Rows[i])
		}
	}
	return t.Derive(rows), nil
}
