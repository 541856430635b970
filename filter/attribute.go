package filter

import (
	"context"
	"strings"

	"github.com/rushteam/recmin/core"
)

// Attribute 删除实体缺少某个辅助属性的行（例如没有 continent 的用户）。
// Values 为实体 -> 属性值；空串与 "NaN" 视为缺失。
type Attribute struct {
	Column    core.Column
	Attribute string
	Values    map[string]string
}

func (f *Attribute) Name() string { return "filter.attribute" }

func (f *Attribute) Apply(_ context.Context, _ *core.RunContext, t *core.Table) (*core.Table, error) {
	if f.Column != core.ColumnUser && f.Column != core.ColumnItem {
		return nil, core.Errorf(core.ModuleFilter, core.ErrorCodeInvalidInput,
			"attribute filter applies to user/item columns, got %q", f.Column.String())
	}
	return t.Where(func(row *core.Interaction) bool {
		return present(f.Values[entity(row, f.Column)])
	}), nil
}

func present(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.EqualFold(v, "nan")
}
