// Package schema 将大小写/后缀各异的原始列名解析为规范列（user, item, rating, timestamp）。
package schema

import (
	"strconv"
	"strings"

	"github.com/rushteam/recmin/core"
)

// Keyword 描述一个规范列如何在原始表头中被定位：大小写不敏感的子串匹配。
type Keyword struct {
	Column   core.Column
	Keyword  string
	Optional bool // 为 true 时没有匹配不报错，列下标记为 -1
}

// Keywords 是有序的关键字映射，顺序决定规范化输出的列顺序。
type Keywords []Keyword

// DefaultKeywords 返回默认映射：user/item/rating 必需，timestamp 可选。
func DefaultKeywords() Keywords {
	return Keywords{
		{Column: core.ColumnUser, Keyword: "user"},
		{Column: core.ColumnItem, Keyword: "item"},
		{Column: core.ColumnRating, Keyword: "rating"},
		{Column: core.ColumnTimestamp, Keyword: "timestamp", Optional: true},
	}
}

// Match 返回表头中包含 keyword 的全部列下标（大小写不敏感）。
func Match(header []string, keyword string) []int {
	kw := strings.ToLower(keyword)
	var idx []int
	for i, h := range header {
		if strings.Contains(strings.ToLower(h), kw) {
			idx = append(idx, i)
		}
	}
	return idx
}

// Resolve 为每个关键字定位唯一的一列，返回强类型 Schema。
//   - 多于一列匹配：AMBIGUOUS_COLUMN
//   - 没有匹配：MISSING_COLUMN（Optional 关键字除外）
//
// user 与 item 列总是必需的。
func Resolve(header []string, keywords Keywords) (*core.Schema, error) {
	s := &core.Schema{
		Header:    append([]string(nil), header...),
		User:      -1,
		Item:      -1,
		Rating:    -1,
		Timestamp: -1,
	}
	for _, kw := range keywords {
		matches := Match(header, kw.Keyword)
		switch {
		case len(matches) > 1:
			names := make([]string, len(matches))
			for i, m := range matches {
				names[i] = header[m]
			}
			return nil, core.Errorf(core.ModuleSchema, core.ErrorCodeAmbiguousColumn,
				"multiple columns found containing the keyword '%s': %v", kw.Keyword, names)
		case len(matches) == 0:
			if kw.Optional {
				continue
			}
			return nil, core.Errorf(core.ModuleSchema, core.ErrorCodeMissingColumn,
				"no column found containing the keyword '%s' in %v", kw.Keyword, header)
		}
		switch kw.Column {
		case core.ColumnUser:
			s.User = matches[0]
		case core.ColumnItem:
			s.Item = matches[0]
		case core.ColumnRating:
			s.Rating = matches[0]
		case core.ColumnTimestamp:
			s.Timestamp = matches[0]
		}
		s.Order = append(s.Order, kw.Column)
	}
	if err := s.Require(core.ModuleSchema, core.ColumnUser, core.ColumnItem); err != nil {
		return nil, err
	}
	return s, nil
}

// Bind 按 Schema 把原始记录解析为交互记录；rating/timestamp 只在这里解析一次。
func Bind(s *core.Schema, records [][]string) ([]core.Interaction, error) {
	rows := make([]core.Interaction, len(records))
	for i, rec := range records {
		if len(rec) != len(s.Header) {
			return nil, core.Errorf(core.ModuleSchema, core.ErrorCodeInvalidInput,
				"row %d has %d fields, header has %d", i+1, len(rec), len(s.Header))
		}
		row := core.Interaction{
			User:   rec[s.User],
			Item:   rec[s.Item],
			Fields: rec,
		}
		if s.HasRating() {
			v, err := parseNumber(rec[s.Rating])
			if err != nil {
				return nil, core.WrapDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput,
					"row "+strconv.Itoa(i+1)+": column '"+s.Header[s.Rating]+"'", err)
			}
			row.Rating = v
		}
		if s.HasTimestamp() {
			v, err := parseNumber(rec[s.Timestamp])
			if err != nil {
				return nil, core.WrapDomainError(core.ModuleSchema, core.ErrorCodeInvalidInput,
					"row "+strconv.Itoa(i+1)+": column '"+s.Header[s.Timestamp]+"'", err)
			}
			row.Timestamp = v
		}
		rows[i] = row
	}
	return rows, nil
}

// Load 解析表头并绑定记录，得到可直接进入 Pipeline 的表。
func Load(header []string, records [][]string, keywords Keywords) (*core.Table, error) {
	s, err := Resolve(header, keywords)
	if err != nil {
		return nil, err
	}
	rows, err := Bind(s, records)
	if err != nil {
		return nil, err
	}
	return core.NewTable(s, rows), nil
}

// Normalize 返回按规范名重命名的投影：只保留关键字命中的列，
// 列顺序与关键字顺序一致，值保持原样。输入表不受影响。
func Normalize(t *core.Table, keywords Keywords) (*core.Table, error) {
	src, err := Resolve(t.Schema.Header, keywords)
	if err != nil {
		return nil, err
	}
	out := &core.Schema{
		User:      -1,
		Item:      -1,
		Rating:    -1,
		Timestamp: -1,
		Order:     append([]core.Column(nil), src.Order...),
	}
	for i, c := range src.Order {
		out.Header = append(out.Header, c.String())
		switch c {
		case core.ColumnUser:
			out.User = i
		case core.ColumnItem:
			out.Item = i
		case core.ColumnRating:
			out.Rating = i
		case core.ColumnTimestamp:
			out.Timestamp = i
		}
	}
	rows := make([]core.Interaction, len(t.Rows))
	for i, r := range t.Rows {
		fields := make([]string, len(src.Order))
		for j, c := range src.Order {
			fields[j] = r.Fields[src.Index(c)]
		}
		r.Fields = fields
		r.User = fields[out.User]
		r.Item = fields[out.Item]
		rows[i] = r
	}
	return core.NewTable(out, rows), nil
}

func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
