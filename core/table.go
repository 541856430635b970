package core

import (
	"sort"
	"strconv"
)

// Schema 是列解析后的强类型句柄：每个规范列在原始表头中的下标。
// 加载数据时解析一次，后续所有阶段只使用下标，不再按关键字查找列名。
type Schema struct {
	// Header 原始表头
	Header []string

	User      int
	Item      int
	Rating    int // -1 表示不存在
	Timestamp int // -1 表示不存在

	// Order 是解析时关键字映射的顺序，决定规范化投影的列顺序
	Order []Column
}

// Index 返回规范列在原始表头中的下标，不存在时为 -1。
func (s *Schema) Index(col Column) int {
	switch col {
	case ColumnUser:
		return s.User
	case ColumnItem:
		return s.Item
	case ColumnRating:
		return s.Rating
	case ColumnTimestamp:
		return s.Timestamp
	}
	return -1
}

// Has 判断规范列是否已解析。
func (s *Schema) Has(col Column) bool { return s.Index(col) >= 0 }

// HasRating 判断是否有评分列。
func (s *Schema) HasRating() bool { return s.Rating >= 0 }

// HasTimestamp 判断是否有时间戳列。
func (s *Schema) HasTimestamp() bool { return s.Timestamp >= 0 }

// Source 返回规范列对应的原始列名。
func (s *Schema) Source(col Column) string {
	idx := s.Index(col)
	if idx < 0 || idx >= len(s.Header) {
		return ""
	}
	return s.Header[idx]
}

// Canonical 返回已解析列的规范名，按关键字映射顺序。
func (s *Schema) Canonical() []string {
	out := make([]string, 0, len(s.Order))
	for _, c := range s.Order {
		if s.Has(c) {
			out = append(out, c.String())
		}
	}
	return out
}

// Require 校验必需列均已解析，缺失时返回 MISSING_COLUMN。
func (s *Schema) Require(module string, cols ...Column) error {
	for _, c := range cols {
		if !s.Has(c) {
			return Errorf(module, ErrorCodeMissingColumn, "required column %q is not present in the table", c.String())
		}
	}
	return nil
}

// Table 是有序的交互记录集合，不去重 (user, item) 重复对。
// 各阶段从不原地修改输入表，而是返回新的 Table。
type Table struct {
	Schema *Schema
	Rows   []Interaction
}

// NewTable 创建交互表。
func NewTable(schema *Schema, rows []Interaction) *Table {
	return &Table{Schema: schema, Rows: rows}
}

// Len 返回行数。
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Derive 以相同 Schema 创建新表。
func (t *Table) Derive(rows []Interaction) *Table {
	return &Table{Schema: t.Schema, Rows: rows}
}

// Clone 复制行切片（记录本身只读，共享即可）。
func (t *Table) Clone() *Table {
	rows := make([]Interaction, len(t.Rows))
	copy(rows, t.Rows)
	return t.Derive(rows)
}

// Select 按行下标顺序取子表。
func (t *Table) Select(idx []int) *Table {
	rows := make([]Interaction, len(idx))
	for i, j := range idx {
		rows[i] = t.Rows[j]
	}
	return t.Derive(rows)
}

// Where 保留 keep 返回 true 的行，保持原顺序。
func (t *Table) Where(keep func(row *Interaction) bool) *Table {
	rows := make([]Interaction, 0, len(t.Rows))
	for i := range t.Rows {
		if keep(&t.Rows[i]) {
			rows = append(rows, t.Rows[i])
		}
	}
	return t.Derive(rows)
}

// Value 返回第 i 行某规范列的原始字符串值。
func (t *Table) Value(i int, col Column) string {
	row := &t.Rows[i]
	switch col {
	case ColumnUser:
		return row.User
	case ColumnItem:
		return row.Item
	}
	if t.Schema != nil {
		if idx := t.Schema.Index(col); idx >= 0 && idx < len(row.Fields) {
			return row.Fields[idx]
		}
	}
	switch col {
	case ColumnRating:
		return strconv.FormatFloat(row.Rating, 'f', -1, 64)
	case ColumnTimestamp:
		return strconv.FormatFloat(row.Timestamp, 'f', -1, 64)
	}
	return ""
}

// Unique 返回某列的唯一值，按首次出现顺序。
func (t *Table) Unique(col Column) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := range t.Rows {
		v := t.Value(i, col)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Counts 返回某列每个值的出现次数。
func (t *Table) Counts(col Column) map[string]int {
	counts := make(map[string]int)
	for i := range t.Rows {
		counts[t.Value(i, col)]++
	}
	return counts
}

// GroupBy 按某列分组，返回按字符串排序的 key 以及每组的行下标（保持输入顺序）。
// 数字 id 不按数值排序："10" 在 "2" 之前。
func (t *Table) GroupBy(col Column) ([]string, map[string][]int) {
	groups := make(map[string][]int)
	for i := range t.Rows {
		k := t.Value(i, col)
		groups[k] = append(groups[k], i)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, groups
}

// CanonicalRecord 返回第 i 行的 (user, item, rating) 原始值。
func (t *Table) CanonicalRecord(i int) []string {
	return []string{t.Value(i, ColumnUser), t.Value(i, ColumnItem), t.Value(i, ColumnRating)}
}
