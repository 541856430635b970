// Package feature 处理辅助信息（用户/物品属性）：类别重映射、数值分组、按 key 合并。
package feature

import (
	"fmt"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/dataset"
)

// AttributeTable 是一张带表头的属性表，值保持原始字符串。
type AttributeTable struct {
	Header  []string
	Records [][]string
}

// LoadAttributeTable 读取带表头的属性表，delim 为字段分隔符。
func LoadAttributeTable(path string, delim rune) (*AttributeTable, error) {
	header, records, err := dataset.ReadDelimited(path, delim, true)
	if err != nil {
		return nil, err
	}
	return &AttributeTable{Header: header, Records: records}, nil
}

// Index 返回列下标，列不存在时返回 MISSING_COLUMN。
func (a *AttributeTable) Index(name string) (int, error) {
	for i, h := range a.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, core.Errorf(core.ModuleFeature, core.ErrorCodeMissingColumn,
		"column %q not found in %v", name, a.Header)
}

// Drop 删除指定列（不存在的列忽略），返回新表。
func (a *AttributeTable) Drop(cols ...string) *AttributeTable {
	drop := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		drop[c] = struct{}{}
	}
	var keep []int
	out := &AttributeTable{}
	for i, h := range a.Header {
		if _, ok := drop[h]; ok {
			continue
		}
		keep = append(keep, i)
		out.Header = append(out.Header, h)
	}
	out.Records = make([][]string, len(a.Records))
	for r, rec := range a.Records {
		row := make([]string, len(keep))
		for j, i := range keep {
			row[j] = rec[i]
		}
		out.Records[r] = row
	}
	return out
}

// Project 按列名取子表。
func (a *AttributeTable) Project(cols ...string) (*AttributeTable, error) {
	idx := make([]int, len(cols))
	for j, c := range cols {
		i, err := a.Index(c)
		if err != nil {
			return nil, err
		}
		idx[j] = i
	}
	out := &AttributeTable{Header: append([]string(nil), cols...), Records: make([][]string, len(a.Records))}
	for r, rec := range a.Records {
		row := make([]string, len(idx))
		for j, i := range idx {
			row[j] = rec[i]
		}
		out.Records[r] = row
	}
	return out, nil
}

// Values 返回 key 列到 attr 列的映射；同一 key 出现多次时保留第一次的值。
func (a *AttributeTable) Values(key, attr string) (map[string]string, error) {
	ki, err := a.Index(key)
	if err != nil {
		return nil, err
	}
	ai, err := a.Index(attr)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(a.Records))
	for _, rec := range a.Records {
		if _, ok := out[rec[ki]]; !ok {
			out[rec[ki]] = rec[ai]
		}
	}
	return out, nil
}

// LoadAttributes 读取属性文件并返回 key -> attr，供属性缺失过滤使用。
func LoadAttributes(path string, delim rune, key, attr string) (map[string]string, error) {
	t, err := LoadAttributeTable(path, delim)
	if err != nil {
		return nil, err
	}
	v, err := t.Values(key, attr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}
