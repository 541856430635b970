package feature

import "strconv"

// LabelEncoder Label 编码（标签编码）
// 将类别按首次出现顺序映射为整数（0, 1, 2, ...）
type LabelEncoder struct {
	index map[string]int
	order []string
}

// FitLabelEncoder 由一列取值构建编码器
func FitLabelEncoder(values []string) *LabelEncoder {
	e := &LabelEncoder{index: make(map[string]int)}
	for _, v := range values {
		if _, ok := e.index[v]; ok {
			continue
		}
		e.index[v] = len(e.order)
		e.order = append(e.order, v)
	}
	return e
}

// Encode 返回类别对应的整数，未知类别返回 -1
func (e *LabelEncoder) Encode(v string) int {
	if i, ok := e.index[v]; ok {
		return i
	}
	return -1
}

// Len 返回类别数
func (e *LabelEncoder) Len() int { return len(e.order) }

// Mapping 返回 (Original, Mapped) 行，按编码顺序
func (e *LabelEncoder) Mapping() [][]string {
	out := make([][]string, len(e.order))
	for i, v := range e.order {
		out[i] = []string{v, strconv.Itoa(i)}
	}
	return out
}
