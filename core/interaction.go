package core

import (
	"fmt"
	"strings"
)

// Column 是规范化后的列标识。
type Column int

const (
	ColumnUser Column = iota
	ColumnItem
	ColumnRating
	ColumnTimestamp
)

var columnNames = [...]string{"user", "item", "rating", "timestamp"}

func (c Column) String() string {
	if c < 0 || int(c) >= len(columnNames) {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnNames[c]
}

// ParseColumn 按规范名（大小写不敏感）解析列。
func ParseColumn(name string) (Column, error) {
	for i, n := range columnNames {
		if strings.EqualFold(n, name) {
			return Column(i), nil
		}
	}
	return 0, Errorf(ModuleSchema, ErrorCodeInvalidInput, "unknown column %q (supported: %v)", name, columnNames[:])
}

// Interaction 是一条交互记录：(user, item, rating, timestamp?)。
// Fields 保存原始文件中的全部列值，用于输出带表头的 full 审计文件。
// 记录构建后视为只读，各阶段之间共享同一份 Fields。
type Interaction struct {
	User      string
	Item      string
	Rating    float64
	Timestamp float64
	Fields    []string
}
