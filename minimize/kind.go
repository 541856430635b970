// Package minimize 实现数据最小化策略：对每个用户按策略打分，只保留分数最高的 n 行。
package minimize

import (
	"strings"

	"github.com/rushteam/recmin/core"
)

// Kind 是最小化策略的标签。
type Kind string

const (
	Full               Kind = "full"
	Random             Kind = "random"
	MostRecent         Kind = "most_recent"
	MostFavorite       Kind = "most_favorite"
	LeastFavorite      Kind = "least_favorite"
	MostRated          Kind = "most_rated"
	HighestVariance    Kind = "highest_variance"
	MostCharacteristic Kind = "most_characteristic"
)

var kinds = []Kind{
	Full,
	Random,
	MostRecent,
	MostFavorite,
	LeastFavorite,
	MostRated,
	HighestVariance,
	MostCharacteristic,
}

// SupportedKinds 返回全部已实现的策略。
func SupportedKinds() []Kind {
	return append([]Kind(nil), kinds...)
}

// Parse 解析策略名（大小写不敏感），未实现的策略返回 UNSUPPORTED_STRATEGY。
func Parse(name string) (Kind, error) {
	for _, k := range kinds {
		if strings.EqualFold(string(k), strings.TrimSpace(name)) {
			return k, nil
		}
	}
	return "", core.Errorf(core.ModuleMinimize, core.ErrorCodeUnsupportedStrategy,
		"strategy %q is not implemented (supported: %v)", name, kinds)
}

// RequiredColumns 返回策略除 user/item 外需要的列。
func (k Kind) RequiredColumns() []core.Column {
	switch k {
	case MostRecent:
		return []core.Column{core.ColumnTimestamp}
	case MostFavorite, LeastFavorite, HighestVariance:
		return []core.Column{core.ColumnRating}
	}
	return nil
}
