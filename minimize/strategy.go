package minimize

import (
	"github.com/rushteam/recmin/core"
)

// Strategy 是一个已解析的最小化策略：full 原样返回，其余策略交给 TopN 执行。
type Strategy struct {
	Kind   Kind
	scorer Scorer
}

type options struct {
	seed int64
}

// Option 配置策略。
type Option func(*options)

// WithSeed 设置 random 策略的随机种子。
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// New 按标签创建策略。
func New(kind Kind, opts ...Option) (*Strategy, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	var scorer Scorer
	switch kind {
	case Full:
	case Random:
		scorer = RandomScorer{Seed: o.seed}
	case MostRecent:
		scorer = RecencyScorer{}
	case MostFavorite:
		scorer = RatingScorer{}
	case LeastFavorite:
		scorer = RatingScorer{Ascending: true}
	case MostRated:
		scorer = PopularityScorer{}
	case HighestVariance:
		scorer = VarianceScorer{}
	case MostCharacteristic:
		scorer = CharacteristicScorer{}
	default:
		_, err := Parse(string(kind))
		return nil, err
	}
	return &Strategy{Kind: kind, scorer: scorer}, nil
}

func (s *Strategy) String() string { return string(s.Kind) }

// Apply 对表中每个用户最多保留 n 行；交互少于 n 的用户保留全部行。
// 输出按用户分组，下游应视为无序。
func (s *Strategy) Apply(t *core.Table, n int) (*core.Table, error) {
	if n < 1 {
		return nil, core.Errorf(core.ModuleMinimize, core.ErrorCodeInvalidInput, "budget must be >= 1, got %d", n)
	}
	if s.scorer == nil {
		return t.Clone(), nil
	}
	scores, err := s.scorer.Score(t)
	if err != nil {
		return nil, err
	}
	return TopN(t, n, scores)
}
