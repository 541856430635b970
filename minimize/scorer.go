package minimize

import (
	"math"
	"sort"

	"github.com/rushteam/recmin/core"
)

// Scorer 为表中每一行打分，分数越高越优先保留。
// 物品级打分器对每个物品只计算一次，再广播到该物品的所有行。
type Scorer interface {
	Score(t *core.Table) ([]float64, error)
}

// RandomScorer 以 seed 为每行生成均匀随机分，等价于每个用户均匀随机抽取 n 行。
type RandomScorer struct {
	Seed int64
}

func (s RandomScorer) Score(t *core.Table) ([]float64, error) {
	rng := core.NewRand(s.Seed)
	scores := make([]float64, t.Len())
	for i := range scores {
		scores[i] = rng.Float64()
	}
	return scores, nil
}

// RecencyScorer 按时间戳打分，需要 timestamp 列。
type RecencyScorer struct{}

func (RecencyScorer) Score(t *core.Table) ([]float64, error) {
	if err := t.Schema.Require(core.ModuleMinimize, core.ColumnTimestamp); err != nil {
		return nil, err
	}
	scores := make([]float64, t.Len())
	for i := range t.Rows {
		scores[i] = t.Rows[i].Timestamp
	}
	return scores, nil
}

// RatingScorer 按评分打分；Ascending 为 true 时评分越低越优先（least_favorite）。
type RatingScorer struct {
	Ascending bool
}

func (s RatingScorer) Score(t *core.Table) ([]float64, error) {
	if err := t.Schema.Require(core.ModuleMinimize, core.ColumnRating); err != nil {
		return nil, err
	}
	scores := make([]float64, t.Len())
	for i := range t.Rows {
		scores[i] = t.Rows[i].Rating
		if s.Ascending {
			scores[i] = -scores[i]
		}
	}
	return scores, nil
}

// PopularityScorer 按物品在整张表中的交互次数打分（分组之前统计）。
type PopularityScorer struct{}

func (PopularityScorer) Score(t *core.Table) ([]float64, error) {
	counts := t.Counts(core.ColumnItem)
	return broadcast(t, func(item string) float64 { return float64(counts[item]) }), nil
}

// VarianceScorer 按物品评分的样本方差（n-1）打分；只有一条评分的物品方差未定义，记为最低分。
type VarianceScorer struct{}

func (VarianceScorer) Score(t *core.Table) ([]float64, error) {
	if err := t.Schema.Require(core.ModuleMinimize, core.ColumnRating); err != nil {
		return nil, err
	}
	type acc struct {
		n    int
		mean float64
		m2   float64
	}
	stats := make(map[string]*acc)
	for i := range t.Rows {
		r := &t.Rows[i]
		a := stats[r.Item]
		if a == nil {
			a = &acc{}
			stats[r.Item] = a
		}
		a.n++
		d := r.Rating - a.mean
		a.mean += d / float64(a.n)
		a.m2 += d * (r.Rating - a.mean)
	}
	return broadcast(t, func(item string) float64 {
		a := stats[item]
		if a.n < 2 {
			return math.Inf(-1)
		}
		return a.m2 / float64(a.n-1)
	}), nil
}

// CharacteristicScorer 按物品与“平均物品画像”的欧氏距离打分，距离越小越优先。
//
// 每个物品是一条覆盖全部用户的二值向量（用户是否交互过该物品），
// 平均画像是所有物品向量的均值：avg[u] = 用户 u 交互过的物品数 / 物品总数。
// dist(i)^2 = sum_u avg[u]^2 + sum_{u in users(i)} (1 - 2*avg[u])。
type CharacteristicScorer struct{}

func (CharacteristicScorer) Score(t *core.Table) ([]float64, error) {
	userIndex := make(map[string]int)
	itemUsers := make(map[string]map[int]struct{})
	for i := range t.Rows {
		r := &t.Rows[i]
		u, ok := userIndex[r.User]
		if !ok {
			u = len(userIndex)
			userIndex[r.User] = u
		}
		set := itemUsers[r.Item]
		if set == nil {
			set = make(map[int]struct{})
			itemUsers[r.Item] = set
		}
		set[u] = struct{}{}
	}
	if len(itemUsers) == 0 {
		return []float64{}, nil
	}

	degree := make([]float64, len(userIndex))
	for _, set := range itemUsers {
		for u := range set {
			degree[u]++
		}
	}
	avg := make([]float64, len(degree))
	var base float64
	for u, d := range degree {
		avg[u] = d / float64(len(itemUsers))
		base += avg[u] * avg[u]
	}

	dist := make(map[string]float64, len(itemUsers))
	for item, set := range itemUsers {
		users := make([]int, 0, len(set))
		for u := range set {
			users = append(users, u)
		}
		// 固定求和顺序，相同用户集合的物品得到完全相同的距离
		sort.Ints(users)
		d2 := base
		for _, u := range users {
			d2 += 1 - 2*avg[u]
		}
		dist[item] = math.Sqrt(math.Max(d2, 0))
	}
	return broadcast(t, func(item string) float64 { return -dist[item] }), nil
}

func broadcast(t *core.Table, score func(item string) float64) []float64 {
	cache := make(map[string]float64)
	scores := make([]float64, t.Len())
	for i := range t.Rows {
		item := t.Rows[i].Item
		s, ok := cache[item]
		if !ok {
			s = score(item)
			cache[item] = s
		}
		scores[i] = s
	}
	return scores
}
