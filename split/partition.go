package split

import (
	"math"

	"github.com/rushteam/recmin/core"
)

// Tolerance 是三向比例之和与 1 的允许误差。
const Tolerance = 1e-6

// Ratios 是 train/val/test 三向划分比例。
type Ratios struct {
	Train float64 `koanf:"train" yaml:"train" validate:"gt=0,lt=1"`
	Val   float64 `koanf:"val" yaml:"val" validate:"gte=0,lt=1"`
	Test  float64 `koanf:"test" yaml:"test" validate:"gt=0,lt=1"`
}

// DefaultRatios 返回 70/10/20。
func DefaultRatios() Ratios {
	return Ratios{Train: 0.7, Val: 0.1, Test: 0.2}
}

// Validate 校验比例：train/test 在 (0,1)，val 在 [0,1)，三者之和在 1±1e-6 内。
func (r Ratios) Validate() error {
	switch {
	case !open01(r.Train):
		return invalidRatio("train ratio must be in (0,1), got %v", r.Train)
	case r.Val < 0 || r.Val >= 1 || math.IsNaN(r.Val):
		return invalidRatio("val ratio must be in [0,1), got %v", r.Val)
	case !open01(r.Test):
		return invalidRatio("test ratio must be in (0,1), got %v", r.Test)
	}
	if sum := r.Train + r.Val + r.Test; math.Abs(sum-1) > Tolerance {
		return invalidRatio("ratios must sum to 1, got %v", sum)
	}
	return nil
}

func open01(v float64) bool { return v > 0 && v < 1 }

func invalidRatio(format string, args ...any) error {
	return core.Errorf(core.ModuleSplit, core.ErrorCodeInvalidRatio, format, args...)
}

// Partition 是三向划分的结果。
type Partition struct {
	Train *core.Table
	Val   *core.Table
	Test  *core.Table
}

// ByEntity 按唯一实体划分：实体集合经 seed 打乱后，前 floor(a*N) 个进入 first，其余进入 second。
// 每个实体的全部行只出现在一侧，行保持输入顺序。
func ByEntity(t *core.Table, col core.Column, a float64, seed int64) (first, second *core.Table, err error) {
	if !open01(a) {
		return nil, nil, invalidRatio("split percentage must be in (0,1), got %v", a)
	}
	uniq := t.Unique(col)
	rng := core.NewRand(seed)
	rng.Shuffle(len(uniq), func(i, j int) { uniq[i], uniq[j] = uniq[j], uniq[i] })

	n := count(a, len(uniq))
	firstSet := make(map[string]struct{}, n)
	for _, e := range uniq[:n] {
		firstSet[e] = struct{}{}
	}
	var a1, a2 []int
	for i := range t.Rows {
		if _, ok := firstSet[t.Value(i, col)]; ok {
			a1 = append(a1, i)
		} else {
			a2 = append(a2, i)
		}
	}
	return t.Select(a1), t.Select(a2), nil
}

// PerEntity 对每个实体（按实体排序）独立地打乱其行，前 floor(a*n) 行进入 first，其余进入 second。
// 只有一行的实体可能使某一侧为空，这是允许的。
func PerEntity(t *core.Table, col core.Column, a float64, seed int64) (first, second *core.Table, err error) {
	if !open01(a) {
		return nil, nil, invalidRatio("split percentage must be in (0,1), got %v", a)
	}
	var a1, a2 []int
	eachShuffled(t, col, seed, func(idx []int) {
		k := count(a, len(idx))
		a1 = append(a1, idx[:k]...)
		a2 = append(a2, idx[k:]...)
	})
	return t.Select(a1), t.Select(a2), nil
}

// PerEntity3 对每个实体的行做完整的 seed 打乱后切片：
// n_train = floor(train*n)，n_val = floor(val*n)，其余为 test。每一行恰好属于一个输出。
func PerEntity3(t *core.Table, col core.Column, r Ratios, seed int64) (*Partition, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	var tr, va, te []int
	eachShuffled(t, col, seed, func(idx []int) {
		nTrain := count(r.Train, len(idx))
		nVal := count(r.Val, len(idx))
		if nTrain+nVal > len(idx) {
			nVal = len(idx) - nTrain
		}
		tr = append(tr, idx[:nTrain]...)
		va = append(va, idx[nTrain:nTrain+nVal]...)
		te = append(te, idx[nTrain+nVal:]...)
	})
	return &Partition{Train: t.Select(tr), Val: t.Select(va), Test: t.Select(te)}, nil
}

// eachShuffled 按排序后的实体依次回调其打乱后的行下标；整个调用共用一个以 seed 初始化的随机源。
func eachShuffled(t *core.Table, col core.Column, seed int64, fn func(idx []int)) {
	rng := core.NewRand(seed)
	keys, groups := t.GroupBy(col)
	for _, k := range keys {
		idx := groups[k]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		fn(idx)
	}
}

func count(ratio float64, n int) int {
	return int(math.Floor(ratio * float64(n)))
}
