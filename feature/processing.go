package feature

import (
	"math"
	"strconv"

	"github.com/rushteam/recmin/core"
)

// EqualWidthBinner 等宽分桶
// [Min, Max] 等分为 NumBins 段，最大值落在最后一个桶
type EqualWidthBinner struct {
	Min     float64
	Max     float64
	NumBins int
}

// FitEqualWidthBinner 根据取值范围创建分桶器
func FitEqualWidthBinner(values []float64, numBins int) (*EqualWidthBinner, error) {
	if numBins < 1 {
		return nil, core.Errorf(core.ModuleFeature, core.ErrorCodeInvalidInput, "number of groups must be >= 1, got %d", numBins)
	}
	if len(values) == 0 {
		return nil, core.Errorf(core.ModuleFeature, core.ErrorCodeInvalidInput, "cannot group an empty column")
	}
	b := &EqualWidthBinner{Min: values[0], Max: values[0], NumBins: numBins}
	for _, v := range values[1:] {
		b.Min = math.Min(b.Min, v)
		b.Max = math.Max(b.Max, v)
	}
	return b, nil
}

// Bin 将值分桶
func (b *EqualWidthBinner) Bin(value float64) int {
	if value >= b.Max {
		return b.NumBins - 1
	}
	width := (b.Max - b.Min) / float64(b.NumBins)
	if width <= 0 || value < b.Min {
		return 0
	}
	bin := int(math.Floor((value - b.Min) / width))
	if bin >= b.NumBins {
		bin = b.NumBins - 1
	}
	return bin
}

// Mapping 返回 ("Group i", i) 行
func (b *EqualWidthBinner) Mapping() [][]string {
	out := make([][]string, b.NumBins)
	for i := range out {
		out[i] = []string{"Group " + strconv.Itoa(i), strconv.Itoa(i)}
	}
	return out
}
