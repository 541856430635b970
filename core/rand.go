package core

import "math/rand/v2"

// NewRand 返回以 seed 初始化的随机源。
// 所有抽样/打乱都通过显式 seed 创建自己的随机源，不使用全局状态。
func NewRand(seed int64) *rand.Rand {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))
}
