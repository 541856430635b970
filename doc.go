// Package recmin 为推荐系统的数据最小化实验准备数据（Recommender data Minimization）。
//
// 设计要点：
// - Pipeline-first: 预处理通过 Node 串联（Filter → Sample → Minimize），由 YAML 配置组装
// - Table-first: 交互表在整个流程中以 core.Table 透传，schema 在加载时一次解析
// - Seed-explicit: 所有随机操作都从运行 seed 派生，相同配置得到逐字节相同的输出
//
// 命令行入口见 cmd/recmin，批处理编排见 driver 包。
package recmin

import (
	"github.com/rushteam/recmin/minimize"
	"github.com/rushteam/recmin/pipeline"
)

// 轻量 facade：便于用户直接 import "recmin" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind
type Strategy = minimize.Strategy

const (
	KindFilter   = pipeline.KindFilter
	KindSample   = pipeline.KindSample
	KindMinimize = pipeline.KindMinimize
)
