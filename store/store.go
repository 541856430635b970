// Package store 提供 core.Store 的实现：内存与 Redis。
//
// 示例：
//
//	var s core.Store = store.NewMemoryStore()
//	s, err := store.New(store.Config{Type: "redis", Addr: "localhost:6379"})
package store

import (
	"fmt"

	"github.com/rushteam/recmin/core"
)

// Config 检查点存储配置
type Config struct {
	Type string `koanf:"type" yaml:"type" validate:"omitempty,oneof=memory redis"` // memory（默认）/ redis
	Addr string `koanf:"addr" yaml:"addr"`
	DB   int    `koanf:"db" yaml:"db" validate:"gte=0"`
}

// New 按配置创建存储。
func New(cfg Config) (core.Store, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		if cfg.Addr == "" {
			return nil, core.NewDomainError(core.ModuleStore, core.ErrorCodeInvalidConfig, "redis store requires addr")
		}
		return NewRedisStore(cfg.Addr, cfg.DB)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.Type)
	}
}
