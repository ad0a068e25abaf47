// Package store 按配置选择 TableStore 后端。各后端在 init 中注册工厂函数。
package store

import (
	"fmt"
	"sort"
	"sync"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps 后端可能用到的共享依赖
type Deps struct {
	DB     *gorm.DB // postgres 后端必需；其余后端忽略
	Logger *logrus.Logger
}

// Factory 后端工厂函数签名
type Factory func(cfg *config.Config, deps Deps) (interfaces.TableStore, error)

var (
	mu              sync.RWMutex
	factoryRegistry = make(map[string]Factory)
)

// Register 供后端 init 调用
func Register(backend string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("后端%s的工厂函数不能为nil", backend))
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := factoryRegistry[backend]; exists {
		logrus.Warnf("后端%s已注册，将覆盖原有实现", backend)
	}
	factoryRegistry[backend] = factory
}

// GetFactory 获取指定后端的工厂函数
func GetFactory(backend string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factoryRegistry[backend]
	return f, ok
}

// ListFactories 已注册的后端名称（排序后）
func ListFactories() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factoryRegistry))
	for name := range factoryRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New 根据 cfg.Store.Backend 创建 TableStore
func New(cfg *config.Config, deps Deps) (interfaces.TableStore, error) {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	backend := cfg.Store.Backend
	factory, ok := GetFactory(backend)
	if !ok {
		return nil, fmt.Errorf("%w: 未注册的存储后端 %q（已注册：%v）", config.ErrInvalidConfig, backend, ListFactories())
	}
	s, err := factory(cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("初始化存储后端%s失败: %w", backend, err)
	}
	deps.Logger.WithFields(logrus.Fields{"backend": backend, "max_batch": s.MaxBatchSize()}).Info("存储后端初始化成功")
	return s, nil
}
