package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"ScheduleSync/internal/config"
	"ScheduleSync/internal/interfaces"
	"ScheduleSync/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// dryRunIDPrefix 演练模式下为“本应创建”的实体分配的占位ID前缀
const dryRunIDPrefix = "dryrun:"

// Resolver 将引用实体名称解析为远端记录ID，不存在时创建。
// 每次同步新建一个实例：缓存只在本次运行内有效，跨运行的幂等依赖远端查找。
// 同名（忽略大小写）的并发解析通过 singleflight 合并，保证每个名称最多创建一次。
type Resolver struct {
	store     interfaces.TableStore
	tables    map[model.EntityType]string
	nameField string
	selfName  string
	selfID    string
	strict    bool
	dryRun    bool
	logger    *logrus.Logger

	mu      sync.RWMutex
	cache   map[string]string
	group   singleflight.Group
	created atomic.Int64
}

func NewResolver(store interfaces.TableStore, cfg *config.Config, dryRun bool, logger *logrus.Logger) *Resolver {
	return &Resolver{
		store: store,
		tables: map[model.EntityType]string{
			model.EntityTeam:     cfg.Store.Tables.Teams,
			model.EntityLocation: cfg.Store.Tables.Locations,
			model.EntityOfficial: cfg.Store.Tables.Officials,
		},
		nameField: cfg.Store.Tables.NameField,
		selfName:  strings.TrimSpace(cfg.Sync.SelfName),
		selfID:    cfg.Sync.SelfID,
		strict:    cfg.Sync.StrictLookup,
		dryRun:    dryRun,
		logger:    logger,
		cache:     make(map[string]string),
	}
}

// Resolve 返回实体ID；本人姓名直接返回预置ID，不访问远端
func (r *Resolver) Resolve(ctx context.Context, typ model.EntityType, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s", ErrEmptyName, typ)
	}
	if typ == model.EntityOfficial && r.selfID != "" && strings.EqualFold(name, r.selfName) {
		return r.selfID, nil
	}

	key := string(typ) + "|" + strings.ToLower(name)
	if id, ok := r.cached(key); ok {
		return id, nil
	}
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		// 上一轮 flight 结束后才到达的调用方在这里命中缓存
		if id, ok := r.cached(key); ok {
			return id, nil
		}
		id, err := r.lookupOrCreate(ctx, typ, name)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.cache[key] = id
		r.mu.Unlock()
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Created 本次运行新建的实体数量
func (r *Resolver) Created() int {
	return int(r.created.Load())
}

func (r *Resolver) cached(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.cache[key]
	return id, ok
}

func (r *Resolver) lookupOrCreate(ctx context.Context, typ model.EntityType, name string) (string, error) {
	table, ok := r.tables[typ]
	if !ok || table == "" {
		return "", fmt.Errorf("%w: 未配置%s对应的表", config.ErrInvalidConfig, typ)
	}

	recs, err := r.store.Select(ctx, table, model.Filter{Field: r.nameField, Value: name, Mode: model.MatchEqualFold})
	if err != nil {
		return "", fmt.Errorf("查询%s %q失败: %w", typ, name, err)
	}
	if id, found, err := pickFirst(recs, r.strict, r.logger.WithFields(logrus.Fields{"table": table, "name": name})); found || err != nil {
		return id, err
	}

	if r.dryRun {
		r.created.Add(1)
		return dryRunIDPrefix + string(typ) + ":" + strings.ToLower(name), nil
	}
	created, err := r.store.Create(ctx, table, []model.Fields{{r.nameField: name}})
	if err != nil {
		return "", fmt.Errorf("创建%s %q失败: %w", typ, name, err)
	}
	if len(created) == 0 || created[0].ID == "" {
		return "", fmt.Errorf("创建%s %q未返回记录ID", typ, name)
	}
	r.created.Add(1)
	r.logger.WithFields(logrus.Fields{"table": table, "name": name, "id": created[0].ID}).Info("已创建引用实体")
	return created[0].ID, nil
}

// pickFirst 处理查找结果：多条命中时严格模式报错，否则告警并取第一条
func pickFirst(recs []model.RemoteRecord, strict bool, log *logrus.Entry) (string, bool, error) {
	switch {
	case len(recs) == 0:
		return "", false, nil
	case len(recs) == 1:
		return recs[0].ID, true, nil
	case strict:
		ids := make([]string, 0, len(recs))
		for _, rec := range recs {
			ids = append(ids, rec.ID)
		}
		return "", false, fmt.Errorf("%w: %s", ErrAmbiguousMatch, strings.Join(ids, ","))
	default:
		log.WithField("matches", len(recs)).Warn("匹配到多条记录，使用第一条")
		return recs[0].ID, true, nil
	}
}
