// Package catalog serves the task catalog reads: module listings, task
// details and per-user statistics, all read-through the shared cache.
// Catalog entries are near-static and carry long TTLs; user aggregates
// change on every submission and stay short.
package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/teoneo-site/teoneo-courses/internal/cache"
	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// Store is the catalog read surface of the relational store.
type Store interface {
	TasksForModule(ctx context.Context, moduleID int64, userID *int64) ([]domain.TaskShortInfo, error)
	Task(ctx context.Context, moduleID, taskID int64, userID *int64) (*domain.Task, error)
	UserStats(ctx context.Context, userID int64) (*domain.UserStats, error)
}

// Service answers catalog queries against the cache, falling back to the
// store on miss.
type Service struct {
	store  Store
	cache  cache.Cache
	logger *slog.Logger
}

// NewService creates the catalog service.
func NewService(store Store, c cache.Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: c, logger: logger}
}

// TasksForModule lists a module's tasks, with the requesting user's status
// embedded when userID is given. The listing shares one cache entry per
// module; it is not part of the per-write stale set, so embedded statuses
// may lag behind by up to the TTL.
func (s *Service) TasksForModule(ctx context.Context, moduleID int64, userID *int64) ([]domain.TaskShortInfo, error) {
	key := cache.ModuleTasksKey(moduleID)
	var tasks []domain.TaskShortInfo
	if hit := s.lookup(ctx, key, &tasks); hit {
		return tasks, nil
	}

	tasks, err := s.store.TasksForModule(ctx, moduleID, userID)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, tasks, cache.LongTTL)
	return tasks, nil
}

// Task returns the full task entry with the requesting user's own status and
// score embedded when userID is given. The entry is invalidated on every
// progress write for the task, so the embedded state never outlives a write.
func (s *Service) Task(ctx context.Context, moduleID, taskID int64, userID *int64) (*domain.Task, error) {
	key := cache.TaskKey(taskID)
	var task domain.Task
	if hit := s.lookup(ctx, key, &task); hit {
		return &task, nil
	}

	t, err := s.store.Task(ctx, moduleID, taskID, userID)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, t, cache.LongTTL)
	return t, nil
}

// UserStats returns the user's progress aggregate.
func (s *Service) UserStats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	key := cache.UserStatsKey(userID)
	var stats domain.UserStats
	if hit := s.lookup(ctx, key, &stats); hit {
		return &stats, nil
	}

	st, err := s.store.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.populate(ctx, key, st, cache.ShortTTL)
	return st, nil
}

// lookup deserializes a cached snapshot into dst. Unreadable entries are
// deleted and treated as misses.
func (s *Service) lookup(ctx context.Context, key string, dst any) bool {
	raw, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		s.logger.Warn("dropping unreadable cache entry", "key", key, "error", err)
		s.cache.Delete(ctx, key)
		return false
	}
	return true
}

func (s *Service) populate(ctx context.Context, key string, src any, ttl time.Duration) {
	raw, err := json.Marshal(src)
	if err != nil {
		s.logger.Warn("skipping cache populate", "key", key, "error", err)
		return
	}
	s.cache.Set(ctx, key, raw, ttl)
}
