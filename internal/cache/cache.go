// Package cache provides the shared key-value cache used by every
// read-through path of the service. No cached value is authoritative: the
// relational store always wins on conflict, and every cache failure degrades
// to a direct store read. Callers therefore never see cache errors; the
// adapters log them and count them instead.
package cache

import (
	"context"
	"fmt"
	"time"
)

// TTLs for cached snapshots. Progress and per-user aggregates change on
// every submission and stay short; catalog entries are near-static.
const (
	ShortTTL = 300 * time.Second
	LongTTL  = 3600 * time.Second
)

// Cache is the key-value capability handed to components that read through
// or invalidate the shared cache. All operations are total: a broken cache
// behaves like an empty one.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a serialized snapshot with a bounded TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes the given keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string)

	// Dropped reports how many cache operations have been swallowed due to
	// cache failures since startup.
	Dropped() uint64
}

// Key builders. Every mutating operation derives the stale set purely from
// (user_id, task_id), so the scheme must stay in sync with the readers.

func ProgressKey(userID, taskID int64) string {
	return fmt.Sprintf("progress:%d:%d", userID, taskID)
}

func TaskKey(taskID int64) string {
	return fmt.Sprintf("task:%d", taskID)
}

func ModuleTasksKey(moduleID int64) string {
	return fmt.Sprintf("module:%d:tasks:all", moduleID)
}

func UserInfoAllKey(userID int64) string {
	return fmt.Sprintf("user:info:all:%d", userID)
}

func UserCoursesKey(userID int64) string {
	return fmt.Sprintf("user:info:courses:%d", userID)
}

func UserStatsKey(userID int64) string {
	return fmt.Sprintf("user:stats:%d", userID)
}
