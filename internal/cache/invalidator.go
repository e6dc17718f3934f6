package cache

import "context"

// Invalidator deletes the exact set of cache keys made stale by a progress
// write: the progress record itself, the task detail (which embeds the
// caller's status and score), and the user-level aggregates. Deletion, not
// re-population: the next reader rebuilds lazily, so writers never need to
// know the shape of every cached view.
type Invalidator struct {
	cache Cache
}

// NewInvalidator creates an invalidation coordinator over the given cache.
func NewInvalidator(cache Cache) *Invalidator {
	return &Invalidator{cache: cache}
}

// OnProgressWrite removes every entry that could contain state for the
// (user, task) pair. Called strictly after the store write commits.
func (i *Invalidator) OnProgressWrite(ctx context.Context, userID, taskID int64) {
	i.cache.Delete(ctx,
		ProgressKey(userID, taskID),
		TaskKey(taskID),
		UserInfoAllKey(userID),
		UserCoursesKey(userID),
		UserStatsKey(userID),
	)
}
