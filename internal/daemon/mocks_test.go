package daemon

import (
	"context"
	"encoding/json"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// mockProgressService implements ProgressService with overridable functions
type mockProgressService struct {
	submitFn      func(ctx context.Context, userID, taskID int64, payload json.RawMessage) error
	getProgressFn func(ctx context.Context, userID, taskID int64) (*domain.Progress, error)
}

func (m *mockProgressService) Submit(ctx context.Context, userID, taskID int64, payload json.RawMessage) error {
	if m.submitFn != nil {
		return m.submitFn(ctx, userID, taskID, payload)
	}
	return nil
}

func (m *mockProgressService) GetProgress(ctx context.Context, userID, taskID int64) (*domain.Progress, error) {
	if m.getProgressFn != nil {
		return m.getProgressFn(ctx, userID, taskID)
	}
	return &domain.Progress{UserID: userID, TaskID: taskID, Status: domain.StatusEval}, nil
}

// mockCatalogService implements CatalogService with overridable functions
type mockCatalogService struct {
	tasksFn func(ctx context.Context, moduleID int64, userID *int64) ([]domain.TaskShortInfo, error)
	taskFn  func(ctx context.Context, moduleID, taskID int64, userID *int64) (*domain.Task, error)
	statsFn func(ctx context.Context, userID int64) (*domain.UserStats, error)
}

func (m *mockCatalogService) TasksForModule(ctx context.Context, moduleID int64, userID *int64) ([]domain.TaskShortInfo, error) {
	if m.tasksFn != nil {
		return m.tasksFn(ctx, moduleID, userID)
	}
	return nil, nil
}

func (m *mockCatalogService) Task(ctx context.Context, moduleID, taskID int64, userID *int64) (*domain.Task, error) {
	if m.taskFn != nil {
		return m.taskFn(ctx, moduleID, taskID, userID)
	}
	return &domain.Task{ID: taskID, ModuleID: moduleID}, nil
}

func (m *mockCatalogService) UserStats(ctx context.Context, userID int64) (*domain.UserStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, userID)
	}
	return &domain.UserStats{UserID: userID}, nil
}

var (
	_ ProgressService = (*mockProgressService)(nil)
	_ CatalogService  = (*mockCatalogService)(nil)
)
