package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/bbc-census/internal/model"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) StartRun(ctx context.Context, years []int) (*model.Run, error) {
	args := m.Called(ctx, years)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) CompleteRun(ctx context.Context, run *model.Run) error {
	return m.Called(ctx, run).Error(0)
}

func (m *mockStore) FailRun(ctx context.Context, runID string, runErr error) error {
	return m.Called(ctx, runID, runErr).Error(0)
}

func (m *mockStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Run), args.Error(1)
}

func (m *mockStore) SaveTables(ctx context.Context, years []int, tables model.Tables) error {
	return m.Called(ctx, years, tables).Error(0)
}

func (m *mockStore) SaveFailures(ctx context.Context, runID string, failures []model.Failure) error {
	return m.Called(ctx, runID, failures).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}
