package queue_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/spool/pkg/spool"
)

// MockStore is a mock implementation of WorkerStore and EnqueuerStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) GrabTask(ctx context.Context) (*spool.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*spool.Task), args.Error(1)
}

func (m *MockStore) AddTask(ctx context.Context, task spool.Task) (spool.Task, error) {
	args := m.Called(ctx, task)
	return args.Get(0).(spool.Task), args.Error(1)
}

func (m *MockStore) Tasks(ctx context.Context) ([]spool.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]spool.Task), args.Error(1)
}

func (m *MockStore) Counts(ctx context.Context) (spool.Counts, error) {
	args := m.Called(ctx)
	return args.Get(0).(spool.Counts), args.Error(1)
}

// MockSlots is a mock implementation of SlotRegistry.
type MockSlots struct {
	mock.Mock
}

func (m *MockSlots) Acquire(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockSlots) Holds(n int) bool {
	args := m.Called(n)
	return args.Bool(0)
}

func (m *MockSlots) Release(ctx context.Context, n int) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
