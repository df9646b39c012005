package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/voxrelay/internal/domain"
)

// MockAudioStore is a mock of domain.AudioStore.
type MockAudioStore struct {
	mock.Mock
}

// NewMockAudioStore creates a mock that asserts its expectations on cleanup.
func NewMockAudioStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockAudioStore {
	m := &MockAudioStore{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAudioStore) Allocate(ctx context.Context, prefix string) (string, string) {
	args := m.Called(ctx, prefix)
	return args.String(0), args.String(1)
}

func (m *MockAudioStore) Commit(ctx context.Context, filename, path string) (*domain.Audio, error) {
	args := m.Called(ctx, filename, path)
	audio, _ := args.Get(0).(*domain.Audio)
	return audio, args.Error(1)
}

func (m *MockAudioStore) Discard(ctx context.Context, filename, path string) {
	m.Called(ctx, filename, path)
}
