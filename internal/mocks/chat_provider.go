// Package mocks holds testify mocks for the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/voxrelay/internal/domain"
)

// MockChatProvider is a mock of domain.ChatProvider.
type MockChatProvider struct {
	mock.Mock
}

// NewMockChatProvider creates a mock that asserts its expectations on cleanup.
func NewMockChatProvider(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockChatProvider {
	m := &MockChatProvider{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockChatProvider) Complete(ctx context.Context, req *domain.ChatRequest) (domain.ChatResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(domain.ChatResponse)
	return resp, args.Error(1)
}

func (m *MockChatProvider) Stream(ctx context.Context, req *domain.ChatRequest) (<-chan domain.StreamChunk, error) {
	args := m.Called(ctx, req)
	chunks, _ := args.Get(0).(<-chan domain.StreamChunk)
	return chunks, args.Error(1)
}

func (m *MockChatProvider) Models(ctx context.Context) (domain.ChatResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(domain.ChatResponse)
	return resp, args.Error(1)
}

func (m *MockChatProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockChatProvider) IsModelSupported(ctx context.Context, model string) bool {
	args := m.Called(ctx, model)
	return args.Bool(0)
}
