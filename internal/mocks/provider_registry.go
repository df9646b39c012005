package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/voxrelay/internal/domain"
)

// MockProviderRegistry is a mock of domain.ProviderRegistry.
type MockProviderRegistry struct {
	mock.Mock
}

// NewMockProviderRegistry creates a mock that asserts its expectations on cleanup.
func NewMockProviderRegistry(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockProviderRegistry {
	m := &MockProviderRegistry{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockProviderRegistry) Register(ctx context.Context, provider domain.ChatProvider) error {
	args := m.Called(ctx, provider)
	return args.Error(0)
}

func (m *MockProviderRegistry) Get(ctx context.Context, providerName string) (domain.ChatProvider, error) {
	args := m.Called(ctx, providerName)
	provider, _ := args.Get(0).(domain.ChatProvider)
	return provider, args.Error(1)
}

func (m *MockProviderRegistry) GetByModel(ctx context.Context, model string) (domain.ChatProvider, error) {
	args := m.Called(ctx, model)
	provider, _ := args.Get(0).(domain.ChatProvider)
	return provider, args.Error(1)
}

func (m *MockProviderRegistry) List(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	names, _ := args.Get(0).([]string)
	return names, args.Error(1)
}
