package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/davidbz/voxrelay/internal/domain"
)

// MockSpeechEngine is a mock of domain.SpeechEngine.
type MockSpeechEngine struct {
	mock.Mock
}

// NewMockSpeechEngine creates a mock that asserts its expectations on cleanup.
func NewMockSpeechEngine(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockSpeechEngine {
	m := &MockSpeechEngine{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSpeechEngine) Voices(ctx context.Context) ([]domain.VoiceDescriptor, error) {
	args := m.Called(ctx)
	voices, _ := args.Get(0).([]domain.VoiceDescriptor)
	return voices, args.Error(1)
}

func (m *MockSpeechEngine) SetVoice(voiceID string) error {
	args := m.Called(voiceID)
	return args.Error(0)
}

func (m *MockSpeechEngine) SetRate(wordsPerMinute int) {
	m.Called(wordsPerMinute)
}

func (m *MockSpeechEngine) SetVolume(volume float64) {
	m.Called(volume)
}

func (m *MockSpeechEngine) SynthesizeToFile(ctx context.Context, text, language, path string) error {
	args := m.Called(ctx, text, language, path)
	return args.Error(0)
}
