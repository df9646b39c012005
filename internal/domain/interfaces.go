package domain

import (
	"context"
	"time"
)

// ChatProvider represents any upstream chat-completion service.
type ChatProvider interface {
	// Complete sends a non-streaming request and returns the upstream body verbatim.
	Complete(ctx context.Context, req *ChatRequest) (ChatResponse, error)

	// Stream sends a streaming request and returns a stream of chunks.
	// Transport failures after the call returns arrive as a chunk carrying Error.
	Stream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)

	// Models returns the upstream model listing verbatim.
	Models(ctx context.Context) (ChatResponse, error)

	// Name returns the provider identifier.
	Name() string

	// IsModelSupported checks if the provider serves the given model.
	IsModelSupported(ctx context.Context, model string) bool
}

// ProviderRegistry manages available providers.
type ProviderRegistry interface {
	// Register adds a provider to the registry.
	Register(ctx context.Context, provider ChatProvider) error

	// Get retrieves a provider by name.
	Get(ctx context.Context, providerName string) (ChatProvider, error)

	// GetByModel retrieves the provider serving a model, falling back to the default.
	GetByModel(ctx context.Context, model string) (ChatProvider, error)

	// List returns all available providers.
	List(ctx context.Context) ([]string, error)
}

// SpeechEngine is the host text-to-speech capability. Settings are engine-wide
// and mutable; callers must not share an engine across goroutines.
type SpeechEngine interface {
	// Voices enumerates the voices installed on the host.
	Voices(ctx context.Context) ([]VoiceDescriptor, error)

	// SetVoice selects the voice used by subsequent synthesis.
	SetVoice(voiceID string) error

	// SetRate sets the speaking rate in words per minute.
	SetRate(wordsPerMinute int)

	// SetVolume sets the output volume in [0.0, 1.0].
	SetVolume(volume float64)

	// SynthesizeToFile renders text into a WAV file at path.
	SynthesizeToFile(ctx context.Context, text, language, path string) error
}

// EngineFactory creates the host speech engine on first use.
type EngineFactory func(ctx context.Context) (SpeechEngine, error)

// AudioStore owns the on-disk audio area.
type AudioStore interface {
	// Allocate returns a fresh, unique file name and path for a rendering and
	// tracks it for retention before anything is written.
	Allocate(ctx context.Context, prefix string) (filename, path string)

	// Commit validates a rendered file, records it for retention and loads its bytes.
	Commit(ctx context.Context, filename, path string) (*Audio, error)

	// Discard removes whatever a failed rendering left at path.
	Discard(ctx context.Context, filename, path string)
}

// AudioLedger records when audio files were written so they can be expired.
type AudioLedger interface {
	// Record notes that a file was written at the given time.
	Record(ctx context.Context, filename string, at time.Time) error

	// Expired lists files written before cutoff.
	Expired(ctx context.Context, cutoff time.Time) ([]string, error)

	// Forget drops files from the ledger.
	Forget(ctx context.Context, filenames ...string) error
}

// EventPublisher publishes events for observability.
type EventPublisher interface {
	// Publish publishes an event with the given type and data.
	Publish(ctx context.Context, eventType string, data map[string]interface{})
}

// EngineExecutor grants exclusive, serialized access to the speech engine.
type EngineExecutor interface {
	// Do runs fn with the engine; no other fn runs until it returns.
	Do(ctx context.Context, fn func(ctx context.Context, engine SpeechEngine) error) error
}
