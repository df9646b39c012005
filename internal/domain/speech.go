package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/davidbz/voxrelay/internal/observability"
)

// SelfTestPhrase is rendered by the speech self-test.
const SelfTestPhrase = "Hello! This is a test of the text to speech system."

const (
	speechFilePrefix   = "tts"
	selfTestFilePrefix = "tts_test"
	selfTestLanguage   = "en"
)

// SpeechDefaults are applied to fields a speech request leaves unset.
type SpeechDefaults struct {
	Language string
	Rate     int
	Volume   float64
}

// SpeechService renders text through the host speech engine.
type SpeechService struct {
	executor EngineExecutor
	store    AudioStore
	events   EventPublisher
	defaults SpeechDefaults
}

// NewSpeechService creates a new speech service (DI constructor).
func NewSpeechService(
	executor EngineExecutor,
	store AudioStore,
	events EventPublisher,
	defaults SpeechDefaults,
) *SpeechService {
	return &SpeechService{
		executor: executor,
		store:    store,
		events:   events,
		defaults: defaults,
	}
}

// Resolve turns a request into concrete engine settings. Volume is clamped,
// rate is passed through, missing fields take the service defaults.
func (s *SpeechService) Resolve(req *SpeechRequest) SpeechSettings {
	settings := SpeechSettings{
		VoiceID:  strings.TrimSpace(req.VoiceID),
		Language: strings.TrimSpace(req.Language),
		Rate:     s.defaults.Rate,
		Volume:   ClampVolume(s.defaults.Volume),
	}

	if settings.Language == "" {
		settings.Language = s.defaults.Language
	}
	if req.Rate != nil && *req.Rate != 0 {
		settings.Rate = *req.Rate
	}
	if req.Volume != nil {
		settings.Volume = ClampVolume(*req.Volume)
	}

	return settings
}

// Synthesize renders req.Text and returns the resulting WAV file.
func (s *SpeechService) Synthesize(ctx context.Context, req *SpeechRequest) (*Audio, error) {
	if req == nil {
		return nil, errors.New("request cannot be nil")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	return s.render(ctx, speechFilePrefix, req.Text, s.Resolve(req))
}

// SelfTest renders the canned phrase with default English settings.
func (s *SpeechService) SelfTest(ctx context.Context) (*Audio, error) {
	settings := s.Resolve(&SpeechRequest{Language: selfTestLanguage})
	return s.render(ctx, selfTestFilePrefix, SelfTestPhrase, settings)
}

// Voices enumerates the host voices. Never cached; empty when the host has none.
func (s *SpeechService) Voices(ctx context.Context) ([]VoiceDescriptor, error) {
	var voices []VoiceDescriptor

	err := s.executor.Do(ctx, func(ctx context.Context, engine SpeechEngine) error {
		var listErr error
		voices, listErr = engine.Voices(ctx)
		return listErr
	})
	if err != nil {
		return nil, err
	}

	if voices == nil {
		voices = []VoiceDescriptor{}
	}
	return voices, nil
}

func (s *SpeechService) render(
	ctx context.Context,
	prefix, text string,
	settings SpeechSettings,
) (*Audio, error) {
	filename, path := s.store.Allocate(ctx, prefix)

	err := s.executor.Do(ctx, func(ctx context.Context, engine SpeechEngine) error {
		voiceID, err := chooseVoice(ctx, engine, settings)
		if err != nil {
			return err
		}

		if voiceID != "" {
			if setErr := engine.SetVoice(voiceID); setErr != nil {
				return fmt.Errorf("failed to select voice %s: %w", voiceID, setErr)
			}
		}
		engine.SetRate(settings.Rate)
		engine.SetVolume(settings.Volume)

		ctx = observability.WithVoice(ctx, voiceID)
		observability.FromContext(ctx).Debug("synthesizing speech",
			observability.String("language", settings.Language),
			observability.Int("rate", settings.Rate),
			observability.Float64("volume", settings.Volume),
			observability.Int("text_length", len(text)),
		)

		if synthErr := engine.SynthesizeToFile(ctx, text, settings.Language, path); synthErr != nil {
			return fmt.Errorf("synthesis failed: %w", synthErr)
		}
		return nil
	})
	if err != nil {
		s.store.Discard(ctx, filename, path)
		return nil, err
	}

	audio, err := s.store.Commit(ctx, filename, path)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		s.events.Publish(ctx, "speech.synthesized", map[string]interface{}{
			"filename": audio.Filename,
			"bytes":    len(audio.Data),
			"language": settings.Language,
		})
	}

	return audio, nil
}

// chooseVoice returns the explicit voice, or one picked by SelectVoice.
// An empty result leaves the engine's current voice in place.
func chooseVoice(ctx context.Context, engine SpeechEngine, settings SpeechSettings) (string, error) {
	if settings.VoiceID != "" {
		return settings.VoiceID, nil
	}

	voices, err := engine.Voices(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list voices: %w", err)
	}

	voice, ok := SelectVoice(voices, settings.Language)
	if !ok {
		return "", nil
	}
	return voice.ID, nil
}
