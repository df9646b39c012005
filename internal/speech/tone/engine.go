// Package tone provides a speech engine that renders text as a sine tone
// instead of speech. It needs nothing installed on the host, which makes
// the speech pipeline usable in development and tests.
package tone

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/davidbz/voxrelay/internal/domain"
)

const (
	sampleRate  = 16000
	bitDepth    = 16
	numChannels = 1
	wavPCM      = 1

	defaultRate    = 150 // words per minute
	minDuration    = 250 * time.Millisecond
	maxDuration    = time.Minute
	peakAmplitude  = 0.8 * math.MaxInt16
	feminineHertz  = 220.0
	masculineHertz = 110.0
)

// Engine implements domain.SpeechEngine. It is not safe for concurrent use.
type Engine struct {
	voices []domain.VoiceDescriptor

	voice  domain.VoiceDescriptor
	rate   int
	volume float64
}

// DefaultVoices is the catalog offered when New receives none.
func DefaultVoices() []domain.VoiceDescriptor {
	return []domain.VoiceDescriptor{
		{ID: "tone-en-m", Name: "Tone English (male)", Languages: []string{"en"}, Gender: "male"},
		{ID: "tone-en-f", Name: "Tone English (female)", Languages: []string{"en"}, Gender: "female"},
		{ID: "tone-es-f", Name: "Tone Spanish (female)", Languages: []string{"es"}, Gender: "female"},
	}
}

// New creates an engine offering voices, or DefaultVoices when voices is nil.
func New(voices []domain.VoiceDescriptor) *Engine {
	if voices == nil {
		voices = DefaultVoices()
	}

	e := &Engine{
		voices: voices,
		voice:  domain.VoiceDescriptor{},
		rate:   defaultRate,
		volume: 1,
	}
	if len(voices) > 0 {
		e.voice = voices[0]
	}
	return e
}

// NewFactory returns an EngineFactory creating a tone engine with the default voices.
func NewFactory() domain.EngineFactory {
	return func(_ context.Context) (domain.SpeechEngine, error) {
		return New(nil), nil
	}
}

// Voices returns a copy of the catalog.
func (e *Engine) Voices(_ context.Context) ([]domain.VoiceDescriptor, error) {
	voices := make([]domain.VoiceDescriptor, len(e.voices))
	copy(voices, e.voices)
	return voices, nil
}

// SetVoice selects a voice from the catalog.
func (e *Engine) SetVoice(voiceID string) error {
	for _, voice := range e.voices {
		if voice.ID == voiceID {
			e.voice = voice
			return nil
		}
	}
	return fmt.Errorf("unknown voice %q", voiceID)
}

// SetRate sets words per minute; it only affects the rendered duration.
func (e *Engine) SetRate(wordsPerMinute int) {
	e.rate = wordsPerMinute
}

// SetVolume sets the tone amplitude in [0.0, 1.0].
func (e *Engine) SetVolume(volume float64) {
	e.volume = domain.ClampVolume(volume)
}

// SynthesizeToFile writes a 16-bit mono WAV whose length follows the word
// count and rate, pitched by the voice's gender. Output is capped at one
// minute however slow the rate.
func (e *Engine) SynthesizeToFile(ctx context.Context, text, _, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("nothing to synthesize")
	}

	samples := e.render(e.duration(text))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	encoder := wav.NewEncoder(f, sampleRate, bitDepth, numChannels, wavPCM)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}

	if err := encoder.Write(buf); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := encoder.Close(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to finalize wav: %w", err)
	}

	return f.Close()
}

func (e *Engine) duration(text string) time.Duration {
	rate := e.rate
	if rate <= 0 {
		rate = defaultRate
	}

	words := len(strings.Fields(text))
	d := time.Duration(float64(words) / float64(rate) * float64(time.Minute))
	switch {
	case d < minDuration:
		return minDuration
	case d > maxDuration:
		return maxDuration
	}
	return d
}

func (e *Engine) render(d time.Duration) []int {
	hertz := masculineHertz
	if e.voice.IsFeminine() {
		hertz = feminineHertz
	}

	n := int(d.Seconds() * sampleRate)
	samples := make([]int, n)
	amplitude := peakAmplitude * e.volume
	for i := range samples {
		samples[i] = int(amplitude * math.Sin(2*math.Pi*hertz*float64(i)/sampleRate))
	}
	return samples
}
