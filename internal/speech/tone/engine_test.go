package tone_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/davidbz/voxrelay/internal/audio"
	"github.com/davidbz/voxrelay/internal/speech/tone"
)

func TestEngine_SynthesizeToFile(t *testing.T) {
	engine := tone.New(nil)
	path := filepath.Join(t.TempDir(), "out.wav")

	require.NoError(t, engine.SetVoice("tone-en-f"))
	engine.SetRate(120)
	engine.SetVolume(0.5)

	err := engine.SynthesizeToFile(context.Background(), "one two three four", "en", path)
	require.NoError(t, err)

	duration, err := audio.Inspect(path)
	require.NoError(t, err)
	require.InDelta(t, 2.0, duration.Seconds(), 0.05) // 4 words at 120 wpm
}

func TestEngine_ShortTextHasMinimumLength(t *testing.T) {
	engine := tone.New(nil)
	path := filepath.Join(t.TempDir(), "out.wav")

	require.NoError(t, engine.SynthesizeToFile(context.Background(), "hi", "en", path))

	duration, err := audio.Inspect(path)
	require.NoError(t, err)
	require.Greater(t, duration.Seconds(), 0.2)
}

func TestEngine_SlowRateIsCapped(t *testing.T) {
	engine := tone.New(nil)
	path := filepath.Join(t.TempDir(), "out.wav")
	engine.SetRate(1)

	text := strings.Repeat("word ", 3000)
	require.NoError(t, engine.SynthesizeToFile(context.Background(), text, "en", path))

	duration, err := audio.Inspect(path)
	require.NoError(t, err)
	require.InDelta(t, 60.0, duration.Seconds(), 0.05)
}

func TestEngine_Errors(t *testing.T) {
	engine := tone.New(nil)

	require.Error(t, engine.SetVoice("nope"))
	require.Error(t, engine.SynthesizeToFile(context.Background(), "  ", "en", filepath.Join(t.TempDir(), "x.wav")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, engine.SynthesizeToFile(ctx, "hello", "en", filepath.Join(t.TempDir(), "y.wav")), context.Canceled)
}

func TestEngine_VoicesReturnsCopy(t *testing.T) {
	engine := tone.New(nil)

	voices, err := engine.Voices(context.Background())
	require.NoError(t, err)
	require.Len(t, voices, 3)

	voices[0].ID = "mutated"

	again, err := engine.Voices(context.Background())
	require.NoError(t, err)
	require.Equal(t, "tone-en-m", again[0].ID)
}
