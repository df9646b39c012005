// Package espeak drives the host eSpeak NG (or classic eSpeak) binary.
package espeak

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/davidbz/voxrelay/internal/domain"
)

// Binaries tried, in order, when none is configured.
//
//nolint:gochecknoglobals // Read-only lookup table
var candidates = []string{"espeak-ng", "espeak"}

// amplitudeScale maps volume 1.0 to eSpeak's default amplitude.
const amplitudeScale = 100

// runFunc executes a command and returns its stdout.
type runFunc func(ctx context.Context, name string, args []string, stdin string) ([]byte, error)

// Engine implements domain.SpeechEngine. It is not safe for concurrent use.
type Engine struct {
	binary string
	run    runFunc

	voice  string
	rate   int
	volume float64
}

// New locates the binary (auto-detected when empty) and returns an engine.
func New(binary string) (*Engine, error) {
	path, err := Locate(binary)
	if err != nil {
		return nil, err
	}
	return newEngine(path, runCommand), nil
}

// NewFactory returns an EngineFactory creating an engine for binary.
func NewFactory(binary string) domain.EngineFactory {
	return func(_ context.Context) (domain.SpeechEngine, error) {
		return New(binary)
	}
}

func newEngine(binary string, run runFunc) *Engine {
	return &Engine{
		binary: binary,
		run:    run,
		voice:  "",
		rate:   0,
		volume: 1,
	}
}

// Locate resolves binary on PATH, or the first installed candidate.
func Locate(binary string) (string, error) {
	if binary != "" {
		path, err := exec.LookPath(binary)
		if err != nil {
			return "", fmt.Errorf("speech binary %s not found: %w", binary, err)
		}
		return path, nil
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("none of %s found on PATH", strings.Join(candidates, ", "))
}

// Voices runs "<binary> --voices" and parses the table it prints.
func (e *Engine) Voices(ctx context.Context) ([]domain.VoiceDescriptor, error) {
	out, err := e.run(ctx, e.binary, []string{"--voices"}, "")
	if err != nil {
		return nil, err
	}
	return parseVoices(out), nil
}

// SetVoice selects the voice used by later synthesis.
func (e *Engine) SetVoice(voiceID string) error {
	voiceID = strings.TrimSpace(voiceID)
	if voiceID == "" {
		return errors.New("voice id cannot be empty")
	}
	e.voice = voiceID
	return nil
}

// SetRate sets words per minute. Zero keeps the binary's default.
func (e *Engine) SetRate(wordsPerMinute int) {
	e.rate = wordsPerMinute
}

// SetVolume sets the volume in [0.0, 1.0].
func (e *Engine) SetVolume(volume float64) {
	e.volume = domain.ClampVolume(volume)
}

// SynthesizeToFile renders text to a WAV file. Text is fed on stdin so it is
// never parsed as a flag.
func (e *Engine) SynthesizeToFile(ctx context.Context, text, language, path string) error {
	_, err := e.run(ctx, e.binary, e.synthArgs(language, path), text)
	return err
}

func (e *Engine) synthArgs(language, path string) []string {
	args := []string{"--stdin", "-w", path}

	if e.rate != 0 {
		args = append(args, "-s", strconv.Itoa(e.rate))
	}

	args = append(args, "-a", strconv.Itoa(int(math.Round(e.volume*amplitudeScale))))

	switch {
	case e.voice != "":
		args = append(args, "-v", e.voice)
	case language != "":
		args = append(args, "-v", language)
	}

	return args
}

func runCommand(ctx context.Context, name string, args []string, stdin string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}

	return stdout.Bytes(), nil
}
