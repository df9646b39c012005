package audio

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-audio/wav"
)

// ErrInvalidWAV indicates a file that is not a playable RIFF/WAVE file.
var ErrInvalidWAV = errors.New("not a valid wav file")

// Inspect checks that path holds a playable WAV file and returns its duration.
func Inspect(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return 0, ErrInvalidWAV
	}

	duration, err := decoder.Duration()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidWAV, err)
	}

	return duration, nil
}
