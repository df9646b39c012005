// Package audio manages the on-disk area where rendered speech is written,
// and expires files once they outlive the retention window.
package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/davidbz/voxrelay/internal/domain"
	"github.com/davidbz/voxrelay/internal/observability"
)

// ContentType is served with every rendered file.
const ContentType = "audio/wav"

const fileExtension = ".wav"

// Store implements domain.AudioStore.
type Store struct {
	dir       string
	retention time.Duration
	ledger    domain.AudioLedger
	events    domain.EventPublisher
	now       func() time.Time
}

// NewStore creates the audio directory if needed. An empty dir means the OS
// temp directory; a non-positive retention keeps files forever.
func NewStore(
	dir string,
	retention time.Duration,
	ledger domain.AudioLedger,
	events domain.EventPublisher,
) (*Store, error) {
	if ledger == nil {
		return nil, errors.New("ledger cannot be nil")
	}

	if dir == "" {
		dir = os.TempDir()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create audio dir: %w", err)
	}

	return &Store{
		dir:       dir,
		retention: retention,
		ledger:    ledger,
		events:    events,
		now:       time.Now,
	}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string {
	return s.dir
}

// Allocate returns a collision-free "<prefix>_<32 hex>.wav" name and its path.
// The name enters the ledger right away, so output from an abandoned or
// failed rendering still expires.
func (s *Store) Allocate(ctx context.Context, prefix string) (string, string) {
	filename := prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "") + fileExtension
	s.record(ctx, filename)
	return filename, filepath.Join(s.dir, filename)
}

// Commit validates the rendered file, records it for expiry and loads it.
// Invalid or unreadable output is removed immediately.
func (s *Store) Commit(ctx context.Context, filename, path string) (*domain.Audio, error) {
	logger := observability.FromContext(ctx)

	duration, err := Inspect(path)
	if err != nil {
		s.Discard(ctx, filename, path)
		return nil, fmt.Errorf("engine produced unusable audio: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.Discard(ctx, filename, path)
		return nil, fmt.Errorf("failed to read rendered audio: %w", err)
	}

	// Retention counts from completion, not allocation.
	s.record(ctx, filename)

	logger.Debug("audio committed",
		observability.String("filename", filename),
		observability.Int("bytes", len(data)),
		observability.Duration("duration", duration))

	return &domain.Audio{
		Filename:    filename,
		Path:        path,
		ContentType: ContentType,
		Data:        data,
	}, nil
}

// Discard removes a partial or invalid rendering. The ledger entry stays so a
// late write from an engine that outlived its caller is still swept.
func (s *Store) Discard(ctx context.Context, filename, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		observability.FromContext(ctx).Warn("failed to discard audio",
			observability.String("filename", filename),
			observability.Error(err))
	}
}

func (s *Store) record(ctx context.Context, filename string) {
	if err := s.ledger.Record(ctx, filename, s.now()); err != nil {
		// The file is still served; it just escapes expiry.
		observability.FromContext(ctx).Warn("failed to record audio for retention",
			observability.String("filename", filename),
			observability.Error(err))
	}
}

// Sweep deletes files older than the retention window and returns how many
// ledger entries were expired.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}

	cutoff := s.now().Add(-s.retention)
	expired, err := s.ledger.Expired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired audio: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	logger := observability.FromContext(ctx)
	for _, filename := range expired {
		// Base keeps ledger entries from escaping the audio dir.
		path := filepath.Join(s.dir, filepath.Base(filename))
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("failed to remove expired audio",
				observability.String("filename", filename),
				observability.Error(rmErr))
		}
	}

	if forgetErr := s.ledger.Forget(ctx, expired...); forgetErr != nil {
		return 0, fmt.Errorf("failed to forget expired audio: %w", forgetErr)
	}

	if s.events != nil {
		s.events.Publish(ctx, "audio.expired", map[string]interface{}{
			"count":  len(expired),
			"cutoff": cutoff,
		})
	}

	return len(expired), nil
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	if s.retention <= 0 || interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				observability.FromContext(ctx).Warn("audio sweep failed", observability.Error(err))
			}
		}
	}
}
