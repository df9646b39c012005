// Package redis keeps the audio retention ledger in a Redis sorted set so
// relay instances sharing one audio volume agree on what has expired.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidbz/voxrelay/internal/observability"
)

// Ledger implements domain.AudioLedger. Members are file names scored by
// their write time in unix milliseconds.
type Ledger struct {
	client *redis.Client
	key    string
}

// NewLedger creates a Redis-backed ledger and checks connectivity.
func NewLedger(ctx context.Context, client *redis.Client, key string) (*Ledger, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if key == "" {
		return nil, errors.New("ledger key cannot be empty")
	}

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Ledger{
		client: client,
		key:    key,
	}, nil
}

// Record notes that filename was written at at.
func (l *Ledger) Record(ctx context.Context, filename string, at time.Time) error {
	err := l.client.ZAdd(ctx, l.key, redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: filename,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", filename, err)
	}
	return nil
}

// Expired lists files written strictly before cutoff, oldest first.
func (l *Ledger) Expired(ctx context.Context, cutoff time.Time) ([]string, error) {
	filenames, err := l.client.ZRangeByScore(ctx, l.key, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to query expired audio: %w", err)
	}

	observability.FromContext(ctx).Debug("redis ledger queried",
		observability.String("key", l.key),
		observability.Int("expired", len(filenames)))

	return filenames, nil
}

// Forget drops filenames from the ledger.
func (l *Ledger) Forget(ctx context.Context, filenames ...string) error {
	if len(filenames) == 0 {
		return nil
	}

	members := make([]interface{}, len(filenames))
	for i, filename := range filenames {
		members[i] = filename
	}

	pipe := l.client.Pipeline()
	pipe.ZRem(ctx, l.key, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to forget audio: %w", err)
	}

	return nil
}
