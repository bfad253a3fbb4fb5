package profilecache

import (
	"context"
	"time"
)

// Cache holds display names keyed by user id so profile lookups skip the
// database on repeat requests. Entries are dropped on logout.
type Cache interface {
	Get(ctx context.Context, userID string) (string, bool, error)
	Set(ctx context.Context, userID string, displayName string, ttl time.Duration) error
	Invalidate(ctx context.Context, userID string) error
}

type Noop struct{}

func (Noop) Get(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func (Noop) Set(_ context.Context, _ string, _ string, _ time.Duration) error {
	return nil
}

func (Noop) Invalidate(_ context.Context, _ string) error {
	return nil
}
