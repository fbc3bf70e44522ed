package discord

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestFetchByIDPrefersCache(t *testing.T) {
	cached := &Channel{ID: 7}
	apiCalled := false
	got := FetchByID(context.Background(), 7,
		func(int64) *Channel { return cached },
		func(context.Context, int64) (*Channel, error) {
			apiCalled = true
			return nil, nil
		},
		zap.NewNop())
	if got != cached {
		t.Fatalf("expected cached channel, got %+v", got)
	}
	if apiCalled {
		t.Fatal("expected API to be skipped on cache hit")
	}
}

func TestFetchByIDFallsBackToAPI(t *testing.T) {
	fetched := &Channel{ID: 7}
	got := FetchByID(context.Background(), 7,
		func(int64) *Channel { return nil },
		func(context.Context, int64) (*Channel, error) { return fetched, nil },
		zap.NewNop())
	if got != fetched {
		t.Fatalf("expected fetched channel, got %+v", got)
	}
}

func TestFetchByIDSwallowsErrorsIntoNil(t *testing.T) {
	got := FetchByID(context.Background(), 7,
		func(int64) *Channel { return nil },
		func(context.Context, int64) (*Channel, error) { return nil, ErrNotFound },
		zap.NewNop())
	if got != nil {
		t.Fatalf("expected nil on not found, got %+v", got)
	}

	got = FetchByID(context.Background(), 7,
		func(int64) *Channel { return nil },
		func(context.Context, int64) (*Channel, error) { return nil, errors.New("timeout") },
		zap.NewNop())
	if got != nil {
		t.Fatalf("expected nil on transient error, got %+v", got)
	}
}
