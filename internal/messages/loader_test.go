package messages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	records []Record
	err     error
	calls   int
}

func (s *stubFetcher) FetchAll(context.Context) ([]Record, error) {
	s.calls++
	return s.records, s.err
}

func TestLoader(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fresh := []Record{{ID: "new", UserName: "Armand Dupont", Text: "fresh"}}

	tests := []struct {
		name        string
		cached      []Record
		cachedAge   time.Duration
		ttl         time.Duration
		force       bool
		fetchErr    error
		wantFetches int
		want        []Record
		wantErr     bool
	}{
		{name: "empty cache fetches", wantFetches: 1, ttl: time.Hour, want: fresh},
		{name: "fresh cache served", cached: sampleRecords(), cachedAge: time.Minute, ttl: time.Hour, want: sampleRecords()},
		{name: "expired cache refetches", cached: sampleRecords(), cachedAge: 2 * time.Hour, ttl: time.Hour, wantFetches: 1, want: fresh},
		{name: "zero ttl never expires", cached: sampleRecords(), cachedAge: 1000 * time.Hour, want: sampleRecords()},
		{name: "force refetches", cached: sampleRecords(), ttl: time.Hour, force: true, wantFetches: 1, want: fresh},
		{name: "fetch failure serves stale", cached: sampleRecords(), cachedAge: 2 * time.Hour, ttl: time.Hour, fetchErr: errors.New("down"), wantFetches: 1, want: sampleRecords()},
		{name: "fetch failure without cache", ttl: time.Hour, fetchErr: errors.New("down"), wantFetches: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cache := newMemCache(t)
			if tt.cached != nil {
				require.NoError(t, cache.Store(ctx, tt.cached, base.Add(-tt.cachedAge)))
			}

			f := &stubFetcher{records: fresh, err: tt.fetchErr}
			l := NewLoader(f, cache, tt.ttl, nil)
			l.now = func() time.Time { return base }

			got, err := l.Load(ctx, tt.force)
			assert.Equal(t, tt.wantFetches, f.calls)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoader_FetchWritesThroughCache(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache(t)
	f := &stubFetcher{records: sampleRecords()}

	l := NewLoader(f, cache, time.Hour, nil)
	_, err := l.Load(ctx, false)
	require.NoError(t, err)

	got, _, err := cache.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRecords(), got)

	_, err = l.Load(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls)
}
