package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-invigilation-api/pkg/errors"
)

type cacheRepoStub struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	deleted []string
}

func newCacheRepoStub() *cacheRepoStub {
	return &cacheRepoStub{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (r *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	if r.getErr != nil {
		return r.getErr
	}
	raw, ok := r.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (r *cacheRepoStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.data[key] = raw
	r.ttls[key] = ttl
	return nil
}

func (r *cacheRepoStub) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range r.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(r.data, key)
			r.deleted = append(r.deleted, key)
		}
	}
	return nil
}

func TestCacheServiceRoundTripAndMetrics(t *testing.T) {
	repo := newCacheRepoStub()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, zap.NewNop(), true)

	key := RunCacheKey("abc")
	hit, err := svc.Get(context.Background(), key, &map[string]int{})
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), key, map[string]int{"assignments": 4}, 0))
	assert.Equal(t, time.Minute, repo.ttls[key])

	var got map[string]int
	hit, err = svc.Get(context.Background(), key, &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 4, got["assignments"])

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.CacheHits)
	assert.Equal(t, uint64(1), snapshot.CacheMisses)
}

func TestCacheServiceBackendErrorsAreMisses(t *testing.T) {
	repo := newCacheRepoStub()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, 0, nil, true)

	hit, err := svc.Get(context.Background(), RunCacheKey("abc"), &map[string]int{})
	assert.False(t, hit)
	assert.Error(t, err)
}

func TestCacheServiceInvalidatePatterns(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)
	ctx := context.Background()
	require.NoError(t, svc.Set(ctx, RunCacheKey("a"), 1, 0))
	require.NoError(t, svc.Set(ctx, ProposalCacheKey("p1"), 2, 0))
	require.NoError(t, svc.Set(ctx, ProposalCacheKey("p2"), 3, 0))

	require.NoError(t, svc.Invalidate(ctx, ProposalCacheKey("p1")))
	assert.Equal(t, []string{"invigilation:proposal:p1"}, repo.deleted)

	require.NoError(t, svc.Invalidate(ctx, CachePattern("")))
	assert.Empty(t, repo.data)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newCacheRepoStub()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)
	assert.False(t, svc.Enabled())
	require.NoError(t, svc.Set(context.Background(), RunCacheKey("a"), 1, 0))
	assert.Empty(t, repo.data)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.False(t, NewCacheService(nil, nil, 0, nil, true).Enabled())
}
