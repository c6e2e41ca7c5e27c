package pool

import (
	"errors"
	"testing"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/vitalis/resmon/internal/config"
	"github.com/Guliveer/vitalis/resmon/internal/models"
)

type counterPool struct {
	active, idle, max int
}

func (p counterPool) ActiveConnections() int { return p.active }
func (p counterPool) IdleConnections() int   { return p.idle }
func (p counterPool) MaxConnections() int    { return p.max }

type waitingPool struct {
	counterPool
	waits int64
	total time.Duration
}

func (p waitingPool) WaitCount() int64        { return p.waits }
func (p waitingPool) WaitTime() time.Duration { return p.total }

type panickyPool struct{}

func (panickyPool) ActiveConnections() int { panic("connection state corrupted") }
func (panickyPool) IdleConnections() int   { return 0 }
func (panickyPool) MaxConnections() int    { return 0 }

type failingAdapter struct{}

func (failingAdapter) Name() string          { return "failing" }
func (failingAdapter) Accepts(pool any) bool { _, ok := pool.(string); return ok }
func (failingAdapter) Extract(any) (models.PoolStats, error) {
	return models.PoolStats{}, errors.New("metrics endpoint unavailable")
}

func TestRegistry_ResolveOrder(t *testing.T) {
	r := NewDefaultRegistry()

	names := make([]string, 0)
	for _, a := range r.Adapters() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"go-redis", "go-redis-v8", "database/sql", "accessor", "fallback"}, names)

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	tests := []struct {
		name string
		pool any
		want string
	}{
		{"redis v9", redis.NewClient(&redis.Options{Addr: "localhost:6379"}), "go-redis"},
		{"redis v8", redisv8.NewClient(&redisv8.Options{Addr: "localhost:6379"}), "go-redis-v8"},
		{"sqlx wrapper", db, "database/sql"},
		{"sql.DB", db.DB, "database/sql"},
		{"counter pool", counterPool{}, "accessor"},
		{"embedded counter pool", waitingPool{}, "accessor"},
		{"unknown", struct{ Host string }{"db"}, "fallback"},
		{"nil", nil, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.pool).Name())
			// Resolution is deterministic.
			assert.Equal(t, tt.want, r.Resolve(tt.pool).Name())
		})
	}
}

func TestRegistry_StatsAccessorAtCapacity(t *testing.T) {
	r := NewDefaultRegistry()

	stats, err := r.Stats(0, Handle{Name: "orders", Pool: counterPool{active: 20, idle: 0, max: 20}})
	require.NoError(t, err)

	assert.Equal(t, "accessor", stats.Adapter)
	assert.Equal(t, "orders", stats.Name)
	assert.Equal(t, "pool.counterPool", stats.Implementation)
	require.NotNil(t, stats.Utilization)
	assert.InDelta(t, 100.0, *stats.Utilization, 1e-9)
	assert.True(t, stats.AtCapacity)
	assert.False(t, stats.Contention)
}

func TestRegistry_StatsContention(t *testing.T) {
	r := NewDefaultRegistry()
	p := waitingPool{counterPool: counterPool{active: 3, idle: 1, max: 10}, waits: 4, total: 2 * time.Second}

	stats, err := r.Stats(2, Handle{Pool: p})
	require.NoError(t, err)

	assert.Equal(t, "pool-2", stats.Label())
	assert.True(t, stats.Contention)
	require.NotNil(t, stats.Wait)
	assert.Equal(t, 500*time.Millisecond, stats.Wait.Average())
	assert.Equal(t, 4, stats.Counts.Total)
}

func TestRegistry_UnknownHandleUsesFallback(t *testing.T) {
	r := NewDefaultRegistry()

	stats, err := r.Stats(1, Handle{Name: "legacy", Pool: struct{ Host string }{"db"}})
	require.NoError(t, err)

	assert.Equal(t, "fallback", stats.Adapter)
	assert.Equal(t, "struct { Host string }", stats.Implementation)
	assert.Nil(t, stats.Counts)
	assert.Nil(t, stats.Utilization)
	assert.False(t, stats.Degraded)
}

func TestRegistry_PanickingAdapterDegrades(t *testing.T) {
	r := NewDefaultRegistry()

	stats, err := r.Stats(0, Handle{Name: "broken", Pool: panickyPool{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accessor adapter panicked")

	assert.True(t, stats.Degraded)
	assert.Equal(t, "fallback", stats.Adapter)
	assert.Equal(t, "broken", stats.Name)
	assert.Nil(t, stats.Counts)

	// A healthy pool after the broken one is unaffected.
	ok, err := r.Stats(1, Handle{Name: "healthy", Pool: counterPool{active: 1, idle: 1, max: 4}})
	require.NoError(t, err)
	assert.False(t, ok.Degraded)
	require.NotNil(t, ok.Utilization)
	assert.InDelta(t, 25.0, *ok.Utilization, 1e-9)
}

func TestRegistry_CustomAdapterError(t *testing.T) {
	r := NewRegistry(failingAdapter{})

	stats, err := r.Stats(0, Handle{Name: "custom", Pool: "conn-string"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing adapter: metrics endpoint unavailable")
	assert.True(t, stats.Degraded)
	assert.Equal(t, "metrics endpoint unavailable", errors.Unwrap(err).Error())
}

func TestSQLAdapter_SQLite(t *testing.T) {
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(4)
	require.NoError(t, db.Ping())

	stats, err := NewDefaultRegistry().Stats(0, Handle{Name: "local", Pool: db})
	require.NoError(t, err)

	assert.Equal(t, "database/sql", stats.Adapter)
	assert.Equal(t, "*sqlx.DB", stats.Implementation)
	require.NotNil(t, stats.Counts)
	assert.Equal(t, 0, stats.Counts.Active)
	assert.Equal(t, 1, stats.Counts.Idle)
	assert.Equal(t, 1, stats.Counts.Total)
	require.NotNil(t, stats.Capacity)
	assert.Equal(t, 4, *stats.Capacity)
	require.NotNil(t, stats.Utilization)
	assert.InDelta(t, 0.0, *stats.Utilization, 1e-9)
	assert.False(t, stats.Contention)
}

func TestSQLAdapter_UnlimitedHasNoCapacity(t *testing.T) {
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	stats, err := NewDefaultRegistry().Stats(0, Handle{Pool: db})
	require.NoError(t, err)
	assert.Nil(t, stats.Capacity)
	assert.Nil(t, stats.Utilization)
	assert.False(t, stats.AtCapacity)
}

func TestRedisAdapters_ReadOptions(t *testing.T) {
	v9 := redis.NewClient(&redis.Options{Addr: "localhost:6379", PoolSize: 20, PoolTimeout: 3 * time.Second})
	defer v9.Close()
	v8 := redisv8.NewClient(&redisv8.Options{Addr: "localhost:6379", PoolSize: 20, MaxConnAge: time.Hour})
	defer v8.Close()

	r := NewDefaultRegistry()

	s9, err := r.Stats(0, Handle{Name: "cache", Pool: v9})
	require.NoError(t, err)
	require.NotNil(t, s9.Capacity)
	assert.Equal(t, 20, *s9.Capacity)
	require.NotNil(t, s9.Settings)
	assert.Equal(t, 3*time.Second, s9.Settings.ConnectionTimeout)
	require.NotNil(t, s9.Counts)
	assert.Equal(t, 0, s9.Counts.Active)

	s8, err := r.Stats(1, Handle{Name: "sessions", Pool: v8})
	require.NoError(t, err)
	assert.Equal(t, "go-redis-v8", s8.Adapter)
	require.NotNil(t, s8.Capacity)
	assert.Equal(t, 20, *s8.Capacity)
	require.NotNil(t, s8.Settings)
	assert.Equal(t, time.Hour, s8.Settings.MaxLifetime)
}

func TestRedisCounts_ClampsActive(t *testing.T) {
	c := redisCounts(2, 5)
	assert.Equal(t, 0, c.Active)
	assert.Equal(t, 5, c.Idle)
	assert.Equal(t, 2, c.Total)
}

type redisV9Stats struct{ stats *redis.PoolStats }

func (p redisV9Stats) PoolStats() *redis.PoolStats { return p.stats }

type redisV8Stats struct{ stats *redisv8.PoolStats }

func (p redisV8Stats) PoolStats() *redisv8.PoolStats { return p.stats }

func TestRedisAdapter_WaitCounters(t *testing.T) {
	r := NewDefaultRegistry()

	s9, err := r.Stats(0, Handle{Pool: redisV9Stats{&redis.PoolStats{
		TotalConns:     4,
		IdleConns:      1,
		WaitCount:      3,
		WaitDurationNs: int64(300 * time.Millisecond),
		Timeouts:       0,
	}}})
	require.NoError(t, err)
	assert.Equal(t, "go-redis", s9.Adapter)
	require.NotNil(t, s9.Wait)
	assert.Equal(t, int64(3), s9.Wait.Count)
	assert.Equal(t, 300*time.Millisecond, s9.Wait.Total)
	assert.Equal(t, 100*time.Millisecond, s9.Wait.Average())
	assert.True(t, s9.Contention, "successful waits are contention")
	assert.Equal(t, 3, s9.Counts.Active)

	idle, err := r.Stats(1, Handle{Pool: redisV9Stats{&redis.PoolStats{TotalConns: 2, IdleConns: 2, Timeouts: 5}}})
	require.NoError(t, err)
	assert.False(t, idle.Contention, "v9 contention follows WaitCount")

	s8, err := r.Stats(2, Handle{Pool: redisV8Stats{&redisv8.PoolStats{TotalConns: 2, IdleConns: 1, Timeouts: 7}}})
	require.NoError(t, err)
	assert.Equal(t, "go-redis-v8", s8.Adapter)
	assert.Equal(t, int64(7), s8.Wait.Count)
	assert.Zero(t, s8.Wait.Total)
	assert.True(t, s8.Contention)
}

func TestRedisAdapter_NilStatsDegrades(t *testing.T) {
	stats, err := NewDefaultRegistry().Stats(0, Handle{Name: "cache", Pool: redisV9Stats{}})
	require.Error(t, err)
	assert.True(t, stats.Degraded)
	assert.Equal(t, "fallback", stats.Adapter)
}

func TestOpen(t *testing.T) {
	handles, closeAll, err := Open([]config.PoolConfig{
		{Name: "local", Kind: config.PoolKindSQLite, DSN: ":memory:", MaxOpen: 2},
		{Name: "cache", Kind: config.PoolKindRedis, DSN: "redis://localhost:6379/0", PoolSize: 8},
		{Name: "sessions", Kind: config.PoolKindRedisV8, Addr: "localhost:6379"},
	})
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeAll()) }()

	require.Len(t, handles, 3)
	r := NewDefaultRegistry()
	assert.Equal(t, "database/sql", r.Resolve(handles[0].Pool).Name())
	assert.Equal(t, "go-redis", r.Resolve(handles[1].Pool).Name())
	assert.Equal(t, "go-redis-v8", r.Resolve(handles[2].Pool).Name())

	cache, err := r.Stats(1, handles[1])
	require.NoError(t, err)
	require.NotNil(t, cache.Capacity)
	assert.Equal(t, 8, *cache.Capacity)
}

func TestOpen_UnknownKind(t *testing.T) {
	_, _, err := Open([]config.PoolConfig{
		{Name: "local", Kind: config.PoolKindSQLite, DSN: ":memory:"},
		{Name: "docs", Kind: "mongo", DSN: "mongodb://localhost"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docs")
}
