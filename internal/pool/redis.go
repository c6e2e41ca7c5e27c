package pool

import (
	"errors"
	"time"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/redis/go-redis/v9"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

var errNilPoolStats = errors.New("client returned nil pool stats")

type redisPool interface {
	PoolStats() *redis.PoolStats
}

type redisOptions interface {
	Options() *redis.Options
}

type redisClusterOptions interface {
	Options() *redis.ClusterOptions
}

// RedisAdapter handles go-redis v9 clients: *redis.Client, *redis.ClusterClient,
// *redis.Ring and anything embedding them. Wait count and wait time come
// from the pool's WaitCount and WaitDurationNs counters.
type RedisAdapter struct{}

// Name returns the adapter identifier.
func (RedisAdapter) Name() string { return "go-redis" }

// Accepts reports whether the handle exposes v9 pool statistics.
func (RedisAdapter) Accepts(pool any) bool {
	_, ok := pool.(redisPool)
	return ok
}

// Extract reads pool counters and, for single-node clients, the pool size
// and timeouts.
func (RedisAdapter) Extract(pool any) (models.PoolStats, error) {
	st := pool.(redisPool).PoolStats()
	if st == nil {
		return models.PoolStats{}, errNilPoolStats
	}
	out := models.PoolStats{
		Counts: redisCounts(st.TotalConns, st.IdleConns),
		Wait: &models.WaitStats{
			Count: int64(st.WaitCount),
			Total: time.Duration(st.WaitDurationNs),
		},
	}

	switch c := pool.(type) {
	case redisOptions:
		if o := c.Options(); o != nil {
			out.Capacity = intPtr(o.PoolSize)
			out.Settings = &models.PoolSettings{
				ConnectionTimeout: o.PoolTimeout,
				IdleTimeout:       o.ConnMaxIdleTime,
				MaxLifetime:       o.ConnMaxLifetime,
			}
		}
	case redisClusterOptions:
		// PoolSize is per node; the cluster-wide bound is unknown.
		if o := c.Options(); o != nil {
			out.Settings = &models.PoolSettings{
				ConnectionTimeout: o.PoolTimeout,
				IdleTimeout:       o.ConnMaxIdleTime,
				MaxLifetime:       o.ConnMaxLifetime,
			}
		}
	}
	return out, nil
}

type redisV8Pool interface {
	PoolStats() *redisv8.PoolStats
}

type redisV8Options interface {
	Options() *redisv8.Options
}

type redisV8ClusterOptions interface {
	Options() *redisv8.ClusterOptions
}

// RedisV8Adapter handles legacy go-redis v8 clients. The v8 pool does not
// count successful waits, so the wait count is the number of pool wait
// timeouts and the wait time is unknown.
type RedisV8Adapter struct{}

// Name returns the adapter identifier.
func (RedisV8Adapter) Name() string { return "go-redis-v8" }

// Accepts reports whether the handle exposes v8 pool statistics.
func (RedisV8Adapter) Accepts(pool any) bool {
	_, ok := pool.(redisV8Pool)
	return ok
}

// Extract reads pool counters and, for single-node clients, the pool size
// and timeouts.
func (RedisV8Adapter) Extract(pool any) (models.PoolStats, error) {
	st := pool.(redisV8Pool).PoolStats()
	if st == nil {
		return models.PoolStats{}, errNilPoolStats
	}
	out := models.PoolStats{
		Counts: redisCounts(st.TotalConns, st.IdleConns),
		Wait:   &models.WaitStats{Count: int64(st.Timeouts)},
	}

	switch c := pool.(type) {
	case redisV8Options:
		if o := c.Options(); o != nil {
			out.Capacity = intPtr(o.PoolSize)
			out.Settings = &models.PoolSettings{
				ConnectionTimeout: o.PoolTimeout,
				IdleTimeout:       o.IdleTimeout,
				MaxLifetime:       o.MaxConnAge,
			}
		}
	case redisV8ClusterOptions:
		if o := c.Options(); o != nil {
			out.Settings = &models.PoolSettings{
				ConnectionTimeout: o.PoolTimeout,
				IdleTimeout:       o.IdleTimeout,
				MaxLifetime:       o.MaxConnAge,
			}
		}
	}
	return out, nil
}

// redisCounts derives active connections; go-redis reports total and idle
// only, and idle may briefly exceed total while connections are reaped.
func redisCounts(total, idle uint32) *models.PoolCounts {
	active := int(total) - int(idle)
	if active < 0 {
		active = 0
	}
	return &models.PoolCounts{
		Active: active,
		Idle:   int(idle),
		Total:  int(total),
	}
}
