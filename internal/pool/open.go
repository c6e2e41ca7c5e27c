package pool

import (
	"fmt"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"

	"github.com/Guliveer/vitalis/resmon/internal/config"
)

// Open creates the pools described by cfgs. Connections are established
// lazily by the drivers, so Open does not contact the servers. The returned
// close function closes every opened pool. On error, pools opened so far
// are closed before returning.
func Open(cfgs []config.PoolConfig) ([]Handle, func() error, error) {
	handles := make([]Handle, 0, len(cfgs))
	closers := make([]func() error, 0, len(cfgs))

	closeAll := func() error {
		var err error
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i]())
		}
		return err
	}

	for i, c := range cfgs {
		pool, closer, err := open(c)
		if err != nil {
			_ = closeAll()
			return nil, nil, fmt.Errorf("opening pool %d (%s): %w", i, c.Name, err)
		}
		handles = append(handles, Handle{Name: c.Name, Pool: pool})
		closers = append(closers, closer)
	}
	return handles, closeAll, nil
}

func open(c config.PoolConfig) (any, func() error, error) {
	switch c.Kind {
	case config.PoolKindPostgres, config.PoolKindSQLite:
		db, err := sqlx.Open(c.Kind, c.DSN)
		if err != nil {
			return nil, nil, err
		}
		if c.MaxOpen > 0 {
			db.SetMaxOpenConns(c.MaxOpen)
		}
		return db, db.Close, nil

	case config.PoolKindRedis:
		opts := &redis.Options{Addr: c.Addr}
		if c.DSN != "" {
			parsed, err := redis.ParseURL(c.DSN)
			if err != nil {
				return nil, nil, err
			}
			opts = parsed
		}
		if c.PoolSize > 0 {
			opts.PoolSize = c.PoolSize
		}
		client := redis.NewClient(opts)
		return client, client.Close, nil

	case config.PoolKindRedisV8:
		opts := &redisv8.Options{Addr: c.Addr}
		if c.DSN != "" {
			parsed, err := redisv8.ParseURL(c.DSN)
			if err != nil {
				return nil, nil, err
			}
			opts = parsed
		}
		if c.PoolSize > 0 {
			opts.PoolSize = c.PoolSize
		}
		client := redisv8.NewClient(opts)
		return client, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown pool kind %q", c.Kind)
}
