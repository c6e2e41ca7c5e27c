package pool

import (
	"database/sql"

	"github.com/Guliveer/vitalis/resmon/internal/models"
)

type sqlPool interface {
	Stats() sql.DBStats
}

// SQLAdapter handles database/sql pools of any driver, including wrappers
// such as *sqlx.DB that embed *sql.DB.
type SQLAdapter struct{}

// Name returns the adapter identifier.
func (SQLAdapter) Name() string { return "database/sql" }

// Accepts reports whether the handle exposes sql.DBStats.
func (SQLAdapter) Accepts(pool any) bool {
	_, ok := pool.(sqlPool)
	return ok
}

// Extract maps sql.DBStats. A MaxOpenConnections of zero means unlimited,
// which leaves the capacity unknown.
func (SQLAdapter) Extract(pool any) (models.PoolStats, error) {
	st := pool.(sqlPool).Stats()

	out := models.PoolStats{
		Counts: &models.PoolCounts{
			Active: st.InUse,
			Idle:   st.Idle,
			Total:  st.OpenConnections,
		},
		Wait: &models.WaitStats{
			Count: st.WaitCount,
			Total: st.WaitDuration,
		},
	}
	if st.MaxOpenConnections > 0 {
		out.Capacity = intPtr(st.MaxOpenConnections)
	}
	return out, nil
}
