// Package store provides SampleStore implementations: a durable SQLite
// store for production and an in-memory store for tests. Both honor the
// occupancy.Store contract, including duplicate-timestamp rejection.
package store

import (
	"github.com/poolwatch/poolwatch/internal/occupancy"
)

var (
	_ occupancy.Store = (*SQLite)(nil)
	_ occupancy.Store = (*MemoryStore)(nil)
)
