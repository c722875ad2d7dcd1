// Package id generates time-ordered int64 identifiers via Snowflake. Rules,
// subscriptions, and delivery records all share this ID space so cursors sort
// chronologically without a separate sequence per table.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	generator *snowflake.Node
	initOnce  sync.Once
)

// Init sets up the process-wide generator. Each running instance (server,
// worker) must use a distinct node ID to keep IDs unique across the fleet.
// Subsequent calls are no-ops.
func Init(nodeID int64) error {
	var err error
	initOnce.Do(func() {
		generator, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns the next identifier. Init must have been called first.
func New() int64 {
	return generator.Generate().Int64()
}
