package crawler

import (
	"errors"
	"fmt"
)

// ErrCycle is reported when a block id is reached a second time in the same
// flatten pass.
var ErrCycle = errors.New("block tree cycle detected")

// AnomalyError describes a structural anomaly of the remote tree.
type AnomalyError struct {
	// NodeID is the block that triggered the anomaly.
	NodeID string

	// ParentID is the block whose child list contained NodeID.
	ParentID string

	// Err is the anomaly kind, e.g. ErrCycle.
	Err error
}

// Error implements error.
func (e *AnomalyError) Error() string {
	return fmt.Sprintf("%v: block %s under %s", e.Err, e.NodeID, e.ParentID)
}

// Unwrap returns the anomaly kind.
func (e *AnomalyError) Unwrap() error {
	return e.Err
}
