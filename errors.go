package treesearch

import (
	"errors"
	"fmt"
)

// ErrNodeNotFound is returned by a TreeResolver when an indexed path does not
// resolve to an accessible node.
var ErrNodeNotFound = errors.New("node not found")

// QueryBuildingError is returned when a query cannot be constructed, for
// instance because of an unsupported clause or match type, or because an
// aggregation path does not exist.
type QueryBuildingError struct {
	Op     string
	Reason string
}

func (e *QueryBuildingError) Error() string {
	return fmt.Sprintf("query building failed in %s: %s", e.Op, e.Reason)
}

func buildingError(op, format string, args ...any) error {
	return &QueryBuildingError{Op: op, Reason: fmt.Sprintf(format, args...)}
}

// BackendError describes an error response returned by Elasticsearch.
type BackendError struct {
	Status int
	Type   string
	Reason string
}

func (e *BackendError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("elasticsearch returned status %d: %s", e.Status, e.Reason)
	}
	return fmt.Sprintf("elasticsearch returned status %d (%s): %s", e.Status, e.Type, e.Reason)
}
