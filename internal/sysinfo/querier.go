package sysinfo

import (
	"context"
	"errors"
)

// Querier answers a single category query within the deadline carried by ctx.
// Implementations live in the adapters package; the loader and poller never
// depend on the underlying query mechanism.
type Querier interface {
	Query(ctx context.Context, cat Category) (Record, error)
}

// unsupporter is implemented by query errors that mean the host simply cannot
// answer (feature absent, tool not installed) rather than a failed attempt.
type unsupporter interface {
	Unsupported() bool
}

// sentinelText maps a query error to the placeholder text for the emitted
// record: "Unknown" when the host cannot answer, "Error" for real failures.
func sentinelText(err error) string {
	var u unsupporter
	if errors.As(err, &u) && u.Unsupported() {
		return ValueUnknown
	}
	return ValueError
}
