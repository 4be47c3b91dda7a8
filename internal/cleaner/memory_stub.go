//go:build !windows

package cleaner

import (
	"context"
	"fmt"
)

// OptimizeMemory is Windows-only; the kernel manages reclaim elsewhere.
func (c *Cleaner) OptimizeMemory(_ context.Context) (*MemoryResult, error) {
	return nil, fmt.Errorf("memory optimization not supported on this platform")
}
