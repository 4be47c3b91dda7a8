//go:build !windows && !linux

package adapters

import (
	"context"
	"fmt"

	"github.com/sysdeck/agent/internal/sysinfo"
)

func (a *HardwareAdapter) query(_ context.Context, cat sysinfo.Category) (sysinfo.Record, error) {
	return nil, newQueryError(KindUnsupported, cat, fmt.Errorf("hardware queries not supported on this platform"))
}
