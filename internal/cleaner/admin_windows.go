//go:build windows

package cleaner

import "golang.org/x/sys/windows"

// IsElevated reports whether the agent runs with administrator rights.
// Cleanup works without elevation, just over a smaller set of targets.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
