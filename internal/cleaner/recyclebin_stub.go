//go:build !windows

package cleaner

import "fmt"

// EmptyRecycleBin is Windows-only; other platforms have no shell recycle
// bin to manage.
func (c *Cleaner) EmptyRecycleBin() (*RecycleBinResult, error) {
	return nil, fmt.Errorf("recycle bin cleanup not supported on this platform")
}
