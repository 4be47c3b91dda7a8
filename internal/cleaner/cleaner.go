// Package cleaner implements the system cleanup operations: temp file
// removal, recycle bin emptying and working set trimming. Every result
// reports measured quantities; nothing is estimated from heuristics.
package cleaner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sysdeck/agent/internal/utils"
	"go.uber.org/zap"
)

// Options selects the optional cleanup stages. Temp cleaning always runs.
type Options struct {
	RecycleBin     bool
	OptimizeMemory bool
}

// Result accounts for one temp-directory sweep.
type Result struct {
	FilesRemoved int    `json:"files_removed"`
	DirsRemoved  int    `json:"dirs_removed"`
	BytesFreed   uint64 `json:"bytes_freed"`
	Skipped      int    `json:"skipped"`
}

// RecycleBinResult reports what the recycle bin held before it was emptied.
type RecycleBinResult struct {
	Items      int64  `json:"items"`
	BytesFreed uint64 `json:"bytes_freed"`
}

// MemoryResult reports the measured change in available memory around the
// working-set trim. Freed is clamped at zero; other processes allocate
// concurrently and can mask the gain.
type MemoryResult struct {
	BeforeAvailableGB float64 `json:"before_available_gb"`
	AfterAvailableGB  float64 `json:"after_available_gb"`
	FreedGB           float64 `json:"freed_gb"`
	ProcessesTrimmed  int     `json:"processes_trimmed"`
}

// Summary aggregates all stages of one cleanup run.
type Summary struct {
	Temp       Result            `json:"temp"`
	RecycleBin *RecycleBinResult `json:"recycle_bin,omitempty"`
	Memory     *MemoryResult     `json:"memory,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
	Duration   string            `json:"duration"`
}

// Cleaner performs cleanup runs over the configured temp directories.
type Cleaner struct {
	logger   *zap.Logger
	tempDirs []string
}

func New(logger *zap.Logger, tempDirs []string) *Cleaner {
	return &Cleaner{
		logger:   logger,
		tempDirs: tempDirs,
	}
}

// Run executes a full cleanup pass. Stage failures are collected into the
// summary rather than aborting the run.
func (c *Cleaner) Run(ctx context.Context, opts Options) Summary {
	start := time.Now()
	summary := Summary{}

	summary.Temp = c.CleanTemp(ctx)

	if opts.RecycleBin {
		rb, err := c.EmptyRecycleBin()
		if err != nil {
			c.logger.Warn("Recycle bin cleanup failed", zap.Error(err))
			summary.Errors = append(summary.Errors, "recycle bin: "+err.Error())
		} else {
			summary.RecycleBin = rb
		}
	}

	if opts.OptimizeMemory {
		mem, err := c.OptimizeMemory(ctx)
		if err != nil {
			c.logger.Warn("Memory optimization failed", zap.Error(err))
			summary.Errors = append(summary.Errors, "memory: "+err.Error())
		} else {
			summary.Memory = mem
		}
	}

	summary.Duration = time.Since(start).Round(time.Millisecond).String()

	c.logger.Info("Cleanup run completed",
		zap.Int("files_removed", summary.Temp.FilesRemoved),
		zap.String("freed", humanize.IBytes(summary.Temp.BytesFreed)),
		zap.Int("skipped", summary.Temp.Skipped),
		zap.String("duration", summary.Duration))

	return summary
}

// CleanTemp deletes the contents of every configured temp directory. Files
// that cannot be removed (typically held open by another process) are
// counted as skipped. The directories themselves are kept.
func (c *Cleaner) CleanTemp(ctx context.Context) Result {
	res := Result{}

	for _, dir := range c.tempDirs {
		if dir == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return res
		default:
		}

		if _, err := os.Stat(dir); err != nil {
			c.logger.Debug("Temp directory not accessible, skipping",
				zap.String("dir", dir), zap.Error(err))
			continue
		}

		c.cleanDir(ctx, dir, &res)
	}

	return res
}

func (c *Cleaner) cleanDir(ctx context.Context, root string, res *Result) {
	var subdirs []string

	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			res.Skipped++
			return nil
		}
		if path == root {
			return nil
		}
		if d.IsDir() {
			subdirs = append(subdirs, path)
			return nil
		}

		info, err := d.Info()
		if err != nil {
			res.Skipped++
			return nil
		}
		size := uint64(info.Size())

		if err := os.Remove(path); err != nil {
			// Held open by another process, or permission denied.
			res.Skipped++
			return nil
		}
		res.FilesRemoved++
		res.BytesFreed += size
		return nil
	})

	// Deepest first so emptied parents can be removed too.
	sort.Slice(subdirs, func(i, j int) bool { return len(subdirs[i]) > len(subdirs[j]) })
	for _, dir := range subdirs {
		if err := os.Remove(dir); err == nil {
			res.DirsRemoved++
		}
	}
}

func bytesToGB(b uint64) float64 {
	return utils.Round(float64(b) / 1024 / 1024 / 1024)
}
