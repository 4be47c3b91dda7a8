// Package adapters implements the external query surface: each adapter
// resolves one or more categories by asking the platform (gopsutil, shell
// utilities, a Prometheus exporter) and parsing the answer into a typed
// record. The poller and loader see only the sysinfo.Querier interface.
package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sysdeck/agent/internal/sysinfo"
	"go.uber.org/zap"
)

// ErrorKind classifies a query failure.
type ErrorKind int

const (
	// KindUnavailable means the external tool is not present on this host.
	KindUnavailable ErrorKind = iota
	// KindTimeout means the query exceeded its deadline.
	KindTimeout
	// KindParse means the tool ran but its output could not be understood.
	KindParse
	// KindPermission means the host refused the query.
	KindPermission
	// KindUnsupported means this host can never answer the category.
	KindUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindTimeout:
		return "timeout"
	case KindParse:
		return "parse"
	case KindPermission:
		return "permission"
	case KindUnsupported:
		return "unsupported"
	}
	return "unknown"
}

// QueryError is the typed failure returned by every adapter.
type QueryError struct {
	Kind     ErrorKind
	Category sysinfo.Category
	Err      error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s query %s: %v", e.Category, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s query %s", e.Category, e.Kind)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Unsupported reports whether the host simply cannot answer this category,
// as opposed to an attempt that failed. Drives the Unknown-vs-Error sentinel
// choice downstream.
func (e *QueryError) Unsupported() bool {
	return e.Kind == KindUnsupported || e.Kind == KindUnavailable
}

func newQueryError(kind ErrorKind, cat sysinfo.Category, err error) *QueryError {
	return &QueryError{Kind: kind, Category: cat, Err: err}
}

// classify wraps an arbitrary error from an external call into a QueryError.
func classify(cat sysinfo.Category, err error) *QueryError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newQueryError(KindTimeout, cat, err)
	case isNotFound(err):
		return newQueryError(KindUnavailable, cat, err)
	case isPermission(err):
		return newQueryError(KindPermission, cat, err)
	default:
		return newQueryError(KindParse, cat, err)
	}
}

// Mux routes categories to adapters. It is itself a sysinfo.Querier.
type Mux struct {
	routes map[sysinfo.Category]sysinfo.Querier
}

// NewMux creates an empty mux.
func NewMux() *Mux {
	return &Mux{routes: make(map[sysinfo.Category]sysinfo.Querier)}
}

// Handle routes the given categories to q, replacing any previous route.
func (m *Mux) Handle(q sysinfo.Querier, cats ...sysinfo.Category) {
	for _, cat := range cats {
		m.routes[cat] = q
	}
}

// Query dispatches to the routed adapter; unrouted categories fail as
// unsupported.
func (m *Mux) Query(ctx context.Context, cat sysinfo.Category) (sysinfo.Record, error) {
	q, ok := m.routes[cat]
	if !ok {
		return nil, newQueryError(KindUnsupported, cat, fmt.Errorf("no adapter registered"))
	}
	return q.Query(ctx, cat)
}

// Options selects and configures the adapter set.
type Options struct {
	// Source chooses the volatile-metrics backend: "builtin" (default,
	// gopsutil) or "exporter" (scrape a Prometheus node/windows exporter).
	Source string
	// ExporterURL is required when Source is "exporter".
	ExporterURL string
	// PrimaryVolume is the mount point or drive reported by the disk
	// category ("C:" on Windows, "/" elsewhere).
	PrimaryVolume string
	// HTTPClient is shared by adapters that scrape over HTTP.
	HTTPClient *http.Client
}

// NewQuerier builds the full adapter mux for the agent: hardware adapter for
// static categories and storage, nvidia-smi for the GPU, and the configured
// source for the remaining volatile categories.
func NewQuerier(opts Options, logger *zap.Logger) (sysinfo.Querier, error) {
	mux := NewMux()

	hw := NewHardwareAdapter(logger)
	mux.Handle(hw,
		sysinfo.CategoryCPUStatic,
		sysinfo.CategoryMotherboard,
		sysinfo.CategoryMonitor,
		sysinfo.CategoryOS,
		sysinfo.CategoryStorage,
	)

	mux.Handle(NewNvidiaAdapter(logger), sysinfo.CategoryGPU)

	builtin := NewGopsutilAdapter(logger, opts.PrimaryVolume)
	mux.Handle(builtin,
		sysinfo.CategoryUptime,
		sysinfo.CategoryCPUUsage,
		sysinfo.CategoryCPUFreq,
		sysinfo.CategoryMemory,
		sysinfo.CategoryDisk,
	)

	switch strings.ToLower(opts.Source) {
	case "", "builtin":
		logger.Info("Using builtin metrics adapter (gopsutil)")
	case "exporter":
		if opts.ExporterURL == "" {
			return nil, fmt.Errorf("exporter_url required for exporter source")
		}
		logger.Info("Using exporter metrics adapter", zap.String("url", opts.ExporterURL))
		exp := NewExporterAdapter(opts.ExporterURL, opts.PrimaryVolume, logger, opts.HTTPClient)
		// The exporter covers usage-style metrics; uptime and clock stay on
		// the builtin adapter.
		mux.Handle(exp,
			sysinfo.CategoryCPUUsage,
			sysinfo.CategoryMemory,
			sysinfo.CategoryDisk,
		)
	default:
		return nil, fmt.Errorf("unknown metrics source: %s", opts.Source)
	}

	return mux, nil
}
