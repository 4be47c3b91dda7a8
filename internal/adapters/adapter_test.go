package adapters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/sysdeck/agent/internal/sysinfo"
	"go.uber.org/zap"
)

func TestQueryErrorUnsupported(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want bool
	}{
		{KindUnsupported, true},
		{KindUnavailable, true},
		{KindTimeout, false},
		{KindParse, false},
		{KindPermission, false},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := newQueryError(tt.kind, sysinfo.CategoryGPU, errors.New("boom"))
			if got := err.Unsupported(); got != tt.want {
				t.Errorf("Unsupported() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQueryErrorWrapsCause(t *testing.T) {
	cause := errors.New("underlying failure")
	err := newQueryError(KindParse, sysinfo.CategoryMemory, cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is does not find the cause")
	}
	if !strings.Contains(err.Error(), "memory") || !strings.Contains(err.Error(), "parse") {
		t.Errorf("Error() = %q, want category and kind", err.Error())
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), KindTimeout},
		{"binary missing", exec.ErrNotFound, KindUnavailable},
		{"file missing", os.ErrNotExist, KindUnavailable},
		{"permission", os.ErrPermission, KindPermission},
		{"anything else", errors.New("garbled output"), KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qe := classify(sysinfo.CategoryDisk, tt.err)
			if qe.Kind != tt.want {
				t.Errorf("classify() kind = %s, want %s", qe.Kind, tt.want)
			}
			if qe.Category != sysinfo.CategoryDisk {
				t.Errorf("classify() category = %s", qe.Category)
			}
		})
	}
}

// staticAnswer is a Querier returning a fixed record.
type staticAnswer struct {
	rec sysinfo.Record
}

func (s staticAnswer) Query(_ context.Context, _ sysinfo.Category) (sysinfo.Record, error) {
	return s.rec, nil
}

func TestMuxRoutesAndRejects(t *testing.T) {
	mux := NewMux()
	mux.Handle(staticAnswer{rec: sysinfo.Uptime{Seconds: 1}}, sysinfo.CategoryUptime)

	rec, err := mux.Query(context.Background(), sysinfo.CategoryUptime)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if rec.Kind() != sysinfo.CategoryUptime {
		t.Errorf("Kind() = %s", rec.Kind())
	}

	_, err = mux.Query(context.Background(), sysinfo.CategoryGPU)
	var qe *QueryError
	if !errors.As(err, &qe) || qe.Kind != KindUnsupported {
		t.Errorf("unrouted category error = %v, want unsupported QueryError", err)
	}
}

func TestNewQuerierSourceValidation(t *testing.T) {
	logger := zap.NewNop()

	if _, err := NewQuerier(Options{Source: "builtin"}, logger); err != nil {
		t.Errorf("builtin source error = %v", err)
	}
	if _, err := NewQuerier(Options{}, logger); err != nil {
		t.Errorf("empty source error = %v", err)
	}
	if _, err := NewQuerier(Options{Source: "exporter"}, logger); err == nil {
		t.Error("exporter source without URL did not fail")
	}
	if _, err := NewQuerier(Options{Source: "exporter", ExporterURL: "http://localhost:9182/metrics"}, logger); err != nil {
		t.Errorf("exporter source with URL error = %v", err)
	}
	if _, err := NewQuerier(Options{Source: "wmi"}, logger); err == nil {
		t.Error("unknown source did not fail")
	}
}
