package adapters

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sysdeck/agent/internal/sysinfo"
	"github.com/sysdeck/agent/internal/utils"
	"go.uber.org/zap"
)

const nvidiaQueryFields = "name,utilization.gpu,memory.used,memory.total,temperature.gpu"

// NvidiaAdapter resolves the GPU category by invoking nvidia-smi. A host
// without the tool reports a valid not-available record rather than an error,
// so the result is cached and the missing binary is not probed every window.
type NvidiaAdapter struct {
	logger *zap.Logger
}

func NewNvidiaAdapter(logger *zap.Logger) *NvidiaAdapter {
	return &NvidiaAdapter{logger: logger}
}

func (a *NvidiaAdapter) Query(ctx context.Context, cat sysinfo.Category) (sysinfo.Record, error) {
	if cat != sysinfo.CategoryGPU {
		return nil, newQueryError(KindUnsupported, cat, fmt.Errorf("nvidia adapter handles gpu only"))
	}

	out, err := runCommand(ctx, "nvidia-smi",
		"--query-gpu="+nvidiaQueryFields,
		"--format=csv,noheader,nounits")
	if err != nil {
		if isNotFound(err) {
			a.logger.Debug("nvidia-smi not present on this host")
			return sysinfo.GPU{Available: false, Name: "No NVIDIA GPU detected"}, nil
		}
		return nil, classify(cat, err)
	}

	gpu, err := parseNvidiaCSV(out)
	if err != nil {
		return nil, newQueryError(KindParse, cat, err)
	}
	return gpu, nil
}

// parseNvidiaCSV parses one line of nvidia-smi CSV output. Multi-GPU hosts
// report the first device, matching the single-panel presentation.
func parseNvidiaCSV(out string) (sysinfo.GPU, error) {
	line := out
	if idx := strings.IndexByte(out, '\n'); idx >= 0 {
		line = out[:idx]
	}

	fields := strings.Split(line, ", ")
	if len(fields) < 5 {
		return sysinfo.GPU{}, fmt.Errorf("expected 5 fields, got %d in %q", len(fields), line)
	}

	util, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return sysinfo.GPU{}, fmt.Errorf("utilization: %w", err)
	}
	memUsedMB, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return sysinfo.GPU{}, fmt.Errorf("memory.used: %w", err)
	}
	memTotalMB, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return sysinfo.GPU{}, fmt.Errorf("memory.total: %w", err)
	}
	temp, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64)
	if err != nil {
		return sysinfo.GPU{}, fmt.Errorf("temperature: %w", err)
	}

	return sysinfo.GPU{
		Available:     true,
		Name:          strings.TrimSpace(fields[0]),
		Utilization:   util,
		MemoryUsedGB:  utils.Round(memUsedMB / 1024),
		MemoryTotalGB: utils.Round(memTotalMB / 1024),
		TemperatureC:  temp,
	}, nil
}
