package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sysdeck/agent/internal/cleaner"
	"github.com/sysdeck/agent/internal/sysinfo"
	"github.com/sysdeck/agent/internal/utils"
	"go.uber.org/zap"
)

// RefreshFunc invalidates the static hardware cache and reloads it.
type RefreshFunc func(ctx context.Context)

// CommandHandlers serves the remote command subjects for this device.
type CommandHandlers struct {
	logger   *zap.Logger
	deviceID string
	prefix   string
	version  string

	client    *Client
	cleaner   *cleaner.Cleaner
	refresh   RefreshFunc
	startedAt time.Time
}

// NewCommandHandlers creates the command handler set. The cleaner may be nil
// when cleanup is disabled; the clean command then reports an error.
func NewCommandHandlers(logger *zap.Logger, client *Client, cl *cleaner.Cleaner, refresh RefreshFunc, prefix, deviceID, version string) *CommandHandlers {
	return &CommandHandlers{
		logger:    logger,
		deviceID:  deviceID,
		prefix:    prefix,
		version:   version,
		client:    client,
		cleaner:   cl,
		refresh:   refresh,
		startedAt: time.Now(),
	}
}

// handleWithRecovery wraps a handler with panic recovery so one bad command
// cannot take down the agent.
func (h *CommandHandlers) handleWithRecovery(name string, handler nats.MsgHandler) nats.MsgHandler {
	return func(msg *nats.Msg) {
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("command handler panicked",
					zap.String("handler", name),
					zap.String("subject", msg.Subject),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())))
				h.respondError(msg, fmt.Sprintf("internal error: %v", r))
			}
		}()

		handler(msg)
	}
}

// SubscribeAll subscribes to every command subject for this device.
func (h *CommandHandlers) SubscribeAll() error {
	subjects := []struct {
		name    string
		handler nats.MsgHandler
	}{
		{"ping", h.handlePing},
		{"refresh", h.handleRefresh},
		{"clean", h.handleClean},
		{"health", h.handleHealth},
	}

	for _, s := range subjects {
		subject := CommandSubject(h.prefix, h.deviceID, s.name)
		if _, err := h.client.Subscribe(subject, h.handleWithRecovery(s.name, s.handler)); err != nil {
			return err
		}
	}
	return nil
}

type pingResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

type refreshResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type cleanRequest struct {
	RecycleBin     bool `json:"recycle_bin"`
	OptimizeMemory bool `json:"optimize_memory"`
}

type cleanResponse struct {
	Status    string           `json:"status"`
	Summary   *cleaner.Summary `json:"summary,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp string           `json:"timestamp"`
}

type healthResponse struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	Uptime         string  `json:"uptime"`
	MemoryUsageMB  float64 `json:"memory_usage_mb"`
	Goroutines     int     `json:"goroutines"`
	NATSConnected  bool    `json:"nats_connected"`
	NATSReconnects uint64  `json:"nats_reconnects"`
	Timestamp      string  `json:"timestamp"`
}

type errorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func (h *CommandHandlers) handlePing(msg *nats.Msg) {
	h.logger.Debug("ping command received")

	response := pingResponse{
		Status:    "pong",
		Version:   h.version,
		Timestamp: timestamp(),
	}

	responseBytes, _ := json.Marshal(response)
	msg.Respond(responseBytes)
}

// handleRefresh invalidates the static hardware cache and reloads it so the
// next snapshots reflect hardware changes.
func (h *CommandHandlers) handleRefresh(msg *nats.Msg) {
	h.logger.Info("refresh command received")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	h.refresh(ctx)

	response := refreshResponse{
		Status:    "success",
		Timestamp: timestamp(),
	}
	responseBytes, _ := json.Marshal(response)
	msg.Respond(responseBytes)
}

func (h *CommandHandlers) handleClean(msg *nats.Msg) {
	h.logger.Info("clean command received")

	if h.cleaner == nil {
		h.respondError(msg, "cleaner is disabled on this agent")
		return
	}

	var req cleanRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			h.respondError(msg, "invalid clean request payload")
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary := h.cleaner.Run(ctx, cleaner.Options{
		RecycleBin:     req.RecycleBin,
		OptimizeMemory: req.OptimizeMemory,
	})

	response := cleanResponse{
		Status:    "success",
		Summary:   &summary,
		Timestamp: timestamp(),
	}
	responseBytes, _ := json.Marshal(response)
	msg.Respond(responseBytes)

	h.logger.Info("clean command completed",
		zap.Int("files_removed", summary.Temp.FilesRemoved),
		zap.Uint64("bytes_freed", summary.Temp.BytesFreed))
}

func (h *CommandHandlers) handleHealth(msg *nats.Msg) {
	h.logger.Debug("health command received")

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := h.client.Stats()
	response := healthResponse{
		Status:         "healthy",
		Version:        h.version,
		Uptime:         sysinfo.FormatUptime(time.Since(h.startedAt)),
		MemoryUsageMB:  utils.Round(float64(memStats.Alloc) / 1024 / 1024),
		Goroutines:     runtime.NumGoroutine(),
		NATSConnected:  h.client.IsConnected(),
		NATSReconnects: stats.Reconnects,
		Timestamp:      timestamp(),
	}

	responseBytes, _ := json.Marshal(response)
	msg.Respond(responseBytes)
}

func (h *CommandHandlers) respondError(msg *nats.Msg, errorMsg string) {
	response := errorResponse{
		Status:    "error",
		Error:     errorMsg,
		Timestamp: timestamp(),
	}
	responseBytes, _ := json.Marshal(response)
	msg.Respond(responseBytes)
}
