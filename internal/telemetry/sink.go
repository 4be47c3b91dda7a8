package telemetry

import (
	"encoding/json"
	"time"

	"github.com/sysdeck/agent/internal/sysinfo"
	"go.uber.org/zap"
)

// Sink forwards bus events to JetStream, one subject per category. It runs
// entirely on the bus dispatch goroutine; the client's async publish keeps
// dispatch from blocking on the network.
type Sink struct {
	client   *Client
	logger   *zap.Logger
	deviceID string
	prefix   string
}

// NewSink creates a snapshot-publishing sink for the given device identity.
func NewSink(client *Client, logger *zap.Logger, prefix, deviceID string) *Sink {
	return &Sink{
		client:   client,
		logger:   logger,
		deviceID: deviceID,
		prefix:   prefix,
	}
}

type snapshot struct {
	DeviceID  string         `json:"device_id"`
	Category  string         `json:"category"`
	Failed    bool           `json:"failed"`
	Timestamp time.Time      `json:"timestamp"`
	Data      sysinfo.Record `json:"data"`
}

// OnUpdate implements sysinfo.Sink.
func (s *Sink) OnUpdate(ev sysinfo.Event) {
	payload, err := json.Marshal(snapshot{
		DeviceID:  s.deviceID,
		Category:  ev.Category.String(),
		Failed:    ev.Failed,
		Timestamp: ev.Timestamp,
		Data:      ev.Record,
	})
	if err != nil {
		s.logger.Error("Failed to marshal snapshot",
			zap.String("category", ev.Category.String()),
			zap.Error(err))
		return
	}

	subject := SnapshotSubject(s.prefix, s.deviceID, ev.Category.String())
	if err := s.client.Publish(subject, payload); err != nil {
		s.logger.Warn("Failed to publish snapshot",
			zap.String("subject", subject),
			zap.Error(err))
	}
}
