package adapters

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/sysdeck/agent/internal/sysinfo"
	"github.com/sysdeck/agent/internal/utils"
	"go.uber.org/zap"
)

// ExporterAdapter resolves CPU usage, memory and disk by scraping a
// Prometheus node_exporter or windows_exporter endpoint. CPU usage is
// computed from the delta of cumulative CPU-time counters between scrapes;
// the first scrape establishes a baseline and reports 0.
type ExporterAdapter struct {
	url           string
	primaryVolume string
	names         exporterNames
	logger        *zap.Logger
	httpClient    *http.Client

	mu           sync.Mutex
	lastCPUTotal float64
	lastCPUIdle  float64
	hasBaseline  bool
}

// NewExporterAdapter creates an exporter-backed adapter. A nil httpClient
// falls back to a client tuned for localhost scraping.
func NewExporterAdapter(url, primaryVolume string, logger *zap.Logger, httpClient *http.Client) *ExporterAdapter {
	if httpClient == nil {
		httpClient = NewScrapeClient()
	}
	if primaryVolume == "" {
		if runtime.GOOS == "windows" {
			primaryVolume = "C:"
		} else {
			primaryVolume = "/"
		}
	}
	return &ExporterAdapter{
		url:           url,
		primaryVolume: primaryVolume,
		names:         namesForPlatform(),
		logger:        logger,
		httpClient:    httpClient,
	}
}

// NewScrapeClient builds the HTTP client shared by scraping adapters:
// keep-alives enabled for localhost efficiency, every phase bounded.
func NewScrapeClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
		},
	}
}

// ResetBaseline clears the CPU delta state, forcing the next usage query to
// re-establish its baseline.
func (a *ExporterAdapter) ResetBaseline() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastCPUTotal = 0
	a.lastCPUIdle = 0
	a.hasBaseline = false
}

func (a *ExporterAdapter) Query(ctx context.Context, cat sysinfo.Category) (sysinfo.Record, error) {
	families, err := a.scrape(ctx)
	if err != nil {
		return nil, err
	}

	switch cat {
	case sysinfo.CategoryCPUUsage:
		return a.cpuUsage(families)
	case sysinfo.CategoryMemory:
		return a.memory(cat, families)
	case sysinfo.CategoryDisk:
		return a.disk(cat, families)
	default:
		return nil, newQueryError(KindUnsupported, cat, fmt.Errorf("not handled by exporter adapter"))
	}
}

func (a *ExporterAdapter) scrape(ctx context.Context) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, newQueryError(KindParse, sysinfo.CategoryCPUUsage, err)
	}
	req.Header.Set("User-Agent", "sysdeck-agent/1.0")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, newQueryError(KindTimeout, sysinfo.CategoryCPUUsage, err)
		}
		return nil, newQueryError(KindUnavailable, sysinfo.CategoryCPUUsage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, newQueryError(KindUnavailable, sysinfo.CategoryCPUUsage,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	// Bound the body read; exporters can expose thousands of series.
	limited := io.LimitReader(resp.Body, 10*1024*1024)
	decoder := expfmt.NewDecoder(limited, expfmt.FmtText)

	families := make(map[string]*dto.MetricFamily)
	for {
		mf := &dto.MetricFamily{}
		if err := decoder.Decode(mf); err == io.EOF {
			break
		} else if err != nil {
			return nil, newQueryError(KindParse, sysinfo.CategoryCPUUsage,
				fmt.Errorf("decode metric family: %w", err))
		}
		families[mf.GetName()] = mf
	}
	return families, nil
}

func (a *ExporterAdapter) cpuUsage(families map[string]*dto.MetricFamily) (sysinfo.Record, error) {
	family, ok := families[a.names.CPUTime]
	if !ok {
		return nil, newQueryError(KindParse, sysinfo.CategoryCPUUsage,
			fmt.Errorf("metric %s not found", a.names.CPUTime))
	}

	var totalTime, idleTime float64
	for _, m := range family.Metric {
		if m.Counter == nil {
			continue
		}
		value := m.Counter.GetValue()
		totalTime += value
		if labelValue(m.Label, "mode") == a.names.CPUIdleLabel {
			idleTime += value
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasBaseline {
		a.lastCPUTotal = totalTime
		a.lastCPUIdle = idleTime
		a.hasBaseline = true
		a.logger.Debug("CPU baseline stored (first scrape)")
		return sysinfo.CPUUsage{}, nil
	}

	totalDelta := totalTime - a.lastCPUTotal
	idleDelta := idleTime - a.lastCPUIdle
	a.lastCPUTotal = totalTime
	a.lastCPUIdle = idleTime

	if totalDelta <= 0 {
		return sysinfo.CPUUsage{}, nil
	}
	usage := (totalDelta - idleDelta) / totalDelta * 100
	return sysinfo.CPUUsage{Percent: utils.Round(usage)}, nil
}

func (a *ExporterAdapter) memory(cat sysinfo.Category, families map[string]*dto.MetricFamily) (sysinfo.Record, error) {
	total, ok := gaugeValue(families, a.names.MemoryTotal)
	if !ok {
		return nil, newQueryError(KindParse, cat, fmt.Errorf("metric %s not found", a.names.MemoryTotal))
	}
	available, ok := gaugeValue(families, a.names.MemoryFree)
	if !ok {
		return nil, newQueryError(KindParse, cat, fmt.Errorf("metric %s not found", a.names.MemoryFree))
	}

	used := total - available
	rec := sysinfo.Memory{
		TotalGB:     utils.Round(total / 1024 / 1024 / 1024),
		UsedGB:      utils.Round(used / 1024 / 1024 / 1024),
		AvailableGB: utils.Round(available / 1024 / 1024 / 1024),
	}
	if total > 0 {
		rec.Percent = utils.Round(used / total * 100)
	}
	return rec, nil
}

func (a *ExporterAdapter) disk(cat sysinfo.Category, families map[string]*dto.MetricFamily) (sysinfo.Record, error) {
	size, ok := labeledGaugeValue(families, a.names.DiskSizeBytes, a.names.VolumeLabel, a.primaryVolume)
	if !ok {
		return nil, newQueryError(KindParse, cat,
			fmt.Errorf("metric %s for volume %s not found", a.names.DiskSizeBytes, a.primaryVolume))
	}
	free, ok := labeledGaugeValue(families, a.names.DiskFreeBytes, a.names.VolumeLabel, a.primaryVolume)
	if !ok {
		return nil, newQueryError(KindParse, cat,
			fmt.Errorf("metric %s for volume %s not found", a.names.DiskFreeBytes, a.primaryVolume))
	}
	if size <= 0 {
		return nil, newQueryError(KindParse, cat, fmt.Errorf("zero-sized volume %s", a.primaryVolume))
	}

	used := size - free
	return sysinfo.Disk{
		Volume:      a.primaryVolume,
		TotalGB:     utils.Round(size / 1024 / 1024 / 1024),
		UsedGB:      utils.Round(used / 1024 / 1024 / 1024),
		FreeGB:      utils.Round(free / 1024 / 1024 / 1024),
		UsedPercent: utils.Round(used / size * 100),
	}, nil
}

func labelValue(labels []*dto.LabelPair, name string) string {
	for _, label := range labels {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}

func gaugeValue(families map[string]*dto.MetricFamily, name string) (float64, bool) {
	family, ok := families[name]
	if !ok || len(family.Metric) == 0 || family.Metric[0].Gauge == nil {
		return 0, false
	}
	return family.Metric[0].Gauge.GetValue(), true
}

func labeledGaugeValue(families map[string]*dto.MetricFamily, name, labelName, labelVal string) (float64, bool) {
	family, ok := families[name]
	if !ok {
		return 0, false
	}
	for _, m := range family.Metric {
		if m.Gauge != nil && labelValue(m.Label, labelName) == labelVal {
			return m.Gauge.GetValue(), true
		}
	}
	return 0, false
}
