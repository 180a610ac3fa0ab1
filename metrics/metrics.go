// Package metrics instruments dataset construction and batch loading.
package metrics

import "time"

// Config selects the metrics backend.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusAddr    string `json:"prometheus_addr"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.PrometheusAddr == "" {
		c.PrometheusAddr = ":9100"
	}
}

// Recorder receives registry and loader events.
type Recorder interface {
	DatasetCreated(datasetType string)
	BatchLoaded(phase string, d time.Duration)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) DatasetCreated(string)             {}
func (NopRecorder) BatchLoaded(string, time.Duration) {}

// OrNop returns r, or a NopRecorder when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}
