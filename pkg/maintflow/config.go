package maintflow

import (
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/source"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/config"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy controls the mirror queue.
	Policy = ports.Policy
	// TelemetryConfig configures the producer and the store path.
	TelemetryConfig = config.TelemetryConfig
	// PollerConfig configures the watch loop.
	PollerConfig = config.PollerConfig
	// ModelConfig points at the regressor and its feature layout.
	ModelConfig = config.ModelConfig
	// LedgerConfig locates the prediction ledger.
	LedgerConfig = config.LedgerConfig
	// ReportConfig sets the report directory.
	ReportConfig = config.ReportConfig
	// TimescaleConfig configures the optional prediction mirror.
	TimescaleConfig = config.TimescaleConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// APIConfig configures the state/record HTTP API.
	APIConfig = config.APIConfig
	// OPCUAConfig holds connection + node details for a live feed.
	OPCUAConfig = source.OPCUAConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a config with all defaults applied.
func DefaultConfig() *Config {
	return config.Default()
}

// Conf loads the YAML config at path and builds a WatchRuntime from it.
func Conf(path string, opts ...RuntimeOption) (*WatchRuntime, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return NewWatchRuntime(cfg, opts...)
}
