package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/source"
	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// Source names accepted by telemetry.source.
const (
	SourceSimulated = "simulated"
	SourceOPCUA     = "opcua"
)

type Config struct {
	Telemetry  TelemetryConfig     `yaml:"telemetry"`
	OPCUA      source.OPCUAConfig  `yaml:"opcua"`
	Thresholds decision.Thresholds `yaml:"thresholds"`
	Poller     PollerConfig        `yaml:"poller"`
	Model      ModelConfig         `yaml:"model"`
	Ledger     LedgerConfig        `yaml:"ledger"`
	Report     ReportConfig        `yaml:"report"`
	Timescale  TimescaleConfig     `yaml:"timescale"`
	Policy     ports.Policy        `yaml:"policy"`
	Metrics    MetricsConfig       `yaml:"metrics"`
	API        APIConfig           `yaml:"api"`
}

type TelemetryConfig struct {
	Path     string        `yaml:"path"`
	Interval time.Duration `yaml:"interval"`
	Append   bool          `yaml:"append"`
	Source   string        `yaml:"source"`
	Seed     uint64        `yaml:"seed"`
	MaxRows  int           `yaml:"max_rows"`
	Ranges   source.Ranges `yaml:"ranges"`
}

type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	AutoRecord  bool          `yaml:"auto_record"`
	HistorySize int           `yaml:"history_size"`
}

type ModelConfig struct {
	// Path to a YAML linear model; empty means always use the fallback formula.
	Path     string             `yaml:"path"`
	Features []string           `yaml:"features"`
	Aux      map[string]float64 `yaml:"aux"`
}

type LedgerConfig struct {
	Path string     `yaml:"path"`
	NATS NATSConfig `yaml:"nats"`
}

// NATSConfig enables the shared ledger writer when URL is set.
type NATSConfig struct {
	URL     string        `yaml:"url"`
	Subject string        `yaml:"subject"`
	Timeout time.Duration `yaml:"timeout"`
}

type ReportConfig struct {
	Dir string `yaml:"dir"`
}

// TimescaleConfig enables the prediction mirror when ConnString is set.
type TimescaleConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a config with every default applied, for running without a file.
func Default() *Config {
	cfg := preset()
	cfg.applyDefaults()
	return &cfg
}

// preset carries the defaults whose zero value is a configuration error, so
// they are filled only when the key is absent from the file.
func preset() Config {
	var cfg Config
	cfg.Telemetry.Interval = time.Second
	cfg.Poller.Interval = 2 * time.Second
	return cfg
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := preset()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Telemetry.Path == "" {
		c.Telemetry.Path = "logs/stream.csv"
	}
	if c.Telemetry.Source == "" {
		c.Telemetry.Source = SourceSimulated
	}
	def := source.DefaultRanges()
	if c.Telemetry.Ranges.Temperature == (source.Range{}) {
		c.Telemetry.Ranges.Temperature = def.Temperature
	}
	if c.Telemetry.Ranges.Vibration == (source.Range{}) {
		c.Telemetry.Ranges.Vibration = def.Vibration
	}
	if c.Telemetry.Ranges.Torque == (source.Range{}) {
		c.Telemetry.Ranges.Torque = def.Torque
	}

	if c.Thresholds == (decision.Thresholds{}) {
		c.Thresholds = decision.DefaultThresholds()
	}

	if c.Poller.HistorySize == 0 {
		c.Poller.HistorySize = 20
	}

	if c.Ledger.Path == "" {
		c.Ledger.Path = "logs/predictions.csv"
	}
	if c.Ledger.NATS.Subject == "" {
		c.Ledger.NATS.Subject = "maint.ledger.append"
	}
	if c.Ledger.NATS.Timeout == 0 {
		c.Ledger.NATS.Timeout = 2 * time.Second
	}
	if c.Report.Dir == "" {
		c.Report.Dir = "reports"
	}

	if c.Policy.MaxQueueLen == 0 {
		c.Policy.MaxQueueLen = 10_000
	}
	if c.Policy.MaxBatchSize == 0 {
		c.Policy.MaxBatchSize = 500
	}
	if c.Policy.IdleSleep == 0 {
		c.Policy.IdleSleep = 50 * time.Millisecond
	}
	if c.Policy.OnQueueFull == "" {
		c.Policy.OnQueueFull = "drop"
	}
	if c.Timescale.Table == "" {
		c.Timescale.Table = "predictions"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}

	if c.Telemetry.Source == SourceOPCUA {
		c.OPCUA.ApplyDefaults()
	}
}

func (c *Config) validate() error {
	if c.Telemetry.Interval <= 0 {
		return fmt.Errorf("telemetry.interval must be positive, got %s", c.Telemetry.Interval)
	}
	if c.Telemetry.MaxRows < 0 {
		return errors.New("telemetry.max_rows must not be negative")
	}
	switch c.Telemetry.Source {
	case SourceSimulated:
		if err := c.Telemetry.Ranges.Validate(); err != nil {
			return fmt.Errorf("telemetry.ranges: %w", err)
		}
	case SourceOPCUA:
		if err := c.OPCUA.Validate(); err != nil {
			return fmt.Errorf("opcua config: %w", err)
		}
	default:
		return fmt.Errorf("telemetry.source %q is not one of %s, %s", c.Telemetry.Source, SourceSimulated, SourceOPCUA)
	}
	if c.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive, got %s", c.Poller.Interval)
	}
	if c.Poller.HistorySize < 0 {
		return errors.New("poller.history_size must not be negative")
	}
	switch c.Policy.OnQueueFull {
	case "drop", "reject", "block":
	default:
		return fmt.Errorf("policy.on_queue_full %q is not one of drop, reject, block", c.Policy.OnQueueFull)
	}
	return nil
}

// Warnings returns non-fatal problems worth logging at startup.
func (c *Config) Warnings() []error {
	var out []error
	if err := c.Thresholds.Validate(); err != nil {
		out = append(out, fmt.Errorf("thresholds: %w", err))
	}
	return out
}
