// Package predictivemaintenance re-exports pkg/maintflow so consumers can
// import the module root directly.
package predictivemaintenance

import (
	base "github.com/yusufserdarr/predictiveMaintenance/pkg/maintflow"
)

// Re-exported errors for convenience.
var ErrChannelSinkClosed = base.ErrChannelSinkClosed

type (
	Config          = base.Config
	Policy          = base.Policy
	OPCUAConfig     = base.OPCUAConfig
	WatchRuntime    = base.WatchRuntime
	RuntimeOption   = base.RuntimeOption
	Reading         = base.Reading
	Record          = base.Record
	Status          = base.Status
	Thresholds      = base.Thresholds
	Decision        = base.Decision
	RecordBatchSink = base.RecordBatchSink
	Model           = base.Model
	Sink            = base.Sink
	RecordQueue     = base.RecordQueue
	LedgerAppender  = base.LedgerAppender
	Observability   = base.Observability
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func Conf(path string, opts ...RuntimeOption) (*WatchRuntime, error) {
	return base.Conf(path, opts...)
}

// Watch runtime and options.
func NewWatchRuntime(cfg *Config, opts ...RuntimeOption) (*WatchRuntime, error) {
	return base.NewWatchRuntime(cfg, opts...)
}

func WithModel(m Model) RuntimeOption {
	return base.WithModel(m)
}

func WithLedger(l LedgerAppender) RuntimeOption {
	return base.WithLedger(l)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithRecordQueue(q RecordQueue) RuntimeOption {
	return base.WithRecordQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Classification.
func Classify(rul float64, th Thresholds) Decision {
	return base.Classify(rul, th)
}

// Sink adapters.
func NewCallbackSink(name string, fn RecordBatchSink) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Record, func()) {
	return base.NewChannelSink(name, buffer)
}
