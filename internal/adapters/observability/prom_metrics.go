package observability

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// Metric names shared by the producer, the watch runtime and the CLI stats view.
const (
	RowsWritten     = "aegis_telemetry_rows_written_total"
	PollsTotal      = "aegis_polls_total"
	NewReadings     = "aegis_new_readings_total"
	RecordsAppended = "aegis_ledger_records_appended_total"
	RecordsMirrored = "aegis_records_mirrored_total"
	QueueDropped    = "aegis_queue_dropped_total"
	FallbackTotal   = "aegis_model_fallback_total"
	QueueLength     = "aegis_queue_length"
	StoreRows       = "aegis_telemetry_store_rows"
	PollLatency     = "aegis_poll_latency_seconds"
	SinkLatency     = "aegis_sink_latency_seconds"
	Classifications = "aegis_classifications_total"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
	statuses *prometheus.CounterVec
}

// NewPromObs registers the collectors on the default registerer. A nil logger
// logs JSON to stderr.
func NewPromObs(logger *slog.Logger) *PromObs {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	rows := counter(RowsWritten, "Telemetry rows durably appended by the producer.")
	polls := counter(PollsTotal, "Telemetry store polls performed.")
	readings := counter(NewReadings, "Polls that observed a new tail row.")
	appended := counter(RecordsAppended, "Prediction records appended to the ledger.")
	mirrored := counter(RecordsMirrored, "Prediction records written to the mirror sink.")
	drops := counter(QueueDropped, "Records lost due to queue backpressure policies.")
	fallback := counter(FallbackTotal, "Predictions that used the fallback RUL formula.")

	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: QueueLength,
		Help: "Current number of records buffered for the mirror sink.",
	})
	storeGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: StoreRows,
		Help: "Data rows observed in the telemetry store at the last poll.",
	})
	pollLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    PollLatency,
		Help:    "Time spent re-reading the telemetry store.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	sinkLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    SinkLatency,
		Help:    "Latency of mirror sink batch writes.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	statuses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: Classifications,
		Help: "Classifications produced, by status.",
	}, []string{"status"})

	prometheus.MustRegister(rows, polls, readings, appended, mirrored, drops, fallback,
		queueGauge, storeGauge, pollLatency, sinkLatency, statuses)

	return &PromObs{
		logger: logger,
		counters: map[string]prometheus.Counter{
			RowsWritten:     rows,
			PollsTotal:      polls,
			NewReadings:     readings,
			RecordsAppended: appended,
			RecordsMirrored: mirrored,
			QueueDropped:    drops,
			FallbackTotal:   fallback,
		},
		gauges: map[string]prometheus.Gauge{
			QueueLength: queueGauge,
			StoreRows:   storeGauge,
		},
		histos: map[string]prometheus.Observer{
			PollLatency: pollLatency,
			SinkLatency: sinkLatency,
		},
		statuses: statuses,
	}
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	if err == nil {
		return
	}
	p.logger.Error(msg, append(attrs(fields), slog.String("error", err.Error()))...)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	if err == nil {
		return
	}
	p.logger.Error(msg, append(attrs(fields), slog.String("error", err.Error()), slog.Bool("critical", true))...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordClassification(status domain.Status) {
	p.statuses.WithLabelValues(string(status)).Inc()
}

func (p *PromObs) RecordFallback(r domain.SensorReading, err error) {
	p.IncCounter(FallbackTotal, 1)
	args := []any{
		slog.Float64("temperature", r.Temperature),
		slog.Float64("vibration", r.Vibration),
		slog.Float64("torque", r.Torque),
	}
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	p.logger.Warn("model_fallback", args...)
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}

var _ ports.Observability = (*PromObs)(nil)
