package maintflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/bus"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/ledger"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/model"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/queue"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/sink"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/api"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/pipeline"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/poller"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/predictor"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/report"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/watch"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/features"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// RuntimeOption customizes the dependencies used by WatchRuntime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	model         Model
	ledger        LedgerAppender
	sink          Sink
	queue         RecordQueue
	observability Observability
	noServers     bool
}

// WithModel injects a regressor instead of loading cfg.Model.Path.
func WithModel(m Model) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.model = m
	}
}

// WithLedger replaces the file (or NATS) ledger.
func WithLedger(l LedgerAppender) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.ledger = l
	}
}

// WithSink mirrors recorded predictions into s instead of Timescale.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithRecordQueue injects the queue between the ledger and the sink.
func WithRecordQueue(q RecordQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithoutServers skips the HTTP API and metrics listeners (embedding, tests).
func WithoutServers() RuntimeOption {
	return func(o *runtimeOverrides) {
		o.noServers = true
	}
}

// WatchRuntime wires poller -> predictor -> session -> ledger (-> mirror sink)
// and serves the session over HTTP.
type WatchRuntime struct {
	cfg     *Config
	obs     ports.Observability
	model   ports.Model
	ledger  ports.LedgerAppender
	queue   ports.RecordQueue
	sink    ports.Sink
	poller  *poller.Poller
	session *watch.Session
	reports *report.Builder

	noServers  bool
	apiSrv     *http.Server
	metricsSrv *http.Server
	closers    []func() error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatchRuntime bootstraps the default adapters (YAML linear model, file
// ledger or NATS ledger client, Timescale mirror when configured, Prometheus
// observability). Options override any of them.
func NewWatchRuntime(cfg *Config, opts ...RuntimeOption) (*WatchRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	rt := &WatchRuntime{cfg: cfg, noServers: overrides.noServers}

	rt.obs = overrides.observability
	if rt.obs == nil {
		rt.obs = observability.NewPromObs(nil)
	}
	for _, w := range cfg.Warnings() {
		rt.obs.LogError("config_warning", w)
	}

	rt.model = overrides.model
	if rt.model == nil {
		rt.model = loadModel(cfg.Model.Path, rt.obs)
	}
	featureOrder := cfg.Model.Features
	if lin, ok := rt.model.(*model.Linear); ok && len(featureOrder) == 0 {
		featureOrder = lin.Features
	}
	deriver, err := features.NewDeriver(featureOrder, cfg.Model.Aux)
	if err != nil {
		return nil, err
	}

	rt.ledger = overrides.ledger
	if rt.ledger == nil {
		if cfg.Ledger.NATS.URL != "" {
			client, err := bus.NewLedgerClient(cfg.Ledger.NATS.URL, cfg.Ledger.NATS.Subject, cfg.Ledger.NATS.Timeout)
			if err != nil {
				return nil, fmt.Errorf("connect ledger service: %w", err)
			}
			rt.closers = append(rt.closers, func() error { client.Close(); return nil })
			rt.ledger = client
		} else {
			rt.ledger = ledger.NewFile(cfg.Ledger.Path)
		}
	}

	rt.sink = overrides.sink
	if rt.sink == nil && cfg.Timescale.ConnString != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		ts, err := sink.Open(ctx, cfg.Timescale.ConnString, cfg.Timescale.Table)
		if err == nil {
			err = ts.EnsureSchema(ctx)
		}
		cancel()
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, ts.Close)
		rt.sink = ts
	}

	var mirror func(context.Context, domain.PredictionRecord)
	if rt.sink != nil {
		rt.queue = overrides.queue
		if rt.queue == nil {
			rt.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
		}
		mirror = func(ctx context.Context, rec domain.PredictionRecord) {
			pipeline.Enqueue(ctx, rt.queue, &rec, cfg.Policy, rt.obs)
		}
	}

	pred := predictor.New(deriver, rt.model, cfg.Thresholds, rt.obs)
	rt.session = watch.NewSession(pred, rt.ledger, watch.Options{
		AutoRecord:  cfg.Poller.AutoRecord,
		HistorySize: cfg.Poller.HistorySize,
		Mirror:      mirror,
	}, rt.obs)
	rt.poller = poller.New(cfg.Telemetry.Path, rt.obs)
	rt.reports = report.NewBuilder(cfg.Ledger.Path, cfg.Report.Dir, rt.obs)
	return rt, nil
}

func loadModel(path string, obs ports.Observability) ports.Model {
	if path == "" {
		obs.LogInfo("no model configured, using fallback estimates")
		return model.Unavailable{}
	}
	m, err := model.Load(path)
	if err != nil {
		obs.LogError("model_load_failed", err, ports.Field{Key: "path", Value: path})
		return model.Unavailable{Err: err}
	}
	return m
}

// Session exposes the consumer-side state.
func (rt *WatchRuntime) Session() *watch.Session { return rt.session }

// Reports exposes the daily report builder.
func (rt *WatchRuntime) Reports() *report.Builder { return rt.reports }

// Start launches the poll loop, the mirror and the HTTP servers. It returns
// immediately; call Run to block on a context instead.
func (rt *WatchRuntime) Start(ctx context.Context) error {
	if rt == nil {
		return fmt.Errorf("watch runtime is nil")
	}
	if rt.cfg.Poller.Interval <= 0 {
		return fmt.Errorf("poller.interval must be positive")
	}
	runCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel

	rt.obs.LogInfo("watch started",
		ports.Field{Key: "session", Value: rt.session.ID()},
		ports.Field{Key: "poller", Value: rt.poller.ID()},
		ports.Field{Key: "path", Value: rt.cfg.Telemetry.Path},
		ports.Field{Key: "auto_record", Value: rt.cfg.Poller.AutoRecord},
	)

	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		if err := rt.poller.Run(runCtx, rt.cfg.Poller.Interval, rt.session.HandlePoll); err != nil {
			rt.obs.LogError("poll loop stopped", err)
		}
	}()

	if rt.sink != nil {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			pipeline.RunMirror(runCtx, rt.queue, rt.sink, rt.cfg.Policy, rt.obs)
		}()
	}

	if !rt.noServers {
		rt.startServers()
	}
	return nil
}

// Run starts the runtime and blocks until ctx is cancelled, then shuts down.
func (rt *WatchRuntime) Run(ctx context.Context) error {
	if err := rt.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Shutdown stops the loops and servers and releases connections.
func (rt *WatchRuntime) Shutdown(ctx context.Context) error {
	var errs []error
	if rt.cancel != nil {
		rt.cancel()
	}
	for _, srv := range []*http.Server{rt.apiSrv, rt.metricsSrv} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	rt.wg.Wait()
	if err := rt.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close releases connections opened by NewWatchRuntime.
func (rt *WatchRuntime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *WatchRuntime) startServers() {
	h := &api.Handler{
		Session:    rt.session,
		Reports:    rt.reports,
		Thresholds: rt.cfg.Thresholds,
		Metrics:    promhttp.Handler(),
	}
	rt.apiSrv = &http.Server{
		Addr:         rt.cfg.API.Addr,
		Handler:      h.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	go serve(rt.apiSrv, "api")

	if rt.cfg.Metrics.Addr != "" && rt.cfg.Metrics.Addr != rt.cfg.API.Addr {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		rt.metricsSrv = &http.Server{Addr: rt.cfg.Metrics.Addr, Handler: mux}
		go serve(rt.metricsSrv, "metrics")
	}
}

func serve(srv *http.Server, name string) {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("%s server exited: %v", name, err)
	}
}
