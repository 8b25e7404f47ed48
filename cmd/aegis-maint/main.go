package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/bus"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/ledger"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/source"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/analyze"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/config"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/producer"
	"github.com/yusufserdarr/predictiveMaintenance/internal/app/report"
	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
	"github.com/yusufserdarr/predictiveMaintenance/pkg/maintflow"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]
	var err error

	switch cmd {
	case "produce":
		err = produceCommand(args)
	case "watch":
		err = watchCommand(args)
	case "classify":
		err = classifyCommand(args)
	case "log":
		err = logCommand(args)
	case "report":
		err = reportCommand(args)
	case "analyze":
		err = analyzeCommand(args)
	case "validate":
		err = validateCommand(args)
	case "ledger-serve":
		err = ledgerServeCommand(args)
	case "stats":
		err = statsCommand(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("aegis-maint %s: %v", cmd, err)
	}
}

// loadConfig returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := maintflow.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func produceCommand(args []string) error {
	fs := pflag.NewFlagSet("produce", pflag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file")
	out := fs.String("out", "", "Telemetry store path (default telemetry.path)")
	var interval secondsValue
	fs.Var(&interval, "interval", "Seconds between rows, e.g. 1.0 or 0.5 (default telemetry.interval)")
	appendMode := fs.Bool("append", false, "Continue an existing store instead of overwriting it")
	maxRows := fs.Int("max-rows", 0, "Stop after this many rows (0 runs until interrupted)")
	src := fs.String("source", "", "Reading source: simulated or opcua")
	seed := fs.Uint64("seed", 0, "Simulator seed (0 picks a random one)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	tc := cfg.Telemetry
	if fs.Changed("out") {
		tc.Path = *out
	}
	if fs.Changed("interval") {
		tc.Interval = time.Duration(interval)
	}
	if fs.Changed("append") {
		tc.Append = *appendMode
	}
	if fs.Changed("max-rows") {
		tc.MaxRows = *maxRows
	}
	if fs.Changed("source") {
		tc.Source = *src
	}
	if fs.Changed("seed") {
		tc.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		readings ports.Source
		live     *source.OPCUA
	)
	switch tc.Source {
	case config.SourceSimulated:
		sim, err := source.NewSimulated(tc.Ranges, tc.Seed)
		if err != nil {
			return err
		}
		readings = sim
	case config.SourceOPCUA:
		live, err = source.NewOPCUA(cfg.OPCUA)
		if err != nil {
			return err
		}
		readings = live
	default:
		return fmt.Errorf("unknown source %q (want %s or %s)", tc.Source, config.SourceSimulated, config.SourceOPCUA)
	}

	// producer.New validates the interval before any connection is opened.
	p, err := producer.New(producer.Config{
		Path:     tc.Path,
		Interval: tc.Interval,
		Append:   tc.Append,
		MaxRows:  tc.MaxRows,
	}, readings, observability.NewPromObs(nil))
	if err != nil {
		return err
	}
	if live != nil {
		if err := live.Start(ctx); err != nil {
			_ = live.Close()
			return fmt.Errorf("start opcua source: %w", err)
		}
	}

	n, err := p.Run(ctx)
	fmt.Printf("wrote %d rows to %s\n", n, tc.Path)
	return errors.Join(err, readings.Close())
}

func watchCommand(args []string) error {
	fs := pflag.NewFlagSet("watch", pflag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file")
	autoRecord := fs.Bool("auto-record", false, "Append every new prediction to the ledger")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if fs.Changed("auto-record") {
		cfg.Poller.AutoRecord = *autoRecord
	}

	rt, err := maintflow.NewWatchRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("watching %s, api on %s (Ctrl+C to stop)\n", cfg.Telemetry.Path, cfg.API.Addr)
	return rt.Run(ctx)
}

func classifyCommand(args []string) error {
	fs := pflag.NewFlagSet("classify", pflag.ExitOnError)
	th := decision.DefaultThresholds()
	fs.Float64Var(&th.Critical, "critical", th.Critical, "RUL below this is CRITICAL")
	fs.Float64Var(&th.Planned, "planned", th.Planned, "RUL below this is PLANNED")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: aegis-maint classify <rul> [--critical N] [--planned N]")
	}
	if err := th.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	rul, err := strconv.ParseFloat(strings.TrimSpace(fs.Arg(0)), 64)
	if err != nil {
		rul = math.NaN()
	}
	d := decision.Classify(rul, th)
	paint := statusPainter()
	fmt.Printf("%s  %s\n", paint(d.Status, string(d.Status)), d.Message)
	return nil
}

func logCommand(args []string) error {
	fs := pflag.NewFlagSet("log", pflag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file")
	path := fs.String("ledger", "", "Prediction ledger path (default ledger.path)")
	fields := map[string]*string{}
	for _, col := range ledger.Columns {
		fields[col] = fs.String(col, "", "Value of the "+col+" column")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if fs.Changed("ledger") {
		cfg.Ledger.Path = *path
	}

	values := make(map[string]string, len(fields))
	for col, v := range fields {
		values[col] = *v
	}
	rec, err := ledger.RecordFromFields(values)
	if err != nil {
		return err
	}

	var appender ports.LedgerAppender = ledger.NewFile(cfg.Ledger.Path)
	if cfg.Ledger.NATS.URL != "" {
		client, err := bus.NewLedgerClient(cfg.Ledger.NATS.URL, cfg.Ledger.NATS.Subject, cfg.Ledger.NATS.Timeout)
		if err != nil {
			return err
		}
		defer client.Close()
		appender = client
	}
	if err := appender.Append(rec); err != nil {
		return err
	}
	fmt.Printf("recorded %s %s\n", rec.Timestamp.Format(ledger.TimestampLayout), rec.Status)
	return nil
}

func reportCommand(args []string) error {
	fs := pflag.NewFlagSet("report", pflag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file")
	date := fs.String("date", "", "Day to report on, YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	b := report.NewBuilder(cfg.Ledger.Path, cfg.Report.Dir, observability.Nop{})
	out, err := b.Build(*date)
	if err != nil {
		return err
	}
	fmt.Printf("report written to %s\n", out)
	return nil
}

func analyzeCommand(args []string) error {
	fs := pflag.NewFlagSet("analyze", pflag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file")
	column := fs.String("rul-column", analyze.DefaultColumn, "Name of the RUL column")
	output := fs.String("output", "", "Write per-row decisions to this CSV file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: aegis-maint analyze <csv> [--rul-column RUL] [--output out.csv]")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	rep, err := analyze.AnalyzeFile(fs.Arg(0), *column, cfg.Thresholds)
	if err != nil {
		return err
	}
	if err := rep.Render(os.Stdout, statusPainter()); err != nil {
		return err
	}
	if *output == "" {
		return nil
	}

	f, err := os.Create(*output)
	if err != nil {
		return err
	}
	if err := rep.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("decisions written to %s\n", *output)
	return nil
}

func validateCommand(args []string) error {
	fs := pflag.NewFlagSet("validate", pflag.ExitOnError)
	cfgPath := fs.String("config", "./data/config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := maintflow.LoadConfig(*cfgPath)
	if err != nil {
		return err
	}
	for _, w := range cfg.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func ledgerServeCommand(args []string) error {
	fs := pflag.NewFlagSet("ledger-serve", pflag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to configuration file")
	url := fs.String("nats", "", "NATS server URL (default ledger.nats.url)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	if fs.Changed("nats") {
		cfg.Ledger.NATS.URL = *url
	}
	if cfg.Ledger.NATS.URL == "" {
		return errors.New("ledger.nats.url is required")
	}

	obs := observability.NewPromObs(nil)
	svc, err := bus.NewLedgerService(cfg.Ledger.NATS.URL, ledger.NewFile(cfg.Ledger.Path), obs)
	if err != nil {
		return err
	}
	defer svc.Close()
	if _, err := svc.Serve(cfg.Ledger.NATS.Subject); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	obs.LogInfo("ledger service started",
		ports.Field{Key: "subject", Value: cfg.Ledger.NATS.Subject},
		ports.Field{Key: "path", Value: cfg.Ledger.Path},
	)
	<-ctx.Done()
	return nil
}

func statsCommand(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/metrics", "Prometheus metrics endpoint")
	interval := fs.Duration("interval", 2*time.Second, "Refresh interval")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming metrics from %s (Ctrl+C to stop)\n", *url)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := printMetricsSnapshot(*url); err != nil {
				fmt.Fprintf(os.Stderr, "stats error: %v\n", err)
			}
		}
	}
}

func printMetricsSnapshot(url string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	targets := map[string]float64{
		observability.PollsTotal:      0,
		observability.RecordsAppended: 0,
		observability.FallbackTotal:   0,
		observability.QueueLength:     0,
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		for key := range targets {
			if strings.HasPrefix(line, key+" ") {
				var value float64
				if _, err := fmt.Sscanf(line, key+" %f", &value); err == nil {
					targets[key] = value
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	fmt.Printf("[%s] polls=%.0f recorded=%.0f fallback=%.0f queue=%.0f\n",
		time.Now().Format(time.RFC3339),
		targets[observability.PollsTotal],
		targets[observability.RecordsAppended],
		targets[observability.FallbackTotal],
		targets[observability.QueueLength],
	)
	return nil
}

func printUsage() {
	fmt.Print(title("aegis-maint") + `

Usage:
  aegis-maint <command> [flags]

Commands:
  produce       Append simulated (or OPC UA) readings to the telemetry store
  watch         Poll the store, predict RUL and serve the session over HTTP
  classify      Classify a single RUL value
  log           Append one prediction record to the ledger
  report        Build the daily Excel report from the ledger
  analyze       Classify every row of a CSV file with a RUL column
  validate      Load and validate a config file
  ledger-serve  Serve the single-writer ledger over NATS
  stats         Poll the Prometheus metrics endpoint and print live counters

Examples:
  aegis-maint produce --out logs/stream.csv --interval 1.0 --append
  aegis-maint watch --config ./data/config.yaml --auto-record
  aegis-maint classify 35 --critical 20 --planned 50
  aegis-maint log --timestamp 2025-03-14T09:30:00 --temperature 450 --vibration 1.2 --torque 40 --rul 15 --status CRITICAL
  aegis-maint report --date 2025-03-14
  aegis-maint analyze results.csv --output decisions.csv
`)
}
