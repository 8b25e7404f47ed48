package producer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/source"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/store"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

type stubObs struct {
	mu       sync.Mutex
	infos    []string
	counters map[string]float64
}

func newStubObs() *stubObs { return &stubObs{counters: map[string]float64{}} }

func (s *stubObs) LogInfo(msg string, _ ...ports.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.infos = append(s.infos, msg)
}
func (s *stubObs) LogError(string, error, ...ports.Field)    {}
func (s *stubObs) LogCritical(string, error, ...ports.Field) {}
func (s *stubObs) IncCounter(name string, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name] += v
}
func (s *stubObs) ObserveLatency(string, float64)             {}
func (s *stubObs) SetGauge(string, float64)                   {}
func (s *stubObs) RecordClassification(domain.Status)         {}
func (s *stubObs) RecordFallback(domain.SensorReading, error) {}

func (s *stubObs) count(msg string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.infos {
		if m == msg {
			n++
		}
	}
	return n
}

// scriptedSource replays fixed readings, then blocks until cancelled.
type scriptedSource struct {
	readings []domain.SensorReading
	i        int
}

func (s *scriptedSource) Next(ctx context.Context) (domain.SensorReading, error) {
	if s.i < len(s.readings) {
		r := s.readings[s.i]
		s.i++
		return r, nil
	}
	<-ctx.Done()
	return domain.SensorReading{}, ctx.Err()
}

func (s *scriptedSource) Close() error { return nil }

func simulator(t *testing.T) *source.Simulated {
	t.Helper()
	sim, err := source.NewSimulated(source.DefaultRanges(), 99)
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	return sim
}

func TestNewRejectsInvalidIntervalBeforeIO(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stream.csv")
	for _, iv := range []time.Duration{0, -time.Second} {
		_, err := New(Config{Path: path, Interval: iv}, simulator(t), nil)
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("interval %s: expected ErrInvalidInterval, got %v", iv, err)
		}
	}
	if _, err := os.Stat(filepath.Dir(path)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("no directory should be created on invalid interval, stat err=%v", err)
	}
}

func TestRunWritesMaxRowsWithinRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stream.csv")
	obs := newStubObs()
	p, err := New(Config{Path: path, Interval: 5 * time.Millisecond, MaxRows: 3}, simulator(t), obs)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}

	rows, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 rows, got %d", rows)
	}

	got, err := store.ReadAll(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 stored readings, got %d", len(got))
	}
	for i, r := range got {
		if r.Temperature < 200 || r.Temperature > 700 || r.Vibration < 0.1 || r.Vibration > 5 || r.Torque < 10 || r.Torque > 100 {
			t.Fatalf("row %d out of range: %+v", i, r)
		}
		if i > 0 && r.Timestamp.Before(got[i-1].Timestamp) {
			t.Fatalf("timestamps went backwards at row %d", i)
		}
	}
	if obs.counters["aegis_telemetry_rows_written_total"] != 3 {
		t.Fatalf("expected rows counter 3, got %v", obs.counters)
	}
	if obs.count("producer stopped") != 1 {
		t.Fatalf("expected a stop log, got %v", obs.infos)
	}
}

func TestRunLogsProgressEveryTenRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.csv")
	obs := newStubObs()
	p, err := New(Config{Path: path, Interval: time.Millisecond, MaxRows: 25}, simulator(t), obs)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if n := obs.count("producer progress"); n != 2 {
		t.Fatalf("expected 2 progress logs for 25 rows, got %d", n)
	}
}

func TestRunClampsTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.csv")
	base := time.Date(2025, 10, 6, 15, 30, 0, 0, time.Local)
	src := &scriptedSource{readings: []domain.SensorReading{
		{Timestamp: base, Temperature: 300, Vibration: 1, Torque: 50},
		{Timestamp: base.Add(-time.Minute), Temperature: 301, Vibration: 1, Torque: 50},
		{Timestamp: base.Add(1500 * time.Microsecond), Temperature: 302, Vibration: 1, Torque: 50},
	}}
	p, err := New(Config{Path: path, Interval: time.Millisecond, MaxRows: 3}, src, nil)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	got, err := store.ReadAll(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if !got[1].Timestamp.Equal(base) {
		t.Fatalf("backwards timestamp should clamp to previous, got %s", got[1].Timestamp)
	}
	if !got[2].Timestamp.Equal(base.Add(time.Millisecond)) {
		t.Fatalf("expected millisecond truncation, got %s", got[2].Timestamp)
	}
}

func TestRunStopsOnCancelAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.csv")
	base := time.Date(2025, 10, 6, 15, 30, 0, 0, time.Local)
	first := &scriptedSource{readings: []domain.SensorReading{{Timestamp: base, Temperature: 300, Vibration: 1, Torque: 50}}}

	ctx, cancel := context.WithCancel(context.Background())
	p, err := New(Config{Path: path, Interval: time.Hour}, first, nil)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	done := make(chan int, 1)
	go func() {
		rows, _ := p.Run(ctx)
		done <- rows
	}()

	deadline := time.After(2 * time.Second)
	for {
		snap, err := store.ReadSnapshot(path)
		if err == nil && snap.Rows == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("first row not written immediately")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case rows := <-done:
		if rows != 1 {
			t.Fatalf("expected 1 row, got %d", rows)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("producer did not stop on cancel")
	}

	second := &scriptedSource{readings: []domain.SensorReading{{Timestamp: base.Add(time.Second), Temperature: 310, Vibration: 1, Torque: 50}}}
	p, err = New(Config{Path: path, Interval: time.Millisecond, Append: true, MaxRows: 1}, second, nil)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}
	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("append run: %v", err)
	}
	all, err := store.ReadAll(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	if len(all) != 2 || all[1].Temperature != 310 {
		t.Fatalf("expected appended second row, got %+v", all)
	}
}

func TestRunKeepsCadence(t *testing.T) {
	const interval = 100 * time.Millisecond
	path := filepath.Join(t.TempDir(), "stream.csv")
	p, err := New(Config{Path: path, Interval: interval, MaxRows: 3}, simulator(t), nil)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}

	start := time.Now()
	rows, err := p.Run(context.Background())
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows != 3 {
		t.Fatalf("expected 3 rows, got %d", rows)
	}
	// first row at t=0, last at 2 intervals; no trailing sleep
	if elapsed < 2*interval-10*time.Millisecond || elapsed > 2*interval+500*time.Millisecond {
		t.Fatalf("expected about %s elapsed, got %s", 2*interval, elapsed)
	}

	got, err := store.ReadAll(path)
	if err != nil {
		t.Fatalf("read store: %v", err)
	}
	for i := 1; i < len(got); i++ {
		gap := got[i].Timestamp.Sub(got[i-1].Timestamp)
		if gap < interval-20*time.Millisecond || gap > interval+400*time.Millisecond {
			t.Fatalf("gap %d is %s, expected about %s", i, gap, interval)
		}
	}
}

func TestRunCancelledAfterThreeIntervals(t *testing.T) {
	const interval = 100 * time.Millisecond
	path := filepath.Join(t.TempDir(), "stream.csv")
	p, err := New(Config{Path: path, Interval: interval}, simulator(t), nil)
	if err != nil {
		t.Fatalf("new producer: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*interval+interval/2)
	defer cancel()
	rows, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rows < 3 || rows > 5 {
		t.Fatalf("expected about 4 rows over %s, got %d", 3*interval+interval/2, rows)
	}

	lines, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if n := strings.Count(string(lines), "\n"); n != rows+1 {
		t.Fatalf("expected header plus %d rows, got %d lines", rows, n)
	}
}
