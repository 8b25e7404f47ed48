package poller

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/store"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

func reading(sec int, temp float64) domain.SensorReading {
	return domain.SensorReading{
		Timestamp:   time.Date(2025, 10, 6, 15, 30, sec, 0, time.Local),
		Temperature: temp,
		Vibration:   1.5,
		Torque:      40,
	}
}

func TestPollNoDataForMissingOrHeaderOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.csv")
	p := New(path, nil)

	res, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNoData, res.State)

	require.NoError(t, os.WriteFile(path, []byte(store.Header+"\n"), 0o644))
	res, err = p.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateNoData, res.State)
}

func TestPollIsIdempotentWithoutNewRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.csv")
	w, _, err := store.OpenWriter(path, false)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Append(reading(0, 300)))
	require.NoError(t, w.Append(reading(1, 310)))

	p := New(path, nil)
	res, err := p.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateNewReading, res.State)
	assert.Equal(t, 310.0, res.Reading.Temperature)
	assert.Equal(t, 2, res.Rows)

	for i := 0; i < 3; i++ {
		res, err = p.Poll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, StateUnchanged, res.State)
		assert.Equal(t, 2, p.LastRows())
	}

	require.NoError(t, w.Append(reading(2, 320)))
	require.NoError(t, w.Append(reading(3, 330)))
	res, err = p.Poll(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateNewReading, res.State)
	assert.Equal(t, 330.0, res.Reading.Temperature, "only the tail row is surfaced")
}

func TestPollRespectsCancelledContext(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "stream.csv"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Poll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunDeliversNewReadings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stream.csv")
	w, _, err := store.OpenWriter(path, false)
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Append(reading(0, 300)))

	var (
		mu   sync.Mutex
		seen []float64
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- New(path, nil).Run(ctx, 5*time.Millisecond, func(_ context.Context, r Result) {
			mu.Lock()
			seen = append(seen, r.Reading.Temperature)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, w.Append(reading(1, 333)))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2 && seen[1] == 333
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsBadInterval(t *testing.T) {
	assert.Error(t, New("x.csv", nil).Run(context.Background(), 0, nil))
}
