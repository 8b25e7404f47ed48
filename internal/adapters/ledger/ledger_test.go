package ledger

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

func record(rul float64, status domain.Status) domain.PredictionRecord {
	return domain.PredictionRecord{
		Timestamp:   time.Date(2025, 10, 6, 15, 30, 0, 0, time.Local),
		Temperature: 450.5,
		Vibration:   2.3,
		Torque:      65.8,
		RUL:         rul,
		Status:      status,
	}
}

func lines(t *testing.T, path string) []string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(raw), "\n"), "\n")
}

func TestAppendCreatesFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions", "log.csv")
	l := NewFile(path)

	require.NoError(t, l.Append(record(15.2, domain.StatusCritical)))

	got := lines(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "timestamp,temperature,vibration,torque,rul,status", got[0])
	assert.Equal(t, "2025-10-06T15:30:00,450.5,2.3,65.8,15.2,CRITICAL", got[1])
}

func TestAppendNRowsSingleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l := NewFile(path)

	const n = 25
	for i := 0; i < n; i++ {
		require.NoError(t, l.Append(record(float64(i), domain.StatusCritical)))
	}
	got := lines(t, path)
	require.Len(t, got, n+1)
	headers := 0
	for _, line := range got {
		if line == Header {
			headers++
		}
	}
	assert.Equal(t, 1, headers)
}

func TestAppendConcurrentWithinProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l := NewFile(path)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, l.Append(record(float64(60+i), domain.StatusNormal)))
		}(i)
	}
	wg.Wait()

	rows, err := ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, rows, 16)
}

func TestAppendEmptyExistingFileGetsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	require.NoError(t, NewFile(path).Append(record(35.8, domain.StatusPlanned)))
	got := lines(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, Header, got[0])
}

func TestAppendRejectsInvalidRecordWithoutWriting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l := NewFile(path)

	bad := record(10, domain.Status("BROKEN"))
	err := l.Append(bad)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	missing := record(10, "")
	assert.ErrorIs(t, l.Append(missing), ErrMissingField)

	noTemp := record(10, domain.StatusCritical)
	noTemp.Temperature = math.NaN()
	assert.ErrorIs(t, l.Append(noTemp), ErrMissingField)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no file should be created for rejected records")
}

func TestAppendRecordsNonFiniteRULAsUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l := NewFile(path)

	require.NoError(t, l.Append(record(math.NaN(), domain.StatusUnknown)))
	rows, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, math.IsNaN(rows[0].Record.RUL))
	assert.Equal(t, domain.StatusUnknown, rows[0].Record.Status)
}

func TestRecordFromFieldsMissingField(t *testing.T) {
	fields := map[string]string{
		ColTimestamp:   "2025-10-06T15:30:00",
		ColTemperature: "450.5",
		ColVibration:   "2.3",
		ColTorque:      "65.8",
		ColStatus:      "CRITICAL",
	}
	_, err := RecordFromFields(fields)
	require.ErrorIs(t, err, ErrMissingField)
	assert.Contains(t, err.Error(), ColRUL)

	fields[ColRUL] = "abc"
	_, err = RecordFromFields(fields)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	fields[ColRUL] = "15.2"
	rec, err := RecordFromFields(fields)
	require.NoError(t, err)
	assert.Equal(t, 15.2, rec.RUL)
	assert.Equal(t, domain.StatusCritical, rec.Status)
}

func TestParseTimestampLayouts(t *testing.T) {
	for _, s := range []string{
		"2025-10-06T15:30:00",
		"2025-10-06T15:30:00.250",
		"2025-10-06 15:30:00.250",
		"2025-10-06T15:30:00.250+03:00",
	} {
		ts, err := ParseTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2025, ts.Year(), s)
		assert.Equal(t, 30, ts.Minute(), s)
	}
	_, err := ParseTimestamp("06/10/2025")
	assert.Error(t, err)
}

func TestReadAllMissingAndPartial(t *testing.T) {
	dir := t.TempDir()
	_, err := ReadAll(filepath.Join(dir, "absent.csv"))
	assert.ErrorIs(t, err, ErrNotFound)

	path := filepath.Join(dir, "log.csv")
	content := Header + "\n" +
		"2025-10-06T15:30:00,450.5,2.3,65.8,15.2,CRITICAL\n" +
		"2025-10-06T15:31:00,300,1.1,40,35.8,PLA"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2025-10-06T15:30:00", rows[0].Raw[0])
}

func TestRoundTripReclassifies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l := NewFile(path)
	th := decision.DefaultThresholds()

	for _, rul := range []float64{-1, 0, 19.999, 20, 49.5, 50, 180, math.Inf(1)} {
		d := decision.Classify(rul, th)
		rec := record(rul, d.Status)
		require.NoError(t, l.Append(rec))
	}

	rows, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, rows, 8)
	for _, row := range rows {
		assert.Equal(t, decision.Classify(row.Record.RUL, th).Status, row.Record.Status, "rul %v", row.Record.RUL)
	}
}

func TestAppendCutsTornLastLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	content := Header + "\n" +
		"2025-10-06T15:30:00,450.5,2.3,65.8,15.2,CRITICAL\n" +
		"2025-10-06T15:31:00,45"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rec := record(30, domain.StatusPlanned)
	rec.Timestamp = time.Date(2025, 10, 6, 16, 0, 0, 0, time.Local)
	require.NoError(t, NewFile(path).Append(rec))

	got := lines(t, path)
	require.Len(t, got, 3)
	assert.Equal(t, "2025-10-06T16:00:00,450.5,2.3,65.8,30,PLANNED", got[2])

	rows, err := ReadAll(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestAppendRewritesHeaderWhenOnlyTornHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,temp"), 0o644))

	require.NoError(t, NewFile(path).Append(record(60, domain.StatusNormal)))
	got := lines(t, path)
	require.Len(t, got, 2)
	assert.Equal(t, Header, got[0])
}

func TestValidateStatusMatchesRUL(t *testing.T) {
	cases := []struct {
		rul    float64
		status domain.Status
		ok     bool
	}{
		{15, domain.StatusCritical, true},
		{35, domain.StatusPlanned, true},
		{math.NaN(), domain.StatusUnknown, true},
		{math.Inf(-1), domain.StatusUnknown, true},
		{-3, domain.StatusUnknown, true},
		{math.NaN(), domain.StatusCritical, false},
		{-3, domain.StatusNormal, false},
		{15, domain.StatusUnknown, false},
		{0, domain.StatusUnknown, false},
	}
	for _, tc := range cases {
		err := Validate(record(tc.rul, tc.status))
		if tc.ok {
			assert.NoError(t, err, "rul=%v status=%s", tc.rul, tc.status)
		} else {
			assert.ErrorIs(t, err, ErrInvalidRecord, "rul=%v status=%s", tc.rul, tc.status)
		}
	}
}

func TestFormatRowWritesLocalTime(t *testing.T) {
	utc := time.Date(2025, 10, 6, 23, 30, 0, 0, time.UTC)
	rec := record(15, domain.StatusCritical)
	rec.Timestamp = utc

	row, err := ParseRow(FormatRow(rec))
	require.NoError(t, err)
	assert.True(t, utc.Equal(row.Record.Timestamp), "got %s", row.Record.Timestamp)
	assert.Equal(t, utc.Local().Format("2006-01-02"), row.Raw[0][:10])
}
