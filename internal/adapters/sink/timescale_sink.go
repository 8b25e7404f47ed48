package sink

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "github.com/lib/pq"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// TimescaleSink mirrors predictions into a Postgres/TimescaleDB table. The
// ledger file stays authoritative; the table is a queryable copy.
type TimescaleSink struct {
	db        *sql.DB
	tableName string
}

// Open connects with lib/pq and verifies the table name is a plain identifier.
func Open(ctx context.Context, connString, table string) (*TimescaleSink, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("timescale: invalid table name %q", table)
	}
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("timescale open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("timescale ping: %w", err)
	}
	return NewTimescaleSink(db, table), nil
}

func NewTimescaleSink(db *sql.DB, table string) *TimescaleSink {
	return &TimescaleSink{db: db, tableName: table}
}

func (t *TimescaleSink) Name() string { return "timescaledb" }

// EnsureSchema creates the predictions table when missing. Hypertable
// conversion is left to the operator.
func (t *TimescaleSink) EnsureSchema(ctx context.Context) error {
	_, err := t.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+t.tableName+
		" (ts TIMESTAMPTZ NOT NULL PRIMARY KEY, temperature DOUBLE PRECISION NOT NULL,"+
		" vibration DOUBLE PRECISION NOT NULL, torque DOUBLE PRECISION NOT NULL,"+
		" rul DOUBLE PRECISION, status TEXT NOT NULL)")
	return err
}

func (t *TimescaleSink) WriteBatch(records []*domain.PredictionRecord) error {
	if len(records) == 0 {
		return nil
	}

	// one statement per batch; retries of the same reading are no-ops
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.tableName)
	b.WriteString(" (ts, temperature, vibration, torque, rul, status) VALUES ")

	args := make([]any, 0, len(records)*6)
	for i, r := range records {
		if i > 0 {
			b.WriteString(",")
		}
		n := len(args)
		fmt.Fprintf(&b, "($%d,$%d,$%d,$%d,$%d,$%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		args = append(args,
			r.Timestamp,
			r.Temperature,
			r.Vibration,
			r.Torque,
			r.RUL,
			string(r.Status),
		)
	}
	b.WriteString(" ON CONFLICT (ts) DO NOTHING")

	_, err := t.db.Exec(b.String(), args...)
	return err
}

func (t *TimescaleSink) Close() error { return t.db.Close() }

var _ ports.Sink = (*TimescaleSink)(nil)
