package report

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/ledger"
	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

const (
	DateLayout   = "2006-01-02"
	RawSheet     = "Raw Records"
	SummarySheet = "Summary"
)

var (
	ErrInvalidDate   = errors.New("report: date must be YYYY-MM-DD")
	ErrLedgerMissing = errors.New("report: prediction ledger not found")
	ErrLedgerEmpty   = errors.New("report: prediction ledger is empty")
	ErrNoRowsForDate = errors.New("report: no predictions for date")
)

// Builder writes one xlsx workbook per day from the prediction ledger.
type Builder struct {
	ledgerPath string
	dir        string
	obs        ports.Observability
	now        func() time.Time
}

func NewBuilder(ledgerPath, dir string, obs ports.Observability) *Builder {
	if obs == nil {
		obs = observability.Nop{}
	}
	return &Builder{ledgerPath: ledgerPath, dir: dir, obs: obs, now: time.Now}
}

// PathFor is where the report for date is written.
func (b *Builder) PathFor(date string) string {
	return filepath.Join(b.dir, "report_"+date+".xlsx")
}

// Build aggregates the rows of date (today when empty) and writes the
// workbook, replacing any earlier report for the same date.
func (b *Builder) Build(date string) (string, error) {
	if date == "" {
		date = b.now().Format(DateLayout)
	}
	if t, err := time.Parse(DateLayout, date); err != nil || t.Format(DateLayout) != date {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}

	all, err := ledger.ReadAll(b.ledgerPath)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrLedgerMissing, b.ledgerPath)
		}
		return "", fmt.Errorf("read ledger: %w", err)
	}
	if len(all) == 0 {
		return "", ErrLedgerEmpty
	}

	var rows []ledger.Row
	for _, row := range all {
		if row.Record.Timestamp.Format(DateLayout) == date {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoRowsForDate, date)
	}

	summary := Summarize(rows)
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	path := b.PathFor(date)
	if err := writeWorkbook(path, rows, summary); err != nil {
		return "", err
	}

	b.obs.LogInfo("report written",
		ports.Field{Key: "path", Value: path},
		ports.Field{Key: "date", Value: date},
		ports.Field{Key: "rows", Value: summary.Total},
	)
	return path, nil
}

func writeWorkbook(path string, rows []ledger.Row, summary Summary) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if err := f.SetSheetName("Sheet1", RawSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}

	header := make([]any, len(ledger.Columns))
	for i, c := range ledger.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(RawSheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cells := rawCells(row)
		if err := f.SetSheetRow(RawSheet, "A"+strconv.Itoa(i+2), &cells); err != nil {
			return err
		}
	}

	if err := f.SetSheetRow(SummarySheet, "A1", &[]any{"Metric", "Value"}); err != nil {
		return err
	}
	for i, m := range summary.Metrics() {
		if err := f.SetSheetRow(SummarySheet, "A"+strconv.Itoa(i+2), &[]any{m.Name, m.Value}); err != nil {
			return err
		}
	}

	if err := styleSheets(f); err != nil {
		return err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("render workbook: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// rawCells keeps the ledger text for timestamp and status and writes the
// measurements as numbers; non-finite values stay as text.
func rawCells(row ledger.Row) []any {
	r := row.Record
	num := func(v float64, raw string) any {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return raw
		}
		return v
	}
	return []any{
		row.Raw[0],
		num(r.Temperature, row.Raw[1]),
		num(r.Vibration, row.Raw[2]),
		num(r.Torque, row.Raw[3]),
		num(r.RUL, row.Raw[4]),
		row.Raw[5],
	}
}

// styleSheets runs after the data is in place.
func styleSheets(f *excelize.File) error {
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(RawSheet, "A1", "F1", headerStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A1", "B1", headerStyle); err != nil {
		return err
	}

	widths := []struct {
		sheet, col string
		width      float64
	}{
		{RawSheet, "A", 22},
		{RawSheet, "B", 12},
		{RawSheet, "C", 12},
		{RawSheet, "D", 12},
		{RawSheet, "E", 12},
		{RawSheet, "F", 15},
		{SummarySheet, "A", 25},
		{SummarySheet, "B", 15},
	}
	for _, w := range widths {
		if err := f.SetColWidth(w.sheet, w.col, w.col, w.width); err != nil {
			return err
		}
	}
	return nil
}
