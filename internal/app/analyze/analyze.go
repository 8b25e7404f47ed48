// Package analyze classifies every row of an arbitrary CSV that carries an
// RUL column and summarises the result.
package analyze

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// DefaultColumn is the RUL column name used when none is given.
const DefaultColumn = "RUL"

// criticalListLimit caps how many critical rows Render lists.
const criticalListLimit = 10

var ErrColumnNotFound = errors.New("analyze: RUL column not found")

// Result is the decision for one data row; Index is zero-based.
type Result struct {
	Index    int
	Decision decision.Decision
}

type Report struct {
	Source  string
	Results []Result
	Counts  map[domain.Status]int
}

func AnalyzeFile(path, column string, th decision.Thresholds) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rep, err := Analyze(f, column, th)
	if err != nil {
		return nil, err
	}
	rep.Source = path
	return rep, nil
}

// Analyze reads CSV from r. A cell that is empty or not a number is
// classified as UNKNOWN.
func Analyze(r io.Reader, column string, th decision.Thresholds) (*Report, error) {
	if column == "" {
		column = DefaultColumn
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %q in empty input", ErrColumnNotFound, column)
		}
		return nil, err
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrColumnNotFound, column, strings.Join(header, ", "))
	}

	rep := &Report{Counts: make(map[domain.Status]int, len(domain.Statuses))}
	for idx := 0; ; idx++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rul := math.NaN()
		if col < len(rec) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64); err == nil {
				rul = v
			}
		}
		d := decision.Classify(rul, th)
		rep.Results = append(rep.Results, Result{Index: idx, Decision: d})
		rep.Counts[d.Status]++
	}
	return rep, nil
}

// Critical returns every CRITICAL result in input order.
func (r *Report) Critical() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Decision.Status == domain.StatusCritical {
			out = append(out, res)
		}
	}
	return out
}

// WriteCSV writes index,rul,status,message,color per row.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "rul", "status", "message", "color"}); err != nil {
		return err
	}
	for _, res := range r.Results {
		d := res.Decision
		if err := cw.Write([]string{
			strconv.Itoa(res.Index),
			strconv.FormatFloat(d.RUL, 'f', -1, 64),
			string(d.Status),
			d.Message,
			d.Color,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Painter decorates a piece of text for a status; nil leaves text unchanged.
type Painter func(status domain.Status, text string) string

// Render prints the status distribution and the first critical rows.
func (r *Report) Render(w io.Writer, paint Painter) error {
	if paint == nil {
		paint = func(_ domain.Status, s string) string { return s }
	}
	total := len(r.Results)
	var b strings.Builder
	fmt.Fprintf(&b, "Maintenance analysis (%s)\n", r.Source)
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "Total records: %d\n\nStatus distribution:\n", total)
	for _, st := range domain.Statuses {
		n := r.Counts[st]
		if n == 0 {
			continue
		}
		pct := float64(n) / float64(total) * 100
		fmt.Fprintf(&b, "  %s: %4d (%5.1f%%)\n", paint(st, fmt.Sprintf("%-8s", st)), n, pct)
	}

	crit := r.Critical()
	if len(crit) > 0 {
		fmt.Fprintf(&b, "\n%s (%d):\n", paint(domain.StatusCritical, "Immediate maintenance required"), len(crit))
		for i, res := range crit {
			if i == criticalListLimit {
				fmt.Fprintf(&b, "  ... and %d more\n", len(crit)-criticalListLimit)
				break
			}
			fmt.Fprintf(&b, "  Index %3d: RUL = %6.1f\n", res.Index, res.Decision.RUL)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
