package report

import (
	"math"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/ledger"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Summary is the aggregate of one day of ledger rows.
type Summary struct {
	Total  int
	Counts map[domain.Status]int
	// RUL statistics over finite values only; Finite is how many there were.
	Finite  int
	MeanRUL float64
	MaxRUL  float64
	MinRUL  float64
}

// Metric is one line of the summary sheet.
type Metric struct {
	Name  string
	Value any
}

// Summarize aggregates rows. A row whose status is not one of the four known
// values is counted as UNKNOWN so the counts always add up to Total.
func Summarize(rows []ledger.Row) Summary {
	s := Summary{Total: len(rows), Counts: make(map[domain.Status]int, len(domain.Statuses))}
	for _, st := range domain.Statuses {
		s.Counts[st] = 0
	}

	var sum float64
	for _, row := range rows {
		st := row.Record.Status
		if !st.Valid() {
			st = domain.StatusUnknown
		}
		s.Counts[st]++

		rul := row.Record.RUL
		if math.IsNaN(rul) || math.IsInf(rul, 0) {
			continue
		}
		if s.Finite == 0 || rul > s.MaxRUL {
			s.MaxRUL = rul
		}
		if s.Finite == 0 || rul < s.MinRUL {
			s.MinRUL = rul
		}
		sum += rul
		s.Finite++
	}
	if s.Finite > 0 {
		s.MeanRUL = round2(sum / float64(s.Finite))
		s.MaxRUL = round2(s.MaxRUL)
		s.MinRUL = round2(s.MinRUL)
	}
	return s
}

// Metrics lists the summary in sheet order. RUL statistics read "N/A" when
// no row had a finite RUL.
func (s Summary) Metrics() []Metric {
	out := []Metric{
		{Name: "Total Records", Value: s.Total},
	}
	for _, st := range domain.Statuses {
		out = append(out, Metric{Name: string(st) + " Count", Value: s.Counts[st]})
	}
	stat := func(v float64) any {
		if s.Finite == 0 {
			return "N/A"
		}
		return v
	}
	return append(out,
		Metric{Name: "Mean RUL", Value: stat(s.MeanRUL)},
		Metric{Name: "Max RUL", Value: stat(s.MaxRUL)},
		Metric{Name: "Min RUL", Value: stat(s.MinRUL)},
	)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
