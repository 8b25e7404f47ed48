// Package decision maps a remaining-useful-life estimate onto a maintenance
// status. Classify is pure and safe for concurrent use.
package decision

import (
	"errors"
	"fmt"
	"math"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Default threshold values, in operating cycles.
const (
	DefaultCritical = 20
	DefaultPlanned  = 50
)

// ErrInvertedThresholds is reported by Validate when Critical > Planned.
// Classification still runs; the PLANNED band is then empty.
var ErrInvertedThresholds = errors.New("decision: critical threshold is above planned threshold")

// Thresholds delimit the CRITICAL / PLANNED / NORMAL bands.
type Thresholds struct {
	Critical float64 `yaml:"critical" json:"critical"`
	Planned  float64 `yaml:"planned" json:"planned"`
}

// DefaultThresholds returns {critical: 20, planned: 50}.
func DefaultThresholds() Thresholds {
	return Thresholds{Critical: DefaultCritical, Planned: DefaultPlanned}
}

// Validate returns ErrInvertedThresholds for non-monotonic configs. It is a
// warning: callers log it and keep classifying.
func (t Thresholds) Validate() error {
	if t.Critical > t.Planned {
		return fmt.Errorf("%w (critical=%g planned=%g)", ErrInvertedThresholds, t.Critical, t.Planned)
	}
	return nil
}

// Decision is the outcome of Classify.
type Decision struct {
	RUL     float64       `json:"rul"`
	Status  domain.Status `json:"status"`
	Message string        `json:"message"`
	Color   string        `json:"color"`
}

// Entry is one row of the status lookup table.
type Entry struct {
	Message string
	Color   string
}

// The wording and colors are consumed verbatim by dashboards and reports;
// changing them is a compatibility-relevant edit.
var table = map[domain.Status]Entry{
	domain.StatusCritical: {Message: "Immediate maintenance required", Color: "#D32F2F"},
	domain.StatusPlanned:  {Message: "Planned maintenance recommended", Color: "#ED6C02"},
	domain.StatusNormal:   {Message: "Normal operation", Color: "#2E7D32"},
	domain.StatusUnknown:  {Message: "Invalid RUL value - check required", Color: "#757575"},
}

// Table returns a copy of the status lookup table.
func Table() map[domain.Status]Entry {
	out := make(map[domain.Status]Entry, len(table))
	for k, v := range table {
		out[k] = v
	}
	return out
}

// Lookup returns the message and color for status.
func Lookup(status domain.Status) (Entry, bool) {
	e, ok := table[status]
	return e, ok
}

// Classify maps rul onto a status. Non-finite or negative values are UNKNOWN
// before any threshold is looked at. Each boundary is strict-less-than, so a
// value equal to a threshold lands in the higher band.
func Classify(rul float64, th Thresholds) Decision {
	status := classifyStatus(rul, th)
	e := table[status]
	return Decision{RUL: rul, Status: status, Message: e.Message, Color: e.Color}
}

func classifyStatus(rul float64, th Thresholds) domain.Status {
	if math.IsNaN(rul) || math.IsInf(rul, 0) || rul < 0 {
		return domain.StatusUnknown
	}
	if rul < th.Critical {
		return domain.StatusCritical
	}
	if rul < th.Planned {
		return domain.StatusPlanned
	}
	return domain.StatusNormal
}
