package model

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

var (
	ErrDimension = errors.New("model: feature dimension mismatch")
	ErrNoModel   = errors.New("model: not configured")
)

// Scaler is a standard scaler: (x - mean) / scale.
type Scaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`
}

// Linear is a standard-scaled linear regressor exported from training as YAML:
//
//	features: [sensor_measurement_11, ...]
//	scaler: {mean: [...], scale: [...]}
//	coefficients: [...]
//	intercept: 112.4
type Linear struct {
	Features     []string  `yaml:"features"`
	Scaler       Scaler    `yaml:"scaler"`
	Coefficients []float64 `yaml:"coefficients"`
	Intercept    float64   `yaml:"intercept"`
}

// Load reads and validates a model file.
func Load(path string) (*Linear, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var m Linear
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Linear) Validate() error {
	n := len(m.Coefficients)
	if n == 0 {
		return fmt.Errorf("%w: no coefficients", ErrDimension)
	}
	if len(m.Features) != 0 && len(m.Features) != n {
		return fmt.Errorf("%w: %d features, %d coefficients", ErrDimension, len(m.Features), n)
	}
	if len(m.Scaler.Mean) != 0 && len(m.Scaler.Mean) != n {
		return fmt.Errorf("%w: scaler mean has %d entries, want %d", ErrDimension, len(m.Scaler.Mean), n)
	}
	if len(m.Scaler.Scale) != 0 && len(m.Scaler.Scale) != n {
		return fmt.Errorf("%w: scaler scale has %d entries, want %d", ErrDimension, len(m.Scaler.Scale), n)
	}
	return nil
}

// Transform applies the scaler. A zero scale leaves the centred value as is.
func (m *Linear) Transform(features []float64) ([]float64, error) {
	if len(features) != len(m.Coefficients) {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(features), len(m.Coefficients))
	}
	out := make([]float64, len(features))
	for i, x := range features {
		if len(m.Scaler.Mean) > 0 {
			x -= m.Scaler.Mean[i]
		}
		if len(m.Scaler.Scale) > 0 && m.Scaler.Scale[i] != 0 {
			x /= m.Scaler.Scale[i]
		}
		out[i] = x
	}
	return out, nil
}

func (m *Linear) Predict(normalized []float64) (float64, error) {
	if len(normalized) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrDimension, len(normalized), len(m.Coefficients))
	}
	y := m.Intercept
	for i, x := range normalized {
		y += m.Coefficients[i] * x
	}
	return y, nil
}

// Unavailable is the Model used when no model file is configured or it
// failed to load; every call fails so the caller falls back.
type Unavailable struct{ Err error }

func (u Unavailable) err() error {
	if u.Err != nil {
		return fmt.Errorf("%w: %v", ErrNoModel, u.Err)
	}
	return ErrNoModel
}

func (u Unavailable) Transform([]float64) ([]float64, error) { return nil, u.err() }
func (u Unavailable) Predict([]float64) (float64, error)     { return 0, u.err() }

var (
	_ ports.Model = (*Linear)(nil)
	_ ports.Model = Unavailable{}
)
