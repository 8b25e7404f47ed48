// Package features maps a three-channel sensor reading onto the wider
// feature vector the RUL regressor was trained on.
package features

import (
	"errors"
	"fmt"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

// Raw channel names, usable directly as features.
const (
	Temperature = "temperature"
	Vibration   = "vibration"
	Torque      = "torque"
)

var ErrUnknownFeature = errors.New("features: unknown feature")

// DefaultOrder is the feature order used when none is configured.
var DefaultOrder = []string{
	"sensor_measurement_11",
	"sensor_measurement_12",
	"sensor_measurement_4",
	"sensor_measurement_7",
	"sensor_measurement_15",
	"sensor_measurement_9",
	"sensor_measurement_21",
	"sensor_measurement_20",
	"sensor_measurement_2",
	"sensor_measurement_3",
}

// DefaultAux holds the baseline of each auxiliary channel before the live
// reading is mixed in.
func DefaultAux() map[string]float64 {
	return map[string]float64{
		"sensor_measurement_11": 47.5,
		"sensor_measurement_12": 521,
		"sensor_measurement_4":  1400,
		"sensor_measurement_7":  553,
		"sensor_measurement_15": 8.4,
		"sensor_measurement_9":  9050,
		"sensor_measurement_21": 23.3,
		"sensor_measurement_20": 38.9,
		"sensor_measurement_2":  642,
		"sensor_measurement_3":  1585,
	}
}

// coupling is how strongly a feature follows each live channel.
type coupling struct{ temp, vib, torque float64 }

var couplings = map[string]coupling{
	"sensor_measurement_12": {temp: 0.1},
	"sensor_measurement_4":  {temp: 1},
	"sensor_measurement_15": {vib: 1},
	"sensor_measurement_9":  {torque: 10},
	"sensor_measurement_2":  {temp: 0.2},
	"sensor_measurement_3":  {temp: 2},
}

// Deriver builds feature vectors in a fixed order.
type Deriver struct {
	order []string
	aux   map[string]float64
}

// NewDeriver validates order against the known features. An empty order
// selects DefaultOrder; aux entries override DefaultAux.
func NewDeriver(order []string, aux map[string]float64) (*Deriver, error) {
	if len(order) == 0 {
		order = DefaultOrder
	}
	base := DefaultAux()
	for k, v := range aux {
		if _, ok := base[k]; !ok {
			return nil, fmt.Errorf("%w: aux %q", ErrUnknownFeature, k)
		}
		base[k] = v
	}
	for _, name := range order {
		if !known(name, base) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
	}
	return &Deriver{order: append([]string(nil), order...), aux: base}, nil
}

func known(name string, aux map[string]float64) bool {
	switch name {
	case Temperature, Vibration, Torque:
		return true
	}
	_, ok := aux[name]
	return ok
}

// Names returns the feature order.
func (d *Deriver) Names() []string { return append([]string(nil), d.order...) }

// Derive returns the feature vector for r.
func (d *Deriver) Derive(r domain.SensorReading) []float64 {
	out := make([]float64, len(d.order))
	for i, name := range d.order {
		out[i] = d.value(name, r)
	}
	return out
}

// Map returns the same values keyed by feature name.
func (d *Deriver) Map(r domain.SensorReading) map[string]float64 {
	out := make(map[string]float64, len(d.order))
	for _, name := range d.order {
		out[name] = d.value(name, r)
	}
	return out
}

func (d *Deriver) value(name string, r domain.SensorReading) float64 {
	switch name {
	case Temperature:
		return r.Temperature
	case Vibration:
		return r.Vibration
	case Torque:
		return r.Torque
	}
	c := couplings[name]
	return d.aux[name] + c.temp*r.Temperature + c.vib*r.Vibration + c.torque*r.Torque
}
