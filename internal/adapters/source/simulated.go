package source

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// Range bounds one simulated channel; values are rounded to Decimals places.
type Range struct {
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	Decimals int     `yaml:"decimals"`
}

func (r Range) validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min > r.Max {
		return fmt.Errorf("%s range [%v, %v] is invalid", name, r.Min, r.Max)
	}
	if r.Decimals < 0 || r.Decimals > 9 {
		return fmt.Errorf("%s decimals %d out of [0, 9]", name, r.Decimals)
	}
	return nil
}

func (r Range) sample(rng *rand.Rand) float64 {
	v := r.Min + rng.Float64()*(r.Max-r.Min)
	p := math.Pow10(r.Decimals)
	v = math.Round(v*p) / p
	// rounding can step just outside a bound that is not representable
	// at the requested precision
	return math.Min(math.Max(v, r.Min), r.Max)
}

// Ranges holds the three physical channels.
type Ranges struct {
	Temperature Range `yaml:"temperature"`
	Vibration   Range `yaml:"vibration"`
	Torque      Range `yaml:"torque"`
}

// DefaultRanges are the plausible operating envelopes of the simulated machine.
func DefaultRanges() Ranges {
	return Ranges{
		Temperature: Range{Min: 200, Max: 700, Decimals: 2},
		Vibration:   Range{Min: 0.1, Max: 5.0, Decimals: 3},
		Torque:      Range{Min: 10, Max: 100, Decimals: 2},
	}
}

func (r Ranges) Validate() error {
	if err := r.Temperature.validate("temperature"); err != nil {
		return err
	}
	if err := r.Vibration.validate("vibration"); err != nil {
		return err
	}
	return r.Torque.validate("torque")
}

// Simulated draws independent uniform readings within Ranges.
type Simulated struct {
	mu     sync.Mutex
	ranges Ranges
	rng    *rand.Rand
	now    func() time.Time
}

// NewSimulated returns a simulator seeded with seed; seed 0 picks a random seed.
func NewSimulated(ranges Ranges, seed uint64) (*Simulated, error) {
	if err := ranges.Validate(); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &Simulated{
		ranges: ranges,
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		now:    time.Now,
	}, nil
}

func (s *Simulated) Next(ctx context.Context) (domain.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return domain.SensorReading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SensorReading{
		Timestamp:   s.now(),
		Temperature: s.ranges.Temperature.sample(s.rng),
		Vibration:   s.ranges.Vibration.sample(s.rng),
		Torque:      s.ranges.Torque.sample(s.rng),
	}, nil
}

func (s *Simulated) Close() error { return nil }

var _ ports.Source = (*Simulated)(nil)
