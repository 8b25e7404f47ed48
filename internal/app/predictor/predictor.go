// Package predictor turns one sensor reading into a classified health
// estimate: feature derivation, model, fallback and decision.
package predictor

import (
	"errors"
	"math"

	"github.com/yusufserdarr/predictiveMaintenance/internal/adapters/observability"
	"github.com/yusufserdarr/predictiveMaintenance/internal/decision"
	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
	"github.com/yusufserdarr/predictiveMaintenance/internal/features"
	"github.com/yusufserdarr/predictiveMaintenance/internal/ports"
)

// Origin tells where an RUL estimate came from.
type Origin string

const (
	OriginModel    Origin = "model"
	OriginFallback Origin = "fallback"
)

// Outcome is the result of predicting one reading.
type Outcome struct {
	Reading  domain.SensorReading `json:"reading"`
	RUL      float64              `json:"rul"`
	Origin   Origin               `json:"origin"`
	Decision decision.Decision    `json:"decision"`
	// ModelError is set when the fallback was used.
	ModelError string `json:"model_error,omitempty"`
}

// Record is the ledger row for o.
func (o Outcome) Record() domain.PredictionRecord {
	return domain.PredictionRecord{
		Timestamp:   o.Reading.Timestamp,
		Temperature: o.Reading.Temperature,
		Vibration:   o.Reading.Vibration,
		Torque:      o.Reading.Torque,
		RUL:         o.RUL,
		Status:      o.Decision.Status,
	}
}

// Fallback is the heuristic used whenever the model cannot answer.
func Fallback(r domain.SensorReading) float64 {
	return math.Max(10, 200-r.Temperature/10-r.Vibration*20-r.Torque/2)
}

type Predictor struct {
	deriver    *features.Deriver
	model      ports.Model
	thresholds decision.Thresholds
	obs        ports.Observability
}

// New builds a predictor. A nil model always falls back.
func New(d *features.Deriver, m ports.Model, th decision.Thresholds, obs ports.Observability) *Predictor {
	if obs == nil {
		obs = observability.Nop{}
	}
	return &Predictor{deriver: d, model: m, thresholds: th, obs: obs}
}

func (p *Predictor) Thresholds() decision.Thresholds { return p.thresholds }

// Predict never fails: model errors degrade to Fallback and are reported
// through the Outcome and the fallback counter.
func (p *Predictor) Predict(r domain.SensorReading) Outcome {
	out := Outcome{Reading: r, Origin: OriginModel}

	rul, err := p.modelRUL(r)
	if err != nil {
		p.obs.RecordFallback(r, err)
		rul = Fallback(r)
		out.Origin = OriginFallback
		out.ModelError = err.Error()
	}
	out.RUL = rul
	out.Decision = decision.Classify(rul, p.thresholds)
	p.obs.RecordClassification(out.Decision.Status)
	return out
}

func (p *Predictor) modelRUL(r domain.SensorReading) (float64, error) {
	if p.model == nil {
		return 0, errors.New("no model configured")
	}
	if p.deriver == nil {
		return 0, errors.New("no feature deriver configured")
	}
	x, err := p.model.Transform(p.deriver.Derive(r))
	if err != nil {
		return 0, err
	}
	return p.model.Predict(x)
}
