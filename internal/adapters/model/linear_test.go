package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelYAML = `
features: [temperature, vibration, torque]
scaler:
  mean: [450, 2.5, 55]
  scale: [100, 1, 0]
coefficients: [-10, -5, -0.5]
intercept: 100
`

func writeModel(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAndPredict(t *testing.T) {
	m, err := Load(writeModel(t, modelYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"temperature", "vibration", "torque"}, m.Features)

	x, err := m.Transform([]float64{550, 3.5, 65})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1, 10}, x, 1e-9)

	y, err := m.Predict(x)
	require.NoError(t, err)
	assert.InDelta(t, 100-10-5-5, y, 1e-9)
}

func TestLoadRejectsMismatchedDimensions(t *testing.T) {
	_, err := Load(writeModel(t, "coefficients: [1, 2]\nfeatures: [a]\n"))
	assert.ErrorIs(t, err, ErrDimension)

	_, err = Load(writeModel(t, "coefficients: []\n"))
	assert.ErrorIs(t, err, ErrDimension)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestTransformDimensionMismatch(t *testing.T) {
	m := &Linear{Coefficients: []float64{1, 1}}
	_, err := m.Transform([]float64{1})
	assert.ErrorIs(t, err, ErrDimension)
	_, err = m.Predict([]float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestUnavailableAlwaysFails(t *testing.T) {
	var u Unavailable
	_, err := u.Transform([]float64{1})
	assert.ErrorIs(t, err, ErrNoModel)
	_, err = u.Predict(nil)
	assert.ErrorIs(t, err, ErrNoModel)
}
