package decision

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yusufserdarr/predictiveMaintenance/internal/domain"
)

func TestClassify_DefaultBoundaries(t *testing.T) {
	th := DefaultThresholds()

	cases := []struct {
		rul  float64
		want domain.Status
	}{
		{0, domain.StatusCritical},
		{19.99, domain.StatusCritical},
		{20, domain.StatusPlanned},
		{49.99, domain.StatusPlanned},
		{50, domain.StatusNormal},
		{1e9, domain.StatusNormal},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.rul, th).Status, "rul=%v", tc.rul)
	}
}

func TestClassify_InvalidValuesAreUnknownForAnyThresholds(t *testing.T) {
	thresholds := []Thresholds{
		DefaultThresholds(),
		{Critical: -100, Planned: -50},
		{Critical: 80, Planned: 10},
		{Critical: math.Inf(1), Planned: math.Inf(1)},
	}
	values := []float64{-0.01, -5, math.NaN(), math.Inf(1), math.Inf(-1)}

	for _, th := range thresholds {
		for _, v := range values {
			d := Classify(v, th)
			assert.Equal(t, domain.StatusUnknown, d.Status, "rul=%v th=%+v", v, th)
			assert.Equal(t, "#757575", d.Color)
		}
	}
}

func TestClassify_CarriesTableEntry(t *testing.T) {
	d := Classify(15, DefaultThresholds())
	require.Equal(t, domain.StatusCritical, d.Status)
	assert.Equal(t, "Immediate maintenance required", d.Message)
	assert.Equal(t, "#D32F2F", d.Color)
	assert.Equal(t, 15.0, d.RUL)
}

func TestClassify_InvertedThresholdsAreMechanical(t *testing.T) {
	th := Thresholds{Critical: 50, Planned: 20}

	assert.Equal(t, domain.StatusCritical, Classify(30, th).Status)
	assert.Equal(t, domain.StatusNormal, Classify(50, th).Status)

	err := th.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvertedThresholds))
	assert.NoError(t, DefaultThresholds().Validate())
}

func TestTable_CoversEveryStatus(t *testing.T) {
	tbl := Table()
	assert.Len(t, tbl, len(domain.Statuses))
	for _, s := range domain.Statuses {
		e, ok := Lookup(s)
		require.True(t, ok, "missing %s", s)
		assert.NotEmpty(t, e.Message)
		assert.NotEmpty(t, e.Color)
	}

	tbl[domain.StatusNormal] = Entry{Message: "changed"}
	e, _ := Lookup(domain.StatusNormal)
	assert.Equal(t, "Normal operation", e.Message)
}
