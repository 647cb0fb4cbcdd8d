package formulas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwardReturns(t *testing.T) {
	rets := ForwardReturns(10.0, []float64{10.5, 11.0, 11.5, 12.0}, 3)
	require.Len(t, rets, 3)
	assert.InDelta(t, 5.0, rets[0], 0.001)
	assert.InDelta(t, 10.0, rets[1], 0.001)
	assert.InDelta(t, 15.0, rets[2], 0.001)

	assert.Nil(t, ForwardReturns(0, []float64{10}, 3))
	assert.Nil(t, ForwardReturns(10, nil, 3))
}

func TestSourceDrawdown(t *testing.T) {
	dd := SourceDrawdown(10.0, []float64{9.5, 9.0, 9.8, 5.0}, 3)
	require.NotNil(t, dd)
	assert.InDelta(t, -10.0, *dd, 0.001)

	// rising series never dips below source
	dd = SourceDrawdown(10.0, []float64{10.5, 11.0, 12.0}, 3)
	require.NotNil(t, dd)
	assert.Equal(t, 0.0, *dd)

	assert.Nil(t, SourceDrawdown(0, []float64{10}, 3))
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.0, WinRate(nil))
	assert.InDelta(t, 0.5, WinRate([]float64{1.0, -1.0, 2.0, 0.0}), 0.001)
	assert.Equal(t, 1.0, WinRate([]float64{0.1}))
}
