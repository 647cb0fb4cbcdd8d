package sector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrel-quant/petrel/internal/domain"
	"github.com/petrel-quant/petrel/pkg/logger"
)

func cand(symbol, industry string, changePct, threeDay float64) domain.Candidate {
	return domain.Candidate{
		Record: domain.Record{
			UniverseRecord: domain.UniverseRecord{
				Symbol:    symbol,
				Industry:  industry,
				ChangePct: changePct,
			},
			FeatureSet: domain.FeatureSet{
				Recent3DChange: threeDay,
			},
		},
	}
}

func TestCalibrateSectorUniformity(t *testing.T) {
	pop := []domain.Candidate{
		cand("600001", "半导体", 9.8, 14.0),
		cand("600002", "半导体", 4.2, 6.0),
		cand("600003", "半导体", 6.1, 9.0),
		cand("000100", "白酒", 1.1, -2.0),
	}

	c := New(logger.Nop())
	stats, calibrated := c.Calibrate(pop, pop)
	require.Len(t, calibrated, 4)

	var semis []CalibratedCandidate
	for _, cc := range calibrated {
		if cc.Sector == "半导体" {
			semis = append(semis, cc)
		}
	}
	require.Len(t, semis, 3)

	// sector-level fields must match exactly within the sector
	for _, cc := range semis[1:] {
		assert.Equal(t, semis[0].SectorDayStrength, cc.SectorDayStrength)
		assert.Equal(t, semis[0].SectorTrend3D, cc.SectorTrend3D)
		assert.Equal(t, semis[0].SectorLeader, cc.SectorLeader)
		assert.Equal(t, semis[0].SectorLeaderState, cc.SectorLeaderState)
		assert.Equal(t, semis[0].SectorMultiplier, cc.SectorMultiplier)
	}

	s, ok := stats["半导体"]
	require.True(t, ok)
	assert.Equal(t, "600001", s.LeaderSymbol)
	assert.InDelta(t, (9.8+4.2+6.1)/3, s.DayStrength, 0.001)
}

func TestLeaderStatusThresholds(t *testing.T) {
	tests := []struct {
		name        string
		dayStrength float64
		leader3d    float64
		want        string
	}{
		{"strong sector with running leader", 6.5, 9.0, LeaderStrong},
		{"strong day but stalled leader", 7.0, 5.0, LeaderDivergent},
		{"moderate day strength", 3.0, 12.0, LeaderDivergent},
		{"weak sector", 1.0, 1.0, LeaderFading},
		{"negative day strength", -2.0, 10.0, LeaderFading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, leaderStatus(tt.dayStrength, tt.leader3d))
		})
	}
}

func TestMultiplierStaysInBounds(t *testing.T) {
	tests := []struct {
		name        string
		dayStrength float64
		trend3d     float64
	}{
		{"extreme rally", 40.0, 60.0},
		{"extreme selloff", -40.0, -60.0},
		{"flat", 0.0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := momentumFactor(tt.dayStrength, tt.trend3d)
			assert.GreaterOrEqual(t, m, MinMultiplier)
			assert.LessOrEqual(t, m, MaxMultiplier)
		})
	}
}

func TestMultiplierMonotoneInDayStrength(t *testing.T) {
	weak := momentumFactor(1.0, 2.0)
	strong := momentumFactor(8.0, 2.0)
	assert.Greater(t, strong, weak)
}

func TestUnknownSectorNeutral(t *testing.T) {
	pop := []domain.Candidate{cand("600500", "", 5.0, 3.0)}

	c := New(logger.Nop())
	stats, calibrated := c.Calibrate(pop, nil)
	require.Len(t, calibrated, 1)

	cc := calibrated[0]
	assert.Equal(t, "unknown_sector", cc.Sector)
	assert.Equal(t, 1.0, cc.SectorMultiplier)
	assert.Equal(t, "板块中性", cc.CalibrationReason)
	assert.Empty(t, stats)
}

func TestCalibrationReasonDirection(t *testing.T) {
	assert.Equal(t, "板块走强，上调评估", calibrationReason(1.05))
	assert.Equal(t, "板块偏弱，下调评估", calibrationReason(0.95))
	assert.Equal(t, "板块中性", calibrationReason(1.0))
}
