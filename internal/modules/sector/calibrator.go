package sector

import (
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/petrel-quant/petrel/internal/domain"
)

// Leader status classifications.
const (
	LeaderStrong    = "strong"
	LeaderDivergent = "divergent"
	LeaderFading    = "fading"
)

// Thresholds behind the three-way leader classification. Strong needs both
// the sector day strength and the leader's 3-day run; divergent needs only
// day strength; anything weaker is fading.
const (
	strongDayStrength = 6.0
	strongLeader3D    = 8.0
	divergentDay      = 3.0
)

// Multiplier bounds for sector calibration.
const (
	MinMultiplier = 0.85
	MaxMultiplier = 1.15
)

// Stats is the per-industry aggregate, recomputed once per run from the
// full candidate population.
type Stats struct {
	DayStrength    float64 `json:"day_strength"`
	Trend3D        float64 `json:"trend_3d"`
	MomentumFactor float64 `json:"momentum_factor"`
	LeaderSymbol   string  `json:"leader_symbol"`
	LeaderChange   float64 `json:"leader_change_pct"`
	Leader3DChange float64 `json:"leader_recent_3d_change"`
	LeaderStatus   string  `json:"leader_status"`
}

// CalibratedCandidate is a candidate annotated with its sector context.
// All sector-level fields are identical across a sector by design.
type CalibratedCandidate struct {
	domain.Candidate
	Sector            string  `json:"sector"`
	SectorDayStrength float64 `json:"sector_day_strength"`
	SectorTrend3D     float64 `json:"sector_trend_3d"`
	SectorLeader      string  `json:"sector_leader_symbol"`
	SectorLeaderState string  `json:"sector_leader_status"`
	SectorMultiplier  float64 `json:"sector_multiplier"`
	CalibrationReason string  `json:"calibration_reason"`
}

// Context is the sector payload handed to the decision stage.
type Context struct {
	Sector            string  `json:"sector"`
	SectorDayStrength float64 `json:"sector_day_strength"`
	SectorTrend3D     float64 `json:"sector_trend_3d"`
	SectorLeader      string  `json:"sector_leader_symbol"`
	SectorLeaderState string  `json:"sector_leader_status"`
	SectorMultiplier  float64 `json:"sector_multiplier"`
	CalibrationReason string  `json:"calibration_reason"`
}

// Calibrator aggregates sector statistics and annotates candidates.
type Calibrator struct {
	log zerolog.Logger
}

// New creates a sector calibrator
func New(log zerolog.Logger) *Calibrator {
	return &Calibrator{log: log.With().Str("component", "sector_calibrator").Logger()}
}

// Calibrate groups the full candidate population by industry, computes the
// per-sector stats, and returns a calibrated copy of each candidate in
// candidates. The population parameter keeps the denominators stable even
// when candidates is a subset.
func (c *Calibrator) Calibrate(candidates, population []domain.Candidate) (map[string]Stats, []CalibratedCandidate) {
	buckets := make(map[string][]domain.Candidate)
	for _, cand := range population {
		key := normSector(cand.Industry)
		buckets[key] = append(buckets[key], cand)
	}

	stats := make(map[string]Stats, len(buckets))
	for sector, members := range buckets {
		if len(members) == 0 {
			continue
		}
		changes := make([]float64, len(members))
		trends := make([]float64, len(members))
		leader := members[0]
		for i, m := range members {
			changes[i] = m.ChangePct
			trends[i] = m.Recent3DChange
			if m.ChangePct > leader.ChangePct {
				leader = m
			}
		}
		dayStrength := stat.Mean(changes, nil)
		trend3d := stat.Mean(trends, nil)
		stats[sector] = Stats{
			DayStrength:    round3(dayStrength),
			Trend3D:        round3(trend3d),
			MomentumFactor: round4(momentumFactor(dayStrength, trend3d)),
			LeaderSymbol:   leader.Symbol,
			LeaderChange:   round3(leader.ChangePct),
			Leader3DChange: round3(leader.Recent3DChange),
			LeaderStatus:   leaderStatus(dayStrength, leader.Recent3DChange),
		}
	}

	calibrated := make([]CalibratedCandidate, 0, len(candidates))
	for _, cand := range candidates {
		sector := normSector(cand.Industry)
		s, ok := stats[sector]
		if !ok {
			s = Stats{MomentumFactor: 1.0, LeaderStatus: LeaderDivergent}
		}
		multiplier := clamp(s.MomentumFactor, MinMultiplier, MaxMultiplier)
		calibrated = append(calibrated, CalibratedCandidate{
			Candidate:         cand,
			Sector:            sector,
			SectorDayStrength: s.DayStrength,
			SectorTrend3D:     s.Trend3D,
			SectorLeader:      s.LeaderSymbol,
			SectorLeaderState: s.LeaderStatus,
			SectorMultiplier:  round4(multiplier),
			CalibrationReason: calibrationReason(multiplier),
		})
	}

	c.log.Info().
		Int("sectors", len(stats)).
		Int("calibrated", len(calibrated)).
		Msg("Sector calibration complete")

	return stats, calibrated
}

// Ctx returns the sector context carried by a calibrated candidate.
func (cc CalibratedCandidate) Ctx() Context {
	return Context{
		Sector:            cc.Sector,
		SectorDayStrength: cc.SectorDayStrength,
		SectorTrend3D:     cc.SectorTrend3D,
		SectorLeader:      cc.SectorLeader,
		SectorLeaderState: cc.SectorLeaderState,
		SectorMultiplier:  cc.SectorMultiplier,
		CalibrationReason: cc.CalibrationReason,
	}
}

// momentumFactor maps raw sector returns into the bounded multiplier space.
// Day strength carries double the weight of the 3-day trend; the result is
// monotonic in both before clipping.
func momentumFactor(dayStrength, trend3d float64) float64 {
	return clamp(1.0+dayStrength/100.0+trend3d/200.0, MinMultiplier, MaxMultiplier)
}

func leaderStatus(dayStrength, leader3d float64) string {
	switch {
	case dayStrength >= strongDayStrength && leader3d >= strongLeader3D:
		return LeaderStrong
	case dayStrength >= divergentDay:
		return LeaderDivergent
	default:
		return LeaderFading
	}
}

func calibrationReason(multiplier float64) string {
	switch {
	case multiplier > 1.0:
		return "板块走强，上调评估"
	case multiplier < 1.0:
		return "板块偏弱，下调评估"
	default:
		return "板块中性"
	}
}

func normSector(industry string) string {
	if industry == "" {
		return "unknown_sector"
	}
	return industry
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
