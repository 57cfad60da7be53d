package metrics

import (
	"fmt"
	"math"
)

const (
	DefaultMET      = 6.0
	DefaultSpeedKmh = 22.0
	DefaultWeightKg = 70.0
	CyclingSportKey = "bike"
)

// METBySport holds metabolic equivalents per sport key.
var METBySport = map[string]float64{
	"boxing":  9,
	"judo":    8,
	"wushu":   7.5,
	"bike":    7,
	"pushups": 5,
	"abs":     4,
}

// MET returns the sport's metabolic equivalent or DefaultMET.
func MET(sport string) float64 {
	if met, ok := METBySport[sport]; ok {
		return met
	}
	return DefaultMET
}

// Calories is round(MET * 3.5 * weight / 200 * minutes).
func Calories(sport string, weightKg float64, elapsedSec int) int {
	return int(math.Round(MET(sport) * 3.5 * weightKg / 200 * float64(elapsedSec) / 60))
}

// Distance estimates kilometres for the cycling sport only.
func Distance(sport string, elapsedSec int, speedKmh float64) (float64, bool) {
	if sport != CyclingSportKey {
		return 0, false
	}
	km := speedKmh * float64(elapsedSec) / 3600
	return math.Round(km*100) / 100, true
}

// Snapshot is the derived metrics for one point in a session.
type Snapshot struct {
	Calories    int
	DistanceKm  float64
	HasDistance bool
}

func (s Snapshot) String() string {
	msg := fmt.Sprintf("Calories ≈ %d", s.Calories)
	if s.HasDistance {
		msg += fmt.Sprintf(" • Distance ≈ %g km", s.DistanceKm)
	}
	return msg
}

// Calculator binds the tunables used by the session engine.
type Calculator struct {
	SpeedKmh        float64
	DefaultWeightKg float64
}

func NewCalculator(speedKmh, defaultWeightKg float64) Calculator {
	if speedKmh <= 0 {
		speedKmh = DefaultSpeedKmh
	}
	if defaultWeightKg <= 0 {
		defaultWeightKg = DefaultWeightKg
	}
	return Calculator{SpeedKmh: speedKmh, DefaultWeightKg: defaultWeightKg}
}

// Compute derives metrics from authoritative elapsed time. A non-positive
// weight falls back to the default weight.
func (c Calculator) Compute(sport string, weightKg float64, elapsedSec int) Snapshot {
	if weightKg <= 0 {
		weightKg = c.DefaultWeightKg
	}
	km, ok := Distance(sport, elapsedSec, c.SpeedKmh)
	return Snapshot{
		Calories:    Calories(sport, weightKg, elapsedSec),
		DistanceKm:  km,
		HasDistance: ok,
	}
}
