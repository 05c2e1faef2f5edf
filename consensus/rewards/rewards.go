// Package rewards holds the pure, integer-only formulas behind activation costs, moss growth and
// harvest rewards. Nothing in here reads state or the clock.
package rewards

import (
	"math"

	"mossgarden/mossgarden"
)

type StoneType uint8

const (
	Genesis StoneType = iota
	Astral
)

func (t StoneType) String() string {
	switch t {
	case Genesis:
		return "Genesis"
	case Astral:
		return "Astral"
	}
	return "Unknown"
}

const (
	MaxMoss      uint8  = 100
	BaseReward   uint64 = 10
	GenesisBonus uint64 = 5
)

// EnvData is an environmental reading at a stone.
type EnvData struct {
	Temperature int16 `json:"temperature"`
	Humidity    uint8 `json:"humidity"`
	AirQuality  uint8 `json:"air_quality"`
	LightLevel  uint8 `json:"light_level"`
}

// ValidLevel reports whether level is one of the activation levels 1, 2 or 3.
func ValidLevel(level uint8) bool {
	return level >= 1 && level <= 3
}

// CostMultiplier is the percentage of the base cost charged for an activation level.
func CostMultiplier(level uint8) uint64 {
	switch level {
	case 1:
		return 80
	case 2:
		return 100
	case 3:
		return 120
	}
	return 100
}

// LevelMultiplier is the percentage harvest rewards are scaled by at an activation level.
func LevelMultiplier(level uint8) uint64 {
	switch level {
	case 2:
		return 125
	case 3:
		return 150
	}
	return 100
}

// ActivationCost is base * multiplier / 100, floored.
func ActivationCost(base uint64, level uint8) uint64 {
	return mossgarden.MulDivFloor(base, CostMultiplier(level), 100)
}

// InitialMoss is the moss a stone starts with after activating at level.
func InitialMoss(t StoneType, level uint8) uint8 {
	var base uint8 = 10
	if t == Genesis {
		base = 20
	}
	if !ValidLevel(level) {
		return base
	}
	return base + (level-1)*5
}

// EnvironmentBonus gives one point for each reading inside its comfortable (exclusive) band.
func EnvironmentBonus(env EnvData) uint8 {
	var bonus uint8
	if env.Temperature > 15 && env.Temperature < 30 {
		bonus++
	}
	if env.Humidity > 60 && env.Humidity < 90 {
		bonus++
	}
	if env.AirQuality > 70 {
		bonus++
	}
	if env.LightLevel > 50 {
		bonus++
	}
	return bonus
}

// BaseGrowth is one point per full period elapsed, capped at max.
func BaseGrowth(elapsedSeconds, periodSeconds int64, max uint8) uint8 {
	if elapsedSeconds <= 0 || periodSeconds <= 0 {
		return 0
	}
	periods := elapsedSeconds / periodSeconds
	if periods > int64(max) {
		return max
	}
	return uint8(periods)
}

// GrowthIncrement sums the growth terms, saturating at 255.
func GrowthIncrement(baseGrowth, sporeBonus, envBonus, levelBonus uint8) uint8 {
	sum := uint16(baseGrowth) + uint16(sporeBonus) + uint16(envBonus) + uint16(levelBonus)
	if sum > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(sum)
}

// SaturatingAddMoss adds increment to moss and caps the result at MaxMoss.
func SaturatingAddMoss(moss, increment uint8) uint8 {
	sum := uint16(moss) + uint16(increment)
	if sum > uint16(MaxMoss) {
		return MaxMoss
	}
	return uint8(sum)
}

// UnscaledReward is the harvest reward before the level multiplier.
func UnscaledReward(moss uint8, t StoneType, reviewCount int) uint64 {
	r := BaseReward + uint64(moss)/10
	if t == Genesis {
		r += GenesisBonus
	}
	if reviewCount > 0 {
		r += uint64(reviewCount)
	}
	return r
}

// HarvestReward is UnscaledReward scaled by LevelMultiplier, floored. The multiplier is applied once.
func HarvestReward(moss uint8, t StoneType, reviewCount int, level uint8) uint64 {
	return mossgarden.MulDivFloor(UnscaledReward(moss, t, reviewCount), LevelMultiplier(level), 100)
}
