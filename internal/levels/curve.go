package levels

import (
	"math"
	"sync"
)

// MaxLevel is the level cap for every attribute.
const MaxLevel = 99

// TargetMaxXP is the design target: total XP required for level 99.
const TargetMaxXP = 3_250_000

var (
	thresholdsOnce sync.Once
	thresholds     []int
)

// scaledThresholds returns the cumulative XP thresholds for levels 0..99,
// built once and cached. thresholds[L] is the minimum total XP for level L.
func scaledThresholds() []int {
	thresholdsOnce.Do(func() {
		thresholds = buildScaledThresholds()
	})
	return thresholds
}

// buildScaledThresholds computes the classic exponential curve
// inc(L) = floor((L-1) + 300*2^((L-1)/7)), cumulatively summed and divided
// by 4, then rescaled so the level-99 total lands on TargetMaxXP. Each
// rescaled threshold is forced strictly above the previous so rounding can
// never produce duplicate levels.
func buildScaledThresholds() []int {
	base := make([]int, MaxLevel+1)
	points := 0
	for lvl := 2; lvl <= MaxLevel; lvl++ {
		inc := math.Floor(float64(lvl-1) + 300.0*math.Pow(2.0, float64(lvl-1)/7.0))
		points += int(inc)
		base[lvl] = points / 4
	}

	scale := float64(TargetMaxXP) / float64(base[MaxLevel])
	out := make([]int, MaxLevel+1)
	for lvl := 2; lvl <= MaxLevel; lvl++ {
		scaled := int(math.Round(float64(base[lvl]) * scale))
		if scaled <= out[lvl-1] {
			scaled = out[lvl-1] + 1
		}
		out[lvl] = scaled
	}
	return out
}

// Threshold returns the minimum total XP for the given level.
// Threshold(0) and Threshold(1) are both 0.
func Threshold(level int) int {
	if level <= 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return scaledThresholds()[level]
}

// XPToLevel converts a total XP amount to a level in [0, MaxLevel]: the
// largest L whose threshold is at or below xp. Zero XP is level 0.
func XPToLevel(xp int) int {
	if xp <= 0 {
		return 0
	}
	th := scaledThresholds()
	if xp >= th[MaxLevel] {
		return MaxLevel
	}
	lo, hi, ans := 1, MaxLevel, 1
	for lo <= hi {
		mid := (lo + hi) / 2
		if th[mid] <= xp {
			ans = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return ans
}
