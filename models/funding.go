package models

import "math"

// Platform-wide funding rules.
const (
	// MinContributionAmount is the smallest accepted pledge, in currency
	// minor units.
	MinContributionAmount = 100

	// MaxMessageLength caps the optional contributor message.
	MaxMessageLength = 500

	// Minimum opening contribution, as a percentage of the target amount,
	// by creator type.
	MinInitialPercentIndividual = 5
	MinInitialPercentCompany    = 30
)

// FundingPercentage returns current/target as a percentage rounded to one
// decimal place.
func FundingPercentage(current, target int64) float64 {
	if target <= 0 {
		return 0
	}
	return math.Round(float64(current)/float64(target)*1000) / 10
}

// Remaining returns the amount still needed to reach the target, never
// negative.
func Remaining(current, target int64) int64 {
	if r := target - current; r > 0 {
		return r
	}
	return 0
}

// IsFullyFunded reports whether the target has been reached.
func IsFullyFunded(current, target int64) bool {
	return current >= target
}

// MinInitialPercent returns the opening-contribution percentage required of
// the given creator type.
func MinInitialPercent(creatorType string) int64 {
	if creatorType == CreatorTypeCompany {
		return MinInitialPercentCompany
	}
	return MinInitialPercentIndividual
}

// MinInitialContribution returns the smallest opening contribution a creator
// of the given type must post against target. Rounds up so the percentage
// floor is never undercut by integer division.
func MinInitialContribution(creatorType string, target int64) int64 {
	pct := MinInitialPercent(creatorType)
	return (target*pct + 99) / 100
}
