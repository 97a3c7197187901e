package recommendation

import (
	"math"

	"innsight/backend/internal/domain"
)

// Scoring parameters. Fixed design choices, not fitted to data; kept as
// named constants so a tuning pass has one place to touch.
const (
	frequencyWeight  = 0.4
	recencyWeight    = 0.3
	spendingWeight   = 0.2
	regularityWeight = 0.1

	// idealCycleDays is the reorder cadence the regularity component
	// rewards: a product reordered about every 30 days scores highest.
	idealCycleDays = 30.0

	recommendedThreshold = 50.0

	// Urgency bands relative to a product's own average reorder gap.
	overdueFactor     = 1.2
	approachingFactor = 0.8
)

// scoreAggregate blends frequency, recency, spend and cadence regularity
// into one 0–100-ish scalar. Inputs must already be finalized by the
// analyzer.
func scoreAggregate(agg *domain.ProductAggregate) float64 {
	frequencyScore := math.Min(float64(agg.Frequency)*10, 100)
	recencyScore := math.Max(0, 100-agg.DaysSinceLastOrder*2)
	spendingScore := math.Min(agg.TotalSpent/10, 100)

	regularityScore := 0.0
	if agg.AvgDaysBetween > 0 {
		regularityScore = math.Max(0, 100-math.Abs(agg.AvgDaysBetween-idealCycleDays))
	}

	return frequencyWeight*frequencyScore +
		recencyWeight*recencyScore +
		spendingWeight*spendingScore +
		regularityWeight*regularityScore
}

// classifyUrgency grades how "due" a reorder is against the guest's own
// historical cadence. expected is the average gap in days, elapsed the days
// since the last order.
func classifyUrgency(expected float64, elapsed float64) string {
	switch {
	case expected == 0:
		return domain.UrgencyLow
	case elapsed >= expected*overdueFactor:
		return domain.UrgencyHigh
	case elapsed >= expected*approachingFactor:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}
