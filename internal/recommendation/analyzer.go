package recommendation

import (
	"math"
	"sort"
	"time"

	"innsight/backend/internal/domain"
)

// buildAggregates folds the fact stream into one ProductAggregate per
// product id and derives the temporal statistics each scorer input needs.
//
// Frequency increments once per line-item fact, not once per distinct
// order. The order composer collapses duplicate product lines before an
// order is stored, so the two countings coincide in practice; if that
// precondition ever changes, de-duplicate by (product, order) here first.
func buildAggregates(facts []orderFact, now time.Time) map[string]*domain.ProductAggregate {
	aggregates := make(map[string]*domain.ProductAggregate)

	for _, fact := range facts {
		agg, ok := aggregates[fact.productID]
		if !ok {
			agg = &domain.ProductAggregate{
				ProductID:      fact.productID,
				Name:           fact.productName,
				Category:       fact.category,
				Description:    fact.description,
				ImageURL:       fact.imageURL,
				FirstOrderDate: fact.orderDate,
				LastOrderDate:  fact.orderDate,
			}
			aggregates[fact.productID] = agg
		}

		agg.OrderDates = append(agg.OrderDates, fact.orderDate)
		agg.TotalQuantity += fact.quantity
		agg.TotalSpent += fact.unitPrice * float64(fact.quantity)
		agg.Frequency++
		if fact.orderDate.Before(agg.FirstOrderDate) {
			agg.FirstOrderDate = fact.orderDate
		}
		if fact.orderDate.After(agg.LastOrderDate) {
			agg.LastOrderDate = fact.orderDate
		}
	}

	for _, agg := range aggregates {
		finalizeAggregate(agg, now)
	}
	return aggregates
}

func finalizeAggregate(agg *domain.ProductAggregate, now time.Time) {
	if agg.TotalQuantity > 0 {
		agg.AvgPrice = agg.TotalSpent / float64(agg.TotalQuantity)
	}
	if agg.Frequency > 0 {
		agg.AvgQuantityPerOrder = float64(agg.TotalQuantity) / float64(agg.Frequency)
	}

	sort.Slice(agg.OrderDates, func(i, j int) bool {
		return agg.OrderDates[i].Before(agg.OrderDates[j])
	})

	if len(agg.OrderDates) >= 2 {
		var totalGapDays float64
		for i := 1; i < len(agg.OrderDates); i++ {
			totalGapDays += agg.OrderDates[i].Sub(agg.OrderDates[i-1]).Hours() / 24
		}
		agg.AvgDaysBetween = totalGapDays / float64(len(agg.OrderDates)-1)
	}

	agg.DaysSinceLastOrder = now.Sub(agg.LastOrderDate).Hours() / 24

	agg.RecommendationScore = scoreAggregate(agg)
	agg.IsRecommended = agg.RecommendationScore > recommendedThreshold
	agg.Urgency = classifyUrgency(agg.AvgDaysBetween, agg.DaysSinceLastOrder)

	if agg.AvgDaysBetween > 0 {
		predicted := agg.LastOrderDate.AddDate(0, 0, int(math.Round(agg.AvgDaysBetween)))
		agg.NextOrderPrediction = &predicted
	}
}
