package recommendation

import (
	"sort"
	"strings"

	"innsight/backend/internal/domain"
)

// Sort keys accepted by FilterAndSort. Anything else falls back to score.
const (
	SortByFrequency = "frequency"
	SortByRecency   = "recency"
	SortBySpending  = "spending"
	SortByScore     = "score"

	// CategoryAll disables category filtering.
	CategoryAll = "all"
)

// FilterAndSort applies the presentation controls over an already-analyzed
// item set. Pure and cheap; recomputed on every request.
func FilterAndSort(items []domain.ProductAggregate, filter domain.RecommendationFilter) []domain.ProductAggregate {
	query := strings.ToLower(strings.TrimSpace(filter.SearchText))
	category := strings.TrimSpace(filter.Category)

	kept := make([]domain.ProductAggregate, 0, len(items))
	for _, item := range items {
		if query != "" && !strings.Contains(strings.ToLower(item.Name), query) {
			continue
		}
		if category != "" && category != CategoryAll && item.Category != category {
			continue
		}
		kept = append(kept, item)
	}

	sortAggregates(kept, filter.SortKey)
	return kept
}

func sortAggregates(items []domain.ProductAggregate, sortKey string) {
	switch sortKey {
	case SortByFrequency:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Frequency > items[j].Frequency
		})
	case SortByRecency:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].DaysSinceLastOrder < items[j].DaysSinceLastOrder
		})
	case SortBySpending:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].TotalSpent > items[j].TotalSpent
		})
	default:
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].RecommendationScore > items[j].RecommendationScore
		})
	}
}

// summarize computes run-level stats over the unfiltered qualifying set.
func summarize(items []domain.ProductAggregate) domain.RecommendationStats {
	stats := domain.RecommendationStats{
		TotalUniqueProducts: len(items),
	}
	if len(items) == 0 {
		return stats
	}

	var gapSum float64
	for _, item := range items {
		if item.Frequency >= 3 {
			stats.FrequentlyOrdered++
		}
		if item.Frequency > 1 {
			stats.TotalReorders += item.Frequency - 1
		}
		gapSum += item.AvgDaysBetween
	}
	stats.AvgDaysBetween = gapSum / float64(len(items))
	return stats
}
