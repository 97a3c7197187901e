package recommendation

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"innsight/backend/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func deliveredOrder(id string, daysAgo int, items ...domain.LineItem) domain.OrderRecord {
	createdAt := testNow.AddDate(0, 0, -daysAgo)
	deliveredAt := createdAt.Add(30 * time.Minute)
	var total float64
	for _, item := range items {
		total += item.UnitPrice * float64(item.Quantity)
	}
	return domain.OrderRecord{
		ID:          id,
		OrderNumber: "RS-" + id,
		GuestID:     "guest",
		Status:      domain.OrderStatusDelivered,
		TotalPrice:  total,
		CreatedAt:   createdAt,
		DeliveredAt: &deliveredAt,
		Items:       items,
	}
}

func item(productID string, name string, category string, price float64, qty int) domain.LineItem {
	return domain.LineItem{
		ProductID:   productID,
		ProductName: name,
		Category:    category,
		UnitPrice:   price,
		Quantity:    qty,
	}
}

func TestAnalyzeExcludesSingleOrderProducts(t *testing.T) {
	orders := []domain.OrderRecord{
		deliveredOrder("o1", 40, item("p1", "Espresso", "beverage", 4.5, 1)),
		deliveredOrder("o2", 10, item("p1", "Espresso", "beverage", 4.5, 1), item("p2", "Cheesecake", "dessert", 8, 1)),
	}

	list := Analyze(orders, testNow)
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 qualifying product, got %d", len(list.Items))
	}
	if list.Items[0].ProductID != "p1" {
		t.Fatalf("expected p1 to qualify, got %s", list.Items[0].ProductID)
	}
	if list.Stats.TotalUniqueProducts != 1 {
		t.Fatalf("stats must cover the qualifying set only, got %d products", list.Stats.TotalUniqueProducts)
	}
}

func TestAnalyzeThirtyDayCadence(t *testing.T) {
	orders := []domain.OrderRecord{
		deliveredOrder("o1", 64, item("p1", "Club Sandwich", "food", 10, 1)),
		deliveredOrder("o2", 34, item("p1", "Club Sandwich", "food", 10, 1)),
		deliveredOrder("o3", 4, item("p1", "Club Sandwich", "food", 10, 1)),
	}

	list := Analyze(orders, testNow)
	if len(list.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(list.Items))
	}
	agg := list.Items[0]

	if agg.Frequency != 3 {
		t.Fatalf("expected frequency 3, got %d", agg.Frequency)
	}
	if math.Abs(agg.AvgDaysBetween-30) > 1e-9 {
		t.Fatalf("expected 30-day cadence, got %f", agg.AvgDaysBetween)
	}
	if math.Abs(agg.DaysSinceLastOrder-4) > 1e-9 {
		t.Fatalf("expected 4 days since last order, got %f", agg.DaysSinceLastOrder)
	}
	if agg.Urgency != domain.UrgencyLow {
		t.Fatalf("4 days into a 30-day cycle should be low urgency, got %s", agg.Urgency)
	}

	// freq 3*10=30, recency 100-8=92, spend 30/10=3, regularity |30-30|=0 -> 100
	wantScore := 0.4*30 + 0.3*92 + 0.2*3 + 0.1*100
	if math.Abs(agg.RecommendationScore-wantScore) > 1e-9 {
		t.Fatalf("expected score %f, got %f", wantScore, agg.RecommendationScore)
	}
	if !agg.IsRecommended {
		t.Fatalf("score %f should be above the recommendation threshold", agg.RecommendationScore)
	}

	if agg.NextOrderPrediction == nil {
		t.Fatalf("expected a next order prediction")
	}
	wantPrediction := agg.LastOrderDate.AddDate(0, 0, 30)
	if !agg.NextOrderPrediction.Equal(wantPrediction) {
		t.Fatalf("expected prediction %v, got %v", wantPrediction, agg.NextOrderPrediction)
	}

	if list.Stats.FrequentlyOrdered != 1 {
		t.Fatalf("frequency 3 counts as frequently ordered, got %d", list.Stats.FrequentlyOrdered)
	}
	if list.Stats.TotalReorders != 2 {
		t.Fatalf("expected 2 reorders, got %d", list.Stats.TotalReorders)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	orders := []domain.OrderRecord{
		deliveredOrder("o1", 50, item("p1", "Espresso", "beverage", 4.5, 2)),
		deliveredOrder("o2", 20, item("p1", "Espresso", "beverage", 4.5, 1), item("p2", "Pizza", "food", 16, 1)),
		deliveredOrder("o3", 5, item("p2", "Pizza", "food", 16, 1)),
	}

	first := Analyze(orders, testNow)
	second := Analyze(orders, testNow)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identical input and clock must produce identical output")
	}
}

func TestScoreGrowsWithFrequency(t *testing.T) {
	base := []domain.OrderRecord{
		deliveredOrder("o1", 60, item("p1", "Espresso", "beverage", 5, 1)),
		deliveredOrder("o2", 30, item("p1", "Espresso", "beverage", 5, 1)),
	}
	more := append([]domain.OrderRecord{}, base...)
	// The extra order keeps the 30-day cadence and moves the last order
	// closer to now, so every score component is >= the base case.
	more = append(more, deliveredOrder("o3", 0, item("p1", "Espresso", "beverage", 5, 1)))

	baseScore := Analyze(base, testNow).Items[0].RecommendationScore
	moreScore := Analyze(more, testNow).Items[0].RecommendationScore
	if moreScore <= baseScore {
		t.Fatalf("more frequent product should score higher: %f vs %f", moreScore, baseScore)
	}
}

func TestClassifyUrgencyBands(t *testing.T) {
	cases := []struct {
		expected float64
		elapsed  float64
		want     string
	}{
		{0, 100, domain.UrgencyLow},
		{30, 36, domain.UrgencyHigh},
		{30, 35.9, domain.UrgencyMedium},
		{30, 24, domain.UrgencyMedium},
		{30, 23.9, domain.UrgencyLow},
		{10, 40, domain.UrgencyHigh},
	}
	for _, tc := range cases {
		got := classifyUrgency(tc.expected, tc.elapsed)
		if got != tc.want {
			t.Fatalf("classifyUrgency(%f, %f) = %s, want %s", tc.expected, tc.elapsed, got, tc.want)
		}
	}
}

func TestFlattenDropsAndCoercesMalformedItems(t *testing.T) {
	orders := []domain.OrderRecord{
		deliveredOrder("o1", 10,
			item("", "No ID", "food", 5, 1),
			item("p1", "Bad Price", "food", math.NaN(), 2),
			item("p2", "Negative Qty", "food", 5, -3),
		),
	}

	facts := flattenOrders(orders)
	if len(facts) != 2 {
		t.Fatalf("expected 2 facts after dropping the id-less item, got %d", len(facts))
	}
	if facts[0].unitPrice != 0 {
		t.Fatalf("NaN price must coerce to 0, got %f", facts[0].unitPrice)
	}
	if facts[1].quantity != 0 {
		t.Fatalf("negative quantity must coerce to 0, got %d", facts[1].quantity)
	}
}

func TestFilterAndSortSearchAndCategory(t *testing.T) {
	items := []domain.ProductAggregate{
		{ProductID: "p1", Name: "Double Espresso", Category: "beverage", Frequency: 5, TotalSpent: 20, DaysSinceLastOrder: 2, RecommendationScore: 60},
		{ProductID: "p2", Name: "Club Sandwich", Category: "food", Frequency: 3, TotalSpent: 45, DaysSinceLastOrder: 10, RecommendationScore: 70},
		{ProductID: "p3", Name: "Espresso Martini", Category: "beverage", Frequency: 2, TotalSpent: 30, DaysSinceLastOrder: 1, RecommendationScore: 40},
	}

	got := FilterAndSort(items, domain.RecommendationFilter{SearchText: "espresso"})
	if len(got) != 2 {
		t.Fatalf("case-insensitive name search should match 2 items, got %d", len(got))
	}

	got = FilterAndSort(items, domain.RecommendationFilter{Category: "all"})
	if len(got) != 3 {
		t.Fatalf("category all must not filter, got %d items", len(got))
	}

	got = FilterAndSort(items, domain.RecommendationFilter{Category: "food"})
	if len(got) != 1 || got[0].ProductID != "p2" {
		t.Fatalf("expected only p2 for category food")
	}

	got = FilterAndSort(items, domain.RecommendationFilter{SortKey: SortByFrequency})
	if got[0].ProductID != "p1" {
		t.Fatalf("frequency sort should put p1 first, got %s", got[0].ProductID)
	}

	got = FilterAndSort(items, domain.RecommendationFilter{SortKey: SortByRecency})
	if got[0].ProductID != "p3" {
		t.Fatalf("recency sort should put the most recent first, got %s", got[0].ProductID)
	}

	got = FilterAndSort(items, domain.RecommendationFilter{SortKey: SortBySpending})
	if got[0].ProductID != "p2" {
		t.Fatalf("spending sort should put p2 first, got %s", got[0].ProductID)
	}

	got = FilterAndSort(items, domain.RecommendationFilter{})
	if got[0].ProductID != "p2" {
		t.Fatalf("default sort is score desc, expected p2 first, got %s", got[0].ProductID)
	}
}

type mapCache struct {
	values map[string]*domain.RecommendationList
	gets   int
	sets   int
}

func newMapCache() *mapCache {
	return &mapCache{values: make(map[string]*domain.RecommendationList)}
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.RecommendationList, bool, error) {
	c.gets++
	value, ok := c.values[key]
	return value, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.RecommendationList, _ time.Duration) error {
	c.sets++
	c.values[key] = value
	return nil
}

func TestEngineServesFromCacheUntilOrdersChange(t *testing.T) {
	cacheStore := newMapCache()
	engine := NewEngine(cacheStore, time.Minute).WithClock(func() time.Time { return testNow })

	orders := []domain.OrderRecord{
		deliveredOrder("o1", 40, item("p1", "Espresso", "beverage", 4.5, 1)),
		deliveredOrder("o2", 10, item("p1", "Espresso", "beverage", 4.5, 1)),
	}

	first := engine.Recommendations(context.Background(), "guest", orders)
	second := engine.Recommendations(context.Background(), "guest", orders)
	if cacheStore.sets != 1 {
		t.Fatalf("expected exactly one cache fill, got %d", cacheStore.sets)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached result must match the computed one")
	}

	// A new delivered order changes the snapshot identity and must bypass
	// the stale entry.
	orders = append(orders, deliveredOrder("o3", 1, item("p1", "Espresso", "beverage", 4.5, 1)))
	third := engine.Recommendations(context.Background(), "guest", orders)
	if cacheStore.sets != 2 {
		t.Fatalf("expected a second cache fill after the order set changed, got %d sets", cacheStore.sets)
	}
	if third.Items[0].Frequency != 3 {
		t.Fatalf("expected refreshed analysis with frequency 3, got %d", third.Items[0].Frequency)
	}
}

func TestBuildCacheKeyIgnoresOrderListing(t *testing.T) {
	a := deliveredOrder("o1", 10, item("p1", "Espresso", "beverage", 4.5, 1))
	b := deliveredOrder("o2", 5, item("p1", "Espresso", "beverage", 4.5, 1))

	key1 := buildCacheKey("guest", []domain.OrderRecord{a, b})
	key2 := buildCacheKey("guest", []domain.OrderRecord{b, a})
	if key1 != key2 {
		t.Fatalf("cache key must not depend on order listing")
	}

	key3 := buildCacheKey("other-guest", []domain.OrderRecord{a, b})
	if key1 == key3 {
		t.Fatalf("cache key must separate guests")
	}
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	list := Analyze(nil, testNow)
	if len(list.Items) != 0 {
		t.Fatalf("empty history must produce no items")
	}
	if list.Stats.TotalUniqueProducts != 0 || list.Stats.AvgDaysBetween != 0 {
		t.Fatalf("empty history must produce zero stats")
	}
}
