package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"innsight/backend/internal/domain"
	"innsight/backend/internal/store"
	"innsight/backend/internal/xid"
)

type Store struct {
	mu                sync.RWMutex
	products          map[string]domain.Product
	ordersByID        map[string]domain.OrderRecord
	roomTypes         map[string]domain.RoomType
	reservationsByID  map[string]domain.Reservation
	promosByID        map[string]domain.Promotion
	chatMessages      map[string][]domain.ChatMessage
	chatSeq           map[string]int64
	auditLogs         []domain.AuditLog
	recommendationLog []domain.RecommendationEvent
	usersByUsername   map[string]domain.UserAccount
}

// seedUsers builds the initial accounts for dev/demo mode. Credentials come
// from SEED_ADMIN_PASSWORD and SEED_GUEST_PASSWORD; hardcoded dev defaults
// are used with a warning when unset. Production deployments use PostgreSQL
// (DATABASE_URL) and never touch this path.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	guestPwd := envOr("SEED_GUEST_PASSWORD", "guest123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_GUEST_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_GUEST_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
		fullName string
	}{
		{"admin", adminPwd, domain.RoleAdmin, "Front Desk Admin"},
		{"guest", guestPwd, domain.RoleGuest, "Amelia Tan"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			FullName:  u.fullName,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	products := []domain.Product{
		{ID: "prod-club-sandwich", Name: "Club Sandwich", Category: "food", Description: "Triple-decker with fries", UnitPrice: 14.50, Active: true},
		{ID: "prod-caesar-salad", Name: "Caesar Salad", Category: "food", Description: "Romaine, parmesan, house dressing", UnitPrice: 11.00, Active: true},
		{ID: "prod-margherita", Name: "Margherita Pizza", Category: "food", Description: "Wood-fired, basil, mozzarella", UnitPrice: 16.00, Active: true},
		{ID: "prod-espresso", Name: "Double Espresso", Category: "beverage", Description: "Single-origin roast", UnitPrice: 4.50, Active: true},
		{ID: "prod-fresh-juice", Name: "Fresh Orange Juice", Category: "beverage", UnitPrice: 6.00, Active: true},
		{ID: "prod-house-red", Name: "House Red (Glass)", Category: "beverage", UnitPrice: 9.00, Active: true},
		{ID: "prod-still-water", Name: "Still Water 750ml", Category: "beverage", UnitPrice: 3.50, Active: true},
		{ID: "prod-cheesecake", Name: "Baked Cheesecake", Category: "dessert", UnitPrice: 8.00, Active: true},
		{ID: "prod-fruit-plate", Name: "Seasonal Fruit Plate", Category: "dessert", UnitPrice: 7.50, Active: true},
		{ID: "prod-laundry-bag", Name: "Laundry Service (Bag)", Category: "amenity", UnitPrice: 22.00, Active: true},
		{ID: "prod-spa-kit", Name: "In-Room Spa Kit", Category: "amenity", UnitPrice: 35.00, Active: true},
	}

	roomTypes := []domain.RoomType{
		{Code: "standard", Name: "Standard Queen", Description: "City view, queen bed", NightlyRateCents: 12900, TotalRooms: 24, MaxGuests: 2, Active: true},
		{Code: "deluxe", Name: "Deluxe King", Description: "Corner room, king bed", NightlyRateCents: 18900, TotalRooms: 16, MaxGuests: 3, Active: true},
		{Code: "family", Name: "Family Suite", Description: "Two bedrooms, kitchenette", NightlyRateCents: 25900, TotalRooms: 8, MaxGuests: 5, Active: true},
		{Code: "penthouse", Name: "Penthouse Suite", Description: "Top floor, terrace", NightlyRateCents: 49900, TotalRooms: 2, MaxGuests: 4, Active: true},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	roomTypeMap := make(map[string]domain.RoomType, len(roomTypes))
	for _, rt := range roomTypes {
		roomTypeMap[rt.Code] = rt
	}

	s := &Store{
		products:          productMap,
		ordersByID:        make(map[string]domain.OrderRecord),
		roomTypes:         roomTypeMap,
		reservationsByID:  make(map[string]domain.Reservation),
		promosByID:        make(map[string]domain.Promotion),
		chatMessages:      make(map[string][]domain.ChatMessage),
		chatSeq:           make(map[string]int64),
		auditLogs:         make([]domain.AuditLog, 0, 128),
		recommendationLog: make([]domain.RecommendationEvent, 0, 64),
		usersByUsername:   seedUsers(),
	}
	s.seedOrders()
	s.seedPromos()
	return s
}

// seedOrders gives the demo guest a delivered order history with a few
// repeat products so the recommendations view has something to show.
func (s *Store) seedOrders() {
	now := time.Now().UTC()
	item := func(id string, qty int) domain.LineItem {
		p := s.products[id]
		return domain.LineItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Category:    p.Category,
			Description: p.Description,
			UnitPrice:   p.UnitPrice,
			Quantity:    qty,
		}
	}

	histories := []struct {
		daysAgo int
		items   []domain.LineItem
	}{
		{84, []domain.LineItem{item("prod-club-sandwich", 1), item("prod-espresso", 2)}},
		{63, []domain.LineItem{item("prod-club-sandwich", 1), item("prod-still-water", 2)}},
		{55, []domain.LineItem{item("prod-margherita", 1), item("prod-house-red", 2)}},
		{35, []domain.LineItem{item("prod-club-sandwich", 2), item("prod-espresso", 2), item("prod-cheesecake", 1)}},
		{27, []domain.LineItem{item("prod-espresso", 1), item("prod-fresh-juice", 1)}},
		{12, []domain.LineItem{item("prod-margherita", 1), item("prod-still-water", 1)}},
		{4, []domain.LineItem{item("prod-espresso", 2), item("prod-cheesecake", 1)}},
	}

	for i, h := range histories {
		createdAt := now.AddDate(0, 0, -h.daysAgo)
		deliveredAt := createdAt.Add(40 * time.Minute)
		var total float64
		for _, li := range h.items {
			total += li.UnitPrice * float64(li.Quantity)
		}
		order := domain.OrderRecord{
			ID:          xid.New("ord"),
			OrderNumber: orderNumberFor(createdAt, i+1),
			GuestID:     "guest",
			Status:      domain.OrderStatusDelivered,
			TotalPrice:  total,
			CreatedAt:   createdAt,
			DeliveredAt: &deliveredAt,
			Items:       h.items,
		}
		s.ordersByID[order.ID] = order
	}
}

func (s *Store) seedPromos() {
	now := time.Now().UTC()
	promo := domain.Promotion{
		ID:              xid.New("promo"),
		Code:            "STAYLONGER",
		Name:            "Stay Longer, Save 15%",
		Type:            domain.PromoTypePercent,
		DiscountPercent: 15,
		MinNights:       3,
		ValidFrom:       now.AddDate(0, -1, 0),
		ValidUntil:      now.AddDate(0, 6, 0),
		Active:          true,
		CreatedAt:       now,
	}
	s.promosByID[promo.ID] = promo
}

func orderNumberFor(at time.Time, n int) string {
	return at.Format("RS-20060102") + "-" + padSeq(n)
}

func padSeq(n int) string {
	switch {
	case n < 10:
		return "00" + itoa(n)
	case n < 100:
		return "0" + itoa(n)
	default:
		return itoa(n)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := make([]byte, 0, 4)
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok && p.Active {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.OrderRecord) (*domain.OrderRecord, error) {
	if order.GuestID == "" || len(order.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPlaced
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if order.OrderNumber == "" {
		order.OrderNumber = orderNumberFor(order.CreatedAt, len(s.ordersByID)+1)
	}
	s.ordersByID[order.ID] = order
	created := order
	return &created, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.ordersByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := order
	return &found, nil
}

func (s *Store) ListOrdersByGuest(_ context.Context, guestID string, status string, limit int) ([]domain.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.OrderRecord, 0, 16)
	for _, order := range s.ordersByID {
		if order.GuestID != guestID {
			continue
		}
		if status != "" && order.Status != status {
			continue
		}
		orders = append(orders, order)
	}

	slices.SortFunc(orders, func(a, b domain.OrderRecord) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *Store) ListDeliveredOrders(ctx context.Context, guestID string) ([]domain.OrderRecord, error) {
	orders, err := s.ListOrdersByGuest(ctx, guestID, domain.OrderStatusDelivered, 0)
	if err != nil {
		return nil, err
	}
	// Analysis wants chronological order.
	slices.SortFunc(orders, func(a, b domain.OrderRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return orders, nil
}

func (s *Store) MarkOrderDelivered(_ context.Context, orderID string, at time.Time) (*domain.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.ordersByID[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if order.Status != domain.OrderStatusPlaced {
		return nil, store.ErrInvalidRecord
	}
	order.Status = domain.OrderStatusDelivered
	deliveredAt := at.UTC()
	order.DeliveredAt = &deliveredAt
	s.ordersByID[orderID] = order
	updated := order
	return &updated, nil
}

func (s *Store) ListRoomTypes(_ context.Context) ([]domain.RoomType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	roomTypes := make([]domain.RoomType, 0, len(s.roomTypes))
	for _, rt := range s.roomTypes {
		if !rt.Active {
			continue
		}
		roomTypes = append(roomTypes, rt)
	}
	slices.SortFunc(roomTypes, func(a, b domain.RoomType) int {
		if a.NightlyRateCents == b.NightlyRateCents {
			return strings.Compare(a.Code, b.Code)
		}
		if a.NightlyRateCents < b.NightlyRateCents {
			return -1
		}
		return 1
	})
	return roomTypes, nil
}

func (s *Store) GetRoomTypeByCode(_ context.Context, code string) (*domain.RoomType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rt, ok := s.roomTypes[code]
	if !ok || !rt.Active {
		return nil, store.ErrNotFound
	}
	found := rt
	return &found, nil
}

// reservationBlocksRoom reports whether a reservation in this status still
// occupies inventory for overlap counting.
func reservationBlocksRoom(status string) bool {
	switch status {
	case domain.ReservationStatusPending, domain.ReservationStatusConfirmed, domain.ReservationStatusCheckedIn:
		return true
	default:
		return false
	}
}

func (s *Store) CountOverlappingReservations(_ context.Context, hotelID string, roomType string, checkIn time.Time, checkOut time.Time, excludeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, res := range s.reservationsByID {
		if res.HotelID != hotelID || res.RoomType != roomType || res.ID == excludeID {
			continue
		}
		if !reservationBlocksRoom(res.Status) {
			continue
		}
		if res.CheckIn.Before(checkOut) && checkIn.Before(res.CheckOut) {
			count++
		}
	}
	return count, nil
}

func (s *Store) CreateReservation(_ context.Context, reservation domain.Reservation) (*domain.Reservation, error) {
	if reservation.GuestName == "" || reservation.RoomType == "" || !reservation.CheckIn.Before(reservation.CheckOut) {
		return nil, store.ErrInvalidRecord
	}
	if reservation.ID == "" {
		reservation.ID = xid.New("res")
	}
	now := time.Now().UTC()
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = now
	}
	reservation.UpdatedAt = now
	if reservation.Status == "" {
		reservation.Status = domain.ReservationStatusPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservationsByID[reservation.ID] = reservation
	created := reservation
	return &created, nil
}

func (s *Store) GetReservationByID(_ context.Context, id string) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.reservationsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := res
	return &found, nil
}

func (s *Store) UpdateReservation(_ context.Context, reservation domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reservationsByID[reservation.ID]; !ok {
		return nil, store.ErrNotFound
	}
	reservation.UpdatedAt = time.Now().UTC()
	s.reservationsByID[reservation.ID] = reservation
	updated := reservation
	return &updated, nil
}

func (s *Store) ListReservations(_ context.Context, hotelID string, status string, from time.Time, to time.Time, limit int) ([]domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reservations := make([]domain.Reservation, 0, 32)
	for _, res := range s.reservationsByID {
		if hotelID != "" && res.HotelID != hotelID {
			continue
		}
		if status != "" && res.Status != status {
			continue
		}
		if !from.IsZero() && res.CheckOut.Before(from) {
			continue
		}
		if !to.IsZero() && res.CheckIn.After(to) {
			continue
		}
		reservations = append(reservations, res)
	}

	slices.SortFunc(reservations, func(a, b domain.Reservation) int {
		return a.CheckIn.Compare(b.CheckIn)
	})
	if limit > 0 && len(reservations) > limit {
		reservations = reservations[:limit]
	}
	return reservations, nil
}

func (s *Store) CreatePromo(_ context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if promo.Code == "" || promo.Name == "" {
		return nil, store.ErrInvalidRecord
	}
	if promo.ID == "" {
		promo.ID = xid.New("promo")
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.promosByID {
		if strings.EqualFold(existing.Code, promo.Code) {
			return nil, store.ErrInvalidRecord
		}
	}
	s.promosByID[promo.ID] = promo
	created := promo
	return &created, nil
}

func (s *Store) ListPromos(_ context.Context) ([]domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	promos := make([]domain.Promotion, 0, len(s.promosByID))
	for _, promo := range s.promosByID {
		promos = append(promos, promo)
	}
	slices.SortFunc(promos, func(a, b domain.Promotion) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return promos, nil
}

func (s *Store) GetPromoByCode(_ context.Context, code string) (*domain.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, promo := range s.promosByID {
		if strings.EqualFold(promo.Code, code) {
			found := promo
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) UpdatePromoActive(_ context.Context, promoID string, active bool) (*domain.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	promo, ok := s.promosByID[promoID]
	if !ok {
		return nil, store.ErrNotFound
	}
	promo.Active = active
	s.promosByID[promoID] = promo
	updated := promo
	return &updated, nil
}

func (s *Store) AppendChatMessage(_ context.Context, message domain.ChatMessage) (*domain.ChatMessage, error) {
	if message.ConversationID == "" || strings.TrimSpace(message.Body) == "" {
		return nil, store.ErrInvalidRecord
	}
	if message.ID == "" {
		message.ID = xid.New("msg")
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chatSeq[message.ConversationID]++
	message.Seq = s.chatSeq[message.ConversationID]
	s.chatMessages[message.ConversationID] = append(s.chatMessages[message.ConversationID], message)
	created := message
	return &created, nil
}

func (s *Store) ListChatMessages(_ context.Context, conversationID string, afterSeq int64, limit int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]domain.ChatMessage, 0, 16)
	for _, msg := range s.chatMessages[conversationID] {
		if msg.Seq <= afterSeq {
			continue
		}
		messages = append(messages, msg)
		if limit > 0 && len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) ListChatConversations(_ context.Context, limit int) ([]domain.ChatConversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversations := make([]domain.ChatConversation, 0, len(s.chatMessages))
	for conversationID, messages := range s.chatMessages {
		if len(messages) == 0 {
			continue
		}
		last := messages[len(messages)-1]
		conversations = append(conversations, domain.ChatConversation{
			ConversationID: conversationID,
			LastSenderRole: last.SenderRole,
			LastBody:       last.Body,
			LastMessageAt:  last.CreatedAt,
			MessageCount:   len(messages),
		})
	}

	slices.SortFunc(conversations, func(a, b domain.ChatConversation) int {
		return b.LastMessageAt.Compare(a.LastMessageAt)
	})
	if limit > 0 && len(conversations) > limit {
		conversations = conversations[:limit]
	}
	return conversations, nil
}

func (s *Store) GetOccupancyReport(_ context.Context, hotelID string, date time.Time) (domain.OccupancyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := date.UTC().Truncate(24 * time.Hour)
	nextDay := day.AddDate(0, 0, 1)

	report := domain.OccupancyReport{
		HotelID: hotelID,
		Date:    day.Format("2006-01-02"),
	}

	byType := make(map[string]*domain.OccupancyByRoomType, len(s.roomTypes))
	codes := make([]string, 0, len(s.roomTypes))
	for code, rt := range s.roomTypes {
		if !rt.Active {
			continue
		}
		report.RoomsTotal += rt.TotalRooms
		byType[code] = &domain.OccupancyByRoomType{RoomType: code, RoomsTotal: rt.TotalRooms}
		codes = append(codes, code)
	}

	for _, res := range s.reservationsByID {
		if hotelID != "" && res.HotelID != hotelID {
			continue
		}
		switch res.Status {
		case domain.ReservationStatusConfirmed, domain.ReservationStatusCheckedIn:
		default:
			continue
		}

		occupiesNight := res.CheckIn.Before(nextDay) && day.Before(res.CheckOut)
		if occupiesNight {
			report.RoomsOccupied++
			report.ActiveReservations++
			report.RevenueCents += res.NightlyRateCents
			if bucket, ok := byType[res.RoomType]; ok {
				bucket.RoomsOccupied++
				bucket.RevenueCents += res.NightlyRateCents
			}
		}
		if sameDay(res.CheckIn, day) {
			report.ArrivalsToday++
		}
		if sameDay(res.CheckOut, day) {
			report.DeparturesToday++
		}
	}

	if report.RoomsTotal > 0 {
		report.OccupancyRate = float64(report.RoomsOccupied) / float64(report.RoomsTotal)
	}

	slices.Sort(codes)
	for _, code := range codes {
		report.ByRoomType = append(report.ByRoomType, *byType[code])
	}
	return report, nil
}

func sameDay(t time.Time, day time.Time) bool {
	return t.UTC().Truncate(24 * time.Hour).Equal(day)
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, hotelID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, 32)
	for _, entry := range s.auditLogs {
		if hotelID != "" && entry.HotelID != hotelID {
			continue
		}
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
	}

	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateRecommendationEvent(_ context.Context, event domain.RecommendationEvent) error {
	if event.GeneratedAt.IsZero() {
		event.GeneratedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendationLog = append(s.recommendationLog, event)
	return nil
}

func (s *Store) GetRecommendationMetrics(_ context.Context, hotelID string, from time.Time, to time.Time) (domain.RecommendationMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var metrics domain.RecommendationMetrics
	var itemSum, latencySum int64
	for _, event := range s.recommendationLog {
		if hotelID != "" && event.HotelID != hotelID {
			continue
		}
		if !from.IsZero() && event.GeneratedAt.Before(from) {
			continue
		}
		if !to.IsZero() && event.GeneratedAt.After(to) {
			continue
		}
		metrics.Runs++
		itemSum += int64(event.ItemCount)
		latencySum += event.LatencyMS
	}
	if metrics.Runs > 0 {
		metrics.AvgItemCount = float64(itemSum) / float64(metrics.Runs)
		metrics.AvgLatencyMS = float64(latencySum) / float64(metrics.Runs)
	}
	return metrics, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidRecord
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
