package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"innsight/backend/internal/domain"
	"innsight/backend/internal/recommendation"
	"innsight/backend/internal/store"
	"innsight/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const dateLayout = "2006-01-02"

type Service struct {
	repo           store.Repository
	recommender    *recommendation.Engine
	defaultHotelID string
	now            func() time.Time
}

func New(repo store.Repository, recommender *recommendation.Engine, defaultHotelID string) *Service {
	if defaultHotelID == "" {
		defaultHotelID = "main-hotel"
	}

	return &Service{
		repo:           repo,
		recommender:    recommender,
		defaultHotelID: defaultHotelID,
		now:            time.Now,
	}
}

// WithClock overrides the service time source for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

// resolveGuestID pins guests to their own data. Admins may act on behalf of
// any guest by passing an explicit id.
func resolveGuestID(ctx context.Context, requested string) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("authentication required")
	}
	if actor.Role == domain.RoleGuest {
		return actor.Username, nil
	}
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return "", store.ErrInvalidRecord
	}
	return requested, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Actor{}, fmt.Errorf("admin role required")
	}
	return actor, nil
}

func (s *Service) PlaceOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderRecord, error) {
	guestID, err := resolveGuestID(ctx, req.GuestID)
	if err != nil {
		return domain.OrderRecord{}, err
	}
	if len(req.Items) == 0 {
		return domain.OrderRecord{}, store.ErrInvalidRecord
	}

	// Collapse duplicate product lines so one catalog item appears once per
	// order regardless of how the client split the quantities.
	quantities := make(map[string]int, len(req.Items))
	order := make([]string, 0, len(req.Items))
	for _, item := range req.Items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" || item.Quantity < 1 {
			return domain.OrderRecord{}, store.ErrInvalidRecord
		}
		if _, seen := quantities[productID]; !seen {
			order = append(order, productID)
		}
		quantities[productID] += item.Quantity
	}

	catalog, err := s.repo.GetProductsByIDs(ctx, order)
	if err != nil {
		return domain.OrderRecord{}, err
	}

	items := make([]domain.LineItem, 0, len(order))
	var total float64
	for _, productID := range order {
		product, ok := catalog[productID]
		if !ok {
			return domain.OrderRecord{}, fmt.Errorf("unknown product: %s", productID)
		}
		qty := quantities[productID]
		items = append(items, domain.LineItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Category:    product.Category,
			Description: product.Description,
			ImageURL:    product.ImageURL,
			UnitPrice:   product.UnitPrice,
			Quantity:    qty,
		})
		total += product.UnitPrice * float64(qty)
	}

	created, err := s.repo.CreateOrder(ctx, domain.OrderRecord{
		ID:         xid.New("ord"),
		GuestID:    guestID,
		Status:     domain.OrderStatusPlaced,
		TotalPrice: total,
		CreatedAt:  s.now().UTC(),
		Items:      items,
	})
	if err != nil {
		return domain.OrderRecord{}, err
	}

	s.logAudit(ctx, "order_place", "order", created.ID, fmt.Sprintf("guest=%s,items=%d,total=%.2f", guestID, len(items), total))
	return *created, nil
}

func (s *Service) DeliverOrder(ctx context.Context, orderID string) (domain.OrderRecord, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.OrderRecord{}, err
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.OrderRecord{}, store.ErrInvalidRecord
	}

	delivered, err := s.repo.MarkOrderDelivered(ctx, orderID, s.now().UTC())
	if err != nil {
		return domain.OrderRecord{}, err
	}

	s.logAudit(ctx, "order_deliver", "order", delivered.ID, "guest="+delivered.GuestID)
	return *delivered, nil
}

func (s *Service) ListOrders(ctx context.Context, guestID string, status string, limit int) ([]domain.OrderRecord, error) {
	resolved, err := resolveGuestID(ctx, guestID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOrdersByGuest(ctx, resolved, status, limit)
}

// GuestRecommendations runs the reorder analysis over the guest's delivered
// order history and applies the caller's search/sort controls on top.
func (s *Service) GuestRecommendations(ctx context.Context, guestID string, filter domain.RecommendationFilter) (domain.RecommendationResponse, error) {
	resolved, err := resolveGuestID(ctx, guestID)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}

	orders, err := s.repo.ListDeliveredOrders(ctx, resolved)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}

	started := s.now()
	list := s.recommender.Recommendations(ctx, resolved, orders)
	latency := s.now().Sub(started)

	event := domain.RecommendationEvent{
		GuestID:     resolved,
		HotelID:     s.defaultHotelID,
		ItemCount:   len(list.Items),
		LatencyMS:   latency.Milliseconds(),
		GeneratedAt: list.GeneratedAt,
	}
	if err := s.repo.CreateRecommendationEvent(ctx, event); err != nil {
		log.Printf("[service] WARN: failed to record recommendation event guest=%s: %v", resolved, err)
	}

	return domain.RecommendationResponse{
		Items:       recommendation.FilterAndSort(list.Items, filter),
		Stats:       list.Stats,
		GeneratedAt: list.GeneratedAt,
	}, nil
}

func (s *Service) RecommendationMetrics(ctx context.Context, from time.Time, to time.Time) (domain.RecommendationMetrics, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.RecommendationMetrics{}, err
	}
	return s.repo.GetRecommendationMetrics(ctx, s.defaultHotelID, from, to)
}

func (s *Service) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	return s.repo.ListRoomTypes(ctx)
}

// Availability reports how many rooms of a type remain bookable for a stay
// window. Public, no actor required.
func (s *Service) Availability(ctx context.Context, roomType string, checkInStr string, checkOutStr string) (domain.AvailabilityResponse, error) {
	checkIn, checkOut, err := parseStayWindow(checkInStr, checkOutStr)
	if err != nil {
		return domain.AvailabilityResponse{}, err
	}

	rt, err := s.repo.GetRoomTypeByCode(ctx, strings.TrimSpace(roomType))
	if err != nil {
		return domain.AvailabilityResponse{}, err
	}

	booked, err := s.repo.CountOverlappingReservations(ctx, s.defaultHotelID, rt.Code, checkIn, checkOut, "")
	if err != nil {
		return domain.AvailabilityResponse{}, err
	}

	available := rt.TotalRooms - booked
	if available < 0 {
		available = 0
	}

	return domain.AvailabilityResponse{
		RoomType:       rt.Code,
		CheckIn:        checkIn.Format(dateLayout),
		CheckOut:       checkOut.Format(dateLayout),
		RoomsTotal:     rt.TotalRooms,
		RoomsAvailable: available,
	}, nil
}

func parseStayWindow(checkInStr string, checkOutStr string) (time.Time, time.Time, error) {
	checkIn, err := time.ParseInLocation(dateLayout, strings.TrimSpace(checkInStr), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid check_in date: %w", err)
	}
	checkOut, err := time.ParseInLocation(dateLayout, strings.TrimSpace(checkOutStr), time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid check_out date: %w", err)
	}
	if !checkIn.Before(checkOut) {
		return time.Time{}, time.Time{}, fmt.Errorf("check_out must be after check_in")
	}
	return checkIn, checkOut, nil
}

// BookRoom is the guest-facing reservation flow. The reservation is created
// as confirmed and pinned to the authenticated guest.
func (s *Service) BookRoom(ctx context.Context, req domain.BookingRequest) (domain.Reservation, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Reservation{}, fmt.Errorf("authentication required")
	}

	reservation, err := s.buildReservation(ctx, domain.ReservationCreateRequest{
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
		RoomType:   req.RoomType,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Adults:     req.Adults,
		Children:   req.Children,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	if actor.Role == domain.RoleGuest {
		reservation.GuestUsername = actor.Username
	}
	reservation.Status = domain.ReservationStatusConfirmed

	created, err := s.repo.CreateReservation(ctx, reservation)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, "booking_create", "reservation", created.ID, fmt.Sprintf("room_type=%s,check_in=%s,total_cents=%d", created.RoomType, created.CheckIn.Format(dateLayout), created.TotalCents))
	return *created, nil
}

// CreateReservation is the front-desk flow: admin only, starts pending.
func (s *Service) CreateReservation(ctx context.Context, req domain.ReservationCreateRequest) (domain.Reservation, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Reservation{}, err
	}

	reservation, err := s.buildReservation(ctx, req)
	if err != nil {
		return domain.Reservation{}, err
	}

	created, err := s.repo.CreateReservation(ctx, reservation)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, "reservation_create", "reservation", created.ID, fmt.Sprintf("room_type=%s,check_in=%s", created.RoomType, created.CheckIn.Format(dateLayout)))
	return *created, nil
}

func (s *Service) buildReservation(ctx context.Context, req domain.ReservationCreateRequest) (domain.Reservation, error) {
	req.GuestName = strings.TrimSpace(req.GuestName)
	req.GuestEmail = strings.TrimSpace(req.GuestEmail)
	req.RoomType = strings.TrimSpace(req.RoomType)
	if req.GuestName == "" || req.GuestEmail == "" || req.RoomType == "" {
		return domain.Reservation{}, store.ErrInvalidRecord
	}
	if req.Adults < 1 || req.Children < 0 {
		return domain.Reservation{}, store.ErrInvalidRecord
	}

	checkIn, checkOut, err := parseStayWindow(req.CheckIn, req.CheckOut)
	if err != nil {
		return domain.Reservation{}, err
	}

	rt, err := s.repo.GetRoomTypeByCode(ctx, req.RoomType)
	if err != nil {
		return domain.Reservation{}, err
	}
	if req.Adults+req.Children > rt.MaxGuests {
		return domain.Reservation{}, fmt.Errorf("room type %s sleeps at most %d guests", rt.Code, rt.MaxGuests)
	}

	booked, err := s.repo.CountOverlappingReservations(ctx, s.defaultHotelID, rt.Code, checkIn, checkOut, "")
	if err != nil {
		return domain.Reservation{}, err
	}
	if booked >= rt.TotalRooms {
		return domain.Reservation{}, store.ErrRoomUnavailable
	}

	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	total := rt.NightlyRateCents * int64(nights)

	promoCode := ""
	if code := strings.TrimSpace(req.PromoCode); code != "" {
		discounted, err := s.applyPromo(ctx, code, nights, total)
		if err != nil {
			return domain.Reservation{}, err
		}
		total = discounted
		promoCode = strings.ToUpper(code)
	}

	return domain.Reservation{
		ID:               xid.New("res"),
		HotelID:          s.defaultHotelID,
		GuestName:        req.GuestName,
		GuestEmail:       req.GuestEmail,
		GuestPhone:       strings.TrimSpace(req.GuestPhone),
		RoomType:         rt.Code,
		RoomNumber:       strings.TrimSpace(req.RoomNumber),
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		Adults:           req.Adults,
		Children:         req.Children,
		NightlyRateCents: rt.NightlyRateCents,
		TotalCents:       total,
		PromoCode:        promoCode,
		Status:           domain.ReservationStatusPending,
		Notes:            strings.TrimSpace(req.Notes),
		CreatedAt:        s.now().UTC(),
	}, nil
}

func (s *Service) applyPromo(ctx context.Context, code string, nights int, totalCents int64) (int64, error) {
	promo, err := s.repo.GetPromoByCode(ctx, code)
	if err != nil {
		return 0, fmt.Errorf("unknown promo code: %s", code)
	}

	now := s.now().UTC()
	if !promo.Active || now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return 0, fmt.Errorf("promo code %s is not currently valid", promo.Code)
	}
	if nights < promo.MinNights {
		return 0, fmt.Errorf("promo code %s requires a stay of at least %d nights", promo.Code, promo.MinNights)
	}

	discounted := totalCents
	switch promo.Type {
	case domain.PromoTypePercent:
		discounted = totalCents - int64(float64(totalCents)*promo.DiscountPercent/100)
	case domain.PromoTypeFlat:
		discounted = totalCents - promo.FlatDiscountCents
	}
	if discounted < 0 {
		discounted = 0
	}
	return discounted, nil
}

func (s *Service) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Reservation{}, fmt.Errorf("authentication required")
	}

	res, err := s.repo.GetReservationByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Reservation{}, err
	}
	if actor.Role == domain.RoleGuest && res.GuestUsername != actor.Username {
		return domain.Reservation{}, store.ErrNotFound
	}
	return *res, nil
}

func (s *Service) UpdateReservation(ctx context.Context, id string, req domain.ReservationUpdateRequest) (domain.Reservation, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Reservation{}, err
	}

	existing, err := s.repo.GetReservationByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Reservation{}, err
	}
	switch existing.Status {
	case domain.ReservationStatusCancelled, domain.ReservationStatusCheckedOut:
		return domain.Reservation{}, fmt.Errorf("reservation %s is %s and can no longer be edited", existing.ID, existing.Status)
	}

	res := *existing
	if req.GuestName != nil {
		res.GuestName = strings.TrimSpace(*req.GuestName)
	}
	if req.GuestEmail != nil {
		res.GuestEmail = strings.TrimSpace(*req.GuestEmail)
	}
	if req.GuestPhone != nil {
		res.GuestPhone = strings.TrimSpace(*req.GuestPhone)
	}
	if req.RoomNumber != nil {
		res.RoomNumber = strings.TrimSpace(*req.RoomNumber)
	}
	if req.Adults != nil {
		res.Adults = *req.Adults
	}
	if req.Children != nil {
		res.Children = *req.Children
	}
	if req.Notes != nil {
		res.Notes = strings.TrimSpace(*req.Notes)
	}
	if res.GuestName == "" || res.GuestEmail == "" || res.Adults < 1 || res.Children < 0 {
		return domain.Reservation{}, store.ErrInvalidRecord
	}

	datesChanged := false
	checkInStr := res.CheckIn.Format(dateLayout)
	checkOutStr := res.CheckOut.Format(dateLayout)
	if req.CheckIn != nil {
		checkInStr = *req.CheckIn
		datesChanged = true
	}
	if req.CheckOut != nil {
		checkOutStr = *req.CheckOut
		datesChanged = true
	}
	if datesChanged {
		checkIn, checkOut, err := parseStayWindow(checkInStr, checkOutStr)
		if err != nil {
			return domain.Reservation{}, err
		}

		booked, err := s.repo.CountOverlappingReservations(ctx, res.HotelID, res.RoomType, checkIn, checkOut, res.ID)
		if err != nil {
			return domain.Reservation{}, err
		}
		rt, err := s.repo.GetRoomTypeByCode(ctx, res.RoomType)
		if err != nil {
			return domain.Reservation{}, err
		}
		if booked >= rt.TotalRooms {
			return domain.Reservation{}, store.ErrRoomUnavailable
		}

		res.CheckIn = checkIn
		res.CheckOut = checkOut
		nights := int(checkOut.Sub(checkIn).Hours() / 24)
		// Date edits reprice at the stored nightly rate; any promo discount
		// from the original booking is not re-applied.
		res.TotalCents = res.NightlyRateCents * int64(nights)
		res.PromoCode = ""
	}

	updated, err := s.repo.UpdateReservation(ctx, res)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, "reservation_update", "reservation", updated.ID, "status="+updated.Status)
	return *updated, nil
}

func (s *Service) CheckInReservation(ctx context.Context, id string, roomNumber string) (domain.Reservation, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Reservation{}, err
	}

	existing, err := s.repo.GetReservationByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Reservation{}, err
	}
	switch existing.Status {
	case domain.ReservationStatusPending, domain.ReservationStatusConfirmed:
	default:
		return domain.Reservation{}, fmt.Errorf("reservation %s cannot be checked in from status %s", existing.ID, existing.Status)
	}

	res := *existing
	res.Status = domain.ReservationStatusCheckedIn
	if roomNumber = strings.TrimSpace(roomNumber); roomNumber != "" {
		res.RoomNumber = roomNumber
	}

	updated, err := s.repo.UpdateReservation(ctx, res)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, "reservation_check_in", "reservation", updated.ID, "room="+updated.RoomNumber)
	return *updated, nil
}

func (s *Service) CheckOutReservation(ctx context.Context, id string) (domain.Reservation, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Reservation{}, err
	}

	existing, err := s.repo.GetReservationByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Reservation{}, err
	}
	if existing.Status != domain.ReservationStatusCheckedIn {
		return domain.Reservation{}, fmt.Errorf("reservation %s cannot be checked out from status %s", existing.ID, existing.Status)
	}

	res := *existing
	res.Status = domain.ReservationStatusCheckedOut

	updated, err := s.repo.UpdateReservation(ctx, res)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, "reservation_check_out", "reservation", updated.ID, "")
	return *updated, nil
}

// CancelReservation voids a reservation. Cancelling an in-house stay needs
// the manager override flag, which the transport layer sets only after PIN
// verification.
func (s *Service) CancelReservation(ctx context.Context, id string, reason string, managerOverride bool) (domain.Reservation, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Reservation{}, fmt.Errorf("authentication required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.Reservation{}, fmt.Errorf("cancellation reason required")
	}

	existing, err := s.repo.GetReservationByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Reservation{}, err
	}
	if actor.Role == domain.RoleGuest && existing.GuestUsername != actor.Username {
		return domain.Reservation{}, store.ErrNotFound
	}

	switch existing.Status {
	case domain.ReservationStatusCancelled, domain.ReservationStatusCheckedOut:
		return domain.Reservation{}, fmt.Errorf("reservation %s is already %s", existing.ID, existing.Status)
	case domain.ReservationStatusCheckedIn:
		if actor.Role != domain.RoleAdmin {
			return domain.Reservation{}, fmt.Errorf("admin role required")
		}
		if !managerOverride {
			return domain.Reservation{}, fmt.Errorf("manager PIN required to cancel an in-house reservation")
		}
	}

	res := *existing
	res.Status = domain.ReservationStatusCancelled
	if res.Notes != "" {
		res.Notes += "; "
	}
	res.Notes += "cancelled: " + reason

	updated, err := s.repo.UpdateReservation(ctx, res)
	if err != nil {
		return domain.Reservation{}, err
	}

	s.logAudit(ctx, "reservation_cancel", "reservation", updated.ID, "reason="+reason)
	return *updated, nil
}

func (s *Service) ListReservations(ctx context.Context, status string, from time.Time, to time.Time, limit int) ([]domain.Reservation, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("authentication required")
	}

	reservations, err := s.repo.ListReservations(ctx, s.defaultHotelID, status, from, to, limit)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleGuest {
		own := make([]domain.Reservation, 0, 4)
		for _, res := range reservations {
			if res.GuestUsername == actor.Username {
				own = append(own, res)
			}
		}
		return own, nil
	}
	return reservations, nil
}

func (s *Service) CreatePromo(ctx context.Context, req domain.PromoCreateRequest) (domain.Promotion, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Promotion{}, err
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		return domain.Promotion{}, store.ErrInvalidRecord
	}

	switch req.Type {
	case domain.PromoTypePercent:
		if req.DiscountPercent <= 0 || req.DiscountPercent > 100 {
			return domain.Promotion{}, fmt.Errorf("discount_percent must be in (0, 100]")
		}
	case domain.PromoTypeFlat:
		if req.FlatDiscountCents < 1 {
			return domain.Promotion{}, fmt.Errorf("flat_discount_cents must be positive")
		}
	default:
		return domain.Promotion{}, fmt.Errorf("unknown promo type: %s", req.Type)
	}
	if req.MinNights < 0 {
		return domain.Promotion{}, store.ErrInvalidRecord
	}

	validFrom, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.ValidFrom), time.UTC)
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("invalid valid_from date: %w", err)
	}
	validUntil, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.ValidUntil), time.UTC)
	if err != nil {
		return domain.Promotion{}, fmt.Errorf("invalid valid_until date: %w", err)
	}
	if !validFrom.Before(validUntil) {
		return domain.Promotion{}, fmt.Errorf("valid_until must be after valid_from")
	}

	created, err := s.repo.CreatePromo(ctx, domain.Promotion{
		ID:                xid.New("promo"),
		Code:              req.Code,
		Name:              req.Name,
		Type:              req.Type,
		DiscountPercent:   req.DiscountPercent,
		FlatDiscountCents: req.FlatDiscountCents,
		MinNights:         req.MinNights,
		ValidFrom:         validFrom,
		ValidUntil:        validUntil.Add(24*time.Hour - time.Nanosecond),
		Active:            true,
		CreatedAt:         s.now().UTC(),
	})
	if err != nil {
		return domain.Promotion{}, err
	}

	s.logAudit(ctx, "promo_create", "promo", created.ID, "code="+created.Code)
	return *created, nil
}

func (s *Service) ListPromos(ctx context.Context) ([]domain.Promotion, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListPromos(ctx)
}

// ActivePromos is the guest-visible subset: active and inside the validity
// window right now.
func (s *Service) ActivePromos(ctx context.Context) ([]domain.Promotion, error) {
	promos, err := s.repo.ListPromos(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	active := make([]domain.Promotion, 0, len(promos))
	for _, promo := range promos {
		if promo.Active && !now.Before(promo.ValidFrom) && !now.After(promo.ValidUntil) {
			active = append(active, promo)
		}
	}
	return active, nil
}

func (s *Service) TogglePromo(ctx context.Context, promoID string, active bool) (domain.Promotion, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Promotion{}, err
	}

	updated, err := s.repo.UpdatePromoActive(ctx, strings.TrimSpace(promoID), active)
	if err != nil {
		return domain.Promotion{}, err
	}

	s.logAudit(ctx, "promo_toggle", "promo", updated.ID, fmt.Sprintf("active=%t", active))
	return *updated, nil
}

// SendChatMessage appends to a guest conversation. Guests always write to
// their own conversation; admins must name one.
func (s *Service) SendChatMessage(ctx context.Context, req domain.ChatSendRequest) (domain.ChatMessage, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ChatMessage{}, fmt.Errorf("authentication required")
	}

	body := strings.TrimSpace(req.Body)
	if body == "" {
		return domain.ChatMessage{}, fmt.Errorf("message body required")
	}
	if len(body) > 2000 {
		return domain.ChatMessage{}, fmt.Errorf("message body too long")
	}

	conversationID := strings.TrimSpace(req.ConversationID)
	if actor.Role == domain.RoleGuest {
		conversationID = actor.Username
	}
	if conversationID == "" {
		return domain.ChatMessage{}, fmt.Errorf("conversation_id required")
	}

	created, err := s.repo.AppendChatMessage(ctx, domain.ChatMessage{
		ID:             xid.New("msg"),
		ConversationID: conversationID,
		SenderUsername: actor.Username,
		SenderRole:     actor.Role,
		Body:           body,
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return *created, nil
}

// PollChatMessages returns messages after the caller's cursor along with the
// new cursor. An unchanged cursor means nothing new arrived.
func (s *Service) PollChatMessages(ctx context.Context, conversationID string, afterSeq int64, limit int) (domain.ChatPollResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.ChatPollResponse{}, fmt.Errorf("authentication required")
	}

	conversationID = strings.TrimSpace(conversationID)
	if actor.Role == domain.RoleGuest {
		conversationID = actor.Username
	}
	if conversationID == "" {
		return domain.ChatPollResponse{}, fmt.Errorf("conversation_id required")
	}
	if afterSeq < 0 {
		afterSeq = 0
	}

	messages, err := s.repo.ListChatMessages(ctx, conversationID, afterSeq, limit)
	if err != nil {
		return domain.ChatPollResponse{}, err
	}

	lastSeq := afterSeq
	if len(messages) > 0 {
		lastSeq = messages[len(messages)-1].Seq
	}

	return domain.ChatPollResponse{
		ConversationID: conversationID,
		Messages:       messages,
		LastSeq:        lastSeq,
	}, nil
}

func (s *Service) ListChatConversations(ctx context.Context, limit int) ([]domain.ChatConversation, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListChatConversations(ctx, limit)
}

func (s *Service) OccupancyReport(ctx context.Context, dateStr string) (domain.OccupancyReport, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.OccupancyReport{}, err
	}

	date := s.now().UTC()
	if dateStr = strings.TrimSpace(dateStr); dateStr != "" {
		parsed, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
		if err != nil {
			return domain.OccupancyReport{}, fmt.Errorf("invalid date: %w", err)
		}
		date = parsed
	}

	return s.repo.GetOccupancyReport(ctx, s.defaultHotelID, date)
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, s.defaultHotelID, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, _ := ActorFromContext(ctx)
	entry := domain.AuditLog{
		ID:            xid.New("audit"),
		HotelID:       s.defaultHotelID,
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		log.Printf("[service] WARN: failed to write audit log action=%s: %v", action, err)
	}
}
