package domain

import "time"

// OrderRecord is a room-service order as stored for a guest. Only orders
// with status "delivered" participate in reorder analysis.
type OrderRecord struct {
	ID          string     `json:"id"`
	OrderNumber string     `json:"order_number"`
	GuestID     string     `json:"guest_id"`
	Status      string     `json:"status"`
	TotalPrice  float64    `json:"total_price"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	Items       []LineItem `json:"line_items"`
}

type LineItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

type OrderCreateRequest struct {
	GuestID string           `json:"guest_id,omitempty"`
	Items   []OrderItemInput `json:"items"`
}

type OrderItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderListResponse struct {
	Orders []OrderRecord `json:"orders"`
}

// Product is a room-service catalog item. Unit prices are floats because
// they only feed the tolerant analytics pipeline and display; reservation
// billing amounts below use integer cents.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	UnitPrice   float64 `json:"unit_price"`
	Active      bool    `json:"active"`
}

// ProductAggregate is the per-product result of one analysis run. It is
// rebuilt from scratch on every run and has no identity across runs.
type ProductAggregate struct {
	ProductID           string      `json:"product_id"`
	Name                string      `json:"name"`
	Category            string      `json:"category"`
	Description         string      `json:"description,omitempty"`
	ImageURL            string      `json:"image_url,omitempty"`
	TotalQuantity       int         `json:"total_quantity"`
	TotalSpent          float64     `json:"total_spent"`
	Frequency           int         `json:"frequency"`
	AvgPrice            float64     `json:"avg_price"`
	AvgQuantityPerOrder float64     `json:"avg_quantity_per_order"`
	FirstOrderDate      time.Time   `json:"first_order_date"`
	LastOrderDate       time.Time   `json:"last_order_date"`
	OrderDates          []time.Time `json:"order_dates"`
	AvgDaysBetween      float64     `json:"avg_days_between_orders"`
	DaysSinceLastOrder  float64     `json:"days_since_last_order"`
	RecommendationScore float64     `json:"recommendation_score"`
	IsRecommended       bool        `json:"is_recommended"`
	Urgency             string      `json:"urgency"`
	NextOrderPrediction *time.Time  `json:"next_order_prediction,omitempty"`
}

const (
	UrgencyLow    = "low"
	UrgencyMedium = "medium"
	UrgencyHigh   = "high"
)

// RecommendationStats summarizes the unfiltered qualifying set of one
// analysis run.
type RecommendationStats struct {
	TotalUniqueProducts int     `json:"total_unique_products"`
	FrequentlyOrdered   int     `json:"frequently_ordered"`
	TotalReorders       int     `json:"total_reorders"`
	AvgDaysBetween      float64 `json:"avg_days_between_orders"`
}

type RecommendationList struct {
	Items       []ProductAggregate  `json:"items"`
	Stats       RecommendationStats `json:"stats"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// RecommendationFilter carries the presentation-layer search/sort controls.
type RecommendationFilter struct {
	SearchText string `json:"search_text"`
	Category   string `json:"category"`
	SortKey    string `json:"sort_key"`
}

type RecommendationResponse struct {
	Items       []ProductAggregate  `json:"items"`
	Stats       RecommendationStats `json:"stats"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// RecommendationEvent records one analysis run for engagement metrics.
type RecommendationEvent struct {
	GuestID     string
	HotelID     string
	ItemCount   int
	LatencyMS   int64
	GeneratedAt time.Time
}

type RecommendationMetrics struct {
	Runs         int64   `json:"runs"`
	AvgItemCount float64 `json:"avg_item_count"`
	AvgLatencyMS float64 `json:"avg_latency_ms"`
}

type RoomType struct {
	Code             string `json:"code"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	NightlyRateCents int64  `json:"nightly_rate_cents"`
	TotalRooms       int    `json:"total_rooms"`
	MaxGuests        int    `json:"max_guests"`
	Active           bool   `json:"active"`
}

type AvailabilityResponse struct {
	RoomType       string `json:"room_type"`
	CheckIn        string `json:"check_in"`
	CheckOut       string `json:"check_out"`
	RoomsTotal     int    `json:"rooms_total"`
	RoomsAvailable int    `json:"rooms_available"`
}

type Reservation struct {
	ID               string    `json:"id"`
	HotelID          string    `json:"hotel_id"`
	GuestUsername    string    `json:"guest_username,omitempty"`
	GuestName        string    `json:"guest_name"`
	GuestEmail       string    `json:"guest_email"`
	GuestPhone       string    `json:"guest_phone,omitempty"`
	RoomType         string    `json:"room_type"`
	RoomNumber       string    `json:"room_number,omitempty"`
	CheckIn          time.Time `json:"check_in"`
	CheckOut         time.Time `json:"check_out"`
	Adults           int       `json:"adults"`
	Children         int       `json:"children"`
	NightlyRateCents int64     `json:"nightly_rate_cents"`
	TotalCents       int64     `json:"total_cents"`
	PromoCode        string    `json:"promo_code,omitempty"`
	Status           string    `json:"status"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const (
	ReservationStatusPending    = "pending"
	ReservationStatusConfirmed  = "confirmed"
	ReservationStatusCheckedIn  = "checked_in"
	ReservationStatusCheckedOut = "checked_out"
	ReservationStatusCancelled  = "cancelled"
)

type ReservationCreateRequest struct {
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone,omitempty"`
	RoomType   string `json:"room_type"`
	RoomNumber string `json:"room_number,omitempty"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	PromoCode  string `json:"promo_code,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type ReservationUpdateRequest struct {
	GuestName  *string `json:"guest_name,omitempty"`
	GuestEmail *string `json:"guest_email,omitempty"`
	GuestPhone *string `json:"guest_phone,omitempty"`
	RoomNumber *string `json:"room_number,omitempty"`
	CheckIn    *string `json:"check_in,omitempty"`
	CheckOut   *string `json:"check_out,omitempty"`
	Adults     *int    `json:"adults,omitempty"`
	Children   *int    `json:"children,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

type ReservationCancelRequest struct {
	Reason     string `json:"reason"`
	ManagerPIN string `json:"manager_pin,omitempty"`
}

type ReservationListResponse struct {
	Reservations []Reservation `json:"reservations"`
}

type ReservationResponse struct {
	Reservation Reservation `json:"reservation"`
}

// BookingRequest is the guest-facing reservation flow. The authenticated
// guest's username is attached server-side.
type BookingRequest struct {
	GuestName  string `json:"guest_name"`
	GuestEmail string `json:"guest_email"`
	GuestPhone string `json:"guest_phone,omitempty"`
	RoomType   string `json:"room_type"`
	CheckIn    string `json:"check_in"`
	CheckOut   string `json:"check_out"`
	Adults     int    `json:"adults"`
	Children   int    `json:"children"`
	PromoCode  string `json:"promo_code,omitempty"`
}

type Promotion struct {
	ID                string    `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	Type              string    `json:"type"`
	DiscountPercent   float64   `json:"discount_percent"`
	FlatDiscountCents int64     `json:"flat_discount_cents"`
	MinNights         int       `json:"min_nights"`
	ValidFrom         time.Time `json:"valid_from"`
	ValidUntil        time.Time `json:"valid_until"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

const (
	PromoTypePercent = "percent"
	PromoTypeFlat    = "flat"
)

type PromoCreateRequest struct {
	Code              string  `json:"code"`
	Name              string  `json:"name"`
	Type              string  `json:"type"`
	DiscountPercent   float64 `json:"discount_percent"`
	FlatDiscountCents int64   `json:"flat_discount_cents"`
	MinNights         int     `json:"min_nights"`
	ValidFrom         string  `json:"valid_from"`
	ValidUntil        string  `json:"valid_until"`
}

type PromoToggleRequest struct {
	Active bool `json:"active"`
}

type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int64     `json:"seq"`
	SenderUsername string    `json:"sender_username"`
	SenderRole     string    `json:"sender_role"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

type ChatSendRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Body           string `json:"body"`
}

// ChatPollResponse is the payload for cursor-based polling: messages with
// seq greater than the requested cursor, plus the new cursor.
type ChatPollResponse struct {
	ConversationID string        `json:"conversation_id"`
	Messages       []ChatMessage `json:"messages"`
	LastSeq        int64         `json:"last_seq"`
}

type ChatConversation struct {
	ConversationID string    `json:"conversation_id"`
	LastSenderRole string    `json:"last_sender_role"`
	LastBody       string    `json:"last_body"`
	LastMessageAt  time.Time `json:"last_message_at"`
	MessageCount   int       `json:"message_count"`
}

type ChatConversationListResponse struct {
	Conversations []ChatConversation `json:"conversations"`
}

type OccupancyByRoomType struct {
	RoomType      string `json:"room_type"`
	RoomsTotal    int    `json:"rooms_total"`
	RoomsOccupied int    `json:"rooms_occupied"`
	RevenueCents  int64  `json:"revenue_cents"`
}

type OccupancyReport struct {
	HotelID            string                `json:"hotel_id"`
	Date               string                `json:"date"`
	RoomsTotal         int                   `json:"rooms_total"`
	RoomsOccupied      int                   `json:"rooms_occupied"`
	OccupancyRate      float64               `json:"occupancy_rate"`
	ArrivalsToday      int                   `json:"arrivals_today"`
	DeparturesToday    int                   `json:"departures_today"`
	ActiveReservations int                   `json:"active_reservations"`
	RevenueCents       int64                 `json:"revenue_cents"`
	ByRoomType         []OccupancyByRoomType `json:"by_room_type"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	HotelID       string    `json:"hotel_id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type GuestRegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type GuestUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	FullName  string    `json:"full_name,omitempty"`
	Email     string    `json:"email,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is the internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	FullName  string
	Email     string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin = "admin"
	RoleGuest = "guest"
)

const (
	OrderStatusPlaced    = "placed"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)
