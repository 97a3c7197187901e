package store

import (
	"context"
	"errors"
	"time"

	"innsight/backend/internal/domain"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidRecord   = errors.New("invalid record")
	ErrRoomUnavailable = errors.New("room unavailable")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)

	CreateOrder(ctx context.Context, order domain.OrderRecord) (*domain.OrderRecord, error)
	GetOrderByID(ctx context.Context, id string) (*domain.OrderRecord, error)
	ListOrdersByGuest(ctx context.Context, guestID string, status string, limit int) ([]domain.OrderRecord, error)
	ListDeliveredOrders(ctx context.Context, guestID string) ([]domain.OrderRecord, error)
	MarkOrderDelivered(ctx context.Context, orderID string, at time.Time) (*domain.OrderRecord, error)

	ListRoomTypes(ctx context.Context) ([]domain.RoomType, error)
	GetRoomTypeByCode(ctx context.Context, code string) (*domain.RoomType, error)
	CountOverlappingReservations(ctx context.Context, hotelID string, roomType string, checkIn time.Time, checkOut time.Time, excludeID string) (int, error)

	CreateReservation(ctx context.Context, reservation domain.Reservation) (*domain.Reservation, error)
	GetReservationByID(ctx context.Context, id string) (*domain.Reservation, error)
	UpdateReservation(ctx context.Context, reservation domain.Reservation) (*domain.Reservation, error)
	ListReservations(ctx context.Context, hotelID string, status string, from time.Time, to time.Time, limit int) ([]domain.Reservation, error)

	CreatePromo(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error)
	ListPromos(ctx context.Context) ([]domain.Promotion, error)
	GetPromoByCode(ctx context.Context, code string) (*domain.Promotion, error)
	UpdatePromoActive(ctx context.Context, promoID string, active bool) (*domain.Promotion, error)

	AppendChatMessage(ctx context.Context, message domain.ChatMessage) (*domain.ChatMessage, error)
	ListChatMessages(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]domain.ChatMessage, error)
	ListChatConversations(ctx context.Context, limit int) ([]domain.ChatConversation, error)

	GetOccupancyReport(ctx context.Context, hotelID string, date time.Time) (domain.OccupancyReport, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, hotelID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateRecommendationEvent(ctx context.Context, event domain.RecommendationEvent) error
	GetRecommendationMetrics(ctx context.Context, hotelID string, from time.Time, to time.Time) (domain.RecommendationMetrics, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
