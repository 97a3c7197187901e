package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"innsight/backend/internal/domain"
	"innsight/backend/internal/store"
	"innsight/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(description, ''), COALESCE(image_url, ''), unit_price, active
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.ImageURL, &p.UnitPrice, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, COALESCE(description, ''), COALESCE(image_url, ''), unit_price, active
		FROM products
		WHERE active = true AND id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.ImageURL, &p.UnitPrice, &p.Active); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.OrderRecord) (*domain.OrderRecord, error) {
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
	if order.OrderNumber == "" {
		order.OrderNumber = order.CreatedAt.Format("RS-20060102-150405")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, guest_id, status, total_price, created_at, delivered_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, order.ID, order.OrderNumber, order.GuestID, order.Status, order.TotalPrice, order.CreatedAt, nullTime(order.DeliveredAt))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, position, product_id, product_name, category, description, image_url, unit_price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, order.ID, i, item.ProductID, item.ProductName, item.Category, nullIfEmpty(item.Description), nullIfEmpty(item.ImageURL), item.UnitPrice, item.Quantity)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := order
	return &created, nil
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.OrderRecord, error) {
	var order domain.OrderRecord
	var deliveredAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, guest_id, status, total_price, created_at, delivered_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.OrderNumber, &order.GuestID, &order.Status, &order.TotalPrice, &order.CreatedAt, &deliveredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()
	if deliveredAt.Valid {
		t := deliveredAt.Time.UTC()
		order.DeliveredAt = &t
	}

	items, err := s.loadOrderItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	return &order, nil
}

func (s *Store) ListOrdersByGuest(ctx context.Context, guestID string, status string, limit int) ([]domain.OrderRecord, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, guest_id, status, total_price, created_at, delivered_at
		FROM orders
		WHERE guest_id = $1
			AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, guestID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders)
}

func (s *Store) ListDeliveredOrders(ctx context.Context, guestID string) ([]domain.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_number, guest_id, status, total_price, created_at, delivered_at
		FROM orders
		WHERE guest_id = $1 AND status = $2
		ORDER BY created_at ASC
	`, guestID, domain.OrderStatusDelivered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	return s.attachItems(ctx, orders)
}

func scanOrders(rows *sql.Rows) ([]domain.OrderRecord, error) {
	orders := make([]domain.OrderRecord, 0, 32)
	for rows.Next() {
		var order domain.OrderRecord
		var deliveredAt sql.NullTime
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.GuestID, &order.Status, &order.TotalPrice, &order.CreatedAt, &deliveredAt); err != nil {
			return nil, err
		}
		order.CreatedAt = order.CreatedAt.UTC()
		if deliveredAt.Valid {
			t := deliveredAt.Time.UTC()
			order.DeliveredAt = &t
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) attachItems(ctx context.Context, orders []domain.OrderRecord) ([]domain.OrderRecord, error) {
	if len(orders) == 0 {
		return orders, nil
	}
	ids := make([]string, 0, len(orders))
	for _, order := range orders {
		ids = append(ids, order.ID)
	}
	items, err := s.loadOrderItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (s *Store) loadOrderItems(ctx context.Context, orderIDs []string) (map[string][]domain.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, category, COALESCE(description, ''), COALESCE(image_url, ''), unit_price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[string][]domain.LineItem, len(orderIDs))
	for rows.Next() {
		var orderID string
		var item domain.LineItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.ProductName, &item.Category, &item.Description, &item.ImageURL, &item.UnitPrice, &item.Quantity); err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkOrderDelivered(ctx context.Context, orderID string, at time.Time) (*domain.OrderRecord, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1, delivered_at = $2
		WHERE id = $3 AND status = $4
	`, domain.OrderStatusDelivered, at.UTC(), orderID, domain.OrderStatusPlaced)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Either missing or not in a deliverable state; disambiguate.
		if _, err := s.GetOrderByID(ctx, orderID); err != nil {
			return nil, err
		}
		return nil, store.ErrInvalidRecord
	}
	return s.GetOrderByID(ctx, orderID)
}

func (s *Store) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, COALESCE(description, ''), nightly_rate_cents, total_rooms, max_guests, active
		FROM room_types
		WHERE active = true
		ORDER BY nightly_rate_cents, code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roomTypes := make([]domain.RoomType, 0, 8)
	for rows.Next() {
		var rt domain.RoomType
		if err := rows.Scan(&rt.Code, &rt.Name, &rt.Description, &rt.NightlyRateCents, &rt.TotalRooms, &rt.MaxGuests, &rt.Active); err != nil {
			return nil, err
		}
		roomTypes = append(roomTypes, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return roomTypes, nil
}

func (s *Store) GetRoomTypeByCode(ctx context.Context, code string) (*domain.RoomType, error) {
	var rt domain.RoomType
	err := s.db.QueryRowContext(ctx, `
		SELECT code, name, COALESCE(description, ''), nightly_rate_cents, total_rooms, max_guests, active
		FROM room_types
		WHERE code = $1 AND active = true
	`, code).Scan(&rt.Code, &rt.Name, &rt.Description, &rt.NightlyRateCents, &rt.TotalRooms, &rt.MaxGuests, &rt.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &rt, nil
}

func (s *Store) CountOverlappingReservations(ctx context.Context, hotelID string, roomType string, checkIn time.Time, checkOut time.Time, excludeID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM reservations
		WHERE hotel_id = $1
			AND room_type = $2
			AND status IN ('pending', 'confirmed', 'checked_in')
			AND check_in < $3
			AND check_out > $4
			AND ($5 = '' OR id <> $5)
	`, hotelID, roomType, checkOut, checkIn, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

const reservationColumns = `
	id, hotel_id, COALESCE(guest_username, ''), guest_name, guest_email, COALESCE(guest_phone, ''),
	room_type, COALESCE(room_number, ''), check_in, check_out, adults, children,
	nightly_rate_cents, total_cents, COALESCE(promo_code, ''), status, COALESCE(notes, ''),
	created_at, updated_at`

func scanReservation(row interface{ Scan(...any) error }) (domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(
		&res.ID, &res.HotelID, &res.GuestUsername, &res.GuestName, &res.GuestEmail, &res.GuestPhone,
		&res.RoomType, &res.RoomNumber, &res.CheckIn, &res.CheckOut, &res.Adults, &res.Children,
		&res.NightlyRateCents, &res.TotalCents, &res.PromoCode, &res.Status, &res.Notes,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.CheckIn = res.CheckIn.UTC()
	res.CheckOut = res.CheckOut.UTC()
	res.CreatedAt = res.CreatedAt.UTC()
	res.UpdatedAt = res.UpdatedAt.UTC()
	return res, nil
}

func (s *Store) CreateReservation(ctx context.Context, reservation domain.Reservation) (*domain.Reservation, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reservations (
			id, hotel_id, guest_username, guest_name, guest_email, guest_phone,
			room_type, room_number, check_in, check_out, adults, children,
			nightly_rate_cents, total_cents, promo_code, status, notes,
			created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`,
		reservation.ID, reservation.HotelID, nullIfEmpty(reservation.GuestUsername), reservation.GuestName,
		reservation.GuestEmail, nullIfEmpty(reservation.GuestPhone), reservation.RoomType,
		nullIfEmpty(reservation.RoomNumber), reservation.CheckIn, reservation.CheckOut,
		reservation.Adults, reservation.Children, reservation.NightlyRateCents, reservation.TotalCents,
		nullIfEmpty(reservation.PromoCode), reservation.Status, nullIfEmpty(reservation.Notes),
		reservation.CreatedAt, reservation.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := reservation
	return &created, nil
}

func (s *Store) GetReservationByID(ctx context.Context, id string) (*domain.Reservation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE id = $1
	`, id)
	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

func (s *Store) UpdateReservation(ctx context.Context, reservation domain.Reservation) (*domain.Reservation, error) {
	reservation.UpdatedAt = time.Now().UTC()

	result, err := s.db.ExecContext(ctx, `
		UPDATE reservations
		SET guest_name = $1, guest_email = $2, guest_phone = $3, room_number = $4,
			check_in = $5, check_out = $6, adults = $7, children = $8,
			nightly_rate_cents = $9, total_cents = $10, status = $11, notes = $12,
			updated_at = $13
		WHERE id = $14
	`,
		reservation.GuestName, reservation.GuestEmail, nullIfEmpty(reservation.GuestPhone),
		nullIfEmpty(reservation.RoomNumber), reservation.CheckIn, reservation.CheckOut,
		reservation.Adults, reservation.Children, reservation.NightlyRateCents, reservation.TotalCents,
		reservation.Status, nullIfEmpty(reservation.Notes), reservation.UpdatedAt, reservation.ID,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := reservation
	return &updated, nil
}

func (s *Store) ListReservations(ctx context.Context, hotelID string, status string, from time.Time, to time.Time, limit int) ([]domain.Reservation, error) {
	if limit < 1 {
		limit = 200
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().AddDate(10, 0, 0)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE ($1 = '' OR hotel_id = $1)
			AND ($2 = '' OR status = $2)
			AND check_out >= $3
			AND check_in <= $4
		ORDER BY check_in
		LIMIT $5
	`, hotelID, status, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0, limit)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reservations, nil
}

func (s *Store) CreatePromo(ctx context.Context, promo domain.Promotion) (*domain.Promotion, error) {
	if promo.Code == "" || promo.Name == "" {
		return nil, store.ErrInvalidRecord
	}
	if promo.ID == "" {
		promo.ID = xid.New("promo")
	}
	if promo.CreatedAt.IsZero() {
		promo.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO promotions (
			id, code, name, promo_type, discount_percent, flat_discount_cents,
			min_nights, valid_from, valid_until, active, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		promo.ID, promo.Code, promo.Name, promo.Type, promo.DiscountPercent,
		promo.FlatDiscountCents, promo.MinNights, promo.ValidFrom, promo.ValidUntil,
		promo.Active, promo.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRecord
		}
		return nil, err
	}

	created := promo
	return &created, nil
}

const promoColumns = `
	id, code, name, promo_type, discount_percent, flat_discount_cents,
	min_nights, valid_from, valid_until, active, created_at`

func scanPromo(row interface{ Scan(...any) error }) (domain.Promotion, error) {
	var promo domain.Promotion
	err := row.Scan(
		&promo.ID, &promo.Code, &promo.Name, &promo.Type, &promo.DiscountPercent,
		&promo.FlatDiscountCents, &promo.MinNights, &promo.ValidFrom, &promo.ValidUntil,
		&promo.Active, &promo.CreatedAt,
	)
	if err != nil {
		return domain.Promotion{}, err
	}
	promo.ValidFrom = promo.ValidFrom.UTC()
	promo.ValidUntil = promo.ValidUntil.UTC()
	promo.CreatedAt = promo.CreatedAt.UTC()
	return promo, nil
}

func (s *Store) ListPromos(ctx context.Context) ([]domain.Promotion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+promoColumns+`
		FROM promotions
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	promos := make([]domain.Promotion, 0, 16)
	for rows.Next() {
		promo, err := scanPromo(rows)
		if err != nil {
			return nil, err
		}
		promos = append(promos, promo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return promos, nil
}

func (s *Store) GetPromoByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+promoColumns+`
		FROM promotions
		WHERE lower(code) = lower($1)
	`, code)
	promo, err := scanPromo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &promo, nil
}

func (s *Store) UpdatePromoActive(ctx context.Context, promoID string, active bool) (*domain.Promotion, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE promotions SET active = $1 WHERE id = $2
	`, active, promoID)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+promoColumns+`
		FROM promotions
		WHERE id = $1
	`, promoID)
	promo, err := scanPromo(row)
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (s *Store) AppendChatMessage(ctx context.Context, message domain.ChatMessage) (*domain.ChatMessage, error) {
	if message.ConversationID == "" || message.Body == "" {
		return nil, store.ErrInvalidRecord
	}
	if message.ID == "" {
		message.ID = xid.New("msg")
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}

	// The per-conversation seq is assigned atomically so concurrent sends
	// never hand two pollers the same cursor position.
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO chat_messages (id, conversation_id, seq, sender_username, sender_role, body, created_at)
		SELECT $1, $2, COALESCE(MAX(seq), 0) + 1, $3, $4, $5, $6
		FROM chat_messages
		WHERE conversation_id = $2
		RETURNING seq
	`, message.ID, message.ConversationID, message.SenderUsername, message.SenderRole, message.Body, message.CreatedAt).Scan(&message.Seq)
	if err != nil {
		return nil, err
	}

	created := message
	return &created, nil
}

func (s *Store) ListChatMessages(ctx context.Context, conversationID string, afterSeq int64, limit int) ([]domain.ChatMessage, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, seq, sender_username, sender_role, body, created_at
		FROM chat_messages
		WHERE conversation_id = $1 AND seq > $2
		ORDER BY seq
		LIMIT $3
	`, conversationID, afterSeq, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.ChatMessage, 0, limit)
	for rows.Next() {
		var msg domain.ChatMessage
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Seq, &msg.SenderUsername, &msg.SenderRole, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *Store) ListChatConversations(ctx context.Context, limit int) ([]domain.ChatConversation, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ON (conversation_id)
			conversation_id, sender_role, body, created_at,
			(SELECT COUNT(*) FROM chat_messages c2 WHERE c2.conversation_id = c1.conversation_id)
		FROM chat_messages c1
		ORDER BY conversation_id, seq DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]domain.ChatConversation, 0, limit)
	for rows.Next() {
		var conv domain.ChatConversation
		if err := rows.Scan(&conv.ConversationID, &conv.LastSenderRole, &conv.LastBody, &conv.LastMessageAt, &conv.MessageCount); err != nil {
			return nil, err
		}
		conv.LastMessageAt = conv.LastMessageAt.UTC()
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// DISTINCT ON forces conversation_id ordering; re-sort by recency here.
	for i := 1; i < len(conversations); i++ {
		for j := i; j > 0 && conversations[j].LastMessageAt.After(conversations[j-1].LastMessageAt); j-- {
			conversations[j], conversations[j-1] = conversations[j-1], conversations[j]
		}
	}
	if len(conversations) > limit {
		conversations = conversations[:limit]
	}
	return conversations, nil
}

func (s *Store) GetOccupancyReport(ctx context.Context, hotelID string, date time.Time) (domain.OccupancyReport, error) {
	day := date.UTC().Truncate(24 * time.Hour)
	nextDay := day.AddDate(0, 0, 1)

	report := domain.OccupancyReport{
		HotelID: hotelID,
		Date:    day.Format("2006-01-02"),
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rt.code, rt.total_rooms,
			COUNT(r.id) FILTER (WHERE r.check_in < $2 AND r.check_out > $1),
			COALESCE(SUM(r.nightly_rate_cents) FILTER (WHERE r.check_in < $2 AND r.check_out > $1), 0)
		FROM room_types rt
		LEFT JOIN reservations r
			ON r.room_type = rt.code
			AND ($3 = '' OR r.hotel_id = $3)
			AND r.status IN ('confirmed', 'checked_in')
		WHERE rt.active = true
		GROUP BY rt.code, rt.total_rooms
		ORDER BY rt.code
	`, day, nextDay, hotelID)
	if err != nil {
		return domain.OccupancyReport{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var bucket domain.OccupancyByRoomType
		if err := rows.Scan(&bucket.RoomType, &bucket.RoomsTotal, &bucket.RoomsOccupied, &bucket.RevenueCents); err != nil {
			return domain.OccupancyReport{}, err
		}
		report.RoomsTotal += bucket.RoomsTotal
		report.RoomsOccupied += bucket.RoomsOccupied
		report.RevenueCents += bucket.RevenueCents
		report.ByRoomType = append(report.ByRoomType, bucket)
	}
	if err := rows.Err(); err != nil {
		return domain.OccupancyReport{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE check_in >= $1 AND check_in < $2),
			COUNT(*) FILTER (WHERE check_out >= $1 AND check_out < $2)
		FROM reservations
		WHERE ($3 = '' OR hotel_id = $3)
			AND status IN ('confirmed', 'checked_in')
	`, day, nextDay, hotelID).Scan(&report.ArrivalsToday, &report.DeparturesToday)
	if err != nil {
		return domain.OccupancyReport{}, err
	}

	report.ActiveReservations = report.RoomsOccupied
	if report.RoomsTotal > 0 {
		report.OccupancyRate = float64(report.RoomsOccupied) / float64(report.RoomsTotal)
	}
	return report, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (
			id, hotel_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, entry.ID, entry.HotelID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, hotelID string, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hotel_id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE ($1 = '' OR hotel_id = $1)
			AND created_at >= $2
			AND created_at < $3
		ORDER BY created_at DESC
		LIMIT $4
	`, hotelID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.HotelID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateRecommendationEvent(ctx context.Context, event domain.RecommendationEvent) error {
	if event.GeneratedAt.IsZero() {
		event.GeneratedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO recommendation_events (guest_id, hotel_id, item_count, latency_ms, generated_at)
		VALUES ($1,$2,$3,$4,$5)
	`, event.GuestID, event.HotelID, event.ItemCount, event.LatencyMS, event.GeneratedAt)
	return err
}

func (s *Store) GetRecommendationMetrics(ctx context.Context, hotelID string, from time.Time, to time.Time) (domain.RecommendationMetrics, error) {
	if from.IsZero() {
		from = time.Unix(0, 0).UTC()
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Hour)
	}

	var metrics domain.RecommendationMetrics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(AVG(item_count), 0), COALESCE(AVG(latency_ms), 0)
		FROM recommendation_events
		WHERE ($1 = '' OR hotel_id = $1)
			AND generated_at >= $2
			AND generated_at < $3
	`, hotelID, from, to).Scan(&metrics.Runs, &metrics.AvgItemCount, &metrics.AvgLatencyMS)
	if err != nil {
		return domain.RecommendationMetrics{}, err
	}
	return metrics, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRecord
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, full_name, email, active, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, user.Username, user.Password, user.Role, nullIfEmpty(user.FullName), nullIfEmpty(user.Email), user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrInvalidRecord
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, COALESCE(full_name, ''), COALESCE(email, ''), active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.FullName, &user.Email, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $1 WHERE username = $2
	`, password, username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
