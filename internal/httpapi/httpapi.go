package httpapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"innsight/backend/internal/domain"
	"innsight/backend/internal/service"
	"innsight/backend/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		// Fall back to a deterministic secret if crypto/rand fails (should not happen in practice).
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket
// (expressed as Unix time truncated to the hour). The token is hex-encoded.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

// generateCSRFToken returns a token valid for the current hour bucket.
func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken checks whether the provided token matches the current or
// previous hour bucket, giving a 2-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/register", a.handleRegister)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	mux.HandleFunc("/api/v1/rooms", a.handleRooms)
	mux.HandleFunc("/api/v1/availability", a.handleAvailability)
	mux.HandleFunc("/api/v1/promos/active", a.handleActivePromos)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts, "guest", "admin"))
	mux.HandleFunc("/api/v1/orders", a.requireAuth(a.handleOrders, "guest", "admin"))
	mux.HandleFunc("/api/v1/orders/", a.requireAuth(a.handleOrderActions, "admin"))
	mux.HandleFunc("/api/v1/recommendations", a.requireAuth(a.handleRecommendations, "guest", "admin"))

	mux.HandleFunc("/api/v1/bookings", a.requireAuth(a.handleBookings, "guest", "admin"))
	mux.HandleFunc("/api/v1/reservations", a.requireAuth(a.handleReservations, "guest", "admin"))
	mux.HandleFunc("/api/v1/reservations/", a.requireAuth(a.handleReservationActions, "guest", "admin"))

	mux.HandleFunc("/api/v1/chat/messages", a.requireAuth(a.handleChatMessages, "guest", "admin"))
	mux.HandleFunc("/api/v1/chat/conversations", a.requireAuth(a.handleChatConversations, "admin"))

	mux.HandleFunc("/api/v1/promos", a.requireAuth(a.handlePromos, "admin"))
	mux.HandleFunc("/api/v1/promos/", a.requireAuth(a.handlePromoActions, "admin"))
	mux.HandleFunc("/api/v1/reports/occupancy", a.requireAuth(a.handleOccupancyReport, "admin"))
	mux.HandleFunc("/api/v1/metrics/recommendations", a.requireAuth(a.handleRecommendationMetrics, "admin"))
	mux.HandleFunc("/api/v1/audit-logs", a.requireAuth(a.handleAuditLogs, "admin"))
	mux.HandleFunc("/api/v1/users/guests", a.requireAuth(a.handleGuests, "admin"))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleRegister is guest self-service signup. Rate-limited with the login
// limiter so account creation cannot be hammered from one address.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many registration attempts"))
		return
	}

	var req domain.GuestRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	guest, err := a.auth.RegisterGuest(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"guest": guest})
}

// handleCSRFToken returns a stateless CSRF token valid for the current hour bucket.
// Clients must include this token in the X-CSRF-Token header for all mutating requests.
func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths that are exempt from CSRF validation.
// Login and register are excluded because they are called without a prior CSRF token fetch.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
	"/api/v1/auth/register",
}

// checkCSRF enforces CSRF token validation for state-changing methods (POST/PUT/PATCH).
// Returns false and writes an error response if validation fails.
func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	roomTypes, err := a.service.ListRoomTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_types": roomTypes})
}

func (a *API) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	resp, err := a.service.Availability(r.Context(), query.Get("room_type"), query.Get("check_in"), query.Get("check_out"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		limit := parsePositiveLimit(query.Get("limit"), 50, 200)

		orders, err := a.service.ListOrders(r.Context(), query.Get("guest_id"), query.Get("status"), limit)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.OrderListResponse{Orders: orders})
	case http.MethodPost:
		var req domain.OrderCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		order, err := a.service.PlaceOrder(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"order": order})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleOrderActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/orders/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("order id required"))
		return
	}

	if strings.HasSuffix(tail, "/deliver") {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		orderID := strings.Trim(strings.TrimSuffix(tail, "/deliver"), "/")
		if orderID == "" {
			writeError(w, http.StatusBadRequest, errors.New("order id required"))
			return
		}

		order, err := a.service.DeliverOrder(r.Context(), orderID)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order": order})
		return
	}

	writeError(w, http.StatusBadRequest, errors.New("invalid order action path"))
}

func (a *API) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	filter := domain.RecommendationFilter{
		SearchText: query.Get("search"),
		Category:   query.Get("category"),
		SortKey:    query.Get("sort"),
	}

	resp, err := a.service.GuestRecommendations(r.Context(), query.Get("guest_id"), filter)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleBookings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.BookingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reservation, err := a.service.BookRoom(r.Context(), req)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.ReservationResponse{Reservation: reservation})
}

func (a *API) handleReservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		from, to, err := parseDateRange(query.Get("from"), query.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		limit := parsePositiveLimit(query.Get("limit"), 200, 1000)

		reservations, err := a.service.ListReservations(r.Context(), query.Get("status"), from, to, limit)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}

		if strings.EqualFold(query.Get("format"), "csv") {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="reservations.csv"`)
			_, _ = w.Write([]byte(reservationsToCSV(reservations)))
			return
		}
		writeJSON(w, http.StatusOK, domain.ReservationListResponse{Reservations: reservations})
	case http.MethodPost:
		var req domain.ReservationCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		reservation, err := a.service.CreateReservation(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, domain.ReservationResponse{Reservation: reservation})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleReservationActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/reservations/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("reservation id required"))
		return
	}

	id, action, _ := strings.Cut(tail, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("reservation id required"))
		return
	}

	switch action {
	case "":
		a.handleReservationByID(w, r, id)
	case "cancel":
		a.handleReservationCancel(w, r, id)
	case "check-in":
		a.handleReservationCheckIn(w, r, id)
	case "check-out":
		a.handleReservationCheckOut(w, r, id)
	default:
		writeError(w, http.StatusBadRequest, errors.New("invalid reservation action path"))
	}
}

func (a *API) handleReservationByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		reservation, err := a.service.GetReservation(r.Context(), id)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.ReservationResponse{Reservation: reservation})
	case http.MethodPatch:
		var req domain.ReservationUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		reservation, err := a.service.UpdateReservation(r.Context(), id, req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, domain.ReservationResponse{Reservation: reservation})
	default:
		writeMethodNotAllowed(w)
	}
}

// handleReservationCancel verifies the manager PIN here so the service layer
// only ever sees a boolean override decision. PIN attempts are rate-limited
// per client address.
func (a *API) handleReservationCancel(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.ReservationCancelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	managerOverride := false
	if pin := strings.TrimSpace(req.ManagerPIN); pin != "" {
		if !a.pinLimiter.Allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many PIN attempts"))
			return
		}
		if !a.auth.ValidateManagerPIN(pin) {
			writeError(w, http.StatusForbidden, errors.New("invalid manager PIN"))
			return
		}
		managerOverride = true
	}

	reservation, err := a.service.CancelReservation(r.Context(), id, req.Reason, managerOverride)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ReservationResponse{Reservation: reservation})
}

func (a *API) handleReservationCheckIn(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req struct {
		RoomNumber string `json:"room_number,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reservation, err := a.service.CheckInReservation(r.Context(), id, req.RoomNumber)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ReservationResponse{Reservation: reservation})
}

func (a *API) handleReservationCheckOut(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	reservation, err := a.service.CheckOutReservation(r.Context(), id)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ReservationResponse{Reservation: reservation})
}

func (a *API) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		afterSeq := int64(0)
		if raw := strings.TrimSpace(query.Get("after_seq")); raw != "" {
			parsed, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || parsed < 0 {
				writeError(w, http.StatusBadRequest, errors.New("invalid after_seq"))
				return
			}
			afterSeq = parsed
		}
		limit := parsePositiveLimit(query.Get("limit"), 50, 200)

		resp, err := a.service.PollChatMessages(r.Context(), query.Get("conversation_id"), afterSeq, limit)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	case http.MethodPost:
		var req domain.ChatSendRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		message, err := a.service.SendChatMessage(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": message})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleChatConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	conversations, err := a.service.ListChatConversations(r.Context(), limit)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ChatConversationListResponse{Conversations: conversations})
}

func (a *API) handlePromos(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		promos, err := a.service.ListPromos(r.Context())
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"promos": promos})
	case http.MethodPost:
		var req domain.PromoCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		promo, err := a.service.CreatePromo(r.Context(), req)
		if err != nil {
			writeError(w, serviceErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"promo": promo})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleActivePromos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	promos, err := a.service.ActivePromos(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"promos": promos})
}

func (a *API) handlePromoActions(w http.ResponseWriter, r *http.Request) {
	prefix := "/api/v1/promos/"
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/"))

	if !strings.HasSuffix(tail, "/toggle") {
		writeError(w, http.StatusBadRequest, errors.New("invalid promo action path"))
		return
	}
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	promoID := strings.Trim(strings.TrimSuffix(tail, "/toggle"), "/")
	if promoID == "" {
		writeError(w, http.StatusBadRequest, errors.New("promo id required"))
		return
	}

	var req domain.PromoToggleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	promo, err := a.service.TogglePromo(r.Context(), promoID, req.Active)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"promo": promo})
}

func (a *API) handleOccupancyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	format := strings.ToLower(strings.TrimSpace(query.Get("format")))

	report, err := a.service.OccupancyReport(r.Context(), query.Get("date"))
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"occupancy-%s.csv\"", report.Date))
		_, _ = w.Write([]byte(occupancyReportToCSV(report)))
	case "pdf":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(occupancyReportToPrintableHTML(report)))
	default:
		writeJSON(w, http.StatusOK, report)
	}
}

func (a *API) handleRecommendationMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	from, to, err := parseDateRange(query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	metrics, err := a.service.RecommendationMetrics(r.Context(), from, to)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	query := r.URL.Query()
	from, to, err := parseDateRange(query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	limit := parsePositiveLimit(query.Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), from, to, limit)
	if err != nil {
		writeError(w, serviceErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (a *API) handleGuests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	guests, err := a.auth.ListGuests(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guests": guests})
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		// Enforce CSRF protection for all state-changing requests.
		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

// serviceErrorStatus maps service-layer failures onto HTTP statuses. The
// default is 422 because most residual errors are domain validation.
func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRoomUnavailable):
		return http.StatusConflict
	}
	lowered := strings.ToLower(err.Error())
	if strings.Contains(lowered, "admin role required") {
		return http.StatusForbidden
	}
	if strings.Contains(lowered, "authentication required") {
		return http.StatusUnauthorized
	}
	if strings.Contains(lowered, "pin required") {
		return http.StatusForbidden
	}
	return http.StatusUnprocessableEntity
}

func reservationsToCSV(reservations []domain.Reservation) string {
	lines := []string{
		"id,guest_name,guest_email,room_type,room_number,check_in,check_out,adults,children,nightly_rate_cents,total_cents,promo_code,status",
	}
	for _, res := range reservations {
		lines = append(lines, fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%d,%d,%d,%d,%s,%s",
			res.ID, csvEscape(res.GuestName), csvEscape(res.GuestEmail), res.RoomType, res.RoomNumber,
			res.CheckIn.Format("2006-01-02"), res.CheckOut.Format("2006-01-02"),
			res.Adults, res.Children, res.NightlyRateCents, res.TotalCents, res.PromoCode, res.Status))
	}
	return strings.Join(lines, "\n") + "\n"
}

func csvEscape(val string) string {
	if strings.ContainsAny(val, ",\"\n") {
		return `"` + strings.ReplaceAll(val, `"`, `""`) + `"`
	}
	return val
}

func occupancyReportToCSV(report domain.OccupancyReport) string {
	lines := []string{
		"section,key,value",
		fmt.Sprintf("summary,date,%s", report.Date),
		fmt.Sprintf("summary,hotel_id,%s", report.HotelID),
		fmt.Sprintf("summary,rooms_total,%d", report.RoomsTotal),
		fmt.Sprintf("summary,rooms_occupied,%d", report.RoomsOccupied),
		fmt.Sprintf("summary,occupancy_rate,%.4f", report.OccupancyRate),
		fmt.Sprintf("summary,arrivals_today,%d", report.ArrivalsToday),
		fmt.Sprintf("summary,departures_today,%d", report.DeparturesToday),
		fmt.Sprintf("summary,active_reservations,%d", report.ActiveReservations),
		fmt.Sprintf("summary,revenue_cents,%d", report.RevenueCents),
	}
	for _, bucket := range report.ByRoomType {
		lines = append(lines, fmt.Sprintf("room_type,%s_rooms_total,%d", bucket.RoomType, bucket.RoomsTotal))
		lines = append(lines, fmt.Sprintf("room_type,%s_rooms_occupied,%d", bucket.RoomType, bucket.RoomsOccupied))
		lines = append(lines, fmt.Sprintf("room_type,%s_revenue_cents,%d", bucket.RoomType, bucket.RevenueCents))
	}
	return strings.Join(lines, "\n") + "\n"
}

// occupancyReportHTMLTmpl is the html/template used to render printable occupancy reports.
// All user-controlled fields are auto-escaped by html/template to prevent XSS.
var occupancyReportHTMLTmpl = template.Must(template.New("occupancy-report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Occupancy Report {{.Date}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    table { width: 100%; border-collapse: collapse; margin-top: 8px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    h2, h3 { margin-bottom: 4px; }
  </style>
</head>
<body>
  <h2>Occupancy Report {{.Date}}</h2>
  <p>Hotel: {{.HotelID}}</p>
  <p>Occupied: {{.RoomsOccupied}} / {{.RoomsTotal}} ({{printf "%.1f" .OccupancyRatePercent}}%)</p>
  <p>Arrivals: {{.ArrivalsToday}} | Departures: {{.DeparturesToday}} | In house: {{.ActiveReservations}} | Revenue cents: {{.RevenueCents}}</p>

  <h3>By Room Type</h3>
  <table>
    <thead><tr><th>Room Type</th><th>Occupied</th><th>Total</th><th>Revenue Cents</th></tr></thead>
    <tbody>{{range .ByRoomType}}<tr><td>{{.RoomType}}</td><td style="text-align:right;">{{.RoomsOccupied}}</td><td style="text-align:right;">{{.RoomsTotal}}</td><td style="text-align:right;">{{.RevenueCents}}</td></tr>{{end}}</tbody>
  </table>
</body>
</html>
`))

type printableOccupancyReport struct {
	domain.OccupancyReport
	OccupancyRatePercent float64
}

func occupancyReportToPrintableHTML(report domain.OccupancyReport) string {
	var buf bytes.Buffer
	data := printableOccupancyReport{
		OccupancyReport:      report,
		OccupancyRatePercent: report.OccupancyRate * 100,
	}
	if err := occupancyReportHTMLTmpl.Execute(&buf, data); err != nil {
		// Fallback: return a plain-text error page rather than leaking internal details.
		return "<!doctype html><html><body><p>Report rendering error.</p></body></html>"
	}
	return buf.String()
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func parseDateRange(fromRaw string, toRaw string) (time.Time, time.Time, error) {
	var from, to time.Time
	if trimmed := strings.TrimSpace(fromRaw); trimmed != "" {
		parsed, err := time.ParseInLocation("2006-01-02", trimmed, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		from = parsed
	}
	if trimmed := strings.TrimSpace(toRaw); trimmed != "" {
		parsed, err := time.ParseInLocation("2006-01-02", trimmed, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		// Make the range inclusive of the end date.
		to = parsed.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, status int, err error) {
	// For 5xx responses, return a generic message to avoid leaking internal
	// implementation details (stack traces, SQL errors, file paths, etc.).
	// 4xx responses are user-facing so we return the original error message.
	msg := err.Error()
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
