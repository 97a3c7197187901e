package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"innsight/backend/internal/domain"
	"innsight/backend/internal/recommendation"
	"innsight/backend/internal/service"
	"innsight/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	engine := recommendation.NewEngine(nil, 0)
	svc := service.New(repo, engine, "test-hotel")
	auth := NewAuthManager("test-secret-key", time.Hour, "123456", repo)

	return New(svc, auth, "*")
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_Success(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "admin123",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Fatalf("expected access_token in response, got %v", body)
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestAuthRequiredOnProtectedEndpoints(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	for _, path := range []string{
		"/api/v1/orders",
		"/api/v1/recommendations",
		"/api/v1/reservations",
		"/api/v1/chat/messages",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s without token, got %d", path, rec.Code)
		}
	}
}

func TestGuestForbiddenOnAdminEndpoints(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "guest", "guest123")

	for _, path := range []string{
		"/api/v1/audit-logs",
		"/api/v1/promos",
		"/api/v1/reports/occupancy",
		"/api/v1/chat/conversations",
		"/api/v1/metrics/recommendations",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403 for guest on %s, got %d", path, rec.Code)
		}
	}
}

func TestRoomsAndAvailabilityArePublic(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rooms", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for rooms, got %d", rec.Code)
	}

	var rooms map[string][]domain.RoomType
	if err := json.NewDecoder(rec.Body).Decode(&rooms); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(rooms["room_types"]) == 0 {
		t.Fatalf("expected seeded room types")
	}

	checkIn := time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
	checkOut := time.Now().UTC().AddDate(0, 1, 3).Format("2006-01-02")
	url := fmt.Sprintf("/api/v1/availability?room_type=standard&check_in=%s&check_out=%s", checkIn, checkOut)

	req = httptest.NewRequest(http.MethodGet, url, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for availability, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var avail domain.AvailabilityResponse
	if err := json.NewDecoder(rec.Body).Decode(&avail); err != nil {
		t.Fatalf("decode availability: %v", err)
	}
	if avail.RoomsAvailable != avail.RoomsTotal {
		t.Fatalf("fresh store should have all rooms available, got %d/%d", avail.RoomsAvailable, avail.RoomsTotal)
	}
}

func TestRegisterThenLoginAsNewGuest(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(domain.GuestRegisterRequest{
		Username: "newguest",
		Password: "supersafe",
		FullName: "New Guest",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	token := loginAs(t, api, "newguest", "supersafe")
	if token == "" {
		t.Fatalf("expected the new guest to be able to log in")
	}
}

func TestBookingFlowThroughAPI(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "guest", "guest123")
	csrf := fetchCSRFToken(t, api)

	checkIn := time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
	checkOut := time.Now().UTC().AddDate(0, 1, 2).Format("2006-01-02")
	payload, _ := json.Marshal(domain.BookingRequest{
		GuestName:  "Amelia Tan",
		GuestEmail: "amelia@example.com",
		RoomType:   "deluxe",
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Adults:     2,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.ReservationResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode booking response: %v", err)
	}
	if body.Reservation.Status != domain.ReservationStatusConfirmed {
		t.Fatalf("guest bookings confirm immediately, got %s", body.Reservation.Status)
	}
	if body.Reservation.GuestUsername != "guest" {
		t.Fatalf("reservation must be pinned to the authenticated guest, got %q", body.Reservation.GuestUsername)
	}
	if body.Reservation.TotalCents != 2*18900 {
		t.Fatalf("expected 2 deluxe nights, got total %d", body.Reservation.TotalCents)
	}
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "guest", "guest123")

	payload, _ := json.Marshal(domain.OrderCreateRequest{
		Items: []domain.OrderItemInput{{ProductID: "prod-espresso", Quantity: 1}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF token, got %d", rec.Code)
	}
}

func TestRecommendationsEndpointReturnsAnalyzedItems(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "guest", "guest123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recommendations?sort=frequency", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.RecommendationResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode recommendations: %v", err)
	}
	if len(body.Items) == 0 {
		t.Fatalf("seeded order history should yield recommendations")
	}
	for i := 1; i < len(body.Items); i++ {
		if body.Items[i].Frequency > body.Items[i-1].Frequency {
			t.Fatalf("expected frequency-descending order")
		}
	}
	if body.Stats.TotalUniqueProducts == 0 {
		t.Fatalf("expected non-zero stats")
	}
}

func TestOrderDeliveryFeedsRecommendations(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	guestToken := loginAs(t, api, "guest", "guest123")
	adminToken := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	payload, _ := json.Marshal(domain.OrderCreateRequest{
		Items: []domain.OrderItemInput{{ProductID: "prod-fruit-plate", Quantity: 2}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+guestToken)
	req.Header.Set("X-CSRF-Token", csrf)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("place order failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	var created struct {
		Order domain.OrderRecord `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/orders/"+created.Order.ID+"/deliver", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	req.Header.Set("X-CSRF-Token", csrf)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("deliver failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestOccupancyReportFormats(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/occupancy", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for json report, got %d", rec.Code)
	}

	var report domain.OccupancyReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.RoomsTotal == 0 {
		t.Fatalf("expected seeded room inventory in report")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/occupancy?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for csv report, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "section,key,value") {
		t.Fatalf("unexpected csv header: %q", rec.Body.String()[:40])
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/occupancy?format=pdf", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected printable html, got %q", ct)
	}
}

func TestReservationCSVExport(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginAs(t, api, "admin", "admin123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reservations?format=csv", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("expected text/csv, got %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "id,guest_name") {
		t.Fatalf("unexpected csv header: %q", rec.Body.String())
	}
}

func TestChatRoundTripThroughAPI(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	guestToken := loginAs(t, api, "guest", "guest123")
	adminToken := loginAs(t, api, "admin", "admin123")
	csrf := fetchCSRFToken(t, api)

	send := func(token string, payload any) *httptest.ResponseRecorder {
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/messages", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-CSRF-Token", csrf)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(guestToken, domain.ChatSendRequest{Body: "Is late checkout possible?"}); rec.Code != http.StatusCreated {
		t.Fatalf("guest send failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	if rec := send(adminToken, domain.ChatSendRequest{ConversationID: "guest", Body: "Yes, until 2pm."}); rec.Code != http.StatusCreated {
		t.Fatalf("admin reply failed: %d (body: %s)", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chat/messages?after_seq=0", nil)
	req.Header.Set("Authorization", "Bearer "+guestToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("poll failed: %d", rec.Code)
	}

	var poll domain.ChatPollResponse
	if err := json.NewDecoder(rec.Body).Decode(&poll); err != nil {
		t.Fatalf("decode poll: %v", err)
	}
	if len(poll.Messages) != 2 || poll.LastSeq != 2 {
		t.Fatalf("expected both messages with cursor 2, got %+v", poll)
	}
}
