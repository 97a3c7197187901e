package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"innsight/backend/internal/domain"
)

type userStoreStub struct {
	mu      sync.Mutex
	users   map[string]domain.UserAccount
	updates int
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *userStoreStub) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user := s.users[username]
	user.Password = password
	s.users[username] = user
	s.updates++
	return nil
}

func TestAuthManagerUpgradesLegacyPlainPassword(t *testing.T) {
	store := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      domain.RoleAdmin,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "123456", store)
	_, err := manager.Login(domain.LoginRequest{
		Username: "admin",
		Password: "admin123",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	users, err := store.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("expected 1 user, got %d", len(users))
	}
	if users[0].Password == "admin123" {
		t.Fatalf("expected password to be upgraded from plain-text")
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("expected bcrypt password hash, got %s", users[0].Password)
	}
}

func TestRegisterGuestStoresPasswordHash(t *testing.T) {
	store := &userStoreStub{}
	manager := NewAuthManager("test-secret", time.Hour, "123456", store)

	guest, err := manager.RegisterGuest(context.Background(), domain.GuestRegisterRequest{
		Username: "Amelia",
		Password: "supersafe",
		FullName: "Amelia Tan",
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if guest.Username != "amelia" {
		t.Fatalf("expected lowercased username, got %q", guest.Username)
	}
	if guest.Role != domain.RoleGuest {
		t.Fatalf("expected guest role, got %q", guest.Role)
	}

	users, _ := store.ListUsers(context.Background())
	if len(users) != 1 {
		t.Fatalf("expected 1 stored user, got %d", len(users))
	}
	if !strings.HasPrefix(users[0].Password, "$2") {
		t.Fatalf("stored password must be a bcrypt hash, got %s", users[0].Password)
	}

	if _, err := manager.Login(domain.LoginRequest{Username: "amelia", Password: "supersafe"}); err != nil {
		t.Fatalf("new guest login failed: %v", err)
	}
}

func TestRegisterGuestValidation(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", &userStoreStub{})

	cases := []domain.GuestRegisterRequest{
		{Username: "ab", Password: "supersafe"},
		{Username: "has space", Password: "supersafe"},
		{Username: "validname", Password: "short"},
	}
	for _, req := range cases {
		if _, err := manager.RegisterGuest(context.Background(), req); err == nil {
			t.Fatalf("expected validation error for %+v", req)
		}
	}

	if _, err := manager.RegisterGuest(context.Background(), domain.GuestRegisterRequest{Username: "validname", Password: "supersafe"}); err != nil {
		t.Fatalf("valid registration failed: %v", err)
	}
	if _, err := manager.RegisterGuest(context.Background(), domain.GuestRegisterRequest{Username: "validname", Password: "supersafe"}); err == nil {
		t.Fatalf("duplicate username must be rejected")
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "947365", nil)

	if manager.managerPIN == "947365" {
		t.Fatalf("manager PIN must not be stored in plain text")
	}
	if !manager.ValidateManagerPIN("947365") {
		t.Fatalf("correct PIN must validate")
	}
	if manager.ValidateManagerPIN("000000") {
		t.Fatalf("wrong PIN must not validate")
	}
	if manager.ValidateManagerPIN("") {
		t.Fatalf("empty PIN must not validate")
	}
}

func TestParseTokenRejectsTampering(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", &userStoreStub{
		users: map[string]domain.UserAccount{
			"guest": {Username: "guest", Password: "guest123", Role: domain.RoleGuest, Active: true},
		},
	})

	resp, err := manager.Login(domain.LoginRequest{Username: "guest", Password: "guest123"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "guest" || actor.Role != domain.RoleGuest {
		t.Fatalf("unexpected actor: %+v", actor)
	}

	other := NewAuthManager("different-secret", time.Hour, "123456", nil)
	if _, err := other.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("token signed with another secret must be rejected")
	}

	if _, err := manager.ParseToken(resp.AccessToken + "x"); err == nil {
		t.Fatalf("tampered token must be rejected")
	}
}

func TestInactiveAccountCannotLogin(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "123456", &userStoreStub{
		users: map[string]domain.UserAccount{
			"gone": {Username: "gone", Password: "supersafe", Role: domain.RoleGuest, Active: false},
		},
	})

	if _, err := manager.Login(domain.LoginRequest{Username: "gone", Password: "supersafe"}); err == nil {
		t.Fatalf("inactive account must not log in")
	}
}
