package main

import (
	"strings"
	"testing"

	"innsight/backend/internal/config"
)

func strongConfig() config.Config {
	return config.Config{
		AuthSecret: strings.Repeat("s", 40),
		ManagerPIN: "274951",
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	if err := validateSecurityConfig(strongConfig()); err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigRejectsShortSecret(t *testing.T) {
	cfg := strongConfig()
	cfg.AuthSecret = "too-short"
	if err := validateSecurityConfig(cfg); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestValidateSecurityConfigRejectsShortPIN(t *testing.T) {
	cfg := strongConfig()
	cfg.ManagerPIN = "12345"
	if err := validateSecurityConfig(cfg); err == nil {
		t.Fatalf("expected short PIN to be rejected")
	}
}

func TestValidatePINStrength(t *testing.T) {
	weak := []string{
		"123456", // known-common and ascending
		"654321",
		"111111",
		"777777",
		"987654", // descending
		"345678", // ascending but not on the known list
		"121212",
	}
	for _, pin := range weak {
		if err := validatePINStrength(pin); err == nil {
			t.Fatalf("expected PIN %s to be rejected", pin)
		}
	}

	strong := []string{"274951", "906142", "508371"}
	for _, pin := range strong {
		if err := validatePINStrength(pin); err != nil {
			t.Fatalf("expected PIN %s to pass, got %v", pin, err)
		}
	}
}
