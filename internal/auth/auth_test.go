package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPValidatorValidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Token == "valid-token" {
			json.NewEncoder(w).Encode(validateResponse{
				Valid:  true,
				Wallet: "0xAbCd1234",
			})
		} else {
			json.NewEncoder(w).Encode(validateResponse{Valid: false})
		}
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "", 0)

	identity, err := validator.Validate(context.Background(), "valid-token")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.Wallet != "0xabcd1234" {
		t.Errorf("expected lowercase wallet, got %s", identity.Wallet)
	}
}

func TestHTTPValidatorInvalidToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(validateResponse{Valid: false})
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "", 0)
	_, err := validator.Validate(context.Background(), "invalid-token")

	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHTTPValidatorRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "", 0)
	_, err := validator.Validate(context.Background(), "whatever")

	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHTTPValidatorServiceDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "", 0)
	_, err := validator.Validate(context.Background(), "valid-token")

	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPValidatorUnreachable(t *testing.T) {
	validator := NewHTTPValidator("http://127.0.0.1:1", "", 100*time.Millisecond)
	_, err := validator.Validate(context.Background(), "valid-token")

	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestHTTPValidatorAdminSecretHeader(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("X-Admin-Secret")
		json.NewEncoder(w).Encode(validateResponse{Valid: true, Wallet: "0xbeef"})
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "hunter2", 0)
	if _, err := validator.Validate(context.Background(), "tok"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != "hunter2" {
		t.Errorf("expected admin secret header, got %q", got)
	}
}

func TestHTTPValidatorMalformedWallet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(validateResponse{Valid: true, Wallet: "not-a-wallet"})
	}))
	defer server.Close()

	validator := NewHTTPValidator(server.URL, "", 0)
	_, err := validator.Validate(context.Background(), "tok")
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for bad wallet, got %v", err)
	}
}

func TestDevValidator(t *testing.T) {
	v := NewDevValidator()

	identity, err := v.Validate(context.Background(), "0xDeadBEEF")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if identity.Wallet != "0xdeadbeef" {
		t.Errorf("expected canonical wallet, got %s", identity.Wallet)
	}

	if _, err := v.Validate(context.Background(), "nope"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}

func TestNormalizeWallet(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0xABCDef12", "0xabcdef12", true},
		{"  0xabc123  ", "0xabc123", true},
		{"0x12", "", false},     // too short
		{"abcdef12", "", false}, // missing prefix
		{"0xghij", "", false},   // not hex
	}
	for _, tc := range cases {
		got, err := NormalizeWallet(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("NormalizeWallet(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("NormalizeWallet(%q) succeeded, want error", tc.in)
		}
	}
}
