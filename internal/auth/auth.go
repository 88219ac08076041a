// Package auth resolves connection credentials to a wallet address. Chip
// custody keys never reach this server; a session token only proves the
// client controls a wallet known to the escrow service.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	// Callers may choose to fail open (allow) or fail closed (reject).
	ErrUnavailable = errors.New("auth: unavailable")
)

// Identity is an authenticated player.
type Identity struct {
	Wallet string `json:"wallet"`
}

// Validator resolves session tokens to wallet identities.
type Validator interface {
	// Validate checks a token and returns the wallet it belongs to.
	// Returns:
	//   - (*Identity, nil) if the token is valid
	//   - (nil, ErrInvalidToken) if the token is definitively invalid
	//   - (nil, ErrUnavailable) if the auth service cannot be reached
	Validate(ctx context.Context, token string) (*Identity, error)
}

// HTTPValidator validates tokens via HTTP callback to the escrow service.
type HTTPValidator struct {
	url         string
	adminSecret string
	client      *http.Client
}

// NewHTTPValidator creates a validator backed by the given endpoint.
func NewHTTPValidator(url, adminSecret string, timeout time.Duration) *HTTPValidator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		client:      &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	Wallet string `json:"wallet"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, v.client.Timeout)
	defer cancel()

	reqBody, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// decode below
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	case http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	// Limit response body to 1MB to avoid pathological responses.
	limitedReader := io.LimitReader(resp.Body, 1<<20)

	var authResp validateResponse
	if err := json.NewDecoder(limitedReader).Decode(&authResp); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}

	if !authResp.Valid {
		return nil, ErrInvalidToken
	}
	wallet, err := NormalizeWallet(authResp.Wallet)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Identity{Wallet: wallet}, nil
}

// DevValidator treats the token itself as a wallet address. Development and
// test environments only.
type DevValidator struct{}

func NewDevValidator() *DevValidator { return &DevValidator{} }

func (v *DevValidator) Validate(_ context.Context, token string) (*Identity, error) {
	wallet, err := NormalizeWallet(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return &Identity{Wallet: wallet}, nil
}

var walletPattern = regexp.MustCompile(`^0x[0-9a-f]{4,64}$`)

// NormalizeWallet lowercases and validates a wallet address. Wallets are
// compared case-insensitively everywhere, so the lowercase form is canonical.
func NormalizeWallet(w string) (string, error) {
	w = strings.ToLower(strings.TrimSpace(w))
	if !walletPattern.MatchString(w) {
		return "", fmt.Errorf("malformed wallet address %q", w)
	}
	return w, nil
}
