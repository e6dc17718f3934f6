package daemon

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/teoneo-site/teoneo-courses/internal/domain"
)

// IdentityVerifier resolves the authenticated user behind a request. Token
// verification itself happens upstream (API gateway); the daemon only needs
// the resulting identity.
type IdentityVerifier interface {
	// UserID returns the authenticated user's id, or domain.ErrUnauthorized
	// when the request carries no usable identity.
	UserID(r *http.Request) (int64, error)
}

// GatewayVerifier trusts the identity header the authenticating gateway
// injects after verifying the client's JWT.
type GatewayVerifier struct {
	Header string
}

// NewGatewayVerifier creates a verifier over the given identity header;
// empty picks the default X-User-ID.
func NewGatewayVerifier(header string) *GatewayVerifier {
	if header == "" {
		header = "X-User-ID"
	}
	return &GatewayVerifier{Header: header}
}

func (v *GatewayVerifier) UserID(r *http.Request) (int64, error) {
	raw := r.Header.Get(v.Header)
	if raw == "" {
		return 0, domain.ErrUnauthorized
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad identity header", domain.ErrUnauthorized)
	}
	return id, nil
}

// DebugVerifier accepts "Bearer <user_id>" tokens. Development only.
type DebugVerifier struct{}

func (DebugVerifier) UserID(r *http.Request) (int64, error) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return 0, domain.ErrUnauthorized
	}
	id, err := strconv.ParseInt(strings.TrimSpace(token), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad debug token", domain.ErrUnauthorized)
	}
	return id, nil
}

var (
	_ IdentityVerifier = (*GatewayVerifier)(nil)
	_ IdentityVerifier = DebugVerifier{}
)
