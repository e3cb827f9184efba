package session

import (
	"fmt"
	"strings"

	"github.com/example/taskboard/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

// Decoder extracts the identity hints from a credential.
type Decoder interface {
	Decode(token string) (*user.Claims, error)
}

// credentialClaims mirrors the claims the API signs into its tokens.
type credentialClaims struct {
	ID   string    `json:"id"`
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTDecoder reads JWT claims without verifying the signature. The client
// holds no signing key; the API verifies the token on every call.
type JWTDecoder struct {
	parser *jwt.Parser
}

// NewJWTDecoder creates a new JWTDecoder.
func NewJWTDecoder() *JWTDecoder {
	return &JWTDecoder{
		parser: jwt.NewParser(),
	}
}

// Decode parses token and returns its claims. Expiry is reported but not
// enforced; an expired credential surfaces as a transport error instead.
func (d *JWTDecoder) Decode(token string) (*user.Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidCredential)
	}

	var claims credentialClaims
	if _, _, err := d.parser.ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	id := claims.ID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidCredential)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidCredential, claims.Role)
	}

	decoded := &user.Claims{
		UserID: id,
		Role:   claims.Role,
	}
	if claims.ExpiresAt != nil {
		decoded.ExpiresAt = claims.ExpiresAt.Time
	}
	return decoded, nil
}
