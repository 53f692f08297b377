// Package auth implements the stateless bearer-token pipeline: the token
// codec, the credential authenticator, the request principal and the
// route authorization gate.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/thejerf/abtime"
)

// Token validation failures. Every error returned by TokenCodec.Decode
// matches exactly one of these with errors.Is.
var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrTokenExpired     = errors.New("token expired")
	ErrUnsupportedToken = errors.New("unsupported token")
)

// Claims is the decoded, verified content of an access token.
type Claims struct {
	Email       string
	SubjectID   int64
	DisplayName string
	Authorities []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Principal builds the request identity carried by these claims.
func (c *Claims) Principal() Principal {
	return NewPrincipal(c.SubjectID, c.Email, c.DisplayName, c.Authorities)
}

// tokenClaims is the JSON payload. iat and exp are epoch milliseconds.
type tokenClaims struct {
	Subject     string `json:"sub"`
	SubjectID   *int64 `json:"uid"`
	DisplayName string `json:"nickname"`
	Authorities string `json:"auth"`
	IssuedAt    int64  `json:"iat"`
	ExpiresAt   int64  `json:"exp"`
}

func (c *tokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.ExpiresAt)), nil
}

func (c *tokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAt)), nil
}

func (c *tokenClaims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *tokenClaims) GetIssuer() (string, error)              { return "", nil }
func (c *tokenClaims) GetSubject() (string, error)             { return c.Subject, nil }
func (c *tokenClaims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// TokenCodec issues and verifies HS256 access tokens. It holds only
// read-only configuration and is safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	clock  abtime.AbstractTime
}

// NewTokenCodec returns a codec signing with secret and issuing tokens
// valid for ttl. A nil clock means wall-clock time.
func NewTokenCodec(secret []byte, ttl time.Duration, clock abtime.AbstractTime) *TokenCodec {
	if clock == nil {
		clock = abtime.NewRealTime()
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{secret: key, ttl: ttl, clock: clock}
}

// TTL reports how long issued tokens stay valid.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Encode signs a token for the given identity. issued_at is the current
// time and expires_at is issued_at plus the configured TTL.
func (c *TokenCodec) Encode(subjectID int64, email, displayName string, authorities []string) (string, error) {
	if email == "" {
		return "", errors.New("token subject must not be empty")
	}
	for _, a := range authorities {
		if a == "" || strings.Contains(a, ",") {
			return "", fmt.Errorf("invalid authority %q", a)
		}
	}

	now := c.clock.Now()
	id := subjectID
	claims := &tokenClaims{
		Subject:     email,
		SubjectID:   &id,
		DisplayName: displayName,
		Authorities: strings.Join(authorities, ","),
		IssuedAt:    now.UnixMilli(),
		ExpiresAt:   now.Add(c.ttl).UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(c.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Decode verifies the signature and expiry of tokenString and returns its
// claims. The payload is not trusted until the signature has been checked.
// A token is valid while now <= expires_at, compared in milliseconds.
func (c *TokenCodec) Decode(tokenString string) (*Claims, error) {
	wire := &tokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, wire, c.keyFunc,
		jwt.WithoutClaimsValidation(), jwt.WithStrictDecoding())
	if err != nil {
		return nil, classify(token, err)
	}

	if wire.Subject == "" || wire.SubjectID == nil || wire.ExpiresAt == 0 {
		return nil, fmt.Errorf("%w: missing required claims", ErrUnsupportedToken)
	}

	if c.clock.Now().UnixMilli() > wire.ExpiresAt {
		return nil, ErrTokenExpired
	}

	return &Claims{
		Email:       wire.Subject,
		SubjectID:   *wire.SubjectID,
		DisplayName: wire.DisplayName,
		Authorities: splitAuthorities(wire.Authorities),
		IssuedAt:    time.UnixMilli(wire.IssuedAt),
		ExpiresAt:   time.UnixMilli(wire.ExpiresAt),
	}, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method == nil || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, fmt.Errorf("%w: signing method %v", ErrUnsupportedToken, t.Header["alg"])
	}
	return c.secret, nil
}

// classify maps jwt parser errors onto the package's error kinds. The parser
// only resolves the signing method once header and claims have decoded, so a
// malformed error with a method set comes from the signature segment: a
// non-canonical encoding there is a signature mismatch, not a malformed token.
func classify(token *jwt.Token, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed) && token != nil && token.Method != nil:
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrUnsupportedToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

func splitAuthorities(joined string) []string {
	out := []string{}
	for _, a := range strings.Split(joined, ",") {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// TokenErrorKind names the kind of a Decode error for logging.
func TokenErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedToken):
		return "malformed"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrUnsupportedToken):
		return "unsupported"
	default:
		return "unknown"
	}
}
