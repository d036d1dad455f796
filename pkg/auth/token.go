package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// SigningAlgorithm is the symmetric MAC algorithm used for tokens
	SigningAlgorithm = "HS256"
	// DefaultTokenTTL is the token lifetime when none is configured
	DefaultTokenTTL = 24 * time.Hour
	// FingerprintLength is the length of a token fingerprint in hex characters
	FingerprintLength = 32
)

// Claims is the payload carried by an access token
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Codec encodes and decodes signed access tokens.
// The signing secret is fixed at construction; a missing secret is a
// configuration error and must abort startup rather than fail per-request.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a token codec. ttl <= 0 selects DefaultTokenTTL.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, fmt.Errorf("signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

// TTL returns the configured token lifetime
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode mints a signed token for the given subject. An empty role
// defaults to DefaultRole. ttl == 0 uses the codec's configured lifetime;
// a negative ttl produces an already-expired token.
func (c *Codec) Encode(subject, email, role string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("token subject is required")
	}
	if role == "" {
		role = DefaultRole
	}
	if ttl == 0 {
		ttl = c.ttl
	}

	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies a token's signature and expiry and returns its claims.
// All failure modes (malformed structure, bad signature, expired, missing
// subject) collapse to ErrInvalidToken so callers cannot distinguish
// tampering from expiry.
func (c *Codec) Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{SigningAlgorithm}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role == "" {
		claims.Role = DefaultRole
	}
	return claims, nil
}

// Fingerprint computes the blacklist key for a token: a truncated SHA256
// hex digest. The raw token is never stored.
func Fingerprint(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])[:FingerprintLength]
}
