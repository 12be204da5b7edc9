package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	Role      string `json:"role"`
	TenantID  string `json:"tenant_id,omitempty"`
	Superuser bool   `json:"is_superuser,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and parses the bearer tokens the API trusts as its
// authentication boundary.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (t *TokenIssuer) Issue(p *Principal) (string, error) {
	claims := Claims{
		Role:      p.Role.String(),
		Superuser: p.Superuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(t.ttl)),
		},
	}
	if p.TenantID != nil {
		claims.TenantID = p.TenantID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signed, nil
}

func (t *TokenIssuer) Parse(tokenStr string) (*Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.FromString(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	p := &Principal{
		UserID:    userID,
		Role:      Role(claims.Role),
		Superuser: claims.Superuser,
	}
	if claims.TenantID != "" {
		tenantID, err := uuid.FromString(claims.TenantID)
		if err != nil {
			return nil, ErrInvalidToken
		}
		p.TenantID = &tenantID
	}
	return p, nil
}
