package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/models"
)

// SessionPayload is the identity carried inside a session token.
type SessionPayload struct {
	UserID uuid.UUID   `json:"userId"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue signs an HS256 token for p that expires after the configured TTL.
func (s *TokenService) Issue(p SessionPayload) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: p.UserID.String(),
		Email:  p.Email,
		Role:   string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify returns the payload of a valid token and nil for anything else:
// bad signature, wrong algorithm, expiry, malformed claims.
func (s *TokenService) Verify(token string) *SessionPayload {
	if token == "" {
		return nil
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil
	}
	role, ok := models.ParseRole(claims.Role)
	if !ok {
		return nil
	}
	return &SessionPayload{UserID: uid, Email: claims.Email, Role: role}
}
