package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "medbook/pkg/errors"
)

const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to the request context.
type Principal struct {
	ID   string
	Role string
}

// Room is the realtime addressing key for this principal. Doctors and
// patients each get a private room named by their own id.
func (p Principal) Room() string {
	return p.ID
}

type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl}
}

func (m *Manager) Generate(userID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", apperrors.Internal("failed to sign token", err)
	}
	return signed, nil
}

func (m *Manager) Validate(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Unauthorized("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, apperrors.Unauthorized("invalid or expired token")
	}
	if claims.UserID == "" || claims.Role == "" {
		return Principal{}, apperrors.Unauthorized("malformed token claims")
	}
	return Principal{ID: claims.UserID, Role: claims.Role}, nil
}
