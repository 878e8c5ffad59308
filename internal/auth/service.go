package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrForbidden    = errors.New("forbidden")
)

// Roles a viewer can hold in a session.
const (
	RoleOwner  = "owner"
	RoleViewer = "viewer"
)

type Service struct {
	jwtSecret []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewService(jwtSecret string, ttl time.Duration) *Service {
	return &Service{
		jwtSecret: []byte(jwtSecret),
		ttl:       ttl,
		now:       time.Now,
	}
}

// Viewer is the identity carried by a session token.
type Viewer struct {
	ID          string `json:"id"`
	SessionID   string `json:"sessionId"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
}

// CanEdit reports whether the viewer may change the scene.
func (v Viewer) CanEdit() bool { return v.Role == RoleOwner }

type claims struct {
	SessionID   string `json:"sid"`
	DisplayName string `json:"name"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

type TokenResult struct {
	Token  string `json:"token"`
	Viewer Viewer `json:"viewer"`
}

// Issue creates a new viewer of sessionID and signs a token for it.
func (s *Service) Issue(sessionID, displayName, role string) (*TokenResult, error) {
	if role != RoleOwner && role != RoleViewer {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	v := Viewer{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		DisplayName: displayName,
		Role:        role,
	}

	now := s.now()
	c := claims{
		SessionID:   sessionID,
		DisplayName: displayName,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   v.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenResult{Token: signed, Viewer: v}, nil
}

func (s *Service) ValidateToken(tokenString string) (*Viewer, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || c.Subject == "" || c.SessionID == "" {
		return nil, ErrInvalidToken
	}

	return &Viewer{
		ID:          c.Subject,
		SessionID:   c.SessionID,
		DisplayName: c.DisplayName,
		Role:        c.Role,
	}, nil
}
