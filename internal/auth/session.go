// Package auth issues and validates user sessions and decides where each
// role may go.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"rentpilot/internal/database"
	"rentpilot/internal/models"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrSessionRevoked     = errors.New("session has been signed out")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already in use")
)

// Session is the signed-in state handed to every handler and service. It is
// created at sign-in and torn down by SignOut.
type Session struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Store interface {
	CreateProfile(ctx context.Context, p *models.Profile) error
	GetProfileByEmail(ctx context.Context, email string) (*models.Profile, error)
}

type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{
		store:   store,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Role     string `json:"role" binding:"required,oneof=landlord tenant"`
}

// SignUp creates the profile and opens its first session
func (m *Manager) SignUp(ctx context.Context, req SignUpRequest) (string, *Session, error) {
	role, err := models.ParseRole(req.Role)
	if err != nil {
		return "", nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := m.store.GetProfileByEmail(ctx, email); err == nil {
		return "", nil, ErrEmailTaken
	} else if !errors.Is(err, database.ErrNotFound) {
		return "", nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("failed to hash password: %w", err)
	}

	profile := &models.Profile{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		Role:         role,
	}
	if err := m.store.CreateProfile(ctx, profile); err != nil {
		return "", nil, err
	}
	return m.Issue(profile)
}

// SignIn checks the password and opens a session
func (m *Manager) SignIn(ctx context.Context, email, password string) (string, *Session, error) {
	profile, err := m.store.GetProfileByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, database.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	return m.Issue(profile)
}

// Issue signs a session token for the profile
func (m *Manager) Issue(profile *models.Profile) (string, *Session, error) {
	now := m.now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    profile.ID,
		Role:      profile.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(profile.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session: %w", err)
	}
	return signed, session, nil
}

// Parse validates a session token
func (m *Manager) Parse(tokenString string) (*Session, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	role, err := models.ParseRole(c.Role)
	if err != nil || c.Subject == "" || c.ID == "" || c.ExpiresAt == nil {
		return nil, ErrUnauthorized
	}

	if m.isRevoked(c.ID) {
		return nil, ErrSessionRevoked
	}

	session := &Session{
		ID:        c.ID,
		UserID:    c.Subject,
		Role:      role,
		ExpiresAt: c.ExpiresAt.Time,
	}
	if c.IssuedAt != nil {
		session.IssuedAt = c.IssuedAt.Time
	}
	return session, nil
}

// SignOut ends the session. The token is rejected from now until it would
// have expired anyway.
func (m *Manager) SignOut(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[session.ID] = session.ExpiresAt
	m.pruneLocked()
}

func (m *Manager) isRevoked(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok
}

func (m *Manager) pruneLocked() {
	now := m.now()
	for id, exp := range m.revoked {
		if exp.Before(now) {
			delete(m.revoked, id)
		}
	}
}
