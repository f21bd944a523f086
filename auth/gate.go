// Package auth answers whether the current session may mutate the cart.
package auth

import (
	"sync"

	"go.uber.org/zap"

	"gofalre.io/storefront/models"
)

// DefaultLoginMessage is shown when a gated action is attempted without a session.
const DefaultLoginMessage = "Please log in to continue."

// Session is the local view of the authentication state. Token storage
// lives elsewhere; implementations must answer synchronously.
type Session interface {
	IsAuthenticated() bool
	CurrentUser() *models.UserProfile
	Token() string
}

// Gate is a pure predicate over a Session. It never redirects and never
// errors; an unauthenticated session yields a login-required result.
type Gate struct {
	session Session
	message string
	logger  *zap.Logger
}

func NewGate(session Session, message string, logger *zap.Logger) *Gate {
	if message == "" {
		message = DefaultLoginMessage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		session: session,
		message: message,
		logger:  logger,
	}
}

// Check returns ok=true when the session is authenticated. Otherwise the
// returned Result carries RequiresLogin and the prompt for the action.
func (g *Gate) Check(action string) (models.Result, bool) {
	if g.session != nil && g.session.IsAuthenticated() {
		return models.Result{}, true
	}
	g.logger.Info("Login required", zap.String("action", action))
	return models.LoginRequired(g.message), false
}

// User returns the current user, or nil without a session.
func (g *Gate) User() *models.UserProfile {
	if g.session == nil {
		return nil
	}
	return g.session.CurrentUser()
}

var _ Session = (*MemorySession)(nil)

// MemorySession holds a bearer token and user profile in memory.
type MemorySession struct {
	mu    sync.RWMutex
	token string
	user  *models.UserProfile
}

func NewMemorySession() *MemorySession {
	return &MemorySession{}
}

// Login stores the token and the user it belongs to.
func (s *MemorySession) Login(token string, user *models.UserProfile) {
	s.mu.Lock()
	s.token = token
	s.user = user
	s.mu.Unlock()
}

func (s *MemorySession) Logout() {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
}

func (s *MemorySession) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

func (s *MemorySession) CurrentUser() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *MemorySession) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
