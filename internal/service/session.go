package service

import (
	"context"
	"log/slog"

	"github.com/keepsakeapp/keepsake/internal/auth"
	"github.com/keepsakeapp/keepsake/internal/validation"
)

// SessionService ties authentication to the book collection: signing in loads
// the user's books and opens the save gate, signing out flushes pending work
// and resets the working copy.
type SessionService struct {
	provider  auth.Provider
	books     *BookService
	validator *validation.Validator
	logger    *slog.Logger

	unsubscribe auth.Unsubscribe
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest signs an existing account in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// NewSessionService creates the session service and subscribes to auth state
// changes. Call Shutdown to detach the subscription.
func NewSessionService(
	provider auth.Provider,
	books *BookService,
	validator *validation.Validator,
	logger *slog.Logger,
) *SessionService {
	s := &SessionService{
		provider:  provider,
		books:     books,
		validator: validator,
		logger:    logger,
	}
	s.unsubscribe = provider.OnAuthChange(s.onAuthChange)
	return s
}

// onAuthChange reacts to sign-in/sign-out transitions. The listener fires
// immediately on subscription with the current state, so a restored session
// loads its collection without any extra wiring.
func (s *SessionService) onAuthChange(user *auth.User) {
	if user == nil {
		// Flush before the gate closes so the last edits are not lost.
		if err := s.books.Flush(context.Background()); err != nil {
			s.logger.Error("failed to flush books on sign-out", "error", err)
		}
		s.books.SetUser("")
		s.logger.Info("signed out")
		return
	}

	s.books.SetUser(user.ID)
	if _, err := s.books.LoadCollection(context.Background()); err != nil {
		s.logger.Error("failed to load collection on sign-in",
			"user_id", user.ID,
			"error", err,
		)
		return
	}
	s.logger.Info("signed in", "user_id", user.ID, "email", user.Email)
}

// Register creates an account and signs it in.
func (s *SessionService) Register(ctx context.Context, req RegisterRequest) (*auth.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.provider.Register(ctx, req.Email, req.Password)
}

// Login signs an existing account in.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (*auth.Session, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	return s.provider.Login(ctx, req.Email, req.Password)
}

// Logout flushes pending changes and ends the session.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.provider.Logout(ctx)
}

// CurrentSession returns the active session, or nil when signed out.
func (s *SessionService) CurrentSession() *auth.Session {
	return s.provider.CurrentSession()
}

// ResendVerification re-sends the verification mail for the current account.
func (s *SessionService) ResendVerification(ctx context.Context) error {
	return s.provider.ResendVerification(ctx)
}

// SignInWithGoogle signs in through the Google identity provider.
func (s *SessionService) SignInWithGoogle(ctx context.Context) (*auth.Session, error) {
	return s.provider.SignInWithGoogle(ctx)
}

// Shutdown flushes pending saves and detaches from auth state changes.
func (s *SessionService) Shutdown(ctx context.Context) error {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	return s.books.Flush(ctx)
}
