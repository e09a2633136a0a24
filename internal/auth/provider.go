package auth

import (
	"context"
	"time"
)

// User is a signed-in account as seen by the rest of the app.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session is an authenticated session: the user plus their access token.
type Session struct {
	ID        string    `json:"id"`
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Unsubscribe removes an auth state listener when called.
type Unsubscribe func()

// Provider is the authentication surface the app builds on. Implementations
// fire OnAuthChange listeners with the new user on sign-in and nil on
// sign-out; new listeners are called immediately with the current state.
type Provider interface {
	// Register creates an account and signs it in.
	Register(ctx context.Context, email, password string) (*Session, error)

	// Login signs an existing account in.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Logout ends the current session. Logging out while signed out is a no-op.
	Logout(ctx context.Context) error

	// CurrentSession returns the active session, or nil when signed out.
	CurrentSession() *Session

	// OnAuthChange registers a listener for sign-in/sign-out transitions.
	OnAuthChange(fn func(*User)) Unsubscribe

	// ResendVerification re-sends the verification mail for the current account.
	ResendVerification(ctx context.Context) error

	// SignInWithGoogle signs in through the Google identity provider.
	SignInWithGoogle(ctx context.Context) (*Session, error)
}
