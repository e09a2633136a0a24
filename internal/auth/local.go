package auth

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/id"
	"golang.org/x/time/rate"
)

const (
	accountKeyPrefix = "account:"
	emailKeyPrefix   = "account:email:"
	sessionKey       = "session:current"

	minPasswordLength = 8
)

// Keyed JSON storage, satisfied by the local document store so accounts and
// documents share one database file.
type accountStore interface {
	GetJSON(key string, dest any) error
	SetJSON(key string, value any) error
	Delete(key string) error
	Exists(key string) (bool, error)
}

// account is the stored shape of a registered user.
type account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"createdAt"`
}

// LocalProvider implements Provider with accounts held in the local database.
// Login attempts are throttled per email so a stolen laptop can't be
// brute-forced through the app.
type LocalProvider struct {
	store  accountStore
	tokens *TokenService
	logger *slog.Logger

	mu       sync.RWMutex
	current  *Session
	limiters map[string]*rate.Limiter

	listenerMu sync.Mutex
	listeners  map[int]func(*User)
	nextListen int
}

// Compile-time interface check.
var _ Provider = (*LocalProvider)(nil)

// NewLocalProvider creates a provider on the given account store.
func NewLocalProvider(store accountStore, tokens *TokenService, logger *slog.Logger) *LocalProvider {
	return &LocalProvider{
		store:     store,
		tokens:    tokens,
		logger:    logger,
		limiters:  make(map[string]*rate.Limiter),
		listeners: make(map[int]func(*User)),
	}
}

// Restore resumes a persisted session from a previous run, if its token is
// still valid. Call once at startup, before listeners do anything useful.
func (p *LocalProvider) Restore(_ context.Context) error {
	var session Session
	err := p.store.GetJSON(sessionKey, &session)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "restore session")
	}

	if _, err := p.tokens.VerifyAccessToken(session.Token); err != nil {
		p.logger.Debug("discarding expired session", "user_id", session.User.ID)
		return p.store.Delete(sessionKey)
	}

	p.mu.Lock()
	p.current = &session
	p.mu.Unlock()

	p.logger.Info("session restored", "user_id", session.User.ID)
	p.notify(session.User)
	return nil
}

// Register implements Provider.
func (p *LocalProvider) Register(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, errors.Validation("invalid email address")
	}
	if len(password) < minPasswordLength {
		return nil, errors.New(errors.CodeWeakPassword, "password must be at least 8 characters")
	}

	taken, err := p.store.Exists(emailKeyPrefix + email)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "check email")
	}
	if taken {
		return nil, errors.New(errors.CodeEmailInUse, "an account with this email already exists")
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "hash password")
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate user ID")
	}

	acct := account{
		ID:           userID,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.store.SetJSON(accountKeyPrefix+acct.ID, acct); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "store account")
	}
	if err := p.store.SetJSON(emailKeyPrefix+email, acct.ID); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "index email")
	}

	p.logger.Info("account registered", "user_id", acct.ID)
	return p.openSession(&acct)
}

// Login implements Provider.
func (p *LocalProvider) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)

	if !p.limiter(email).Allow() {
		return nil, errors.New(errors.CodeTooManyRequests, "too many login attempts, try again shortly")
	}

	var userID string
	err := p.store.GetJSON(emailKeyPrefix+email, &userID)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.InvalidCredentials("incorrect email or password")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "look up account")
	}

	var acct account
	if err := p.store.GetJSON(accountKeyPrefix+userID, &acct); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "load account")
	}

	ok, err := VerifyPassword(acct.PasswordHash, password)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "verify password")
	}
	if !ok {
		p.logger.Warn("failed login attempt", "user_id", acct.ID)
		return nil, errors.InvalidCredentials("incorrect email or password")
	}

	p.logger.Info("login", "user_id", acct.ID)
	return p.openSession(&acct)
}

// Logout implements Provider.
func (p *LocalProvider) Logout(_ context.Context) error {
	p.mu.Lock()
	current := p.current
	p.current = nil
	p.mu.Unlock()

	if current == nil {
		return nil
	}

	if err := p.store.Delete(sessionKey); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "clear session")
	}

	p.logger.Info("logout", "user_id", current.User.ID)
	p.notify(nil)
	return nil
}

// CurrentSession implements Provider.
func (p *LocalProvider) CurrentSession() *Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// OnAuthChange implements Provider. The listener fires immediately with the
// current state, then on every transition.
func (p *LocalProvider) OnAuthChange(fn func(*User)) Unsubscribe {
	p.listenerMu.Lock()
	key := p.nextListen
	p.nextListen++
	p.listeners[key] = fn
	p.listenerMu.Unlock()

	if session := p.CurrentSession(); session != nil {
		fn(session.User)
	} else {
		fn(nil)
	}

	return func() {
		p.listenerMu.Lock()
		delete(p.listeners, key)
		p.listenerMu.Unlock()
	}
}

// ResendVerification implements Provider. The local build has no mail
// pipeline; the hosted provider overrides this with a real send.
func (p *LocalProvider) ResendVerification(_ context.Context) error {
	session := p.CurrentSession()
	if session == nil {
		return errors.Unauthorized("no user signed in")
	}
	p.logger.Info("verification mail requested", "user_id", session.User.ID)
	return nil
}

// SignInWithGoogle implements Provider.
func (p *LocalProvider) SignInWithGoogle(_ context.Context) (*Session, error) {
	return nil, errors.Unsupported("google sign-in requires the hosted sync service")
}

// openSession issues a token, persists the session, and notifies listeners.
func (p *LocalProvider) openSession(acct *account) (*Session, error) {
	user := &User{
		ID:        acct.ID,
		Email:     acct.Email,
		Verified:  acct.Verified,
		CreatedAt: acct.CreatedAt,
	}

	token, err := p.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate token")
	}

	session := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Token:     token,
		ExpiresAt: time.Now().Add(p.tokens.AccessTokenDuration()),
	}

	if err := p.store.SetJSON(sessionKey, session); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "persist session")
	}

	p.mu.Lock()
	p.current = session
	p.mu.Unlock()

	p.notify(user)
	return session, nil
}

// notify fans an auth transition out to every listener.
func (p *LocalProvider) notify(user *User) {
	p.listenerMu.Lock()
	listeners := make([]func(*User), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.listenerMu.Unlock()

	for _, fn := range listeners {
		fn(user)
	}
}

// limiter returns the login throttle for an email: 5 attempts, refilling
// one every 12 seconds.
func (p *LocalProvider) limiter(email string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	limiter, ok := p.limiters[email]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(12*time.Second), 5)
		p.limiters[email] = limiter
	}
	return limiter
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
