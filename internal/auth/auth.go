// Package auth signs tenants in and out. Passwords are bcrypt hashes and
// sessions are HS256 tokens whose jti is persisted, so signing out revokes
// the token before it expires. A user's id is the tenant id of its records.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"martelinho/internal/core"
	"martelinho/internal/log"
	"martelinho/internal/storage"
)

var (
	ErrMissingFields      = errors.New("missing required fields")
	ErrPasswordTooShort   = errors.New("password must have at least 6 characters")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid login credentials")
	ErrNoSession          = errors.New("no active session")
)

const (
	MinPasswordLength = 6
	DefaultExpiry     = 24 * time.Hour
)

// Profile holds the sign-up fields besides the credentials.
type Profile struct {
	FullName    string
	CompanyName string
	Phone       string
}

// Session is an authenticated user together with its signed token.
type Session struct {
	Token     string
	User      core.UserProfile
	ExpiresAt time.Time
}

// TenantID is the id scoping every record of the session's user.
func (s Session) TenantID() string { return s.User.ID }

type EventType string

const (
	EventSignedUp  EventType = "signed_up"
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event notifies subscribers of a session change.
type Event struct {
	Type   EventType
	UserID string
	At     time.Time
}

type Config struct {
	Secret string
	Expiry time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type Service struct {
	store  storage.UserStore
	secret []byte
	expiry time.Duration
	cost   int
	now    func() time.Time
	logger *log.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func NewService(store storage.UserStore, cfg Config, logger *log.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = DefaultExpiry
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Service{
		store:  store,
		secret: []byte(cfg.Secret),
		expiry: cfg.Expiry,
		cost:   cfg.BcryptCost,
		now:    time.Now,
		logger: logger.WithComponent(log.ComponentAuth),
		subs:   map[int]func(Event){},
	}, nil
}

// ValidateSignUp checks the registration fields.
func ValidateSignUp(email, password string, p Profile) error {
	if strings.TrimSpace(email) == "" || password == "" ||
		strings.TrimSpace(p.FullName) == "" || strings.TrimSpace(p.CompanyName) == "" {
		return ErrMissingFields
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if !strings.Contains(email, "@") || !strings.Contains(email, ".") {
		return ErrInvalidEmail
	}
	return nil
}

// SignUp creates the account and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string, p Profile) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := ValidateSignUp(email, password, p); err != nil {
		return Session{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := storage.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(p.FullName),
		CompanyName:  strings.TrimSpace(p.CompanyName),
		Phone:        strings.TrimSpace(p.Phone),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User signed up", log.FieldUserID, u.ID, log.FieldOperation, log.OpSignUp)
	s.emit(Event{Type: EventSignedUp, UserID: u.ID, At: now})
	return s.issue(ctx, u)
}

// SignIn checks the credentials and issues a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return Session{}, ErrMissingFields
	}
	u, err := s.store.UserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Sign-in rejected", log.FieldUserID, u.ID, log.FieldOperation, log.OpSignIn)
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(ctx, u)
}

// SignOut revokes the session of token. Signing out an unknown or already
// revoked token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	err = s.store.RevokeSession(ctx, claims.ID, s.now().UTC())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("revoke session: %w", err)
	}
	if err == nil {
		s.logger.InfoContext(ctx, "User signed out", log.FieldUserID, claims.Subject, log.FieldOperation, log.OpSignOut)
		s.emit(Event{Type: EventSignedOut, UserID: claims.Subject, At: s.now().UTC()})
	}
	return nil
}

// CurrentSession resolves token to its user, or ErrNoSession when the token
// is missing, invalid, expired or revoked.
func (s *Service) CurrentSession(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}
	claims, err := s.parse(token)
	if err != nil {
		return Session{}, ErrNoSession
	}
	sess, err := s.store.SessionByID(ctx, claims.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !sess.Active(s.now()) || sess.UserID != claims.Subject {
		return Session{}, ErrNoSession
	}
	u, err := s.store.UserByID(ctx, sess.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	return Session{Token: token, User: profile(u), ExpiresAt: sess.ExpiresAt}, nil
}

// Subscribe registers fn for session events and returns a function that
// removes it. fn runs synchronously on the goroutine causing the event.
func (s *Service) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Service) emit(e Event) {
	s.mu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(e)
	}
}

func (s *Service) issue(ctx context.Context, u storage.User) (Session, error) {
	now := s.now().UTC()
	exp := now.Add(s.expiry)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   u.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}
	if err := s.store.CreateSession(ctx, storage.Session{ID: claims.ID, UserID: u.ID, ExpiresAt: exp, CreatedAt: now}); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}

	s.logger.InfoContext(ctx, "User signed in", log.FieldUserID, u.ID, log.FieldOperation, log.OpSignIn)
	s.emit(Event{Type: EventSignedIn, UserID: u.ID, At: now})
	return Session{Token: token, User: profile(u), ExpiresAt: exp}, nil
}

func (s *Service) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func profile(u storage.User) core.UserProfile {
	return core.UserProfile{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		CompanyName: u.CompanyName,
		Phone:       u.Phone,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
