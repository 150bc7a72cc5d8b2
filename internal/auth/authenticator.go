package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid session")
)

// Session identifies the logged-in user for one request.
type Session struct {
	ID        string
	Username  string
	Name      string
	ExpiresAt time.Time
}

type claims struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	cfg       *Config
	key       []byte
	dummyHash []byte
	now       func() time.Time
}

// NewAuthenticator prepares login and token verification for cfg.
func NewAuthenticator(cfg *Config) (*Authenticator, error) {
	if cfg == nil {
		return nil, errors.New("nil auth config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	// The dummy hash matches the cost of a real one so unknown users take as
	// long to reject as wrong passwords.
	cost := bcrypt.DefaultCost
	for _, u := range cfg.Credentials.Usernames {
		if c, err := bcrypt.Cost([]byte(u.Password)); err == nil {
			cost = c
			break
		}
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), cost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Authenticator{
		cfg:       cfg,
		key:       []byte(cfg.Cookie.Key),
		dummyHash: dummy,
		now:       time.Now,
	}, nil
}

// CookieName is the name of the session cookie.
func (a *Authenticator) CookieName() string { return a.cfg.Cookie.Name }

// Login checks the password and issues a signed session token.
func (a *Authenticator) Login(username, password string) (Session, string, error) {
	user, ok := a.cfg.Credentials.Usernames[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return Session{}, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return Session{}, "", ErrInvalidCredentials
	}

	now := a.now()
	s := Session{
		ID:        uuid.NewString(),
		Username:  username,
		Name:      user.Name,
		ExpiresAt: now.Add(a.cfg.Cookie.Expiry()).Truncate(time.Second),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: s.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.ID,
			Subject:   s.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	})
	signed, err := token.SignedString(a.key)
	if err != nil {
		return Session{}, "", fmt.Errorf("sign session: %w", err)
	}
	return s, signed, nil
}

// Verify validates a session token. Tokens for users no longer in the
// credentials file are rejected.
func (a *Authenticator) Verify(token string) (Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return a.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidSession
	}
	if _, ok := a.cfg.Credentials.Usernames[c.Subject]; !ok {
		return Session{}, ErrInvalidSession
	}
	s := Session{ID: c.ID, Username: c.Subject, Name: c.Name}
	if c.ExpiresAt != nil {
		s.ExpiresAt = c.ExpiresAt.Time
	}
	return s, nil
}
