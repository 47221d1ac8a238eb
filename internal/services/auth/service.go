package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mcoot/reflexpool/internal/dependencies/clock"
	"github.com/mcoot/reflexpool/internal/dependencies/random"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/model"
)

// Errors
var (
	ErrNoChallenge        = errors.New("no login challenge for address")
	ErrChallengeExpired   = errors.New("login challenge expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
)

const secretLength = 32

// Challenge is a one-time message the wallet must sign to log in
type Challenge struct {
	Address   model.Address
	Nonce     string
	Message   string
	ExpiresAt time.Time
}

// Session represents an authenticated wallet
type Session struct {
	Token     string
	ID        string
	Address   model.Address
	IsAdmin   bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	// Secret signs session tokens. A random secret is generated when empty,
	// which invalidates sessions on restart.
	Secret          []byte
	Issuer          string
	SessionDuration time.Duration
	ChallengeTTL    time.Duration
	// AdminAddresses may manage any pool
	AdminAddresses []model.Address
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Issuer:          "reflexpool",
		SessionDuration: 24 * time.Hour,
		ChallengeTTL:    5 * time.Minute,
	}
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Admin bool `json:"adm,omitempty"`
}

// Service handles wallet login and session tokens
type Service struct {
	clock  clock.Clock
	cfg    Config
	admins map[model.Address]bool
	logger *slog.Logger

	mu         sync.Mutex
	challenges map[model.Address]*Challenge
	revoked    map[string]time.Time // session id -> expiry
}

// New creates a new auth Service
func New(clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = defaults.SessionDuration
	}
	if cfg.ChallengeTTL == 0 {
		cfg.ChallengeTTL = defaults.ChallengeTTL
	}
	if cfg.Issuer == "" {
		cfg.Issuer = defaults.Issuer
	}
	if len(cfg.Secret) == 0 {
		cfg.Secret = random.Bytes(secretLength)
	}

	admins := make(map[model.Address]bool, len(cfg.AdminAddresses))
	for _, a := range cfg.AdminAddresses {
		admins[a] = true
	}
	return &Service{
		clock:      clock,
		cfg:        cfg,
		admins:     admins,
		logger:     logger.With(slog.String("component", "auth")),
		challenges: make(map[model.Address]*Challenge),
		revoked:    make(map[string]time.Time),
	}
}

// ChallengeMessage renders the text a wallet signs for a login challenge
func ChallengeMessage(issuer string, addr model.Address, nonce string, expiresAt time.Time) string {
	return fmt.Sprintf("Sign in to %s\n\nAddress: %s\nNonce: %s\nExpires: %s",
		issuer, addr, nonce, expiresAt.UTC().Format(time.RFC3339))
}

// Challenge issues a fresh login challenge for addr, replacing any pending one
func (s *Service) Challenge(ctx context.Context, addr model.Address) (*Challenge, error) {
	if addr.IsZero() {
		return nil, model.ErrInvalidAddress
	}

	nonce := uuid.NewString()
	expiresAt := s.clock.Now().Add(s.cfg.ChallengeTTL)
	challenge := &Challenge{
		Address:   addr,
		Nonce:     nonce,
		Message:   ChallengeMessage(s.cfg.Issuer, addr, nonce, expiresAt),
		ExpiresAt: expiresAt,
	}

	s.mu.Lock()
	s.challenges[addr] = challenge
	s.mu.Unlock()

	c := *challenge
	return &c, nil
}

// Login checks that signature is addr's personal_sign signature over its pending
// challenge and issues a session. The challenge is consumed on success.
func (s *Service) Login(ctx context.Context, addr model.Address, signature []byte) (*Session, error) {
	now := s.clock.Now()

	s.mu.Lock()
	challenge, ok := s.challenges[addr]
	if ok && now.After(challenge.ExpiresAt) {
		delete(s.challenges, addr)
		s.mu.Unlock()
		return nil, ErrChallengeExpired
	}
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoChallenge
	}

	signer, err := ethcrypto.Recover(ethcrypto.PersonalMessageHash([]byte(challenge.Message)), signature)
	if err != nil || signer != addr {
		s.logger.Warn("login rejected", slog.String("address", addr.String()))
		return nil, ErrInvalidCredentials
	}

	s.mu.Lock()
	// A concurrent login may already have used it
	if s.challenges[addr] != challenge {
		s.mu.Unlock()
		return nil, ErrNoChallenge
	}
	delete(s.challenges, addr)
	s.mu.Unlock()

	session, err := s.issue(addr, now)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login", slog.String("address", addr.String()), slog.Bool("admin", session.IsAdmin))
	return session, nil
}

func (s *Service) issue(addr model.Address, now time.Time) (*Session, error) {
	id := uuid.NewString()
	expiresAt := now.Add(s.cfg.SessionDuration)
	admin := s.admins[addr]

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   addr.String(),
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Admin: admin,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, err
	}

	return &Session{
		Token:     token,
		ID:        id,
		Address:   addr,
		IsAdmin:   admin,
		IssuedAt:  now,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateSession parses a session token and returns the session it carries
func (s *Service) ValidateSession(token string) (*Session, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)

	claims := &sessionClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}

	addr, err := model.ParseAddress(claims.Subject)
	if err != nil {
		return nil, ErrInvalidSession
	}

	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, ErrInvalidSession
	}

	return &Session{
		Token:     token,
		ID:        claims.ID,
		Address:   addr,
		IsAdmin:   claims.Admin,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// InvalidateSession revokes a session token until it would have expired anyway
func (s *Service) InvalidateSession(token string) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.revoked[session.ID] = session.ExpiresAt
	s.mu.Unlock()
}

// IsAdmin reports whether addr is a configured admin
func (s *Service) IsAdmin(addr model.Address) bool {
	return s.admins[addr]
}

// CleanExpired drops expired challenges and revocations (call periodically)
func (s *Service) CleanExpired() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for addr, c := range s.challenges {
		if now.After(c.ExpiresAt) {
			delete(s.challenges, addr)
		}
	}
	for id, expiresAt := range s.revoked {
		if now.After(expiresAt) {
			delete(s.revoked, id)
		}
	}
}
