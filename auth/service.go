package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Config controls role assignment and password reset.
type Config struct {
	AdminEmails  []string
	EditorEmails []string

	// ResetSecret signs password-reset tokens.
	ResetSecret []byte
	ResetTTL    time.Duration
	// ResetURL is the page the reset link points to; the token is added
	// as the "token" query parameter.
	ResetURL string

	BcryptCost int
}

// Service implements account operations.
type Service struct {
	repo   Repository
	mailer Mailer
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a Service. A nil mailer logs reset links.
func NewService(repo Repository, mailer Mailer, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mailer == nil {
		mailer = LogMailer{Logger: logger}
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &Service{repo: repo, mailer: mailer, cfg: cfg, logger: logger, now: time.Now}
}

// NormalizeEmail trims and lower-cases an address after checking its syntax.
func NormalizeEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

func contains(list []string, email string) bool {
	for _, e := range list {
		if strings.EqualFold(strings.TrimSpace(e), email) {
			return true
		}
	}
	return false
}

// RoleFor returns the role configured for email.
func (s *Service) RoleFor(email string) string {
	switch {
	case contains(s.cfg.AdminEmails, email):
		return RoleAdmin
	case contains(s.cfg.EditorEmails, email):
		return RoleEditor
	}
	return RoleReader
}

// promote raises the stored role of u to its configured role.
func (s *Service) promote(ctx context.Context, u *User) error {
	want := s.RoleFor(u.Email)
	if rank(want) <= rank(u.Role) {
		return nil
	}
	if err := s.repo.UpdateRole(ctx, u.ID, want); err != nil {
		return err
	}
	u.Role = want
	return nil
}

func (s *Service) hash(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrWeakPassword
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "auth: hash password")
	}
	return string(b), nil
}

// SignUp registers a password account.
func (s *Service) SignUp(ctx context.Context, email, password string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	hash, err := s.hash(password)
	if err != nil {
		return User{}, err
	}
	u := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         s.RoleFor(email),
		Provider:     ProviderPassword,
	}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return User{}, err
	}
	s.logger.Info("user signed up", zap.String("user_id", u.ID), zap.String("role", u.Role))
	return u, nil
}

// SignIn checks a password. Unknown emails and wrong passwords fail alike.
func (s *Service) SignIn(ctx context.Context, email, password string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, ErrInvalidCredentials
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	if err := s.promote(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// SignInWithProvider finds or creates the account of an email verified by
// an external provider.
func (s *Service) SignInWithProvider(ctx context.Context, provider, email string) (User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if err := s.promote(ctx, &u); err != nil {
			return User{}, err
		}
		return u, nil
	case !errors.Is(err, ErrNotFound):
		return User{}, err
	}
	u = User{ID: uuid.NewString(), Email: email, Role: s.RoleFor(email), Provider: provider}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return User{}, err
	}
	s.logger.Info("user signed up", zap.String("user_id", u.ID), zap.String("provider", provider))
	return u, nil
}

// User loads an account by id.
func (s *Service) User(ctx context.Context, id string) (User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// EnsureAdmin creates the bootstrap admin account, or promotes it if it
// already exists. An empty email is a no-op.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" {
		return nil
	}
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.Role != RoleAdmin {
			return s.repo.UpdateRole(ctx, u.ID, RoleAdmin)
		}
		return nil
	case !errors.Is(err, ErrNotFound):
		return err
	}
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	u = User{ID: uuid.NewString(), Email: email, PasswordHash: hash, Role: RoleAdmin, Provider: ProviderPassword}
	if err := s.repo.CreateUser(ctx, &u); err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("email", email))
	return nil
}

type resetClaims struct {
	Fingerprint string `json:"fp"`
	jwt.RegisteredClaims
}

// fingerprint ties a reset token to the password hash it was issued for,
// so a token stops working once the password changes.
func fingerprint(hash string) string {
	sum := sha256.Sum256([]byte(hash))
	return hex.EncodeToString(sum[:8])
}

func (s *Service) resetToken(u User) (string, error) {
	now := s.now()
	claims := resetClaims{
		Fingerprint: fingerprint(u.PasswordHash),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ResetTTL)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.ResetSecret)
}

// RequestPasswordReset mails a reset link. Unknown addresses succeed
// silently so the endpoint cannot be used to probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}
	u, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.logger.Debug("password reset for unknown email")
		return nil
	}
	if err != nil {
		return err
	}
	token, err := s.resetToken(u)
	if err != nil {
		return errors.Wrap(err, "auth: sign reset token")
	}
	link := s.cfg.ResetURL
	if parsed, err := url.Parse(link); err == nil {
		q := parsed.Query()
		q.Set("token", token)
		parsed.RawQuery = q.Encode()
		link = parsed.String()
	}
	return s.mailer.SendPasswordReset(ctx, u.Email, link)
}

// ResetPassword sets a new password using a token from RequestPasswordReset.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (User, error) {
	var claims resetClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.cfg.ResetSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return User{}, ErrInvalidToken
	}
	u, err := s.repo.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrInvalidToken
	}
	if err != nil {
		return User{}, err
	}
	if claims.Fingerprint != fingerprint(u.PasswordHash) {
		return User{}, ErrInvalidToken
	}
	if err := s.UpdatePassword(ctx, u.ID, password); err != nil {
		return User{}, err
	}
	return u, nil
}

// UpdatePassword replaces the password of a signed-in user.
func (s *Service) UpdatePassword(ctx context.Context, userID, password string) error {
	hash, err := s.hash(password)
	if err != nil {
		return err
	}
	return s.repo.UpdatePasswordHash(ctx, userID, hash)
}
