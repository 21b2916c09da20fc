package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"storefront/config"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Session stages carried in tokens
const (
	StageUser  = "user"
	StagePin   = "pin"
	StageAdmin = "admin"
)

const minPasswordLength = 8

var pinPattern = regexp.MustCompile(`^[0-9]{4,6}$`)

// Session is the authenticated caller of a request
type Session struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Stage   string `json:"stage"`
}

type sessionClaims struct {
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Stage   string `json:"stage"`
	jwt.RegisteredClaims
}

// AuthResult is returned after a successful login step
type AuthResult struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expiresAt"`
	Profile   *models.UserProfile `json:"profile,omitempty"`
}

// AuthService handles customer accounts, the admin login and session tokens
type AuthService struct {
	store      *store.Store
	cfg        config.AuthConfig
	bcryptCost int
	logger     *zap.Logger
	now        func() time.Time
}

func NewAuthService(store *store.Store, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		store:      store,
		cfg:        cfg,
		bcryptCost: bcrypt.DefaultCost,
		logger:     util.GetLogger(),
		now:        time.Now,
	}
}

// NormalizeEmail trims and lower-cases an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	email := NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)
	if name == "" || email == "" {
		return nil, invalid("name and email are required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}

	if existing := s.store.GetUserData(ctx, email); existing != nil {
		util.AuthAttemptsTotal.WithLabelValues("register", "conflict").Inc()
		return nil, conflict("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.InitializeUserAccount(ctx, models.UserProfile{
		Name:         name,
		Email:        email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if user.Profile.PasswordHash != string(hash) {
		// lost a race with another registration for the same email
		return nil, conflict("an account with this email already exists")
	}

	util.AuthAttemptsTotal.WithLabelValues("register", "ok").Inc()
	s.logger.Info("Account registered", zap.String("email", email))
	return s.userSession(user.Profile)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	email := NormalizeEmail(req.Email)
	user := s.store.GetUserData(ctx, email)
	if user == nil || user.Profile.PasswordHash == "" {
		util.AuthAttemptsTotal.WithLabelValues("login", "unknown").Inc()
		return nil, &RuleError{Kind: ErrUnauthorized, Message: "invalid email or password"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Profile.PasswordHash), []byte(req.Password)); err != nil {
		util.AuthAttemptsTotal.WithLabelValues("login", "rejected").Inc()
		s.logger.Info("Login rejected", zap.String("email", email))
		return nil, &RuleError{Kind: ErrUnauthorized, Message: "invalid email or password"}
	}

	util.AuthAttemptsTotal.WithLabelValues("login", "ok").Inc()
	return s.userSession(user.Profile)
}

func (s *AuthService) userSession(profile models.UserProfile) (*AuthResult, error) {
	token, expires, err := s.issue(Session{Email: profile.Email, Stage: StageUser}, s.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	profile.PasswordHash = ""
	return &AuthResult{Token: token, ExpiresAt: expires, Profile: &profile}, nil
}

// AdminConfigured reports whether the one-time admin setup has run
func (s *AuthService) AdminConfigured(ctx context.Context) bool {
	return s.store.GetAdminCredentials(ctx).Configured()
}

type AdminSetupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Pin      string `json:"pin" binding:"required"`
}

// ConfigureAdmin stores the admin credentials once; later calls are rejected
func (s *AuthService) ConfigureAdmin(ctx context.Context, req AdminSetupRequest) error {
	ctx, span := util.StartSpan(ctx, "AuthService.ConfigureAdmin")
	defer span.End()

	email := NormalizeEmail(req.Email)
	switch {
	case !strings.Contains(email, "@"):
		return invalid("a valid admin email is required")
	case len(req.Password) < minPasswordLength:
		return invalid("password must be at least %d characters", minPasswordLength)
	case !pinPattern.MatchString(req.Pin):
		return invalid("PIN must be 4 to 6 digits")
	}

	if s.AdminConfigured(ctx) {
		return conflict("admin access is already configured")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	pinHash, err := bcrypt.GenerateFromPassword([]byte(req.Pin), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash pin: %w", err)
	}

	stored, err := s.store.ConfigureAdminCredentials(ctx, models.AdminCredentials{
		Email:        email,
		PasswordHash: string(passwordHash),
		PinHash:      string(pinHash),
		ConfiguredAt: s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to save admin credentials: %w", err)
	}
	if !stored {
		return conflict("admin access is already configured")
	}

	s.logger.Info("Admin access configured", zap.String("email", email))
	return nil
}

// AdminLogin checks the password and returns a short-lived PIN challenge token
func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.AdminLogin")
	defer span.End()

	creds := s.store.GetAdminCredentials(ctx)
	if !creds.Configured() {
		return nil, invalid("admin access has not been set up")
	}

	if NormalizeEmail(email) != creds.Email ||
		bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) != nil {
		util.AuthAttemptsTotal.WithLabelValues("admin_login", "rejected").Inc()
		return nil, &RuleError{Kind: ErrUnauthorized, Message: "invalid admin credentials"}
	}

	token, expires, err := s.issue(Session{Email: creds.Email, Stage: StagePin}, s.cfg.PinChallengeTTL)
	if err != nil {
		return nil, err
	}
	util.AuthAttemptsTotal.WithLabelValues("admin_login", "ok").Inc()
	return &AuthResult{Token: token, ExpiresAt: expires}, nil
}

// VerifyAdminPin exchanges a PIN challenge token and the PIN for an admin session
func (s *AuthService) VerifyAdminPin(ctx context.Context, challenge, pin string) (*AuthResult, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.VerifyAdminPin")
	defer span.End()

	session, err := s.ParseSession(challenge)
	if err != nil || session.Stage != StagePin {
		util.AuthAttemptsTotal.WithLabelValues("admin_pin", "bad_challenge").Inc()
		return nil, &RuleError{Kind: ErrUnauthorized, Message: "PIN challenge expired, log in again"}
	}

	creds := s.store.GetAdminCredentials(ctx)
	if !creds.Configured() || session.Email != creds.Email ||
		bcrypt.CompareHashAndPassword([]byte(creds.PinHash), []byte(pin)) != nil {
		util.AuthAttemptsTotal.WithLabelValues("admin_pin", "rejected").Inc()
		return nil, &RuleError{Kind: ErrUnauthorized, Message: "invalid PIN"}
	}

	token, expires, err := s.issue(Session{Email: creds.Email, IsAdmin: true, Stage: StageAdmin}, s.cfg.AdminSessionTTL)
	if err != nil {
		return nil, err
	}
	util.AuthAttemptsTotal.WithLabelValues("admin_pin", "ok").Inc()
	s.logger.Info("Admin session granted", zap.String("email", creds.Email))
	return &AuthResult{Token: token, ExpiresAt: expires}, nil
}

func (s *AuthService) issue(session Session, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(ttl)
	claims := sessionClaims{
		Email:   session.Email,
		IsAdmin: session.IsAdmin,
		Stage:   session.Stage,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseSession validates an HS256 token and returns its session
func (s *AuthService) ParseSession(raw string) (*Session, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Email == "" || claims.Stage == "" {
		return nil, fmt.Errorf("%w: token is missing session claims", ErrUnauthorized)
	}
	return &Session{Email: claims.Email, IsAdmin: claims.IsAdmin, Stage: claims.Stage}, nil
}
