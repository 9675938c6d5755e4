package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/example/seminar-scheduler/internal/persistence"
)

const tokenIssuer = "seminar-scheduler"

// AuthService verifies administrator credentials and issues bearer tokens.
type AuthService struct {
	admins   AdminRepository
	secret   []byte
	tokenTTL time.Duration
	params   Argon2idParams
	now      func() time.Time
	logger   *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(admins AdminRepository, secret []byte, tokenTTL time.Duration, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(admins, secret, tokenTTL, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(admins AdminRepository, secret []byte, tokenTTL time.Duration, now func() time.Time, logger *slog.Logger) *AuthService {
	if now == nil {
		now = time.Now
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &AuthService{
		admins:   admins,
		secret:   secret,
		tokenTTL: tokenTTL,
		params:   DefaultArgon2idParams,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

// WithHashParams overrides the argon2id cost used for new hashes.
func (s *AuthService) WithHashParams(params Argon2idParams) *AuthService {
	s.params = params
	return s
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// EnsureAdminAccount seeds the administrator account when it does not exist.
// An existing account keeps its password.
func (s *AuthService) EnsureAdminAccount(ctx context.Context, username, password string) (err error) {
	if s == nil || s.admins == nil {
		return fmt.Errorf("admin repository not configured")
	}
	username = strings.TrimSpace(username)

	logger := s.loggerWith(ctx, "EnsureAdminAccount", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed admin account", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if username == "" || password == "" {
		vErr := &ValidationError{}
		if username == "" {
			vErr.add("username", "username is required")
		}
		if password == "" {
			vErr.add("password", "password is required")
		}
		return vErr
	}

	hash, err := CreatePasswordHash(password, s.params)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	created, err := s.admins.CreateAdminAccountIfMissing(ctx, persistence.AdminAccount{Username: username, PasswordHash: hash})
	if err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	if created {
		logger.InfoContext(ctx, "admin account created")
	}
	return nil
}

// Authenticate reports whether username and password match a stored account.
// Legacy plaintext rows are upgraded to argon2id on a successful match.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (ok bool, err error) {
	if s == nil || s.admins == nil {
		return false, fmt.Errorf("admin repository not configured")
	}
	username = strings.TrimSpace(username)

	logger := s.loggerWith(ctx, "Authenticate", "username", username)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		if !ok {
			logger.WarnContext(ctx, "authentication rejected")
		}
	}()

	if username == "" || password == "" {
		return false, nil
	}

	account, err := s.admins.GetAdminAccount(ctx, username)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get admin account: %w", err)
	}

	if IsPasswordHash(account.PasswordHash) {
		switch verifyErr := VerifyPassword(account.PasswordHash, password); {
		case verifyErr == nil:
			return true, nil
		case errors.Is(verifyErr, ErrInvalidCredentials):
			return false, nil
		default:
			return false, fmt.Errorf("verify password: %w", verifyErr)
		}
	}

	if verifyLegacyPassword(account.PasswordHash, password) != nil {
		return false, nil
	}

	hash, hashErr := CreatePasswordHash(password, s.params)
	if hashErr != nil {
		logger.WarnContext(ctx, "failed to rehash legacy password", "error", hashErr)
		return true, nil
	}
	if updateErr := s.admins.UpdateAdminPasswordHash(ctx, username, hash); updateErr != nil {
		logger.WarnContext(ctx, "failed to store rehashed password", "error", updateErr)
		return true, nil
	}
	logger.InfoContext(ctx, "legacy password upgraded")
	return true, nil
}

// Login authenticates and returns a signed bearer token with its expiry.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	ok, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", time.Time{}, err
	}
	if !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return s.IssueToken(Principal{Username: strings.TrimSpace(username)})
}

// IssueToken signs an HS256 token for principal.
func (s *AuthService) IssueToken(principal Principal) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("token secret not configured")
	}
	now := s.now()
	expires := now.Add(s.tokenTTL)

	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   principal.Username,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ValidateToken verifies a bearer token and returns its principal.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (principal Principal, err error) {
	logger := s.loggerWith(ctx, "ValidateToken")
	defer func() {
		if err != nil {
			logger.DebugContext(ctx, "token rejected", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if strings.TrimSpace(token) == "" || len(s.secret) == 0 {
		return Principal{}, ErrUnauthorized
	}

	claims := &jwt.RegisteredClaims{}
	parsed, parseErr := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if parseErr != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrUnauthorized, parseErr)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Principal{}, ErrUnauthorized
	}
	return Principal{Username: claims.Subject}, nil
}
