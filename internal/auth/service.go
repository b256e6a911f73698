package auth

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/frahmantamala/safety-hazards/internal/core/access"
)

// CredentialRepository loads users with their stored credentials.
// A missing user is reported as (nil, nil) or ErrUserNotFound.
type CredentialRepository interface {
	GetAuthByUsername(ctx context.Context, username string) (*UserAuth, error)
	GetAuthByID(ctx context.Context, userID int64) (*UserAuth, error)
}

// ServiceAPI is what the HTTP layer needs from the auth service.
type ServiceAPI interface {
	Login(ctx context.Context, dto LoginDTO, clientAddr string) (AuthTokens, error)
	RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
	PrincipalFromClaims(ctx context.Context, claims *Claims) (*Principal, error)
}

// Service is the main auth service with dependencies
type Service struct {
	repo           CredentialRepository
	hasher         *Hasher
	throttle       *LoginThrottle
	tokenGenerator TokenGenerator
	logger         *slog.Logger

	decoyIterations int
	dummyOnce       sync.Once
	dummy           PasswordCredential
}

type ServiceOption func(*Service)

// WithDecoyIterations sets the iteration count of the credential checked
// for unknown users. It should equal security.password_iterations.
func WithDecoyIterations(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.decoyIterations = n
		}
	}
}

// NewService creates a new auth service
func NewService(repo CredentialRepository, hasher *Hasher, throttle *LoginThrottle, tokenGen TokenGenerator, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:            repo,
		hasher:          hasher,
		throttle:        throttle,
		tokenGenerator:  tokenGen,
		logger:          logger,
		decoyIterations: DefaultIterations,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dummyCredential is verified against when the user does not exist so the
// response time does not reveal which usernames are registered. The
// timing only matches users hashed at the decoy iteration count.
func (s *Service) dummyCredential() PasswordCredential {
	s.dummyOnce.Do(func() {
		cred, err := s.hasher.Hash("not-a-real-password", s.decoyIterations)
		if err != nil {
			s.logger.Error("failed to prepare dummy credential", "error", err)
			return
		}
		s.dummy = cred
	})
	return s.dummy
}

// Authenticate checks a username and password. Every failure, including
// repository errors, is reported as ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*UserAuth, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetAuthByUsername(ctx, username)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.logger.ErrorContext(ctx, "credential lookup failed", "error", err)
	}
	if err != nil || user == nil {
		s.hasher.VerifyCredential(password, s.dummyCredential())
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive || !user.hasCredential() {
		s.hasher.VerifyCredential(password, s.dummyCredential())
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.VerifyCredential(password, user.Credential) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates through the login throttle and issues tokens.
func (s *Service) Login(ctx context.Context, dto LoginDTO, clientAddr string) (AuthTokens, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, err
	}

	key := ThrottleKey(clientAddr, dto.Username)
	if blocked, retryAfter := s.throttle.IsBlocked(key); blocked {
		s.logger.WarnContext(ctx, "login rejected by throttle", "retry_after", retryAfter)
		return AuthTokens{}, &ThrottledError{RetryAfter: retryAfter}
	}

	user, err := s.Authenticate(ctx, dto.Username, dto.Password)
	if err != nil {
		s.throttle.RegisterFailure(key)
		return AuthTokens{}, err
	}
	s.throttle.RegisterSuccess(key)

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.UserID)
	return s.issueTokens(toPrincipal(user))
}

// RefreshTokens validates refresh token and returns new tokens
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokenGenerator.ValidateToken(refreshToken, TokenKindRefresh)
	if err != nil {
		return AuthTokens{}, err
	}

	principal, err := s.PrincipalFromClaims(ctx, claims)
	if err != nil {
		return AuthTokens{}, err
	}
	return s.issueTokens(principal)
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString, TokenKindAccess)
}

// PrincipalFromClaims reloads the user named by the token so deactivation
// and role changes take effect before the token expires.
func (s *Service) PrincipalFromClaims(ctx context.Context, claims *Claims) (*Principal, error) {
	userID, err := strconv.ParseInt(claims.UserID, 10, 64)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.GetAuthByID(ctx, userID)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		s.logger.ErrorContext(ctx, "principal lookup failed", "user_id", userID, "error", err)
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, ErrUserNotFound
	}
	return toPrincipal(user), nil
}

func (s *Service) issueTokens(p *Principal) (AuthTokens, error) {
	accessToken, err := s.tokenGenerator.GenerateAccessToken(p)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokenGenerator.GenerateRefreshToken(p)
	if err != nil {
		return AuthTokens{}, err
	}

	return AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokenGenerator.AccessTTL().Seconds()),
	}, nil
}

func toPrincipal(u *UserAuth) *Principal {
	role, _ := access.ParseRole(u.Role)
	return &Principal{
		ID:       u.UserID,
		Username: u.Username,
		FullName: u.FullName,
		Role:     role,
	}
}
