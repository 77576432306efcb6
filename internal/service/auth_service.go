package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// AuthService coordinates login and logout flows.
type AuthService struct {
	users       repository.UserRepository
	tokenMgr    *auth.TokenManager
	revocations auth.RevocationStore
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Revocations  auth.RevocationStore
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{
		users:       deps.UserRepo,
		tokenMgr:    deps.TokenManager,
		revocations: deps.Revocations,
	}
}

// Login checks credentials and issues a session token carrying the user's current role.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, domain.Session, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", domain.Session{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", domain.Session{}, apperrors.NewInternalError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", domain.Session{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, session, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", domain.Session{}, apperrors.NewInternalError(err)
	}
	return user, token, session, nil
}

// Logout revokes the session's token until it expires.
func (s *AuthService) Logout(ctx context.Context, session domain.Session) error {
	if s.revocations == nil {
		return nil
	}
	if err := s.revocations.Revoke(ctx, session.TokenID, session.ExpiresAt); err != nil {
		return apperrors.NewInternalError(err)
	}
	return nil
}
