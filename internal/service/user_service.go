package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/policy"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// MinPasswordLength is enforced on every password set through the API.
const MinPasswordLength = 8

// UserService manages accounts (admin) and the caller's own profile.
type UserService struct {
	users      repository.UserRepository
	tickets    repository.TicketRepository
	bcryptCost int
}

// UserDependencies bundles collaborators.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	TicketRepo repository.TicketRepository
	BcryptCost int
}

// UserCreateInput describes a new account.
type UserCreateInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserUpdateInput carries optional admin edits.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *string
}

// ProfileUpdateInput carries optional self edits. A new password needs the current one.
type ProfileUpdateInput struct {
	Name            *string
	Email           *string
	CurrentPassword *string
	NewPassword     *string
}

// NewUserService builds the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{users: deps.UserRepo, tickets: deps.TicketRepo, bcryptCost: deps.BcryptCost}
}

// List returns a page of accounts and the total count.
func (s *UserService) List(ctx context.Context, actor policy.Actor, page Page) ([]domain.User, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	users, err := s.users.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, 0, mapRepoError("user", "", err)
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		return nil, 0, mapRepoError("user", "", err)
	}
	return users, total, nil
}

func (s *UserService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("user", id, err)
	}
	return user, nil
}

func (s *UserService) Create(ctx context.Context, actor policy.Actor, input UserCreateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	details := map[string]any{}
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	if name == "" {
		details["name"] = "required"
	}
	if email == "" {
		details["email"] = "required"
	}
	if len(input.Password) < MinPasswordLength {
		details["password"] = "min 8 characters"
	}
	role, ok := domain.ParseRole(strings.TrimSpace(input.Role))
	if !ok {
		details["role"] = "must be one of admin, support, user"
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user", details)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user := &domain.User{Name: name, Email: email, PasswordHash: hash, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, emailConflict(err)
	}
	return user, nil
}

// Update applies admin edits. A user moved out of the support role loses every ticket assigned
// to them.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, input UserUpdateInput) (*domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoError("user", id, err)
	}
	previousRole := user.Role

	details := map[string]any{}
	applyNameEmail(user, input.Name, input.Email, details)
	if input.Role != nil {
		role, ok := domain.ParseRole(strings.TrimSpace(*input.Role))
		if !ok {
			details["role"] = "must be one of admin, support, user"
		} else {
			user.Role = role
		}
	}
	if input.Password != nil {
		if len(*input.Password) < MinPasswordLength {
			details["password"] = "min 8 characters"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid user", details)
	}
	if input.Password != nil {
		if user.PasswordHash, err = auth.HashPassword(*input.Password, s.bcryptCost); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, emailConflict(err)
	}
	if previousRole == domain.RoleSupport && user.Role != domain.RoleSupport {
		if _, err := s.tickets.ClearAssignments(ctx, user.ID); err != nil {
			return nil, mapRepoError("user", id, err)
		}
	}
	return user, nil
}

// Delete removes an account. Admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.ID {
		return apperrors.NewBusinessRuleError("cannot delete your own account", nil)
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return mapRepoError("user", id, err)
	}
	return nil
}

// Profile returns the caller's own account.
func (s *UserService) Profile(ctx context.Context, actor policy.Actor) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError("user", actor.ID, err)
	}
	return user, nil
}

// UpdateProfile edits the caller's name, email or password. The role is never touched.
func (s *UserService) UpdateProfile(ctx context.Context, actor policy.Actor, input ProfileUpdateInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, mapRepoError("user", actor.ID, err)
	}

	details := map[string]any{}
	applyNameEmail(user, input.Name, input.Email, details)
	if input.NewPassword != nil {
		switch {
		case len(*input.NewPassword) < MinPasswordLength:
			details["new_password"] = "min 8 characters"
		case input.CurrentPassword == nil || auth.ComparePassword(user.PasswordHash, *input.CurrentPassword) != nil:
			details["current_password"] = "does not match"
		}
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid profile", details)
	}
	if input.NewPassword != nil {
		if user.PasswordHash, err = auth.HashPassword(*input.NewPassword, s.bcryptCost); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, emailConflict(err)
	}
	return user, nil
}

func applyNameEmail(user *domain.User, name, email *string, details map[string]any) {
	if name != nil {
		if v := strings.TrimSpace(*name); v == "" {
			details["name"] = "required"
		} else {
			user.Name = v
		}
	}
	if email != nil {
		if v := strings.TrimSpace(*email); v == "" {
			details["email"] = "required"
		} else {
			user.Email = v
		}
	}
}

func emailConflict(err error) error {
	mapped := mapRepoError("user", "", err)
	if apperrors.IsStatus(mapped, http.StatusConflict) {
		return apperrors.NewConflict("email already taken", map[string]any{"field": "email"})
	}
	return mapped
}

func requireAdmin(actor policy.Actor) error {
	if !actor.Role.Valid() {
		return errUnknownRole()
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}
