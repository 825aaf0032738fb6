package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/auth0"
	"github.com/ranlab/bizdir-backend/pkg/logger"
)

// UserDirectory is the identity provider's user management API.
type UserDirectory interface {
	ListUsers(ctx context.Context, page, perPage int) ([]auth0.User, error)
	GetUser(ctx context.Context, userID string) (*auth0.User, error)
	UpdateUser(ctx context.Context, userID string, update auth0.UserUpdate) (*auth0.User, error)
}

const (
	defaultUsersPerPage = 50
	maxUsersPerPage     = 100
)

type UserService interface {
	List(ctx context.Context, caller model.Identity, page, perPage int) ([]model.User, error)
	// Get is open to admins, region managers and the user themself.
	Get(ctx context.Context, caller model.Identity, userAppID string) (*model.User, error)
	Update(ctx context.Context, caller model.Identity, userAppID string, patch model.UserPatch) (*model.User, error)
}

type userService struct {
	directory UserDirectory
	gate      IdentityService
}

// NewUserService takes the gate so role changes can drop cached identities.
func NewUserService(directory UserDirectory, gate IdentityService) UserService {
	return &userService{directory: directory, gate: gate}
}

func (s *userService) List(ctx context.Context, caller model.Identity, page, perPage int) ([]model.User, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	if page < 0 {
		page = 0
	}
	if perPage <= 0 {
		perPage = defaultUsersPerPage
	}
	if perPage > maxUsersPerPage {
		perPage = maxUsersPerPage
	}

	users, err := s.directory.ListUsers(ctx, page, perPage)
	if err != nil {
		return nil, s.mapError(err)
	}
	out := make([]model.User, 0, len(users))
	for _, u := range users {
		out = append(out, toModelUser(u))
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, caller model.Identity, userAppID string) (*model.User, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	if !caller.Admin && caller.Role != model.RoleRegion && caller.UserAppID != userAppID {
		return nil, ErrUnauthorized
	}

	u, err := s.directory.GetUser(ctx, ProviderUserID(userAppID))
	if err != nil {
		return nil, s.mapError(err)
	}
	user := toModelUser(*u)
	return &user, nil
}

func (s *userService) Update(ctx context.Context, caller model.Identity, userAppID string, patch model.UserPatch) (*model.User, error) {
	if !caller.Admin {
		return nil, ErrUnauthorized
	}

	update := auth0.UserUpdate{Name: patch.Name, Email: patch.Email}
	if patch.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*patch.Role))
		if role != "" && role != model.RoleAdmin && role != model.RoleRegion {
			return nil, fmt.Errorf("%w: unknown role %q", ErrBadRequest, *patch.Role)
		}
		update.AppMetadata = &auth0.AppMetadata{Role: role}
	}

	u, err := s.directory.UpdateUser(ctx, ProviderUserID(userAppID), update)
	if err != nil {
		return nil, s.mapError(err)
	}

	if patch.Role != nil && s.gate != nil {
		// cached identities still carry the old role
		if err := s.gate.FlushCache(ctx); err != nil {
			logger.Warn("Identity cache not flushed after role change", logger.Fields{
				"user_app_id": userAppID,
			})
		}
	}

	logger.Info("User updated", logger.Fields{
		"user_app_id":  userAppID,
		"role_changed": patch.Role != nil,
		"actor":        caller.UserAppID,
	})
	user := toModelUser(*u)
	return &user, nil
}

func (s *userService) mapError(err error) error {
	if errors.Is(err, auth0.ErrUserNotFound) {
		return ErrUserNotFound
	}
	logger.Error("Identity provider user call failed", err)
	return fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
}

func toModelUser(u auth0.User) model.User {
	return model.User{
		UserID:    u.UserID,
		UserAppID: UserAppID(u.UserID),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.AppMetadata.Role,
	}
}
