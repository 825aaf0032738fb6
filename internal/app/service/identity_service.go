package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/internal/cache"
	"github.com/ranlab/bizdir-backend/pkg/auth0"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"github.com/ranlab/bizdir-backend/pkg/metrics"
	"github.com/ranlab/bizdir-backend/pkg/util"
	"golang.org/x/sync/singleflight"
)

// IdentityProvider resolves credentials and user roles upstream.
type IdentityProvider interface {
	UserInfo(ctx context.Context, authorization string) (*auth0.UserInfo, error)
	GetUser(ctx context.Context, userID string) (*auth0.User, error)
}

// IdentityService is the authorization gate: it turns a raw credential into
// an Identity and answers region-management questions.
type IdentityService interface {
	// Resolve returns the anonymous identity for an empty credential.
	Resolve(ctx context.Context, authorization string) (model.Identity, error)
	IsRegionManager(ctx context.Context, userAppID, regionID string) (bool, error)
	// AuthorizeRegion loads the region and checks the caller is an admin or
	// its manager. Non-admins get ErrUnauthorized for unknown regions.
	AuthorizeRegion(ctx context.Context, caller model.Identity, regionID string) (*model.Region, error)
	// Forget drops the cached resolution of one credential.
	Forget(ctx context.Context, authorization string) error
	FlushCache(ctx context.Context) error
}

type identityService struct {
	provider   IdentityProvider
	cache      cache.IdentityCache
	regionRepo repository.RegionRepository
	metrics    *metrics.Metrics
	ttl        time.Duration
	now        func() time.Time
	group      singleflight.Group
}

func NewIdentityService(
	provider IdentityProvider,
	identityCache cache.IdentityCache,
	regionRepo repository.RegionRepository,
	ttl time.Duration,
	m *metrics.Metrics,
) IdentityService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &identityService{
		provider:   provider,
		cache:      identityCache,
		regionRepo: regionRepo,
		metrics:    m,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *identityService) Resolve(ctx context.Context, authorization string) (model.Identity, error) {
	if strings.TrimSpace(authorization) == "" {
		return model.Identity{}, nil
	}

	key := util.CredentialHash(authorization)
	if identity, ok, err := s.cache.Get(ctx, key); err != nil {
		s.metrics.IncIdentityLookup("error")
		logger.Warn("Identity cache read failed, resolving upstream", logger.Fields{
			"error": err.Error(),
		})
	} else if ok {
		s.metrics.IncIdentityLookup("hit")
		return identity, nil
	}
	s.metrics.IncIdentityLookup("miss")

	// the lookup is shared, so one caller going away must not fail the rest
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.resolveUpstream(flightCtx, authorization, key)
	})
	if err != nil {
		return model.Identity{}, err
	}
	return v.(model.Identity), nil
}

func (s *identityService) resolveUpstream(ctx context.Context, authorization, key string) (model.Identity, error) {
	info, err := s.provider.UserInfo(ctx, authorization)
	if err != nil {
		if errors.Is(err, auth0.ErrInvalidCredential) {
			return model.Identity{}, ErrInvalidCredential
		}
		logger.Error("Failed to resolve credential upstream", err)
		return model.Identity{}, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}

	role := ""
	user, err := s.provider.GetUser(ctx, info.Sub)
	switch {
	case err == nil:
		role = user.AppMetadata.Role
	case errors.Is(err, auth0.ErrUserNotFound):
		logger.Warn("Authenticated user has no management profile", logger.Fields{
			"sub": info.Sub,
		})
	default:
		logger.Error("Failed to load user role", err, logger.Fields{
			"sub": info.Sub,
		})
		return model.Identity{}, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}

	identity := model.Identity{
		UserAppID: UserAppID(info.Sub),
		Role:      role,
		Admin:     role == model.RoleAdmin,
	}

	ttl := s.ttl
	if exp, ok := util.TokenExpiry(util.BearerToken(authorization)); ok {
		if remaining := exp.Sub(s.now()); remaining < ttl {
			ttl = remaining
		}
	}
	if err := s.cache.Set(ctx, key, identity, ttl); err != nil {
		logger.Warn("Failed to cache identity", logger.Fields{
			"error": err.Error(),
		})
	}

	logger.Debug("Identity resolved", logger.Fields{
		"user_app_id": identity.UserAppID,
		"admin":       identity.Admin,
		"cache_ttl":   ttl.String(),
	})
	return identity, nil
}

// UserAppID is the part of a provider subject after the connection prefix,
// e.g. "abc" for "auth0|abc".
func UserAppID(sub string) string {
	if i := strings.LastIndex(sub, "|"); i >= 0 {
		return sub[i+1:]
	}
	return sub
}

// ProviderUserID is the inverse of UserAppID for database connection users.
func ProviderUserID(userAppID string) string {
	if strings.Contains(userAppID, "|") {
		return userAppID
	}
	return "auth0|" + userAppID
}

func (s *identityService) IsRegionManager(ctx context.Context, userAppID, regionID string) (bool, error) {
	if userAppID == "" {
		return false, nil
	}
	region, err := s.regionRepo.FindByID(ctx, regionID)
	if err != nil {
		return false, err
	}
	return region.IsManagedBy(userAppID), nil
}

func (s *identityService) AuthorizeRegion(ctx context.Context, caller model.Identity, regionID string) (*model.Region, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	region, err := s.regionRepo.FindByID(ctx, regionID)
	if err != nil {
		if errors.Is(err, ErrRegionNotFound) && !caller.Admin {
			return nil, ErrUnauthorized
		}
		return nil, err
	}
	if !caller.CanManage(*region) {
		logger.Warn("Caller does not manage region", logger.Fields{
			"user_app_id": caller.UserAppID,
			"region_id":   regionID,
		})
		return nil, ErrUnauthorized
	}
	return region, nil
}

func (s *identityService) Forget(ctx context.Context, authorization string) error {
	if strings.TrimSpace(authorization) == "" {
		return nil
	}
	return s.cache.Delete(ctx, util.CredentialHash(authorization))
}

func (s *identityService) FlushCache(ctx context.Context) error {
	if err := s.cache.Flush(ctx); err != nil {
		logger.Error("Failed to flush identity cache", err)
		return err
	}
	logger.Info("Identity cache emptied")
	return nil
}
