package service

import (
	"context"
	"errors"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"gorm.io/gorm"
)

// RegionBusinesses is a region's directory page: its businesses plus the
// filter summary the UI builds facets from.
type RegionBusinesses struct {
	RegionID   string
	Businesses []model.Business
	Filters    model.RegionFilters
}

type BusinessService interface {
	ListByRegion(ctx context.Context, caller model.Identity, regionID string) (*RegionBusinesses, error)
	Create(ctx context.Context, caller model.Identity, routeRegionID string, b *model.Business) (string, error)
	Update(ctx context.Context, caller model.Identity, id string, upd model.BusinessUpdate) (*model.Business, error)
	Delete(ctx context.Context, caller model.Identity, id string) error
	// Industries lists every industry label in use across regions.
	Industries(ctx context.Context, caller model.Identity) ([]string, error)
}

type businessService struct {
	businessRepo repository.BusinessRepository
	gate         IdentityService
}

func NewBusinessService(businessRepo repository.BusinessRepository, gate IdentityService) BusinessService {
	return &businessService{
		businessRepo: businessRepo,
		gate:         gate,
	}
}

func (s *businessService) ListByRegion(ctx context.Context, caller model.Identity, regionID string) (*RegionBusinesses, error) {
	region, err := s.gate.AuthorizeRegion(ctx, caller, regionID)
	if err != nil {
		return nil, err
	}
	businesses, err := s.businessRepo.FindByRegion(ctx, regionID)
	if err != nil {
		return nil, err
	}
	return &RegionBusinesses{
		RegionID:   region.ID,
		Businesses: businesses,
		Filters:    region.Filters,
	}, nil
}

func (s *businessService) Create(ctx context.Context, caller model.Identity, routeRegionID string, b *model.Business) (string, error) {
	if _, err := s.gate.AuthorizeRegion(ctx, caller, routeRegionID); err != nil {
		return "", err
	}
	if b.RegionID != "" && b.RegionID != routeRegionID {
		return "", ErrRegionMismatch
	}
	b.RegionID = routeRegionID
	b.ID = ""

	id, err := s.businessRepo.Upsert(ctx, b)
	if err != nil {
		return "", err
	}
	logger.Info("Business created", logger.Fields{
		"business_id": id,
		"region_id":   routeRegionID,
		"actor":       caller.UserAppID,
	})
	return id, nil
}

// Update merges upd into the stored business. Moving it to another region
// requires managing both regions.
func (s *businessService) Update(ctx context.Context, caller model.Identity, id string, upd model.BusinessUpdate) (*model.Business, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	if upd.ID != "" && upd.ID != id {
		return nil, ErrBadRequest
	}

	current, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.AuthorizeRegion(ctx, caller, current.RegionID); err != nil {
		return nil, err
	}

	merged := upd.ApplyTo(*current)
	merged.ID = id
	if merged.RegionID != current.RegionID {
		if _, err := s.gate.AuthorizeRegion(ctx, caller, merged.RegionID); err != nil {
			return nil, err
		}
	}

	if _, err := s.businessRepo.Upsert(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *businessService) Delete(ctx context.Context, caller model.Identity, id string) error {
	if !caller.Authenticated() {
		return ErrUnauthorized
	}
	current, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.gate.AuthorizeRegion(ctx, caller, current.RegionID); err != nil {
		return err
	}
	if _, err := s.businessRepo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("Business deleted", logger.Fields{
		"business_id": id,
		"region_id":   current.RegionID,
		"actor":       caller.UserAppID,
	})
	return nil
}

func (s *businessService) Industries(ctx context.Context, caller model.Identity) ([]string, error) {
	if !caller.Admin {
		return nil, ErrUnauthorized
	}
	return s.businessRepo.ListIndustries(ctx)
}

func (s *businessService) find(ctx context.Context, id string) (*model.Business, error) {
	b, err := s.businessRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	return b, nil
}
