package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"github.com/ranlab/bizdir-backend/pkg/metrics"
)

// ReconcileReport summarises one filter reconciliation pass.
type ReconcileReport struct {
	Checked  int
	Repaired int
	Failed   int
}

type RegionService interface {
	List(ctx context.Context) ([]model.Region, error)
	Save(ctx context.Context, caller model.Identity, region *model.Region) error
	Delete(ctx context.Context, caller model.Identity, id string) error
	ManagedBy(ctx context.Context, caller model.Identity, userAppID string) ([]model.Region, error)
	Filters(ctx context.Context, caller model.Identity, regionID string) (model.RegionFilters, error)
	// ReconcileFilters rebuilds every region's filters from its businesses.
	ReconcileFilters(ctx context.Context) (ReconcileReport, error)
}

type regionService struct {
	regionRepo repository.RegionRepository
	gate       IdentityService
	metrics    *metrics.Metrics
}

func NewRegionService(regionRepo repository.RegionRepository, gate IdentityService, m *metrics.Metrics) RegionService {
	return &regionService{
		regionRepo: regionRepo,
		gate:       gate,
		metrics:    m,
	}
}

func (s *regionService) List(ctx context.Context) ([]model.Region, error) {
	return s.regionRepo.FindAll(ctx)
}

func (s *regionService) Save(ctx context.Context, caller model.Identity, region *model.Region) error {
	if !caller.Admin {
		return ErrUnauthorized
	}
	region.Name = strings.TrimSpace(region.Name)
	if region.Name == "" {
		return ErrBadRequest
	}
	if err := s.regionRepo.Save(ctx, region); err != nil {
		return err
	}
	logger.Info("Region saved", logger.Fields{
		"region_id": region.ID,
		"manager":   region.Manager,
		"actor":     caller.UserAppID,
	})
	return nil
}

func (s *regionService) Delete(ctx context.Context, caller model.Identity, id string) error {
	if !caller.Admin {
		return ErrUnauthorized
	}
	return s.regionRepo.Delete(ctx, id)
}

// ManagedBy lists the regions userAppID manages. Callers may look up
// themselves; admins may look up anyone.
func (s *regionService) ManagedBy(ctx context.Context, caller model.Identity, userAppID string) ([]model.Region, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	if !caller.Admin && caller.UserAppID != userAppID {
		return nil, ErrUnauthorized
	}
	return s.regionRepo.FindByManager(ctx, userAppID)
}

func (s *regionService) Filters(ctx context.Context, caller model.Identity, regionID string) (model.RegionFilters, error) {
	region, err := s.gate.AuthorizeRegion(ctx, caller, regionID)
	if err != nil {
		return model.RegionFilters{}, err
	}
	return region.Filters, nil
}

func (s *regionService) ReconcileFilters(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport

	ids, err := s.regionRepo.ListIDs(ctx)
	if err != nil {
		return report, err
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Checked++

		changed, err := s.regionRepo.RecomputeFilters(ctx, id)
		switch {
		case errors.Is(err, ErrRegionNotFound):
			// deleted since ListIDs
			s.metrics.IncFilterReconcile("skipped")
		case err != nil:
			report.Failed++
			s.metrics.IncFilterReconcile("error")
		case changed:
			report.Repaired++
			s.metrics.IncFilterReconcile("repaired")
		default:
			s.metrics.IncFilterReconcile("ok")
		}
	}

	logger.Info("Region filter reconciliation finished", logger.Fields{
		"checked":  report.Checked,
		"repaired": report.Repaired,
		"failed":   report.Failed,
	})
	return report, nil
}
