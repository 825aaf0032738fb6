package repository

import (
	"context"
	"errors"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"gorm.io/gorm"
)

type RegionRepository interface {
	// Save creates the region or updates its name and manager. Filters are
	// owned by the aggregator and never overwritten here.
	Save(ctx context.Context, region *model.Region) error
	// Delete removes the region together with its businesses.
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Region, error)
	FindAll(ctx context.Context) ([]model.Region, error)
	FindByManager(ctx context.Context, userAppID string) ([]model.Region, error)
	ListIDs(ctx context.Context) ([]string, error)
	// RecomputeFilters rebuilds the summary from the region's businesses and
	// reports whether it changed.
	RecomputeFilters(ctx context.Context, id string) (bool, error)
}

type regionRepository struct {
	db      *gorm.DB
	filters FilterAggregator
}

func NewRegionRepository(db *gorm.DB, filters FilterAggregator) RegionRepository {
	return &regionRepository{db: db, filters: filters}
}

func (r *regionRepository) Save(ctx context.Context, region *model.Region) error {
	logger.Debug("Saving region in database", logger.Fields{
		"region_id": region.ID,
		"name":      region.Name,
		"manager":   region.Manager,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if region.ID != "" {
			var existing model.Region
			err := tx.Clauses(lockForUpdate).First(&existing, "id = ?", region.ID).Error
			if err == nil {
				region.Filters = existing.Filters
				region.CreatedAt = existing.CreatedAt
				return tx.Model(&model.Region{}).Where("id = ?", region.ID).Updates(map[string]interface{}{
					"name":    region.Name,
					"manager": region.Manager,
				}).Error
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}
		region.Filters = model.RegionFilters{}
		return tx.Create(region).Error
	})
	if err != nil {
		logger.Error("Failed to save region in database", err, logger.Fields{
			"region_id": region.ID,
		})
		return err
	}

	logger.Debug("Region saved in database", logger.Fields{
		"region_id": region.ID,
	})
	return nil
}

func (r *regionRepository) Delete(ctx context.Context, id string) error {
	logger.Debug("Deleting region from database", logger.Fields{
		"region_id": id,
	})

	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var region model.Region
		if err := tx.Clauses(lockForUpdate).Select("id").First(&region, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRegionNotFound
			}
			return err
		}
		res := tx.Where("region_id = ?", id).Delete(&model.Business{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Delete(&model.Region{}, "id = ?", id).Error
	})
	if err != nil {
		if !errors.Is(err, ErrRegionNotFound) {
			logger.Error("Failed to delete region from database", err, logger.Fields{
				"region_id": id,
			})
		}
		return err
	}

	logger.Info("Region deleted", logger.Fields{
		"region_id":          id,
		"businesses_removed": removed,
	})
	return nil
}

func (r *regionRepository) FindByID(ctx context.Context, id string) (*model.Region, error) {
	var region model.Region
	if err := r.db.WithContext(ctx).First(&region, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegionNotFound
		}
		logger.Error("Failed to find region by ID", err, logger.Fields{
			"region_id": id,
		})
		return nil, err
	}
	return &region, nil
}

func (r *regionRepository) FindAll(ctx context.Context) ([]model.Region, error) {
	var regions []model.Region
	if err := r.db.WithContext(ctx).Order("name ASC").Order("id ASC").Find(&regions).Error; err != nil {
		logger.Error("Failed to list regions", err)
		return nil, err
	}
	return regions, nil
}

func (r *regionRepository) FindByManager(ctx context.Context, userAppID string) ([]model.Region, error) {
	logger.Debug("Finding regions by manager", logger.Fields{
		"manager": userAppID,
	})

	var regions []model.Region
	if err := r.db.WithContext(ctx).Where("manager = ?", userAppID).Order("name ASC").Find(&regions).Error; err != nil {
		logger.Error("Failed to find regions by manager", err, logger.Fields{
			"manager": userAppID,
		})
		return nil, err
	}
	return regions, nil
}

func (r *regionRepository) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.Region{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *regionRepository) RecomputeFilters(ctx context.Context, id string) (bool, error) {
	var changed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		_, changed, err = r.filters.Recompute(tx, id)
		return err
	})
	if err != nil {
		logger.Error("Failed to recompute region filters", err, logger.Fields{
			"region_id": id,
		})
		return false, err
	}
	if changed {
		logger.Warn("Region filters drifted and were rebuilt", logger.Fields{
			"region_id": id,
		})
	}
	return changed, nil
}
