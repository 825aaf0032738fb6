package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"gorm.io/gorm"
)

// ExportChunkSize is the default and largest page FindAllPaged returns.
const ExportChunkSize = 500

type BusinessRepository interface {
	// Upsert creates or overwrites b and keeps region filters in step. It
	// returns the persisted id.
	Upsert(ctx context.Context, b *model.Business) (string, error)
	// Delete removes the business and decrements its region's filters.
	// Unknown ids are a no-op.
	Delete(ctx context.Context, id string) (*model.Business, error)
	FindByID(ctx context.Context, id string) (*model.Business, error)
	FindByRegion(ctx context.Context, regionID string) ([]model.Business, error)
	FindAllPaged(ctx context.Context, page model.Page) ([]model.Business, error)
	ListIndustries(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int64, error)
}

type businessRepository struct {
	db      *gorm.DB
	filters FilterAggregator
}

func NewBusinessRepository(db *gorm.DB, filters FilterAggregator) BusinessRepository {
	return &businessRepository{db: db, filters: filters}
}

func (r *businessRepository) Upsert(ctx context.Context, b *model.Business) (string, error) {
	logger.Debug("Upserting business in database", logger.Fields{
		"business_id": b.ID,
		"region_id":   b.RegionID,
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Business
		found := false
		if b.ID != "" {
			err := tx.Clauses(lockForUpdate).First(&existing, "id = ?", b.ID).Error
			switch {
			case err == nil:
				found = true
			case errors.Is(err, gorm.ErrRecordNotFound):
			default:
				return err
			}
		} else {
			b.ID = uuid.NewString()
		}

		moved := found && existing.RegionID != b.RegionID
		if moved {
			if err := r.filters.LockRegions(tx, existing.RegionID, b.RegionID); err != nil {
				return err
			}
		}

		// increments first so an unchanged facet keeps its position
		deltas := []model.FilterDelta{b.FilterDelta(1)}
		if found && !moved {
			deltas = append(deltas, existing.FilterDelta(-1))
		}
		if err := r.filters.ApplyDelta(tx, b.RegionID, deltas...); err != nil {
			return err
		}
		if moved {
			err := r.filters.ApplyDelta(tx, existing.RegionID, existing.FilterDelta(-1))
			if err != nil && !errors.Is(err, ErrRegionNotFound) {
				return err
			}
		}

		if found {
			b.CreatedAt = existing.CreatedAt
			return tx.Save(b).Error
		}
		return tx.Create(b).Error
	})
	if err != nil {
		logger.Error("Failed to upsert business in database", err, logger.Fields{
			"business_id": b.ID,
			"region_id":   b.RegionID,
		})
		return "", err
	}

	logger.Debug("Business upserted in database", logger.Fields{
		"business_id": b.ID,
		"region_id":   b.RegionID,
	})
	return b.ID, nil
}

func (r *businessRepository) Delete(ctx context.Context, id string) (*model.Business, error) {
	logger.Debug("Deleting business from database", logger.Fields{
		"business_id": id,
	})

	var deleted *model.Business
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Business
		err := tx.Clauses(lockForUpdate).First(&existing, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := r.filters.ApplyDelta(tx, existing.RegionID, existing.FilterDelta(-1)); err != nil {
			return err
		}
		if err := tx.Delete(&model.Business{}, "id = ?", id).Error; err != nil {
			return err
		}
		deleted = &existing
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete business from database", err, logger.Fields{
			"business_id": id,
		})
		return nil, err
	}

	logger.Debug("Business delete finished", logger.Fields{
		"business_id": id,
		"existed":     deleted != nil,
	})
	return deleted, nil
}

func (r *businessRepository) FindByID(ctx context.Context, id string) (*model.Business, error) {
	var b model.Business
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find business by ID", err, logger.Fields{
				"business_id": id,
			})
		}
		return nil, err
	}
	return &b, nil
}

func (r *businessRepository) FindByRegion(ctx context.Context, regionID string) ([]model.Business, error) {
	logger.Debug("Finding businesses by region", logger.Fields{
		"region_id": regionID,
	})

	var businesses []model.Business
	if err := r.db.WithContext(ctx).
		Where("region_id = ?", regionID).
		Order("name ASC").Order("id ASC").
		Find(&businesses).Error; err != nil {
		logger.Error("Failed to find businesses by region", err, logger.Fields{
			"region_id": regionID,
		})
		return nil, err
	}

	logger.Debug("Businesses found", logger.Fields{
		"region_id": regionID,
		"count":     len(businesses),
	})
	return businesses, nil
}

// FindAllPaged walks every business ordered by (name, id). The cursor is the
// id of the last business of the previous page.
func (r *businessRepository) FindAllPaged(ctx context.Context, page model.Page) ([]model.Business, error) {
	if page.Size <= 0 || page.Size > ExportChunkSize {
		page.Size = ExportChunkSize
	}
	query := r.db.WithContext(ctx).Model(&model.Business{})

	if page.AfterID != "" {
		var cursor model.Business
		err := r.db.WithContext(ctx).Select("id", "name").First(&cursor, "id = ?", page.AfterID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCursor
		}
		if err != nil {
			return nil, err
		}
		query = query.Where("(name > ? OR (name = ? AND id > ?))", cursor.Name, cursor.Name, cursor.ID)
	}

	var businesses []model.Business
	if err := query.Order("name ASC").Order("id ASC").Limit(page.Size).Find(&businesses).Error; err != nil {
		logger.Error("Failed to page businesses", err, logger.Fields{
			"after_id": page.AfterID,
		})
		return nil, err
	}
	return businesses, nil
}

// ListIndustries returns every distinct non-empty industry, sorted.
func (r *businessRepository) ListIndustries(ctx context.Context) ([]string, error) {
	var industries []string
	if err := r.db.WithContext(ctx).Model(&model.Business{}).
		Where("industry <> ''").
		Distinct("industry").
		Order("industry ASC").
		Pluck("industry", &industries).Error; err != nil {
		logger.Error("Failed to list industries", err)
		return nil, err
	}
	return industries, nil
}

func (r *businessRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Business{}).Count(&count).Error
	return count, err
}
