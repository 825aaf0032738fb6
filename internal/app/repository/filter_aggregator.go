package repository

import (
	"errors"
	"sort"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FilterAggregator keeps each region's filter summary in step with its
// businesses. It always runs inside the caller's transaction so the summary
// and the business row commit or roll back together.
type FilterAggregator interface {
	ApplyDelta(tx *gorm.DB, regionID string, deltas ...model.FilterDelta) error
	LockRegions(tx *gorm.DB, regionIDs ...string) error
	Recompute(tx *gorm.DB, regionID string) (model.RegionFilters, bool, error)
}

type filterAggregator struct{}

func NewFilterAggregator() FilterAggregator {
	return &filterAggregator{}
}

var lockForUpdate = clause.Locking{Strength: "UPDATE"}

// ApplyDelta locks the region row, applies the deltas in order and writes
// the summary back. A missing region aborts with ErrRegionNotFound.
func (a *filterAggregator) ApplyDelta(tx *gorm.DB, regionID string, deltas ...model.FilterDelta) error {
	var region model.Region
	err := tx.Clauses(lockForUpdate).Select("id", "filters").First(&region, "id = ?", regionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn("Filter delta targets unknown region", logger.Fields{
			"region_id": regionID,
		})
		return ErrRegionNotFound
	}
	if err != nil {
		logger.Error("Failed to lock region for filter update", err, logger.Fields{
			"region_id": regionID,
		})
		return err
	}

	updated := region.Filters.Apply(deltas...)
	if err := tx.Model(&model.Region{}).Where("id = ?", regionID).Update("filters", updated).Error; err != nil {
		logger.Error("Failed to write region filters", err, logger.Fields{
			"region_id": regionID,
		})
		return err
	}

	logger.Debug("Region filters updated", logger.Fields{
		"region_id":  regionID,
		"deltas":     len(deltas),
		"years":      len(updated.Years),
		"industries": len(updated.Industries),
	})
	return nil
}

// LockRegions takes row locks on the given regions in id order, so two
// writers moving businesses in opposite directions cannot deadlock.
func (a *filterAggregator) LockRegions(tx *gorm.DB, regionIDs ...string) error {
	ids := uniqueSorted(regionIDs)
	if len(ids) == 0 {
		return nil
	}
	var regions []model.Region
	return tx.Clauses(lockForUpdate).Select("id").Where("id IN ?", ids).Order("id").Find(&regions).Error
}

// Recompute rebuilds the region's summary from its businesses. It reports
// whether the stored summary differed.
func (a *filterAggregator) Recompute(tx *gorm.DB, regionID string) (model.RegionFilters, bool, error) {
	var region model.Region
	err := tx.Clauses(lockForUpdate).Select("id", "filters").First(&region, "id = ?", regionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.RegionFilters{}, false, ErrRegionNotFound
	}
	if err != nil {
		return model.RegionFilters{}, false, err
	}

	var businesses []model.Business
	if err := tx.Select("year_added", "industry").Where("region_id = ?", regionID).Find(&businesses).Error; err != nil {
		return model.RegionFilters{}, false, err
	}

	fresh := model.FiltersFromBusinesses(businesses)
	if fresh.Equal(region.Filters) {
		return region.Filters, false, nil
	}
	if err := tx.Model(&model.Region{}).Where("id = ?", regionID).Update("filters", fresh).Error; err != nil {
		return model.RegionFilters{}, false, err
	}
	return fresh, true, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
