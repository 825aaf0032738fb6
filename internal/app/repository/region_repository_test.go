package repository

import (
	"context"
	"testing"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionRepository_SaveKeepsFilters(t *testing.T) {
	_, businesses, regions := setupBusinessTest(t)
	ctx := context.Background()

	_, err := businesses.Upsert(ctx, &model.Business{Name: "Shop", RegionID: "R1", Industry: "Retail", YearAdded: 2020})
	require.NoError(t, err)

	// a client-supplied summary is ignored
	update := &model.Region{ID: "R1", Name: "North East", Manager: "u9", Filters: model.RegionFilters{
		Years: []model.YearCount{{Year: 1900, Count: 50}},
	}}
	require.NoError(t, regions.Save(ctx, update))

	stored, err := regions.FindByID(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "North East", stored.Name)
	assert.Equal(t, "u9", stored.Manager)
	assert.Equal(t, []model.YearCount{{Year: 2020, Count: 1}}, stored.Filters.Years)
}

func TestRegionRepository_CreateAssignsID(t *testing.T) {
	_, _, regions := setupBusinessTest(t)

	region := &model.Region{Name: "West"}
	require.NoError(t, regions.Save(context.Background(), region))
	assert.NotEmpty(t, region.ID)

	stored, err := regions.FindByID(context.Background(), region.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Filters.Years)
}

func TestRegionRepository_DeleteCascadesBusinesses(t *testing.T) {
	testDB, businesses, regions := setupBusinessTest(t)
	ctx := context.Background()

	_, err := businesses.Upsert(ctx, &model.Business{Name: "A", RegionID: "R1"})
	require.NoError(t, err)
	_, err = businesses.Upsert(ctx, &model.Business{Name: "B", RegionID: "R2"})
	require.NoError(t, err)

	require.NoError(t, regions.Delete(ctx, "R1"))

	var remaining []model.Business
	require.NoError(t, testDB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "R2", remaining[0].RegionID)

	_, err = regions.FindByID(ctx, "R1")
	assert.ErrorIs(t, err, ErrRegionNotFound)
	assert.ErrorIs(t, regions.Delete(ctx, "R1"), ErrRegionNotFound)
}

func TestRegionRepository_FindByManager(t *testing.T) {
	_, _, regions := setupBusinessTest(t)

	found, err := regions.FindByManager(context.Background(), "u2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "R2", found[0].ID)

	ids, err := regions.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2"}, ids)
}

func TestRegionRepository_RecomputeFiltersRepairsDrift(t *testing.T) {
	testDB, businesses, regions := setupBusinessTest(t)
	ctx := context.Background()

	_, err := businesses.Upsert(ctx, &model.Business{Name: "A", RegionID: "R1", Industry: "Food", YearAdded: 2020})
	require.NoError(t, err)

	changed, err := regions.RecomputeFilters(ctx, "R1")
	require.NoError(t, err)
	assert.False(t, changed)

	drifted := model.RegionFilters{Years: []model.YearCount{{Year: 2020, Count: 7}}}
	require.NoError(t, testDB.Model(&model.Region{}).Where("id = ?", "R1").Update("filters", drifted).Error)

	changed, err = regions.RecomputeFilters(ctx, "R1")
	require.NoError(t, err)
	assert.True(t, changed)

	f := regionFilters(t, regions, "R1")
	assert.Equal(t, []model.YearCount{{Year: 2020, Count: 1}}, f.Years)
	assert.Equal(t, []model.IndustryCount{{Industry: "Food", Count: 1}}, f.Industries)

	_, err = regions.RecomputeFilters(ctx, "missing")
	assert.ErrorIs(t, err, ErrRegionNotFound)
}
