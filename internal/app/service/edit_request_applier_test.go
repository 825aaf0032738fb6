package service

import (
	"context"
	"testing"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditRequestApplier_PreviewIsReadOnly(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	existing := f.seedBusiness(t, model.Business{Name: "Corner Shop", RegionID: "R1", Industry: "Retail", YearAdded: 2020, Employees: 3})
	before := f.filters(t, "R1")

	req := &model.EditRequest{
		ID:       "req-1",
		RegionID: "R1",
		Adds:     []model.Business{{Name: "Fresh"}},
		Updates: []model.BusinessUpdate{
			{ID: existing.ID, Employees: intPtr(9)},
			{ID: "vanished", Name: strPtr("Ghost")},
		},
		Deletes: []model.BusinessUpdate{{ID: existing.ID}, {ID: "vanished"}},
	}

	res, err := f.applier.Preview(ctx, req)
	require.NoError(t, err)

	require.Len(t, res.Added, 1)
	assert.Equal(t, model.PreviewAddID, res.Added[0].ID)
	assert.Equal(t, "R1", res.Added[0].RegionID)

	require.Len(t, res.Updated, 1)
	assert.Equal(t, 9, res.Updated[0].Employees)
	assert.Equal(t, "Corner Shop", res.Updated[0].Name)

	require.Len(t, res.Deleted, 1)
	assert.Equal(t, existing.ID, res.Deleted[0].ID)

	stored, err := f.businessRepo.FindByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Employees)
	assert.True(t, before.Equal(f.filters(t, "R1")))
}

func TestEditRequestApplier_ApplySkipsMissingTargets(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	id, err := f.editRepo.Create(ctx, &model.EditRequest{
		RegionID:  "R1",
		Submitter: "mgr1",
		Updates:   []model.BusinessUpdate{{ID: "vanished", Name: strPtr("Ghost")}},
		Deletes:   []model.BusinessUpdate{{ID: "vanished"}},
	})
	require.NoError(t, err)

	f.claimReview(t, id, "admin1")
	res, stored, err := f.applier.Apply(ctx, id, "admin1")
	require.NoError(t, err)
	assert.Empty(t, res.Added)
	assert.Empty(t, res.Updated)
	assert.Empty(t, res.Deleted)
	assert.Equal(t, model.StatusApproved, stored.Status)
	assert.Equal(t, "admin1", stored.Reviewer)
}

func TestEditRequestApplier_ApplyMissingRequest(t *testing.T) {
	f := setupServiceTest(t)

	_, _, err := f.applier.Apply(context.Background(), "missing", "admin1")
	assert.ErrorIs(t, err, ErrApplyFailed)
}

func TestEditRequestApplier_AddThenDeleteNetsZero(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	id, err := f.editRepo.Create(ctx, &model.EditRequest{
		RegionID: "R2",
		Adds:     []model.Business{{Name: "Pop-up", Industry: "Events", YearAdded: 2023}},
	})
	require.NoError(t, err)
	f.claimReview(t, id, "admin1")
	res, _, err := f.applier.Apply(ctx, id, "admin1")
	require.NoError(t, err)
	require.Len(t, res.Added, 1)

	filters := f.filters(t, "R2")
	assert.Equal(t, []model.YearCount{{Year: 2023, Count: 1}}, filters.Years)

	delID, err := f.editRepo.Create(ctx, &model.EditRequest{
		RegionID: "R2",
		Deletes:  []model.BusinessUpdate{{ID: res.Added[0].ID}},
	})
	require.NoError(t, err)
	f.claimReview(t, delID, "admin1")
	_, _, err = f.applier.Apply(ctx, delID, "admin1")
	require.NoError(t, err)

	filters = f.filters(t, "R2")
	assert.Empty(t, filters.Years)
	assert.Empty(t, filters.Industries)
}

func TestEditRequestApplier_ApplyRequiresClaim(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	id, err := f.editRepo.Create(ctx, &model.EditRequest{
		RegionID: "R1",
		Adds:     []model.Business{{Name: "Unclaimed", Industry: "Retail", YearAdded: 2020}},
	})
	require.NoError(t, err)

	_, _, err = f.applier.Apply(ctx, id, "admin1")
	assert.ErrorIs(t, err, ErrApplyFailed)

	f.claimReview(t, id, "admin2")
	_, _, err = f.applier.Apply(ctx, id, "admin1")
	assert.ErrorIs(t, err, ErrApplyFailed)

	businesses, err := f.businessRepo.FindByRegion(ctx, "R1")
	require.NoError(t, err)
	assert.Empty(t, businesses)
}

func TestEditRequestApplier_ApplyRunsOnce(t *testing.T) {
	f := setupServiceTest(t)
	ctx := context.Background()

	id, err := f.editRepo.Create(ctx, &model.EditRequest{
		RegionID: "R1",
		Adds:     []model.Business{{Name: "Single", Industry: "Retail", YearAdded: 2020}},
	})
	require.NoError(t, err)
	f.claimReview(t, id, "admin1")

	_, _, err = f.applier.Apply(ctx, id, "admin1")
	require.NoError(t, err)
	_, _, err = f.applier.Apply(ctx, id, "admin1")
	assert.ErrorIs(t, err, ErrApplyFailed)

	businesses, err := f.businessRepo.FindByRegion(ctx, "R1")
	require.NoError(t, err)
	assert.Len(t, businesses, 1)
	assert.Equal(t, []model.YearCount{{Year: 2020, Count: 1}}, f.filters(t, "R1").Years)
}
