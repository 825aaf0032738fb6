package controller

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegionController_CRUD(t *testing.T) {
	f := setupControllerTest(t)

	w := f.do(t, http.MethodGet, "/api/v1/regions", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Regions []model.Region `json:"regions"`
		Count   int            `json:"count"`
	}
	decode(t, w, &list)
	assert.Equal(t, 2, list.Count)

	w = f.do(t, http.MethodPost, "/api/v1/regions", managerToken, gin.H{"name": "East"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/regions", adminToken, gin.H{"id": "R3", "name": "East", "manager": "mgr1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/v1/regions", adminToken, gin.H{"id": "R4"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "name is required")

	_, err := f.businessRepo.Upsert(t.Context(), &model.Business{Name: "Shop", RegionID: "R3"})
	require.NoError(t, err)

	w = f.do(t, http.MethodDelete, "/api/v1/regions/R3", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	remaining, err := f.businessRepo.FindByRegion(t.Context(), "R3")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	w = f.do(t, http.MethodGet, "/api/v1/regions/R2/filters", managerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBusinessController_Lifecycle(t *testing.T) {
	f := setupControllerTest(t)

	w := f.do(t, http.MethodPost, "/api/v1/regions/R1/businesses", managerToken, gin.H{
		"name": "Tannery", "industry": "Leather", "year_added": 2019,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decode(t, w, &created)

	w = f.do(t, http.MethodPost, "/api/v1/regions/R2/businesses", managerToken, gin.H{"name": "Nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/businesses/"+created.ID, managerToken, gin.H{"industry": "Textiles"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/businesses/"+created.ID, managerToken, gin.H{"regionId": "R2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "moving requires managing the target region")

	w = f.do(t, http.MethodGet, "/api/v1/regions/R1/businesses", managerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed struct {
		Businesses []model.Business    `json:"businesses"`
		Filters    model.RegionFilters `json:"filters"`
	}
	decode(t, w, &listed)
	require.Len(t, listed.Businesses, 1)
	assert.Equal(t, "Textiles", listed.Businesses[0].Industry)
	assert.Equal(t, []model.IndustryCount{{Industry: "Textiles", Count: 1}}, listed.Filters.Industries)

	w = f.do(t, http.MethodGet, "/api/v1/filters/industries", managerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(t, http.MethodGet, "/api/v1/filters/industries", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Textiles")

	w = f.do(t, http.MethodDelete, "/api/v1/businesses/"+created.ID, otherToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = f.do(t, http.MethodDelete, "/api/v1/businesses/"+created.ID, managerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, "/api/v1/businesses/"+created.ID, managerToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBusinessController_Export(t *testing.T) {
	f := setupControllerTest(t)
	for _, name := range []string{"Zeta", "Alpha"} {
		_, err := f.businessRepo.Upsert(t.Context(), &model.Business{Name: name, RegionID: "R1"})
		require.NoError(t, err)
	}

	w := f.do(t, http.MethodGet, "/api/v1/businesses/export", managerToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/businesses/export?format=pdf", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/businesses/export", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, service.BusinessExportHeader, records[0])
	assert.Equal(t, "Alpha", records[1][1])
	assert.Equal(t, "Zeta", records[2][1])

	w = f.do(t, http.MethodPost, "/api/v1/businesses/export/snapshot", adminToken, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "EXPORT_STORAGE_DISABLED")
}

func TestCacheController_EmptyDropsCallerOnly(t *testing.T) {
	f := setupControllerTest(t)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/regions", managerToken, nil).Code)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/v1/regions", otherToken, nil).Code)
	require.Equal(t, 2, f.identities.Len())

	w := f.do(t, http.MethodPost, "/api/v1/cache/empty", managerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1, f.identities.Len())
	_, ok, err := f.identities.Get(t.Context(), util.CredentialHash(otherToken))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheController_AnonymousIsNoop(t *testing.T) {
	f := setupControllerTest(t)
	w := f.do(t, http.MethodPost, "/api/v1/cache/empty", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentify_RejectsUnknownCredential(t *testing.T) {
	f := setupControllerTest(t)
	w := f.do(t, http.MethodGet, "/api/v1/regions", "Bearer forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_TOKEN_INVALID")
}
