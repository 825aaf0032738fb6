package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/internal/app/service"
	"github.com/ranlab/bizdir-backend/internal/cache"
	"github.com/ranlab/bizdir-backend/internal/db"
	"github.com/ranlab/bizdir-backend/internal/middleware"
	"github.com/ranlab/bizdir-backend/pkg/auth0"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminToken   = "Bearer admin-token"
	managerToken = "Bearer manager-token"
	otherToken   = "Bearer other-token"
)

// stubProvider knows three users: admin1 (admin), mgr1 managing R1 and mgr2
// managing R2.
type stubProvider struct{}

var stubSubjects = map[string]string{
	adminToken:   "auth0|admin1",
	managerToken: "auth0|mgr1",
	otherToken:   "auth0|mgr2",
}

var stubRoles = map[string]string{
	"auth0|admin1": model.RoleAdmin,
	"auth0|mgr1":   model.RoleRegion,
	"auth0|mgr2":   model.RoleRegion,
}

func (stubProvider) UserInfo(_ context.Context, authorization string) (*auth0.UserInfo, error) {
	sub, ok := stubSubjects[authorization]
	if !ok {
		return nil, auth0.ErrInvalidCredential
	}
	return &auth0.UserInfo{Sub: sub}, nil
}

func (stubProvider) GetUser(_ context.Context, userID string) (*auth0.User, error) {
	role, ok := stubRoles[userID]
	if !ok {
		return nil, auth0.ErrUserNotFound
	}
	return &auth0.User{UserID: userID, AppMetadata: auth0.AppMetadata{Role: role}}, nil
}

type controllerFixture struct {
	router       *gin.Engine
	businessRepo repository.BusinessRepository
	regionRepo   repository.RegionRepository
	identities   *cache.MemoryIdentityCache
}

func setupControllerTest(t *testing.T) *controllerFixture {
	gin.SetMode(gin.TestMode)

	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	filters := repository.NewFilterAggregator()
	f := &controllerFixture{
		businessRepo: repository.NewBusinessRepository(testDB, filters),
		regionRepo:   repository.NewRegionRepository(testDB, filters),
		identities:   cache.NewMemoryIdentityCache(),
	}
	editRepo := repository.NewEditRequestRepository(testDB)

	gate := service.NewIdentityService(stubProvider{}, f.identities, f.regionRepo, time.Hour, nil)
	applier := service.NewEditRequestApplier(f.businessRepo, editRepo, 4, nil)
	edits := NewEditRequestController(service.NewEditRequestService(editRepo, gate, applier, nil, nil))
	regions := NewRegionController(service.NewRegionService(f.regionRepo, gate, nil))
	businesses := NewBusinessController(
		service.NewBusinessService(f.businessRepo, gate),
		service.NewExportService(f.businessRepo, nil, 0),
	)
	caches := NewCacheController(gate)
	auth := middleware.NewAuthMiddleware(gate)

	r := gin.New()
	r.Use(middleware.LoggingMiddleware(), auth.Identify())
	v1 := r.Group("/api/v1")
	v1.POST("/region/:regionId/edits", edits.Submit)
	v1.GET("/region/:regionId/edits", edits.ListForRegion)
	v1.GET("/edits", edits.ListMine)
	v1.GET("/edits/all", edits.ListAll)
	v1.GET("/edits/:id", edits.Get)
	v1.POST("/edits/:id", edits.Update)
	v1.GET("/edits/:id/preview", edits.Preview)
	v1.GET("/regions", regions.List)
	v1.POST("/regions", regions.Save)
	v1.DELETE("/regions/:regionId", regions.Delete)
	v1.GET("/regions/:regionId/filters", regions.Filters)
	v1.GET("/regions/:regionId/businesses", businesses.ListByRegion)
	v1.POST("/regions/:regionId/businesses", businesses.Create)
	v1.POST("/businesses/:businessId", businesses.Update)
	v1.DELETE("/businesses/:businessId", businesses.Delete)
	v1.GET("/businesses/export", businesses.Export)
	v1.POST("/businesses/export/snapshot", businesses.Snapshot)
	v1.GET("/filters/industries", businesses.Industries)
	v1.POST("/cache/empty", caches.Empty)
	f.router = r

	ctx := context.Background()
	require.NoError(t, f.regionRepo.Save(ctx, &model.Region{ID: "R1", Name: "North", Manager: "mgr1"}))
	require.NoError(t, f.regionRepo.Save(ctx, &model.Region{ID: "R2", Name: "South", Manager: "mgr2"}))
	return f
}

func (f *controllerFixture) do(t *testing.T, method, path, authorization string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), dst), w.Body.String())
}

func (f *controllerFixture) submit(t *testing.T, authorization, regionID string, body gin.H) string {
	w := f.do(t, http.MethodPost, "/api/v1/region/"+regionID+"/edits", authorization, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "ok", resp.Status)
	require.NotEmpty(t, resp.ID)
	return resp.ID
}
