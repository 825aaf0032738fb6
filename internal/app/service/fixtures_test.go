package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/internal/cache"
	"github.com/ranlab/bizdir-backend/internal/db"
	"github.com/ranlab/bizdir-backend/pkg/auth0"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeProvider maps bearer credentials to subjects and subjects to roles.
type fakeProvider struct {
	mu        sync.Mutex
	subjects  map[string]string // authorization -> sub
	roles     map[string]string // sub -> role
	userInfos int32
	failWith  error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		subjects: make(map[string]string),
		roles:    make(map[string]string),
	}
}

func (p *fakeProvider) add(authorization, sub, role string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects[authorization] = sub
	p.roles[sub] = role
}

func (p *fakeProvider) UserInfo(ctx context.Context, authorization string) (*auth0.UserInfo, error) {
	atomic.AddInt32(&p.userInfos, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.failWith != nil {
		return nil, p.failWith
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	sub, ok := p.subjects[authorization]
	if !ok {
		return nil, auth0.ErrInvalidCredential
	}
	return &auth0.UserInfo{Sub: sub}, nil
}

func (p *fakeProvider) GetUser(_ context.Context, userID string) (*auth0.User, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	role, ok := p.roles[userID]
	if !ok {
		return nil, auth0.ErrUserNotFound
	}
	return &auth0.User{UserID: userID, AppMetadata: auth0.AppMetadata{Role: role}}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.EditEvent
}

func (p *recordingPublisher) PublishEditEvent(event model.EditEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

var (
	adminCaller   = model.Identity{UserAppID: "admin1", Role: model.RoleAdmin, Admin: true}
	admin2Caller  = model.Identity{UserAppID: "admin2", Role: model.RoleAdmin, Admin: true}
	managerCaller = model.Identity{UserAppID: "mgr1", Role: model.RoleRegion}
	otherCaller   = model.Identity{UserAppID: "mgr2", Role: model.RoleRegion}
)

type serviceFixture struct {
	db           *gorm.DB
	provider     *fakeProvider
	cache        *cache.MemoryIdentityCache
	businessRepo repository.BusinessRepository
	regionRepo   repository.RegionRepository
	editRepo     repository.EditRequestRepository
	gate         IdentityService
	applier      EditRequestApplier
	events       *recordingPublisher
	edits        EditRequestService
	businesses   BusinessService
	regions      RegionService
}

// setupServiceTest seeds region R1 managed by mgr1 and region R2 managed by
// mgr2.
func setupServiceTest(t *testing.T) *serviceFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })

	filters := repository.NewFilterAggregator()
	f := &serviceFixture{
		db:           testDB,
		provider:     newFakeProvider(),
		cache:        cache.NewMemoryIdentityCache(),
		businessRepo: repository.NewBusinessRepository(testDB, filters),
		regionRepo:   repository.NewRegionRepository(testDB, filters),
		editRepo:     repository.NewEditRequestRepository(testDB),
		events:       &recordingPublisher{},
	}
	f.gate = NewIdentityService(f.provider, f.cache, f.regionRepo, 30*time.Minute, nil)
	f.applier = NewEditRequestApplier(f.businessRepo, f.editRepo, 4, nil)
	f.edits = NewEditRequestService(f.editRepo, f.gate, f.applier, f.events, nil)
	f.businesses = NewBusinessService(f.businessRepo, f.gate)
	f.regions = NewRegionService(f.regionRepo, f.gate, nil)

	ctx := context.Background()
	require.NoError(t, f.regionRepo.Save(ctx, &model.Region{ID: "R1", Name: "North", Manager: "mgr1"}))
	require.NoError(t, f.regionRepo.Save(ctx, &model.Region{ID: "R2", Name: "South", Manager: "mgr2"}))
	return f
}

func (f *serviceFixture) seedBusiness(t *testing.T, b model.Business) model.Business {
	id, err := f.businessRepo.Upsert(context.Background(), &b)
	require.NoError(t, err)
	b.ID = id
	return b
}

func (f *serviceFixture) filters(t *testing.T, regionID string) model.RegionFilters {
	region, err := f.regionRepo.FindByID(context.Background(), regionID)
	require.NoError(t, err)
	return region.Filters
}

// claimReview records reviewer on the request the way an approval does
// before applying.
func (f *serviceFixture) claimReview(t *testing.T, id, reviewer string) {
	_, err := f.editRepo.Update(context.Background(), id, model.EditRequestPatch{}, reviewer)
	require.NoError(t, err)
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }
