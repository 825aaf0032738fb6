package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"github.com/ranlab/bizdir-backend/pkg/metrics"
	"gorm.io/gorm"
)

// EditEventPublisher receives edit request lifecycle events.
type EditEventPublisher interface {
	PublishEditEvent(event model.EditEvent)
}

// EditRequestSubmission is the client payload for a new edit request.
type EditRequestSubmission struct {
	RegionID string
	Adds     []model.Business
	Updates  []model.BusinessUpdate
	Deletes  []model.BusinessUpdate
}

// EditRequestUpdate is a client patch. Status is the raw client value.
type EditRequestUpdate struct {
	RegionID *string
	Status   *string
	Adds     *[]model.Business
	Updates  *[]model.BusinessUpdate
	Deletes  *[]model.BusinessUpdate
}

// EditRequestUpdateResult carries the stored request and, when the update
// approved it, what was applied.
type EditRequestUpdateResult struct {
	EditRequest *model.EditRequest
	Applied     *ApplyResult
}

type EditRequestService interface {
	Submit(ctx context.Context, caller model.Identity, routeRegionID string, sub EditRequestSubmission) (string, error)
	Get(ctx context.Context, caller model.Identity, id string) (*model.EditRequest, error)
	ListForRegion(ctx context.Context, caller model.Identity, regionID string, page model.Page) ([]model.EditRequest, int64, error)
	ListAll(ctx context.Context, caller model.Identity, status string, page model.Page) ([]model.EditRequest, int64, error)
	ListMine(ctx context.Context, caller model.Identity, page model.Page) ([]model.EditRequest, int64, error)
	Update(ctx context.Context, caller model.Identity, id string, upd EditRequestUpdate) (*EditRequestUpdateResult, error)
	Preview(ctx context.Context, caller model.Identity, id string) (*ApplyResult, error)
}

type editRequestService struct {
	editRepo repository.EditRequestRepository
	gate     IdentityService
	applier  EditRequestApplier
	events   EditEventPublisher
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewEditRequestService(
	editRepo repository.EditRequestRepository,
	gate IdentityService,
	applier EditRequestApplier,
	events EditEventPublisher,
	m *metrics.Metrics,
) EditRequestService {
	return &editRequestService{
		editRepo: editRepo,
		gate:     gate,
		applier:  applier,
		events:   events,
		metrics:  m,
		now:      time.Now,
	}
}

func (s *editRequestService) Submit(ctx context.Context, caller model.Identity, routeRegionID string, sub EditRequestSubmission) (string, error) {
	if !caller.Authenticated() {
		return "", ErrUnauthorized
	}
	if sub.RegionID != "" && sub.RegionID != routeRegionID {
		logger.Warn("Edit request region does not match route", logger.Fields{
			"route_region_id": routeRegionID,
			"body_region_id":  sub.RegionID,
		})
		return "", ErrRegionMismatch
	}
	if _, err := s.gate.AuthorizeRegion(ctx, caller, routeRegionID); err != nil {
		return "", err
	}

	for i := range sub.Adds {
		switch sub.Adds[i].RegionID {
		case "":
			sub.Adds[i].RegionID = routeRegionID
		case routeRegionID:
		default:
			return "", ErrRegionMismatch
		}
	}

	req := &model.EditRequest{
		RegionID:  routeRegionID,
		Submitter: caller.UserAppID,
		Adds:      sub.Adds,
		Updates:   sub.Updates,
		Deletes:   sub.Deletes,
	}
	id, err := s.editRepo.Create(ctx, req)
	if err != nil {
		return "", err
	}

	s.metrics.IncSubmitted()
	s.publish(model.EditEventSubmitted, req, caller)
	logger.Info("Edit request submitted", logger.Fields{
		"edit_request_id": id,
		"region_id":       routeRegionID,
		"submitter":       caller.UserAppID,
	})
	return id, nil
}

// Get is visible to the submitter, any admin and the region's manager.
func (s *editRequestService) Get(ctx context.Context, caller model.Identity, id string) (*model.EditRequest, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Admin || req.Submitter == caller.UserAppID {
		return req, nil
	}
	manages, err := s.gate.IsRegionManager(ctx, caller.UserAppID, req.RegionID)
	if err != nil && !errors.Is(err, ErrRegionNotFound) {
		return nil, err
	}
	if !manages {
		return nil, ErrUnauthorized
	}
	return req, nil
}

func (s *editRequestService) ListForRegion(ctx context.Context, caller model.Identity, regionID string, page model.Page) ([]model.EditRequest, int64, error) {
	if _, err := s.gate.AuthorizeRegion(ctx, caller, regionID); err != nil {
		return nil, 0, err
	}
	return s.editRepo.List(ctx, repository.EditRequestFilter{RegionID: regionID}, page)
}

func (s *editRequestService) ListAll(ctx context.Context, caller model.Identity, status string, page model.Page) ([]model.EditRequest, int64, error) {
	if !caller.Admin {
		return nil, 0, ErrUnauthorized
	}
	filter := repository.EditRequestFilter{}
	if status != "" {
		st, err := model.ParseEditRequestStatus(status)
		if err != nil {
			return nil, 0, ErrInvalidStatus
		}
		filter.Status = st
	}
	return s.editRepo.List(ctx, filter, page)
}

func (s *editRequestService) ListMine(ctx context.Context, caller model.Identity, page model.Page) ([]model.EditRequest, int64, error) {
	if !caller.Authenticated() {
		return nil, 0, ErrUnauthorized
	}
	return s.editRepo.List(ctx, repository.EditRequestFilter{Submitter: caller.UserAppID}, page)
}

// Update runs the review state machine. Only admins may move the status;
// the first one to do so becomes the reviewer and the status is frozen from
// then on. Approving claims the review before handing the request to the
// applier, which ignores any other patched fields. A failed apply keeps the
// claim, so the request stays Pending and cannot be approved again.
func (s *editRequestService) Update(ctx context.Context, caller model.Identity, id string, upd EditRequestUpdate) (*EditRequestUpdateResult, error) {
	if !caller.Authenticated() {
		return nil, ErrUnauthorized
	}

	var target *model.EditRequestStatus
	if upd.Status != nil {
		if !caller.Admin {
			logger.Warn("Non-admin attempted a status change", logger.Fields{
				"edit_request_id": id,
				"user_app_id":     caller.UserAppID,
			})
			return nil, ErrUnauthorized
		}
		st, err := model.ParseEditRequestStatus(*upd.Status)
		if err != nil {
			return nil, ErrInvalidStatus
		}
		target = &st
	}
	approving := target != nil && *target == model.StatusApproved

	stored, err := s.load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrEditRequestNotFound) {
			return nil, err
		}
		// nobody manages the region of a request that does not exist
		if !caller.Admin {
			return nil, ErrUnauthorized
		}
		if approving {
			return nil, fmt.Errorf("%w: %v", ErrApplyFailed, err)
		}
		return nil, err
	}

	if err := s.authorizeEdit(ctx, caller, stored, upd.RegionID); err != nil {
		return nil, err
	}

	reviewer := ""
	if target != nil && *target != stored.Status {
		if stored.Reviewer != "" {
			return nil, ErrReviewAlreadyStarted
		}
		if !stored.Status.CanTransitionTo(*target) {
			logger.Warn("Rejected edit request transition", logger.Fields{
				"edit_request_id": id,
				"from":            stored.Status,
				"to":              *target,
			})
			return nil, ErrReviewAlreadyStarted
		}
		reviewer = caller.UserAppID

		if approving {
			return s.approve(ctx, caller, id)
		}
	} else if target != nil {
		// same status, nothing to transition
		target = nil
	}

	patch := model.EditRequestPatch{
		RegionID: upd.RegionID,
		Status:   target,
		Adds:     upd.Adds,
		Updates:  upd.Updates,
		Deletes:  upd.Deletes,
	}
	updated, err := s.editRepo.Update(ctx, id, patch, reviewer)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEditRequestNotFound
		}
		return nil, err
	}

	if target != nil {
		s.metrics.IncTransition(string(*target))
	}
	s.publish(model.EditEventUpdated, updated, caller)
	logger.Info("Edit request updated", logger.Fields{
		"edit_request_id": id,
		"status":          updated.Status,
		"reviewer":        updated.Reviewer,
	})
	return &EditRequestUpdateResult{EditRequest: updated}, nil
}

// approve records the caller as reviewer under the row lock, then applies.
// Of two concurrent approvals only the first claim succeeds.
func (s *editRequestService) approve(ctx context.Context, caller model.Identity, id string) (*EditRequestUpdateResult, error) {
	if _, err := s.editRepo.Update(ctx, id, model.EditRequestPatch{}, caller.UserAppID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrApplyFailed, ErrEditRequestNotFound)
		}
		return nil, err
	}

	applied, approved, err := s.applier.Apply(ctx, id, caller.UserAppID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(string(model.StatusApproved))
	s.publish(model.EditEventApplied, approved, caller)
	return &EditRequestUpdateResult{EditRequest: approved, Applied: applied}, nil
}

// authorizeEdit requires an admin or the manager of the stored region, and
// of the new region when the patch moves the request.
func (s *editRequestService) authorizeEdit(ctx context.Context, caller model.Identity, stored *model.EditRequest, newRegionID *string) error {
	if caller.Admin {
		return nil
	}
	regions := []string{stored.RegionID}
	if newRegionID != nil && *newRegionID != stored.RegionID {
		regions = append(regions, *newRegionID)
	}
	for _, regionID := range regions {
		manages, err := s.gate.IsRegionManager(ctx, caller.UserAppID, regionID)
		if err != nil && !errors.Is(err, ErrRegionNotFound) {
			return err
		}
		if !manages {
			return ErrUnauthorized
		}
	}
	return nil
}

func (s *editRequestService) Preview(ctx context.Context, caller model.Identity, id string) (*ApplyResult, error) {
	if !caller.Admin {
		return nil, ErrUnauthorized
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.applier.Preview(ctx, req)
}

func (s *editRequestService) load(ctx context.Context, id string) (*model.EditRequest, error) {
	req, err := s.editRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEditRequestNotFound
		}
		return nil, err
	}
	return req, nil
}

func (s *editRequestService) publish(kind string, req *model.EditRequest, caller model.Identity) {
	if s.events == nil || req == nil {
		return
	}
	s.events.PublishEditEvent(model.EditEvent{
		Type:          kind,
		EditRequestID: req.ID,
		RegionID:      req.RegionID,
		Status:        req.Status,
		Actor:         caller.UserAppID,
		At:            s.now().UTC(),
	})
}
