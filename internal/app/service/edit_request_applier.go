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
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ApplyResult lists the businesses an edit request touches. Preview fills it
// without writing; Apply fills it with what was persisted.
type ApplyResult struct {
	Added   []model.Business `json:"added"`
	Updated []model.Business `json:"updated"`
	Deleted []model.Business `json:"deleted"`
}

// EditRequestApplier previews and applies the adds, updates and deletes of
// an edit request.
type EditRequestApplier interface {
	Preview(ctx context.Context, req *model.EditRequest) (*ApplyResult, error)
	// Apply writes every operation and, only when all succeed, marks the
	// request Approved. The review must already be claimed by reviewer.
	// Writes that succeeded before a failure are not rolled back.
	Apply(ctx context.Context, id, reviewer string) (*ApplyResult, *model.EditRequest, error)
}

type editRequestApplier struct {
	businessRepo repository.BusinessRepository
	editRepo     repository.EditRequestRepository
	metrics      *metrics.Metrics
	concurrency  int
}

func NewEditRequestApplier(
	businessRepo repository.BusinessRepository,
	editRepo repository.EditRequestRepository,
	concurrency int,
	m *metrics.Metrics,
) EditRequestApplier {
	if concurrency <= 0 {
		concurrency = 8
	}
	return &editRequestApplier{
		businessRepo: businessRepo,
		editRepo:     editRepo,
		metrics:      m,
		concurrency:  concurrency,
	}
}

func (a *editRequestApplier) Preview(ctx context.Context, req *model.EditRequest) (*ApplyResult, error) {
	added := make([]model.Business, len(req.Adds))
	for i, add := range req.Adds {
		b := add
		b.ID = model.PreviewAddID
		if b.RegionID == "" {
			b.RegionID = req.RegionID
		}
		added[i] = b
	}

	updated := make([]*model.Business, len(req.Updates))
	deleted := make([]*model.Business, len(req.Deletes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, upd := range req.Updates {
		g.Go(func() error {
			current, err := a.lookup(gctx, upd.ID)
			if err != nil || current == nil {
				return err
			}
			merged := upd.ApplyTo(*current)
			updated[i] = &merged
			return nil
		})
	}
	for i, del := range req.Deletes {
		g.Go(func() error {
			current, err := a.lookup(gctx, del.ID)
			if err != nil {
				return err
			}
			deleted[i] = current
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Failed to build edit request preview", err, logger.Fields{
			"edit_request_id": req.ID,
		})
		return nil, err
	}

	return &ApplyResult{
		Added:   added,
		Updated: compact(updated),
		Deleted: compact(deleted),
	}, nil
}

func (a *editRequestApplier) Apply(ctx context.Context, id, reviewer string) (*ApplyResult, *model.EditRequest, error) {
	start := time.Now()
	defer func() { a.metrics.ObserveApply(time.Since(start)) }()

	req, err := a.editRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("%w: %v", ErrApplyFailed, ErrEditRequestNotFound)
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}
	if req.Reviewer != reviewer {
		logger.Warn("Refusing to apply edit request not claimed by the approver", logger.Fields{
			"edit_request_id": id,
			"reviewer":        req.Reviewer,
			"approver":        reviewer,
		})
		return nil, nil, fmt.Errorf("%w: review is held by %q", ErrApplyFailed, req.Reviewer)
	}
	if req.Status != model.StatusPending {
		return nil, nil, fmt.Errorf("%w: request is already %s", ErrApplyFailed, req.Status)
	}

	logger.Info("Applying edit request", logger.Fields{
		"edit_request_id": id,
		"region_id":       req.RegionID,
		"reviewer":        reviewer,
		"adds":            len(req.Adds),
		"updates":         len(req.Updates),
		"deletes":         len(req.Deletes),
	})

	added := make([]*model.Business, len(req.Adds))
	updated := make([]*model.Business, len(req.Updates))
	deleted := make([]*model.Business, len(req.Deletes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, add := range req.Adds {
		g.Go(func() error {
			b := add
			b.ID = ""
			if b.RegionID == "" {
				b.RegionID = req.RegionID
			}
			if _, err := a.businessRepo.Upsert(gctx, &b); err != nil {
				a.metrics.IncApplyOperation("add", "error")
				return fmt.Errorf("add %q: %w", b.Name, err)
			}
			a.metrics.IncApplyOperation("add", "ok")
			added[i] = &b
			return nil
		})
	}
	for i, upd := range req.Updates {
		g.Go(func() error {
			current, err := a.lookup(gctx, upd.ID)
			if err != nil {
				return fmt.Errorf("update %s: %w", upd.ID, err)
			}
			if current == nil {
				a.metrics.IncApplyOperation("update", "skipped")
				return nil
			}
			merged := upd.ApplyTo(*current)
			if _, err := a.businessRepo.Upsert(gctx, &merged); err != nil {
				a.metrics.IncApplyOperation("update", "error")
				return fmt.Errorf("update %s: %w", upd.ID, err)
			}
			a.metrics.IncApplyOperation("update", "ok")
			updated[i] = &merged
			return nil
		})
	}
	for i, del := range req.Deletes {
		g.Go(func() error {
			removed, err := a.businessRepo.Delete(gctx, del.ID)
			if err != nil {
				a.metrics.IncApplyOperation("delete", "error")
				return fmt.Errorf("delete %s: %w", del.ID, err)
			}
			if removed == nil {
				a.metrics.IncApplyOperation("delete", "skipped")
				return nil
			}
			a.metrics.IncApplyOperation("delete", "ok")
			deleted[i] = removed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Edit request apply failed, request left pending with its reviewer", err, logger.Fields{
			"edit_request_id": id,
		})
		return nil, nil, fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}

	approved := model.StatusApproved
	stored, err := a.editRepo.Update(ctx, id, model.EditRequestPatch{Status: &approved}, "")
	if err != nil {
		logger.Error("Failed to mark edit request approved", err, logger.Fields{
			"edit_request_id": id,
		})
		return nil, nil, fmt.Errorf("%w: %v", ErrApplyFailed, err)
	}

	result := &ApplyResult{
		Added:   compact(added),
		Updated: compact(updated),
		Deleted: compact(deleted),
	}
	logger.Info("Edit request applied", logger.Fields{
		"edit_request_id": id,
		"added":           len(result.Added),
		"updated":         len(result.Updated),
		"deleted":         len(result.Deleted),
	})
	return result, stored, nil
}

// lookup returns nil without error when the business does not exist.
func (a *editRequestApplier) lookup(ctx context.Context, id string) (*model.Business, error) {
	if id == "" {
		return nil, nil
	}
	b, err := a.businessRepo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return b, err
}

// compact drops skipped slots while keeping submission order.
func compact(items []*model.Business) []model.Business {
	out := make([]model.Business, 0, len(items))
	for _, b := range items {
		if b != nil {
			out = append(out, *b)
		}
	}
	return out
}
