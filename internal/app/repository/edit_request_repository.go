package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"gorm.io/gorm"
)

// EditRequestFilter narrows a listing. Empty fields match everything.
type EditRequestFilter struct {
	RegionID  string
	Submitter string
	Status    model.EditRequestStatus
}

type EditRequestRepository interface {
	// Create stores req as a fresh Pending request and returns its id.
	Create(ctx context.Context, req *model.EditRequest) (string, error)
	FindByID(ctx context.Context, id string) (*model.EditRequest, error)
	// Update merges patch into the stored request under a row lock. A
	// non-empty reviewer claims the review and fails with ErrReviewClaimed,
	// leaving the row untouched, when the request already has a reviewer.
	Update(ctx context.Context, id string, patch model.EditRequestPatch, reviewer string) (*model.EditRequest, error)
	// List returns one page, newest first, plus the total number of matches.
	List(ctx context.Context, filter EditRequestFilter, page model.Page) ([]model.EditRequest, int64, error)
}

type editRequestRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEditRequestRepository builds the repository. An optional clock replaces
// time.Now.
func NewEditRequestRepository(db *gorm.DB, clock ...func() time.Time) EditRequestRepository {
	now := time.Now
	if len(clock) > 0 && clock[0] != nil {
		now = clock[0]
	}
	return &editRequestRepository{db: db, now: now}
}

func (r *editRequestRepository) Create(ctx context.Context, req *model.EditRequest) (string, error) {
	now := r.now().UTC()
	req.ID = uuid.NewString()
	req.Status = model.StatusPending
	req.Reviewer = ""
	req.DateSubmitted = now
	req.DateUpdated = now
	req.Normalize()

	logger.Debug("Creating edit request in database", logger.Fields{
		"region_id": req.RegionID,
		"submitter": req.Submitter,
		"adds":      len(req.Adds),
		"updates":   len(req.Updates),
		"deletes":   len(req.Deletes),
	})

	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		logger.Error("Failed to create edit request in database", err, logger.Fields{
			"region_id": req.RegionID,
			"submitter": req.Submitter,
		})
		return "", err
	}

	logger.Debug("Edit request created in database", logger.Fields{
		"edit_request_id": req.ID,
	})
	return req.ID, nil
}

func (r *editRequestRepository) FindByID(ctx context.Context, id string) (*model.EditRequest, error) {
	var req model.EditRequest
	if err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find edit request by ID", err, logger.Fields{
				"edit_request_id": id,
			})
		}
		return nil, err
	}
	req.Normalize()
	return &req, nil
}

func (r *editRequestRepository) Update(ctx context.Context, id string, patch model.EditRequestPatch, reviewer string) (*model.EditRequest, error) {
	logger.Debug("Updating edit request in database", logger.Fields{
		"edit_request_id": id,
		"reviewer":        reviewer,
	})

	var updated model.EditRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(lockForUpdate).First(&updated, "id = ?", id).Error; err != nil {
			return err
		}
		if reviewer != "" {
			if updated.Reviewer != "" {
				return ErrReviewClaimed
			}
			updated.Reviewer = reviewer
		}
		updated.Merge(patch)
		updated.DateUpdated = r.now().UTC()
		return tx.Save(&updated).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrReviewClaimed):
			logger.Warn("Edit request review already claimed", logger.Fields{
				"edit_request_id": id,
				"reviewer":        reviewer,
			})
		case !errors.Is(err, gorm.ErrRecordNotFound):
			logger.Error("Failed to update edit request in database", err, logger.Fields{
				"edit_request_id": id,
			})
		}
		return nil, err
	}

	logger.Debug("Edit request updated in database", logger.Fields{
		"edit_request_id": id,
		"status":          updated.Status,
	})
	return &updated, nil
}

func (r *editRequestRepository) List(ctx context.Context, filter EditRequestFilter, page model.Page) ([]model.EditRequest, int64, error) {
	page = page.Clamp()
	scope := func(q *gorm.DB) *gorm.DB {
		q = q.Model(&model.EditRequest{})
		if filter.RegionID != "" {
			q = q.Where("region_id = ?", filter.RegionID)
		}
		if filter.Submitter != "" {
			q = q.Where("submitter = ?", filter.Submitter)
		}
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		return q
	}

	logger.Debug("Listing edit requests", logger.Fields{
		"region_id": filter.RegionID,
		"submitter": filter.Submitter,
		"status":    filter.Status,
		"after_id":  page.AfterID,
		"size":      page.Size,
	})

	var total int64
	if err := scope(r.db.WithContext(ctx)).Count(&total).Error; err != nil {
		logger.Error("Failed to count edit requests", err)
		return nil, 0, err
	}

	query := scope(r.db.WithContext(ctx))
	if page.AfterID != "" {
		var cursor model.EditRequest
		err := r.db.WithContext(ctx).Select("id", "date_submitted").First(&cursor, "id = ?", page.AfterID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, ErrInvalidCursor
		}
		if err != nil {
			return nil, 0, err
		}
		query = query.Where("(date_submitted < ? OR (date_submitted = ? AND id < ?))",
			cursor.DateSubmitted, cursor.DateSubmitted, cursor.ID)
	}

	var items []model.EditRequest
	if err := query.Order("date_submitted DESC").Order("id DESC").Limit(page.Size).Find(&items).Error; err != nil {
		logger.Error("Failed to list edit requests", err)
		return nil, 0, err
	}
	for i := range items {
		items[i].Normalize()
	}

	logger.Debug("Edit requests listed", logger.Fields{
		"count": len(items),
		"total": total,
	})
	return items, total, nil
}
