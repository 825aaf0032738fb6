package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ranlab/bizdir-backend/internal/app/model"
	"github.com/ranlab/bizdir-backend/internal/app/repository"
	"github.com/ranlab/bizdir-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

const exportSheet = "Businesses"

// BusinessExportHeader is the column layout shared by exports and the seed
// importer.
var BusinessExportHeader = []string{"id", "name", "regionId", "industry", "year_added", "employees", "latitude", "longitude"}

func ParseExportFormat(s string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportXLSX:
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", ErrBadRequest, s)
}

func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// ObjectStore receives export snapshots.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type Snapshot struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	DownloadURL string `json:"download_url,omitempty"`
	Rows        int    `json:"rows"`
}

type ExportService interface {
	// Export streams every business, ordered by name, to w.
	Export(ctx context.Context, caller model.Identity, format ExportFormat, w io.Writer) (int, error)
	// Snapshot renders an export and stores it. Returns ErrExportDisabled
	// when no object store is configured.
	Snapshot(ctx context.Context, caller model.Identity, format ExportFormat) (*Snapshot, error)
}

type exportService struct {
	businessRepo repository.BusinessRepository
	store        ObjectStore
	chunkSize    int
	presignTTL   time.Duration
	now          func() time.Time
}

// NewExportService accepts a nil store; snapshots are then disabled.
func NewExportService(businessRepo repository.BusinessRepository, store ObjectStore, presignTTL time.Duration) ExportService {
	return &exportService{
		businessRepo: businessRepo,
		store:        store,
		chunkSize:    repository.ExportChunkSize,
		presignTTL:   presignTTL,
		now:          time.Now,
	}
}

func (s *exportService) Export(ctx context.Context, caller model.Identity, format ExportFormat, w io.Writer) (int, error) {
	if !caller.Admin {
		return 0, ErrUnauthorized
	}
	switch format {
	case ExportXLSX:
		return s.writeXLSX(ctx, w)
	default:
		return s.writeCSV(ctx, w)
	}
}

func (s *exportService) Snapshot(ctx context.Context, caller model.Identity, format ExportFormat) (*Snapshot, error) {
	if !caller.Admin {
		return nil, ErrUnauthorized
	}
	if s.store == nil {
		return nil, ErrExportDisabled
	}

	var buf bytes.Buffer
	rows, err := s.Export(ctx, caller, format, &buf)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/businesses-%s.%s", s.now().UTC().Format("20060102T150405Z"), format)
	url, err := s.store.Put(ctx, key, format.ContentType(), &buf)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Key: key, URL: url, Rows: rows}
	if s.presignTTL > 0 {
		if download, err := s.store.PresignGet(ctx, key, s.presignTTL); err == nil {
			snap.DownloadURL = download
		} else {
			logger.Warn("Failed to presign export snapshot", logger.Fields{
				"key":   key,
				"error": err.Error(),
			})
		}
	}

	logger.Info("Export snapshot stored", logger.Fields{
		"key":   key,
		"rows":  rows,
		"actor": caller.UserAppID,
	})
	return snap, nil
}

// eachChunk walks all businesses in name order, one chunk at a time.
func (s *exportService) eachChunk(ctx context.Context, fn func([]model.Business) error) (int, error) {
	total := 0
	page := model.Page{Size: s.chunkSize}
	for {
		chunk, err := s.businessRepo.FindAllPaged(ctx, page)
		if err != nil {
			return total, err
		}
		if len(chunk) == 0 {
			return total, nil
		}
		if err := fn(chunk); err != nil {
			return total, err
		}
		total += len(chunk)
		if len(chunk) < page.Size {
			return total, nil
		}
		page.AfterID = chunk[len(chunk)-1].ID
	}
}

func (s *exportService) writeCSV(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(BusinessExportHeader); err != nil {
		return 0, err
	}
	n, err := s.eachChunk(ctx, func(chunk []model.Business) error {
		for _, b := range chunk {
			if err := cw.Write(BusinessRecord(b)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return n, err
	}
	cw.Flush()
	return n, cw.Error()
}

func (s *exportService) writeXLSX(ctx context.Context, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return 0, err
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return 0, err
	}

	if err := sw.SetRow("A1", toCells(BusinessExportHeader)); err != nil {
		return 0, err
	}
	row := 2
	n, err := s.eachChunk(ctx, func(chunk []model.Business) error {
		for _, b := range chunk {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, toCells(BusinessRecord(b))); err != nil {
				return err
			}
			row++
		}
		return nil
	})
	if err != nil {
		return n, err
	}

	if err := sw.Flush(); err != nil {
		return n, err
	}
	return n, f.Write(w)
}

func toCells(record []string) []interface{} {
	cells := make([]interface{}, len(record))
	for i, v := range record {
		cells[i] = v
	}
	return cells
}

// BusinessRecord renders b in BusinessExportHeader order.
func BusinessRecord(b model.Business) []string {
	lat, lng := "", ""
	if b.Location != nil {
		lat = strconv.FormatFloat(b.Location.Latitude, 'f', -1, 64)
		lng = strconv.FormatFloat(b.Location.Longitude, 'f', -1, 64)
	}
	return []string{
		b.ID,
		b.Name,
		b.RegionID,
		b.Industry,
		strconv.Itoa(b.YearAdded),
		strconv.Itoa(b.Employees),
		lat,
		lng,
	}
}

// ParseBusinessRecord is the inverse of BusinessRecord. Trailing columns may
// be missing.
func ParseBusinessRecord(record []string) (model.Business, error) {
	col := func(i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	b := model.Business{
		ID:       col(0),
		Name:     col(1),
		RegionID: col(2),
		Industry: col(3),
	}
	if b.Name == "" || b.RegionID == "" {
		return b, fmt.Errorf("name and regionId are required")
	}

	var err error
	if v := col(4); v != "" {
		if b.YearAdded, err = strconv.Atoi(v); err != nil {
			return b, fmt.Errorf("invalid year_added %q", v)
		}
	}
	if v := col(5); v != "" {
		if b.Employees, err = strconv.Atoi(v); err != nil {
			return b, fmt.Errorf("invalid employees %q", v)
		}
	}
	if lat, lng := col(6), col(7); lat != "" && lng != "" {
		la, errLat := strconv.ParseFloat(lat, 64)
		lo, errLng := strconv.ParseFloat(lng, 64)
		if errLat != nil || errLng != nil {
			return b, fmt.Errorf("invalid location %q,%q", lat, lng)
		}
		b.Location = &model.Location{Latitude: la, Longitude: lo}
	}
	return b, nil
}
