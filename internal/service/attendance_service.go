package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-transit-api/internal/models"
	"github.com/noah-isme/campus-transit-api/pkg/clock"
	appErrors "github.com/noah-isme/campus-transit-api/pkg/errors"
	"github.com/noah-isme/campus-transit-api/pkg/export"
)

type attendanceListRepository interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, int, error)
	ManifestRows(ctx context.Context, routeID, date string, shift models.Shift) ([]models.AttendanceRecord, error)
}

// ManifestFormat selects the manifest export encoding.
type ManifestFormat string

const (
	ManifestCSV ManifestFormat = "csv"
	ManifestPDF ManifestFormat = "pdf"
)

// ManifestDocument is a rendered passenger manifest ready to serve.
type ManifestDocument struct {
	Content     []byte
	ContentType string
	Filename    string
}

// AttendanceService serves scan history queries and passenger manifest exports.
type AttendanceService struct {
	repo   attendanceListRepository
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	clock  clock.Clock
	logger *zap.Logger
}

// NewAttendanceService constructs the attendance query service.
func NewAttendanceService(repo attendanceListRepository, clk clock.Clock, logger *zap.Logger) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		clock:  clk,
		logger: logger,
	}
}

// List returns filtered scan records with pagination metadata. Date defaults
// to today.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, *models.Pagination, error) {
	if filter.Date == "" {
		filter.Date = clock.DateOf(s.clock.Now())
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	return rows, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Manifest renders the passenger manifest for one route/shift/day.
func (s *AttendanceService) Manifest(ctx context.Context, routeID, date string, shift models.Shift, format ManifestFormat) (*ManifestDocument, error) {
	if routeID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "routeId is required")
	}
	if !shift.Valid() {
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unknown shift %q", shift)
	}
	if date == "" {
		date = clock.DateOf(s.clock.Now())
	}

	rows, err := s.repo.ManifestRows(ctx, routeID, date, shift)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manifest rows")
	}

	table := export.Table{
		Columns: []export.Column{
			{Key: "student", Label: "Student", Width: 3},
			{Key: "credential", Label: "Credential", Width: 2},
			{Key: "phase", Label: "Phase", Width: 2},
			{Key: "scanned_at", Label: "Scanned At", Width: 2},
		},
		Rows: make([]map[string]string, 0, len(rows)),
	}
	for _, rec := range rows {
		table.Rows = append(table.Rows, map[string]string{
			"student":    rec.StudentName,
			"credential": string(rec.CredentialKind),
			"phase":      string(rec.ScanPhase),
			"scanned_at": rec.ScannedAt.Format("15:04:05"),
		})
	}

	switch format {
	case ManifestPDF:
		title := fmt.Sprintf("Passenger Manifest %s", routeID)
		subtitle := fmt.Sprintf("%s, %s shift", date, shift)
		content, err := s.pdf.Render(table, title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render manifest pdf")
		}
		return &ManifestDocument{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("manifest-%s-%s-%s.pdf", routeID, date, shift),
		}, nil
	case ManifestCSV, "":
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render manifest csv")
		}
		return &ManifestDocument{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("manifest-%s-%s-%s.csv", routeID, date, shift),
		}, nil
	default:
		return nil, appErrors.Clonef(appErrors.ErrValidation, "unsupported manifest format %q", format)
	}
}
