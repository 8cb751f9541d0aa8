package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/room-reservation-api/internal/dto"
	appErrors "github.com/noah-isme/room-reservation-api/pkg/errors"
	"github.com/noah-isme/room-reservation-api/pkg/export"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var reservationExportHeaders = []string{"Room", "Reserved By", "Start", "End", "Purpose"}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered export ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders a day's reservations as CSV or PDF.
type ExportService struct {
	reservations reservationRangeReader
	csv          csvRenderer
	pdf          pdfRenderer
	logger       *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(reservations reservationRangeReader, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{reservations: reservations, csv: csv, pdf: pdf, logger: logger}
}

// Reservations renders reservations intersecting the UTC day in format.
func (s *ExportService) Reservations(ctx context.Context, day time.Time, format string) (*ExportFile, error) {
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.WithFields(appErrors.ErrValidation, map[string][]string{
			"format": {"the format field must be one of: csv pdf"},
		})
	}

	y, m, d := day.UTC().Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	items, err := s.reservations.ListBetween(ctx, from, from.Add(24*time.Hour))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reservations")
	}

	dataset := export.Dataset{Headers: reservationExportHeaders, Widths: map[string]float64{"Purpose": 2.5}}
	for _, item := range items {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Room":        item.RoomName,
			"Reserved By": item.UserName,
			"Start":       item.StartDate.UTC().Format("2006-01-02 15:04"),
			"End":         item.EndDate.UTC().Format("2006-01-02 15:04"),
			"Purpose":     item.Purpose,
		})
	}

	date := from.Format(dto.DateLayout)
	file := &ExportFile{Filename: fmt.Sprintf("reservations-%s.%s", date, format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Body, err = s.pdf.Render(dataset, "Reservations "+date)
	default:
		file.ContentType = "text/csv"
		file.Body, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Debug("reservations exported", zap.String("date", date), zap.String("format", format), zap.Int("rows", len(items)))
	return file, nil
}
