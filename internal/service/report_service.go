package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/storage"
	"github.com/rs/zerolog/log"
)

// SuggestionLister is the read side of the ROP service used for reports.
type SuggestionLister interface {
	ListSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, error)
}

// ExportResult describes a written report.
type ExportResult struct {
	Path      string    `json:"path"`
	ObjectKey string    `json:"object_key,omitempty"`
	Rows      int       `json:"rows"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportService writes pending suggestions to CSV and optionally uploads the
// file to object storage.
type ReportService struct {
	suggestions SuggestionLister
	exportDir   string
	objects     storage.ObjectStorage
	now         func() time.Time
}

// NewReportService builds a ReportService. objects may be nil to keep
// reports on local disk only.
func NewReportService(suggestions SuggestionLister, exportDir string, objects storage.ObjectStorage) *ReportService {
	return &ReportService{
		suggestions: suggestions,
		exportDir:   exportDir,
		objects:     objects,
		now:         time.Now,
	}
}

var pendingReportHeader = []string{
	"Suggestion ID", "IPN", "Part", "Supplier", "Current Stock", "Projected Stock",
	"ROP", "Suggested Qty", "Stockout Date", "Days Until Stockout", "Lead Time Days",
	"Urgency", "Created",
}

// ExportPending writes the pending suggestions matching filter.
func (s *ReportService) ExportPending(ctx context.Context, filter domain.SuggestionFilter) (*ExportResult, error) {
	views, err := s.suggestions.ListSuggestions(ctx, filter)
	if err != nil {
		return nil, err
	}

	data, err := encodePendingCSV(views)
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}

	createdAt := s.now().UTC()
	name := fmt.Sprintf("pending_suggestions_%s.csv", createdAt.Format("20060102_150405"))
	result := &ExportResult{
		Path:      filepath.Join(s.exportDir, name),
		Rows:      len(views),
		CreatedAt: createdAt,
	}

	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed creating export directory %s: %w", s.exportDir, err)
	}
	if err := os.WriteFile(result.Path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed writing %s: %w", result.Path, err)
	}

	if s.objects != nil {
		info, err := s.objects.UploadObject(ctx, "reports/"+name, data, "text/csv")
		if err != nil {
			return nil, err
		}
		result.ObjectKey = info.Key
	}

	log.Info().Str("path", result.Path).Str("object_key", result.ObjectKey).Int("rows", result.Rows).Msg("rop: pending suggestions exported")
	return result, nil
}

func encodePendingCSV(views []domain.SuggestionView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(pendingReportHeader); err != nil {
		return nil, err
	}

	for _, v := range views {
		record := []string{
			strconv.FormatInt(v.ID, 10),
			v.PartIPN,
			v.PartName,
			optionalString(v.SupplierName),
			v.CurrentStock.String(),
			v.ProjectedStock.String(),
			v.CalculatedROP.String(),
			v.SuggestedOrderQty.String(),
			optionalDate(v.StockoutDate),
			optionalInt(v.DaysUntilStockout),
			optionalInt(v.LeadTimeDays),
			fmt.Sprintf("%.2f", v.UrgencyScore),
			v.CreatedDate.Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalDate(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}
