package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	appErrors "github.com/goosenest/degree-audit-api/pkg/errors"
	"github.com/goosenest/degree-audit-api/pkg/export"
)

type degreeStateReader interface {
	GetState(ctx context.Context, userID int64) (*DegreeState, error)
}

// ExportFormat names a supported report format.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult is a rendered report ready to stream.
type ExportResult struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders a user's degree progress as a flat report. The
// tree is walked depth-first so the row order mirrors the checklist.
type ExportService struct {
	degrees degreeStateReader
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	enabled bool
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(degrees degreeStateReader, enabled bool, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		degrees: degrees,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		enabled: enabled,
		logger:  logger,
	}
}

// ProgressReport renders the user's evaluated tree in the given format.
func (s *ExportService) ProgressReport(ctx context.Context, userID int64, format ExportFormat) (*ExportResult, error) {
	if !s.enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}

	state, err := s.degrees.GetState(ctx, userID)
	if err != nil {
		return nil, err
	}
	if state.Kind == DegreeKindNone {
		return nil, appErrors.ErrNoDegreeSelected
	}

	table := export.Table{
		Title:   fmt.Sprintf("Degree Progress - %s", state.Name),
		Headers: []string{"Requirement", "Kind", "Needed", "Courses", "Status"},
	}
	for _, root := range state.Tree {
		appendRows(&table, root, 0)
	}

	switch format {
	case FormatCSV:
		data, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("degree-progress-%d.csv", userID),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	case FormatPDF:
		data, err := s.pdf.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			FileName:    fmt.Sprintf("degree-progress-%d.pdf", userID),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func appendRows(table *export.Table, node *DegreeNode, depth int) {
	name := strings.Repeat("  ", depth) + node.Name
	courses := ""
	if node.Group != nil {
		courses = strings.Join(node.Group.Members, ", ")
	}
	table.Rows = append(table.Rows, []string{
		name,
		string(node.Kind),
		strconv.Itoa(node.Amount),
		courses,
		string(node.Fulfillment.State),
	})
	for _, child := range node.Children {
		appendRows(table, child, depth+1)
	}
}
