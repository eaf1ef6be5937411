package export

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"loomboard/api/internal/diagram"
)

// DataStore is the data access surface the export service needs.
type DataStore interface {
	GetDocument(ctx context.Context, id string) (DocumentInfo, error)
	GetSpace(ctx context.Context, id string) (SpaceInfo, error)
	// GetDocumentCanvas loads the canvas at a version, "latest" or a
	// commit hash.
	GetDocumentCanvas(ctx context.Context, documentID, version string) (*diagram.Document, error)
}

// DocumentInfo holds document metadata for the export page.
type DocumentInfo struct {
	ID        string
	Title     string
	Subtitle  string
	SpaceID   string
	UpdatedBy string
	UpdatedAt time.Time
}

// SpaceInfo holds space metadata.
type SpaceInfo struct {
	ID   string
	Name string
}

// Service renders exports.
type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	docInfo, err := s.store.GetDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	spaceInfo, err := s.store.GetSpace(ctx, docInfo.SpaceID)
	if err != nil {
		return nil, fmt.Errorf("get space: %w", err)
	}
	canvas, err := s.store.GetDocumentCanvas(ctx, req.DocumentID, req.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	svg := RenderSVG(canvas, "")

	switch req.Format {
	case FormatSVG:
		return &Result{
			Data:     []byte(RenderSVG(canvas, docInfo.Title)),
			Filename: sanitizeFilename(docInfo.Title) + ".svg",
			MimeType: "image/svg+xml",
		}, nil
	case FormatPDF:
		html, err := RenderDocumentHTML(TemplateData{
			Title:     docInfo.Title,
			Subtitle:  docInfo.Subtitle,
			SpaceName: spaceInfo.Name,
			Author:    docInfo.UpdatedBy,
			UpdatedAt: docInfo.UpdatedAt,
			SVG:       template.HTML(svg),
		})
		if err != nil {
			return nil, fmt.Errorf("render template: %w", err)
		}
		return exportPDF(html, docInfo.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
