// Package export renders a document's canvas as SVG, or as PDF via
// headless Chrome.
package export

import "errors"

// Format represents the export output format.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPDF Format = "pdf"
)

// Request contains parameters for an export operation.
type Request struct {
	DocumentID string
	Version    string // "latest" or commit hash
	Format     Format
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates document content could not be loaded.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates the headless browser is not installed.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
