package export

import (
	"bytes"
	"html/template"
	"time"
)

// TemplateData holds data for the document page wrapped around the SVG.
type TemplateData struct {
	Title     string
	Subtitle  string
	SpaceName string
	Author    string
	UpdatedAt time.Time
	SVG       template.HTML
}

var documentTemplate = template.Must(template.New("document").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Inter, Arial, sans-serif; line-height: 1.6; max-width: 1240px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #263238; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .canvas { border: 1px solid #eceff1; border-radius: 8px; padding: 1rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  {{if .Subtitle}}<p>{{.Subtitle}}</p>{{end}}
  <div class="meta">{{.SpaceName}} | {{.Author}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  <div class="canvas">{{.SVG}}</div>
</body>
</html>`))

// RenderDocumentHTML renders the printable page for PDF export.
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
