package export

import (
	"fmt"
	"html"
	"strings"

	"loomboard/api/internal/diagram"
)

const svgPadding = 40.0

// RenderSVG draws the canvas as a standalone SVG: rounded rectangles with
// centered labels and arrows attached at their selected ports.
func RenderSVG(doc *diagram.Document, title string) string {
	var b strings.Builder

	width, height := svgExtent(doc)
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f" font-family="Inter, sans-serif">`+"\n",
		width, height, width, height)
	b.WriteString(`<defs><marker id="arrow" viewBox="0 0 10 10" refX="9" refY="5" markerWidth="7" markerHeight="7" orient="auto-start-reverse"><path d="M 0 0 L 10 5 L 0 10 z" fill="#546e7a"/></marker></defs>` + "\n")

	if title != "" {
		fmt.Fprintf(&b, `<text x="%.0f" y="28" font-size="18" font-weight="600" fill="#263238">%s</text>`+"\n",
			svgPadding/2, html.EscapeString(title))
	}

	byID := make(map[string]diagram.CanvasObject, len(doc.Objects))
	for _, obj := range doc.Objects {
		byID[obj.ID] = obj
	}

	// Connections first so lines sit under the nodes.
	for _, conn := range doc.Connections {
		from, okFrom := byID[conn.From]
		to, okTo := byID[conn.To]
		if !okFrom || !okTo {
			continue
		}
		x1, y1 := portPoint(from, conn.FromPort)
		x2, y2 := portPoint(to, conn.ToPort)
		stroke := conn.Stroke
		if stroke == "" {
			stroke = "#546e7a"
		}
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="%.1f" marker-end="url(#arrow)"/>`+"\n",
			x1, y1, x2, y2, stroke, conn.StrokeWidth)
		if conn.Label != "" {
			fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="11" fill="#546e7a" text-anchor="middle">%s</text>`+"\n",
				(x1+x2)/2, (y1+y2)/2-4, html.EscapeString(conn.Label))
		}
	}

	for _, obj := range doc.Objects {
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" fill="%s" stroke="%s" stroke-width="%.1f" opacity="%.2f"/>`+"\n",
			obj.X, obj.Y, obj.Width, obj.Height, obj.BorderRadius, obj.Fill, obj.Stroke, obj.StrokeWidth, obj.Opacity)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" font-size="%d" fill="#263238" text-anchor="middle" dominant-baseline="middle">%s</text>`+"\n",
			obj.X+obj.Width/2, obj.Y+obj.Height/2, obj.FontSize, html.EscapeString(obj.Text))
	}

	b.WriteString("</svg>\n")
	return b.String()
}

func svgExtent(doc *diagram.Document) (width, height float64) {
	width, height = diagram.CanvasRefWidth, 2*svgPadding
	for _, obj := range doc.Objects {
		if right := obj.X + obj.Width + svgPadding; right > width {
			width = right
		}
		if bottom := obj.Y + obj.Height + svgPadding; bottom > height {
			height = bottom
		}
	}
	return width, height
}

func portPoint(obj diagram.CanvasObject, port string) (float64, float64) {
	switch port {
	case "n":
		return obj.X + obj.Width/2, obj.Y
	case "s":
		return obj.X + obj.Width/2, obj.Y + obj.Height
	case "e":
		return obj.X + obj.Width, obj.Y + obj.Height/2
	case "w":
		return obj.X, obj.Y + obj.Height/2
	default:
		return obj.X + obj.Width/2, obj.Y + obj.Height/2
	}
}
