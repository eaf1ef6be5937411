package diagram

import "sort"

// node is a classified input to the layout engine: identity and label plus
// the derived style and band rank.
type node struct {
	ID    string
	Text  string
	Style Style
	Layer int
}

// layoutNodes places every node on the reference canvas, band by band.
//
// Bands are processed in ascending rank order. Each band's row is centered
// against CanvasRefWidth when it fits and starts at StartX when it does
// not, overflowing to the right (the canvas pans, so overflow is preferred
// over overlap). z-index is the running placement order, so later bands
// render on top.
//
// Every input node receives exactly one position; order within a band is
// input order.
func layoutNodes(nodes []node) []CanvasObject {
	byLayer := make(map[int][]node)
	var ranks []int
	for _, n := range nodes {
		if _, seen := byLayer[n.Layer]; !seen {
			ranks = append(ranks, n.Layer)
		}
		byLayer[n.Layer] = append(byLayer[n.Layer], n)
	}
	sort.Ints(ranks)

	placed := make([]CanvasObject, 0, len(nodes))
	y := StartY
	zIndex := 0
	for _, rank := range ranks {
		row := byLayer[rank]
		rowWidth := float64(len(row))*NodeWidth + float64(len(row)-1)*HorizontalGap
		x := (CanvasRefWidth - rowWidth) / 2
		if x < StartX {
			x = StartX
		}
		for _, n := range row {
			placed = append(placed, CanvasObject{
				ID:           n.ID,
				Type:         "rectangle",
				X:            x,
				Y:            y,
				Width:        NodeWidth,
				Height:       NodeHeight,
				Fill:         n.Style.Fill,
				Stroke:       n.Style.Stroke,
				StrokeWidth:  defaultStrokeWidth,
				Rotation:     0,
				Opacity:      1,
				BorderRadius: defaultBorderRadius,
				ZIndex:       zIndex,
				Text:         n.Text,
				FontSize:     defaultFontSize,
				FontFamily:   defaultFontFamily,
			})
			x += NodeWidth + HorizontalGap
			zIndex++
		}
		y += NodeHeight + VerticalGap
	}
	return placed
}
