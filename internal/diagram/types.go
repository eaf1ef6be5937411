// Package diagram turns loosely-shaped node/edge payloads into positioned
// canvas documents: classify each node's style from its label, assign it to
// a horizontal layer, lay the layers out top-down on a reference canvas,
// and attach arrows at the best-facing ports.
package diagram

// Geometry constants for the banded layout. The reference width is the
// canvas the layout centers against; rows wider than it overflow to the
// right rather than clamp, since the canvas is pannable.
const (
	NodeWidth      = 160.0
	NodeHeight     = 80.0
	HorizontalGap  = 48.0
	VerticalGap    = 72.0
	StartX         = 60.0
	StartY         = 60.0
	CanvasRefWidth = 1200.0
)

// Visual defaults applied to every generated object.
const (
	defaultStrokeWidth  = 2.0
	defaultBorderRadius = 8.0
	defaultFontSize     = 14
	defaultFontFamily   = "Inter"
)

// CanvasObject is a positioned rectangle node in the canonical canvas shape.
type CanvasObject struct {
	ID           string  `json:"id"`
	Type         string  `json:"type"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Width        float64 `json:"width"`
	Height       float64 `json:"height"`
	Fill         string  `json:"fill"`
	Stroke       string  `json:"stroke"`
	StrokeWidth  float64 `json:"strokeWidth"`
	Rotation     float64 `json:"rotation"`
	Opacity      float64 `json:"opacity"`
	BorderRadius float64 `json:"borderRadius"`
	ZIndex       int     `json:"zIndex"`
	Text         string  `json:"text"`
	FontSize     int     `json:"fontSize"`
	FontFamily   string  `json:"fontFamily"`
}

// Connection is an arrow between two placed objects. FromPort and ToPort
// are compass directions ("n", "e", "s", "w").
type Connection struct {
	ID          string  `json:"id"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	FromPort    string  `json:"fromPort"`
	ToPort      string  `json:"toPort"`
	Type        string  `json:"type"`
	Label       string  `json:"label"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// Document is the canonical canvas payload: everything the transformer
// emits and everything the client canvas store persists.
type Document struct {
	Objects     []CanvasObject `json:"objects"`
	Connections []Connection   `json:"connections"`
}
