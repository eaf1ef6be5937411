package diagram

import (
	"encoding/json"
	"fmt"
	"log"
)

// rawNode and rawEdge are the canonical forms of the duck-typed input.
// All field-name aliasing is resolved here, once, at the boundary; nothing
// downstream branches on input shape again.
type rawNode struct {
	ID   string
	Text string
}

type rawEdge struct {
	From  string
	To    string
	Label string
}

// Transform converts a loosely-shaped payload into a canonical canvas
// document. Node lists may arrive under objects, nodes, or components;
// edge lists under connections, edges, or links; per-node text under text,
// label, or name; edge endpoints under from/source and to/target. Missing
// fields are defaulted, never rejected, so the output is always
// well-formed. Edges whose endpoints do not resolve to a placed object are
// dropped (counted and logged, not surfaced as an error).
//
// The transform is a pure function of its input aside from the log line:
// no state is kept between calls.
func Transform(payload map[string]any) *Document {
	nodes, edges := normalize(payload)

	classified := make([]node, len(nodes))
	for i, rn := range nodes {
		style := ClassifyStyle(rn.Text)
		classified[i] = node{
			ID:    rn.ID,
			Text:  rn.Text,
			Style: style,
			Layer: LayerFor(style.Category),
		}
	}

	objects := layoutNodes(classified)
	byID := make(map[string]CanvasObject, len(objects))
	for _, obj := range objects {
		byID[obj.ID] = obj
	}

	connections := make([]Connection, 0, len(edges))
	dropped := 0
	for i, e := range edges {
		from, okFrom := byID[e.From]
		to, okTo := byID[e.To]
		if !okFrom || !okTo {
			dropped++
			continue
		}
		fromPort, toPort := selectPorts(from, to)
		connections = append(connections, Connection{
			ID:          fmt.Sprintf("conn-%d", i),
			From:        e.From,
			To:          e.To,
			FromPort:    fromPort,
			ToPort:      toPort,
			Type:        "arrow",
			Label:       e.Label,
			Stroke:      from.Stroke,
			StrokeWidth: defaultStrokeWidth,
		})
	}
	if dropped > 0 {
		log.Printf("diagram: dropped %d connection(s) with unresolved endpoints", dropped)
	}

	return &Document{Objects: objects, Connections: connections}
}

// TransformJSON parses raw JSON and transforms it. The top level must be a
// JSON object; anything else is an error rather than an empty diagram.
func TransformJSON(data []byte) (*Document, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse diagram payload: %w", err)
	}
	return Transform(payload), nil
}

func normalize(payload map[string]any) ([]rawNode, []rawEdge) {
	rawNodes := firstList(payload, "objects", "nodes", "components")
	rawEdges := firstList(payload, "connections", "edges", "links")

	nodes := make([]rawNode, 0, len(rawNodes))
	for i, item := range rawNodes {
		entry, _ := item.(map[string]any)
		text := firstString(entry, "text", "label", "name")
		if text == "" {
			text = fmt.Sprintf("Component %d", i+1)
		}
		id := firstString(entry, "id")
		if id == "" {
			id = fmt.Sprintf("node-%d", i)
		}
		nodes = append(nodes, rawNode{ID: id, Text: text})
	}

	edges := make([]rawEdge, 0, len(rawEdges))
	for _, item := range rawEdges {
		entry, _ := item.(map[string]any)
		edges = append(edges, rawEdge{
			From:  firstString(entry, "from", "source"),
			To:    firstString(entry, "to", "target"),
			Label: firstString(entry, "label"),
		})
	}

	return nodes, edges
}

func firstList(m map[string]any, keys ...string) []any {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if list, ok := v.([]any); ok {
				return list
			}
		}
	}
	return nil
}

func firstString(m map[string]any, keys ...string) string {
	if m == nil {
		return ""
	}
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
