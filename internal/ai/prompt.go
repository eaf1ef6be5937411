package ai

import (
	"fmt"
	"sort"
	"strings"

	"loomboard/api/internal/diagram"
)

// BuildSystemPrompt renders the system prompt for a generation request.
// When canvas is non-empty its objects and connections are listed with
// their ids, so the model edits the existing diagram instead of inventing
// a fresh one.
func BuildSystemPrompt(canvas *diagram.Document) string {
	var b strings.Builder

	b.WriteString("You are a diagramming assistant for an architecture canvas. ")
	b.WriteString("Users describe systems in plain language and you answer with a short explanation followed by the diagram as JSON.\n\n")

	if canvas != nil && len(canvas.Objects) > 0 {
		b.WriteString("Current diagram on the canvas:\n")
		for _, obj := range canvas.Objects {
			fmt.Fprintf(&b, "- component %q (id %s)\n", obj.Text, obj.ID)
		}
		for _, conn := range canvas.Connections {
			if conn.Label != "" {
				fmt.Fprintf(&b, "- connection %s -> %s (%s)\n", conn.From, conn.To, conn.Label)
			} else {
				fmt.Fprintf(&b, "- connection %s -> %s\n", conn.From, conn.To)
			}
		}
		b.WriteString("When the user asks to change the diagram, reuse these ids and return the full updated diagram, not just the delta.\n\n")
	}

	b.WriteString("Response format: one or two sentences of prose, then a fenced ```json block containing an object with \"objects\" and \"connections\" arrays. ")
	b.WriteString("Each object needs \"id\" and \"text\"; each connection needs \"from\" and \"to\" referencing object ids, plus an optional \"label\". ")
	b.WriteString("Do not include positions or colors; those are computed server-side from the component names.\n\n")

	b.WriteString("Name components with keywords from these categories so they are styled correctly:\n")
	keywords := diagram.StyleKeywords()
	categories := make([]string, 0, len(keywords))
	for category := range keywords {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		ri, rj := diagram.LayerFor(categories[i]), diagram.LayerFor(categories[j])
		if ri != rj {
			return ri < rj
		}
		return categories[i] < categories[j]
	})
	for _, category := range categories {
		words := keywords[category]
		if len(words) > 6 {
			words = words[:6]
		}
		fmt.Fprintf(&b, "- %s: %s\n", category, strings.Join(words, ", "))
	}
	b.WriteString("\n")

	b.WriteString("Example:\n")
	b.WriteString("User: a web app that talks to an API backed by Postgres\n")
	b.WriteString("Assistant: Here's a simple three-tier setup.\n")
	b.WriteString("```json\n")
	b.WriteString(`{"objects":[{"id":"web","text":"Web App"},{"id":"api","text":"API Server"},{"id":"db","text":"Postgres DB"}],"connections":[{"from":"web","to":"api"},{"from":"api","to":"db"}]}`)
	b.WriteString("\n```\n")

	return b.String()
}
