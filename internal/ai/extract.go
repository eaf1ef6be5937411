package ai

import (
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(\\{.*?\\})\\s*```")

// ExtractCanvasJSON pulls a JSON object out of a model reply, in two
// stages: a fenced ```json block first, then the first-{-to-last-} slice
// of the whole reply. ok is false when neither stage finds a candidate, in
// which case the reply is plain conversation.
//
// prose is whatever surrounded the extracted block, so the caller can show
// the model's own explanation alongside the diagram.
func ExtractCanvasJSON(reply string) (jsonText, prose string, ok bool) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", "", false
	}

	if m := fencedJSONRe.FindStringSubmatchIndex(reply); m != nil {
		jsonText = reply[m[2]:m[3]]
		prose = strings.TrimSpace(reply[:m[0]] + " " + reply[m[1]:])
		return jsonText, prose, true
	}

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", "", false
	}
	jsonText = reply[start : end+1]
	prose = strings.TrimSpace(reply[:start] + " " + reply[end+1:])
	return jsonText, prose, true
}
