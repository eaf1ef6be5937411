package ai

import (
	"context"
	"fmt"
	"log"

	"loomboard/api/internal/diagram"
)

// historyWindow caps how many prior conversation turns are replayed to the
// model on each request.
const historyWindow = 6

// Completer is the provider call the agent depends on. *Client satisfies
// it; tests substitute a canned reply.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Request is one generation turn: the user's prompt, the trailing
// conversation, and whatever is currently on the canvas.
type Request struct {
	Prompt  string
	History []Message
	Canvas  *diagram.Document
}

// Result is what a successful agent call yields. Document is nil when the
// model replied with plain conversation instead of a diagram; Message is
// always set.
type Result struct {
	Document *diagram.Document
	Message  string
}

// Agent turns a user prompt into a canvas diagram: build the system
// prompt, call the model, extract and transform the JSON it returns.
type Agent struct {
	completer Completer
}

func NewAgent(completer Completer) *Agent {
	return &Agent{completer: completer}
}

// Generate runs one turn. An error is returned only when the provider call
// itself fails; a reply the agent cannot parse degrades to a plain-text
// Result instead.
func (a *Agent) Generate(ctx context.Context, req Request) (*Result, error) {
	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: BuildSystemPrompt(req.Canvas)})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: req.Prompt})

	reply, err := a.completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	jsonText, prose, ok := ExtractCanvasJSON(reply)
	if !ok {
		return &Result{Message: reply}, nil
	}

	doc, err := diagram.TransformJSON([]byte(jsonText))
	if err != nil {
		// Malformed model output is a conversational reply, not a failure.
		log.Printf("ai: discarding unparseable diagram JSON: %v", err)
		return &Result{Message: reply}, nil
	}

	message := prose
	if message == "" {
		message = fmt.Sprintf("✨ Created %d components with %d connections!", len(doc.Objects), len(doc.Connections))
	}
	return &Result{Document: doc, Message: message}, nil
}
