// Package elicit defines the interactive round-trip used for write
// confirmations, backup acknowledgements and passphrase entry, plus a
// terminal implementation of it.
package elicit

import (
	"context"
	"errors"
)

// Action is the user's answer to a form.
type Action string

const (
	Accept  Action = "accept"
	Decline Action = "decline"
	Cancel  Action = "cancel"
)

// ErrNotInteractive is returned when no human can be asked.
var ErrNotInteractive = errors.New("no interactive terminal available")

// Property is one field of a form.  Type is "boolean" or "string".
type Property struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Schema is the flat JSON Schema object a form is described by.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// ConfirmSchema asks for a single boolean named "confirm".
func ConfirmSchema(title string) Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			"confirm": {Type: "boolean", Title: title},
		},
		Required: []string{"confirm"},
	}
}

// TextSchema asks for a single string field.
func TextSchema(field, title, description string) Schema {
	return Schema{
		Type: "object",
		Properties: map[string]Property{
			field: {Type: "string", Title: title, Description: description},
		},
		Required: []string{field},
	}
}

// Response is the answer to one form.  Content is only meaningful when
// Action is Accept.
type Response struct {
	Action  Action         `json:"action"`
	Content map[string]any `json:"content,omitempty"`
}

// Bool returns a boolean field of an accepted response.
func (r Response) Bool(field string) bool {
	if r.Action != Accept {
		return false
	}
	v, ok := r.Content[field].(bool)
	return ok && v
}

// String returns a string field of an accepted response.
func (r Response) String(field string) string {
	if r.Action != Accept {
		return ""
	}
	v, _ := r.Content[field].(string)
	return v
}

// Elicitor presents a form and waits for the answer.  Implementations
// return ctx.Err() when ctx ends first.
type Elicitor interface {
	ElicitForm(ctx context.Context, message string, schema Schema) (Response, error)
}

// Prompter reads a passphrase without echoing it.  With confirm set the
// passphrase is asked twice and must match.  The caller zeroizes the
// result.
type Prompter interface {
	PromptPassphrase(ctx context.Context, message string, confirm bool) ([]byte, error)
}
