// Package tool exposes the smart query interpreter as a declared,
// schema-described capability that agent frontends can register and
// invoke with raw JSON arguments.
package tool

import (
	"context"
	"encoding/json"

	"github.com/smartscan/smartscan/internal/interpret"
)

const Name = "smart_query"

type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

type Definition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// SmartQueryDefinition describes the tool for registration. The
// description steers callers toward purpose-built tools first: the
// interpreter is a fallback for questions nothing else answers.
func SmartQueryDefinition() Definition {
	return Definition{
		Name: Name,
		Description: "Answer a free-form question about a table by deriving a filtered scan. " +
			"Use only as a last resort, when no dedicated tool covers the question.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"table_name": {
					Type:        "string",
					Description: "Name of the table to query.",
				},
				"query": {
					Type:        "string",
					Description: "Natural language question, e.g. \"trades after 2025-02-25\" or \"Amount > 1000\".",
				},
				"limit": {
					Type:        "integer",
					Description: "Maximum number of items to return. Defaults to 100, or 1 for highest/lowest questions.",
				},
			},
			Required: []string{"table_name", "query"},
		},
	}
}

// Handler turns raw JSON tool arguments into interpreter calls.
type Handler struct {
	interpreter *interpret.Interpreter
}

func NewHandler(interpreter *interpret.Interpreter) *Handler {
	return &Handler{interpreter: interpreter}
}

// Invoke never returns an error for bad arguments: failures surface as
// structured result fields so the caller always gets a Result to relay.
func (h *Handler) Invoke(ctx context.Context, arguments json.RawMessage) interpret.Result {
	var req interpret.Request
	if err := json.Unmarshal(arguments, &req); err != nil {
		return interpret.Result{
			ErrorType: interpret.ErrorInvalidArgument,
			Message:   "tool arguments must be a JSON object with table_name and query",
		}
	}
	return h.interpreter.Interpret(ctx, req)
}
