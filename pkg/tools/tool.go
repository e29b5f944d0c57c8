package tools

import (
	"context"
	"encoding/json"
)

// Tool is the interface for all tools exposed to the model.
type Tool interface {
	Name() string
	Description() string
	// Parameters returns the JSON schema of the tool's arguments.
	Parameters() json.RawMessage
	// Run executes the tool with the model-supplied JSON arguments and
	// returns text for the model to read.
	Run(ctx context.Context, args string) (string, error)
}

// EmptySchema is the schema for tools that take no arguments.
var EmptySchema = json.RawMessage(`{"type":"object","properties":{}}`)

// RetryError asks the model to try again with different input instead of
// failing the exchange, e.g. when a location lookup finds nothing.
type RetryError struct {
	Reason string
}

func (e *RetryError) Error() string { return e.Reason }
