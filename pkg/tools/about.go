package tools

import (
	"context"
	"encoding/json"
)

const aboutText = `Amanda AI is an AI Agent developed by Amanda Uccello.
   - Creator of Amanda AI: Amanda Uccello
   - Course: ICS 4U
   - School: Port Credit Secondary School
   - Teacher: Mrs. Kim
   - Date: January 2025
   - Model: GPT-4o`

// AboutTool answers "about" / "who are you?" with a fixed blurb.
type AboutTool struct{}

func (AboutTool) Name() string                { return "about" }
func (AboutTool) Description() string         { return "Describes who the assistant is. Use when the user asks about or who are you." }
func (AboutTool) Parameters() json.RawMessage { return EmptySchema }

func (AboutTool) Run(_ context.Context, _ string) (string, error) {
	return aboutText, nil
}
