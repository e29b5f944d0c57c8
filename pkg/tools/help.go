package tools

import (
	"context"
	"encoding/json"
)

const helpText = `I am Amanda AI and I can help with many questions.

I can assist you with a wide range of tasks, including but not limited to:

   - Answering general knowledge questions.
   - Providing explanations and summaries of complex topics.
   - Suggesting resources for learning or exploring new subjects.
   - Assisting with calculations and data analysis.
   - Offering advice for problem-solving and decision-making.
   - Supporting with writing, editing, and language-related queries.
   - Helping with technology-related questions and issues.
   - Engaging in creative tasks like story generation or brainstorming.

I can also get you the weather and if you upload a document
I can help you to answer questions about them!

Feel free to ask me anything specific you need help with!`

// HelpTool answers "help" / "what can you do?" with a fixed capability list.
type HelpTool struct{}

func (HelpTool) Name() string                { return "help" }
func (HelpTool) Description() string         { return "Lists what the assistant can help with. Use when the user asks for help or what you can do." }
func (HelpTool) Parameters() json.RawMessage { return EmptySchema }

func (HelpTool) Run(_ context.Context, _ string) (string, error) {
	return helpText, nil
}
