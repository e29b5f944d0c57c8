package llm

import (
	"github.com/sashabaranov/go-openai"

	"github.com/auccello/amanda-go/internal/config"
)

// NewClient creates an OpenAI-compatible chat completion client.
func NewClient(cfg config.LLMConfig) *openai.Client {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(c)
}
