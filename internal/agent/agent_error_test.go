package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auccello/amanda-go/internal/config"
	"github.com/auccello/amanda-go/pkg/tools"
)

func TestProcess_LLMErrorExhaustsRetries(t *testing.T) {
	mock := &mockLLM{errs: []error{
		context.DeadlineExceeded,
		context.DeadlineExceeded,
		context.DeadlineExceeded,
	}}
	a := New(mock, config.LLMConfig{Model: "gpt", Retries: 2}, tools.NewToolManager())

	_, err := a.Process(context.Background(), "hi")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	// One initial call plus two retries.
	require.Len(t, mock.requests, 3)
}
