// Package agent runs the conversational loop against the LLM: build the
// prompt from prior history, let the model call tools, and return its final
// text. The loop is modeled as a finite state machine.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/qmuntal/stateless"
	"github.com/sashabaranov/go-openai"

	"github.com/auccello/amanda-go/internal/config"
	"github.com/auccello/amanda-go/internal/history"
	"github.com/auccello/amanda-go/internal/llm"
	"github.com/auccello/amanda-go/internal/logger"
	"github.com/auccello/amanda-go/pkg/tools"
)

// FSM states
type FSMState stateless.State

var (
	StateReadyToCallLLM      FSMState = "ReadyToCallLLM"
	StateAwaitingLLMResponse FSMState = "AwaitingLLMResponse"
	StateExecutingTools      FSMState = "ExecutingTools"
	StateDone                FSMState = "Done"
	StateError               FSMState = "Error"
)

// FSM triggers
type FSMTrigger stateless.Trigger

var (
	TriggerProcessInput            FSMTrigger = "ProcessInput"
	TriggerLLMRespondedWithContent FSMTrigger = "LLMRespondedWithContent"
	TriggerLLMRequestedTools       FSMTrigger = "LLMRequestedTools"
	TriggerToolsExecutionCompleted FSMTrigger = "ToolsExecutionCompleted"
	TriggerErrorOccurred           FSMTrigger = "ErrorOccurred"
)

const defaultSystemPrompt = "You are a helpful assistant that can provide answers to many questions. " +
	"When a user asks for `help` or `what can you do?` specifically then use the `help` tool and output exactly the text it returns. " +
	"If the user asks for `about` or `who are you?` then use the `about` tool and output exactly the text it returns."

const (
	defaultMaxTurns = 5
	defaultRetries  = 2
)

// Agent is the conversational agent.
type Agent struct {
	llmClient    llm.Client
	cfg          config.LLMConfig
	registry     *tools.ToolManager
	llmTools     []openai.Tool
	systemPrompt string
}

// New creates an agent using the tools already present in the registry.
// Register MCP-discovered tools with RegisterMCPServers before calling New,
// or call RefreshTools afterwards.
func New(llmClient llm.Client, cfg config.LLMConfig, registry *tools.ToolManager) *Agent {
	a := &Agent{
		llmClient:    llmClient,
		cfg:          cfg,
		registry:     registry,
		systemPrompt: cfg.SystemPrompt,
	}
	if a.systemPrompt == "" {
		a.systemPrompt = defaultSystemPrompt
	}
	a.RefreshTools()
	return a
}

// RefreshTools rebuilds the LLM-visible tool definitions from the registry.
func (a *Agent) RefreshTools() {
	ts := a.registry.List()
	a.llmTools = make([]openai.Tool, 0, len(ts))
	for _, t := range ts {
		a.llmTools = append(a.llmTools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
}

func (a *Agent) maxTurns() int {
	if a.cfg.MaxTurns > 0 {
		return a.cfg.MaxTurns
	}
	return defaultMaxTurns
}

func (a *Agent) retries() int {
	if a.cfg.Retries > 0 {
		return a.cfg.Retries
	}
	return defaultRetries
}

// chatMessages maps reconstructed history onto chat-completion messages.
// Tool records carry an encoded chat message in their payload and are
// passed through; anything undecodable there is skipped rather than
// guessed at.
func (a *Agent) chatMessages(msgs []history.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Kind {
		case history.KindUser:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case history.KindModel:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
		case history.KindTool:
			var cm openai.ChatCompletionMessage
			if err := json.Unmarshal(m.Payload, &cm); err != nil {
				logger.L.Warn("skipping undecodable tool record in history", "error", err)
				continue
			}
			out = append(out, cm)
		}
	}
	return out
}

// callLLM invokes the chat completion endpoint, re-invoking on failure up
// to the configured retry budget.
func (a *Agent) callLLM(ctx context.Context, messages []openai.ChatCompletionMessage) (openai.ChatCompletionResponse, error) {
	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt <= a.retries(); attempt++ {
		resp, err = a.llmClient.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:    a.cfg.Model,
			Messages: messages,
			Tools:    a.llmTools,
		})
		if err == nil {
			return resp, nil
		}
		logger.L.Warn("LLM call failed", "attempt", attempt, "error", err)
	}
	return resp, fmt.Errorf("llm: %w", err)
}

// Process runs one conversational exchange and returns the model's final
// text. prior is the reconstructed history; it is replayed as context ahead
// of the new prompt. Any returned error is terminal for the exchange.
func (a *Agent) Process(ctx context.Context, prompt string, prior ...history.Message) (string, error) {
	type fsmContext struct {
		messages     []openai.ChatCompletionMessage
		llmResponse  *openai.ChatCompletionResponse
		finalContent string
		lastError    error
		currentTurn  int
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(prior)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt})
	messages = append(messages, a.chatMessages(prior)...)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	fsmCtx := &fsmContext{messages: messages}

	fsm := stateless.NewStateMachine(StateReadyToCallLLM)

	fsm.Configure(StateReadyToCallLLM).
		PermitReentry(TriggerProcessInput).
		OnEntry(func(ctx context.Context, _ ...any) error {
			if fsmCtx.currentTurn >= a.maxTurns() {
				fsmCtx.lastError = errors.New("exceeded maximum interaction turns")
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.currentTurn++
			logger.L.Debug("FSM: calling LLM", "turn", fsmCtx.currentTurn)

			resp, err := a.callLLM(ctx, fsmCtx.messages)
			if err != nil {
				fsmCtx.lastError = err
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			if len(resp.Choices) == 0 {
				fsmCtx.lastError = errors.New("llm: empty response")
				return fsm.FireCtx(ctx, TriggerErrorOccurred)
			}
			fsmCtx.llmResponse = &resp

			if len(resp.Choices[0].Message.ToolCalls) > 0 {
				return fsm.FireCtx(ctx, TriggerLLMRequestedTools)
			}
			return fsm.FireCtx(ctx, TriggerLLMRespondedWithContent)
		}).
		Permit(TriggerLLMRequestedTools, StateExecutingTools).
		Permit(TriggerLLMRespondedWithContent, StateDone).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateExecutingTools).
		OnEntry(func(ctx context.Context, _ ...any) error {
			llmMessage := fsmCtx.llmResponse.Choices[0].Message
			fsmCtx.messages = append(fsmCtx.messages, llmMessage)

			for _, toolCall := range llmMessage.ToolCalls {
				fsmCtx.messages = append(fsmCtx.messages, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					Content:    a.executeTool(ctx, toolCall.Function.Name, toolCall.Function.Arguments),
					ToolCallID: toolCall.ID,
					Name:       toolCall.Function.Name,
				})
			}
			return fsm.FireCtx(ctx, TriggerToolsExecutionCompleted)
		}).
		Permit(TriggerToolsExecutionCompleted, StateReadyToCallLLM).
		Permit(TriggerErrorOccurred, StateError)

	fsm.Configure(StateDone).
		OnEntry(func(_ context.Context, _ ...any) error {
			fsmCtx.finalContent = fsmCtx.llmResponse.Choices[0].Message.Content
			return nil
		})

	fsm.Configure(StateError).
		OnEntry(func(_ context.Context, _ ...any) error {
			if fsmCtx.lastError == nil {
				fsmCtx.lastError = errors.New("agent: reached error state without a specific error")
			}
			return nil
		})

	// Kick the machine: re-entering the initial state runs its OnEntry,
	// and the transitions chain synchronously from there to a terminal
	// state.
	if err := fsm.FireCtx(ctx, TriggerProcessInput); err != nil {
		if fsmCtx.lastError != nil {
			return "", fsmCtx.lastError
		}
		return "", fmt.Errorf("agent: FSM fire: %w", err)
	}

	state, err := fsm.State(ctx)
	if err != nil {
		return "", fmt.Errorf("agent: FSM state: %w", err)
	}
	switch state {
	case StateDone:
		return fsmCtx.finalContent, nil
	case StateError:
		return "", fsmCtx.lastError
	default:
		if fsmCtx.lastError != nil {
			return "", fsmCtx.lastError
		}
		return "", fmt.Errorf("agent: FSM ended in an unexpected state: %v", state)
	}
}

// executeTool dispatches one tool call and formats the result for the
// model. Tool failures become tool-result text so the model can recover or
// rephrase; they never abort the exchange on their own.
func (a *Agent) executeTool(ctx context.Context, name, args string) string {
	tool, err := a.registry.GetTool(name)
	if err != nil {
		logger.L.Warn("LLM requested unknown tool", "tool", name)
		return "Error: unknown tool " + name
	}

	logger.L.Debug("executing tool", "tool", name, "arguments", args)
	out, err := tool.Run(ctx, args)
	if err != nil {
		var retry *tools.RetryError
		if errors.As(err, &retry) {
			logger.L.Info("tool requested retry", "tool", name, "reason", retry.Reason)
			return "Error: " + retry.Reason + ". Please try again with different input."
		}
		logger.L.Warn("tool execution failed", "tool", name, "error", err)
		return "Error: " + err.Error()
	}
	return out
}
