// Package pipeline orchestrates one conversational exchange: stream the
// user's prompt back immediately, replay prior history into the agent,
// stream the reply, then durably commit the turn.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/auccello/amanda-go/internal/history"
	"github.com/auccello/amanda-go/internal/logger"
)

// Event is one outward-visible record of an exchange, serialized as one
// NDJSON line on the streaming boundary.
type Event struct {
	Role      string `json:"role"` // "user" or "model"
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// FromMessage renders a logical message as a client-visible event. Tool
// records have no client rendering; ok is false for them.
func FromMessage(m history.Message) (Event, bool) {
	switch m.Kind {
	case history.KindUser:
		return Event{Role: "user", Timestamp: m.Timestamp.Format(time.RFC3339Nano), Content: m.Content}, true
	case history.KindModel:
		return Event{Role: "model", Timestamp: m.Timestamp.Format(time.RFC3339Nano), Content: m.Content}, true
	}
	return Event{}, false
}

// EventSink receives streamed events. A sink that can no longer deliver
// (client gone) should return an error; the exchange still runs to
// completion and persists.
type EventSink interface {
	Emit(Event) error
}

// Agent is the opaque conversational agent boundary.
type Agent interface {
	Process(ctx context.Context, prompt string, prior ...history.Message) (string, error)
}

// Reconstructor yields the full prior history in order.
type Reconstructor interface {
	Reconstruct(ctx context.Context) ([]history.Message, error)
}

// TurnWriter durably appends one turn with its serialized payload.
type TurnWriter interface {
	AppendTurn(ctx context.Context, turnID string, payload []byte) error
}

// ErrEmptyPrompt rejects exchanges with nothing to say.
var ErrEmptyPrompt = errors.New("pipeline: empty prompt")

// Pipeline runs exchanges. All failure translation into caller-visible
// outcomes happens here; lower components propagate their errors unchanged.
type Pipeline struct {
	hist  Reconstructor
	agent Agent
	turns TurnWriter
}

// New creates a Pipeline.
func New(hist Reconstructor, agent Agent, turns TurnWriter) *Pipeline {
	return &Pipeline{hist: hist, agent: agent, turns: turns}
}

// Exchange runs one exchange for prompt, emitting events on sink as they
// become available. The user event goes out before any database or agent
// work. On agent failure nothing is persisted and the error is terminal.
// If the commit fails after events have streamed, the events stand but the
// exchange is absent from later reconstructions; that window is accepted
// and the error is still returned for logging.
func (p *Pipeline) Exchange(ctx context.Context, prompt string, sink EventSink) error {
	if prompt == "" {
		return ErrEmptyPrompt
	}

	userMsg := history.User(prompt, time.Now().UTC())
	p.emit(sink, userMsg)

	prior, err := p.hist.Reconstruct(ctx)
	if err != nil {
		return err
	}

	reply, err := p.agent.Process(ctx, prompt, prior...)
	if err != nil {
		return err
	}

	modelMsg := history.Model(reply, time.Now().UTC())
	p.emit(sink, modelMsg)

	payload, err := history.Encode([]history.Message{userMsg, modelMsg})
	if err != nil {
		return err
	}

	turnID := uuid.NewString()
	// The client may already be gone; the commit happens regardless.
	if err := p.turns.AppendTurn(context.WithoutCancel(ctx), turnID, payload); err != nil {
		logger.L.Error("turn commit failed after streaming", "turn_id", turnID, "error", err)
		return err
	}
	logger.L.Info("turn committed", "turn_id", turnID)
	return nil
}

func (p *Pipeline) emit(sink EventSink, m history.Message) {
	ev, ok := FromMessage(m)
	if !ok {
		return
	}
	if err := sink.Emit(ev); err != nil {
		// Events in flight are not retried; the exchange continues.
		logger.L.Warn("event delivery failed", "role", ev.Role, "error", err)
	}
}
