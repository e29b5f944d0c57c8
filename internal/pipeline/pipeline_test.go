package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auccello/amanda-go/internal/history"
	"github.com/auccello/amanda-go/internal/store"
)

type fakeAgent struct {
	reply string
	err   error
	// prompts and priors record what the agent was invoked with.
	prompts []string
	priors  [][]history.Message
}

func (a *fakeAgent) Process(_ context.Context, prompt string, prior ...history.Message) (string, error) {
	a.prompts = append(a.prompts, prompt)
	a.priors = append(a.priors, prior)
	if a.err != nil {
		return "", a.err
	}
	return a.reply, nil
}

type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Emit(ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

type failingWriter struct{ err error }

func (w *failingWriter) AppendTurn(context.Context, string, []byte) error { return w.err }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "chat.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestExchange_HappyPath(t *testing.T) {
	st := newTestStore(t)
	agent := &fakeAgent{reply: "hi there"}
	hist := history.NewReconstructor(st)
	sink := &recordingSink{}

	err := New(hist, agent, st).Exchange(context.Background(), "hello", sink)
	require.NoError(t, err)

	// Two streamed records, user then model.
	require.Len(t, sink.events, 2)
	require.Equal(t, "user", sink.events[0].Role)
	require.Equal(t, "hello", sink.events[0].Content)
	require.Equal(t, "model", sink.events[1].Role)
	require.Equal(t, "hi there", sink.events[1].Content)
	require.NotEmpty(t, sink.events[0].Timestamp)

	// The first exchange sees an empty history.
	require.Len(t, agent.priors, 1)
	require.Empty(t, agent.priors[0])

	// Exactly one turn persisted, decoding to exactly those two messages.
	payloads, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, payloads, 1)
	msgs, err := history.Decode(payloads[0].Version, payloads[0].Data)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, history.KindUser, msgs[0].Kind)
	require.Equal(t, "hello", msgs[0].Content)
	require.Equal(t, history.KindModel, msgs[1].Kind)
	require.Equal(t, "hi there", msgs[1].Content)
}

func TestExchange_SecondTurnSeesFirstAsContext(t *testing.T) {
	st := newTestStore(t)
	agent := &fakeAgent{reply: "hi there"}
	hist := history.NewReconstructor(st)
	p := New(hist, agent, st)

	require.NoError(t, p.Exchange(context.Background(), "hello", &recordingSink{}))

	agent.reply = "you said hello"
	require.NoError(t, p.Exchange(context.Background(), "what did I just say?", &recordingSink{}))

	require.Len(t, agent.priors, 2)
	prior := agent.priors[1]
	require.Len(t, prior, 2)
	require.Equal(t, history.KindUser, prior[0].Kind)
	require.Equal(t, "hello", prior[0].Content)
	require.Equal(t, history.KindModel, prior[1].Kind)
	require.Equal(t, "hi there", prior[1].Content)
}

func TestExchange_CommitOrderIsReconstructionOrder(t *testing.T) {
	st := newTestStore(t)
	agent := &fakeAgent{reply: "r"}
	hist := history.NewReconstructor(st)
	p := New(hist, agent, st)

	prompts := []string{"one", "two", "three"}
	for _, prompt := range prompts {
		require.NoError(t, p.Exchange(context.Background(), prompt, &recordingSink{}))
	}

	msgs, err := hist.Reconstruct(context.Background())
	require.NoError(t, err)
	require.Len(t, msgs, 6)
	for i, prompt := range prompts {
		require.Equal(t, history.KindUser, msgs[2*i].Kind)
		require.Equal(t, prompt, msgs[2*i].Content)
		require.Equal(t, history.KindModel, msgs[2*i+1].Kind)
	}
}

func TestExchange_AgentFailure(t *testing.T) {
	st := newTestStore(t)
	sentinel := errors.New("model unavailable")
	agent := &fakeAgent{err: sentinel}
	sink := &recordingSink{}

	err := New(history.NewReconstructor(st), agent, st).Exchange(context.Background(), "hello", sink)
	require.ErrorIs(t, err, sentinel)

	// Only the user event went out, and nothing was persisted.
	require.Len(t, sink.events, 1)
	require.Equal(t, "user", sink.events[0].Role)
	payloads, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, payloads)
}

func TestExchange_CommitFailureAfterStreaming(t *testing.T) {
	st := newTestStore(t)
	sentinel := errors.New("disk full")
	sink := &recordingSink{}

	err := New(history.NewReconstructor(st), &fakeAgent{reply: "hi"}, &failingWriter{err: sentinel}).
		Exchange(context.Background(), "hello", sink)
	require.ErrorIs(t, err, sentinel)

	// Streamed events are not retracted.
	require.Len(t, sink.events, 2)
}

func TestExchange_SinkFailureDoesNotAbort(t *testing.T) {
	st := newTestStore(t)
	sink := &recordingSink{err: errors.New("client gone")}

	err := New(history.NewReconstructor(st), &fakeAgent{reply: "hi"}, st).
		Exchange(context.Background(), "hello", sink)
	require.NoError(t, err)

	// The exchange still persisted even though no event was delivered.
	payloads, err := st.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, payloads, 1)
}

func TestExchange_PersistsDespiteCancelledRequest(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // client disconnected before the exchange finished

	err := New(history.NewReconstructor(st), &fakeAgent{reply: "hi"}, st).
		Exchange(ctx, "hello", &recordingSink{})
	// Reconstruction may observe the cancellation; if the exchange got as
	// far as the commit, the commit must have gone through.
	if err == nil {
		payloads, rerr := st.ReadAll(context.Background())
		require.NoError(t, rerr)
		require.Len(t, payloads, 1)
	}
}

func TestExchange_EmptyPrompt(t *testing.T) {
	st := newTestStore(t)
	sink := &recordingSink{}
	err := New(history.NewReconstructor(st), &fakeAgent{reply: "hi"}, st).
		Exchange(context.Background(), "", sink)
	require.ErrorIs(t, err, ErrEmptyPrompt)
	require.Empty(t, sink.events)
}
