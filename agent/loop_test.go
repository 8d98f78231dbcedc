package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/poiesic/recollect/ai/mock"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/index"
	"github.com/poiesic/recollect/retrieval"
	badgerstore "github.com/poiesic/recollect/storage/badger"
)

type loopEnv struct {
	loop     *Loop
	registry *Registry
	chat     *mock.MockChatModel
	repos    *badgerstore.Repositories
}

func newLoopEnv(t *testing.T, opts ...LoopOption) *loopEnv {
	t.Helper()
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	chat := mock.NewMockChatModel()
	retriever, err := retrieval.NewRetriever(repos.Chunks, mock.NewMockEmbedder())
	require.NoError(t, err)

	registry := NewRegistry(WithTransactions(repos.Recordings))
	require.NoError(t, RegisterBuiltins(registry, BuiltinDeps{
		Recordings: repos.Recordings,
		Retriever:  retriever,
	}))

	loop, err := NewLoop(chat, retriever, registry, opts...)
	require.NoError(t, err)
	return &loopEnv{loop: loop, registry: registry, chat: chat, repos: repos}
}

func seedTranscriptChunk(t *testing.T, repos *badgerstore.Repositories, entityID, text string) {
	t.Helper()
	chunk := &core.Chunk{
		Id:          core.IDFromContent(entityID + ":" + text),
		EntityId:    entityID,
		ContentType: core.ContentTranscript,
		Text:        text,
		Vector:      index.NormalizeVector(mock.DeterministicVector(text, mock.Dimension)),
	}
	existing, err := repos.Chunks.GetChunks(context.Background(), entityID)
	require.NoError(t, err)
	require.NoError(t, repos.Chunks.ReplaceEntityChunks(context.Background(), entityID, append(existing, chunk)))
}

func TestAsk_PlainResponse(t *testing.T) {
	env := newLoopEnv(t)
	seedTranscriptChunk(t, env.repos, "rec-1", "the beta ships friday")
	env.chat.EnqueueText("The beta ships on Friday.")

	answer, err := env.loop.Ask(context.Background(), Request{Query: "when does the beta ship?"})
	require.NoError(t, err)
	assert.Equal(t, "The beta ships on Friday.", answer.Text)
	assert.Equal(t, 0, answer.ToolCalls)

	// The retrieved chunk grounds the system prompt.
	require.NotEmpty(t, env.chat.Calls)
	system := env.chat.Calls[0][0]
	text, ok := system.Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "the beta ships friday")
}

func TestAsk_ToolCallWithoutRegistryIsTerminal(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })

	chat := mock.NewMockChatModel()
	retriever, err := retrieval.NewRetriever(repos.Chunks, mock.NewMockEmbedder())
	require.NoError(t, err)
	loop, err := NewLoop(chat, retriever, nil)
	require.NoError(t, err)

	// A model can emit tool calls even when none were offered; with no
	// registry the text that came along is the answer.
	chat.EnqueueResponse(&llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content: "I would need to search for that.",
		ToolCalls: []llms.ToolCall{{
			ID:   "call-1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "search_notes",
				Arguments: `{"query":"beta"}`,
			},
		}},
	}}})

	answer, err := loop.Ask(context.Background(), Request{Query: "when does the beta ship?"})
	require.NoError(t, err)
	assert.Equal(t, "I would need to search for that.", answer.Text)
	assert.Equal(t, 0, answer.ToolCalls)
	assert.Equal(t, 1, chat.CallCount())
}

func TestAsk_ToolRoundTrip(t *testing.T) {
	env := newLoopEnv(t)
	saveRecording(t, env.repos, "rec-1")
	seedTranscriptChunk(t, env.repos, "rec-1", "we ship friday")

	env.chat.EnqueueToolCall("call-1", "get_transcript", `{"recording_id":"rec-1"}`)
	env.chat.EnqueueText("The transcript says you ship Friday.")

	answer, err := env.loop.Ask(context.Background(), Request{
		Query:    "what did we decide?",
		UseTools: true,
		Context:  &ToolContext{RecordingID: "rec-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The transcript says you ship Friday.", answer.Text)
	assert.Equal(t, 1, answer.ToolCalls)

	// Second model call carries the tool response message.
	require.Len(t, env.chat.Calls, 2)
	second := env.chat.Calls[1]
	last := second[len(second)-1]
	assert.Equal(t, llms.ChatMessageTypeTool, last.Role)
	response, ok := last.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call-1", response.ToolCallID)
	assert.Contains(t, response.Content, "we ship friday")
}

func TestAsk_IterationBound(t *testing.T) {
	env := newLoopEnv(t, WithMaxToolIterations(2))
	saveRecording(t, env.repos, "rec-1")
	seedTranscriptChunk(t, env.repos, "rec-1", "anything")

	// One scripted tool call; the mock repeats it forever, so the model
	// never produces a terminal response.
	env.chat.EnqueueToolCall("call-1", "get_transcript", `{"recording_id":"rec-1"}`)

	answer, err := env.loop.Ask(context.Background(), Request{
		Query:    "loop forever",
		UseTools: true,
		Context:  &ToolContext{RecordingID: "rec-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, IterationLimitMessage, answer.Text)
	assert.Equal(t, 2, answer.ToolCalls)
	assert.Equal(t, 2, env.chat.CallCount(), "model called exactly max iterations times")
}

func TestAsk_FullTranscriptSkipsRetrieval(t *testing.T) {
	env := newLoopEnv(t)
	env.chat.EnqueueText("done")

	transcript := "SPEAKER_00: full transcript goes in whole"
	_, err := env.loop.Ask(context.Background(), Request{
		Query:          "summarize",
		FullTranscript: transcript,
	})
	require.NoError(t, err)

	system := env.chat.Calls[0][0]
	text, ok := system.Parts[0].(llms.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, transcript)
}

func TestAsk_HistoryBounded(t *testing.T) {
	env := newLoopEnv(t)
	env.chat.EnqueueText("ok")

	history := make([]Turn, 0, 30)
	for i := 0; i < 30; i++ {
		role := llms.ChatMessageTypeHuman
		if i%2 == 1 {
			role = llms.ChatMessageTypeAI
		}
		history = append(history, Turn{Role: role, Text: "turn"})
	}

	_, err := env.loop.Ask(context.Background(), Request{
		Query:          "next question",
		FullTranscript: "short transcript",
		History:        history,
	})
	require.NoError(t, err)

	// system + bounded history + current query.
	assert.Len(t, env.chat.Calls[0], 1+DefaultHistoryLimit+1)
}

func TestAsk_EmptyQuery(t *testing.T) {
	env := newLoopEnv(t)
	_, err := env.loop.Ask(context.Background(), Request{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestNewLoop_RequiresDependencies(t *testing.T) {
	repos, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	defer repos.Close()
	retriever, err := retrieval.NewRetriever(repos.Chunks, mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = NewLoop(nil, retriever, nil)
	assert.ErrorIs(t, err, ErrModelRequired)

	_, err = NewLoop(mock.NewMockChatModel(), nil, nil)
	assert.ErrorIs(t, err, ErrRetrieverRequired)
}
