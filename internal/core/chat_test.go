// ABOUTME: Tests for ChatService composition of sessions and pipeline
// ABOUTME: Includes the end-to-end scenario over a real index and fake model
package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/folio/internal/llm"
	"github.com/harper/folio/internal/models"
	"github.com/harper/folio/internal/storage"
	"github.com/harper/folio/internal/storage/sqlite"
)

// groundedCompleter answers with the context line it was given
type groundedCompleter struct{ fakeCompleter }

func (g *groundedCompleter) Complete(ctx context.Context, messages []llm.Message, temperature float32) (string, error) {
	_, _ = g.fakeCompleter.Complete(ctx, messages, temperature)
	for _, m := range messages {
		if strings.HasPrefix(m.Content, "Context:\n") {
			return "According to the portfolio: " + strings.TrimPrefix(m.Content, "Context:\n"), nil
		}
	}
	return "I do not have that information.", nil
}

// constantEmbedder gives every text the same direction
type constantEmbedder struct{}

func (constantEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{1, 0}
	}
	return out, nil
}

func TestHandle_EndToEnd(t *testing.T) {
	ctx := context.Background()

	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	index := storage.NewVectorIndex(db, constantEmbedder{})
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.Add(ctx, []models.Chunk{{
		Content:     "Built an RAG chatbot in 2024.",
		Source:      "projects.md",
		Fingerprint: Fingerprint("Built an RAG chatbot in 2024."),
	}}))

	completer := &groundedCompleter{}
	pipeline := NewPipeline(PipelineConfig{
		ChatAPIKey:      "chat-key",
		EmbeddingAPIKey: "embed-key",
		Retriever:       func() (Retriever, error) { return index, nil },
		Completer:       func() (Completer, error) { return completer, nil },
	})
	sessions := NewSessionStore(DefaultSessionTTL)
	svc := NewChatService(sessions, pipeline, nil, nil)

	reply, err := svc.Handle(ctx, "abcdefgh", "What projects has this person built?")
	require.NoError(t, err)
	assert.Contains(t, reply, "Built an RAG chatbot in 2024.")

	history := sessions.GetHistory("abcdefgh")
	require.Len(t, history, 2)
	assert.Equal(t, models.ChatTurn{Role: models.RoleUser, Content: "What projects has this person built?"}, history[0])
	assert.Equal(t, models.ChatTurn{Role: models.RoleAssistant, Content: reply}, history[1])
}

func TestHandle_FailureLeavesSessionUntouched(t *testing.T) {
	obs := &recordingObserver{}
	sessions := NewSessionStore(DefaultSessionTTL)
	pipeline := newTestPipeline(&fakeRetriever{docs: []string{"A"}}, &fakeCompleter{err: errors.New("model down")}, "k", "k")
	svc := NewChatService(sessions, pipeline, nil, obs)

	reply, err := svc.Handle(context.Background(), "abcdefgh", "hello")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	assert.Empty(t, reply)
	assert.Empty(t, sessions.GetHistory("abcdefgh"))
	assert.Equal(t, []string{OutcomeUnavailable}, obs.outcomes)
}

func TestHandle_SentinelIsRecorded(t *testing.T) {
	obs := &recordingObserver{}
	sessions := NewSessionStore(DefaultSessionTTL)
	pipeline := newTestPipeline(&fakeRetriever{}, &fakeCompleter{}, "", "")
	svc := NewChatService(sessions, pipeline, nil, obs)

	reply, err := svc.Handle(context.Background(), "abcdefgh", "hello")
	require.NoError(t, err)
	assert.Equal(t, ChatKeyMissingReply, reply)
	assert.Len(t, sessions.GetHistory("abcdefgh"), 2)
	assert.Equal(t, []string{OutcomeNotConfigured}, obs.outcomes)
}

func TestHandle_PassesHistoryToPipeline(t *testing.T) {
	sessions := NewSessionStore(DefaultSessionTTL)
	completer := &fakeCompleter{answer: "second answer"}
	pipeline := newTestPipeline(&fakeRetriever{}, completer, "k", "k")
	svc := NewChatService(sessions, pipeline, nil, nil)

	require.NoError(t, sessions.AppendMessage("abcdefgh", models.RoleUser, "first"))
	require.NoError(t, sessions.AppendMessage("abcdefgh", models.RoleAssistant, "first answer"))

	_, err := svc.Handle(context.Background(), "abcdefgh", "second")
	require.NoError(t, err)

	// instruction, two prior turns, question
	require.Len(t, completer.messages, 4)
	assert.Equal(t, "first", completer.messages[1].Content)
	assert.Equal(t, "first answer", completer.messages[2].Content)
	assert.Len(t, sessions.GetHistory("abcdefgh"), 4)
}
