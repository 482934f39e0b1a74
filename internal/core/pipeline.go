// ABOUTME: Pipeline answers a question by retrieving indexed chunks then asking the chat model
// ABOUTME: Missing credentials short-circuit to a sentinel reply; stage failures collapse to ErrNoResult
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harper/folio/internal/llm"
	"github.com/harper/folio/internal/logging"
	"github.com/harper/folio/internal/models"
)

const (
	// RetrievalK is how many chunks are retrieved per question
	RetrievalK = 4
	// PromptHistoryTurns is how many prior turns are sent to the model
	PromptHistoryTurns = 10
	// Temperature keeps answers focused and reproducible
	Temperature float32 = 0.2
	// DefaultStageTimeout bounds each stage's outbound call
	DefaultStageTimeout = 20 * time.Second

	ChatKeyMissingReply      = "OPENAI_CHAT_API_KEY is not set. Add it to the backend environment and retry."
	EmbeddingKeyMissingReply = "OPENAI_EMBEDDING_API_KEY is not set. Add it to the backend environment and retry."
)

// ErrNoResult means a pipeline stage failed; the cause is wrapped for logs only
var ErrNoResult = errors.New("rag pipeline produced no result")

// Retriever returns the content of the k chunks nearest to query, nearest first
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}

// Completer produces a chat completion
type Completer interface {
	Complete(ctx context.Context, messages []llm.Message, temperature float32) (string, error)
}

// Reply is the outcome of a successful pipeline call.
// Configured is false for the missing-credential sentinel.
type Reply struct {
	Text       string
	Configured bool
}

// PipelineConfig wires a Pipeline. Retriever and Completer are resolved on
// every call so lazily constructed clients are only built once credentials exist.
type PipelineConfig struct {
	ChatAPIKey      string
	EmbeddingAPIKey string
	OwnerName       string
	Retriever       func() (Retriever, error)
	Completer       func() (Completer, error)
	StageTimeout    time.Duration
	Observer        Observer
	Logger          *zap.Logger
}

// Pipeline is the two-stage retrieve-then-generate flow
type Pipeline struct {
	cfg          PipelineConfig
	systemPrompt string
	logger       *zap.Logger
	observer     Observer
}

// ragState carries values between stages
type ragState struct {
	question string
	history  []models.ChatTurn
	context  string
	answer   string
}

type stage struct {
	name string
	run  func(ctx context.Context, st *ragState) error
}

// NewPipeline creates a Pipeline
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = DefaultStageTimeout
	}
	return &Pipeline{
		cfg:          cfg,
		systemPrompt: SystemPrompt(cfg.OwnerName),
		logger:       logging.OrNop(cfg.Logger),
		observer:     observerOrNop(cfg.Observer),
	}
}

// SystemPrompt is the fixed instruction sent first in every request
func SystemPrompt(owner string) string {
	subject := "the portfolio owner"
	intro := "You are a public-facing chatbot for a personal portfolio. "
	if owner != "" {
		subject = owner
		intro = fmt.Sprintf("You are a public-facing chatbot for %s's portfolio. ", owner)
	}
	return intro +
		fmt.Sprintf("Answer questions about %s, their projects, skills, research interests, and contact info ", subject) +
		"using only the provided context. Keep responses concise (2-4 sentences). " +
		"Respond in plain text only (no markdown, no bullet lists). " +
		"If the answer is not in the context, say you do not have that information."
}

// GenerateReply runs retrieve then generate for question.
// It returns a sentinel Reply when a credential is missing and ErrNoResult when a stage fails.
func (p *Pipeline) GenerateReply(ctx context.Context, question string, history []models.ChatTurn) (Reply, error) {
	if p.cfg.ChatAPIKey == "" {
		return Reply{Text: ChatKeyMissingReply}, nil
	}
	if p.cfg.EmbeddingAPIKey == "" {
		return Reply{Text: EmbeddingKeyMissingReply}, nil
	}

	st := &ragState{question: question, history: history}
	for _, s := range []stage{
		{name: "retrieve", run: p.retrieve},
		{name: "generate", run: p.generate},
	} {
		start := time.Now()
		sctx, cancel := context.WithTimeout(ctx, p.cfg.StageTimeout)
		err := runStage(sctx, s, st)
		cancel()
		p.observer.ObserveStage(s.name, time.Since(start), err)

		if err != nil {
			p.logger.Error("rag pipeline stage failed",
				zap.String("stage", s.name),
				zap.Int("question_chars", len(question)),
				zap.Error(err),
			)
			return Reply{}, fmt.Errorf("%w: %s: %w", ErrNoResult, s.name, err)
		}
	}

	return Reply{Text: st.answer, Configured: true}, nil
}

// runStage turns a panic inside a stage into an ordinary stage error
func runStage(ctx context.Context, s stage, st *ragState) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.run(ctx, st)
}

func (p *Pipeline) retrieve(ctx context.Context, st *ragState) error {
	retriever, err := p.cfg.Retriever()
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	docs, err := retriever.Search(ctx, st.question, RetrievalK)
	if err != nil {
		return err
	}
	st.context = strings.Join(docs, "\n\n")
	return nil
}

func (p *Pipeline) generate(ctx context.Context, st *ragState) error {
	completer, err := p.cfg.Completer()
	if err != nil {
		return fmt.Errorf("creating chat client: %w", err)
	}
	answer, err := completer.Complete(ctx, p.buildMessages(st.question, st.history, st.context), Temperature)
	if err != nil {
		return err
	}
	st.answer = answer
	return nil
}

// buildMessages assembles: instruction, optional context, the last history turns, the question
func (p *Pipeline) buildMessages(question string, history []models.ChatTurn, contextText string) []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: p.systemPrompt}}

	if contextText != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: "Context:\n" + contextText})
	}

	if len(history) > PromptHistoryTurns {
		history = history[len(history)-PromptHistoryTurns:]
	}
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: question})
}
