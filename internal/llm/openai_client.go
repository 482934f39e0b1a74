// ABOUTME: OpenAI-compatible client for embeddings and chat completions
// ABOUTME: Each call carries a bounded timeout; failures are returned, never retried
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	// DefaultTimeout bounds every outbound call
	DefaultTimeout = 20 * time.Second
)

// Message roles accepted by Complete
const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// ErrNoEmbeddings is returned when the service answers with fewer vectors than inputs
var ErrNoEmbeddings = errors.New("no embeddings returned")

// Message is one entry of a chat completion request
type Message struct {
	Role    string
	Content string
}

// ClientConfig holds configuration for one role (chat or embedding) of the client
type ClientConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	BatchSize int
	// HTTPClient overrides the transport, mainly for tests
	HTTPClient *http.Client
}

func newOpenAI(cfg ClientConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return openai.NewClientWithConfig(oc), nil
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// EmbeddingClient turns texts into vectors
type EmbeddingClient struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	timeout   time.Duration
	batchSize int
}

// NewEmbeddingClient creates an embedding client from config
func NewEmbeddingClient(cfg ClientConfig) (*EmbeddingClient, error) {
	client, err := newOpenAI(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 64
	}
	return &EmbeddingClient{
		client:    client,
		model:     openai.EmbeddingModel(model),
		timeout:   timeoutOrDefault(cfg.Timeout),
		batchSize: batch,
	}, nil
}

// Embed returns one vector per input text, in input order.
// Inputs are sent in batches; each batch request has its own timeout.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *EmbeddingClient) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: c.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d inputs", ErrNoEmbeddings, len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })

	vecs := make([][]float64, len(data))
	for i, d := range data {
		// Convert []float32 to []float64
		v := make([]float64, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float64(f)
		}
		vecs[i] = v
	}
	return vecs, nil
}

// ChatClient produces chat completions
type ChatClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewChatClient creates a chat client from config
func NewChatClient(cfg ClientConfig) (*ChatClient, error) {
	client, err := newOpenAI(cfg)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatClient{
		client:  client,
		model:   model,
		timeout: timeoutOrDefault(cfg.Timeout),
	}, nil
}

// Complete sends messages and returns the first choice's content.
// A response without choices yields an empty string.
func (c *ChatClient) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessage, len(messages)),
		Temperature: temperature,
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
