// Package ollama is the HTTP client for a local Ollama server. It backs both
// the embedding port used at indexing/query time and the answer generator
// used by the question-answering loop.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/legal-case-assistant/internal/infrastructure/resilience"
)

const (
	defaultBaseURL    = "http://localhost:11434"
	defaultGenModel   = "llama3.1:8b"
	defaultEmbedModel = "nomic-embed-text"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL            string
	GenerateModel      string
	EmbedModel         string
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(options Options) *Client {
	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	genModel := options.GenerateModel
	if genModel == "" {
		genModel = defaultGenModel
	}
	embedModel := options.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

// Model reports the embedding model name; it is stamped onto every chunk so
// stale vectors can be detected after a model change.
func (c *Client) Model() string {
	return c.embedModel
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out embedResponse
	call := func(ctx context.Context) error {
		out = embedResponse{}
		return c.postJSON(ctx, "/api/embed", embedRequest{
			Model: c.embedModel,
			Input: texts,
		}, &out, "embed")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.embed", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed texts", err)
	}

	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d embeddings for %d inputs", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed query: got %d embeddings", len(embeddings))
	}
	return embeddings[0], nil
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Generate runs a single non-streaming completion. Low temperature keeps the
// citation block well-formed across regeneration attempts.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var out generateResponse
	call := func(ctx context.Context) error {
		out = generateResponse{}
		return c.postJSON(ctx, "/api/generate", generateRequest{
			Model:  c.genModel,
			Prompt: prompt,
			Stream: false,
			Options: generateOptions{
				Temperature: 0.1,
			},
		}, &out, "generate")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.generate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("generate answer", err)
	}
	return out.Response, nil
}
