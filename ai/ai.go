// Package ai calls the hosted model endpoint for the two AI
// conveniences: post summaries and chat icebreakers. Calls are
// one-shot, carry no conversation state, and never return an error to
// the caller: a failure resolves to a human-readable string that the
// UI displays in place of a result.
package ai

import (
	"context"
	"embed"
	"log/slog"
	"net/http"
	"strings"
	"text/template"

	"github.com/klipach/connectsphere/filter"
	"github.com/klipach/connectsphere/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	summarizeTemplate   = "summarize.tmpl"
	icebreakersTemplate = "icebreakers.tmpl"

	maxTokens = 1000
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(
	template.New("prompts").
		Funcs(template.FuncMap{"join": strings.Join}).
		ParseFS(promptFS, "prompts/*.tmpl"),
)

// Model is the single operation consumed from langchaingo.
type Model interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

type Client struct {
	model Model
}

// New builds a client for an OpenAI-compatible endpoint. Gemini's
// OpenAI-compatibility path is the default in config.
func New(apiKey, model, baseURL string) (*Client, error) {
	llm, err := openai.New(
		openai.WithModel(model),
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithHTTPClient(
			&http.Client{
				Transport: &loggingRoundTripper{
					rt: http.DefaultTransport,
				},
			},
		),
	)
	if err != nil {
		return nil, err
	}
	return &Client{model: llm}, nil
}

// NewWithModel builds a client around an existing model, used in tests.
func NewWithModel(m Model) *Client {
	return &Client{model: m}
}

// SummarizePost returns a one-sentence summary of content, or a
// descriptive error string.
func (c *Client) SummarizePost(ctx context.Context, content string) string {
	return c.generate(ctx, summarizeTemplate, struct{ Content string }{Content: content})
}

// Icebreakers returns conversation-starter suggestions for two users,
// one per line, or a descriptive error string.
func (c *Client) Icebreakers(ctx context.Context, mine, theirs, shared []string) string {
	return c.generate(ctx, icebreakersTemplate, struct {
		Mine   []string
		Theirs []string
		Shared []string
	}{Mine: mine, Theirs: theirs, Shared: shared})
}

func (c *Client) generate(ctx context.Context, tmpl string, data any) string {
	logger := log.LoggerFromContext(ctx)

	var prompt strings.Builder
	if err := prompts.ExecuteTemplate(&prompt, tmpl, data); err != nil {
		logger.Error("error while executing prompt template",
			slog.String("template", tmpl),
			slog.String("errorMsg", err.Error()),
		)
		return "An error occurred: " + err.Error()
	}

	resp, err := c.model.GenerateContent(
		ctx,
		[]llms.MessageContent{
			llms.TextParts(llms.ChatMessageTypeHuman, prompt.String()),
		},
		llms.WithMaxTokens(maxTokens),
	)
	if err != nil {
		logger.Error("model call failed", slog.String("errorMsg", err.Error()))
		return "An error occurred: " + err.Error()
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		logger.Error("no model response")
		return "Could not get a valid response from the AI."
	}

	return filter.StripLinks(resp.Choices[0].Content)
}
