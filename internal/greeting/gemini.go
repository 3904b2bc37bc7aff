package greeting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-2.0-flash"
)

// GenerationError reports that no greeting could be produced. Stored
// messages are left as they were.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "generate greeting: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGenerationError reports whether err is or wraps a GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini generateContent API through the genai SDK.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client

	client  *genai.Client
	initErr error
}

type Option func(*GeminiClient)

func WithHTTPClient(c *http.Client) Option {
	return func(g *GeminiClient) {
		g.httpClient = c
	}
}

func WithBaseURL(u string) Option {
	return func(g *GeminiClient) {
		if u != "" {
			g.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func WithModel(m string) Option {
	return func(g *GeminiClient) {
		if m != "" {
			g.model = m
		}
	}
}

// NewGeminiClient builds a client. Without an API key it stays unconfigured
// and every Generate call fails with a GenerationError.
func NewGeminiClient(apiKey string, opts ...Option) *GeminiClient {
	g := &GeminiClient{
		apiKey:     apiKey,
		model:      DefaultModel,
		baseURL:    DefaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.apiKey != "" {
		g.client, g.initErr = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:     g.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: g.httpClient,
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    g.baseURL + "/",
				APIVersion: "v1beta",
			},
		})
	}
	return g
}

// Configured returns true if the API key is set.
func (g *GeminiClient) Configured() bool {
	return g.apiKey != ""
}

func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", &GenerationError{Err: errors.New("gemini client not configured: missing API key")}
	}
	if g.initErr != nil {
		return "", &GenerationError{Err: fmt.Errorf("create gemini client: %w", g.initErr)}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", &GenerationError{Err: fmt.Errorf("call gemini: %w", err)}
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", &GenerationError{Err: errors.New("no text generated")}
	}
	return text, nil
}
