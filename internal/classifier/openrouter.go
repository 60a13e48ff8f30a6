package classifier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"github.com/pbaille/laterread/internal/category"
)

const (
	DefaultBaseURL   = "https://openrouter.ai/api/v1"
	DefaultModel     = "google/gemini-3-flash-preview"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxTokens = 200
)

// KeyFunc returns the credential for a request
type KeyFunc func(ctx context.Context) (string, error)

// OpenRouter classifies through an OpenAI-compatible chat completions endpoint
type OpenRouter struct {
	key        KeyFunc
	reg        *category.Registry
	baseURL    string
	model      string
	timeout    time.Duration
	maxTokens  int64
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures an OpenRouter client
type Option func(*OpenRouter)

// WithBaseURL points the client at another OpenAI-compatible API
func WithBaseURL(u string) Option {
	return func(c *OpenRouter) { c.baseURL = u }
}

// WithModel sets the model name
func WithModel(m string) Option {
	return func(c *OpenRouter) { c.model = m }
}

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *OpenRouter) { c.timeout = d }
}

// WithMaxTokens bounds the completion length
func WithMaxTokens(n int) Option {
	return func(c *OpenRouter) { c.maxTokens = int64(n) }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OpenRouter) { c.httpClient = hc }
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *OpenRouter) { c.log = l.With().Str("component", "classifier").Logger() }
}

// New creates an OpenRouter classifier
func New(key KeyFunc, reg *category.Registry, opts ...Option) *OpenRouter {
	c := &OpenRouter{
		key:       key,
		reg:       reg,
		baseURL:   DefaultBaseURL,
		model:     DefaultModel,
		timeout:   DefaultTimeout,
		maxTokens: DefaultMaxTokens,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify analyzes an item and returns a summary and category key
func (c *OpenRouter) Classify(ctx context.Context, req Request) (*Result, error) {
	apiKey, err := c.key(ctx)
	if err != nil || apiKey == "" {
		return nil, &Error{Kind: KindUnauthorized, Err: err}
	}

	prompt := buildPrompt(req, c.reg)
	c.log.Debug().Str("url", req.URL).Str("model", c.model).Int("context", len(req.Context)).Msg("classifying")

	text, err := c.callAPI(ctx, apiKey, prompt)
	if err != nil {
		return nil, err
	}

	result, err := parseResponse(text)
	if err != nil {
		c.log.Warn().Str("url", req.URL).Str("response", truncate(text, 200)).Msg("unparseable response")
		return nil, err
	}
	result.Category = string(c.reg.Resolve(result.Category))
	return result, nil
}

func (c *OpenRouter) callAPI(ctx context.Context, apiKey, prompt string) (string, error) {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(c.baseURL),
		option.WithRequestTimeout(c.timeout),
		option.WithMaxRetries(0),
	}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	client := openai.NewClient(opts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.model),
		MaxTokens: openai.Int(c.maxTokens),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindInvalidResponse, Err: fmt.Errorf("empty response")}
	}

	return resp.Choices[0].Message.Content, nil
}

func mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindUnauthorized, Status: apiErr.StatusCode, Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Status: apiErr.StatusCode, Err: err}
		default:
			return &Error{Kind: KindServer, Status: apiErr.StatusCode, Err: err}
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindNetwork, Err: err}
	}

	return &Error{Kind: KindInvalidResponse, Err: err}
}
