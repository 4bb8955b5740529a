package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/smartration/backend/internal/domain"
	"github.com/smartration/backend/internal/infrastructure/apiclient"
)

const (
	// DefaultBaseURL is the public Messages API endpoint
	DefaultBaseURL = "https://api.anthropic.com"

	// APIVersion is sent as the anthropic-version header
	APIVersion = "2023-06-01"

	defaultMaxTokens = 1024
)

// Config holds Messages API client settings
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float64
	Timeout           time.Duration
	RequestsPerMinute int
	MaxAttempts       int
}

// Client sends single-turn prompts to the Messages API
type Client struct {
	transport   *apiclient.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient creates a new Messages API client
func NewClient(config Config) *Client {
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	maxTokens := config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		transport: apiclient.New(apiclient.Config{
			Name:              "LLM",
			Timeout:           config.Timeout,
			RequestsPerMinute: config.RequestsPerMinute,
			MaxAttempts:       config.MaxAttempts,
		}),
		apiKey:      config.APIKey,
		baseURL:     baseURL,
		model:       config.Model,
		maxTokens:   maxTokens,
		temperature: config.Temperature,
	}
}

// SetDebug enables request logging
func (c *Client) SetDebug(debug bool) {
	c.transport.SetDebug(debug)
}

// Complete sends prompt as a single user message and returns the first text block
func (c *Client) Complete(ctx context.Context, prompt string, opts domain.CompletionOptions) (string, error) {
	req := messagesRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": APIVersion,
	}

	resp, err := c.transport.PostJSON(ctx, c.baseURL+"/v1/messages", headers, body)
	if err != nil {
		var statusErr *apiclient.StatusError
		if errors.As(err, &statusErr) {
			if statusErr.StatusCode == http.StatusTooManyRequests {
				return "", fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
			}
			var apiErr errorResponse
			if json.Unmarshal([]byte(statusErr.Body), &apiErr) == nil && apiErr.Error.Message != "" {
				return "", fmt.Errorf("%w: %s: %s", domain.ErrLLMAPIFailure, apiErr.Error.Type, apiErr.Error.Message)
			}
		}
		return "", fmt.Errorf("%w: %v", domain.ErrLLMAPIFailure, err)
	}

	var msg messagesResponse
	if err := json.Unmarshal(resp.Body, &msg); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", domain.ErrLLMAPIFailure, err)
	}
	if len(msg.Content) == 0 || msg.Content[0].Type != "text" {
		return "", fmt.Errorf("%w: response has no text content", domain.ErrLLMAPIFailure)
	}

	log.Printf("[LLM] Completion: %d input tokens, %d output tokens", msg.Usage.InputTokens, msg.Usage.OutputTokens)
	return msg.Content[0].Text, nil
}
