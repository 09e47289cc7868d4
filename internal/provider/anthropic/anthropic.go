// Package anthropic implements the chat capability using the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/provider/sse"
)

const (
	name             = "anthropic"
	messagesPath     = "/v1/messages"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 2048
)

// Client talks to the Anthropic Messages API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates an Anthropic client from config.
func New(cfg config.EndpointConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{},
	}
}

// Name returns the provider id.
func (c *Client) Name() string { return name }

// StreamChat streams a message, reading content_block_delta events until
// message_stop.
func (c *Client) StreamChat(ctx context.Context, messages []provider.Message, opts provider.ChatOptions, onChunk provider.ChunkFunc) (string, error) {
	req, err := c.newRequest(ctx, messages, opts, true)
	if err != nil {
		return "", err
	}
	resp, err := provider.Send(c.client, name, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	return provider.ReadStream(ctx, name, resp.Body, extractDelta, onChunk)
}

// Complete returns a non-streamed message.
func (c *Client) Complete(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (string, error) {
	req, err := c.newRequest(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}
	resp, err := provider.Send(c.client, name, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var msg messageResponse
	if err := provider.DecodeJSON(ctx, name, resp.Body, &msg); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", &provider.ProviderError{Provider: name, Reason: "no text content returned"}
	}
	return sb.String(), nil
}

func (c *Client) newRequest(ctx context.Context, messages []provider.Message, opts provider.ChatOptions, stream bool) (*http.Request, error) {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	temperature := opts.Temperature
	system, rest := provider.SplitSystem(messages)

	body := messageRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      system,
		Messages:    rest,
		Temperature: &temperature,
		Stream:      stream,
	}
	req, err := provider.NewRequest(ctx, c.baseURL+messagesPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	return req, nil
}

func extractDelta(evt sse.Event) (string, error) {
	var frame streamEvent
	if err := json.Unmarshal([]byte(evt.Data), &frame); err != nil {
		return "", &provider.ParseError{Provider: name, Err: err}
	}
	switch frame.Type {
	case "content_block_delta":
		if frame.Delta.Type == "" || frame.Delta.Type == "text_delta" {
			return frame.Delta.Text, nil
		}
	case "message_stop":
		return "", provider.ErrStreamEnd
	case "error":
		reason := "stream error"
		if frame.Error != nil && frame.Error.Message != "" {
			reason = frame.Error.Message
		}
		return "", &provider.ProviderError{Provider: name, Reason: reason}
	}
	return "", nil
}

// --- Wire types ---

type messageRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []provider.Message `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
