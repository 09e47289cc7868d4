// Package openai implements the chat and speech capabilities for OpenAI and
// OpenAI-compatible vendors.
//
// Chat uses the Chat Completions API, streamed as server-sent events that end
// with a "[DONE]" sentinel. Speech uses the audio/speech endpoint, which
// returns the encoded audio as the response body. GLM (Zhipu) speaks the same
// wire format under the /api/paas/v4 prefix.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/provider/sse"
)

// flavor captures the differences between OpenAI-compatible vendors.
type flavor struct {
	name           string
	chatPath       string
	speechPath     string
	defaultVoice   string
	speechModel    string
	responseFormat string // sent to the speech endpoint when non-empty
}

var (
	openAIFlavor = flavor{
		name:           "openai",
		chatPath:       "/v1/chat/completions",
		speechPath:     "/v1/audio/speech",
		defaultVoice:   "alloy",
		speechModel:    "tts-1",
		responseFormat: "mp3",
	}
	glmFlavor = flavor{
		name:         "glm",
		chatPath:     "/api/paas/v4/chat/completions",
		speechPath:   "/api/paas/v4/audio/speech",
		defaultVoice: "female-1",
		speechModel:  "tts-1",
	}
)

// Client talks to an OpenAI-compatible API.
type Client struct {
	flavor  flavor
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates an OpenAI client from config.
func New(cfg config.EndpointConfig) *Client {
	return newClient(openAIFlavor, cfg)
}

// NewGLM creates a GLM (Zhipu) client from config.
func NewGLM(cfg config.EndpointConfig) *Client {
	return newClient(glmFlavor, cfg)
}

func newClient(f flavor, cfg config.EndpointConfig) *Client {
	return &Client{
		flavor:  f,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{},
	}
}

// Name returns the provider id.
func (c *Client) Name() string { return c.flavor.name }

// StreamChat streams a chat completion.
func (c *Client) StreamChat(ctx context.Context, messages []provider.Message, opts provider.ChatOptions, onChunk provider.ChunkFunc) (string, error) {
	req, err := c.chatRequest(ctx, messages, opts, true)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := provider.Send(c.client, c.flavor.name, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	text, err := provider.ReadStream(ctx, c.flavor.name, resp.Body, c.extractDelta, onChunk)
	if err != nil {
		return text, err
	}
	slog.Debug("chat stream complete", "provider", c.flavor.name, "text_length", len(text))
	return text, nil
}

// Complete returns a non-streamed chat completion.
func (c *Client) Complete(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (string, error) {
	req, err := c.chatRequest(ctx, messages, opts, false)
	if err != nil {
		return "", err
	}
	resp, err := provider.Send(c.client, c.flavor.name, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := provider.DecodeJSON(ctx, c.flavor.name, resp.Body, &chatResp); err != nil {
		return "", err
	}
	if len(chatResp.Choices) == 0 {
		return "", &provider.ProviderError{Provider: c.flavor.name, Reason: "no choices returned"}
	}
	return chatResp.Choices[0].Message.Content, nil
}

func (c *Client) chatRequest(ctx context.Context, messages []provider.Message, opts provider.ChatOptions, stream bool) (*http.Request, error) {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
	}
	req, err := provider.NewRequest(ctx, c.baseURL+c.flavor.chatPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, nil
}

func (c *Client) extractDelta(evt sse.Event) (string, error) {
	data := strings.TrimSpace(evt.Data)
	if data == "[DONE]" {
		return "", provider.ErrStreamEnd
	}
	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", &provider.ParseError{Provider: c.flavor.name, Err: err}
	}
	if chunk.Error != nil {
		return "", &provider.ProviderError{Provider: c.flavor.name, Reason: chunk.Error.Message}
	}
	if len(chunk.Choices) == 0 {
		return "", nil
	}
	return chunk.Choices[0].Delta.Content, nil
}

// Synthesize renders text with the audio/speech endpoint.
func (c *Client) Synthesize(ctx context.Context, text string, opts provider.SpeechOptions) (*audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := opts.Voice
	if voice == "" {
		voice = c.flavor.defaultVoice
	}
	model := opts.Model
	if model == "" {
		model = c.flavor.speechModel
	}
	speed := opts.Speed
	if speed == 0 {
		speed = 1.0
	}

	body := speechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		Speed:          speed,
		ResponseFormat: c.flavor.responseFormat,
	}
	req, err := provider.NewRequest(ctx, c.baseURL+c.flavor.speechPath, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := provider.Send(c.client, c.flavor.name, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, provider.Aborted(cerr)
		}
		return nil, fmt.Errorf("reading %s audio: %w", c.flavor.name, err)
	}
	if len(data) == 0 {
		return nil, &provider.ProviderError{Provider: c.flavor.name, Reason: "no audio data"}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = "audio/mpeg"
	}
	slog.Debug("speech synthesized", "provider", c.flavor.name, "voice", voice, "bytes", len(data))
	return &audio.Clip{Data: data, ContentType: contentType}, nil
}

// --- Wire types ---

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []provider.Message `json:"messages"`
	Temperature float64            `json:"temperature"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format,omitempty"`
}
