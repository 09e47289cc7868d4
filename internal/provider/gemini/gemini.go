// Package gemini implements the chat and speech capabilities using the Gemini
// generateContent API.
//
// Speech is requested with the AUDIO response modality. The API returns
// base64 encoded 16-bit little-endian PCM, which is framed as WAV before it is
// handed upstream. The API has no numeric speed parameter, so the requested
// speed is expressed as a pacing instruction prepended to the text.
package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/provider/sse"
)

const (
	name = "gemini"

	defaultSpeechModel = "gemini-2.5-flash-preview-tts"
	defaultVoice       = "Kore"
	defaultSampleRate  = 24000
)

// Client talks to the Gemini API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates a Gemini client from config.
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

// StreamChat streams a completion from streamGenerateContent.
func (c *Client) StreamChat(ctx context.Context, messages []provider.Message, opts provider.ChatOptions, onChunk provider.ChunkFunc) (string, error) {
	req, err := c.newRequest(ctx, c.modelFor(opts), "streamGenerateContent", url.Values{"alt": {"sse"}}, chatBody(messages, opts))
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

// Complete returns a non-streamed completion from generateContent.
func (c *Client) Complete(ctx context.Context, messages []provider.Message, opts provider.ChatOptions) (string, error) {
	req, err := c.newRequest(ctx, c.modelFor(opts), "generateContent", nil, chatBody(messages, opts))
	if err != nil {
		return "", err
	}
	resp, err := provider.Send(c.client, name, req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var gen generateResponse
	if err := provider.DecodeJSON(ctx, name, resp.Body, &gen); err != nil {
		return "", err
	}
	text := gen.text()
	if text == "" {
		return "", &provider.ProviderError{Provider: name, Reason: "invalid response: no text"}
	}
	return text, nil
}

// Synthesize renders text to a WAV clip.
func (c *Client) Synthesize(ctx context.Context, text string, opts provider.SpeechOptions) (*audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	model := opts.Model
	if model == "" {
		model = defaultSpeechModel
	}
	voice := opts.Voice
	if voice == "" {
		voice = defaultVoice
	}

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: pacingPrefix(opts.Speed) + text}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: &speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: voice}},
			},
		},
	}
	req, err := c.newRequest(ctx, model, "generateContent", nil, body)
	if err != nil {
		return nil, err
	}
	resp, err := provider.Send(c.client, name, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var gen generateResponse
	if err := provider.DecodeJSON(ctx, name, resp.Body, &gen); err != nil {
		return nil, err
	}
	inline := gen.inlineAudio()
	if inline == nil || inline.Data == "" {
		return nil, &provider.ProviderError{Provider: name, Reason: "no audio data"}
	}
	pcm, err := base64.StdEncoding.DecodeString(inline.Data)
	if err != nil {
		return nil, &provider.ParseError{Provider: name, Err: fmt.Errorf("decoding audio: %w", err)}
	}

	rate := sampleRate(inline.MimeType)
	slog.Debug("speech synthesized", "provider", name, "voice", voice, "pcm_bytes", len(pcm), "rate", rate)
	return audio.WAVClip(pcm, rate, 1, 2), nil
}

func (c *Client) modelFor(opts provider.ChatOptions) string {
	if opts.Model != "" {
		return opts.Model
	}
	return c.model
}

func (c *Client) newRequest(ctx context.Context, model, method string, query url.Values, body any) (*http.Request, error) {
	u := fmt.Sprintf("%s/v1beta/models/%s:%s", c.baseURL, url.PathEscape(model), method)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := provider.NewRequest(ctx, u, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	return req, nil
}

func chatBody(messages []provider.Message, opts provider.ChatOptions) generateRequest {
	system, rest := provider.SplitSystem(messages)
	body := generateRequest{
		GenerationConfig: generationConfig{
			Temperature:     &opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}
	for _, m := range rest {
		role := "user"
		if m.Role == provider.RoleAssistant {
			role = "model"
		}
		body.Contents = append(body.Contents, content{Role: role, Parts: []part{{Text: m.Content}}})
	}
	if system != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	return body
}

func extractDelta(evt sse.Event) (string, error) {
	var gen generateResponse
	if err := json.Unmarshal([]byte(evt.Data), &gen); err != nil {
		return "", &provider.ParseError{Provider: name, Err: err}
	}
	if gen.Error != nil {
		return "", &provider.ProviderError{Provider: name, Status: gen.Error.Code, Reason: gen.Error.Message}
	}
	return gen.text(), nil
}

// pacingPrefix turns a speed multiplier into a spoken-style instruction.
func pacingPrefix(speed float64) string {
	switch {
	case speed <= 0:
		return ""
	case speed < 0.75:
		return "Say very slowly and clearly: "
	case speed < 0.95:
		return "Say slowly and clearly: "
	case speed > 1.1:
		return "Say quickly: "
	default:
		return ""
	}
}

// sampleRate reads the rate parameter of an "audio/L16;codec=pcm;rate=24000" mime type.
func sampleRate(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return defaultSampleRate
	}
	if rate, err := strconv.Atoi(params["rate"]); err == nil && rate > 0 {
		return rate
	}
	return defaultSampleRate
}

// --- Wire types ---

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature        *float64      `json:"temperature,omitempty"`
	MaxOutputTokens    int           `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type generateRequest struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (g *generateResponse) text() string {
	if len(g.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range g.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (g *generateResponse) inlineAudio() *inlineData {
	for _, cand := range g.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil {
				return p.InlineData
			}
		}
	}
	return nil
}
