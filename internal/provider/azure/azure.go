// Package azure implements the speech capability using the Azure Cognitive
// Services text-to-speech REST API.
package azure

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/provider"
)

const (
	name         = "azure"
	synthPath    = "/cognitiveservices/v1"
	outputFormat = "audio-16khz-128kbitrate-mono-mp3"
	defaultVoice = "en-US-JennyNeural"
)

// Synthesizer renders speech through Azure TTS.
type Synthesizer struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New creates an Azure synthesizer from config.
func New(cfg config.EndpointConfig) *Synthesizer {
	return &Synthesizer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{},
	}
}

// Name returns the provider id.
func (s *Synthesizer) Name() string { return name }

// Synthesize posts an SSML document and returns the mp3 body.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts provider.SpeechOptions) (*audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}
	voice := opts.Voice
	if voice == "" {
		voice = defaultVoice
	}

	ssml, err := buildSSML(text, voice, opts.Speed)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+synthPath, bytes.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("Ocp-Apim-Subscription-Key", s.apiKey)
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)

	resp, err := provider.Send(s.client, name, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, provider.Aborted(cerr)
		}
		return nil, fmt.Errorf("reading azure audio: %w", err)
	}
	if len(data) == 0 {
		return nil, &provider.ProviderError{Provider: name, Reason: "no audio data"}
	}
	slog.Debug("speech synthesized", "provider", name, "voice", voice, "bytes", len(data))
	return &audio.Clip{Data: data, ContentType: "audio/mpeg"}, nil
}

// buildSSML wraps text in a speak/voice/prosody document. The xml:lang is taken
// from the voice locale prefix (e.g. "ja-JP" of "ja-JP-NanamiNeural").
func buildSSML(text, voice string, speed float64) ([]byte, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(text)); err != nil {
		return nil, fmt.Errorf("escaping ssml text: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'>", voiceLocale(voice))
	fmt.Fprintf(&buf, "<voice name='%s'>", voice)
	if rate := prosodyRate(speed); rate != "" {
		fmt.Fprintf(&buf, "<prosody rate='%s'>%s</prosody>", rate, escaped.String())
	} else {
		buf.Write(escaped.Bytes())
	}
	buf.WriteString("</voice></speak>")
	return buf.Bytes(), nil
}

// prosodyRate maps a speed multiplier to a relative SSML rate ("-20%").
func prosodyRate(speed float64) string {
	if speed <= 0 {
		return ""
	}
	pct := int(math.Round((speed - 1) * 100))
	if pct == 0 {
		return ""
	}
	return fmt.Sprintf("%+d%%", pct)
}

func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 3 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}
