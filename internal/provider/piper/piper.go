// Package piper implements the speech capability using a Piper Wyoming
// protocol server.
//
// Piper is a fast, local neural text-to-speech system. The linuxserver/piper
// container exposes the Wyoming protocol on TCP port 10200. Audio comes back as
// raw PCM chunks, which are framed as WAV once audio-stop arrives.
//
// Wyoming has no rate control, so SpeechOptions.Speed is not applied.
package piper

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/provider"
)

const name = "piper"

// defaultVoices maps ISO-639-1 language codes to Piper voice model names.
var defaultVoices = map[string]string{
	"en": "en_US-lessac-medium",
	"zh": "zh_CN-huayan-medium",
	"es": "es_ES-mls_10246-low",
	"hi": "hi_IN-pratham-medium",
	"ar": "ar_JO-kareem-medium",
	"pt": "pt_BR-faber-medium",
	"ru": "ru_RU-ruslan-medium",
	"ja": "ja_JP-amitaro-medium",
	"fr": "fr_FR-siwis-medium",
}

// Synthesizer implements provider.SpeechProvider over Wyoming.
type Synthesizer struct {
	endpoint  string            // default host:port of the Piper Wyoming server
	endpoints map[string]string // language -> host:port for per-language Piper instances
	voices    map[string]string // language -> voice name
	timeout   time.Duration     // connection deadline when ctx has none
}

// New creates a Piper synthesizer from config.
func New(cfg config.PiperConfig) *Synthesizer {
	voices := make(map[string]string, len(defaultVoices)+len(cfg.Voices))
	for k, v := range defaultVoices {
		voices[k] = v
	}
	for k, v := range cfg.Voices {
		voices[k] = v
	}

	endpoints := make(map[string]string, len(cfg.Endpoints))
	for lang, ep := range cfg.Endpoints {
		endpoints[lang] = cleanEndpoint(ep)
	}

	return &Synthesizer{
		endpoint:  cleanEndpoint(cfg.Endpoint),
		endpoints: endpoints,
		voices:    voices,
		timeout:   30 * time.Second,
	}
}

func cleanEndpoint(ep string) string {
	ep = strings.TrimPrefix(ep, "tcp://")
	return strings.TrimPrefix(ep, "http://")
}

// Name returns the provider id.
func (s *Synthesizer) Name() string { return name }

// IgnoresSpeed reports that Wyoming output does not vary with speed.
func (s *Synthesizer) IgnoresSpeed() bool { return true }

// Synthesize sends text to the Piper server and returns a WAV clip.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts provider.SpeechOptions) (*audio.Clip, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	voice := opts.Voice
	if voice == "" {
		voice = s.voices[opts.Language]
	}
	if voice == "" {
		voice = s.voices["en"]
	}

	endpoint := s.endpoints[opts.Language]
	if endpoint == "" {
		endpoint = s.endpoint
	}
	if endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint configured for language %q", opts.Language)
	}

	slog.Debug("piper synthesize", "text_length", len(text), "voice", voice, "language", opts.Language, "endpoint", endpoint)

	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, provider.Aborted(cerr)
		}
		return nil, fmt.Errorf("connecting to piper: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.timeout))
	}

	// Unblock reads when the caller cancels.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Unix(1, 0)) })
	defer stop()

	clip, err := s.exchange(conn, text, voice)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return nil, provider.Aborted(cerr)
		}
		return nil, err
	}
	return clip, nil
}

// exchange runs one synthesize request: audio-start, audio-chunk*, audio-stop.
func (s *Synthesizer) exchange(conn net.Conn, text, voice string) (*audio.Clip, error) {
	req := event{
		Type: "synthesize",
		Data: map[string]any{
			"text":  text,
			"voice": map[string]any{"name": voice},
		},
	}
	if err := writeEvent(conn, req, nil); err != nil {
		return nil, fmt.Errorf("sending synthesize event: %w", err)
	}

	reader := bufio.NewReader(conn)
	var (
		pcm        bytes.Buffer
		sampleRate = 22050
		channels   = 1
		width      = 2
	)
	for {
		evt, payload, err := readEvent(reader)
		if err != nil {
			return nil, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case "audio-start":
			sampleRate = intField(evt.Data, "rate", sampleRate)
			channels = intField(evt.Data, "channels", channels)
			width = intField(evt.Data, "width", width)

		case "audio-chunk":
			pcm.Write(payload)

		case "audio-stop":
			if pcm.Len() == 0 {
				return nil, &provider.ProviderError{Provider: name, Reason: "no audio data"}
			}
			slog.Debug("piper audio-stop", "pcm_bytes", pcm.Len(), "rate", sampleRate)
			return audio.WAVClip(pcm.Bytes(), sampleRate, channels, width), nil

		case "error":
			msg := "unknown error"
			if t, ok := evt.Data["text"].(string); ok {
				msg = t
			}
			return nil, &provider.ProviderError{Provider: name, Reason: msg}

		default:
			slog.Debug("piper unknown event", "type", evt.Type)
		}
	}
}

func intField(data map[string]any, key string, fallback int) int {
	if v, ok := data[key].(float64); ok && v > 0 {
		return int(v)
	}
	return fallback
}
