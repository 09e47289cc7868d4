package cache

import (
	"context"
	"strconv"
	"strings"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/provider"
)

// Speech is a SpeechProvider that memoizes clips of an underlying provider.
type Speech struct {
	next  provider.SpeechProvider
	clips *Cache[*audio.Clip]
}

// NewSpeech wraps next with clips. The cache may be shared between wrappers;
// keys include the provider name.
func NewSpeech(next provider.SpeechProvider, clips *Cache[*audio.Clip]) *Speech {
	return &Speech{next: next, clips: clips}
}

// Name returns the wrapped provider's id.
func (s *Speech) Name() string { return s.next.Name() }

// Synthesize returns a cached clip or synthesizes it once for all concurrent
// callers asking for the same rendering. Providers that ignore speed share
// one entry across speeds.
func (s *Speech) Synthesize(ctx context.Context, text string, opts provider.SpeechOptions) (*audio.Clip, error) {
	keyOpts := opts
	if si, ok := s.next.(provider.SpeedInvariant); ok && si.IgnoresSpeed() {
		keyOpts.Speed = 0
	}
	key := SpeechKey(s.next.Name(), text, keyOpts)
	return s.clips.GetOrCompute(ctx, key, func(ctx context.Context) (*audio.Clip, error) {
		return s.next.Synthesize(ctx, text, opts)
	})
}

// SpeechKey identifies a rendering: every field that changes the audio bytes
// is part of it. Text is whitespace-normalized.
func SpeechKey(providerName, text string, opts provider.SpeechOptions) string {
	speed := opts.Speed
	if speed == 0 {
		speed = 1
	}
	return strings.Join([]string{
		providerName,
		opts.Model,
		opts.Voice,
		opts.Language,
		strconv.FormatFloat(speed, 'f', -1, 64),
		strings.Join(strings.Fields(text), " "),
	}, "\x00")
}
