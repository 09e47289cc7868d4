// Package provider defines the chat and speech capabilities that every vendor
// adapter implements.
//
// The orchestration core only depends on ChatProvider and SpeechProvider.
// Vendor wire formats live in the sub-packages (openai, anthropic, gemini,
// azure, piper) and are selected by id through the registry package.
package provider

import (
	"context"

	"github.com/nadzzz/shadowcast/internal/audio"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatOptions controls a single chat call.
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
	// Model overrides the adapter's configured model.
	Model string
}

// ChunkFunc receives each text delta together with the full text so far.
// Calls happen in arrival order and full only ever grows.
type ChunkFunc func(delta, full string)

// ChatProvider is a text-generation backend.
type ChatProvider interface {
	// Name returns the provider id (e.g., "openai", "gemini").
	Name() string

	// StreamChat streams a completion, calling onChunk per non-empty delta, and
	// returns the full text once the vendor signals the end of the stream.
	// Cancelling ctx makes it return an error matching ErrAborted.
	StreamChat(ctx context.Context, messages []Message, opts ChatOptions, onChunk ChunkFunc) (string, error)

	// Complete returns a non-streamed completion.
	Complete(ctx context.Context, messages []Message, opts ChatOptions) (string, error)
}

// SpeechOptions controls a single synthesis call.
type SpeechOptions struct {
	Voice string
	// Language is the ISO-639-1 code of the text. Adapters that pick voices by
	// language use it when Voice is empty.
	Language string
	// Speed is a playback rate multiplier, 1.0 being the vendor's normal pace.
	// Zero means normal pace.
	Speed float64
	Model string
}

// SpeechProvider is a text-to-speech backend.
type SpeechProvider interface {
	// Name returns the provider id (e.g., "openai", "azure").
	Name() string

	// Synthesize renders text to a playable clip.
	Synthesize(ctx context.Context, text string, opts SpeechOptions) (*audio.Clip, error)
}

// SpeedInvariant is implemented by speech providers whose output does not
// depend on SpeechOptions.Speed.
type SpeedInvariant interface {
	IgnoresSpeed() bool
}

// SplitSystem separates system messages from the conversation, joining their
// contents with blank lines. Used by vendors that take the system prompt as a
// dedicated field.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
