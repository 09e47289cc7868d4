// Package registry resolves configured provider ids to adapters.
package registry

import (
	"fmt"
	"maps"
	"slices"

	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/provider/anthropic"
	"github.com/nadzzz/shadowcast/internal/provider/azure"
	"github.com/nadzzz/shadowcast/internal/provider/gemini"
	"github.com/nadzzz/shadowcast/internal/provider/openai"
	"github.com/nadzzz/shadowcast/internal/provider/piper"
)

// ChatFactory builds a chat adapter for an endpoint.
type ChatFactory func(ep config.EndpointConfig) provider.ChatProvider

// SpeechFactory builds a speech adapter from the full configuration.
type SpeechFactory func(cfg *config.Config) provider.SpeechProvider

var chatFactories = map[string]ChatFactory{
	"openai":    func(ep config.EndpointConfig) provider.ChatProvider { return openai.New(ep) },
	"glm":       func(ep config.EndpointConfig) provider.ChatProvider { return openai.NewGLM(ep) },
	"anthropic": func(ep config.EndpointConfig) provider.ChatProvider { return anthropic.New(ep) },
	"gemini":    func(ep config.EndpointConfig) provider.ChatProvider { return gemini.New(ep) },
}

var speechFactories = map[string]SpeechFactory{
	"openai": func(cfg *config.Config) provider.SpeechProvider { return openai.New(cfg.SpeechEndpoint()) },
	"glm":    func(cfg *config.Config) provider.SpeechProvider { return openai.NewGLM(cfg.SpeechEndpoint()) },
	"azure":  func(cfg *config.Config) provider.SpeechProvider { return azure.New(cfg.SpeechEndpoint()) },
	"gemini": func(cfg *config.Config) provider.SpeechProvider { return gemini.New(cfg.SpeechEndpoint()) },
	"piper":  func(cfg *config.Config) provider.SpeechProvider { return piper.New(cfg.Speech.Piper) },
}

// NewChat returns the chat adapter selected by cfg.Chat.Provider.
func NewChat(cfg *config.Config) (provider.ChatProvider, error) {
	factory, ok := chatFactories[cfg.Chat.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown chat provider %q (supported: %v)", cfg.Chat.Provider, ChatIDs())
	}
	return factory(cfg.Chat.Endpoint()), nil
}

// NewSpeech returns the speech adapter selected by cfg.Speech.Provider.
func NewSpeech(cfg *config.Config) (provider.SpeechProvider, error) {
	factory, ok := speechFactories[cfg.Speech.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown speech provider %q (supported: %v)", cfg.Speech.Provider, SpeechIDs())
	}
	return factory(cfg), nil
}

// ChatIDs lists the registered chat provider ids.
func ChatIDs() []string { return slices.Sorted(maps.Keys(chatFactories)) }

// SpeechIDs lists the registered speech provider ids.
func SpeechIDs() []string { return slices.Sorted(maps.Keys(speechFactories)) }
