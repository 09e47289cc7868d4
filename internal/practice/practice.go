// Package practice is the orchestration core exposed to the transports.
//
// A Service owns one session controller per kind of streamed text (content,
// translation, explanation) so that a failure in one never disturbs another,
// a narrator for ordered playback, and the shared audio cache in front of the
// speech provider.
package practice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/cache"
	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/generation"
	"github.com/nadzzz/shadowcast/internal/lesson"
	"github.com/nadzzz/shadowcast/internal/metrics"
	"github.com/nadzzz/shadowcast/internal/narration"
	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/typewriter"
)

// Session kinds, one controller each.
const (
	KindGeneration  = "generation"
	KindTranslation = "translation"
	KindExplanation = "explanation"
)

// Kinds lists every session kind.
var Kinds = []string{KindGeneration, KindTranslation, KindExplanation}

// ErrValidation marks a request rejected before reaching a provider.
var ErrValidation = errors.New("invalid request")

// TranslateRequest asks for a streamed translation.
type TranslateRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

// ExplainRequest asks for a streamed explanation of a word or phrase.
type ExplainRequest struct {
	Word    string `json:"word"`
	Target  string `json:"target_language"`
	Native  string `json:"native_language"`
	Context string `json:"context,omitempty"`
}

// NarrateRequest asks for text to be spoken. Zero fields fall back to the
// configured defaults; a zero Speed with a Difficulty uses the difficulty's
// speech rate.
type NarrateRequest struct {
	Text       string  `json:"text"`
	Voice      string  `json:"voice,omitempty"`
	Language   string  `json:"language,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
	Difficulty int     `json:"difficulty,omitempty"`
}

// PhoneticsRequest asks for an IPA transcription.
type PhoneticsRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// ChatRequest asks a follow-up question about selected text.
type ChatRequest struct {
	SelectedText string             `json:"selected_text"`
	Question     string             `json:"question"`
	Target       string             `json:"target_language"`
	Native       string             `json:"native_language"`
	History      []provider.Message `json:"history,omitempty"`
}

// Service wires the chat and speech providers to sessions and narration.
type Service struct {
	chat        provider.ChatProvider
	speech      provider.SpeechProvider
	clips       *cache.Cache[*audio.Clip]
	narrator    *narration.Narrator
	controllers map[string]*generation.Controller
	defaults    config.SpeechConfig
	chatOpts    provider.ChatOptions
}

// New creates a Service. Sessions and runs are cancelled when ctx is done.
func New(ctx context.Context, cfg *config.Config, chat provider.ChatProvider, speech provider.SpeechProvider, player *audio.Player) *Service {
	clips := cache.New[*audio.Clip]()
	if err := metrics.RegisterCache("audio", func() metrics.CacheStats {
		st := clips.Stats()
		return metrics.CacheStats{Hits: st.Hits, Misses: st.Misses, Entries: st.Entries}
	}); err != nil {
		slog.Warn("audio cache metrics not registered", "error", err)
	}

	cached := cache.NewSpeech(speech, clips)
	sched := narration.NewScheduler(cached, player, narration.Options{
		PrefetchWindow: cfg.Narration.PrefetchWindow,
		MaxConcurrency: cfg.Narration.MaxConcurrency,
	})

	tw := typewriter.Options{Interval: cfg.Typewriter.Interval, ChunkSize: cfg.Typewriter.ChunkSize}
	controllers := make(map[string]*generation.Controller, len(Kinds))
	for _, kind := range Kinds {
		controllers[kind] = generation.NewController(ctx, chat, generation.Config{Kind: kind, Typewriter: tw})
	}

	return &Service{
		chat:        chat,
		speech:      cached,
		clips:       clips,
		narrator:    narration.NewNarrator(ctx, sched, player, cfg.Narration.MaxSegmentChars),
		controllers: controllers,
		defaults:    cfg.Speech,
		chatOpts:    provider.ChatOptions{Temperature: cfg.Chat.Temperature, MaxTokens: cfg.Chat.MaxTokens},
	}
}

// Controller returns the controller for kind.
func (s *Service) Controller(kind string) (*generation.Controller, bool) {
	c, ok := s.controllers[kind]
	return c, ok
}

// Narrator returns the narration controller.
func (s *Service) Narrator() *narration.Narrator { return s.narrator }

// StartGeneration starts streaming practice content for req.
func (s *Service) StartGeneration(req lesson.Request) (*generation.Session, error) {
	job, err := lesson.Content(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	slog.Info("generation requested", "target", req.TargetLanguage, "difficulty", req.Difficulty, "scene", req.Scene, "length", req.Length)
	return s.controllers[KindGeneration].Start(s.withDefaults(job)), nil
}

// StartTranslation starts a streamed translation.
func (s *Service) StartTranslation(req TranslateRequest) (*generation.Session, error) {
	if strings.TrimSpace(req.Text) == "" || req.From == "" || req.To == "" {
		return nil, fmt.Errorf("%w: text, from and to are required", ErrValidation)
	}
	return s.controllers[KindTranslation].Start(s.withDefaults(lesson.Translation(req.Text, req.From, req.To))), nil
}

// StartExplanation starts a streamed word explanation.
func (s *Service) StartExplanation(req ExplainRequest) (*generation.Session, error) {
	if strings.TrimSpace(req.Word) == "" || req.Target == "" || req.Native == "" {
		return nil, fmt.Errorf("%w: word, target_language and native_language are required", ErrValidation)
	}
	return s.controllers[KindExplanation].Start(s.withDefaults(lesson.Explanation(req.Word, req.Target, req.Native, req.Context))), nil
}

// withDefaults fills options the prompt builders leave unset.
func (s *Service) withDefaults(job generation.Job) generation.Job {
	job.Options = s.mergeOptions(job.Options)
	return job
}

func (s *Service) mergeOptions(opts provider.ChatOptions) provider.ChatOptions {
	if opts.Temperature == 0 {
		opts.Temperature = s.chatOpts.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = s.chatOpts.MaxTokens
	}
	return opts
}

// SpeechOptions resolves a narration request against the configured defaults.
func (s *Service) SpeechOptions(req NarrateRequest) provider.SpeechOptions {
	opts := provider.SpeechOptions{
		Voice:    req.Voice,
		Language: lesson.LanguageCode(req.Language),
		Speed:    req.Speed,
		Model:    s.defaults.Model,
	}
	if opts.Voice == "" {
		opts.Voice = s.defaults.Voice
	}
	if opts.Speed == 0 {
		if req.Difficulty > 0 {
			opts.Speed = lesson.SpeechRate(req.Difficulty)
		} else {
			opts.Speed = s.defaults.Speed
		}
	}
	return opts
}

// Narrate speaks req.Text, stopping any narration in progress.
func (s *Service) Narrate(req NarrateRequest) (*narration.Run, error) {
	if req.Speed < 0 {
		return nil, fmt.Errorf("%w: speed must not be negative", ErrValidation)
	}
	run, err := s.narrator.Narrate(req.Text, s.SpeechOptions(req))
	if errors.Is(err, narration.ErrNothingToSay) {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return run, err
}

// Prefetch warms the audio cache for req.Text. It returns the number of
// segments scheduled.
func (s *Service) Prefetch(req NarrateRequest) int {
	return s.narrator.Prefetch(req.Text, s.SpeechOptions(req))
}

// Synthesize returns the (cached) audio of a single short text, such as a
// word picked out of a sentence.
func (s *Service) Synthesize(ctx context.Context, req NarrateRequest) (*audio.Clip, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	return s.speech.Synthesize(ctx, req.Text, s.SpeechOptions(req))
}

// Phonetics returns the IPA transcription of req.Text.
func (s *Service) Phonetics(ctx context.Context, req PhoneticsRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" || req.Language == "" {
		return "", fmt.Errorf("%w: text and language are required", ErrValidation)
	}
	msgs, opts := lesson.Phonetics(req.Text, req.Language)
	return s.complete(ctx, "phonetics", msgs, opts)
}

// Chat answers a question about selected text.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Question) == "" || req.SelectedText == "" {
		return "", fmt.Errorf("%w: selected_text and question are required", ErrValidation)
	}
	msgs, opts := lesson.ChatAbout(req.SelectedText, req.Question, req.Target, req.Native, req.History)
	return s.complete(ctx, "chat", msgs, opts)
}

func (s *Service) complete(ctx context.Context, task string, msgs []provider.Message, opts provider.ChatOptions) (string, error) {
	start := time.Now()
	text, err := s.chat.Complete(ctx, msgs, s.mergeOptions(opts))
	if err != nil {
		if !provider.IsAborted(err) {
			slog.Error("completion failed", "task", task, "provider", s.chat.Name(), "error", err)
		}
		return "", fmt.Errorf("%s: %w", task, err)
	}
	slog.Info("completion finished", "task", task, "provider", s.chat.Name(), "elapsed", time.Since(start))
	return strings.TrimSpace(text), nil
}

// ClearAudioCache drops every cached clip and returns how many were stored.
func (s *Service) ClearAudioCache() int {
	n := s.clips.Clear()
	slog.Info("audio cache cleared", "entries", n)
	return n
}

// CacheStats reports audio cache usage.
func (s *Service) CacheStats() cache.Stats { return s.clips.Stats() }
