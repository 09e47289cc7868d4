package practice

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/config"
	"github.com/nadzzz/shadowcast/internal/lesson"
	"github.com/nadzzz/shadowcast/internal/narration"
	"github.com/nadzzz/shadowcast/internal/provider"
)

type stubChat struct {
	mu       sync.Mutex
	reply    string
	err      error
	lastOpts provider.ChatOptions
	lastMsgs []provider.Message
}

func (c *stubChat) Name() string { return "stub" }

func (c *stubChat) StreamChat(ctx context.Context, msgs []provider.Message, opts provider.ChatOptions, onChunk provider.ChunkFunc) (string, error) {
	c.record(msgs, opts)
	if c.err != nil {
		return "", c.err
	}
	var full string
	for _, r := range c.reply {
		if err := ctx.Err(); err != nil {
			return full, provider.Aborted(err)
		}
		full += string(r)
		onChunk(string(r), full)
	}
	return full, nil
}

func (c *stubChat) Complete(_ context.Context, msgs []provider.Message, opts provider.ChatOptions) (string, error) {
	c.record(msgs, opts)
	return c.reply, c.err
}

func (c *stubChat) record(msgs []provider.Message, opts provider.ChatOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastMsgs, c.lastOpts = msgs, opts
}

type countingSpeech struct {
	calls atomic.Int32
	last  atomic.Value
}

func (s *countingSpeech) Name() string { return "counting" }

func (s *countingSpeech) Synthesize(_ context.Context, text string, opts provider.SpeechOptions) (*audio.Clip, error) {
	s.calls.Add(1)
	s.last.Store(opts)
	return &audio.Clip{Data: []byte(text), ContentType: "audio/mpeg"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Chat:       config.ChatConfig{Temperature: 0.5, MaxTokens: 1000},
		Speech:     config.SpeechConfig{Voice: "alloy", Model: "tts-1", Speed: 0.9},
		Narration:  config.NarrationConfig{PrefetchWindow: 2, MaxConcurrency: 2, MaxSegmentChars: 20},
		Typewriter: config.TypewriterConfig{Interval: time.Millisecond, ChunkSize: 4},
	}
}

func newService(chat provider.ChatProvider, speech provider.SpeechProvider) *Service {
	return New(context.Background(), testConfig(), chat, speech, audio.NewPlayer(audio.DiscardDevice{}))
}

func wait(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStartGeneration(t *testing.T) {
	chat := &stubChat{reply: "  A: Bonjour!\nB: Salut!  "}
	svc := newService(chat, &countingSpeech{})

	_, err := svc.StartGeneration(lesson.Request{TargetLanguage: "fr"})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	s, err := svc.StartGeneration(lesson.Request{
		TargetLanguage: "fr", NativeLanguage: "en", Difficulty: 1, Scene: lesson.SceneDaily, Length: lesson.LengthShort,
	})
	if err != nil {
		t.Fatalf("StartGeneration: %v", err)
	}
	final, err := s.Wait(wait(t))
	if err != nil || final != "A: Bonjour!\nB: Salut!" {
		t.Fatalf("unexpected final %q %v", final, err)
	}

	chat.mu.Lock()
	defer chat.mu.Unlock()
	if chat.lastOpts.Temperature != 0.8 || chat.lastOpts.MaxTokens != 1000 {
		t.Fatalf("expected content temperature and configured max tokens, got %+v", chat.lastOpts)
	}
}

func TestSessionKindsAreSeparate(t *testing.T) {
	svc := newService(&stubChat{reply: "ok"}, &countingSpeech{})
	tr, err := svc.StartTranslation(TranslateRequest{Text: "hola", From: "es", To: "en"})
	if err != nil {
		t.Fatalf("StartTranslation: %v", err)
	}
	ex, err := svc.StartExplanation(ExplainRequest{Word: "hola", Target: "es", Native: "en"})
	if err != nil {
		t.Fatalf("StartExplanation: %v", err)
	}
	for _, s := range []interface{ Wait(context.Context) (string, error) }{tr, ex} {
		if _, err := s.Wait(wait(t)); err != nil {
			t.Fatalf("session failed: %v", err)
		}
	}
	trc, _ := svc.Controller(KindTranslation)
	exc, _ := svc.Controller(KindExplanation)
	if trc.Current() != tr || exc.Current() != ex {
		t.Fatal("each kind must keep its own current session")
	}
	if _, ok := svc.Controller("poetry"); ok {
		t.Fatal("unknown kind must not resolve")
	}

	if _, err := svc.StartTranslation(TranslateRequest{Text: " "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.StartExplanation(ExplainRequest{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSpeechOptions(t *testing.T) {
	svc := newService(&stubChat{}, &countingSpeech{})
	tests := []struct {
		name string
		req  NarrateRequest
		want provider.SpeechOptions
	}{
		{"defaults", NarrateRequest{}, provider.SpeechOptions{Voice: "alloy", Speed: 0.9, Model: "tts-1"}},
		{"difficulty", NarrateRequest{Difficulty: 1}, provider.SpeechOptions{Voice: "alloy", Speed: 0.6, Model: "tts-1"}},
		{"explicit", NarrateRequest{Voice: "nova", Speed: 1.2, Difficulty: 1, Language: "Japanese"},
			provider.SpeechOptions{Voice: "nova", Speed: 1.2, Language: "ja", Model: "tts-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.SpeechOptions(tt.req); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNarrateUsesCache(t *testing.T) {
	speech := &countingSpeech{}
	svc := newService(&stubChat{}, speech)
	text := "Hello there. How are you today? I am fine."

	for range 2 {
		run, err := svc.Narrate(NarrateRequest{Text: text, Difficulty: 3})
		if err != nil {
			t.Fatalf("Narrate: %v", err)
		}
		if err := run.Wait(wait(t)); err != nil {
			t.Fatalf("run failed: %v", err)
		}
		if st := run.Status(); st.State != narration.RunCompleted || st.Total != 3 {
			t.Fatalf("unexpected status %+v", st)
		}
	}
	if n := speech.calls.Load(); n != 3 {
		t.Fatalf("expected 3 synthesis calls across both runs, got %d", n)
	}
	if opts := speech.last.Load().(provider.SpeechOptions); opts.Speed != 0.8 {
		t.Fatalf("expected difficulty speech rate, got %+v", opts)
	}

	if _, err := svc.Synthesize(context.Background(), NarrateRequest{Text: "I am fine.", Difficulty: 3}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if n := speech.calls.Load(); n != 3 {
		t.Fatalf("single segment replay should hit the cache, got %d calls", n)
	}
	if st := svc.CacheStats(); st.Entries != 3 || st.Hits == 0 {
		t.Fatalf("unexpected cache stats %+v", st)
	}
	if n := svc.ClearAudioCache(); n != 3 {
		t.Fatalf("expected 3 cleared entries, got %d", n)
	}

	if _, err := svc.Narrate(NarrateRequest{Text: "   "}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.Narrate(NarrateRequest{Text: "x", Speed: -1}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPhoneticsAndChat(t *testing.T) {
	chat := &stubChat{reply: " [bɔ̃ʒuʁ] \n"}
	svc := newService(chat, &countingSpeech{})

	ipa, err := svc.Phonetics(context.Background(), PhoneticsRequest{Text: "bonjour", Language: "fr"})
	if err != nil || ipa != "[bɔ̃ʒuʁ]" {
		t.Fatalf("unexpected phonetics %q %v", ipa, err)
	}
	if chat.lastOpts.Temperature != 0.1 || chat.lastOpts.MaxTokens != 256 {
		t.Fatalf("phonetics options not applied: %+v", chat.lastOpts)
	}

	if _, err := svc.Chat(context.Background(), ChatRequest{Question: "why?"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	chat.err = &provider.ProviderError{Provider: "stub", Status: 401, Body: "bad key"}
	_, err = svc.Chat(context.Background(), ChatRequest{SelectedText: "la gare", Question: "why la?", Target: "fr", Native: "en"})
	var pe *provider.ProviderError
	if !errors.As(err, &pe) || pe.Status != 401 {
		t.Fatalf("expected provider error, got %v", err)
	}
}
