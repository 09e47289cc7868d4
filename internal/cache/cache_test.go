package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/provider"
)

func TestGetOrComputeDedup(t *testing.T) {
	c := New[string]()
	var calls atomic.Int32
	release := make(chan struct{})

	compute := func(context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "value", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrCompute(context.Background(), "k", compute)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected 1 computation, got %d", n)
	}
	for _, v := range results {
		if v != "value" {
			t.Fatalf("unexpected value %q", v)
		}
	}
	if _, err := c.GetOrCompute(context.Background(), "k", compute); err != nil || calls.Load() != 1 {
		t.Fatal("stored value should be reused")
	}
}

func TestFailureNotCached(t *testing.T) {
	c := New[int]()
	boom := errors.New("boom")
	if _, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatal("failure must not be stored")
	}
	v, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("expected retry to succeed, got %d %v", v, err)
	}
}

func TestWaiterCancellation(t *testing.T) {
	c := New[int]()
	release := make(chan struct{})
	go func() {
		_, _ = c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) {
			<-release
			return 1, nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.GetOrCompute(ctx, "k", func(context.Context) (int, error) { return 2, nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancelled waiter, got %v", err)
	}
	close(release)
}

func TestLeaderCancellationRetriesForLiveWaiter(t *testing.T) {
	c := New[int]()
	leaderCtx, cancelLeader := context.WithCancel(context.Background())
	started := make(chan struct{})

	leaderDone := make(chan error, 1)
	go func() {
		_, err := c.GetOrCompute(leaderCtx, "k", func(ctx context.Context) (int, error) {
			close(started)
			<-ctx.Done()
			return 0, ctx.Err()
		})
		leaderDone <- err
	}()
	<-started

	waiterDone := make(chan int, 1)
	go func() {
		v, err := c.GetOrCompute(context.Background(), "k", func(context.Context) (int, error) { return 42, nil })
		if err != nil {
			t.Errorf("waiter failed: %v", err)
		}
		waiterDone <- v
	}()
	time.Sleep(10 * time.Millisecond)
	cancelLeader()

	if err := <-leaderDone; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected leader cancelled, got %v", err)
	}
	select {
	case v := <-waiterDone:
		if v != 42 {
			t.Fatalf("expected recomputed value, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter did not recompute")
	}
}

func TestClear(t *testing.T) {
	c := New[int]()
	_, _ = c.GetOrCompute(context.Background(), "a", func(context.Context) (int, error) { return 1, nil })
	_, _ = c.GetOrCompute(context.Background(), "b", func(context.Context) (int, error) { return 2, nil })
	if n := c.Clear(); n != 2 || c.Len() != 0 {
		t.Fatalf("expected 2 cleared, got %d (len %d)", n, c.Len())
	}

	// A computation running across Clear is not stored.
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.GetOrCompute(context.Background(), "c", func(context.Context) (int, error) {
			<-release
			return 3, nil
		})
	}()
	time.Sleep(10 * time.Millisecond)
	c.Clear()
	close(release)
	<-done
	if _, ok := c.Get("c"); ok {
		t.Fatal("stale computation must not be stored after Clear")
	}
}

type countingSpeech struct {
	calls atomic.Int32
	delay time.Duration
}

func (s *countingSpeech) Name() string { return "fake" }

func (s *countingSpeech) Synthesize(ctx context.Context, text string, _ provider.SpeechOptions) (*audio.Clip, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	return &audio.Clip{Data: []byte(text), ContentType: "audio/mpeg"}, nil
}

func TestSpeechDedup(t *testing.T) {
	next := &countingSpeech{delay: 20 * time.Millisecond}
	s := NewSpeech(next, New[*audio.Clip]())
	opts := provider.SpeechOptions{Voice: "alloy", Speed: 0.8}

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Synthesize(context.Background(), "Hola amigo", opts); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := next.calls.Load(); n != 1 {
		t.Fatalf("expected exactly one synthesis call, got %d", n)
	}

	// Whitespace differences share the entry; speed does not.
	_, _ = s.Synthesize(context.Background(), "  Hola   amigo ", opts)
	if n := next.calls.Load(); n != 1 {
		t.Fatalf("normalized text should hit the cache, got %d calls", n)
	}
	_, _ = s.Synthesize(context.Background(), "Hola amigo", provider.SpeechOptions{Voice: "alloy", Speed: 1})
	if n := next.calls.Load(); n != 2 {
		t.Fatalf("different speed must miss, got %d calls", n)
	}
}

type fixedRateSpeech struct{ countingSpeech }

func (s *fixedRateSpeech) IgnoresSpeed() bool { return true }

func TestSpeedInvariantProviderSharesEntries(t *testing.T) {
	next := &fixedRateSpeech{}
	s := NewSpeech(next, New[*audio.Clip]())
	for _, speed := range []float64{0, 0.6, 0.8, 1.2} {
		if _, err := s.Synthesize(context.Background(), "Guten Tag", provider.SpeechOptions{Voice: "thorsten", Speed: speed}); err != nil {
			t.Fatalf("speed %v: %v", speed, err)
		}
	}
	if n := next.calls.Load(); n != 1 {
		t.Fatalf("expected one synthesis call across speeds, got %d", n)
	}
	_, _ = s.Synthesize(context.Background(), "Guten Tag", provider.SpeechOptions{Voice: "eva", Speed: 0.8})
	if n := next.calls.Load(); n != 2 {
		t.Fatalf("voice must still be part of the key, got %d calls", n)
	}
}

func TestSpeechKey(t *testing.T) {
	base := provider.SpeechOptions{Voice: "v", Speed: 1}
	if SpeechKey("p", "x", base) != SpeechKey("p", "x", provider.SpeechOptions{Voice: "v"}) {
		t.Fatal("zero speed should equal normal speed")
	}
	variants := []struct {
		name string
		opts provider.SpeechOptions
		prov string
	}{
		{"voice", provider.SpeechOptions{Voice: "w", Speed: 1}, "p"},
		{"model", provider.SpeechOptions{Voice: "v", Speed: 1, Model: "m"}, "p"},
		{"language", provider.SpeechOptions{Voice: "v", Speed: 1, Language: "ja"}, "p"},
		{"provider", base, "q"},
	}
	for _, v := range variants {
		if SpeechKey(v.prov, "x", v.opts) == SpeechKey("p", "x", base) {
			t.Errorf("%s must be part of the key", v.name)
		}
	}
}
