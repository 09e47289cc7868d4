package typewriter

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type manualTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

type recorder struct {
	mu      sync.Mutex
	reveals []string
	finals  []string
	done    chan struct{}
}

func newRecorder() *recorder { return &recorder{done: make(chan struct{})} }

func (r *recorder) reveal(s string) {
	r.mu.Lock()
	r.reveals = append(r.reveals, s)
	r.mu.Unlock()
}

func (r *recorder) final(s string) {
	r.mu.Lock()
	r.finals = append(r.finals, s)
	r.mu.Unlock()
	close(r.done)
}

func TestTickRevealsFixedChunks(t *testing.T) {
	rec := newRecorder()
	r := New(Options{ChunkSize: 3, OnReveal: rec.reveal, OnFinal: rec.final})
	r.Push("  Hello wor")
	r.Push("ld! ")
	r.Finish()

	ticks := 0
	for r.Tick() {
		ticks++
		if ticks > 100 {
			t.Fatal("renderer never finalized")
		}
	}

	want := []string{"  H", "  Hell", "  Hello w", "  Hello worl", "  Hello world! "}
	if len(rec.reveals) != len(want) {
		t.Fatalf("expected reveals %q, got %q", want, rec.reveals)
	}
	for i := range want {
		if rec.reveals[i] != want[i] {
			t.Fatalf("reveal %d: expected %q, got %q", i, want[i], rec.reveals[i])
		}
	}
	if len(rec.finals) != 1 || rec.finals[0] != "Hello world!" {
		t.Fatalf("expected one trimmed final, got %q", rec.finals)
	}
	if r.Displayed() != "Hello world!" || !r.Finalized() {
		t.Fatalf("unexpected state %q", r.Displayed())
	}

	// Further ticks and pushes are inert.
	if r.Tick() {
		t.Fatal("finalized renderer must not request ticks")
	}
	r.Push("more")
	if r.Pending() != "" || len(rec.finals) != 1 {
		t.Fatal("finalized renderer must ignore input")
	}
}

func TestTickWaitsForFinish(t *testing.T) {
	rec := newRecorder()
	r := New(Options{ChunkSize: 4, OnFinal: rec.final})
	r.Push("abc")
	if !r.Tick() || r.Displayed() != "abc" {
		t.Fatalf("expected abc revealed, got %q", r.Displayed())
	}
	// Backlog empty but stream still open: keep ticking, no final.
	if !r.Tick() || len(rec.finals) != 0 {
		t.Fatal("must not finalize before Finish")
	}
	r.Finish()
	if r.Tick() {
		t.Fatal("expected finalization")
	}
	if len(rec.finals) != 1 || rec.finals[0] != "abc" {
		t.Fatalf("unexpected finals %q", rec.finals)
	}
}

func TestRunesNotBytes(t *testing.T) {
	r := New(Options{ChunkSize: 2})
	r.Push("こんにちは")
	r.Tick()
	if got := r.Displayed(); got != "こん" {
		t.Fatalf("expected two characters, got %q", got)
	}
}

func TestInactiveSessionStopsWithoutMutation(t *testing.T) {
	var active atomic.Bool
	active.Store(true)
	rec := newRecorder()
	r := New(Options{ChunkSize: 1, IsActive: active.Load, OnReveal: rec.reveal, OnFinal: rec.final})
	r.Push("abc")
	r.Tick()

	active.Store(false)
	r.Finish()
	if r.Tick() {
		t.Fatal("stale renderer must stop ticking")
	}
	if r.Displayed() != "a" || r.Pending() != "bc" || len(rec.finals) != 0 || len(rec.reveals) != 1 {
		t.Fatalf("stale tick mutated state: %q %q %v", r.Displayed(), r.Pending(), rec.finals)
	}
}

func TestStartDrivesTickerAndIsIdempotent(t *testing.T) {
	var (
		mu      sync.Mutex
		tickers []*manualTicker
	)
	newTicker := func(time.Duration) Ticker {
		mt := &manualTicker{c: make(chan time.Time)}
		mu.Lock()
		tickers = append(tickers, mt)
		mu.Unlock()
		return mt
	}

	rec := newRecorder()
	r := New(Options{ChunkSize: 5, OnFinal: rec.final, NewTicker: newTicker})
	r.Start()
	r.Start()

	mu.Lock()
	if len(tickers) != 1 {
		mu.Unlock()
		t.Fatalf("expected one ticker, got %d", len(tickers))
	}
	mt := tickers[0]
	mu.Unlock()

	r.Push(" streamed text ")
	r.Finish()
	for {
		select {
		case mt.c <- time.Now():
			continue
		case <-rec.done:
		case <-time.After(2 * time.Second):
			t.Fatal("renderer did not finalize")
		}
		break
	}

	if rec.finals[0] != "streamed text" {
		t.Fatalf("unexpected final %q", rec.finals[0])
	}
	deadline := time.Now().Add(time.Second)
	for !mt.stopped.Load() {
		if time.Now().After(deadline) {
			t.Fatal("ticker not stopped after finalization")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestStopHaltsWithoutFinal(t *testing.T) {
	rec := newRecorder()
	r := New(Options{OnFinal: rec.final, NewTicker: func(time.Duration) Ticker {
		return &manualTicker{c: make(chan time.Time)}
	}})
	r.Start()
	r.Push("abc")
	r.Finish()
	r.Stop()
	r.Stop()
	if r.Tick() || r.Finalized() || len(rec.finals) != 0 {
		t.Fatal("stopped renderer must not finalize")
	}
	r.Start()
	if r.Finalized() {
		t.Fatal("Start after Stop must be a no-op")
	}
}

func TestDefaults(t *testing.T) {
	r := New(Options{})
	if r.opts.Interval != DefaultInterval || r.opts.ChunkSize != DefaultChunkSize {
		t.Fatalf("unexpected defaults %+v", r.opts)
	}
}
