// Package typewriter reveals streamed text at a fixed rate.
//
// Network chunks arrive in bursts. A Renderer buffers them and reveals a fixed
// number of characters per tick, so the visible text grows smoothly no matter
// how the stream is paced.
package typewriter

import (
	"strings"
	"sync"
	"time"
)

// Defaults used when the corresponding option is not positive.
const (
	DefaultInterval  = 20 * time.Millisecond
	DefaultChunkSize = 3
)

// Ticker is the subset of *time.Ticker the renderer needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Options configures a Renderer. Callbacks run on the ticking goroutine while
// the renderer is locked and must not call back into it.
type Options struct {
	Interval  time.Duration
	ChunkSize int

	// IsActive reports whether the owning session is still current. Once it
	// returns false the renderer stops without touching its state.
	IsActive func() bool
	// OnReveal receives the displayed text after each reveal.
	OnReveal func(displayed string)
	// OnFinal receives the trimmed text exactly once, when the backlog is
	// drained after Finish.
	OnFinal func(final string)

	// NewTicker overrides the time source.
	NewTicker func(d time.Duration) Ticker
}

// Renderer turns appended text into a rate-limited reveal sequence.
type Renderer struct {
	opts Options

	mu        sync.Mutex
	pending   []rune
	displayed strings.Builder
	done      bool
	finalized bool
	halted    bool
	running   bool
	stop      chan struct{}
}

// New creates a renderer. It does not tick until Start.
func New(opts Options) *Renderer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.NewTicker == nil {
		opts.NewTicker = func(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }
	}
	return &Renderer{opts: opts}
}

// Push appends text to the backlog. Ignored after finalization.
func (r *Renderer) Push(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized || r.halted {
		return
	}
	r.pending = append(r.pending, []rune(text)...)
}

// Finish marks the upstream as complete. The renderer finalizes once the
// backlog is drained.
func (r *Renderer) Finish() {
	r.mu.Lock()
	r.done = true
	r.mu.Unlock()
}

// Start begins ticking. Calling Start while already running is a no-op.
func (r *Renderer) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || r.finalized || r.halted {
		return
	}
	r.running = true
	r.stop = make(chan struct{})
	go r.loop(r.opts.NewTicker(r.opts.Interval), r.stop)
}

func (r *Renderer) loop(t Ticker, stop <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			if !r.Tick() {
				return
			}
		}
	}
}

// Tick reveals the next chunk, or finalizes when the backlog is drained after
// Finish. It reports whether further ticks are needed.
func (r *Renderer) Tick() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finalized || r.halted {
		return false
	}
	if r.opts.IsActive != nil && !r.opts.IsActive() {
		r.haltLocked()
		return false
	}

	if len(r.pending) > 0 {
		n := min(r.opts.ChunkSize, len(r.pending))
		r.displayed.WriteString(string(r.pending[:n]))
		r.pending = r.pending[n:]
		if r.opts.OnReveal != nil {
			r.opts.OnReveal(r.displayed.String())
		}
		return true
	}
	if !r.done {
		return true
	}

	r.finalized = true
	r.running = false
	final := strings.TrimSpace(r.displayed.String())
	r.displayed.Reset()
	r.displayed.WriteString(final)
	if r.opts.OnFinal != nil {
		r.opts.OnFinal(final)
	}
	return false
}

// Stop halts the renderer without finalizing. Later pushes are ignored.
func (r *Renderer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.haltLocked()
}

func (r *Renderer) haltLocked() {
	r.halted = true
	if r.running {
		close(r.stop)
		r.running = false
	}
}

// Displayed returns the text revealed so far.
func (r *Renderer) Displayed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.displayed.String()
}

// Pending returns the unrevealed backlog.
func (r *Renderer) Pending() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.pending)
}

// Finalized reports whether OnFinal has fired.
func (r *Renderer) Finalized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalized
}
