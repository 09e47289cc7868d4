package narration

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/nadzzz/shadowcast/internal/metrics"
	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/segment"
)

// ErrNothingToSay is returned when text has no speakable content.
var ErrNothingToSay = errors.New("text has no speakable content")

// Controls is the part of the audio player a narrator exposes directly.
type Controls interface {
	Pause() error
	Resume() error
	IsPlaying() bool
}

// RunState is the lifecycle position of a narration run.
type RunState string

const (
	RunPlaying   RunState = "playing"
	RunCompleted RunState = "completed"
	RunStopped   RunState = "stopped"
	RunFailed    RunState = "failed"
)

const maxRecentRuns = 16

// Narrator segments text and plays it, one run at a time.
type Narrator struct {
	sched    *Scheduler
	controls Controls
	maxChars int
	base     context.Context

	mu      sync.Mutex
	current *Run
	runs    map[string]*Run
	order   []string
}

// NewNarrator creates a narrator. Runs are cancelled when base is done.
func NewNarrator(base context.Context, sched *Scheduler, controls Controls, maxSegmentChars int) *Narrator {
	return &Narrator{
		sched:    sched,
		controls: controls,
		maxChars: maxSegmentChars,
		base:     base,
		runs:     make(map[string]*Run),
	}
}

// Run is one narration of a segmented text.
type Run struct {
	ID       string
	Segments []string

	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	state   RunState
	segment int
	err     error
}

// RunStatus is a point-in-time view of a run.
type RunStatus struct {
	ID       string   `json:"id"`
	State    RunState `json:"state"`
	Segment  int      `json:"segment"`
	Total    int      `json:"total"`
	Segments []string `json:"segments"`
	Error    string   `json:"error,omitempty"`
}

// Narrate stops the current run, waits for it to release the player, and
// starts narrating text.
func (n *Narrator) Narrate(text string, opts provider.SpeechOptions) (*Run, error) {
	segments := segment.Split(text, n.maxChars)
	if len(segments) == 0 {
		return nil, ErrNothingToSay
	}

	ctx, cancel := context.WithCancel(n.base)
	r := &Run{
		ID:       uuid.NewString(),
		Segments: segments,
		cancel:   cancel,
		done:     make(chan struct{}),
		state:    RunPlaying,
		segment:  -1,
	}

	n.mu.Lock()
	previous := n.current
	n.current = r
	n.runs[r.ID] = r
	n.order = append(n.order, r.ID)
	if len(n.order) > maxRecentRuns {
		delete(n.runs, n.order[0])
		n.order = n.order[1:]
	}
	n.mu.Unlock()

	if previous != nil {
		previous.Stop()
		<-previous.done
	}

	slog.Info("narration started", "run_id", r.ID, "segments", len(segments), "voice", opts.Voice, "speed", opts.Speed)
	go n.play(ctx, r, opts)
	return r, nil
}

func (n *Narrator) play(ctx context.Context, r *Run, opts provider.SpeechOptions) {
	defer close(r.done)
	defer r.cancel()

	err := n.sched.Play(ctx, r.Segments, opts, func(i int) {
		r.mu.Lock()
		r.segment = i
		r.mu.Unlock()
	})

	r.mu.Lock()
	switch {
	case err != nil:
		r.state, r.err = RunFailed, err
	case ctx.Err() != nil:
		r.state = RunStopped
	default:
		r.state = RunCompleted
	}
	state := r.state
	r.mu.Unlock()

	n.mu.Lock()
	if n.current == r {
		n.current = nil
	}
	n.mu.Unlock()

	metrics.NarrationOutcomes.WithLabelValues(string(state)).Inc()
	if err != nil {
		slog.Error("narration failed", "run_id", r.ID, "error", err)
		return
	}
	slog.Info("narration finished", "run_id", r.ID, "state", state)
}

// Prefetch warms the audio cache for text in the background. Errors are
// swallowed.
func (n *Narrator) Prefetch(text string, opts provider.SpeechOptions) int {
	segments := segment.Split(text, n.maxChars)
	if len(segments) == 0 {
		return 0
	}
	go n.sched.Prefetch(n.base, segments, opts)
	return len(segments)
}

// Get returns a recent run by id.
func (n *Narrator) Get(id string) (*Run, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.runs[id]
	return r, ok
}

// Current returns the run in progress, if any.
func (n *Narrator) Current() *Run {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// StopCurrent stops the run in progress, if any.
func (n *Narrator) StopCurrent() {
	if r := n.Current(); r != nil {
		r.Stop()
	}
}

// Pause pauses the sound being played.
func (n *Narrator) Pause() error { return n.controls.Pause() }

// Resume continues a paused sound.
func (n *Narrator) Resume() error { return n.controls.Resume() }

// IsPlaying reports whether a sound is audible right now.
func (n *Narrator) IsPlaying() bool { return n.controls.IsPlaying() }

// Stop cancels the run. Safe to call repeatedly.
func (r *Run) Stop() { r.cancel() }

// Done is closed when the run has released the player.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run ends and returns its failure, if any. A stopped
// run returns nil.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Status returns the current view of the run.
func (r *Run) Status() RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := RunStatus{
		ID:       r.ID,
		State:    r.state,
		Segment:  r.segment,
		Total:    len(r.Segments),
		Segments: r.Segments,
	}
	if r.err != nil {
		st.Error = r.err.Error()
	}
	return st
}
