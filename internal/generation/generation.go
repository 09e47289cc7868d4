// Package generation runs streamed chat sessions through a typewriter renderer.
//
// A Controller owns at most one active session. Starting a new one (or
// retrying) invalidates the previous session: its stream is cancelled and any
// late chunk, tick or completion belonging to it is discarded. Identity is a
// generation counter compared at every continuation.
package generation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/shadowcast/internal/metrics"
	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/typewriter"
)

// State is the lifecycle position of a session.
type State string

const (
	StateIdle       State = "idle"
	StateStreaming  State = "streaming"
	StateFinalizing State = "finalizing"
	StateReady      State = "ready"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateReady || s == StateFailed || s == StateCancelled
}

// EventType names a progress notification.
type EventType string

const (
	EventChunk    EventType = "chunk"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is a progress notification. Chunk events carry the full displayed
// text, so a subscriber that misses some still ends up with the latest state.
type Event struct {
	Type    EventType `json:"type"`
	Text    string    `json:"text,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Job is what a session sends to the chat provider.
type Job struct {
	Messages []provider.Message
	Options  provider.ChatOptions
}

// ErrNoJob is returned by Retry before any session was started.
var ErrNoJob = errors.New("nothing to retry")

// maxRecent bounds how many finished sessions stay addressable by id.
const maxRecent = 16

// Config holds controller settings.
type Config struct {
	// Kind labels the controller in logs and metrics ("generation", "translation").
	Kind       string
	Typewriter typewriter.Options
}

// Controller starts and tracks sessions for one kind of content.
type Controller struct {
	kind string
	chat provider.ChatProvider
	tw   typewriter.Options
	base context.Context

	gen atomic.Uint64

	mu       sync.Mutex
	current  *Session
	lastJob  *Job
	sessions map[string]*Session
	order    []string
}

// NewController creates a controller. Sessions run under base and are all
// cancelled when it is done.
func NewController(base context.Context, chat provider.ChatProvider, cfg Config) *Controller {
	if cfg.Kind == "" {
		cfg.Kind = "generation"
	}
	return &Controller{
		kind:     cfg.Kind,
		chat:     chat,
		tw:       cfg.Typewriter,
		base:     base,
		sessions: make(map[string]*Session),
	}
}

// Kind returns the controller label.
func (c *Controller) Kind() string { return c.kind }

// Start begins a new session for job, superseding the current one.
func (c *Controller) Start(job Job) *Session {
	token := c.gen.Add(1)
	ctx, cancel := context.WithCancel(c.base)

	s := &Session{
		ID:     uuid.NewString(),
		ctrl:   c,
		token:  token,
		cancel: cancel,
		state:  StateIdle,
		done:   make(chan struct{}),
	}
	opts := c.tw
	opts.IsActive = s.active
	opts.OnReveal = s.reveal
	opts.OnFinal = s.complete
	s.renderer = typewriter.New(opts)

	c.mu.Lock()
	previous := c.current
	c.current = s
	jobCopy := job
	c.lastJob = &jobCopy
	c.sessions[s.ID] = s
	c.order = append(c.order, s.ID)
	if len(c.order) > maxRecent {
		delete(c.sessions, c.order[0])
		c.order = c.order[1:]
	}
	c.mu.Unlock()

	if previous != nil {
		previous.abort()
	}

	slog.Info("session started", "kind", c.kind, "session_id", s.ID, "provider", c.chat.Name())
	go s.run(ctx, job)
	return s
}

// Retry starts a brand-new session with the last job.
func (c *Controller) Retry() (*Session, error) {
	c.mu.Lock()
	job := c.lastJob
	c.mu.Unlock()
	if job == nil {
		return nil, ErrNoJob
	}
	return c.Start(*job), nil
}

// Cancel aborts the session with id if it is still running. It reports
// whether the id is known.
func (c *Controller) Cancel(id string) bool {
	c.mu.Lock()
	s, ok := c.sessions[id]
	if ok && c.current == s {
		c.gen.Add(1)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	s.abort()
	return true
}

// Get returns a recent session by id.
func (c *Controller) Get(id string) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[id]
	return s, ok
}

// Current returns the active session, if any.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Session is one attempt at streaming a piece of content.
type Session struct {
	ID string

	ctrl     *Controller
	token    uint64
	cancel   context.CancelFunc
	renderer *typewriter.Renderer
	done     chan struct{}

	mu      sync.Mutex
	state   State
	text    string
	final   string
	err     error
	subs    []chan Event
	started time.Time
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	State   State  `json:"state"`
	Text    string `json:"text"`
	Pending int    `json:"pending"`
	Error   string `json:"error,omitempty"`
}

func (s *Session) active() bool { return s.ctrl.gen.Load() == s.token }

func (s *Session) run(ctx context.Context, job Job) {
	defer s.cancel()

	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = StateStreaming
	s.started = time.Now()
	s.mu.Unlock()

	s.renderer.Start()
	deltas, result := provider.Stream(ctx, s.ctrl.chat, job.Messages, job.Options)
	for d := range deltas {
		if !s.active() {
			continue
		}
		s.renderer.Push(d)
	}

	res := <-result
	switch {
	case res.Err == nil:
		s.mu.Lock()
		if !s.active() || s.state.Terminal() {
			s.mu.Unlock()
			return
		}
		s.state = StateFinalizing
		s.mu.Unlock()
		s.renderer.Finish()
	case provider.IsAborted(res.Err):
		s.abort()
	default:
		s.fail(res.Err)
	}
}

// reveal runs under the renderer lock.
func (s *Session) reveal(displayed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active() || s.state.Terminal() {
		return
	}
	s.text = displayed
	s.broadcastLocked(Event{Type: EventChunk, Text: displayed})
}

// complete runs under the renderer lock, exactly once.
func (s *Session) complete(final string) {
	s.mu.Lock()
	if !s.active() || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.text = final
	s.final = final
	s.finishLocked(StateReady, &Event{Type: EventComplete, Text: final})
	elapsed := time.Since(s.started)
	s.mu.Unlock()

	metrics.SessionOutcomes.WithLabelValues(s.ctrl.kind, string(StateReady)).Inc()
	metrics.SessionDuration.WithLabelValues(s.ctrl.kind).Observe(elapsed.Seconds())
	slog.Info("session ready", "kind", s.ctrl.kind, "session_id", s.ID, "text_length", len(final), "elapsed", elapsed)
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	if !s.active() || s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.err = err
	s.finishLocked(StateFailed, &Event{Type: EventError, Message: err.Error()})
	s.mu.Unlock()

	s.renderer.Stop()
	metrics.SessionOutcomes.WithLabelValues(s.ctrl.kind, string(StateFailed)).Inc()
	slog.Error("session failed", "kind", s.ctrl.kind, "session_id", s.ID, "error", err)
}

// abort cancels the session silently. Safe to call repeatedly and from any
// goroutine except the renderer callbacks.
func (s *Session) abort() {
	s.cancel()
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.finishLocked(StateCancelled, nil)
	s.mu.Unlock()

	s.renderer.Stop()
	metrics.SessionOutcomes.WithLabelValues(s.ctrl.kind, string(StateCancelled)).Inc()
	slog.Debug("session cancelled", "kind", s.ctrl.kind, "session_id", s.ID)
}

func (s *Session) finishLocked(state State, evt *Event) {
	s.state = state
	if evt != nil {
		s.broadcastLocked(*evt)
	}
	for _, ch := range s.subs {
		close(ch)
	}
	s.subs = nil
	close(s.done)
}

// subBuffer is the capacity of a subscriber channel. One slot is always kept
// free for the terminal event.
const subBuffer = 64

func (s *Session) broadcastLocked(evt Event) {
	terminal := evt.Type != EventChunk
	for _, ch := range s.subs {
		if terminal || len(ch) < cap(ch)-1 {
			ch <- evt
		}
	}
}

// Subscribe returns a channel of progress events, closed after the terminal
// event (or without one when the session is cancelled). The current text is
// replayed first as a chunk event. unsubscribe releases the channel early.
func (s *Session) Subscribe() (events <-chan Event, unsubscribe func()) {
	ch := make(chan Event, subBuffer)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.text != "" && s.state != StateReady {
		ch <- Event{Type: EventChunk, Text: s.text}
	}
	switch s.state {
	case StateReady:
		ch <- Event{Type: EventComplete, Text: s.final}
		close(ch)
		return ch, func() {}
	case StateFailed:
		ch <- Event{Type: EventError, Message: s.err.Error()}
		close(ch)
		return ch, func() {}
	case StateCancelled:
		close(ch)
		return ch, func() {}
	}

	s.subs = append(s.subs, ch)
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub == ch {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns its final text. A cancelled
// session returns an error matching provider.ErrAborted.
func (s *Session) Wait(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-s.done:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateReady:
		return s.final, nil
	case StateFailed:
		return "", s.err
	default:
		return "", provider.ErrAborted
	}
}

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	pending := len([]rune(s.renderer.Pending()))
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:      s.ID,
		Kind:    s.ctrl.kind,
		State:   s.state,
		Text:    s.text,
		Pending: pending,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
