package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nadzzz/shadowcast/internal/provider"
	"github.com/nadzzz/shadowcast/internal/typewriter"
)

// call is one StreamChat invocation driven by the test.
type call struct {
	messages []provider.Message
	feed     chan string
	end      chan error
	returned chan struct{}
}

// fakeChat hands every StreamChat call to the test. With ignoreCancel set it
// keeps delivering chunks after its context is cancelled, like a provider
// whose late frames are already in flight.
type fakeChat struct {
	calls        chan *call
	ignoreCancel bool
}

func newFakeChat() *fakeChat { return &fakeChat{calls: make(chan *call, 8)} }

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) StreamChat(ctx context.Context, msgs []provider.Message, _ provider.ChatOptions, onChunk provider.ChunkFunc) (string, error) {
	c := &call{messages: msgs, feed: make(chan string), end: make(chan error, 1), returned: make(chan struct{})}
	defer close(c.returned)
	f.calls <- c

	cancelled := ctx.Done()
	if f.ignoreCancel {
		cancelled = nil
	}
	var full string
	for {
		select {
		case d := <-c.feed:
			full += d
			onChunk(d, full)
		case err := <-c.end:
			return full, err
		case <-cancelled:
			return full, provider.Aborted(ctx.Err())
		}
	}
}

func (f *fakeChat) Complete(context.Context, []provider.Message, provider.ChatOptions) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeChat) next(t *testing.T) *call {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("provider was not called")
		return nil
	}
}

func newController(chat provider.ChatProvider, kind string) *Controller {
	return NewController(context.Background(), chat, Config{
		Kind:       kind,
		Typewriter: typewriter.Options{Interval: time.Millisecond, ChunkSize: 3},
	})
}

func job(content string) Job {
	return Job{Messages: []provider.Message{{Role: provider.RoleUser, Content: content}}}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestSessionStreamsAndFinalizes(t *testing.T) {
	chat := newFakeChat()
	c := newController(chat, "generation")

	s := c.Start(job("write"))
	events, _ := s.Subscribe()
	fc := chat.next(t)
	for _, d := range []string{"  Hel", "lo", " world  "} {
		fc.feed <- d
	}
	fc.end <- nil

	final, err := s.Wait(waitCtx(t))
	if err != nil || final != "Hello world" {
		t.Fatalf("expected trimmed final text, got %q %v", final, err)
	}

	var prev string
	var last Event
	for evt := range events {
		if evt.Type == EventChunk {
			if !strings.HasPrefix(evt.Text, prev) {
				t.Fatalf("chunk %q does not extend %q", evt.Text, prev)
			}
			prev = evt.Text
		}
		last = evt
	}
	if last.Type != EventComplete || last.Text != "Hello world" {
		t.Fatalf("expected complete event last, got %+v", last)
	}

	snap := s.Snapshot()
	if snap.State != StateReady || snap.Text != "Hello world" || snap.Kind != "generation" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestStaleSessionIsInert(t *testing.T) {
	chat := newFakeChat()
	chat.ignoreCancel = true
	c := newController(chat, "generation")

	a := c.Start(job("A"))
	aCall := chat.next(t)
	aEvents, _ := a.Subscribe()

	b := c.Start(job("B"))
	bCall := chat.next(t)
	if bCall.messages[0].Content != "B" {
		t.Fatalf("expected call for B, got %q", bCall.messages[0].Content)
	}

	// A late chunk and completion for A arrive after B superseded it.
	aCall.feed <- "late text"
	aCall.end <- nil
	<-aCall.returned

	snap := a.Snapshot()
	if snap.State != StateCancelled || snap.Text != "" || snap.Pending != 0 || snap.Error != "" {
		t.Fatalf("stale session mutated: %+v", snap)
	}
	for evt := range aEvents {
		t.Fatalf("stale session emitted %+v", evt)
	}
	if _, err := a.Wait(waitCtx(t)); !errors.Is(err, provider.ErrAborted) {
		t.Fatalf("expected aborted wait, got %v", err)
	}

	bCall.feed <- "fresh"
	bCall.end <- nil
	if final, err := b.Wait(waitCtx(t)); err != nil || final != "fresh" {
		t.Fatalf("expected B to finish with its own text, got %q %v", final, err)
	}
	if c.Current() != b {
		t.Fatal("B should be current")
	}
}

func TestProviderFailureEmitsError(t *testing.T) {
	chat := newFakeChat()
	c := newController(chat, "translation")

	s := c.Start(job("translate"))
	events, _ := s.Subscribe()
	fc := chat.next(t)
	fc.feed <- "partial"
	fc.end <- &provider.ProviderError{Provider: "fake", Status: 500, Body: "boom"}

	_, err := s.Wait(waitCtx(t))
	var pe *provider.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected provider error, got %v", err)
	}

	var last Event
	for evt := range events {
		last = evt
	}
	if last.Type != EventError || !strings.Contains(last.Message, "500") {
		t.Fatalf("expected error event, got %+v", last)
	}
	if snap := s.Snapshot(); snap.State != StateFailed || snap.Error == "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	// A late subscriber still learns the outcome.
	late, _ := s.Subscribe()
	last = Event{}
	for evt := range late {
		last = evt
	}
	if last.Type != EventError {
		t.Fatalf("expected replayed error, got %+v", last)
	}
}

func TestCancelIsSilent(t *testing.T) {
	chat := newFakeChat()
	c := newController(chat, "generation")

	s := c.Start(job("write"))
	events, _ := s.Subscribe()
	chat.next(t)

	if !c.Cancel(s.ID) {
		t.Fatal("expected known session")
	}
	if c.Cancel("unknown") {
		t.Fatal("unknown id must not be reported as cancelled")
	}
	for evt := range events {
		if evt.Type == EventError {
			t.Fatalf("cancellation must not surface an error: %+v", evt)
		}
	}
	if s.State() != StateCancelled {
		t.Fatalf("expected cancelled, got %s", s.State())
	}
	if _, err := s.Wait(waitCtx(t)); !provider.IsAborted(err) {
		t.Fatalf("expected aborted, got %v", err)
	}
}

func TestRetry(t *testing.T) {
	chat := newFakeChat()
	c := newController(chat, "generation")
	if _, err := c.Retry(); !errors.Is(err, ErrNoJob) {
		t.Fatalf("expected ErrNoJob, got %v", err)
	}

	first := c.Start(job("again"))
	chat.next(t).end <- errors.New("network down")
	if _, err := first.Wait(waitCtx(t)); err == nil {
		t.Fatal("expected first attempt to fail")
	}

	second, err := c.Retry()
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if second.ID == first.ID {
		t.Fatal("retry must create a new session")
	}
	fc := chat.next(t)
	if fc.messages[0].Content != "again" {
		t.Fatalf("retry should resend the last job, got %q", fc.messages[0].Content)
	}
	fc.feed <- "ok"
	fc.end <- nil
	if final, err := second.Wait(waitCtx(t)); err != nil || final != "ok" {
		t.Fatalf("unexpected retry result %q %v", final, err)
	}
	if got, ok := c.Get(first.ID); !ok || got.State() != StateFailed {
		t.Fatal("first session should remain addressable and failed")
	}
}

func TestControllersAreIsolated(t *testing.T) {
	content := newFakeChat()
	translate := newFakeChat()
	gen := newController(content, "generation")
	tr := newController(translate, "translation")

	g := gen.Start(job("story"))
	gc := content.next(t)
	x := tr.Start(job("translate"))
	translate.next(t).end <- errors.New("translation failed")
	if _, err := x.Wait(waitCtx(t)); err == nil {
		t.Fatal("expected translation failure")
	}

	gc.feed <- "story text"
	gc.end <- nil
	if final, err := g.Wait(waitCtx(t)); err != nil || final != "story text" {
		t.Fatalf("generation affected by translation failure: %q %v", final, err)
	}
}
