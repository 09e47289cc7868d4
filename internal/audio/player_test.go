package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeDevice struct {
	mu     sync.Mutex
	sounds []*fakeSound
}

func (d *fakeDevice) Open(clip *Clip) (Sound, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &fakeSound{clip: clip, done: make(chan error, 1)}
	d.sounds = append(d.sounds, s)
	return s, nil
}

func (d *fakeDevice) sound(i int) *fakeSound {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.sounds) {
		return nil
	}
	return d.sounds[i]
}

type fakeSound struct {
	clip *Clip
	done chan error

	mu      sync.Mutex
	started bool
	closed  int
	paused  bool
}

func (s *fakeSound) Start() error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}
func (s *fakeSound) Done() <-chan error { return s.done }
func (s *fakeSound) Pause() error {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
	return nil
}
func (s *fakeSound) Resume() error {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	return nil
}
func (s *fakeSound) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}
func (s *fakeSound) finish(err error) { s.done <- err }
func (s *fakeSound) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type stateLog struct {
	mu     sync.Mutex
	states []bool
}

func (l *stateLog) record(playing bool) {
	l.mu.Lock()
	l.states = append(l.states, playing)
	l.mu.Unlock()
}

func (l *stateLog) snapshot() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]bool(nil), l.states...)
}

func clip(s string) *Clip { return &Clip{Data: []byte(s), ContentType: "audio/mpeg"} }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPlayReportsStatesAndCompletes(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev)
	var log stateLog

	errc := make(chan error, 1)
	go func() { errc <- p.Play(context.Background(), clip("a"), log.record) }()

	waitFor(t, func() bool { return dev.sound(0) != nil && p.IsPlaying() })
	dev.sound(0).finish(nil)

	if err := <-errc; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := log.snapshot(); len(got) != 2 || !got[0] || got[1] {
		t.Fatalf("expected [true false], got %v", got)
	}
	if p.IsPlaying() {
		t.Fatal("expected player idle")
	}
}

func TestPlayStopsPreviousSound(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev)
	var first, second stateLog

	firstDone := make(chan error, 1)
	go func() { firstDone <- p.Play(context.Background(), clip("a"), first.record) }()
	waitFor(t, func() bool { return dev.sound(0) != nil })

	secondDone := make(chan error, 1)
	go func() { secondDone <- p.Play(context.Background(), clip("b"), second.record) }()

	if err := <-firstDone; err != nil {
		t.Fatalf("preempted play should resolve cleanly, got %v", err)
	}
	if dev.sound(0).closeCount() == 0 {
		t.Fatal("previous sound was not closed")
	}
	if got := first.snapshot(); len(got) != 2 || got[1] {
		t.Fatalf("expected first sound to report stop, got %v", got)
	}

	waitFor(t, func() bool { return dev.sound(1) != nil })
	dev.sound(1).finish(nil)
	if err := <-secondDone; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStopIsIdempotentAndResolvesPending(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev)
	p.Stop()

	var log stateLog
	errc := make(chan error, 1)
	go func() { errc <- p.Play(context.Background(), clip("a"), log.record) }()
	waitFor(t, func() bool { return p.IsPlaying() })

	p.Stop()
	p.Stop()

	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("expected nil after stop, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("play did not resolve after stop")
	}
	if got := log.snapshot(); len(got) != 2 || got[1] {
		t.Fatalf("expected false transition on stop, got %v", got)
	}
}

func TestPlayPropagatesDeviceError(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev)
	boom := errors.New("device unplugged")

	errc := make(chan error, 1)
	go func() { errc <- p.Play(context.Background(), clip("a"), nil) }()
	waitFor(t, func() bool { return dev.sound(0) != nil })
	dev.sound(0).finish(boom)

	if err := <-errc; !errors.Is(err, boom) {
		t.Fatalf("expected device error, got %v", err)
	}
}

func TestPlayHonoursContext(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- p.Play(ctx, clip("a"), nil) }()
	waitFor(t, func() bool { return p.IsPlaying() })
	cancel()

	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if p.IsPlaying() {
		t.Fatal("expected slot cleared after cancellation")
	}
}

func TestPlayWithDoneContextLeavesSlotAlone(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev)
	go func() { _ = p.Play(context.Background(), clip("a"), nil) }()
	waitFor(t, func() bool { return p.IsPlaying() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Play(ctx, clip("b"), nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if dev.sound(1) != nil || !p.IsPlaying() {
		t.Fatal("a cancelled Play must not touch the current sound")
	}
	p.Stop()
}

func TestPauseResume(t *testing.T) {
	dev := &fakeDevice{}
	p := NewPlayer(dev)

	go func() { _ = p.Play(context.Background(), clip("a"), nil) }()
	waitFor(t, func() bool { return p.IsPlaying() })

	if err := p.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if p.IsPlaying() {
		t.Fatal("expected paused player to report not playing")
	}
	if err := p.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !p.IsPlaying() {
		t.Fatal("expected resumed player to report playing")
	}
	p.Stop()
}

func TestPlayRejectsEmptyClip(t *testing.T) {
	p := NewPlayer(&fakeDevice{})
	if err := p.Play(context.Background(), &Clip{}, nil); err == nil {
		t.Fatal("expected error for empty clip")
	}
}

func TestDiscardDevice(t *testing.T) {
	p := NewPlayer(DiscardDevice{})
	if err := p.Play(context.Background(), clip("a"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewExecDevice(t *testing.T) {
	if _, err := NewExecDevice(""); err == nil {
		t.Fatal("expected error for empty command")
	}
	d, err := NewExecDevice(`ffplay -nodisp "{file}"`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(d.args) != 3 || d.args[2] != "{file}" {
		t.Fatalf("unexpected args: %q", d.args)
	}
}
