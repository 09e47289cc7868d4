package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Device opens sounds on an audio output.
type Device interface {
	Open(clip *Clip) (Sound, error)
}

// Sound is one opened clip on a Device.
type Sound interface {
	// Start begins playback.
	Start() error
	// Done receives at most one value (nil on natural end) and is then closed.
	Done() <-chan error
	Pause() error
	Resume() error
	// Close stops playback, rewinds and releases the sound. Safe to call twice.
	Close() error
}

// StateFunc is told true when playback starts and false when it ends.
// It must not call back into the Player synchronously.
type StateFunc func(playing bool)

// Player owns at most one current sound.
type Player struct {
	device Device

	mu      sync.Mutex
	current *slot
}

// NewPlayer creates a player on the given device.
func NewPlayer(device Device) *Player {
	return &Player{device: device}
}

type slot struct {
	sound   Sound
	onState StateFunc
	done    chan struct{}

	mu     sync.Mutex
	once   sync.Once
	ended  bool
	paused bool
	err    error
}

func (s *slot) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended && s.onState != nil {
		s.onState(true)
	}
}

func (s *slot) end(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.ended = true
		s.err = err
		close(s.done)
		s.mu.Unlock()
		if s.onState != nil {
			s.onState(false)
		}
	})
}

// Play stops any current sound, then plays clip until it ends, fails, is
// stopped or ctx is cancelled. A Stop (or a newer Play) makes it return nil.
func (p *Player) Play(ctx context.Context, clip *Clip, onState StateFunc) error {
	if clip == nil || len(clip.Data) == 0 {
		return errors.New("empty audio clip")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	p.stopLocked()
	sound, err := p.device.Open(clip)
	if err != nil {
		p.mu.Unlock()
		return fmt.Errorf("opening sound: %w", err)
	}
	s := &slot{sound: sound, onState: onState, done: make(chan struct{})}
	if err := sound.Start(); err != nil {
		p.mu.Unlock()
		_ = sound.Close()
		return fmt.Errorf("starting sound: %w", err)
	}
	p.current = s
	p.mu.Unlock()

	s.begin()

	go func() {
		select {
		case err := <-sound.Done():
			p.release(s, err)
		case <-s.done:
		}
	}()

	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		p.release(s, nil)
		return ctx.Err()
	}
}

// release clears s from the slot if it is still current, then closes it.
func (p *Player) release(s *slot, err error) {
	p.mu.Lock()
	if p.current == s {
		p.current = nil
	}
	p.mu.Unlock()
	if cerr := s.sound.Close(); cerr != nil {
		slog.Debug("closing sound", "error", cerr)
	}
	s.end(err)
}

func (p *Player) stopLocked() {
	s := p.current
	if s == nil {
		return
	}
	p.current = nil
	if err := s.sound.Close(); err != nil {
		slog.Debug("closing sound", "error", err)
	}
	s.end(nil)
}

// Stop halts the current sound, if any. Pending Play calls return nil.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Pause pauses the current sound.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.current
	if s == nil || s.paused {
		return nil
	}
	if err := s.sound.Pause(); err != nil {
		return err
	}
	s.paused = true
	return nil
}

// Resume continues a paused sound.
func (p *Player) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.current
	if s == nil || !s.paused {
		return nil
	}
	if err := s.sound.Resume(); err != nil {
		return err
	}
	s.paused = false
	return nil
}

// IsPlaying reports whether a sound is current and not paused.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil && !p.current.paused
}
