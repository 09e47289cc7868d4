// Package narration plays segmented text as synthesized speech.
//
// The Scheduler fetches audio for a bounded window of segments ahead of the
// playback cursor and plays them strictly in index order, whatever order the
// fetches complete in.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/shadowcast/internal/audio"
	"github.com/nadzzz/shadowcast/internal/metrics"
	"github.com/nadzzz/shadowcast/internal/provider"
)

// Defaults used when the corresponding option is not positive.
const (
	DefaultPrefetchWindow = 2
	DefaultMaxConcurrency = 2
)

// Player plays one clip at a time.
type Player interface {
	Play(ctx context.Context, clip *audio.Clip, onState audio.StateFunc) error
}

// Options bounds a scheduler.
type Options struct {
	// PrefetchWindow is how many segments, counting the one at the cursor,
	// may be fetched or held unplayed.
	PrefetchWindow int
	// MaxConcurrency caps simultaneous synthesis calls.
	MaxConcurrency int
}

// Scheduler turns segments into ordered playback.
type Scheduler struct {
	speech provider.SpeechProvider
	player Player
	window int
	limit  int
}

// NewScheduler creates a scheduler. speech is usually a cache.Speech so that
// repeated segments are synthesized once.
func NewScheduler(speech provider.SpeechProvider, player Player, opts Options) *Scheduler {
	if opts.PrefetchWindow <= 0 {
		opts.PrefetchWindow = DefaultPrefetchWindow
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	return &Scheduler{speech: speech, player: player, window: opts.PrefetchWindow, limit: opts.MaxConcurrency}
}

// SegmentFunc is told which segment index is about to play.
type SegmentFunc func(index int)

// future is the pending audio of one segment. clip and err are written
// before done is closed.
type future struct {
	done chan struct{}
	clip *audio.Clip
	err  error
}

// playback is the state of one Play call. Only the Play goroutine touches it.
type playback struct {
	s        *Scheduler
	ctx      context.Context
	segments []string
	opts     provider.SpeechOptions

	futures  []*future
	frontier int
	inFlight int
	finished chan int
}

// errStopped marks a clean stop after cancellation.
var errStopped = errors.New("playback stopped")

// Play narrates segments in order. Cancelling ctx stops fetching and playing
// and makes Play return nil. The first non-abort fetch or playback failure
// ends the run and is returned.
func (s *Scheduler) Play(ctx context.Context, segments []string, opts provider.SpeechOptions, onSegment SegmentFunc) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := &playback{
		s:        s,
		ctx:      runCtx,
		segments: segments,
		opts:     opts,
		futures:  make([]*future, len(segments)),
		finished: make(chan int, len(segments)),
	}

	for cursor := range segments {
		if err := p.startCursor(cursor); err != nil {
			return nil
		}
		f := p.futures[cursor]
		if err := p.await(cursor, f.done); err != nil {
			return nil
		}
		if f.err != nil {
			if provider.IsAborted(f.err) || runCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("segment %d: %w", cursor, f.err)
		}
		if runCtx.Err() != nil {
			return nil
		}

		if onSegment != nil {
			onSegment(cursor)
		}
		played := make(chan struct{})
		var playErr error
		go func() {
			defer close(played)
			playErr = s.player.Play(runCtx, f.clip, nil)
		}()
		if err := p.await(cursor, played); err != nil {
			<-played
			return nil
		}
		metrics.SegmentsPlayed.Inc()
		if playErr != nil {
			if errors.Is(playErr, context.Canceled) || runCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("playing segment %d: %w", cursor, playErr)
		}
		slog.Debug("segment played", "segment", cursor, "of", len(segments))
	}
	return nil
}

// pump starts fetches while the window and the concurrency limit allow.
func (p *playback) pump(cursor int) {
	for p.frontier < len(p.segments) && p.frontier-cursor < p.s.window && p.inFlight < p.s.limit {
		i := p.frontier
		f := &future{done: make(chan struct{})}
		p.futures[i] = f
		p.frontier++
		p.inFlight++
		go func() {
			f.clip, f.err = p.s.synthesize(p.ctx, i, p.segments[i], p.opts)
			close(f.done)
			p.finished <- i
		}()
	}
}

// startCursor makes sure the fetch of segment cursor has started. Finished
// fetches may not have been counted yet, so it drains them until the
// concurrency limit lets the cursor's fetch begin.
func (p *playback) startCursor(cursor int) error {
	p.pump(cursor)
	for p.futures[cursor] == nil {
		select {
		case <-p.ctx.Done():
			return errStopped
		case <-p.finished:
			p.inFlight--
			p.pump(cursor)
		}
	}
	return nil
}

// await blocks until target is closed, refilling the window as fetches
// complete. It returns errStopped if the run is cancelled first.
func (p *playback) await(cursor int, target <-chan struct{}) error {
	for {
		select {
		case <-p.ctx.Done():
			return errStopped
		case <-p.finished:
			p.inFlight--
			p.pump(cursor)
		case <-target:
			return nil
		}
	}
}

func (s *Scheduler) synthesize(ctx context.Context, index int, text string, opts provider.SpeechOptions) (*audio.Clip, error) {
	clip, err := s.speech.Synthesize(ctx, text, opts)
	switch {
	case err == nil:
		metrics.SynthesisCalls.WithLabelValues(s.speech.Name(), "ok").Inc()
	case provider.IsAborted(err) || ctx.Err() != nil:
		metrics.SynthesisCalls.WithLabelValues(s.speech.Name(), "aborted").Inc()
		return nil, provider.Aborted(err)
	default:
		metrics.SynthesisCalls.WithLabelValues(s.speech.Name(), "error").Inc()
		slog.Warn("segment synthesis failed", "segment", index, "provider", s.speech.Name(), "error", err)
	}
	return clip, err
}

// Prefetch synthesizes every segment with bounded concurrency so a later Play
// hits the cache. Failures are logged and otherwise ignored.
func (s *Scheduler) Prefetch(ctx context.Context, segments []string, opts provider.SpeechOptions) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, text := range segments {
		g.Go(func() error {
			if _, err := s.synthesize(gctx, i, text, opts); err != nil && !provider.IsAborted(err) {
				slog.Debug("prefetch failed", "segment", i, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
