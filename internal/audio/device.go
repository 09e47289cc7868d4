package audio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

// ErrPauseUnsupported is returned by devices that cannot pause.
var ErrPauseUnsupported = errors.New("pause not supported by audio device")

// ExecDevice plays clips by running an external player command.
// The clip is written to a temp file whose path replaces {file} in the
// command, or is appended when no placeholder is present.
type ExecDevice struct {
	args   []string
	tmpDir string
}

// NewExecDevice parses command into an ExecDevice.
func NewExecDevice(command string) (*ExecDevice, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse player command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("player command empty")
	}
	return &ExecDevice{args: args}, nil
}

// Open writes the clip to disk and prepares the player process.
func (d *ExecDevice) Open(clip *Clip) (Sound, error) {
	f, err := os.CreateTemp(d.tmpDir, "shadowcast-*"+clip.Ext())
	if err != nil {
		return nil, fmt.Errorf("creating clip file: %w", err)
	}
	if _, err := f.Write(clip.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("writing clip file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("closing clip file: %w", err)
	}

	args := make([]string, 0, len(d.args)+1)
	replaced := false
	for _, a := range d.args {
		if strings.Contains(a, "{file}") {
			a = strings.ReplaceAll(a, "{file}", f.Name())
			replaced = true
		}
		args = append(args, a)
	}
	if !replaced {
		args = append(args, f.Name())
	}

	return &execSound{
		cmd:  exec.Command(args[0], args[1:]...),
		path: f.Name(),
		done: make(chan error, 1),
	}, nil
}

type execSound struct {
	cmd  *exec.Cmd
	path string
	done chan error

	mu      sync.Mutex
	started bool
	closed  bool
}

func (s *execSound) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cmd.Start(); err != nil {
		return err
	}
	s.started = true
	go func() {
		err := s.cmd.Wait()
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			err = nil
		}
		s.done <- err
		close(s.done)
	}()
	return nil
}

func (s *execSound) Done() <-chan error { return s.done }

func (s *execSound) Pause() error  { return s.signal(pauseSignal) }
func (s *execSound) Resume() error { return s.signal(resumeSignal) }

func (s *execSound) signal(sig os.Signal) error {
	if sig == nil {
		return ErrPauseUnsupported
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started || s.closed {
		return nil
	}
	return s.cmd.Process.Signal(sig)
}

func (s *execSound) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	started := s.started
	s.mu.Unlock()

	if started {
		// A stopped process must be continued before it can observe the kill.
		if resumeSignal != nil {
			_ = s.cmd.Process.Signal(resumeSignal)
		}
		_ = s.cmd.Process.Kill()
	}
	return os.Remove(s.path)
}

// DiscardDevice accepts clips and finishes them immediately.
type DiscardDevice struct{}

// Open returns a sound that ends as soon as it starts.
func (DiscardDevice) Open(*Clip) (Sound, error) {
	return &discardSound{done: make(chan error, 1)}, nil
}

type discardSound struct {
	done chan error
	once sync.Once
}

func (s *discardSound) Start() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *discardSound) Done() <-chan error { return s.done }
func (s *discardSound) Pause() error       { return nil }
func (s *discardSound) Resume() error      { return nil }
func (s *discardSound) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
