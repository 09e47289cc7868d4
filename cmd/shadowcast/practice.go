package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nadzzz/shadowcast/internal/generation"
	"github.com/nadzzz/shadowcast/internal/lesson"
	"github.com/nadzzz/shadowcast/internal/practice"
)

// runPractice generates one practice text, prints it as it streams, then
// narrates it.
func runPractice(ctx context.Context, svc *practice.Service, args []string) error {
	fs := flag.NewFlagSet("practice", flag.ContinueOnError)
	target := fs.String("target", "en", "language to practice (code or name)")
	native := fs.String("native", "en", "your native language (code or name)")
	difficulty := fs.Int("difficulty", 3, "difficulty from 1 (beginner) to 5 (advanced)")
	scene := fs.String("scene", string(lesson.SceneDaily), "conversation scene")
	length := fs.String("length", string(lesson.LengthMedium), "short, medium or long")
	noAudio := fs.Bool("no-audio", false, "print the text without narrating it")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := lesson.Request{
		TargetLanguage: *target,
		NativeLanguage: *native,
		Difficulty:     *difficulty,
		Scene:          lesson.Scene(*scene),
		Length:         lesson.Length(*length),
	}
	s, err := svc.StartGeneration(req)
	if err != nil {
		return err
	}

	text, err := printSession(ctx, os.Stdout, s)
	if err != nil {
		return err
	}
	if *noAudio {
		return nil
	}

	run, err := svc.Narrate(practice.NarrateRequest{
		Text:       text,
		Language:   *target,
		Difficulty: *difficulty,
	})
	if err != nil {
		return err
	}
	slog.Debug("narrating", "run", run.ID, "segments", len(run.Segments))
	if err := run.Wait(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("narration: %w", err)
	}
	return nil
}

// printSession writes the revealed text to w as it arrives and returns the
// final text.
func printSession(ctx context.Context, w io.Writer, s *generation.Session) (string, error) {
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	var printed string
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return "", errors.New("generation cancelled")
			}
			switch evt.Type {
			case generation.EventChunk:
				if rest, ok := strings.CutPrefix(evt.Text, printed); ok {
					fmt.Fprint(w, rest)
				} else {
					fmt.Fprint(w, "\n"+evt.Text)
				}
				printed = evt.Text
			case generation.EventComplete:
				if rest, ok := strings.CutPrefix(evt.Text, printed); ok {
					fmt.Fprint(w, rest)
				}
				fmt.Fprintln(w)
				return evt.Text, nil
			case generation.EventError:
				fmt.Fprintln(w)
				return "", fmt.Errorf("generation: %s", evt.Message)
			}
		}
	}
}
