// Package sse reads server-sent event streams as produced by chat vendors.
//
// Only the "event" and "data" fields are interpreted. Multiple data lines of one
// event are joined with "\n". Comment lines (":" prefix) and unknown fields are
// ignored.
package sse

import (
	"bufio"
	"io"
	"strings"
)

// maxLine bounds a single SSE line. Vendor frames stay well under this.
const maxLine = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	Type string
	Data string
}

// Reader yields events from an SSE body.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &Reader{scanner: s}
}

// Next returns the next event with a non-empty data field. It returns io.EOF
// once the stream ends; a trailing event without the blank-line terminator is
// still delivered.
func (r *Reader) Next() (Event, error) {
	var (
		evt     Event
		data    []string
		hasData bool
	)
	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")
		if line == "" {
			if hasData {
				evt.Data = strings.Join(data, "\n")
				return evt, nil
			}
			evt = Event{}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			evt.Type = value
		case "data":
			data = append(data, value)
			hasData = true
		}
	}
	if err := r.scanner.Err(); err != nil {
		return Event{}, err
	}
	if hasData {
		evt.Data = strings.Join(data, "\n")
		return evt, nil
	}
	return Event{}, io.EOF
}
