package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/nadzzz/shadowcast/internal/provider/sse"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 2048

// NewRequest builds a POST request with a JSON body.
func NewRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// Send executes req and returns the response if its status is 2xx. Any other
// status is drained into a *ProviderError. Transport failures caused by ctx
// cancellation are reported as ErrAborted.
func Send(client *http.Client, name string, req *http.Request) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		if cerr := req.Context().Err(); cerr != nil {
			return nil, Aborted(cerr)
		}
		return nil, fmt.Errorf("%s request: %w", name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ProviderError{Provider: name, Status: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

// DecodeJSON decodes a final (non-streamed) payload. Failures are fatal ParseErrors.
func DecodeJSON(ctx context.Context, name string, r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return Aborted(cerr)
		}
		return &ParseError{Provider: name, Err: err}
	}
	return nil
}

// ErrStreamEnd is returned by an ExtractFunc for the vendor's end-of-stream frame.
var ErrStreamEnd = errors.New("end of stream")

// ExtractFunc pulls the text delta out of one SSE event. It returns
// ErrStreamEnd for the terminal frame, a *ParseError for a frame to skip, or
// any other error to fail the stream.
type ExtractFunc func(evt sse.Event) (string, error)

// ReadStream drives an SSE body to completion, accumulating the deltas
// returned by extract and forwarding each non-empty one to onChunk.
// Malformed frames are logged and skipped.
func ReadStream(ctx context.Context, name string, body io.Reader, extract ExtractFunc, onChunk ChunkFunc) (string, error) {
	reader := sse.NewReader(body)
	var full string
	for {
		if err := ctx.Err(); err != nil {
			return full, Aborted(err)
		}
		evt, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return full, nil
		}
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return full, Aborted(cerr)
			}
			return full, fmt.Errorf("%s stream: %w", name, err)
		}

		delta, err := extract(evt)
		if errors.Is(err, ErrStreamEnd) {
			return full, nil
		}
		var perr *ParseError
		if errors.As(err, &perr) {
			slog.Debug("skipping malformed stream frame", "provider", name, "error", perr.Err)
			continue
		}
		if err != nil {
			return full, err
		}
		if delta == "" {
			continue
		}
		full += delta
		if onChunk != nil {
			onChunk(delta, full)
		}
	}
}
