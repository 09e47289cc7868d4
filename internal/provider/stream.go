package provider

import "context"

// Result is the outcome of a streamed chat call.
type Result struct {
	Text string
	Err  error
}

// Stream runs p.StreamChat in the background and exposes it as a finite,
// non-restartable sequence of deltas. The delta channel is closed when the call
// returns; the result channel then receives exactly one value. Cancelling ctx
// aborts the call and closes the delta channel without blocking the producer.
func Stream(ctx context.Context, p ChatProvider, messages []Message, opts ChatOptions) (<-chan string, <-chan Result) {
	deltas := make(chan string)
	result := make(chan Result, 1)

	go func() {
		defer close(result)
		text, err := p.StreamChat(ctx, messages, opts, func(delta, _ string) {
			select {
			case deltas <- delta:
			case <-ctx.Done():
			}
		})
		close(deltas)
		if err == nil && ctx.Err() != nil {
			err = Aborted(ctx.Err())
		}
		result <- Result{Text: text, Err: err}
	}()

	return deltas, result
}
