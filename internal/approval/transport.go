package approval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// ConsoleTransport prompts synchronously on an io.Writer/io.Reader pair
// (typically os.Stdout/os.Stdin), the "synchronous console prompt" transport
// from spec §4.6. A context cancellation (Ctrl-C wired by the caller into
// ctx) denies and the caller is expected to terminate the turn.
type ConsoleTransport struct {
	Out io.Writer
	In  *bufio.Reader
}

// NewConsoleTransport wraps the given reader/writer.
func NewConsoleTransport(out io.Writer, in io.Reader) *ConsoleTransport {
	return &ConsoleTransport{Out: out, In: bufio.NewReader(in)}
}

// Decide prompts the user with y/n and blocks for a line of input.
func (c *ConsoleTransport) Decide(ctx context.Context, req Request) (bool, error) {
	fmt.Fprintf(c.Out, "Approve %s (%s)? [y/N] ", req.ToolName, req.Sensitivity)

	type result struct {
		line string
		err  error
	}
	lineCh := make(chan result, 1)
	go func() {
		line, err := c.In.ReadString('\n')
		lineCh <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-lineCh:
		if r.err != nil {
			return false, r.err
		}
		answer := strings.ToLower(strings.TrimSpace(r.line))
		return answer == "y" || answer == "yes", nil
	}
}

// CallbackTransport is the asynchronous UI transport from spec §4.6: a
// pending request is held until the UI resolves it by calling Resolve with
// the request's correlation id.
type CallbackTransport struct {
	pending chan chan bool
	submit  func(req Request, resolve func(bool))
}

// NewCallbackTransport wraps a submit function that hands the request to a
// UI layer (e.g. over the C12 WebSocket bridge) and eventually calls
// resolve(approved).
func NewCallbackTransport(submit func(req Request, resolve func(bool))) *CallbackTransport {
	return &CallbackTransport{submit: submit}
}

// Decide blocks until the UI resolves the pending request or ctx is done.
func (c *CallbackTransport) Decide(ctx context.Context, req Request) (bool, error) {
	resultCh := make(chan bool, 1)
	c.submit(req, func(approved bool) {
		select {
		case resultCh <- approved:
		default:
		}
	})

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case approved := <-resultCh:
		return approved, nil
	}
}
