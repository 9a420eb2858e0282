// Operator console reading decisions from a line-based input stream
package sim

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineConsole prompts on out and reads one line per decision from in.
// Reads are not cancellable mid-line; the context is checked before
// each prompt.
type LineConsole struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewLineConsole creates a console reading from in and prompting on out.
func NewLineConsole(in io.Reader, out io.Writer) *LineConsole {
	return &LineConsole{in: bufio.NewScanner(in), out: out}
}

// NewStdinConsole creates a console on STDIN/STDERR, keeping STDOUT
// free for record output.
func NewStdinConsole() *LineConsole {
	return NewLineConsole(os.Stdin, os.Stderr)
}

// Prompt asks the operator whether to continue. Input x or X continues,
// q or Q quits, end of input quits, and anything else prints a hint and
// returns Unknown so the controller re-prompts.
func (c *LineConsole) Prompt(ctx context.Context) (Decision, error) {
	select {
	case <-ctx.Done():
		return Quit, ctx.Err()
	default:
	}

	fmt.Fprint(c.out, "Press x to continue, q to quit: ")
	if !c.in.Scan() {
		if err := c.in.Err(); err != nil {
			return Quit, err
		}
		fmt.Fprintln(c.out)
		return Quit, nil
	}
	switch strings.TrimSpace(c.in.Text()) {
	case "x", "X":
		return Continue, nil
	case "q", "Q":
		return Quit, nil
	default:
		fmt.Fprintln(c.out, "Unrecognized input. Press x to continue or q to quit.")
		return Unknown, nil
	}
}
