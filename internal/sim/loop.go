package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

// run executes the iteration loop until the operator quits, the
// iteration limit is reached, the context is cancelled, or Stop is
// called. Each iteration is strictly sequential: one iteration record,
// then one prompt, then one environment fetch, then one event record.
func (c *Controller) run(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			_ = c.stop("context cancelled")
			return
		default:
		}

		c.mu.Lock()
		stopped, paused, iter := c.stopped, c.paused, c.iteration
		c.mu.Unlock()
		if stopped {
			return
		}

		if paused {
			select {
			case <-c.wake:
			case <-c.done:
				return
			case <-ctx.Done():
				_ = c.stop("context cancelled")
				return
			}
			continue
		}

		if iter >= c.cfg.Iterations {
			_ = c.stop("iteration limit reached")
			return
		}

		n := iter + 1
		if !c.emitLive(lifecycle.EventSystem, lifecycle.LevelInfo,
			fmt.Sprintf("iteration %d starting", n), map[string]any{"iteration": n}) {
			return
		}

		decision := Unknown
		for decision == Unknown {
			d, err := c.console.Prompt(ctx)
			if c.isStopped() {
				// Stopped while prompting; nothing may follow the stop record.
				return
			}
			if err != nil {
				if !c.emitLive(lifecycle.EventSystem, lifecycle.LevelError, fmt.Sprintf("prompt failed: %v", err), nil) {
					return
				}
				_ = c.stop("prompt failed")
				return
			}
			if d == Unknown {
				// Re-prompt without consuming the iteration.
				if !c.emitLive(lifecycle.EventSystem, lifecycle.LevelInfo,
					"unrecognized operator input, awaiting x or q", map[string]any{"iteration": n}) {
					return
				}
			}
			decision = d
		}
		if decision == Quit {
			_ = c.stop("operator quit")
			return
		}

		evt, err := c.env.NextEvent(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				_ = c.stop("context cancelled")
				return
			}
			if c.isStopped() {
				return
			}
			// A failed fetch consumes the iteration so a broken
			// environment cannot loop forever.
			if !c.emitLive(lifecycle.EventSystem, lifecycle.LevelError,
				fmt.Sprintf("environment fetch failed: %v", err), map[string]any{"iteration": n}) {
				return
			}
			c.mu.Lock()
			c.iteration++
			c.mu.Unlock()
			continue
		}

		// Stopped while the fetch was in flight: drop the event so no
		// record follows the stop record. The check rides the emit lock,
		// so a Stop landing between the fetch and this emission still
		// keeps its record last.
		if !c.emitLive(lifecycle.EventSystem, lifecycle.LevelInfo, evt.Description, map[string]any{
			"iteration":     n,
			"event_id":      evt.ID,
			"type":          string(evt.Type),
			"sentients":     evt.Sentients,
			"non_sentients": evt.NonSentients,
		}) {
			return
		}

		c.mu.Lock()
		c.iteration++
		c.lastEvent = &evt
		c.mu.Unlock()

		if evt.Notice != "" {
			if !c.emitLive(lifecycle.EventSystem, lifecycle.LevelInfo, evt.Notice, map[string]any{"iteration": n}) {
				return
			}
		}
	}
}

func (c *Controller) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
