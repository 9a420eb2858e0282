// Controller orchestrating the simulation lifecycle and iteration loop
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdiPat/ai-simulator/internal/bus"
	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/lifecycle"
	"github.com/AdiPat/ai-simulator/internal/world"
)

// RecordWriter is an interface to support different output writers.
type RecordWriter interface {
	Write(lifecycle.Record) error
}

// Optional: writers can also support batch mode.
type batchWriter interface {
	WriteBatch([]lifecycle.Record) error
}

// Optional: buffering writers can flush pending records.
type flushableWriter interface {
	Flush() error
}

// EnvironmentPort supplies the next world development and a
// natural-language description of the environment. Implementations may
// block; the controller issues at most one fetch at a time and never
// concurrently with an operator prompt.
type EnvironmentPort interface {
	NextEvent(ctx context.Context) (world.Event, error)
	Describe(ctx context.Context) (string, error)
}

// Decision is the operator's answer to the continue prompt.
type Decision int

const (
	// Continue advances the loop by one iteration.
	Continue Decision = iota
	// Quit stops the simulation gracefully.
	Quit
	// Unknown re-prompts without consuming an iteration.
	Unknown
)

// Console prompts the operator between iterations.
type Console interface {
	Prompt(ctx context.Context) (Decision, error)
}

// ErrNotRunning is returned by controls that need a live run.
var ErrNotRunning = errors.New("simulation not running")

// Status summarizes controller state for the admin API.
type Status struct {
	RunID        string `json:"run_id"`
	Name         string `json:"name"`
	Running      bool   `json:"running"`
	Paused       bool   `json:"paused"`
	Iteration    int    `json:"iteration"`
	Iterations   int    `json:"iterations"`
	Sentients    int    `json:"sentients"`
	NonSentients int    `json:"non_sentients"`
	LastEvent    string `json:"last_event,omitempty"`
}

// Controller drives one simulation run. It owns the iteration loop and
// emits every lifecycle record exactly once, to the writer first and
// then to the event bus. A controller cannot be restarted after Stop.
type Controller struct {
	runID    string
	cfg      config.SimulationConfig
	env      EnvironmentPort
	console  Console
	writer   RecordWriter
	eventBus *bus.Bus
	logger   *slog.Logger

	mu        sync.Mutex
	started   bool
	stopped   bool
	paused    bool
	iteration int
	lastEvent *world.Event

	emitMu   sync.Mutex
	stopOnce sync.Once
	wake     chan struct{}
	done     chan struct{}
}

// NewController validates the config and prepares a controller. The
// config must arrive with defaults already resolved: config.Load merges
// them during decoding, and programmatically built configs call
// ApplyDefaults themselves. Re-defaulting here would erase explicit
// zero values such as god_event_probability: 0. The writer may be nil
// to discard records; a nil bus gets replaced by an empty one.
func NewController(cfg config.SimulationConfig, env EnvironmentPort, console Console, writer RecordWriter, eventBus *bus.Bus, logger *slog.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("environment port is required")
	}
	if console == nil {
		return nil, fmt.Errorf("console is required")
	}
	if eventBus == nil {
		eventBus = bus.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		runID:    uuid.New().String(),
		cfg:      cfg,
		env:      env,
		console:  console,
		writer:   writer,
		eventBus: eventBus,
		logger:   logger,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// RunID returns the unique identifier of this run.
func (c *Controller) RunID() string { return c.runID }

// Config returns a copy of the resolved configuration.
func (c *Controller) Config() config.SimulationConfig { return c.cfg }

// Bus returns the event bus records are published on.
func (c *Controller) Bus() *bus.Bus { return c.eventBus }

// Done is closed once the simulation has stopped and the stop record
// has been written and flushed.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Running reports whether the simulation has started and not stopped.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && !c.stopped
}

// Paused reports whether the loop is holding between iterations.
func (c *Controller) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Iteration returns the number of completed iterations.
func (c *Controller) Iteration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.iteration
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		RunID:        c.runID,
		Name:         c.cfg.Name,
		Running:      c.started && !c.stopped,
		Paused:       c.paused,
		Iteration:    c.iteration,
		Iterations:   c.cfg.Iterations,
		Sentients:    c.cfg.NumSentients,
		NonSentients: c.cfg.NumNonSentients,
	}
	if c.lastEvent != nil {
		st.Sentients = c.lastEvent.Sentients
		st.NonSentients = c.lastEvent.NonSentients
		st.LastEvent = c.lastEvent.Description
	}
	return st
}

// DescribeEnvironment asks the environment port for a description of
// the world and records the outcome: one info record carrying the
// environment and the description on success, one error record on
// failure. A failure returns the empty string; run state is untouched
// either way.
func (c *Controller) DescribeEnvironment(ctx context.Context) string {
	desc, err := c.env.Describe(ctx)
	if err != nil {
		c.emit(lifecycle.EventSystem, lifecycle.LevelError,
			fmt.Sprintf("environment description failed: %v", err), nil)
		c.logger.Error("environment description failed", "run_id", c.runID, "error", err)
		return ""
	}
	c.emit(lifecycle.EventSystem, lifecycle.LevelInfo, "environment described", map[string]any{
		"environment": c.cfg.Environment,
		"description": desc,
	})
	return desc
}

// Start emits the start record and launches the iteration loop.
// Starting a running simulation has no effect; starting after Stop is
// an error, a controller drives exactly one run.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrNotRunning
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	c.mu.Unlock()

	c.emit(lifecycle.EventStart, lifecycle.LevelInfo, "simulation started", map[string]any{
		"iterations":          c.cfg.Iterations,
		"mode":                c.cfg.Mode,
		"num_sentients":       c.cfg.NumSentients,
		"num_non_sentients":   c.cfg.NumNonSentients,
		"max_population_size": c.cfg.MaxPopulationSize,
	})
	c.logger.Info("simulation started", "run_id", c.runID, "name", c.cfg.Name, "iterations", c.cfg.Iterations)

	go c.run(ctx)
	return nil
}

// Pause holds the loop before its next iteration. It may be called
// before Start, in which case the run begins paused. Pausing an already
// paused simulation is a no-op; pausing a stopped one is an error.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrNotRunning
	}
	if c.paused {
		c.mu.Unlock()
		return nil
	}
	c.paused = true
	iter := c.iteration
	c.mu.Unlock()

	if !c.emitLive(lifecycle.EventPause, lifecycle.LevelInfo, "simulation paused", map[string]any{"iteration": iter}) {
		// Lost the race against Stop; the stop record stays last.
		return ErrNotRunning
	}
	c.logger.Info("simulation paused", "run_id", c.runID, "iteration", iter)
	return nil
}

// Resume releases a paused loop. Resuming a simulation that is not
// paused is a no-op; resuming a stopped one is an error.
func (c *Controller) Resume() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return ErrNotRunning
	}
	if !c.paused {
		c.mu.Unlock()
		return nil
	}
	c.paused = false
	iter := c.iteration
	c.mu.Unlock()

	if !c.emitLive(lifecycle.EventResume, lifecycle.LevelInfo, "simulation resumed", map[string]any{"iteration": iter}) {
		return ErrNotRunning
	}
	c.logger.Info("simulation resumed", "run_id", c.runID, "iteration", iter)

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Stop ends the simulation: it emits the stop record, flushes the
// writer, and closes Done. Stopping twice is a no-op.
func (c *Controller) Stop() error {
	return c.stop("stop requested")
}

func (c *Controller) stop(reason string) error {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return ErrNotRunning
	}
	c.mu.Unlock()

	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.stopped = true
		c.paused = false
		iter := c.iteration
		c.mu.Unlock()

		c.emit(lifecycle.EventStop, lifecycle.LevelInfo, "simulation stopped", map[string]any{
			"reason":               reason,
			"iterations_completed": iter,
		})
		if f, ok := c.writer.(flushableWriter); ok {
			if err := f.Flush(); err != nil {
				c.logger.Error("writer flush failed", "run_id", c.runID, "error", err)
			}
		}
		c.logger.Info("simulation stopped", "run_id", c.runID, "reason", reason, "iterations", iter)
		close(c.done)
	})
	return nil
}

// emit writes one record to the writer, then publishes it on the bus.
// Emissions are serialized so record order is identical everywhere.
func (c *Controller) emit(event lifecycle.EventType, level, message string, data map[string]any) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	c.emitLocked(event, level, message, data)
}

// emitLive emits only while the run has not stopped. The stopped check
// and the emission share the emit lock, so once the stop record is out
// no loop record can land after it. It reports whether the record was
// emitted.
func (c *Controller) emitLive(event lifecycle.EventType, level, message string, data map[string]any) bool {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if c.isStopped() {
		return false
	}
	c.emitLocked(event, level, message, data)
	return true
}

func (c *Controller) emitLocked(event lifecycle.EventType, level, message string, data map[string]any) {
	rec := lifecycle.Record{
		RunID:     c.runID,
		Name:      c.cfg.Name,
		Event:     event,
		Level:     level,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	if c.writer != nil {
		if err := c.writer.Write(rec); err != nil {
			c.logger.Error("record write failed", "event", event, "error", err)
		}
	}
	if err := c.eventBus.Publish(rec); err != nil {
		c.logger.Error("bus delivery failed", "event", event, "error", err)
	}
}
