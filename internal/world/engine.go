package world

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/llm"
	"github.com/AdiPat/ai-simulator/internal/logging"
	"github.com/AdiPat/ai-simulator/internal/scenario"
)

// Engine evolves the simulated world one event at a time. Seed records
// from the config are drained first, then events are drawn from the
// configured probabilities. A nil LLM client disables narration; the
// template descriptions are used as-is.
type Engine struct {
	cfg config.SimulationConfig
	llm llm.Client

	mu           sync.Mutex
	rng          *rand.Rand
	sentients    int
	nonSentients int
	pendingSeeds []map[string]any
	iteration    int
	arc          *scenario.Arc
	phase        string
}

// NewEngine creates an engine for the configured world. A zero seed
// derives one from the wall clock.
func NewEngine(cfg config.SimulationConfig, client llm.Client, seed int64) *Engine {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Engine{
		cfg:          cfg,
		llm:          client,
		rng:          rand.New(rand.NewSource(seed)),
		sentients:    cfg.NumSentients,
		nonSentients: cfg.NumNonSentients,
		pendingSeeds: append([]map[string]any(nil), cfg.Data...),
	}
}

// Populations returns the current sentient and non-sentient counts.
func (e *Engine) Populations() (sentients, nonSentients int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sentients, e.nonSentients
}

// UseArc attaches a story arc. The engine starts in the arc's first
// phase and advances through its triggers as the world evolves.
func (e *Engine) UseArc(arc *scenario.Arc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.arc = arc
	e.phase = ""
	if arc != nil {
		e.phase = arc.First()
	}
}

// Phase returns the active arc phase name, or "" when no arc is set.
func (e *Engine) Phase() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// NextEvent produces the next world development. Pending seed records
// are replayed first; afterwards one roll selects between god events,
// spawns, extinctions, and encounters.
func (e *Engine) NextEvent(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	default:
	}

	e.mu.Lock()
	evt := Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
	}

	if len(e.pendingSeeds) > 0 {
		rec := e.pendingSeeds[0]
		e.pendingSeeds = e.pendingSeeds[1:]
		evt.Type = EventSeed
		evt.Description = seedDescription(rec)
	} else {
		god := e.godProbability()
		spawn := e.spawnRate()
		roll := e.rng.Float64()
		switch {
		case roll < god:
			evt.Type = EventGod
			e.applyGodEvent(&evt)
		case roll < god+spawn:
			evt.Type = EventSpawn
			e.applySpawn(&evt)
		case roll < god+spawn*1.5 && e.sentients+e.nonSentients > 0:
			evt.Type = EventExtinction
			e.applyExtinction(&evt)
		default:
			evt.Type = EventEncounter
			evt.Description = fmt.Sprintf(e.pick(encounterScenes), e.speciesName(), e.speciesName())
		}
	}
	e.iteration++
	e.advancePhase(&evt)
	evt.Sentients = e.sentients
	evt.NonSentients = e.nonSentients
	e.mu.Unlock()

	e.narrate(ctx, &evt)

	logging.FromContext(ctx).Debug("world event generated",
		"event_id", evt.ID,
		"type", evt.Type,
		"sentients", evt.Sentients,
		"non_sentients", evt.NonSentients)
	return evt, nil
}

// godProbability doubles in chaos mode and scales with the arc phase
// bias, capped at certainty.
func (e *Engine) godProbability() float64 {
	p := e.cfg.GodEventProbability
	if strings.EqualFold(e.cfg.Mode, config.ModeChaos) {
		p *= 2
	}
	if b := e.phaseBias(); b.GodEventFactor != 0 {
		p *= b.GodEventFactor
	}
	if p > 1 {
		p = 1
	}
	return p
}

// spawnRate scales the configured spawn rate with the arc phase bias,
// capped at certainty.
func (e *Engine) spawnRate() float64 {
	r := e.cfg.SpawnRate
	if b := e.phaseBias(); b.SpawnFactor != 0 {
		r *= b.SpawnFactor
	}
	if r > 1 {
		r = 1
	}
	return r
}

// phaseBias returns the active phase's bias; the caller holds e.mu.
func (e *Engine) phaseBias() scenario.Bias {
	if e.arc == nil {
		return scenario.Bias{}
	}
	p, ok := e.arc.Phase(e.phase)
	if !ok {
		return scenario.Bias{}
	}
	return p.Bias
}

// advancePhase fires arc triggers against the world state and, on a
// transition, announces the new age through the event notice. The
// caller holds e.mu.
func (e *Engine) advancePhase(evt *Event) {
	if e.arc == nil {
		return
	}
	obs := scenario.Observation{
		Iteration:    e.iteration,
		Sentients:    e.sentients,
		NonSentients: e.nonSentients,
	}
	next, ok := e.arc.NextPhase(e.phase, obs)
	if !ok {
		return
	}
	e.phase = next
	notice := fmt.Sprintf("a new age begins: %s", next)
	if p, ok := e.arc.Phase(next); ok && p.Description != "" {
		notice = fmt.Sprintf("a new age begins: %s", p.Description)
	}
	if evt.Notice != "" {
		evt.Notice += "; " + notice
	} else {
		evt.Notice = notice
	}
}

func (e *Engine) applySpawn(evt *Event) {
	name := e.speciesName()
	if e.rng.Intn(2) == 0 {
		e.sentients++
		evt.Description = fmt.Sprintf("A new sentient species, the %s, awakens.", name)
	} else {
		e.nonSentients++
		evt.Description = fmt.Sprintf("The %s, a creature without reason, crawls into being.", name)
	}
	e.clampPopulation(evt)
}

func (e *Engine) applyExtinction(evt *Event) {
	name := e.speciesName()
	if e.sentients > 0 && (e.nonSentients == 0 || e.rng.Intn(2) == 0) {
		e.sentients--
		evt.Description = fmt.Sprintf("The last of the sentient %s dies out.", name)
	} else {
		e.nonSentients--
		evt.Description = fmt.Sprintf("The %s vanish from the world entirely.", name)
	}
}

func (e *Engine) applyGodEvent(evt *Event) {
	if e.rng.Intn(2) == 0 {
		lost := 0
		if e.sentients > 0 {
			n := e.rng.Intn(e.sentients/2 + 1)
			e.sentients -= n
			lost += n
		}
		if e.nonSentients > 0 {
			n := e.rng.Intn(e.nonSentients/2 + 1)
			e.nonSentients -= n
			lost += n
		}
		evt.Description = fmt.Sprintf("%s %d beings perish.", e.pick(godCatastrophes), lost)
		return
	}
	gain := e.rng.Intn(e.cfg.MaxPopulationSize/10+1) + 1
	if e.rng.Intn(2) == 0 {
		e.sentients += gain
	} else {
		e.nonSentients += gain
	}
	evt.Description = fmt.Sprintf("%s %d beings flourish into existence.", e.pick(godBoons), gain)
	e.clampPopulation(evt)
}

// clampPopulation sheds overflow beyond the configured cap from the
// larger population and marks the event with a notice.
func (e *Engine) clampPopulation(evt *Event) {
	over := e.sentients + e.nonSentients - e.cfg.MaxPopulationSize
	if over <= 0 {
		return
	}
	if e.sentients >= e.nonSentients {
		e.sentients -= over
	} else {
		e.nonSentients -= over
	}
	evt.Notice = fmt.Sprintf("population cap of %d reached", e.cfg.MaxPopulationSize)
}

func (e *Engine) speciesName() string {
	return e.pick(namePrefixes) + e.pick(nameSuffixes)
}

func (e *Engine) pick(list []string) string {
	return list[e.rng.Intn(len(list))]
}

// narrate replaces the template description with an LLM retelling when
// a client is configured. Narration failures keep the template text.
func (e *Engine) narrate(ctx context.Context, evt *Event) {
	if e.llm == nil {
		return
	}
	out, err := e.llm.Complete(ctx, narrationPrompt(e.cfg, *evt))
	if err != nil {
		logging.FromContext(ctx).Debug("narration unavailable, keeping template description", "error", err)
		return
	}
	if out != "" {
		evt.Description = out
	}
}

var namePrefixes = []string{"ember", "glass", "moss", "pale", "thorn", "silver", "hollow", "brine"}

var nameSuffixes = []string{"wing", "stalker", "drifter", "shell", "singer", "root", "maw", "herd"}

var encounterScenes = []string{
	"A band of %s circles a lone %s at the waterline.",
	"The %s and the %s cross paths and part unharmed.",
	"A young %s watches a %s from a safe distance.",
	"The %s drive a %s away from their feeding grounds.",
}

var godCatastrophes = []string{
	"A burning stone falls from the sky.",
	"The ground splits and swallows the lowlands.",
	"A creeping sickness spreads through every den and nest.",
	"The sea rises without warning.",
}

var godBoons = []string{
	"An impossible season of plenty begins.",
	"Warm rains wake life in the barren places.",
	"A second spring arrives out of order.",
	"The world exhales, and new life stirs.",
}
