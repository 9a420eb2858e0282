package world

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/scenario"
)

func testConfig() config.SimulationConfig {
	cfg := config.Default()
	cfg.Name = "test-world"
	cfg.Environment = map[string]any{"terrain": "plains", "climate": "mild"}
	return cfg
}

type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func TestNextEvent_DrainsSeedDataFirst(t *testing.T) {
	cfg := testConfig()
	cfg.Data = []map[string]any{
		{"species": "trilobite", "population": 40},
		{"species": "anomalocaris"},
	}
	e := NewEngine(cfg, nil, 1)

	ctx := context.Background()
	for i, want := range []string{"trilobite", "anomalocaris"} {
		evt, err := e.NextEvent(ctx)
		if err != nil {
			t.Fatalf("NextEvent(%d) returned error: %v", i, err)
		}
		if evt.Type != EventSeed {
			t.Fatalf("event %d: expected seed, got %s", i, evt.Type)
		}
		if !strings.Contains(evt.Description, want) {
			t.Errorf("event %d: description %q missing %q", i, evt.Description, want)
		}
	}

	evt, err := e.NextEvent(ctx)
	if err != nil {
		t.Fatalf("NextEvent after seeds returned error: %v", err)
	}
	if evt.Type == EventSeed {
		t.Error("seed events should be exhausted after the data slice")
	}
}

func TestNextEvent_CarriesPopulations(t *testing.T) {
	cfg := testConfig()
	cfg.NumSentients = 7
	cfg.NumNonSentients = 3
	cfg.GodEventProbability = 0
	cfg.SpawnRate = 0
	e := NewEngine(cfg, nil, 42)

	evt, err := e.NextEvent(context.Background())
	if err != nil {
		t.Fatalf("NextEvent returned error: %v", err)
	}
	if evt.Type != EventEncounter {
		t.Fatalf("with zero probabilities expected encounter, got %s", evt.Type)
	}
	if evt.Sentients != 7 || evt.NonSentients != 3 {
		t.Errorf("expected populations 7/3, got %d/%d", evt.Sentients, evt.NonSentients)
	}
	if evt.ID == "" || evt.Timestamp.IsZero() {
		t.Error("event missing ID or timestamp")
	}
}

func TestNextEvent_CertainGodEvent(t *testing.T) {
	cfg := testConfig()
	cfg.GodEventProbability = 1
	e := NewEngine(cfg, nil, 7)

	for i := 0; i < 10; i++ {
		evt, err := e.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		if evt.Type != EventGod {
			t.Fatalf("iteration %d: expected god_event, got %s", i, evt.Type)
		}
		if evt.Sentients < 0 || evt.NonSentients < 0 {
			t.Fatalf("populations went negative: %d/%d", evt.Sentients, evt.NonSentients)
		}
	}
}

func TestNextEvent_ChaosDoublesGodProbability(t *testing.T) {
	cfg := testConfig()
	cfg.GodEventProbability = 0.5
	cfg.Mode = config.ModeChaos
	e := NewEngine(cfg, nil, 11)

	// Doubled 0.5 saturates to certainty, so every event is a god event.
	for i := 0; i < 10; i++ {
		evt, err := e.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		if evt.Type != EventGod {
			t.Fatalf("iteration %d: expected god_event in chaos mode, got %s", i, evt.Type)
		}
	}
}

func TestNextEvent_SpawnRespectsPopulationCap(t *testing.T) {
	cfg := testConfig()
	cfg.NumSentients = 3
	cfg.NumNonSentients = 2
	cfg.MaxPopulationSize = 5
	cfg.GodEventProbability = 0
	cfg.SpawnRate = 1
	e := NewEngine(cfg, nil, 3)

	evt, err := e.NextEvent(context.Background())
	if err != nil {
		t.Fatalf("NextEvent returned error: %v", err)
	}
	if evt.Type != EventSpawn {
		t.Fatalf("expected spawn, got %s", evt.Type)
	}
	if evt.Notice == "" {
		t.Error("expected population cap notice on event")
	}
	if total := evt.Sentients + evt.NonSentients; total != 5 {
		t.Errorf("expected total clamped to 5, got %d", total)
	}
}

func TestNextEvent_ExtinctionsOccurAndNeverGoNegative(t *testing.T) {
	cfg := testConfig()
	cfg.NumSentients = 2
	cfg.NumNonSentients = 2
	cfg.GodEventProbability = 0
	cfg.SpawnRate = 0.4 // extinction band covers rolls in [0.4, 0.6)
	e := NewEngine(cfg, nil, 99)

	sawExtinction := false
	for i := 0; i < 200; i++ {
		evt, err := e.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		if evt.Type == EventExtinction {
			sawExtinction = true
		}
		if evt.Sentients < 0 || evt.NonSentients < 0 {
			t.Fatalf("populations went negative at iteration %d: %d/%d", i, evt.Sentients, evt.NonSentients)
		}
	}
	if !sawExtinction {
		t.Error("expected at least one extinction over 200 iterations")
	}
}

func TestNextEvent_NoExtinctionInEmptyWorld(t *testing.T) {
	cfg := testConfig()
	cfg.NumSentients = 0
	cfg.NumNonSentients = 0
	cfg.GodEventProbability = 0
	cfg.SpawnRate = 0.4
	e := NewEngine(cfg, nil, 5)

	prevTotal := 0
	for i := 0; i < 100; i++ {
		evt, err := e.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		if evt.Type == EventExtinction && prevTotal == 0 {
			t.Fatalf("iteration %d: extinction generated for empty world", i)
		}
		prevTotal = evt.Sentients + evt.NonSentients
	}
}

func TestNextEvent_DeterministicWithSeed(t *testing.T) {
	cfg := testConfig()
	a := NewEngine(cfg, nil, 1234)
	b := NewEngine(cfg, nil, 1234)

	for i := 0; i < 20; i++ {
		ea, err := a.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		eb, err := b.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		if ea.Type != eb.Type || ea.Description != eb.Description {
			t.Fatalf("iteration %d diverged: %s %q vs %s %q", i, ea.Type, ea.Description, eb.Type, eb.Description)
		}
	}
}

func TestNextEvent_CancelledContext(t *testing.T) {
	e := NewEngine(testConfig(), nil, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.NextEvent(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNarration_ReplacesDescription(t *testing.T) {
	stub := &stubLLM{reply: "The heavens split open."}
	e := NewEngine(testConfig(), stub, 1)

	evt, err := e.NextEvent(context.Background())
	if err != nil {
		t.Fatalf("NextEvent returned error: %v", err)
	}
	if evt.Description != "The heavens split open." {
		t.Errorf("expected narrated description, got %q", evt.Description)
	}
	if stub.calls != 1 {
		t.Errorf("expected 1 LLM call, got %d", stub.calls)
	}
}

func TestNarration_FallsBackOnError(t *testing.T) {
	stub := &stubLLM{err: errors.New("unreachable")}
	e := NewEngine(testConfig(), stub, 1)

	evt, err := e.NextEvent(context.Background())
	if err != nil {
		t.Fatalf("NextEvent should not fail when narration fails, got: %v", err)
	}
	if evt.Description == "" {
		t.Error("expected template description to survive narration failure")
	}
}

func TestEnvironmentSummary_SortedAndStable(t *testing.T) {
	env := map[string]any{"terrain": "ocean", "climate": "humid", "era": "cambrian"}
	want := "climate: humid, era: cambrian, terrain: ocean"
	for i := 0; i < 5; i++ {
		if got := EnvironmentSummary(env); got != want {
			t.Fatalf("unexpected summary: %q", got)
		}
	}
}

func TestDescribe_WithoutLLM(t *testing.T) {
	cfg := testConfig()
	e := NewEngine(cfg, nil, 1)
	out, err := e.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if !strings.Contains(out, cfg.Name) || !strings.Contains(out, "terrain: plains") {
		t.Errorf("describe output missing world facts: %q", out)
	}
}

func TestDescribe_WithLLM(t *testing.T) {
	stub := &stubLLM{reply: "A quiet grassland world."}
	e := NewEngine(testConfig(), stub, 1)
	out, err := e.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe returned error: %v", err)
	}
	if out != "A quiet grassland world." {
		t.Errorf("expected narrated description, got %q", out)
	}
}

func TestNextEvent_ArcAdvancesPhases(t *testing.T) {
	cfg := testConfig()
	cfg.GodEventProbability = 0
	cfg.SpawnRate = 0
	e := NewEngine(cfg, nil, 8)
	if e.Phase() != "" {
		t.Fatalf("expected no phase before an arc is set, got %q", e.Phase())
	}
	e.UseArc(&scenario.Arc{
		Phases: []scenario.Phase{{
			Name:     "first",
			Triggers: []scenario.Trigger{{Event: "iteration", Value: 1, Next: "second"}},
		}, {
			Name:        "second",
			Description: "the land wakes",
		}},
	})
	if e.Phase() != "first" {
		t.Fatalf("expected arc to start in its first phase, got %q", e.Phase())
	}

	evt, err := e.NextEvent(context.Background())
	if err != nil {
		t.Fatalf("NextEvent returned error: %v", err)
	}
	if e.Phase() != "second" {
		t.Fatalf("expected transition to second, got %q", e.Phase())
	}
	if !strings.Contains(evt.Notice, "the land wakes") {
		t.Errorf("expected transition notice on event, got %q", evt.Notice)
	}
}

func TestNextEvent_ArcBiasSaturatesGodEvents(t *testing.T) {
	cfg := testConfig()
	cfg.GodEventProbability = 0.4
	e := NewEngine(cfg, nil, 21)
	e.UseArc(&scenario.Arc{
		Phases: []scenario.Phase{{
			Name: "wrath",
			Bias: scenario.Bias{GodEventFactor: 2.5},
		}},
	})

	// 0.4 scaled by 2.5 saturates to certainty.
	for i := 0; i < 10; i++ {
		evt, err := e.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		if evt.Type != EventGod {
			t.Fatalf("iteration %d: expected god_event under wrath bias, got %s", i, evt.Type)
		}
	}
}

func TestNextEvent_ArcBiasSaturatesSpawns(t *testing.T) {
	cfg := testConfig()
	cfg.GodEventProbability = 0
	cfg.SpawnRate = 0.5
	e := NewEngine(cfg, nil, 13)
	e.UseArc(&scenario.Arc{
		Phases: []scenario.Phase{{
			Name: "bloom",
			Bias: scenario.Bias{SpawnFactor: 2},
		}},
	})

	// 0.5 scaled by 2 saturates to certainty.
	for i := 0; i < 10; i++ {
		evt, err := e.NextEvent(context.Background())
		if err != nil {
			t.Fatalf("NextEvent returned error: %v", err)
		}
		if evt.Type != EventSpawn {
			t.Fatalf("iteration %d: expected spawn under bloom bias, got %s", i, evt.Type)
		}
	}
}

func TestDescribe_CompletionFailure(t *testing.T) {
	stub := &stubLLM{err: errors.New("model overloaded")}
	e := NewEngine(testConfig(), stub, 1)
	out, err := e.Describe(context.Background())
	if err == nil {
		t.Fatal("expected the completion failure to propagate")
	}
	if out != "" {
		t.Errorf("expected empty description on failure, got %q", out)
	}
}
