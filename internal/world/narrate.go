package world

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/logging"
)

// EnvironmentSummary renders an environment map as a stable,
// key-sorted single line.
func EnvironmentSummary(env map[string]any) string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, env[k]))
	}
	return strings.Join(parts, ", ")
}

// Describe returns a description of the configured world, narrated
// through the LLM when one is available. A completion failure is
// returned to the caller so it can apply its own fallback policy.
func (e *Engine) Describe(ctx context.Context) (string, error) {
	sentients, nonSentients := e.Populations()
	base := fmt.Sprintf("%s: %s Environment: %s. Populations: %d sentient, %d non-sentient.",
		e.cfg.Name, e.cfg.Description, EnvironmentSummary(e.cfg.Environment), sentients, nonSentients)
	if e.llm == nil {
		return base, nil
	}
	prompt := fmt.Sprintf("Describe the simulated world below in a single short paragraph.\n%s", base)
	out, err := e.llm.Complete(ctx, prompt)
	if err != nil {
		logging.FromContext(ctx).Debug("describe narration unavailable", "error", err)
		return "", fmt.Errorf("describe environment: %w", err)
	}
	if out == "" {
		return base, nil
	}
	return out, nil
}

func narrationPrompt(cfg config.SimulationConfig, evt Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You narrate the simulated world %q: %s\n", cfg.Name, cfg.Description)
	fmt.Fprintf(&b, "Environment: %s\n", EnvironmentSummary(cfg.Environment))
	fmt.Fprintf(&b, "Development (%s): %s\n", evt.Type, evt.Description)
	fmt.Fprintf(&b, "Populations now: %d sentient, %d non-sentient.\n", evt.Sentients, evt.NonSentients)
	b.WriteString("Retell this development in one or two vivid sentences.")
	return b.String()
}

func seedDescription(rec map[string]any) string {
	if len(rec) == 0 {
		return "Seed data took hold in the world."
	}
	return "Seed data took hold: " + EnvironmentSummary(rec) + "."
}
