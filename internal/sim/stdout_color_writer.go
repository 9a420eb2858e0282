// ColorStdoutWriter prints human-friendly, colorized records to STDOUT.
package sim

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

var eventColors = map[lifecycle.EventType]string{
	lifecycle.EventStart:  colorGreen,
	lifecycle.EventStop:   colorRed,
	lifecycle.EventPause:  colorYellow,
	lifecycle.EventResume: colorCyan,
	lifecycle.EventSystem: colorBlue,
}

// ColorStdoutWriter prints lifecycle records using ANSI colors. The
// first write is preceded by a configuration overview.
type ColorStdoutWriter struct {
	cfg  *config.SimulationConfig
	out  io.Writer
	once sync.Once
}

// NewColorStdoutWriter creates a ColorStdoutWriter writing to os.Stdout.
func NewColorStdoutWriter(cfg *config.SimulationConfig) *ColorStdoutWriter {
	return &ColorStdoutWriter{cfg: cfg, out: os.Stdout}
}

func (w *ColorStdoutWriter) printOverview() {
	if w.cfg == nil {
		return
	}

	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", w.cfg.Name)
	fmt.Fprintf(tw, "Description:\t%s\n", w.cfg.Description)
	fmt.Fprintf(tw, "Mode:\t%s\n", w.cfg.Mode)
	fmt.Fprintf(tw, "Iterations:\t%d\n", w.cfg.Iterations)
	fmt.Fprintf(tw, "Sentients:\t%d\n", w.cfg.NumSentients)
	fmt.Fprintf(tw, "Non-Sentients:\t%d\n", w.cfg.NumNonSentients)
	fmt.Fprintf(tw, "Max Population:\t%d\n", w.cfg.MaxPopulationSize)
	fmt.Fprintf(tw, "God Event Probability:\t%.2f\n", w.cfg.GodEventProbability)
	fmt.Fprintf(tw, "Spawn Rate:\t%.2f\n", w.cfg.SpawnRate)
	fmt.Fprintf(tw, "Temperature:\t%.2f\n", w.cfg.Temperature)
	tw.Flush()

	fmt.Fprintln(w.out, "\nEnvironment:")
	tw = tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	keys := make([]string, 0, len(w.cfg.Environment))
	for k := range w.cfg.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s%s%s\t%v\n", colorCyan, k, colorReset, w.cfg.Environment[k])
	}
	tw.Flush()
	fmt.Fprintln(w.out)
}

// Write outputs a single record in colorized format.
func (w *ColorStdoutWriter) Write(rec lifecycle.Record) error {
	w.once.Do(w.printOverview)

	evColor, ok := eventColors[rec.Event]
	if !ok {
		evColor = colorMagenta
	}
	if rec.IsError() {
		evColor = colorRed
	}

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, rec.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%s%s%s ", evColor, rec.Event, colorReset)
	if rec.Level != "" && rec.Level != lifecycle.LevelInfo {
		fmt.Fprintf(w.out, "%s%s%s ", colorRed, rec.Level, colorReset)
	}
	fmt.Fprintf(w.out, "%s", rec.Message)

	if it, ok := rec.Data["iteration"]; ok {
		fmt.Fprintf(w.out, " %siteration=%v%s", colorGray, it, colorReset)
	}
	if s, ok := rec.Data["sentients"]; ok {
		fmt.Fprintf(w.out, " %ssentients=%v%s", colorGreen, s, colorReset)
	}
	if n, ok := rec.Data["non_sentients"]; ok {
		fmt.Fprintf(w.out, " %snon_sentients=%v%s", colorYellow, n, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple records.
func (w *ColorStdoutWriter) WriteBatch(recs []lifecycle.Record) error {
	for _, r := range recs {
		_ = w.Write(r)
	}
	return nil
}
