// Package report renders a post-run HTML summary from a lifecycle
// record log.
package report

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
	"github.com/AdiPat/ai-simulator/internal/sim"
)

//go:embed templates/report.html.tmpl
var content embed.FS

var tpl = template.Must(template.New("report.html.tmpl").Funcs(template.FuncMap{
	"fmtTime": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"fmtDuration": func(d time.Duration) string {
		return d.Round(time.Millisecond).String()
	},
}).ParseFS(content, "templates/report.html.tmpl"))

// Summary aggregates one run's lifecycle records for rendering.
type Summary struct {
	RunID             string
	Name              string
	StartedAt         time.Time
	StoppedAt         time.Time
	Duration          time.Duration
	PlannedIterations int
	Iterations        int
	StopReason        string
	Records           int
	Errors            int
	FinalSentients    int
	FinalNonSentients int
	Counts            map[lifecycle.EventType]int
	Timeline          []Row
}

// Row is one record in the rendered timeline. Population is empty for
// records that carry no population snapshot.
type Row struct {
	Time       time.Time
	Event      lifecycle.EventType
	Level      string
	Iteration  string
	Population string
	Message    string
	IsError    bool
}

// Build aggregates records into a Summary. Records are expected in log
// order, oldest first.
func Build(recs []lifecycle.Record) (Summary, error) {
	if len(recs) == 0 {
		return Summary{}, errors.New("no records to report")
	}
	s := Summary{
		RunID:     recs[0].RunID,
		Name:      recs[0].Name,
		StartedAt: recs[0].Timestamp,
		StoppedAt: recs[len(recs)-1].Timestamp,
		Counts:    map[lifecycle.EventType]int{},
		Timeline:  make([]Row, 0, len(recs)),
	}
	s.Duration = s.StoppedAt.Sub(s.StartedAt)

	maxIteration := 0
	for _, rec := range recs {
		s.Records++
		s.Counts[rec.Event]++
		if rec.IsError() {
			s.Errors++
		}
		switch rec.Event {
		case lifecycle.EventStart:
			if n, ok := intFromData(rec.Data, "iterations"); ok {
				s.PlannedIterations = n
			}
		case lifecycle.EventStop:
			if reason, ok := rec.Data["reason"].(string); ok {
				s.StopReason = reason
			}
			if n, ok := intFromData(rec.Data, "iterations_completed"); ok {
				s.Iterations = n
			}
		}
		row := Row{
			Time:    rec.Timestamp,
			Event:   rec.Event,
			Level:   rec.Level,
			Message: rec.Message,
			IsError: rec.IsError(),
		}
		if n, ok := intFromData(rec.Data, "iteration"); ok {
			row.Iteration = strconv.Itoa(n)
			if n > maxIteration {
				maxIteration = n
			}
		}
		sentients, haveSentients := intFromData(rec.Data, "sentients")
		nonSentients, haveNonSentients := intFromData(rec.Data, "non_sentients")
		if haveSentients && haveNonSentients {
			row.Population = fmt.Sprintf("%d / %d", sentients, nonSentients)
		}
		if haveSentients {
			s.FinalSentients = sentients
		}
		if haveNonSentients {
			s.FinalNonSentients = nonSentients
		}
		s.Timeline = append(s.Timeline, row)
	}

	// A log without a stop record still gets a best-effort iteration
	// count from the records themselves.
	if s.Iterations == 0 {
		s.Iterations = maxIteration
	}
	return s, nil
}

// Render reads the record log at logPath and writes an HTML report to
// outPath.
func Render(logPath, outPath string) error {
	var col collector
	if err := sim.ReplayLogFile(logPath, &col, 0); err != nil {
		return fmt.Errorf("read log: %w", err)
	}
	summary, err := Build(col.recs)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := tpl.Execute(f, summary); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// collector buffers replayed records in memory.
type collector struct {
	recs []lifecycle.Record
}

func (c *collector) Write(rec lifecycle.Record) error {
	c.recs = append(c.recs, rec)
	return nil
}

// intFromData reads a numeric data field. Values arrive as int from
// in-process records and as float64 once they round-trip through JSON.
func intFromData(data map[string]any, key string) (int, bool) {
	switch n := data[key].(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
