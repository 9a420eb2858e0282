package main

import (
	"log/slog"
	"os"

	"golang.org/x/term"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/sim"
)

// newWriters picks record writers from flags and environment. Records
// go to STDOUT unless GREPTIMEDB_ENDPOINT or SQLITE_PATH selects a
// database; quiet suppresses the STDOUT writer so a TUI owns the
// screen. The returned cleanup closes everything and is safe to
// register with atexit.
func newWriters(cfg *config.SimulationConfig, printOnly, quiet bool, logFile string) (sim.RecordWriter, func(), error) {
	var writers []sim.RecordWriter
	var closers []func() error

	if printOnly || (os.Getenv("GREPTIMEDB_ENDPOINT") == "" && os.Getenv("SQLITE_PATH") == "") {
		if !quiet {
			writers = append(writers, stdoutWriter(cfg))
		}
	} else {
		if endpoint := os.Getenv("GREPTIMEDB_ENDPOINT"); endpoint != "" {
			w, err := sim.NewGreptimeDBWriter(endpoint, "public")
			if err != nil {
				return nil, nil, err
			}
			writers = append(writers, w)
		}
		if path := os.Getenv("SQLITE_PATH"); path != "" {
			w, err := sim.NewSQLiteWriter(path)
			if err != nil {
				return nil, nil, err
			}
			writers = append(writers, w)
			closers = append(closers, w.Close)
		}
	}

	if logFile != "" {
		fw, err := sim.NewFileWriter(logFile)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, fw)
		closers = append(closers, fw.Close)
	}

	cleanup := func() {
		for _, close := range closers {
			if err := close(); err != nil {
				slog.Warn("writer close failed", "error", err)
			}
		}
	}

	switch len(writers) {
	case 0:
		// The controller tolerates a nil writer; records still reach
		// bus sinks.
		return nil, cleanup, nil
	case 1:
		return writers[0], cleanup, nil
	}
	return sim.NewMultiWriter(writers...), cleanup, nil
}

// stdoutWriter prefers the colored renderer on a real terminal.
func stdoutWriter(cfg *config.SimulationConfig) sim.RecordWriter {
	if cfg != nil && term.IsTerminal(int(os.Stdout.Fd())) {
		return sim.NewColorStdoutWriter(cfg)
	}
	return sim.NewStdoutWriter()
}
