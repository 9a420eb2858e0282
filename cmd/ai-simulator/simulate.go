package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
	"golang.org/x/term"

	"github.com/AdiPat/ai-simulator/internal/admin"
	"github.com/AdiPat/ai-simulator/internal/bus"
	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/llm"
	"github.com/AdiPat/ai-simulator/internal/logging"
	"github.com/AdiPat/ai-simulator/internal/scenario"
	"github.com/AdiPat/ai-simulator/internal/sim"
	"github.com/AdiPat/ai-simulator/internal/tui"
	"github.com/AdiPat/ai-simulator/internal/world"
)

var (
	simPrintOnly  bool
	simConfigPath string
	simSchemaPath string
	simLogFile    string
	simAdminAddr  string
	simArc        string
	simTUI        bool
	simNarrate    bool
	simSeed       int64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the interactive world simulation",
	Long:  "simulate starts a turn-based world simulation that waits for operator input before each iteration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		logger := slog.Default()

		var client llm.Client
		if simNarrate {
			client = llm.NewHTTPClientFromEnv(cfg.Temperature)
		}
		engine := world.NewEngine(*cfg, client, simSeed)
		if simArc != "" {
			arc, err := loadArc(simArc)
			if err != nil {
				return err
			}
			engine.UseArc(arc)
		}

		useTUI := simTUI
		if useTUI && (!term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd()))) {
			logger.Warn("not a terminal, falling back to line console")
			useTUI = false
		}

		writer, cleanup, err := newWriters(cfg, simPrintOnly, useTUI, simLogFile)
		if err != nil {
			return err
		}
		atexit.Register(cleanup)

		eventBus := bus.New()

		var console sim.Console
		var dash *tui.Dashboard
		if useTUI {
			dash = tui.New(cfg)
			eventBus.Register(dash)
			console = dash
		} else {
			console = sim.NewStdinConsole()
		}

		ctrl, err := sim.NewController(*cfg, engine, console, writer, eventBus, logger)
		if err != nil {
			return err
		}
		if dash != nil {
			dash.AttachControls(ctrl)
		}

		ctx, cancel := context.WithCancel(logging.NewContext(cmd.Context(), logger))
		defer cancel()

		if simAdminAddr != "" {
			srv := admin.NewServer(ctrl, cfg, logger)
			eventBus.Register(srv.Feed())
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					logger.Error("admin server failed", "error", err)
				}
			}()
		}

		if err := ctrl.Start(ctx); err != nil {
			return err
		}

		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		select {
		case <-sigs:
			_ = ctrl.Stop()
			<-ctrl.Done()
		case <-ctrl.Done():
		}
		cancel()
		if dash != nil {
			_ = dash.Close()
		}
		logger.Info("simulation finished", "run_id", ctrl.RunID(), "iterations", ctrl.Iteration())
		return nil
	},
}

// loadArc resolves a built-in arc id first and falls back to reading a
// YAML arc definition from the given path.
func loadArc(nameOrPath string) (*scenario.Arc, error) {
	if arc, ok := scenario.BuiltIn()[nameOrPath]; ok {
		return &arc, nil
	}
	return scenario.Load(nameOrPath)
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print records to STDOUT instead of writing to DB")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export lifecycle records (JSONL)")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin", "", "Serve the admin UI on this address (e.g. :8080)")
	simulateCmd.Flags().StringVar(&simArc, "arc", "", "Story arc: built-in id (genesis, cataclysm, withering) or YAML path")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Render a live dashboard instead of plain output")
	simulateCmd.Flags().BoolVar(&simNarrate, "narrate", false, "Narrate events through the configured LLM endpoint")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 0, "World RNG seed (0 derives one from the clock)")
}
