package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AdiPat/ai-simulator/internal/config"
	"github.com/AdiPat/ai-simulator/internal/llm"
	"github.com/AdiPat/ai-simulator/internal/sim"
	"github.com/AdiPat/ai-simulator/internal/world"
)

var (
	describeConfigPath string
	describeSchemaPath string
	describeNarrate    bool
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print a natural-language description of the configured environment",
	Long:  "describe resolves the simulation config and prints the environment description without starting a run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(describeConfigPath, describeSchemaPath)
		if err != nil {
			return err
		}

		var client llm.Client
		if describeNarrate {
			client = llm.NewHTTPClientFromEnv(cfg.Temperature)
		}
		engine := world.NewEngine(*cfg, client, 0)

		ctrl, err := sim.NewController(*cfg, engine, sim.NewStdinConsole(), nil, nil, slog.Default())
		if err != nil {
			return err
		}
		desc := ctrl.DescribeEnvironment(cmd.Context())
		if desc == "" {
			return fmt.Errorf("environment description unavailable")
		}
		fmt.Println(desc)
		return nil
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	describeCmd.Flags().StringVar(&describeSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	describeCmd.Flags().BoolVar(&describeNarrate, "narrate", false, "Describe through the configured LLM endpoint")
}
