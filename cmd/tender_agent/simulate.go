package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/costing"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/observability"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/schemas"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a cost simulation for a catering tender",
	Long:  "Computes material, labor, overhead and maintenance costs, the recommended price and the KİK threshold verdict for a simulation input file (JSON or YAML).",
	RunE:  runSimulate,
}

var (
	simulateInput   string
	simulateOutput  string
	simulateVerbose bool
)

func init() {
	simulateCmd.Flags().StringVarP(&simulateInput, "input", "i", "", "Path to simulation input JSON or YAML (required)")
	simulateCmd.Flags().StringVarP(&simulateOutput, "output", "o", formatJSON, "Output format (json or yaml)")
	simulateCmd.Flags().BoolVarP(&simulateVerbose, "verbose", "v", false, "Print a formatted summary to stderr")

	if err := simulateCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	input, err := readSimulationInput(simulateInput)
	if err != nil {
		return err
	}

	engine := costing.NewEngine(nil, costing.WithLogger(logger))
	out, err := engine.Simulate(input)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	if simulateVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintSimulation(out)
	}
	return writeOutput(cmd.OutOrStdout(), out, simulateOutput)
}

// readSimulationInput decodes a simulation input file after checking it
// against the simulation input schema
func readSimulationInput(path string) (types.SimulationInput, error) {
	var input types.SimulationInput
	var raw map[string]any
	if err := decodeFile(path, &raw); err != nil {
		return input, err
	}
	if err := schemas.ValidateSimulationInput(raw); err != nil {
		return input, fmt.Errorf("invalid simulation input %s: %w", path, err)
	}
	if err := decodeFile(path, &input); err != nil {
		return input, err
	}
	return input, nil
}
