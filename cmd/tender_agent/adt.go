package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/compliance"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/costing"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/observability"
	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

var adtCmd = &cobra.Command{
	Use:   "adt",
	Short: "Abnormally low tender (aşırı düşük teklif) checks",
}

var adtCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify a bid price against a KİK threshold",
	RunE:  runADTCheck,
}

var adtExplainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Generate the justification document for a bid price",
	Long:  "Runs the simulation for the input file and builds the ADT explanation for --price, or for the recommended price when --price is not set.",
	RunE:  runADTExplain,
}

var (
	adtPrice     float64
	adtThreshold float64
	adtInput     string
	adtOutput    string
	adtVerbose   bool
)

// ADTCheckResult is the output of adt check
type ADTCheckResult struct {
	Price     float64         `json:"price"`
	Threshold float64         `json:"threshold"`
	Status    types.ADTStatus `json:"status"`
}

func init() {
	adtCheckCmd.Flags().Float64Var(&adtPrice, "price", 0, "Bid price (required)")
	adtCheckCmd.Flags().Float64Var(&adtThreshold, "threshold", 0, "KİK threshold (required)")
	adtCheckCmd.Flags().StringVarP(&adtOutput, "output", "o", formatJSON, "Output format (json or yaml)")
	adtCheckCmd.Flags().BoolVarP(&adtVerbose, "verbose", "v", false, "Print a formatted summary to stderr")
	for _, name := range []string{"price", "threshold"} {
		if err := adtCheckCmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("failed to mark %s flag as required: %v", name, err))
		}
	}

	adtExplainCmd.Flags().StringVarP(&adtInput, "input", "i", "", "Path to simulation input JSON or YAML (required)")
	adtExplainCmd.Flags().Float64Var(&adtPrice, "price", 0, "Bid price; defaults to the recommended price")
	adtExplainCmd.Flags().StringVarP(&adtOutput, "output", "o", formatJSON, "Output format (json or yaml)")
	adtExplainCmd.Flags().BoolVarP(&adtVerbose, "verbose", "v", false, "Print a formatted summary to stderr")
	if err := adtExplainCmd.MarkFlagRequired("input"); err != nil {
		panic(fmt.Sprintf("failed to mark input flag as required: %v", err))
	}

	adtCmd.AddCommand(adtCheckCmd, adtExplainCmd)
	rootCmd.AddCommand(adtCmd)
}

func runADTCheck(cmd *cobra.Command, _ []string) error {
	status, err := compliance.CheckStatus(adtPrice, adtThreshold)
	if err != nil {
		return err
	}
	if adtVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintADTStatus(adtPrice, adtThreshold, &status)
	}
	return writeOutput(cmd.OutOrStdout(), ADTCheckResult{Price: adtPrice, Threshold: adtThreshold, Status: status}, adtOutput)
}

func runADTExplain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	input, err := readSimulationInput(adtInput)
	if err != nil {
		return err
	}

	engine := costing.NewEngine(nil, costing.WithLogger(logger))
	out, err := engine.Simulate(input)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	price := out.RecommendedPrice
	if cmd.Flags().Changed("price") {
		price = adtPrice
	}
	explanation, err := engine.Analyzer().GenerateExplanationForPrice(out, price)
	if err != nil {
		return fmt.Errorf("failed to generate explanation: %w", err)
	}

	if adtVerbose {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintExplanation(explanation)
	}
	return writeOutput(cmd.OutOrStdout(), explanation, adtOutput)
}
