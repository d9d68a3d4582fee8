// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/aydarnuman/ProCheff-New-sub000/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, truncate(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// tl formats an amount as Turkish lira
func tl(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2) + " TL"
}

// PrintSimulation outputs the cost breakdown and pricing of a simulation.
func (p *Printer) PrintSimulation(out *types.SimulationOutput) {
	if out == nil {
		return
	}

	var sb strings.Builder
	in := out.Input
	sb.WriteString(fmt.Sprintf("Persons:      %d x %d meals, %d days\n", in.Persons, in.MealsPerDay, in.DurationDays))
	sb.WriteString(fmt.Sprintf("Service days: %.2f\n\n", out.ServiceDays))

	sb.WriteString(fmt.Sprintf("Material:     %s (%s/day)\n", tl(out.Material.Total), tl(out.Material.Daily)))
	sb.WriteString(fmt.Sprintf("Labor:        %s (%s/day)\n", tl(out.Labor.Total), tl(out.Labor.Daily)))
	sb.WriteString(fmt.Sprintf("Overhead:     %s (%.1f%%)\n", tl(out.Overhead.Total), out.OverheadPct))
	if out.Maintenance != nil {
		sb.WriteString(fmt.Sprintf("Maintenance:  %s\n", tl(out.Maintenance.Total)))
	}
	sb.WriteString(fmt.Sprintf("Project total: %s\n", tl(out.ProjectTotal)))
	sb.WriteString(fmt.Sprintf("Recommended:  %s (margin %.1f%%)\n\n", tl(out.RecommendedPrice), out.ProfitMarginPct))

	sb.WriteString(fmt.Sprintf("Risk:         %s (score %d)\n", out.Risk.Tier, out.Risk.Score))
	count := min(len(out.Risk.Factors), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", out.Risk.Factors[i]))
	}
	if len(out.Risk.Factors) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(out.Risk.Factors)-maxItemsToShow))
	}
	sb.WriteString(fmt.Sprintf("Confidence:   %.2f", out.Confidence))

	p.printBox("COST SIMULATION", sb.String())
	p.PrintKIKAnalysis(&out.KIKAnalysis)
}

// PrintKIKAnalysis outputs the threshold and compliance verdict.
func (p *Printer) PrintKIKAnalysis(a *types.KIKAnalysis) {
	if a == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Threshold:    %s\n", tl(a.Threshold)))
	sb.WriteString(fmt.Sprintf("K factor:     %.2f\n", a.KFactor))
	sb.WriteString(fmt.Sprintf("Base value:   %s\n", tl(a.BaseValue)))
	sb.WriteString(fmt.Sprintf("ADT:          %s\n", yesNo(a.IsADT)))
	sb.WriteString(fmt.Sprintf("Explanation:  %s\n", yesNo(a.ExplanationRequired)))
	sb.WriteString(fmt.Sprintf("Risk level:   %s (deviation %.2f%%)", a.RiskLevel, a.DeviationPercentage))
	if a.AuditTrail.Fingerprint != "" {
		sb.WriteString(fmt.Sprintf("\nFingerprint:  %s", a.AuditTrail.Fingerprint))
	}

	p.printBox("KİK THRESHOLD ANALYSIS", sb.String())
}

// PrintADTStatus outputs the verdict for a single price.
func (p *Printer) PrintADTStatus(price, threshold float64, status *types.ADTStatus) {
	if status == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Price:        %s\n", tl(price)))
	sb.WriteString(fmt.Sprintf("Threshold:    %s\n", tl(threshold)))
	sb.WriteString(fmt.Sprintf("Ratio:        %.4f\n", status.Ratio))
	sb.WriteString(fmt.Sprintf("ADT:          %s\n", yesNo(status.IsADT)))
	sb.WriteString(fmt.Sprintf("Explanation:  %s\n", yesNo(status.ExplanationRequired)))
	sb.WriteString(fmt.Sprintf("Risk level:   %s (deviation %.2f%%)", status.RiskLevel, status.DeviationPercentage))

	p.printBox("ADT CHECK", sb.String())
}

// PrintExplanation outputs the justification blocks of an explanation.
func (p *Printer) PrintExplanation(e *types.ADTExplanation) {
	if e == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Price %s vs threshold %s, risk %s\n\n", tl(e.Price), tl(e.Threshold), e.RiskLevel))
	for _, j := range e.Justifications {
		sb.WriteString(fmt.Sprintf("%s: %s (%.1f%% of base)\n", j.Category, tl(j.Amount), j.ShareOfBase*100))
		sb.WriteString(fmt.Sprintf("  %s\n", j.CalculationMethod))
	}
	if len(e.Citations) > 0 {
		sb.WriteString("\nCitations:\n")
		for _, c := range e.Citations {
			sb.WriteString(fmt.Sprintf("  [%s] %s\n", c.ID, c.Title))
		}
	}
	if len(e.MitigationMeasures) > 0 {
		sb.WriteString("\nMitigation:\n")
		for _, m := range e.MitigationMeasures {
			sb.WriteString(fmt.Sprintf("  • %s\n", m))
		}
	}

	p.printBox("ADT EXPLANATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintGuardEvaluation outputs blockers, warnings and missing data.
func (p *Printer) PrintGuardEvaluation(e *types.GuardEvaluation) {
	if e == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Step:         %s\n", e.Step))
	sb.WriteString(fmt.Sprintf("Can proceed:  %s (confidence %.2f)\n", yesNo(e.CanProceed), e.OverallConfidence))
	for _, b := range e.Blockers {
		sb.WriteString(fmt.Sprintf("✗ %s: %s\n", b.Name, b.Message))
	}
	for _, w := range e.Warnings {
		sb.WriteString(fmt.Sprintf("! %s: %s\n", w.Name, w.Message))
	}
	for _, ok := range e.Passed {
		sb.WriteString(fmt.Sprintf("✓ %s\n", ok.Name))
	}
	if len(e.Missing) > 0 {
		sb.WriteString(fmt.Sprintf("Missing:      %s\n", strings.Join(e.Missing, ", ")))
	}

	p.printBox("GUARD EVALUATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobResults outputs one line per step result.
func (p *Printer) PrintJobResults(results []*types.JobResult) {
	if len(results) == 0 {
		return
	}

	var sb strings.Builder
	for _, r := range results {
		mark := "✓"
		if !r.Success {
			mark = "✗"
		}
		sb.WriteString(fmt.Sprintf("%s %-20s %-14s %dms\n", mark, r.Step, r.Status, r.Duration.Milliseconds()))
		if r.ErrorCode != "" {
			sb.WriteString(fmt.Sprintf("    %s: %s\n", r.ErrorCode, r.Error))
		}
		if len(r.Missing) > 0 {
			sb.WriteString(fmt.Sprintf("    missing: %s\n", strings.Join(r.Missing, ", ")))
		}
	}

	p.printBox("PIPELINE STEPS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintJobs outputs the stored ledger rows of a document in the given order.
func (p *Printer) PrintJobs(docHash string, jobs []types.PipelineJob) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document: %s\n\n", truncate(docHash, 24)))
	if len(jobs) == 0 {
		sb.WriteString("no jobs recorded")
	}
	for _, j := range jobs {
		sb.WriteString(fmt.Sprintf("%-20s %-14s retries %d/%d\n", j.Step, j.Status, j.RetryCount, j.MaxRetries))
		if j.ErrorMessage != nil {
			sb.WriteString(fmt.Sprintf("    %s\n", *j.ErrorMessage))
		}
	}

	p.printBox("PIPELINE STATUS", strings.TrimSuffix(sb.String(), "\n"))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
