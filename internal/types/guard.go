package types

// GuardResult is the verdict of one guard condition. It is never persisted
// directly; only a summary lands in PipelineJob.Evidence.
type GuardResult struct {
	Name            string         `json:"name"`
	Required        bool           `json:"required"`
	Passed          bool           `json:"passed"`
	Confidence      float64        `json:"confidence"`
	Evidence        map[string]any `json:"evidence,omitempty"`
	Message         string         `json:"message"`
	Missing         []string       `json:"missing,omitempty"`
	BlockingIssues  []string       `json:"blocking_issues,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// GuardEvaluation aggregates all guard results for one step invocation
type GuardEvaluation struct {
	Step              StepName      `json:"step"`
	CanProceed        bool          `json:"can_proceed"`
	OverallConfidence float64       `json:"overall_confidence"`
	Blockers          []GuardResult `json:"blockers,omitempty"`
	Warnings          []GuardResult `json:"warnings,omitempty"`
	Passed            []GuardResult `json:"passed,omitempty"`
	Missing           []string      `json:"missing,omitempty"`
	Recommendations   []string      `json:"recommendations,omitempty"`
}

// BlockingMessages returns the blocker messages plus any blocking issues they carry
func (e *GuardEvaluation) BlockingMessages() []string {
	var out []string
	for _, b := range e.Blockers {
		out = append(out, b.Message)
		out = append(out, b.BlockingIssues...)
	}
	return out
}

// WarningMessages returns warning messages from optional guards and passed guards
func (e *GuardEvaluation) WarningMessages() []string {
	var out []string
	for _, w := range e.Warnings {
		out = append(out, w.Message)
	}
	for _, p := range e.Passed {
		out = append(out, p.Warnings...)
	}
	return out
}

// Summary is the compact form stored in ledger evidence
func (e *GuardEvaluation) Summary() map[string]any {
	passed := make([]string, 0, len(e.Passed))
	for _, p := range e.Passed {
		passed = append(passed, p.Name)
	}
	warned := make([]string, 0, len(e.Warnings))
	for _, w := range e.Warnings {
		warned = append(warned, w.Name)
	}
	return map[string]any{
		"can_proceed":        e.CanProceed,
		"overall_confidence": e.OverallConfidence,
		"passed":             passed,
		"warnings":           warned,
	}
}
