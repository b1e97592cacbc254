// Package scan screens message bodies for smishing and scam indicators.
// Findings are advisory: they are surfaced alongside the verification
// result but never change a signature verdict.
package scan

import (
	"context"
	"fmt"

	"github.com/garagon/aguara"
)

// Verdict summarizes content findings.
type Verdict string

const (
	VerdictClean      Verdict = "clean"
	VerdictSuspicious Verdict = "suspicious"
	VerdictHighRisk   Verdict = "high-risk"
)

// Finding is a simplified detection result.
type Finding struct {
	RuleID   string `json:"rule_id"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Match    string `json:"match,omitempty"`
}

// Outcome holds the result of one content scan.
type Outcome struct {
	Verdict  Verdict
	Findings []Finding
}

// Scanner wraps the Aguara engine for in-process content scanning.
type Scanner struct {
	opts []aguara.Option
}

// NewScanner creates a scanner using Aguara's built-in rules plus, if
// customRulesDir is non-empty, rules from that directory.
func NewScanner(customRulesDir string, extraOpts ...aguara.Option) *Scanner {
	s := &Scanner{}
	if customRulesDir != "" {
		s.opts = append(s.opts, aguara.WithCustomRules(customRulesDir))
	}
	s.opts = append(s.opts, extraOpts...)
	return s
}

// Content scans a message body and returns a verdict.
func (s *Scanner) Content(ctx context.Context, content string) (*Outcome, error) {
	result, err := aguara.ScanContent(ctx, content, "message.txt", s.opts...)
	if err != nil {
		return nil, fmt.Errorf("aguara scan: %w", err)
	}

	outcome := &Outcome{Verdict: VerdictClean}
	for _, f := range result.Findings {
		outcome.Findings = append(outcome.Findings, Finding{
			RuleID:   f.RuleID,
			Name:     f.RuleName,
			Severity: f.Severity.String(),
			Match:    truncate(f.MatchedText, 200),
		})

		switch {
		case f.Severity >= aguara.SeverityHigh:
			outcome.Verdict = VerdictHighRisk
		case f.Severity >= aguara.SeverityMedium && outcome.Verdict == VerdictClean:
			outcome.Verdict = VerdictSuspicious
		}
	}
	return outcome, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
