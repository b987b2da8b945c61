// Package analyzer runs the two model-backed judgments of a compliance
// check: text analysis of extracted page content against jurisdiction
// rules, and screenshot-based verification of single rules.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/adcheck/llm"
	"github.com/hazyhaar/adcheck/rules"
)

// Overall statuses of a text analysis.
const (
	StatusCompliant    = "compliant"
	StatusNeedsReview  = "needs_review"
	StatusNonCompliant = "non_compliant"
)

// Violation is one rule breach reported by the text model.
type Violation struct {
	Category                string  `json:"category"`
	Severity                string  `json:"severity"`
	Rule                    string  `json:"rule_violated"`
	RuleKey                 string  `json:"rule_key"`
	Confidence              float64 `json:"confidence"`
	Description             string  `json:"description"`
	Evidence                string  `json:"evidence"`
	Recommendation          string  `json:"recommendation"`
	NeedsVisualVerification bool    `json:"needs_visual_verification"`
}

// CompliantItem is a rule the text model found satisfied.
type CompliantItem struct {
	Category string `json:"category"`
	Rule     string `json:"rule"`
	Evidence string `json:"evidence"`
}

// TextResult is a parsed text analysis.
type TextResult struct {
	Score              int             `json:"overall_compliance_score"`
	Status             string          `json:"compliance_status"`
	Violations         []Violation     `json:"violations"`
	CompliantItems     []CompliantItem `json:"compliant_items"`
	MissingInformation []string        `json:"missing_information"`
	Recommendations    []string        `json:"recommendations"`
	Summary            string          `json:"summary"`

	Model string    `json:"model,omitempty"`
	Usage llm.Usage `json:"usage"`
}

// ErrMalformedResponse is returned when the model output is not the
// expected JSON object. It fails the whole check.
var ErrMalformedResponse = errors.New("analyzer: malformed model response")

const textSystem = "You are an expert in automotive dealership advertising compliance. " +
	"You review web page content against state regulations and answer only with a JSON object."

// TextAnalyzer asks the text model for violations in extracted content.
type TextAnalyzer struct {
	client llm.Client
	logger *slog.Logger
}

// NewTextAnalyzer returns a TextAnalyzer over client.
func NewTextAnalyzer(client llm.Client, logger *slog.Logger) *TextAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextAnalyzer{client: client, logger: logger}
}

// Analyze sends content with the jurisdiction rules and returns the parsed
// result. Model errors and unparseable output are returned as errors;
// neither is retried here.
func (a *TextAnalyzer) Analyze(ctx context.Context, content string, j rules.Jurisdiction, urlType string) (*TextResult, error) {
	resp, err := a.client.Complete(ctx, llm.Request{
		Operation: "text_analysis",
		System:    textSystem,
		Prompt:    TextPrompt(content, j, urlType),
		JSON:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: text model: %w", err)
	}
	res, err := ParseTextResult(resp.Text)
	if err != nil {
		a.logger.Warn("analyzer: unparseable text analysis", "model", resp.Model, "chars", len(resp.Text))
		return nil, err
	}
	res.Model = resp.Model
	res.Usage = resp.Usage
	a.logger.Debug("analyzer: text analysis", "state", j.Code, "url_type", urlType,
		"score", res.Score, "violations", len(res.Violations), "tokens", resp.Usage.Total())
	return res, nil
}

// TextPrompt builds the user prompt for a text analysis.
func TextPrompt(content string, j rules.Jurisdiction, urlType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this %s of a car dealership in %s for advertising compliance.\n\n",
		rules.PageTypeName(urlType), j.State)
	b.WriteString("# Page Context\n")
	b.WriteString(rules.Preamble(urlType))
	b.WriteString("\n\n")
	b.WriteString(j.Markdown())
	b.WriteString("# Page Content\n\n")
	b.WriteString(content)
	b.WriteString("\n\n")
	b.WriteString(textInstructions)
	return b.String()
}

const textInstructions = `# Instructions

Only report violations you can support with evidence from the content above.
Give every violation a confidence between 0.0 and 1.0 for how sure you are from text alone:
0.9 and above when the text settles it, 0.7 to 0.9 when likely, 0.5 to 0.7 when the
layout matters, below 0.5 when only the rendered page can tell.
Set needs_visual_verification to true when the rule depends on placement, proximity,
size or prominence on the rendered page.
Give each violation a short stable rule_key in snake_case naming the rule.

Respond with a JSON object:
{
  "overall_compliance_score": 0-100,
  "compliance_status": "compliant" | "needs_review" | "non_compliant",
  "violations": [{
    "category": "disclosure" | "pricing" | "financing",
    "severity": "critical" | "high" | "medium" | "low",
    "rule_violated": "the rule text",
    "rule_key": "snake_case_key",
    "confidence": 0.0-1.0,
    "description": "what is wrong",
    "evidence": "quoted text from the page",
    "recommendation": "how to fix it",
    "needs_visual_verification": true | false
  }],
  "compliant_items": [{"category": "...", "rule": "...", "evidence": "..."}],
  "missing_information": ["..."],
  "recommendations": ["..."],
  "summary": "one paragraph"
}`
