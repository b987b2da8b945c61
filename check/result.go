package check

import (
	"fmt"
	"time"

	"github.com/hazyhaar/adcheck/analyzer"
	"github.com/hazyhaar/adcheck/llm"
)

// Result is the outcome of one check.
type Result struct {
	CheckID   string `json:"check_id"`
	URL       string `json:"url"`
	FinalURL  string `json:"final_url,omitempty"`
	State     string `json:"state"`
	StateName string `json:"state_name"`
	URLType   string `json:"url_type"`
	Platform  string `json:"platform"`

	// TemplateID identifies the page's rendering template and keys the
	// decision cache.
	TemplateID string `json:"template_id"`

	// ExtractionTemplateID is the extraction template that was applied.
	ExtractionTemplateID string   `json:"extraction_template_id"`
	ExtractionTier       string   `json:"extraction_tier"`
	ExtractionFallback   bool     `json:"extraction_fallback"`
	Sections             []string `json:"sections,omitempty"`
	ContentChars         int      `json:"content_chars"`

	Score              int                      `json:"overall_compliance_score"`
	Status             string                   `json:"compliance_status"`
	Violations         []analyzer.Violation     `json:"violations"`
	CompliantItems     []analyzer.CompliantItem `json:"compliant_items,omitempty"`
	MissingInformation []string                 `json:"missing_information,omitempty"`
	Recommendations    []string                 `json:"recommendations,omitempty"`
	Summary            string                   `json:"summary,omitempty"`

	VisualVerifications []*analyzer.VisualVerification `json:"visual_verifications"`
	CacheHits           int                            `json:"cache_hits"`

	TextUsage    llm.Usage `json:"text_usage"`
	VisualUsage  llm.Usage `json:"visual_usage"`
	TotalTokens  int       `json:"total_tokens"`
	TotalCostUSD float64   `json:"total_cost_usd"`

	CheckedAt time.Time     `json:"checked_at"`
	Duration  time.Duration `json:"duration_ns"`
}

func (r *Result) setText(t *analyzer.TextResult) {
	r.Score = t.Score
	r.Status = t.Status
	r.Violations = t.Violations
	r.CompliantItems = t.CompliantItems
	r.MissingInformation = t.MissingInformation
	r.Recommendations = t.Recommendations
	r.Summary = t.Summary
	r.TextUsage = t.Usage
	r.VisualVerifications = []*analyzer.VisualVerification{}
	r.total()
}

func (r *Result) addVisual(v *analyzer.VisualVerification) {
	r.VisualVerifications = append(r.VisualVerifications, v)
	if v.Cached {
		r.CacheHits++
	}
	r.VisualUsage.InputTokens += v.Usage.InputTokens
	r.VisualUsage.OutputTokens += v.Usage.OutputTokens
	r.VisualUsage.CostUSD += v.Usage.CostUSD
	r.total()
}

// total keeps TotalTokens equal to text plus visual tokens.
func (r *Result) total() {
	r.TotalTokens = r.TextUsage.Total() + r.VisualUsage.Total()
	r.TotalCostUSD = r.TextUsage.CostUSD + r.VisualUsage.CostUSD
}

// Pipeline stages reported by StageError.
const (
	StageInput   = "input"
	StageFetch   = "fetch"
	StageResolve = "resolve"
	StageExtract = "extract"
	StageAnalyze = "analyze"
	StageVisual  = "visual"
)

// StageError is the failure of one pipeline stage. It ends the check.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("check: %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }
