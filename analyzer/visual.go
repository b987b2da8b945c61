package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hazyhaar/adcheck/decisions"
	"github.com/hazyhaar/adcheck/llm"
)

// Screenshotter captures the rendered page. Implementations reuse one
// loaded page for every rule of a check.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// VisualContext describes the page a rule is verified on.
type VisualContext struct {
	URL        string
	State      string
	TemplateID string
}

// VisualVerification is the outcome of one visual rule check, fresh or
// served from the decision cache.
type VisualVerification struct {
	RuleKey              string  `json:"rule_key"`
	Rule                 string  `json:"rule"`
	IsCompliant          bool    `json:"is_compliant"`
	Confidence           float64 `json:"confidence"`
	VisualEvidence       string  `json:"visual_evidence,omitempty"`
	ProximityDescription string  `json:"proximity_description,omitempty"`
	Recommendation       string  `json:"recommendation,omitempty"`
	Reasoning            string  `json:"reasoning,omitempty"`

	Status             decisions.Status `json:"status"`
	VerificationMethod decisions.Method `json:"verification_method"`
	Cached             bool             `json:"cached"`
	Forced             bool             `json:"forced,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	Screenshot         string           `json:"screenshot,omitempty"`

	Usage llm.Usage `json:"usage"`
}

// FromDecision builds the result of a cache hit.
func FromDecision(d *decisions.Decision, rule string) *VisualVerification {
	return &VisualVerification{
		RuleKey:            d.RuleKey,
		Rule:               rule,
		IsCompliant:        d.Compliant(),
		Confidence:         d.Confidence,
		Status:             d.Status,
		VerificationMethod: decisions.MethodCached,
		Cached:             true,
		Notes:              d.Notes,
	}
}

const (
	visualSystem    = "You are an expert in automotive advertising compliance who judges rendered web pages from screenshots. Answer only with a JSON object."
	visualMaxTokens = 1000
)

// VisualVerifier judges single rules on a page screenshot with a
// multimodal model.
type VisualVerifier struct {
	client        llm.Client
	logger        *slog.Logger
	screenshotDir string
	now           func() time.Time
}

// NewVisualVerifier returns a verifier. When screenshotDir is set every
// captured screenshot is written there.
func NewVisualVerifier(client llm.Client, screenshotDir string, logger *slog.Logger) *VisualVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &VisualVerifier{client: client, logger: logger, screenshotDir: screenshotDir, now: time.Now}
}

// Verify captures page and asks the model whether rule is met.
func (v *VisualVerifier) Verify(ctx context.Context, page Screenshotter, ruleKey, rule string, vc VisualContext) (*VisualVerification, error) {
	shot, err := page.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyzer: screenshot: %w", err)
	}
	if len(shot) == 0 {
		return nil, fmt.Errorf("analyzer: screenshot: empty image")
	}

	var path string
	if v.screenshotDir != "" {
		path, err = v.save(shot, vc.URL)
		if err != nil {
			v.logger.Warn("analyzer: save screenshot", "url", vc.URL, "error", err)
		}
	}

	resp, err := v.client.Complete(ctx, llm.Request{
		Operation: "visual_verification",
		System:    visualSystem,
		Prompt:    VisualPrompt(rule, vc),
		Image:     shot,
		ImageMIME: "image/png",
		JSON:      true,
		MaxTokens: visualMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: visual model: %w", err)
	}

	res, err := ParseVisualResult(resp.Text)
	if err != nil {
		return nil, err
	}
	res.RuleKey = ruleKey
	res.Rule = rule
	res.VerificationMethod = decisions.MethodVisual
	res.Screenshot = path
	res.Usage = resp.Usage
	v.logger.Info("analyzer: visual verification", "url", vc.URL, "rule_key", ruleKey,
		"status", res.Status, "confidence", res.Confidence, "tokens", resp.Usage.Total())
	return res, nil
}

func (v *VisualVerifier) save(png []byte, pageURL string) (string, error) {
	if err := os.MkdirAll(v.screenshotDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("visual_%s_%s.png", URLSlug(pageURL, 50), v.now().Format("20060102_150405"))
	path := filepath.Join(v.screenshotDir, name)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// URLSlug replaces everything but ASCII letters and digits with '_' and
// cuts the result to max bytes.
func URLSlug(u string, max int) string {
	u = strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://")
	b := []byte(u)
	for i, c := range b {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			b[i] = '_'
		}
	}
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}

// VisualPrompt builds the user prompt for one rule.
func VisualPrompt(rule string, vc VisualContext) string {
	var b strings.Builder
	b.WriteString("The screenshot shows a car dealership web page")
	if vc.URL != "" {
		fmt.Fprintf(&b, " (%s)", vc.URL)
	}
	if vc.State != "" {
		fmt.Fprintf(&b, " subject to %s advertising regulations", vc.State)
	}
	b.WriteString(".\n\n")
	fmt.Fprintf(&b, "Rule to verify:\n%s\n\n", rule)
	b.WriteString(`Judge the rendered page, not the markup:
1. Locate every element the rule concerns (prices, vehicle identification, disclaimers, contact details).
2. Measure how close related elements are and whether a shopper sees them together.
3. Assess conspicuousness: size, contrast and position relative to the main claim.
4. Consider what a typical shopper would notice without scrolling or hunting.

Respond with a JSON object:
{
  "is_compliant": true | false,
  "confidence": 0.0-1.0,
  "visual_evidence": "what you see and where",
  "proximity_description": "how related elements are placed",
  "recommendation": "how to fix it, if needed",
  "reasoning": "short justification"
}`)
	return b.String()
}

type wireVisual struct {
	IsCompliant          *bool    `json:"is_compliant"`
	Confidence           *float64 `json:"confidence"`
	VisualEvidence       string   `json:"visual_evidence"`
	ProximityDescription string   `json:"proximity_description"`
	Recommendation       string   `json:"recommendation"`
	Reasoning            string   `json:"reasoning"`
}

// ParseVisualResult decodes a visual-model reply. A reply without
// is_compliant yields StatusUncertain; a missing confidence is 0.
func ParseVisualResult(text string) (*VisualVerification, error) {
	raw, ok := jsonObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	}
	var w wireVisual
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	res := &VisualVerification{
		VisualEvidence:       w.VisualEvidence,
		ProximityDescription: w.ProximityDescription,
		Recommendation:       w.Recommendation,
		Reasoning:            w.Reasoning,
		Status:               decisions.StatusUncertain,
	}
	if w.IsCompliant != nil {
		res.IsCompliant = *w.IsCompliant
		res.Status = decisions.StatusFor(*w.IsCompliant)
	}
	if w.Confidence != nil {
		res.Confidence = clamp(*w.Confidence, 0, 1)
	}
	return res, nil
}
