package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsonObject trims code fences and prose around the first JSON object in
// a model reply.
func jsonObject(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// wireViolation decodes confidence as a pointer so an omitted value can be
// told apart from zero.
type wireViolation struct {
	Violation
	Confidence *float64 `json:"confidence"`
}

type wireText struct {
	Score              *float64        `json:"overall_compliance_score"`
	Status             string          `json:"compliance_status"`
	Violations         []wireViolation `json:"violations"`
	CompliantItems     []CompliantItem `json:"compliant_items"`
	MissingInformation []string        `json:"missing_information"`
	Recommendations    []string        `json:"recommendations"`
	Summary            string          `json:"summary"`
}

// ParseTextResult decodes a text-model reply. Scores are clamped to 0-100
// and confidences to 0-1; a violation without confidence gets 1.0.
func ParseTextResult(text string) (*TextResult, error) {
	raw, ok := jsonObject(text)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object", ErrMalformedResponse)
	}
	var w wireText
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	res := &TextResult{
		Status:             normalizeStatus(w.Status),
		CompliantItems:     w.CompliantItems,
		MissingInformation: w.MissingInformation,
		Recommendations:    w.Recommendations,
		Summary:            w.Summary,
		Violations:         make([]Violation, 0, len(w.Violations)),
	}
	if w.Score != nil {
		res.Score = int(clamp(*w.Score, 0, 100) + 0.5)
	}
	for _, wv := range w.Violations {
		v := wv.Violation
		v.Confidence = 1.0
		if wv.Confidence != nil {
			v.Confidence = clamp(*wv.Confidence, 0, 1)
		}
		v.Severity = strings.ToLower(strings.TrimSpace(v.Severity))
		v.Category = strings.ToLower(strings.TrimSpace(v.Category))
		v.RuleKey = strings.TrimSpace(v.RuleKey)
		res.Violations = append(res.Violations, v)
	}
	return res, nil
}

func normalizeStatus(s string) string {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case StatusCompliant, StatusNonCompliant, StatusNeedsReview:
		return s
	default:
		return StatusNeedsReview
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
