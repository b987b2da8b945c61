package analyzer

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/adcheck/decisions"
	"github.com/hazyhaar/adcheck/llm"
	"github.com/hazyhaar/adcheck/rules"
)

type scriptedClient struct {
	text string
	err  error
	reqs []llm.Request
}

func (c *scriptedClient) Complete(_ context.Context, r llm.Request) (*llm.Response, error) {
	c.reqs = append(c.reqs, r)
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Text: c.text, Model: "test-model", Usage: llm.Usage{InputTokens: 100, OutputTokens: 20, CostUSD: 0.001}}, nil
}

func oklahoma(t *testing.T) rules.Jurisdiction {
	t.Helper()
	j, err := rules.NewProvider().Rules("OK")
	if err != nil {
		t.Fatal(err)
	}
	return j
}

const textReply = "```json\n" + `{
  "overall_compliance_score": 72.6,
  "compliance_status": "Needs_Review",
  "violations": [
    {"category": "Pricing", "severity": "HIGH", "rule_violated": "Price must include fees",
     "rule_key": "price_includes_fees", "confidence": 0.6, "evidence": "$29,999*",
     "needs_visual_verification": true},
    {"category": "disclosure", "severity": "low", "rule_violated": "Stock number required",
     "rule_key": "stock_number", "needs_visual_verification": false},
    {"category": "disclosure", "severity": "low", "rule_violated": "Odd", "rule_key": "odd", "confidence": 1.7}
  ],
  "compliant_items": [{"category": "disclosure", "rule": "Dealer name", "evidence": "Allstar CDJR"}],
  "summary": "Mostly fine."
}` + "\n```"

func TestAnalyzeParsesAndNormalizes(t *testing.T) {
	client := &scriptedClient{text: textReply}
	a := NewTextAnalyzer(client, nil)
	res, err := a.Analyze(context.Background(), "## Price\n$29,999*", oklahoma(t), "VDP")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if res.Score != 73 || res.Status != StatusNeedsReview {
		t.Errorf("score/status: %d %s", res.Score, res.Status)
	}
	if len(res.Violations) != 3 {
		t.Fatalf("violations: %d", len(res.Violations))
	}
	v := res.Violations[0]
	if v.Category != "pricing" || v.Severity != "high" || v.Confidence != 0.6 || !v.NeedsVisualVerification {
		t.Errorf("first violation: %+v", v)
	}
	if res.Violations[1].Confidence != 1.0 {
		t.Errorf("missing confidence should default to 1.0, got %v", res.Violations[1].Confidence)
	}
	if res.Violations[2].Confidence != 1.0 {
		t.Errorf("confidence should clamp to 1.0, got %v", res.Violations[2].Confidence)
	}
	if res.Usage.Total() != 120 || res.Model != "test-model" {
		t.Errorf("usage/model: %+v %s", res.Usage, res.Model)
	}

	req := client.reqs[0]
	if !req.JSON || req.Operation != "text_analysis" {
		t.Errorf("request: %+v", req)
	}
	for _, want := range []string{"Vehicle Detail Page", "Oklahoma", "465:15-3-7(a)", "$29,999*", "needs_visual_verification"} {
		if !strings.Contains(req.Prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestAnalyzeMalformed(t *testing.T) {
	for _, reply := range []string{"I cannot help with that.", `{"violations": "none"}`} {
		a := NewTextAnalyzer(&scriptedClient{text: reply}, nil)
		_, err := a.Analyze(context.Background(), "x", oklahoma(t), "VDP")
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("%q: got %v, want ErrMalformedResponse", reply, err)
		}
	}
}

func TestAnalyzeModelError(t *testing.T) {
	boom := errors.New("rate limited")
	a := NewTextAnalyzer(&scriptedClient{err: boom}, nil)
	if _, err := a.Analyze(context.Background(), "x", oklahoma(t), "VDP"); !errors.Is(err, boom) {
		t.Errorf("got %v", err)
	}
}

func TestTextPromptUnknownPageType(t *testing.T) {
	p := TextPrompt("content", oklahoma(t), "BLOG")
	if !strings.Contains(p, "Analyze this BLOG") || !strings.Contains(p, rules.Preamble("VDP")) {
		t.Error("unknown page type should keep its name and use the VDP context")
	}
}

type fakePage struct {
	png   []byte
	err   error
	shots int
}

func (p *fakePage) Screenshot(context.Context) ([]byte, error) {
	p.shots++
	return p.png, p.err
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	client := &scriptedClient{text: `{"is_compliant": false, "confidence": 0.92, "visual_evidence": "price far from VIN", "reasoning": "r"}`}
	v := NewVisualVerifier(client, dir, nil)
	v.now = func() time.Time { return time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC) }

	page := &fakePage{png: []byte("\x89PNG")}
	vc := VisualContext{URL: "https://www.allstar.example/used/2021-jeep.htm", State: "Oklahoma", TemplateID: "dealer.com_vdp"}
	res, err := v.Verify(context.Background(), page, "price_proximity", "Price near VIN", vc)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.IsCompliant || res.Status != decisions.StatusNonCompliant || res.Confidence != 0.92 {
		t.Errorf("result: %+v", res)
	}
	if res.VerificationMethod != decisions.MethodVisual || res.Cached || res.RuleKey != "price_proximity" {
		t.Errorf("metadata: %+v", res)
	}
	if res.Usage.Total() != 120 {
		t.Errorf("usage: %+v", res.Usage)
	}

	want := dir + "/visual_www_allstar_example_used_2021_jeep_htm_20260301_123000.png"
	if res.Screenshot != want {
		t.Errorf("screenshot path: got %s, want %s", res.Screenshot, want)
	}
	if data, err := os.ReadFile(want); err != nil || string(data) != "\x89PNG" {
		t.Errorf("saved screenshot: %v", err)
	}

	req := client.reqs[0]
	if len(req.Image) == 0 || req.MaxTokens != visualMaxTokens || !req.JSON {
		t.Errorf("request: op=%s max=%d json=%v", req.Operation, req.MaxTokens, req.JSON)
	}
	if !strings.Contains(req.Prompt, "Price near VIN") || !strings.Contains(req.Prompt, "Oklahoma") {
		t.Error("prompt missing rule or state")
	}
}

func TestVerifyScreenshotFailure(t *testing.T) {
	client := &scriptedClient{text: `{}`}
	v := NewVisualVerifier(client, "", nil)
	_, err := v.Verify(context.Background(), &fakePage{err: errors.New("target closed")}, "k", "r", VisualContext{})
	if err == nil {
		t.Fatal("screenshot error swallowed")
	}
	if len(client.reqs) != 0 {
		t.Error("model called without a screenshot")
	}
}

func TestParseVisualResultUncertain(t *testing.T) {
	res, err := ParseVisualResult(`Here you go: {"confidence": 0.4, "visual_evidence": "blurry"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.Status != decisions.StatusUncertain || res.IsCompliant {
		t.Errorf("missing is_compliant should be uncertain: %+v", res)
	}
	if _, err := ParseVisualResult("no"); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("got %v", err)
	}
}

func TestFromDecision(t *testing.T) {
	d := &decisions.Decision{TemplateID: "t", RuleKey: "r", Status: decisions.StatusCompliant, Confidence: 0.9, Method: decisions.MethodVisual, Notes: "ok"}
	res := FromDecision(d, "rule text")
	if !res.Cached || !res.IsCompliant || res.VerificationMethod != decisions.MethodCached || res.Notes != "ok" || res.Usage.Total() != 0 {
		t.Errorf("cached result: %+v", res)
	}
}

func TestURLSlug(t *testing.T) {
	if got := URLSlug("https://a.example/x?y=1", 50); got != "a_example_x_y_1" {
		t.Errorf("slug: %s", got)
	}
	if got := URLSlug("http://"+strings.Repeat("a", 80), 50); len(got) != 50 {
		t.Errorf("slug length: %d", len(got))
	}
}
