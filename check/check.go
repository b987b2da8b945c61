// Package check runs a compliance check of one dealership page: load,
// template resolution, extraction, text analysis, escalation, cached or
// fresh visual verification and aggregation.
//
// Stages run in order and any failure ends the check with a *StageError;
// there is no partial result. Visual verifications of one check run one at
// a time against the same loaded page. Concurrent checks share the
// decision cache.
package check

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/adcheck/analyzer"
	"github.com/hazyhaar/adcheck/browser"
	"github.com/hazyhaar/adcheck/decisions"
	"github.com/hazyhaar/adcheck/extract"
	"github.com/hazyhaar/adcheck/internal/idgen"
	"github.com/hazyhaar/adcheck/llm"
	"github.com/hazyhaar/adcheck/policy"
	"github.com/hazyhaar/adcheck/rules"
	"github.com/hazyhaar/adcheck/templates"
)

// Request is one URL to check.
type Request struct {
	URL string `json:"url"`
	// Jurisdiction is a state code with a rule set ("OK", "CA").
	Jurisdiction string `json:"jurisdiction"`
	URLType      string `json:"url_type"`
	// SkipVisual returns text-only results, the homepage check included.
	SkipVisual bool `json:"skip_visual"`
	// TemplateOverride names an extraction template to use first.
	TemplateOverride string `json:"template_override,omitempty"`
}

// TemplateResolver picks the extraction template for a page.
type TemplateResolver interface {
	Resolve(ctx context.Context, pageURL, platform, urlType, override string) (*extract.Template, templates.Tier, error)
}

// TextAnalyzer finds violations in extracted content.
type TextAnalyzer interface {
	Analyze(ctx context.Context, content string, j rules.Jurisdiction, urlType string) (*analyzer.TextResult, error)
}

// VisualVerifier judges one rule on a rendered page.
type VisualVerifier interface {
	Verify(ctx context.Context, page analyzer.Screenshotter, ruleKey, rule string, vc analyzer.VisualContext) (*analyzer.VisualVerification, error)
}

// Config wires a Checker.
type Config struct {
	// Browser loads pages that may need screenshots. Required.
	Browser browser.Opener
	// Static, when set, is tried first for checks that skip visual
	// verification; ErrNeedsBrowser falls back to Browser.
	Static browser.Opener

	Templates TemplateResolver
	Decisions *decisions.Cache
	Text      TextAnalyzer
	Visual    VisualVerifier
	Rules     *rules.Provider
	Converter *extract.Converter

	// ArchiveDir, when set, receives a copy of every text-model input.
	ArchiveDir string

	EscalationThreshold float64
	CacheThreshold      float64

	Logger *slog.Logger
	NewID  idgen.Generator
	Now    func() time.Time
}

// Checker runs checks. It is safe for concurrent use.
type Checker struct {
	cfg Config
	log *slog.Logger
}

// New validates cfg and returns a Checker.
func New(cfg Config) (*Checker, error) {
	switch {
	case cfg.Browser == nil:
		return nil, errors.New("check: Browser is required")
	case cfg.Templates == nil:
		return nil, errors.New("check: Templates is required")
	case cfg.Decisions == nil:
		return nil, errors.New("check: Decisions is required")
	case cfg.Text == nil:
		return nil, errors.New("check: Text is required")
	case cfg.Visual == nil:
		return nil, errors.New("check: Visual is required")
	}
	if cfg.Rules == nil {
		cfg.Rules = rules.NewProvider()
	}
	if cfg.Converter == nil {
		cfg.Converter = extract.NewConverter()
	}
	if cfg.EscalationThreshold <= 0 {
		cfg.EscalationThreshold = policy.EscalationThreshold
	}
	if cfg.CacheThreshold <= 0 {
		cfg.CacheThreshold = policy.CacheSkipThreshold
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = idgen.CheckID
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Checker{cfg: cfg, log: cfg.Logger}, nil
}

// CheckURL runs one check.
func (c *Checker) CheckURL(ctx context.Context, req Request) (*Result, error) {
	start := c.cfg.Now()
	if err := validURL(req.URL); err != nil {
		return nil, &StageError{Stage: StageInput, Err: err}
	}
	j, err := c.cfg.Rules.Rules(req.Jurisdiction)
	if err != nil {
		return nil, &StageError{Stage: StageInput, Err: err}
	}

	res := &Result{
		CheckID:   c.cfg.NewID(),
		URL:       req.URL,
		State:     j.Code,
		StateName: j.State,
		URLType:   req.URLType,
		CheckedAt: start,
	}
	ctx = llm.WithCheckID(ctx, res.CheckID)
	log := c.log.With("check_id", res.CheckID, "url", req.URL)

	page, err := c.open(ctx, req, log)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	defer page.Close()
	res.FinalURL = page.URL()

	html, err := page.HTML(ctx)
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: err}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &StageError{Stage: StageFetch, Err: fmt.Errorf("check: parse html: %w", err)}
	}
	res.Platform = templates.DetectPlatform(doc)
	res.TemplateID = templates.PageTemplateID(req.URL, res.Platform, html)

	tpl, tier, err := c.cfg.Templates.Resolve(ctx, req.URL, res.Platform, req.URLType, req.TemplateOverride)
	if err != nil {
		return nil, &StageError{Stage: StageResolve, Err: err}
	}
	res.ExtractionTemplateID = tpl.ID
	res.ExtractionTier = tier.String()

	content, err := c.extract(doc, html, tpl, req.URL, res)
	if err != nil {
		return nil, &StageError{Stage: StageExtract, Err: err}
	}
	res.ContentChars = len(content)
	c.archive(res, content, log)

	text, err := c.cfg.Text.Analyze(ctx, content, j, req.URLType)
	if err != nil {
		return nil, &StageError{Stage: StageAnalyze, Err: err}
	}
	res.setText(text)

	if !req.SkipVisual {
		vc := analyzer.VisualContext{URL: req.URL, State: j.State, TemplateID: res.TemplateID}
		checks := policy.SelectWithThreshold(findings(text.Violations), req.URLType, c.cfg.EscalationThreshold)
		for _, chk := range checks {
			vv, err := c.verify(ctx, page, chk, vc, log)
			if err != nil {
				return nil, &StageError{Stage: StageVisual, Err: err}
			}
			res.addVisual(vv)
		}
	}

	res.Duration = c.cfg.Now().Sub(start)
	log.Info("check: done",
		"template_id", res.TemplateID, "extraction_template", res.ExtractionTemplateID,
		"score", res.Score, "status", res.Status, "violations", len(res.Violations),
		"visual", len(res.VisualVerifications), "cached", res.CacheHits,
		"tokens", res.TotalTokens, "cost_usd", res.TotalCostUSD, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

func (c *Checker) open(ctx context.Context, req Request, log *slog.Logger) (browser.Page, error) {
	if req.SkipVisual && c.cfg.Static != nil {
		page, err := c.cfg.Static.Open(ctx, req.URL)
		if err == nil {
			log.Debug("check: served over plain HTTP")
			return page, nil
		}
		log.Debug("check: static fetch unusable, using browser", "error", err)
	}
	return c.cfg.Browser.Open(ctx, req.URL)
}

// extract returns the text-model input: template sections as markdown, or
// the keyword-window fallback of the cleaned page when no section matched.
func (c *Checker) extract(doc *goquery.Document, html []byte, tpl *extract.Template, pageURL string, res *Result) (string, error) {
	sections := extract.ExtractDocument(doc, tpl)
	if !sections.Empty() {
		res.Sections = sections.Names()
		return sections.Markdown(), nil
	}

	res.ExtractionFallback = true
	clean, err := extract.CleanHTML(html, tpl)
	if err != nil {
		return "", err
	}
	meta := extract.Metadata(html, pageURL)
	meta.Platform = res.Platform
	return c.cfg.Converter.Fallback(clean, meta)
}

// verify serves one escalated rule from the decision cache or, on a miss,
// from the visual model, storing the fresh verdict.
func (c *Checker) verify(ctx context.Context, page browser.Page, chk policy.Check, vc analyzer.VisualContext, log *slog.Logger) (*analyzer.VisualVerification, error) {
	if d := c.cfg.Decisions.Reusable(ctx, vc.TemplateID, chk.RuleKey, c.cfg.CacheThreshold); d != nil {
		log.Debug("check: cached decision", "template_id", vc.TemplateID, "rule_key", chk.RuleKey,
			"status", d.Status, "confidence", d.Confidence)
		vv := analyzer.FromDecision(d, chk.Rule)
		vv.Forced = chk.Forced
		return vv, nil
	}

	vv, err := c.cfg.Visual.Verify(ctx, page, chk.RuleKey, chk.Rule, vc)
	if err != nil {
		return nil, fmt.Errorf("check: verify %s: %w", chk.RuleKey, err)
	}
	vv.Forced = chk.Forced

	// Cache write failures do not fail the check.
	if err := c.cfg.Decisions.Upsert(ctx, vc.TemplateID, chk.RuleKey, vv.Status, vv.Confidence,
		decisions.MethodVisual, vv.VisualEvidence); err != nil {
		log.Warn("check: cache write failed", "template_id", vc.TemplateID, "rule_key", chk.RuleKey, "error", err)
	}
	return vv, nil
}

func findings(vs []analyzer.Violation) []policy.Finding {
	out := make([]policy.Finding, len(vs))
	for i, v := range vs {
		out[i] = policy.Finding{
			RuleKey:                 v.RuleKey,
			Rule:                    v.Rule,
			Confidence:              v.Confidence,
			NeedsVisualVerification: v.NeedsVisualVerification,
		}
	}
	return out
}

func validURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("check: bad url %q: %w", raw, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("check: bad url %q: want an absolute http(s) URL", raw)
	}
	return nil
}
