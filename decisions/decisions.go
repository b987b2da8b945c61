// Package decisions is the template decision cache: for each (page
// template, rule) pair it remembers the most recent verified verdict so that
// structurally identical pages skip repeat visual verification.
//
// Usage:
//
//	cache := decisions.New(store, logger)
//	if cache.ShouldSkip(ctx, "dealer.com_vdp", "disclaimer_proximity", policy.CacheSkipThreshold) {
//	    d, _ := cache.Lookup(ctx, "dealer.com_vdp", "disclaimer_proximity")
//	    ...
//	}
//
// Entries never expire. Operators invalidate them explicitly with
// Invalidate or InvalidateTemplate.
package decisions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Status is a cached verdict.
type Status string

const (
	StatusCompliant    Status = "compliant"
	StatusNonCompliant Status = "non_compliant"
	StatusUncertain    Status = "uncertain"
)

// Method records how a verdict was reached.
type Method string

const (
	MethodCached Method = "cached"
	MethodVisual Method = "visual"
	MethodText   Method = "text"
	MethodHuman  Method = "human"
)

// StatusFor maps a boolean compliance verdict to a Status.
func StatusFor(compliant bool) Status {
	if compliant {
		return StatusCompliant
	}
	return StatusNonCompliant
}

// Decision is the current verdict for one (template, rule) pair.
type Decision struct {
	TemplateID string    `json:"template_id"`
	RuleKey    string    `json:"rule_key"`
	Status     Status    `json:"status"`
	Confidence float64   `json:"confidence"`
	Method     Method    `json:"verification_method"`
	Notes      string    `json:"notes,omitempty"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Compliant reports whether the cached status is compliant.
func (d *Decision) Compliant() bool { return d.Status == StatusCompliant }

// Backend persists decisions. Implementations hold exactly one entry per
// (TemplateID, RuleKey) and UpsertDecision replaces it atomically; when two
// writers race on the same key the last write wins.
type Backend interface {
	GetDecision(ctx context.Context, templateID, ruleKey string) (*Decision, error)
	UpsertDecision(ctx context.Context, d *Decision) error
	DeleteDecision(ctx context.Context, templateID, ruleKey string) (int64, error)
	DeleteTemplateDecisions(ctx context.Context, templateID string) (int64, error)
	ListDecisions(ctx context.Context, templateID string) ([]*Decision, error)
}

// ErrInvalidDecision is returned by Upsert for malformed input.
var ErrInvalidDecision = errors.New("decisions: invalid decision")

// Cache wraps a Backend with validation, logging and the skip predicate.
// It is safe for concurrent use if the Backend is.
type Cache struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Cache over backend. A nil logger uses slog.Default().
func New(backend Backend, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{backend: backend, logger: logger, now: time.Now}
}

// Lookup returns the cached decision, or nil, nil on a miss.
func (c *Cache) Lookup(ctx context.Context, templateID, ruleKey string) (*Decision, error) {
	d, err := c.backend.GetDecision(ctx, templateID, ruleKey)
	if err != nil {
		return nil, fmt.Errorf("decisions: lookup %s/%s: %w", templateID, ruleKey, err)
	}
	return d, nil
}

// ShouldSkip reports whether a compliant or non-compliant decision exists
// with confidence at or above threshold. Read failures are logged and count as a miss.
func (c *Cache) ShouldSkip(ctx context.Context, templateID, ruleKey string, threshold float64) bool {
	return c.Reusable(ctx, templateID, ruleKey, threshold) != nil
}

// Reusable returns the cached decision when ShouldSkip would be true, and
// nil otherwise. Uncertain verdicts are never reused.
func (c *Cache) Reusable(ctx context.Context, templateID, ruleKey string, threshold float64) *Decision {
	d, err := c.Lookup(ctx, templateID, ruleKey)
	if err != nil {
		c.logger.Warn("decisions: lookup failed, treating as miss",
			"template_id", templateID, "rule_key", ruleKey, "error", err)
		return nil
	}
	if d == nil || d.Status == StatusUncertain || d.Confidence < threshold {
		return nil
	}
	return d
}

// Upsert stores the verdict for (templateID, ruleKey), replacing any
// previous one.
func (c *Cache) Upsert(ctx context.Context, templateID, ruleKey string, status Status, confidence float64, method Method, notes string) error {
	if templateID == "" || ruleKey == "" {
		return fmt.Errorf("%w: empty key (%q, %q)", ErrInvalidDecision, templateID, ruleKey)
	}
	switch status {
	case StatusCompliant, StatusNonCompliant, StatusUncertain:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidDecision, status)
	}
	if confidence < 0 || confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidDecision, confidence)
	}

	d := &Decision{
		TemplateID: templateID,
		RuleKey:    ruleKey,
		Status:     status,
		Confidence: confidence,
		Method:     method,
		Notes:      notes,
		VerifiedAt: c.now(),
	}
	if err := c.backend.UpsertDecision(ctx, d); err != nil {
		return fmt.Errorf("decisions: upsert %s/%s: %w", templateID, ruleKey, err)
	}
	c.logger.Debug("decisions: stored", "template_id", templateID, "rule_key", ruleKey,
		"status", status, "confidence", confidence, "method", method)
	return nil
}

// Invalidate drops one cached verdict. Returns the number of rows removed.
func (c *Cache) Invalidate(ctx context.Context, templateID, ruleKey string) (int64, error) {
	n, err := c.backend.DeleteDecision(ctx, templateID, ruleKey)
	if err != nil {
		return 0, fmt.Errorf("decisions: invalidate %s/%s: %w", templateID, ruleKey, err)
	}
	c.logger.Info("decisions: invalidated", "template_id", templateID, "rule_key", ruleKey, "removed", n)
	return n, nil
}

// InvalidateTemplate drops every cached verdict for a template, e.g. after
// the dealer site was redesigned.
func (c *Cache) InvalidateTemplate(ctx context.Context, templateID string) (int64, error) {
	n, err := c.backend.DeleteTemplateDecisions(ctx, templateID)
	if err != nil {
		return 0, fmt.Errorf("decisions: invalidate template %s: %w", templateID, err)
	}
	c.logger.Info("decisions: invalidated template", "template_id", templateID, "removed", n)
	return n, nil
}

// List returns cached verdicts for templateID, or all when it is empty.
func (c *Cache) List(ctx context.Context, templateID string) ([]*Decision, error) {
	ds, err := c.backend.ListDecisions(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("decisions: list: %w", err)
	}
	return ds, nil
}
