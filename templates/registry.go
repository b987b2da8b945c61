// Package templates resolves which extraction template applies to a page.
//
// Resolution walks five tiers and stops at the first template that exists:
//
//  1. an explicit override ID supplied by the caller
//  2. a per-domain template, "url_<domain>"
//  3. the page-type default, "<urltype>_default"
//  4. the platform template, "<platform>_vdp" (skipped for unknown platforms)
//  5. "generic_fallback"
//
// Tiers never merge: the winning template is used as-is. A registry without
// the generic fallback is misconfigured and every resolution fails with
// ErrNoFallback.
package templates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/net/idna"

	"github.com/hazyhaar/adcheck/extract"
	"github.com/hazyhaar/adcheck/internal/store"
)

// Tier identifies which resolution step produced a template.
type Tier int

const (
	TierOverride Tier = iota + 1
	TierDomain
	TierPageType
	TierPlatform
	TierGeneric
)

func (t Tier) String() string {
	switch t {
	case TierOverride:
		return "override"
	case TierDomain:
		return "domain"
	case TierPageType:
		return "page_type"
	case TierPlatform:
		return "platform"
	case TierGeneric:
		return "generic"
	}
	return "unknown"
}

var (
	// ErrNoFallback means generic_fallback is missing: a configuration error.
	ErrNoFallback = errors.New("templates: generic_fallback template missing")

	// ErrBadURL is returned when a domain cannot be derived from a URL.
	ErrBadURL = errors.New("templates: cannot derive domain from url")
)

// Backend persists templates. *store.Store implements it.
type Backend interface {
	GetTemplate(ctx context.Context, id string) (*extract.Template, error)
	SaveTemplate(ctx context.Context, t *extract.Template, builtin bool) error
	ListTemplates(ctx context.Context) ([]store.TemplateInfo, error)
	DeleteTemplate(ctx context.Context, id string) (bool, error)
}

// Registry resolves and administers extraction templates.
type Registry struct {
	backend Backend
	logger  *slog.Logger
}

// NewRegistry creates a Registry. A nil logger uses slog.Default().
func NewRegistry(backend Backend, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{backend: backend, logger: logger}
}

// Seed writes the built-in templates followed by extra (typically loaded
// from a YAML file). Extra templates may replace built-ins by ID.
func (r *Registry) Seed(ctx context.Context, extra ...*extract.Template) error {
	for _, t := range extract.Defaults() {
		if err := r.backend.SaveTemplate(ctx, t, true); err != nil {
			return fmt.Errorf("templates: seed %s: %w", t.ID, err)
		}
	}
	for _, t := range extra {
		if err := r.Save(ctx, t); err != nil {
			return err
		}
	}
	r.logger.Info("templates: seeded", "builtin", len(extract.Defaults()), "extra", len(extra))
	return nil
}

// Save validates and stores a template.
func (r *Registry) Save(ctx context.Context, t *extract.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := r.backend.SaveTemplate(ctx, t, false); err != nil {
		return fmt.Errorf("templates: save %s: %w", t.ID, err)
	}
	return nil
}

// Get returns a validated copy of a template, or nil, nil when absent.
func (r *Registry) Get(ctx context.Context, id string) (*extract.Template, error) {
	t, err := r.backend.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("templates: load %s: %w", id, err)
	}
	if t == nil {
		return nil, nil
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// List returns the stored templates.
func (r *Registry) List(ctx context.Context) ([]store.TemplateInfo, error) {
	return r.backend.ListTemplates(ctx)
}

// Delete removes a template. The generic fallback cannot be deleted.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	if id == extract.GenericFallbackID {
		return false, fmt.Errorf("templates: refusing to delete %s", id)
	}
	return r.backend.DeleteTemplate(ctx, id)
}

// Resolve picks the template for a page. platform may be empty or
// "unknown"; urlType may be empty; override may be empty.
func (r *Registry) Resolve(ctx context.Context, pageURL, platform, urlType, override string) (*extract.Template, Tier, error) {
	for _, c := range Candidates(pageURL, platform, urlType, override) {
		t, err := r.Get(ctx, c.ID)
		if err != nil {
			return nil, 0, err
		}
		if t == nil {
			if c.Tier == TierOverride {
				r.logger.Warn("templates: override not found, continuing", "template_id", c.ID)
			}
			continue
		}
		r.logger.Debug("templates: resolved", "url", pageURL, "template_id", t.ID, "tier", c.Tier.String())
		return t, c.Tier, nil
	}
	return nil, 0, ErrNoFallback
}

// Candidate is one template ID tried during resolution.
type Candidate struct {
	ID   string
	Tier Tier
}

// Candidates lists the template IDs Resolve tries, in order.
func Candidates(pageURL, platform, urlType, override string) []Candidate {
	var out []Candidate
	if override != "" {
		out = append(out, Candidate{override, TierOverride})
	}
	if id, err := DomainTemplateID(pageURL); err == nil {
		out = append(out, Candidate{id, TierDomain})
	}
	if urlType != "" {
		out = append(out, Candidate{strings.ToLower(urlType) + "_default", TierPageType})
	}
	if p := strings.ToLower(strings.TrimSpace(platform)); p != "" && p != "unknown" {
		out = append(out, Candidate{strings.ReplaceAll(p, " ", "_") + "_vdp", TierPlatform})
	}
	return append(out, Candidate{extract.GenericFallbackID, TierGeneric})
}

// Domain returns the normalised host of pageURL: lowercased, IDNA
// ASCII form, without a leading "www." and without a port.
func Domain(pageURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrBadURL, pageURL)
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		ascii = strings.ToLower(host)
	}
	return strings.TrimPrefix(ascii, "www."), nil
}

// DomainTemplateID is "url_" followed by the domain with dots replaced by
// underscores.
func DomainTemplateID(pageURL string) (string, error) {
	d, err := Domain(pageURL)
	if err != nil {
		return "", err
	}
	return "url_" + strings.ReplaceAll(d, ".", "_"), nil
}

// CreateURLOverride stores a per-domain template for pageURL. An empty
// order uses the selector names sorted.
func (r *Registry) CreateURLOverride(ctx context.Context, pageURL string, selectors map[string][]string, order []string, cleanup extract.Cleanup) (*extract.Template, error) {
	id, err := DomainTemplateID(pageURL)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		order = extract.OrderFromSelectors(selectors)
	}
	t := &extract.Template{
		ID:           id,
		Platform:     "custom",
		SectionOrder: order,
		Selectors:    selectors,
		Cleanup:      cleanup,
	}
	if err := r.Save(ctx, t); err != nil {
		return nil, err
	}
	r.logger.Info("templates: url override created", "template_id", id, "url", pageURL)
	return t, nil
}
