package main

import (
	"context"
	"fmt"
	"time"

	"github.com/hazyhaar/adcheck/decisions"
	"github.com/hazyhaar/adcheck/extract"
	"github.com/hazyhaar/adcheck/internal/store"
	"github.com/hazyhaar/adcheck/templates"
)

// runAdmin handles the one-shot administration flags. done reports whether
// one of them ran.
func runAdmin(ctx context.Context, o options, st *store.Store, reg *templates.Registry, cache *decisions.Cache) (done bool, err error) {
	switch {
	case o.listTemplates:
		infos, err := reg.List(ctx)
		if err != nil {
			return true, err
		}
		return true, printJSON(infos)

	case o.listDecisions != "":
		id := o.listDecisions
		if id == "all" {
			id = ""
		}
		ds, err := cache.List(ctx, id)
		if err != nil {
			return true, err
		}
		return true, printJSON(ds)

	case o.invalidateTemplate != "":
		var n int64
		if o.invalidateRule != "" {
			n, err = cache.Invalidate(ctx, o.invalidateTemplate, o.invalidateRule)
		} else {
			n, err = cache.InvalidateTemplate(ctx, o.invalidateTemplate)
		}
		if err != nil {
			return true, err
		}
		return true, printJSON(map[string]any{
			"template_id": o.invalidateTemplate,
			"rule_key":    o.invalidateRule,
			"removed":     n,
		})

	case o.overrideURL != "":
		if o.overrideFile == "" {
			return true, fmt.Errorf("-override-url needs -override-file")
		}
		sels, err := templates.LoadSelectors(o.overrideFile)
		if err != nil {
			return true, err
		}
		t, err := reg.CreateURLOverride(ctx, o.overrideURL, sels, nil, extract.Cleanup{})
		if err != nil {
			return true, err
		}
		return true, printJSON(t)

	case o.usage != "":
		var since time.Time
		if o.usage != "0" {
			d, err := time.ParseDuration(o.usage)
			if err != nil {
				return true, fmt.Errorf("-usage: %w", err)
			}
			since = time.Now().Add(-d)
		}
		rows, err := st.UsageStats(ctx, since)
		if err != nil {
			return true, err
		}
		return true, printJSON(rows)
	}
	return false, nil
}
