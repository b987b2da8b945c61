package decisions

import (
	"context"
	"sort"
	"sync"
)

type key struct{ template, rule string }

// MemoryBackend keeps decisions in a mutex-guarded map. It is used for
// runs without a database and in tests.
type MemoryBackend struct {
	mu sync.Mutex
	m  map[key]Decision
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{m: make(map[key]Decision)}
}

func (b *MemoryBackend) GetDecision(_ context.Context, templateID, ruleKey string) (*Decision, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.m[key{templateID, ruleKey}]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (b *MemoryBackend) UpsertDecision(_ context.Context, d *Decision) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.m[key{d.TemplateID, d.RuleKey}] = *d
	return nil
}

func (b *MemoryBackend) DeleteDecision(_ context.Context, templateID, ruleKey string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key{templateID, ruleKey}
	if _, ok := b.m[k]; !ok {
		return 0, nil
	}
	delete(b.m, k)
	return 1, nil
}

func (b *MemoryBackend) DeleteTemplateDecisions(_ context.Context, templateID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.m {
		if k.template == templateID {
			delete(b.m, k)
			n++
		}
	}
	return n, nil
}

func (b *MemoryBackend) ListDecisions(_ context.Context, templateID string) ([]*Decision, error) {
	b.mu.Lock()
	out := make([]*Decision, 0, len(b.m))
	for k, d := range b.m {
		if templateID != "" && k.template != templateID {
			continue
		}
		d := d
		out = append(out, &d)
	}
	b.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].TemplateID != out[j].TemplateID {
			return out[i].TemplateID < out[j].TemplateID
		}
		return out[i].RuleKey < out[j].RuleKey
	})
	return out, nil
}
