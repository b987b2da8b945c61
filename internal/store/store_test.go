package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hazyhaar/adcheck/decisions"
	"github.com/hazyhaar/adcheck/extract"
	"github.com/hazyhaar/adcheck/internal/dbopen"
	"github.com/hazyhaar/adcheck/llm"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if _, err := db.Exec(Schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return &Store{DB: db}
}

func TestTemplateCRUD(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	tpl := &extract.Template{
		ID:           "url_allstar_example",
		Platform:     "custom",
		SectionOrder: []string{"heading", "price"},
		Selectors: map[string][]string{
			"heading": {".title h1", "h1"},
			"price":   {".final-price"},
		},
		Cleanup: extract.Cleanup{RemoveSelectors: []string{"nav"}, MainContentOnly: true},
	}
	if err := s.SaveTemplate(ctx, tpl, false); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetTemplate(ctx, "url_allstar_example")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("get: got nil")
	}
	if got.Platform != "custom" {
		t.Errorf("Platform: got %q, want custom", got.Platform)
	}
	if len(got.SectionOrder) != 2 || got.SectionOrder[0] != "heading" {
		t.Errorf("SectionOrder: got %v", got.SectionOrder)
	}
	if len(got.Selectors["heading"]) != 2 || got.Selectors["heading"][1] != "h1" {
		t.Errorf("Selectors: got %v", got.Selectors)
	}
	if !got.Cleanup.MainContentOnly || len(got.Cleanup.RemoveSelectors) != 1 {
		t.Errorf("Cleanup: got %+v", got.Cleanup)
	}

	// Update in place.
	tpl.Platform = "dealer.com"
	if err := s.SaveTemplate(ctx, tpl, false); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, _ = s.GetTemplate(ctx, "url_allstar_example")
	if got.Platform != "dealer.com" {
		t.Errorf("Platform after update: got %q", got.Platform)
	}

	list, err := s.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Sections != 2 || list[0].Builtin {
		t.Errorf("list: got %+v", list)
	}

	ok, err := s.DeleteTemplate(ctx, "url_allstar_example")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	got, err = s.GetTemplate(ctx, "url_allstar_example")
	if err != nil || got != nil {
		t.Errorf("after delete: got %v, err %v", got, err)
	}
}

func TestListTemplatesCorruptOrder(t *testing.T) {
	s := testStore(t)
	_, err := s.DB.Exec(`INSERT INTO extraction_templates
		(template_id, extraction_order, created_at, updated_at) VALUES ('broken', 'not json', 1, 1)`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ListTemplates(context.Background()); err == nil {
		t.Error("corrupt extraction_order listed without error")
	}
}

func TestGetTemplateMissing(t *testing.T) {
	s := testStore(t)
	got, err := s.GetTemplate(context.Background(), "nope")
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestDecisionUpsertOverwrites(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	a := &decisions.Decision{TemplateID: "dealer.com_vdp", RuleKey: "disclaimer_proximity",
		Status: decisions.StatusCompliant, Confidence: 0.92, Method: decisions.MethodVisual, Notes: "A"}
	b := &decisions.Decision{TemplateID: "dealer.com_vdp", RuleKey: "disclaimer_proximity",
		Status: decisions.StatusNonCompliant, Confidence: 0.71, Method: decisions.MethodVisual, Notes: "B"}

	if err := s.UpsertDecision(ctx, a); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := s.UpsertDecision(ctx, b); err != nil {
		t.Fatalf("upsert b: %v", err)
	}

	var n int
	s.DB.QueryRow(`SELECT COUNT(*) FROM template_decisions`).Scan(&n)
	if n != 1 {
		t.Fatalf("rows: got %d, want 1", n)
	}

	got, err := s.GetDecision(ctx, "dealer.com_vdp", "disclaimer_proximity")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != decisions.StatusNonCompliant || got.Confidence != 0.71 || got.Notes != "B" {
		t.Errorf("got %+v, want B", got)
	}
	if got.VerifiedAt.IsZero() {
		t.Error("VerifiedAt not set")
	}
}

func TestDecisionStatusConstraint(t *testing.T) {
	s := testStore(t)
	err := s.UpsertDecision(context.Background(), &decisions.Decision{
		TemplateID: "t", RuleKey: "r", Status: "maybe", Confidence: 0.5, Method: decisions.MethodVisual,
	})
	if err == nil {
		t.Fatal("CHECK constraint should reject unknown status")
	}
}

func TestDecisionMissAndDeletes(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if d, err := s.GetDecision(ctx, "t", "r"); d != nil || err != nil {
		t.Fatalf("miss: got %v, %v", d, err)
	}

	for _, k := range [][2]string{{"A", "r1"}, {"A", "r2"}, {"B", "r1"}} {
		s.UpsertDecision(ctx, &decisions.Decision{TemplateID: k[0], RuleKey: k[1],
			Status: decisions.StatusCompliant, Confidence: 0.9, Method: decisions.MethodVisual})
	}

	all, _ := s.ListDecisions(ctx, "")
	if len(all) != 3 {
		t.Fatalf("list all: got %d", len(all))
	}
	onlyA, _ := s.ListDecisions(ctx, "A")
	if len(onlyA) != 2 || onlyA[0].RuleKey != "r1" {
		t.Errorf("list A: got %+v", onlyA)
	}

	if n, _ := s.DeleteDecision(ctx, "A", "r1"); n != 1 {
		t.Errorf("DeleteDecision: removed %d", n)
	}
	if n, _ := s.DeleteTemplateDecisions(ctx, "A"); n != 1 {
		t.Errorf("DeleteTemplateDecisions: removed %d", n)
	}
	rest, _ := s.ListDecisions(ctx, "")
	if len(rest) != 1 || rest[0].TemplateID != "B" {
		t.Errorf("remaining: %+v", rest)
	}
}

func TestCacheOverStore(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	c := decisions.New(s, nil)

	if err := c.Upsert(ctx, "custom_example_com", "homepage_contact_visibility",
		decisions.StatusCompliant, 0.9, decisions.MethodVisual, "phone in header"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !c.ShouldSkip(ctx, "custom_example_com", "homepage_contact_visibility", 0.85) {
		t.Error("expected skip at confidence 0.9")
	}
}

func TestConcurrentUpsertsFileDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adcheck.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.UpsertDecision(ctx, &decisions.Decision{TemplateID: "T", RuleKey: "R",
				Status: decisions.StatusFor(i%2 == 0), Confidence: 0.9, Method: decisions.MethodVisual})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("upsert: %v", err)
		}
	}

	all, _ := s.ListDecisions(ctx, "T")
	if len(all) != 1 {
		t.Errorf("rows: got %d, want 1", len(all))
	}
}

func TestRecordCallAndUsage(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	calls := []llm.Call{
		{ID: "llm_1", CheckID: "chk_1", Operation: "text_analysis", Model: "gpt-4o", InputTokens: 1000, OutputTokens: 200, CostUSD: 0.005, Duration: 2 * time.Second, CreatedAt: now},
		{ID: "llm_2", CheckID: "chk_1", Operation: "visual_verification", Model: "gpt-4o", InputTokens: 900, OutputTokens: 100, CostUSD: 0.0037, Duration: time.Second, CreatedAt: now},
		{ID: "llm_3", CheckID: "chk_2", Operation: "text_analysis", Model: "gpt-4o", Err: errors.New("timeout").Error(), Duration: time.Second, CreatedAt: now},
	}
	for _, c := range calls {
		if err := s.RecordCall(ctx, c); err != nil {
			t.Fatalf("record %s: %v", c.ID, err)
		}
	}

	rows, err := s.UsageStats(ctx, time.Time{})
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("usage rows: got %d, want 2", len(rows))
	}
	text := rows[0]
	if text.Operation != "text_analysis" || text.Calls != 2 || text.Failures != 1 || text.InputTokens != 1000 {
		t.Errorf("text row: %+v", text)
	}

	tokens, cost, err := s.CheckCost(ctx, "chk_1")
	if err != nil {
		t.Fatalf("check cost: %v", err)
	}
	if tokens != 2200 {
		t.Errorf("tokens: got %d, want 2200", tokens)
	}
	if cost < 0.0086 || cost > 0.0088 {
		t.Errorf("cost: got %v, want ~0.0087", cost)
	}

	future, _ := s.UsageStats(ctx, now.Add(time.Hour))
	if len(future) != 0 {
		t.Errorf("since filter: got %d rows", len(future))
	}
}
