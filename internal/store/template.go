package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/adcheck/extract"
	"github.com/hazyhaar/adcheck/internal/dbopen"
)

// TemplateInfo is a listing row for the template admin surface.
type TemplateInfo struct {
	ID        string `json:"template_id"`
	Platform  string `json:"platform"`
	Sections  int    `json:"sections"`
	Builtin   bool   `json:"builtin"`
	UpdatedAt int64  `json:"updated_at"`
}

// SaveTemplate inserts or replaces a template. created_at survives updates.
func (s *Store) SaveTemplate(ctx context.Context, t *extract.Template, builtin bool) error {
	sels, err := json.Marshal(t.Selectors)
	if err != nil {
		return fmt.Errorf("store: marshal selectors: %w", err)
	}
	cleanup, err := json.Marshal(t.Cleanup)
	if err != nil {
		return fmt.Errorf("store: marshal cleanup: %w", err)
	}
	order, err := json.Marshal(t.SectionOrder)
	if err != nil {
		return fmt.Errorf("store: marshal order: %w", err)
	}
	now := time.Now().UnixMilli()

	_, err = dbopen.Exec(ctx, s.DB, `
		INSERT INTO extraction_templates
			(template_id, platform, selectors, cleanup_rules, extraction_order, builtin, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(template_id) DO UPDATE SET
			platform = excluded.platform,
			selectors = excluded.selectors,
			cleanup_rules = excluded.cleanup_rules,
			extraction_order = excluded.extraction_order,
			builtin = excluded.builtin,
			updated_at = excluded.updated_at`,
		t.ID, t.Platform, string(sels), string(cleanup), string(order), boolInt(builtin), now, now,
	)
	return err
}

// GetTemplate loads a template by ID. Returns nil, nil when absent.
func (s *Store) GetTemplate(ctx context.Context, id string) (*extract.Template, error) {
	var sels, cleanup, order string
	t := &extract.Template{}
	err := s.DB.QueryRowContext(ctx, `
		SELECT template_id, platform, selectors, cleanup_rules, extraction_order
		FROM extraction_templates WHERE template_id = ?`, id).Scan(
		&t.ID, &t.Platform, &sels, &cleanup, &order,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sels), &t.Selectors); err != nil {
		return nil, fmt.Errorf("store: template %s selectors: %w", id, err)
	}
	if err := json.Unmarshal([]byte(cleanup), &t.Cleanup); err != nil {
		return nil, fmt.Errorf("store: template %s cleanup: %w", id, err)
	}
	if err := json.Unmarshal([]byte(order), &t.SectionOrder); err != nil {
		return nil, fmt.Errorf("store: template %s order: %w", id, err)
	}
	return t, nil
}

// ListTemplates returns every stored template ordered by ID.
func (s *Store) ListTemplates(ctx context.Context) ([]TemplateInfo, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT template_id, platform, extraction_order, builtin, updated_at
		FROM extraction_templates ORDER BY template_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TemplateInfo
	for rows.Next() {
		var ti TemplateInfo
		var order string
		var builtin int
		if err := rows.Scan(&ti.ID, &ti.Platform, &order, &builtin, &ti.UpdatedAt); err != nil {
			return nil, err
		}
		var sections []string
		if err := json.Unmarshal([]byte(order), &sections); err != nil {
			return nil, fmt.Errorf("store: template %s: extraction_order: %w", ti.ID, err)
		}
		ti.Sections = len(sections)
		ti.Builtin = builtin != 0
		out = append(out, ti)
	}
	return out, rows.Err()
}

// DeleteTemplate removes a template. Reports whether a row existed.
func (s *Store) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM extraction_templates WHERE template_id = ?`, id)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
