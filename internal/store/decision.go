package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hazyhaar/adcheck/decisions"
	"github.com/hazyhaar/adcheck/internal/dbopen"
)

var _ decisions.Backend = (*Store)(nil)

// GetDecision returns the cached verdict for (templateID, ruleKey), or
// nil, nil on a miss.
func (s *Store) GetDecision(ctx context.Context, templateID, ruleKey string) (*decisions.Decision, error) {
	d := &decisions.Decision{}
	var status, method string
	var verifiedAt int64
	err := s.DB.QueryRowContext(ctx, `
		SELECT template_id, rule_key, status, confidence, method, notes, verified_at
		FROM template_decisions WHERE template_id = ? AND rule_key = ?`,
		templateID, ruleKey).Scan(
		&d.TemplateID, &d.RuleKey, &status, &d.Confidence, &method, &d.Notes, &verifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	d.Status = decisions.Status(status)
	d.Method = decisions.Method(method)
	d.VerifiedAt = time.UnixMilli(verifiedAt)
	return d, nil
}

// UpsertDecision replaces the verdict for the decision's key in a single
// statement. Concurrent writers race; the last write wins.
func (s *Store) UpsertDecision(ctx context.Context, d *decisions.Decision) error {
	if d.VerifiedAt.IsZero() {
		d.VerifiedAt = time.Now()
	}
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO template_decisions
			(template_id, rule_key, status, confidence, method, notes, verified_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(template_id, rule_key) DO UPDATE SET
			status = excluded.status,
			confidence = excluded.confidence,
			method = excluded.method,
			notes = excluded.notes,
			verified_at = excluded.verified_at`,
		d.TemplateID, d.RuleKey, string(d.Status), d.Confidence, string(d.Method), d.Notes, d.VerifiedAt.UnixMilli(),
	)
	return err
}

// DeleteDecision removes one cached verdict.
func (s *Store) DeleteDecision(ctx context.Context, templateID, ruleKey string) (int64, error) {
	res, err := dbopen.Exec(ctx, s.DB,
		`DELETE FROM template_decisions WHERE template_id = ? AND rule_key = ?`, templateID, ruleKey)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteTemplateDecisions removes every cached verdict of a template.
func (s *Store) DeleteTemplateDecisions(ctx context.Context, templateID string) (int64, error) {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM template_decisions WHERE template_id = ?`, templateID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListDecisions lists cached verdicts, all of them when templateID is empty.
func (s *Store) ListDecisions(ctx context.Context, templateID string) ([]*decisions.Decision, error) {
	q := `SELECT template_id, rule_key, status, confidence, method, notes, verified_at FROM template_decisions`
	var args []any
	if templateID != "" {
		q += ` WHERE template_id = ?`
		args = append(args, templateID)
	}
	q += ` ORDER BY template_id, rule_key`

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*decisions.Decision
	for rows.Next() {
		d := &decisions.Decision{}
		var status, method string
		var verifiedAt int64
		if err := rows.Scan(&d.TemplateID, &d.RuleKey, &status, &d.Confidence, &method, &d.Notes, &verifiedAt); err != nil {
			return nil, err
		}
		d.Status = decisions.Status(status)
		d.Method = decisions.Method(method)
		d.VerifiedAt = time.UnixMilli(verifiedAt)
		out = append(out, d)
	}
	return out, rows.Err()
}
