package store

import (
	"context"
	"time"

	"github.com/hazyhaar/adcheck/internal/dbopen"
	"github.com/hazyhaar/adcheck/llm"
)

var _ llm.CallSink = (*Store)(nil)

// UsageRow aggregates the call log per operation and model.
type UsageRow struct {
	Operation    string  `json:"operation"`
	Model        string  `json:"model"`
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	AvgMillis    float64 `json:"avg_duration_ms"`
}

// RecordCall appends one model call to the log.
func (s *Store) RecordCall(ctx context.Context, c llm.Call) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		INSERT INTO llm_calls
			(id, check_id, operation, provider, model, input_tokens, output_tokens,
			 cost_usd, duration_ms, success, error, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.CheckID, c.Operation, c.Provider, c.Model, c.InputTokens, c.OutputTokens,
		c.CostUSD, c.Duration.Milliseconds(), boolInt(c.Err == ""), c.Err, c.CreatedAt.UnixMilli(),
	)
	return err
}

// UsageStats aggregates calls made at or after since. A zero since covers
// the whole log.
func (s *Store) UsageStats(ctx context.Context, since time.Time) ([]UsageRow, error) {
	var sinceMs int64
	if !since.IsZero() {
		sinceMs = since.UnixMilli()
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT operation, model, COUNT(*),
		       SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END),
		       COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(cost_usd), 0), COALESCE(AVG(duration_ms), 0)
		FROM llm_calls
		WHERE created_at >= ?
		GROUP BY operation, model
		ORDER BY operation, model`, sinceMs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UsageRow
	for rows.Next() {
		var u UsageRow
		if err := rows.Scan(&u.Operation, &u.Model, &u.Calls, &u.Failures,
			&u.InputTokens, &u.OutputTokens, &u.CostUSD, &u.AvgMillis); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CheckCost sums the recorded cost and tokens of one check.
func (s *Store) CheckCost(ctx context.Context, checkID string) (tokens int, cost float64, err error) {
	err = s.DB.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(input_tokens + output_tokens), 0), COALESCE(SUM(cost_usd), 0)
		FROM llm_calls WHERE check_id = ?`, checkID).Scan(&tokens, &cost)
	return tokens, cost, err
}
