package store

// Schema contains the complete DDL for the adcheck tables.
const Schema = `
-- Extraction templates: typed selector sets, JSON columns hold lists/maps.
CREATE TABLE IF NOT EXISTS extraction_templates (
    template_id      TEXT PRIMARY KEY,
    platform         TEXT NOT NULL DEFAULT '',
    selectors        TEXT NOT NULL DEFAULT '{}',
    cleanup_rules    TEXT NOT NULL DEFAULT '{}',
    extraction_order TEXT NOT NULL DEFAULT '[]',
    builtin          INTEGER NOT NULL DEFAULT 0,
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL
);

-- Template decision cache: one current verdict per (template, rule).
CREATE TABLE IF NOT EXISTS template_decisions (
    template_id TEXT NOT NULL,
    rule_key    TEXT NOT NULL,
    status      TEXT NOT NULL CHECK (status IN ('compliant', 'non_compliant', 'uncertain')),
    confidence  REAL NOT NULL,
    method      TEXT NOT NULL,
    notes       TEXT NOT NULL DEFAULT '',
    verified_at INTEGER NOT NULL,
    PRIMARY KEY (template_id, rule_key)
);
CREATE INDEX IF NOT EXISTS idx_decisions_verified ON template_decisions(verified_at);

-- Model call log for usage and cost reporting.
CREATE TABLE IF NOT EXISTS llm_calls (
    id            TEXT PRIMARY KEY,
    check_id      TEXT NOT NULL DEFAULT '',
    operation     TEXT NOT NULL,
    provider      TEXT NOT NULL DEFAULT '',
    model         TEXT NOT NULL,
    input_tokens  INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    cost_usd      REAL NOT NULL DEFAULT 0,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    success       INTEGER NOT NULL DEFAULT 1,
    error         TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_llm_calls_created ON llm_calls(created_at);
CREATE INDEX IF NOT EXISTS idx_llm_calls_check ON llm_calls(check_id) WHERE check_id != '';
`
