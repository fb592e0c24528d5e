package sqlite

// schema is the static DDL catalog applied by the initial migration.
// Every table, index, and trigger the store needs lives here; later
// migrations only ever ALTER what this creates. Grounded on the teacher's
// own internal/storage/sqlite/schema.go layout: one CREATE TABLE IF NOT
// EXISTS per entity, indexes declared immediately below their table.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    type TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    title TEXT NOT NULL CHECK(length(title) > 0),
    description TEXT NOT NULL DEFAULT '',
    provider TEXT,
    model TEXT,
    input_tokens INTEGER NOT NULL DEFAULT 0 CHECK(input_tokens >= 0),
    output_tokens INTEGER NOT NULL DEFAULT 0 CHECK(output_tokens >= 0),
    total_cost REAL NOT NULL DEFAULT 0 CHECK(total_cost >= 0),
    currency TEXT NOT NULL DEFAULT 'USD',
    duration_ms INTEGER CHECK(duration_ms IS NULL OR duration_ms >= 0),
    error_message TEXT,
    stack_trace TEXT,
    params TEXT NOT NULL DEFAULT '{}',
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    started_at DATETIME,
    completed_at DATETIME,
    parent_job_id TEXT REFERENCES jobs(id) ON DELETE SET NULL,
    CHECK (
        status NOT IN ('completed', 'failed', 'cancelled') OR completed_at IS NOT NULL
    )
);

CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_status_created ON jobs(status, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_type_created ON jobs(type, created_at);
CREATE INDEX IF NOT EXISTS idx_jobs_provider_model ON jobs(provider, model);
CREATE INDEX IF NOT EXISTS idx_jobs_parent ON jobs(parent_job_id);

CREATE TABLE IF NOT EXISTS job_artifacts (
    id TEXT PRIMARY KEY,
    job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    type TEXT NOT NULL,
    name TEXT NOT NULL CHECK(length(name) > 0),
    file_path TEXT NOT NULL,
    file_size INTEGER NOT NULL DEFAULT 0 CHECK(file_size >= 0),
    mime_type TEXT,
    hash_sha256 TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    is_deleted INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_artifacts_job ON job_artifacts(job_id);
CREATE INDEX IF NOT EXISTS idx_artifacts_hash ON job_artifacts(hash_sha256);
CREATE INDEX IF NOT EXISTS idx_artifacts_created ON job_artifacts(created_at DESC);

CREATE TABLE IF NOT EXISTS job_events (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
    event_type TEXT NOT NULL,
    message TEXT,
    level TEXT NOT NULL DEFAULT 'info',
    data TEXT NOT NULL DEFAULT '{}',
    metadata TEXT NOT NULL DEFAULT '{}',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_events_job_created ON job_events(job_id, created_at);
CREATE INDEX IF NOT EXISTS idx_events_level_created ON job_events(level, created_at);

CREATE TABLE IF NOT EXISTS cost_rates (
    id TEXT PRIMARY KEY,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    input_token_rate REAL NOT NULL CHECK(input_token_rate >= 0),
    output_token_rate REAL NOT NULL CHECK(output_token_rate >= 0),
    currency TEXT NOT NULL DEFAULT 'USD',
    effective_from DATE NOT NULL,
    effective_to DATE
);

CREATE INDEX IF NOT EXISTS idx_cost_rates_lookup ON cost_rates(provider, model, effective_from);

CREATE TABLE IF NOT EXISTS usage_stats (
    id TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    job_type TEXT NOT NULL,
    total_jobs INTEGER NOT NULL DEFAULT 0,
    total_input_tokens INTEGER NOT NULL DEFAULT 0,
    total_output_tokens INTEGER NOT NULL DEFAULT 0,
    total_cost REAL NOT NULL DEFAULT 0,
    average_duration_ms REAL NOT NULL DEFAULT 0,
    success_rate REAL NOT NULL DEFAULT 0,
    currency TEXT NOT NULL DEFAULT 'USD'
);

CREATE INDEX IF NOT EXISTS idx_usage_stats_lookup ON usage_stats(date, provider, model);

CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    executed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    execution_time_ms INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS storage_config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// seedCostRates lists the ten named models seeded by the initial
// migration, as flat (provider, model, input_rate, output_rate) tuples in
// USD per 1000 tokens, effective from the Unix epoch with no expiry.
var seedCostRates = []struct {
	Provider   string
	Model      string
	InputRate  float64
	OutputRate float64
}{
	{"openai", "gpt-4o", 0.0025, 0.01},
	{"openai", "gpt-4o-mini", 0.00015, 0.0006},
	{"openai", "gpt-4-turbo", 0.01, 0.03},
	{"openai", "gpt-3.5-turbo", 0.0005, 0.0015},
	{"anthropic", "claude-3-5-sonnet", 0.003, 0.015},
	{"anthropic", "claude-3-opus", 0.015, 0.075},
	{"anthropic", "claude-3-haiku", 0.00025, 0.00125},
	{"google", "gemini-1.5-pro", 0.00125, 0.005},
	{"google", "gemini-1.5-flash", 0.000075, 0.0003},
	{"stability", "stable-diffusion-xl", 0, 0.002},
}

// seedStorageConfig lists the default storage_config rows written by the
// initial migration.
var seedStorageConfig = map[string]string{
	"default_artifact_retention_days": "90",
	"max_artifact_size_mb":            "100",
	"cleanup_enabled":                 "false",
	"usage_stats_rollup_hour":         "2",
}
