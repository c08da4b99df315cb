// Package infrastructure provides database and connection pool setup plus
// the concrete repository/query implementations the rest of the module
// depends on only through ports (pipeline.RunRepository, pipeline.RunLister,
// submission.SubmissionRepository, jobs.RunLoader, and friends).
//
// Import Path: enrichpipe.io/engine/internal/infrastructure
package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"

	"enrichpipe.io/engine/internal/config"
	"enrichpipe.io/engine/internal/pkg/logger"
)

// DatabaseClients contains all database-related clients. All clients share
// a single pgxpool connection pool (spec.md §5's suspension-point model
// relies on one pool backing both entitystore reads/writes and River
// dispatch).
type DatabaseClients struct {
	// Pool is the shared connection pool (entitystore + River + submission repo).
	Pool *pgxpool.Pool

	// RiverClient is the River job queue client backed by the shared pool.
	RiverClient *river.Client[pgx.Tx]

	// WorkerPool is optional: separate pool for PgBouncer scenarios.
	// nil means reuse Pool.
	WorkerPool *pgxpool.Pool
}

// NewDatabaseClients creates database clients with a shared connection pool.
func NewDatabaseClients(ctx context.Context, cfg config.DatabaseConfig) (*DatabaseClients, error) {
	dsn := cfg.DSN()

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	poolConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SET timezone = 'UTC'")
		return err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection pool created",
		"max_conns", cfg.MaxConns,
		"min_conns", cfg.MinConns,
	)

	return &DatabaseClients{Pool: pool}, nil
}

// AutoMigrate creates every table this engine owns plus River's own queue
// tables. Development-only; production deployments are expected to manage
// schema migrations outside this process.
func (c *DatabaseClients) AutoMigrate(ctx context.Context) error {
	logger.Info("running schema auto-migration...")
	if err := c.AutoMigrateSchemaOnly(ctx); err != nil {
		return err
	}
	logger.Info("schema auto-migration completed")

	logger.Info("running river migration...")
	migrator, err := rivermigrate.New(riverpgxv5.New(c.Pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	res, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	if err != nil {
		return fmt.Errorf("river migrate up: %w", err)
	}
	if len(res.Versions) > 0 {
		logger.Info("river migration completed", "versions_applied", len(res.Versions))
	} else {
		logger.Info("river migration: already up-to-date")
	}

	return nil
}

// AutoMigrateSchemaOnly creates this engine's own tables without touching
// River's internal queue tables. Used by repository tests that have no need
// for a River client.
func (c *DatabaseClients) AutoMigrateSchemaOnly(ctx context.Context) error {
	if _, err := c.Pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("auto-migrate schema: %w", err)
	}
	return nil
}

// InitRiverClient creates a River client with registered workers.
func (c *DatabaseClients) InitRiverClient(workers *river.Workers, cfg config.RiverConfig) error {
	riverClient, err := river.NewClient(riverpgxv5.New(c.Pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.MaxWorkers},
			"pipeline_steps":   {MaxWorkers: cfg.MaxWorkers},
		},
		Workers:                     workers,
		CompletedJobRetentionPeriod: cfg.CompletedJobRetentionPeriod,
	})
	if err != nil {
		return fmt.Errorf("create river client: %w", err)
	}
	c.RiverClient = riverClient
	logger.Info("river client initialized", "max_workers", cfg.MaxWorkers)
	return nil
}

// GetWorkerPool returns the worker connection pool, falling back to the
// shared pool if no dedicated one was configured.
func (c *DatabaseClients) GetWorkerPool() *pgxpool.Pool {
	if c.WorkerPool != nil {
		return c.WorkerPool
	}
	return c.Pool
}

// Close closes all connection pools gracefully.
func (c *DatabaseClients) Close() {
	if c.WorkerPool != nil {
		c.WorkerPool.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// schemaDDL creates every table this engine owns (spec.md §3's data
// model). Natural-key columns are nullable since only one entity type's
// subset applies to any given row's table.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS orgs (
	org_id     TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS blueprints (
	blueprint_id TEXT PRIMARY KEY,
	org_id       TEXT NOT NULL REFERENCES orgs(org_id),
	name         TEXT NOT NULL,
	is_active    BOOLEAN NOT NULL DEFAULT true,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS blueprint_steps (
	blueprint_id  TEXT NOT NULL REFERENCES blueprints(blueprint_id),
	position      INT NOT NULL,
	operation_id  TEXT NOT NULL,
	step_config   JSONB NOT NULL DEFAULT '{}',
	fan_out       BOOLEAN NOT NULL DEFAULT false,
	is_enabled    BOOLEAN NOT NULL DEFAULT true,
	skip_if_fresh JSONB,
	PRIMARY KEY (blueprint_id, position)
);

CREATE TABLE IF NOT EXISTS submissions (
	submission_id UUID PRIMARY KEY,
	org_id        TEXT NOT NULL REFERENCES orgs(org_id),
	company_id    TEXT NOT NULL,
	blueprint_id  TEXT NOT NULL REFERENCES blueprints(blueprint_id),
	entities      JSONB NOT NULL,
	status        TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id             UUID PRIMARY KEY,
	org_id             TEXT NOT NULL REFERENCES orgs(org_id),
	submission_id      UUID NOT NULL REFERENCES submissions(submission_id),
	parent_run_id      UUID REFERENCES pipeline_runs(run_id),
	trigger_run_id     UUID REFERENCES pipeline_runs(run_id),
	blueprint_snapshot JSONB NOT NULL,
	entity_input       JSONB NOT NULL,
	entity_index       INT NOT NULL DEFAULT 0,
	entity_type        TEXT NOT NULL,
	cumulative_context JSONB NOT NULL DEFAULT '{}',
	current_position   INT NOT NULL DEFAULT 1,
	status             TEXT NOT NULL,
	error_message      TEXT,
	fanout_depth       INT NOT NULL DEFAULT 0,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_submission ON pipeline_runs(submission_id);

CREATE TABLE IF NOT EXISTS step_results (
	run_id            UUID NOT NULL REFERENCES pipeline_runs(run_id),
	position          INT NOT NULL,
	attempt_number    INT NOT NULL,
	operation_id      TEXT NOT NULL,
	status            TEXT NOT NULL,
	input_payload     JSONB,
	output_payload    JSONB,
	provider_attempts JSONB,
	error             TEXT,
	skip_reason       TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, position, attempt_number)
);

CREATE TABLE IF NOT EXISTS company_entities (
	entity_id         UUID PRIMARY KEY,
	org_id            TEXT NOT NULL REFERENCES orgs(org_id),
	domain            TEXT,
	linkedin_url      TEXT,
	name              TEXT,
	record_version    INT NOT NULL DEFAULT 1,
	canonical_payload JSONB NOT NULL DEFAULT '{}',
	source_providers  TEXT[] NOT NULL DEFAULT '{}',
	last_enriched_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_run_id       UUID,
	last_operation_id TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_company_entities_domain ON company_entities(org_id, domain) WHERE domain IS NOT NULL;

CREATE TABLE IF NOT EXISTS person_entities (
	entity_id         UUID PRIMARY KEY,
	org_id            TEXT NOT NULL REFERENCES orgs(org_id),
	linkedin_url      TEXT,
	work_email        TEXT,
	full_name         TEXT,
	record_version    INT NOT NULL DEFAULT 1,
	canonical_payload JSONB NOT NULL DEFAULT '{}',
	source_providers  TEXT[] NOT NULL DEFAULT '{}',
	last_enriched_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_run_id       UUID,
	last_operation_id TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_person_entities_linkedin ON person_entities(org_id, linkedin_url) WHERE linkedin_url IS NOT NULL;

CREATE TABLE IF NOT EXISTS job_posting_entities (
	entity_id         UUID PRIMARY KEY,
	org_id            TEXT NOT NULL REFERENCES orgs(org_id),
	theirstack_job_id TEXT,
	job_url           TEXT,
	title             TEXT,
	company_domain    TEXT,
	record_version    INT NOT NULL DEFAULT 1,
	canonical_payload JSONB NOT NULL DEFAULT '{}',
	source_providers  TEXT[] NOT NULL DEFAULT '{}',
	last_enriched_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_run_id       UUID,
	last_operation_id TEXT
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_job_posting_entities_theirstack ON job_posting_entities(org_id, theirstack_job_id) WHERE theirstack_job_id IS NOT NULL;

CREATE TABLE IF NOT EXISTS entity_snapshots (
	snapshot_id       BIGSERIAL PRIMARY KEY,
	org_id            TEXT NOT NULL REFERENCES orgs(org_id),
	entity_type       TEXT NOT NULL,
	entity_id         UUID NOT NULL,
	record_version    INT NOT NULL,
	canonical_payload JSONB NOT NULL,
	source_run_id     UUID,
	captured_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_entity_snapshots_entity ON entity_snapshots(org_id, entity_type, entity_id, captured_at DESC);
`
