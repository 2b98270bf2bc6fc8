package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id            UUID        PRIMARY KEY,
  email         TEXT        NOT NULL UNIQUE,
  password_hash TEXT        NOT NULL,
  role          TEXT        NOT NULL CHECK (role IN ('USER', 'VENDOR', 'ADMIN')),
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_sessions",
		SQL: `CREATE TABLE IF NOT EXISTS sessions (
  token      TEXT        PRIMARY KEY,
  user_id    UUID        NOT NULL REFERENCES users (id) ON DELETE CASCADE,
  role       TEXT        NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  expires_at TIMESTAMPTZ NOT NULL CHECK (expires_at > created_at)
);`,
	},
	{
		Name: "create_table_shops",
		SQL: `CREATE TABLE IF NOT EXISTS shops (
  id          UUID        PRIMARY KEY,
  owner_id    UUID        NOT NULL REFERENCES users (id),
  owner_name  TEXT        NOT NULL,
  name        TEXT        NOT NULL UNIQUE,
  address     TEXT        NOT NULL,
  contact     TEXT,
  description TEXT,
  is_open     BOOLEAN     NOT NULL DEFAULT true,
  location    BYTEA       NOT NULL,
  note        TEXT,
  created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ
);`,
	},
	{
		Name: "create_table_items",
		SQL: `CREATE TABLE IF NOT EXISTS items (
  id          UUID          PRIMARY KEY,
  shop_id     UUID          NOT NULL REFERENCES shops (id) ON DELETE CASCADE,
  name        TEXT          NOT NULL,
  price       NUMERIC(12,2) NOT NULL CHECK (price > 0),
  description TEXT,
  note        TEXT,
  created_at  TIMESTAMPTZ   NOT NULL DEFAULT now(),
  updated_at  TIMESTAMPTZ,
  UNIQUE (shop_id, name)
);`,
	},
	{
		Name: "create_table_inventory",
		SQL: `CREATE TABLE IF NOT EXISTS inventory (
  id         UUID        PRIMARY KEY,
  shop_id    UUID        NOT NULL REFERENCES shops (id) ON DELETE CASCADE,
  item_id    UUID        NOT NULL REFERENCES items (id) ON DELETE CASCADE,
  quantity   INTEGER     NOT NULL CHECK (quantity >= 0),
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ,
  UNIQUE (shop_id, item_id)
);`,
	},
	{
		Name: "create_table_sync_jobs",
		SQL: `CREATE TABLE IF NOT EXISTS sync_jobs (
  id            SMALLINT    PRIMARY KEY CHECK (id = 1),
  status        TEXT        NOT NULL CHECK (status IN ('idle', 'running')),
  run_id        TEXT,
  cursor        TEXT        NOT NULL DEFAULT '',
  success_count INTEGER     NOT NULL DEFAULT 0,
  failure_count INTEGER     NOT NULL DEFAULT 0,
  started_at    TIMESTAMPTZ,
  finished_at   TIMESTAMPTZ,
  last_error    TEXT
);`,
	},
	{
		Name: "seed_sync_job",
		SQL:  `INSERT INTO sync_jobs (id, status) VALUES (1, 'idle') ON CONFLICT (id) DO NOTHING;`,
	},
	{
		Name: "create_index_sessions_user_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions (user_id);`,
	},
	{
		Name: "create_index_shops_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_shops_owner_id ON shops (owner_id);`,
	},
	{
		Name: "create_index_items_shop_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_items_shop_id ON items (shop_id);`,
	},
	{
		Name: "create_index_inventory_shop_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_inventory_shop_id ON inventory (shop_id);`,
	},
}

// sentinel is created by the last step, so its presence means every step ran.
const sentinel = "public.idx_inventory_shop_id"

// EnsureMigrated applies the schema unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Msg("checking schema")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinel).Scan(&exists); err != nil {
		log.Error().Err(err).
			Str("event", "db_migration_failed").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel table")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().Err(err).
				Str("event", "db_migration_failed").
				Str("migration_step", step.Name).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("migration step failed")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Debug().
			Str("event", "db_migration_step").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("migration step applied")
	}

	log.Info().
		Str("event", "db_migration_success").
		Int("steps", len(steps)).
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("schema migrated")
	return nil
}
