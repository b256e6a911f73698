package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/safety-hazards/internal/transport/rest"
	"github.com/frahmantamala/safety-hazards/pkg/logger"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
	}
	migrateRollback bool
	migrateDir      string
)

// migrationsTable is where goose records applied versions.
const migrationsTable = "schema_migrations"

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer db.Close()

	goose.SetTableName(migrationsTable)

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	logger.LoggerWrapper().Info("migration finished", "command", command, "dir", migrateDir)
	return nil
}

// schemaCheck reports the newest applied migration. It only reads, so a
// database that was never migrated shows up as unhealthy.
func schemaCheck(db *sqlx.DB) rest.CheckFunc {
	query := fmt.Sprintf("SELECT COALESCE(MAX(version_id), 0) FROM %s WHERE is_applied", migrationsTable)
	return func(ctx context.Context) (map[string]any, string, bool) {
		var version int64
		if err := db.GetContext(ctx, &version, query); err != nil {
			return nil, "migrations not applied", false
		}
		if version == 0 {
			return nil, "migrations not applied", false
		}
		return map[string]any{"version": version}, "", true
	}
}
