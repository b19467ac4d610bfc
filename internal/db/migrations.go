package db

import (
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	logx "github.com/gratefultolord/insurance_bot/pkg/logger"
)

// RunMigrations executes every statement of the given scripts in order.
// "already exists" and "duplicate key" errors are skipped so reruns are harmless.
func RunMigrations(conn *sqlx.DB, scriptPaths ...string) error {
	for _, scriptPath := range scriptPaths {
		logx.Info().Str("script", scriptPath).Msg("executing SQL script")

		content, err := os.ReadFile(scriptPath)
		if err != nil {
			return fmt.Errorf("db.RunMigrations: cannot read %s: %w", scriptPath, err)
		}

		for _, stmt := range strings.Split(string(content), ";") {
			stmt = strings.TrimSpace(stmt)
			if stmt == "" {
				continue
			}

			if _, err := conn.Exec(stmt); err != nil {
				if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "duplicate key") {
					logx.Warn().Err(err).Str("script", scriptPath).Msg("skipping SQL error")
					continue
				}
				return fmt.Errorf("db.RunMigrations: error executing statement in %s: %w", scriptPath, err)
			}
		}
	}

	return nil
}
