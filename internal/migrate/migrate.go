// Package migrate applies the embedded schema migrations in filename order.
package migrate

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/example/dps-agent/internal/db"
)

//go:embed *.sql
var migrations embed.FS

// Up applies every pending migration. Already-applied versions are tracked
// in schema_migrations and skipped, so Up is safe to run on every start.
func Up(ctx context.Context, d *db.DB) error {
	files, err := pendingOrder()
	if err != nil {
		return err
	}

	if err := d.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("ensuring schema_migrations: %w", err)
	}

	for _, f := range files {
		var applied bool
		if err := d.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version=$1)`, f).Scan(&applied); err != nil {
			return fmt.Errorf("checking %s: %w", f, err)
		}
		if applied {
			continue
		}

		sql, err := migrations.ReadFile(f)
		if err != nil {
			return err
		}
		if err := d.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", f, err)
		}
		if err := d.Exec(ctx, `INSERT INTO schema_migrations(version) VALUES ($1)`, f); err != nil {
			return fmt.Errorf("recording %s: %w", f, err)
		}
	}
	return nil
}

func pendingOrder() ([]string, error) {
	entries, err := migrations.ReadDir(".")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
