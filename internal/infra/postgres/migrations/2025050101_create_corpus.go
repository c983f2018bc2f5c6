package migrations

import (
	"context"
	_ "embed"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_corpus.sql
var createCorpusSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			return execStatements(ctx, db, createCorpusSQL)
		},
		func(ctx context.Context, db *bun.DB) error {
			return execStatements(ctx, db, `DROP TABLE IF EXISTS titles; DROP TABLE IF EXISTS questions`)
		},
	)
}

// execStatements runs a ';'-separated script one statement at a time.
func execStatements(ctx context.Context, db *bun.DB, script string) error {
	for _, stmt := range strings.Split(script, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
