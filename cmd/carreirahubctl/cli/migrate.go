package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carreirahub/carreirahub/internal/platform/db"
	"github.com/carreirahub/carreirahub/migrations"
)

// MigrateCommand applies pending schema migrations and prints each version.
func MigrateCommand(ctx context.Context, pool *pgxpool.Pool, out io.Writer) error {
	applied, err := db.Migrate(ctx, pool, migrations.Files)
	for _, v := range applied {
		_, _ = fmt.Fprintf(out, "applied %s\n", v)
	}
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		_, _ = fmt.Fprintln(out, "schema up to date")
	}
	return nil
}
