package relational

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/engines"
	"github.com/seqsift/seqsift/types"
)

// postgresDialect runs against an existing server. Every run prefixes its
// scratch tables with a fresh identifier, so concurrent runs can share
// one database, and drops them on cleanup.
type postgresDialect struct {
	prefix string
}

func (d *postgresDialect) open(cfg *types.FilterConfig) (*sqlx.DB, error) {
	d.prefix = fmt.Sprintf("seqsift_%s_", strings.ReplaceAll(uuid.New().String(), "-", ""))
	db, err := sqlx.Open("pgx", cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %s", err)
	}
	return db, nil
}

func (d *postgresDialect) table(base string) string {
	return d.prefix + base
}

func (d *postgresDialect) cleanup(ctx context.Context, db *sqlx.DB) error {
	for _, base := range scratchTables {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", d.table(base))); err != nil {
			db.Close()
			return fmt.Errorf("failed to drop scratch table %s: %s", d.table(base), err)
		}
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %s", err)
	}
	return nil
}

func init() {
	engines.RegisteredEngines[constants.EnginePostgres] = func() engines.Engine {
		return &Engine{dia: &postgresDialect{}}
	}
}
