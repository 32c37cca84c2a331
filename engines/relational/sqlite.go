package relational

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/engines"
	"github.com/seqsift/seqsift/types"
)

// sqliteDialect runs against a single-use database file in the system
// temp directory, created on open and removed on cleanup.
type sqliteDialect struct {
	path string
}

func (d *sqliteDialect) open(_ *types.FilterConfig) (*sqlx.DB, error) {
	d.path = filepath.Join(os.TempDir(), fmt.Sprintf("seqsift-%s.db", uuid.New().String()))
	db, err := sqlx.Open("sqlite", d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scratch database: %s", err)
	}
	// The driver serializes writes per connection; a second connection
	// would only produce SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// The database is disposable, so crash safety buys nothing.
	for _, pragma := range []string{"PRAGMA journal_mode = OFF", "PRAGMA synchronous = OFF"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure scratch database: %s", err)
		}
	}
	return db, nil
}

func (d *sqliteDialect) table(base string) string {
	return base
}

func (d *sqliteDialect) cleanup(_ context.Context, db *sqlx.DB) error {
	if err := db.Close(); err != nil {
		return fmt.Errorf("failed to close scratch database: %s", err)
	}
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove scratch database: %s", err)
	}
	return nil
}

func init() {
	engines.RegisteredEngines[constants.EngineSQLite] = func() engines.Engine {
		return &Engine{dia: &sqliteDialect{}}
	}
}
