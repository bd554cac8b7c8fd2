package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPostgresStore runs the store contract against a real server. Set
// CWD_TEST_POSTGRES_DSN to a disposable database to enable it.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("CWD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CWD_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	db, err := OpenPostgres(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.conn.ExecContext(ctx, `TRUNCATE recommendations, usage_records, predictions`)
	require.NoError(t, err)

	runStoreSuite(t, db)
}
