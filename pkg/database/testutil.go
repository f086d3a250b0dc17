package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// NewMockPool creates a pgxmock pool for repository tests. It satisfies DBTX,
// so any repository constructor accepts it in place of a live pgxpool.
// Queries are matched as regular expressions, which lets tests assert on the
// table and clause that matter ("SELECT (.+) FROM tips") instead of the full
// statement. Close the pool and check ExpectationsWereMet when the test ends.
func NewMockPool() (pgxmock.PgxPoolIface, error) {
	return pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
}
