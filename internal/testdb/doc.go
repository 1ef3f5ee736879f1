// Package testdb provides helpers for database integration tests.
//
// Each test runs inside a transaction that is rolled back when the test
// completes, so tests can share one database and run in parallel:
//
//	func TestGenerationStore(t *testing.T) {
//	    t.Parallel()
//	    db := testdb.GetTestDBWithT(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        s := postgres.NewPostgresGenerationStore(tx, nil)
//	        ...
//	    })
//	}
//
// Tests are skipped when neither CAROUSEL_TEST_DATABASE_URL nor
// DATABASE_URL is set. The schema is migrated once per test binary.
package testdb
