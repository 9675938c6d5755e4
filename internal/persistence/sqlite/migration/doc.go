// Package migration applies versioned SQL schema changes to the seminar database.
//
// Migration files live in an fs.FS (normally an embed.FS compiled into the
// binary) and follow the naming convention {version}_{description}.sql, for
// example "001_create_bookings.sql". Applied versions are tracked in the
// schema_migrations table so that running the migrations again is a no-op.
//
// Each file runs inside its own transaction. Statements are split on semicolons
// except inside CREATE TRIGGER ... END blocks, whose bodies contain their own
// statement terminators.
//
//	manager := migration.NewMigrationManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(db), files, "migrations", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
