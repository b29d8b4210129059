package profiler

import (
	"database/sql"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS profile_runs (
	       id              INTEGER PRIMARY KEY AUTOINCREMENT,
	       run_at          INTEGER NOT NULL,
	       optimal_threads INTEGER NOT NULL CHECK (optimal_threads >= 1),
	       cliff_threads   INTEGER NOT NULL CHECK (cliff_threads >= 0),
	       cliff_severity  REAL NOT NULL CHECK (cliff_severity >= 0.0 AND cliff_severity <= 1.0),
	       complete        INTEGER NOT NULL CHECK (complete IN (0, 1))
	   );
	   CREATE TABLE IF NOT EXISTS profile_levels (
	       run_id       INTEGER NOT NULL REFERENCES profile_runs(id),
	       thread_count INTEGER NOT NULL CHECK (thread_count >= 1),
	       throughput   REAL NOT NULL,
	       p99_ns       INTEGER NOT NULL,
	       operations   INTEGER NOT NULL,
	       duration_ns  INTEGER NOT NULL
	   );`

	insertRunSQL = `
    INSERT INTO profile_runs (
        run_at, optimal_threads, cliff_threads, cliff_severity, complete
    ) VALUES (?, ?, ?, ?, ?)`

	insertLevelSQL = `
    INSERT INTO profile_levels (
        run_id, thread_count, throughput, p99_ns, operations, duration_ns
    ) VALUES (?, ?, ?, ?, ?, ?)`
)

// InitSchema creates the database schema with the current version.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			SQL   string
		}{
			Error: err.Error(),
			SQL:   createTablesSQL,
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Profile store schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, or zero when the
// database holds no schema yet.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := tableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

func tableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()

	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}

	return exists, nil
}
