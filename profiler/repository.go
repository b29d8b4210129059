package profiler

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/poolctl/errors"
	"codeberg.org/mutker/poolctl/logger"
	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultDirPerm = 0o755
	defaultDBPath  = "/var/lib/poolctl/profiles.db"
)

// StoreConfig controls persistence of profiling runs. Storage is opt-in;
// the zero configuration yields a no-op store.
type StoreConfig struct {
	DBPath  string `mapstructure:"database"`
	Enabled bool   `mapstructure:"enabled"`
}

func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DBPath:  defaultDBPath,
		Enabled: false,
	}
}

func (c StoreConfig) Validate() error {
	errFactory := errors.New()

	if c.Enabled && c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}

	return nil
}

// Store persists completed profiling runs so an offline run can
// configure a later pool.
type Store interface {
	Save(analysis CliffAnalysis) error
	Latest() (CliffAnalysis, error)
	Close() error
}

type noopStore struct{}

func (noopStore) Save(CliffAnalysis) error { return nil }

func (noopStore) Latest() (CliffAnalysis, error) {
	return CliffAnalysis{}, errors.New().New(ErrNoStoredRuns)
}

func (noopStore) Close() error { return nil }

type repository struct {
	db     *sql.DB
	logger logger.Logger
	mu     sync.Mutex
}

// NewStore opens the sqlite-backed profile store, or a no-op store when
// persistence is disabled.
func NewStore(cfg StoreConfig, log logger.Logger) (Store, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Debug().Msg("Profile persistence disabled, using no-op store")
		return noopStore{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	version, err := GetSchemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version == 0 {
		if err := InitSchema(db, log); err != nil {
			db.Close()
			return nil, err
		}
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Msg("Profile store initialized")

	return &repository{
		db:     db,
		logger: log,
	}, nil
}

func (r *repository) Save(analysis CliffAnalysis) error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	result, err := tx.Exec(insertRunSQL,
		analysis.RunAt.Unix(),
		int64(analysis.OptimalThreads),
		int64(analysis.CliffThreads),
		analysis.CliffSeverity,
		int64(boolToInt(analysis.Complete)),
	)
	if err != nil {
		r.rollback(tx)
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		r.rollback(tx)
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertLevelSQL)
	if err != nil {
		r.rollback(tx)
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, lv := range analysis.Levels {
		if _, err := stmt.Exec(
			runID,
			int64(lv.ThreadCount),
			lv.Throughput,
			int64(lv.P99Latency),
			lv.Operations,
			int64(lv.Duration),
		); err != nil {
			r.rollback(tx)
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().
		Int64("run_id", runID).
		Int("levels", len(analysis.Levels)).
		Msg("Profiling run persisted")

	return nil
}

func (r *repository) Latest() (CliffAnalysis, error) {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		runID    int64
		runAt    int64
		complete int
		analysis CliffAnalysis
	)

	err := r.db.QueryRow(`
        SELECT id, run_at, optimal_threads, cliff_threads, cliff_severity, complete
        FROM profile_runs
        ORDER BY id DESC
        LIMIT 1
    `).Scan(&runID, &runAt, &analysis.OptimalThreads, &analysis.CliffThreads,
		&analysis.CliffSeverity, &complete)

	if errors.Is(err, sql.ErrNoRows) {
		return CliffAnalysis{}, errFactory.New(ErrNoStoredRuns)
	}
	if err != nil {
		return CliffAnalysis{}, errFactory.Wrap(ErrStorageAccess, err)
	}

	analysis.RunAt = time.Unix(runAt, 0)
	analysis.Complete = complete != 0

	rows, err := r.db.Query(`
        SELECT thread_count, throughput, p99_ns, operations, duration_ns
        FROM profile_levels
        WHERE run_id = ?
        ORDER BY thread_count
    `, runID)
	if err != nil {
		return CliffAnalysis{}, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			lv         Level
			p99NS      int64
			durationNS int64
		)
		if err := rows.Scan(&lv.ThreadCount, &lv.Throughput, &p99NS, &lv.Operations, &durationNS); err != nil {
			return CliffAnalysis{}, errFactory.Wrap(ErrStorageAccess, err)
		}
		lv.P99Latency = time.Duration(p99NS)
		lv.Duration = time.Duration(durationNS)
		analysis.Levels = append(analysis.Levels, lv)
	}
	if err := rows.Err(); err != nil {
		return CliffAnalysis{}, errFactory.Wrap(ErrStorageAccess, err)
	}

	return analysis, nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Profile store closed gracefully")

	return nil
}

func (r *repository) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.logger.Error().Err(err).Msg("Failed to roll back transaction")
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
