package profiler

import "codeberg.org/mutker/poolctl/errors"

const (
	// Configuration errors
	ErrInvalidConfig = errors.ErrInvalidConfig

	// Run errors
	ErrProfilingAborted = errors.ErrProfilingAborted

	// Schema errors
	ErrInvalidDBPath          = errors.ErrorCode("profiler_invalid_db_path")
	ErrSchemaInitFailed       = errors.ErrorCode("profiler_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("profiler_schema_validation_failed")
	ErrTransactionFailed      = errors.ErrorCode("profiler_transaction_failed")

	// Storage errors
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed
	ErrStorageAccess = errors.ErrorCode("profiler_storage_access_failed")
	ErrNoStoredRuns  = errors.ErrorCode("profiler_no_stored_runs")
)
