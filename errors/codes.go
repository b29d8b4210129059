package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration errors
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrBindFlags     ErrorCode = "bind_flags_failed"
	ErrReadConfig    ErrorCode = "read_config_failed"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Lifecycle errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Pool errors
	ErrPoolClosed         ErrorCode = "pool_closed"
	ErrPoolFailure        ErrorCode = "pool_failure"
	ErrSubmissionTimeout  ErrorCode = "submission_timeout"
	ErrSubmissionCanceled ErrorCode = "submission_canceled"
	ErrTaskFailed         ErrorCode = "task_failed"

	// Profiler errors
	ErrProfilingAborted ErrorCode = "profiling_aborted"

	// Measurement errors
	ErrCPUTimeUnavailable ErrorCode = "cpu_time_unavailable"

	// Operation errors
	ErrTimeout          ErrorCode = "operation_timeout"
	ErrInvalidOperation ErrorCode = "invalid_operation"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:           "Internal error occurred",
	ErrInvalidArgument:    "Invalid argument provided",
	ErrInvalidConfig:      "Invalid configuration",
	ErrBindFlags:          "Failed to bind flags",
	ErrReadConfig:         "Failed to read configuration",
	ErrInvalidLogLevel:    "Invalid log level",
	ErrInitFailed:         "Initialization failed",
	ErrShutdownFailed:     "Shutdown failed",
	ErrPoolClosed:         "Pool is not accepting submissions",
	ErrPoolFailure:        "Pool worker harness failed",
	ErrSubmissionTimeout:  "Queue admission exceeded timeout",
	ErrSubmissionCanceled: "Queued task canceled before execution",
	ErrTaskFailed:         "Task execution failed",
	ErrProfilingAborted:   "Workload failed during profiling run",
	ErrCPUTimeUnavailable: "CPU time measurement unavailable",
	ErrTimeout:            "Operation timed out",
	ErrInvalidOperation:   "Invalid operation",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
