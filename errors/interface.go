package errors

// ErrorCode identifies a class of failure: pool lifecycle, submission,
// task execution, profiling, configuration. Codes are stable strings so
// callers can branch on them (see HasCode) and they stay greppable in
// log output.
type ErrorCode string

// Error is a coded error. Beyond the code it may carry a human-readable
// message override, structured data (validation fields, panic values),
// and a wrapped cause reachable through Unwrap.
type Error interface {
	error
	Code() ErrorCode
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory builds coded errors. Call sites construct one locally with
// New() rather than sharing an instance; the factory is stateless.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
