package pool

import "codeberg.org/mutker/poolctl/errors"

const (
	ErrInvalidConfig      = errors.ErrInvalidConfig
	ErrPoolClosed         = errors.ErrPoolClosed
	ErrPoolFailure        = errors.ErrPoolFailure
	ErrSubmissionTimeout  = errors.ErrSubmissionTimeout
	ErrSubmissionCanceled = errors.ErrSubmissionCanceled
	ErrTaskFailed         = errors.ErrTaskFailed
	ErrInvalidOperation   = errors.ErrInvalidOperation
)
