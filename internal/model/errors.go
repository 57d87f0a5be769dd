package model

import "errors"

// Configuration errors. A round failing with one of these returns no result.
var (
	ErrEmptyShard        = errors.New("empty data shard")
	ErrNoBatches         = errors.New("epoch produced no batches")
	ErrParameterMismatch = errors.New("parameter map mismatch")
	ErrInvalidConfig     = errors.New("invalid round configuration")
)
