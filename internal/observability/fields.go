package observability

import "go.uber.org/zap"

// Field constructors re-exported so callers need not import zap directly.
//
//nolint:gochecknoglobals // Aliases of zap constructors
var (
	String   = zap.String
	Strings  = zap.Strings
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Time     = zap.Time
	Any      = zap.Any
	Error    = zap.Error
)
