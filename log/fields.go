package log

import "go.uber.org/zap"

var (
	Skip        = zap.Skip
	Binary      = zap.Binary
	Bool        = zap.Bool
	ByteString  = zap.ByteString
	Float64     = zap.Float64
	Float32     = zap.Float32
	Int         = zap.Int
	Int64       = zap.Int64
	Int32       = zap.Int32
	Uint        = zap.Uint
	Uint64      = zap.Uint64
	Uint32      = zap.Uint32
	String      = zap.String
	Strings     = zap.Strings
	Stringer    = zap.Stringer
	Time        = zap.Time
	Duration    = zap.Duration
	Any         = zap.Any
	Namespace   = zap.Namespace
	Reflect     = zap.Reflect
	ErrorField  = zap.Error
	NamedError  = zap.NamedError
	Stack       = zap.Stack
	Float64Ptr  = zap.Float64p
	StringSlice = zap.Strings
)

// Float constructs a field carrying a float64
func Float(key string, val float64) Field {
	return zap.Float64(key, val)
}
