package tracer

import "errors"

var (
	ErrStrideMismatch     = errors.New("tracer: element size does not match buffer stride")
	ErrZeroStride         = errors.New("tracer: buffer stride must be positive")
	ErrNotSetup           = errors.New("tracer: Setup has not been called")
	ErrUnsupportedChange  = errors.New("tracer: unsupported change type")
	ErrInvalidChangeValue = errors.New("tracer: unexpected value for change type")
)
