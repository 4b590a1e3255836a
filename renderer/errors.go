package renderer

import "errors"

var (
	ErrNoDevice      = errors.New("renderer: no device attached")
	ErrNoTracer      = errors.New("renderer: no tracer attached")
	ErrClosed        = errors.New("renderer: renderer is closed")
	ErrAllocation    = errors.New("renderer: device allocation failed")
	ErrEmptyViewport = errors.New("renderer: viewport has zero area")
)
