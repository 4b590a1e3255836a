package device

import (
	"errors"
	"fmt"
)

// Thread group edge length declared by the compute kernels.
const ThreadGroupSize uint32 = 8

var (
	ErrReleased         = errors.New("device: resource already released")
	ErrUnsupportedParam = errors.New("device: unsupported kernel parameter type")
	ErrUnknownKernel    = errors.New("device: unknown kernel")
	ErrZeroSize         = errors.New("device: zero sized allocation")
)

// Buffer is a device-resident array of fixed-stride elements.
type Buffer interface {
	Name() string
	Count() int
	Stride() int

	// Write replaces the buffer contents. len(data) must equal
	// Count()*Stride().
	Write(data []byte) error

	// Release frees the device memory. Calling it more than once is a no-op.
	Release()
}

// Target is a floating point RGBA image the kernels can write to.
type Target interface {
	Name() string
	Width() int
	Height() int
	Release()
}

// Texture is a read-only RGBA image sampled by kernels.
type Texture interface {
	Name() string
	Width() int
	Height() int
	Release()
}

// Kernel is a compiled compute program. Parameters are bound by the name
// the kernel source declares them with.
type Kernel interface {
	Name() string

	// SetParam binds a value to a named parameter. Supported value types
	// are int32, uint32, float32, types.Vec2, types.Vec4, types.Mat4,
	// Buffer, Texture and Target. A nil value clears the resource bound to
	// name.
	SetParam(name string, value interface{}) error

	// Dispatch runs the kernel over the given number of thread groups.
	Dispatch(groupsX, groupsY, groupsZ uint32) error
}

// Device allocates GPU resources and runs kernels.
type Device interface {
	Name() string

	Kernel(name string) (Kernel, error)

	AllocateBuffer(name string, count, stride int) (Buffer, error)
	AllocateTarget(name string, width, height int) (Target, error)
	AllocateTexture(name string, width, height int, rgba []float32) (Texture, error)

	// Composite folds src into the running average held by dst. The
	// sample index is the number of samples already averaged into dst; a
	// value of 0 overwrites dst with src.
	Composite(src, dst Target, sampleIndex uint32) error

	// Present displays a target.
	Present(src Target) error

	Close()
}

// GroupCount returns the number of thread groups needed to cover size
// invocations.
func GroupCount(size, groupSize uint32) uint32 {
	if groupSize == 0 {
		groupSize = ThreadGroupSize
	}
	return (size + groupSize - 1) / groupSize
}

// Grid returns the dispatch dimensions for a width x height image.
func Grid(width, height uint32) [3]uint32 {
	return [3]uint32{GroupCount(width, ThreadGroupSize), GroupCount(height, ThreadGroupSize), 1}
}

// UnsupportedParamError wraps ErrUnsupportedParam with the offending
// parameter.
func UnsupportedParamError(kernel, param string, value interface{}) error {
	return fmt.Errorf("%w: kernel %s, param %s, type %T", ErrUnsupportedParam, kernel, param, value)
}
