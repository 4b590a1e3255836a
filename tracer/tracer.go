package tracer

import (
	"time"

	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/achilleasa/gpurt/types"
)

// ChangeType identifies a queued scene update. Pending changes are applied
// in ChangeType order.
type ChangeType uint8

const (
	SetSpheres ChangeType = iota
	SetMeshes
	SetPrimitives
	SetTextures
	UpdateCamera
	SetOperation
)

func (ct ChangeType) String() string {
	switch ct {
	case SetSpheres:
		return "spheres"
	case SetMeshes:
		return "meshes"
	case SetPrimitives:
		return "primitives"
	case SetTextures:
		return "textures"
	case UpdateCamera:
		return "camera"
	case SetOperation:
		return "operation"
	}
	return "unknown"
}

// FrameParams holds the per-frame inputs pushed to the compute kernel.
type FrameParams struct {
	CameraToWorld     types.Mat4
	InverseProjection types.Mat4

	// Light direction in xyz, intensity in w.
	Light types.Vec4

	// Sub-pixel jitter in [0, 1).
	PixelOffset types.Vec2

	// Random scalar in [0, 1) that seeds the kernel's generator.
	Seed float32

	// Seconds since the renderer started.
	Time float32

	// Output image; its dimensions define the dispatch grid.
	Target device.Target
}

// Tracer statistics.
type Stats struct {
	// Time spent applying pending changes before the last frame.
	SyncTime time.Duration

	// Time spent binding parameters and issuing the last dispatch.
	DispatchTime time.Duration

	// Dispatch grid of the last frame.
	Grid [3]uint32

	// Bytes uploaded while applying the last batch of changes.
	UploadedBytes int
}

// Tracer is implemented by the rendering strategies. A tracer owns the
// device buffers it uploads and releases them on Close.
type Tracer interface {
	// Get tracer id.
	Id() string

	// Setup binds the tracer to a device and resolves its kernel.
	Setup(dev device.Device) error

	// Shutdown and cleanup tracer.
	Close()

	// Accumulates returns true if successive frames may be averaged.
	Accumulates() bool

	// Append a change to the tracer's update buffer.
	AppendChange(ChangeType, interface{})

	// Apply all pending changes from the update buffer. Changes remain
	// queued if an error occurs so they are retried on the next call.
	ApplyPendingChanges() error

	// Dispatch pushes frame parameters and runs the kernel once.
	Dispatch(FrameParams) error

	// Retrieve last frame statistics.
	Stats() *Stats
}

// TextureBinding binds decoded RGBA float pixels to a kernel parameter.
type TextureBinding struct {
	Param  string
	Width  int
	Height int
	RGBA   []float32
}
