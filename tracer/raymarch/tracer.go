// Package raymarch implements the ray marching strategy over implicit
// primitives combined by a selectable boolean operation.
package raymarch

import (
	"fmt"
	"time"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/tracer"
	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/achilleasa/gpurt/types"
)

// Name of the kernel the tracer dispatches.
const KernelName = "raymarch"

// Number of boolean operations the kernel understands.
const OperationCount int32 = 4

// Options configures the ray marcher.
type Options struct {
	Layout tracer.Layout
}

// Tracer dispatches the ray marching kernel. The marched image is
// animated, so frames are never accumulated.
type Tracer struct {
	id     string
	opts   Options
	logger log.Logger

	dev      device.Device
	kernel   device.Kernel
	buffers  *tracer.BufferManager
	textures tracer.TextureSet
	changes  tracer.ChangeQueue

	primitiveCount int32
	operation      int32

	stats *tracer.Stats
}

// New creates a ray marcher. Setup must be called before use.
func New(id string, opts Options) *Tracer {
	return &Tracer{
		id:     id,
		opts:   opts,
		logger: log.New(fmt.Sprintf("ray marcher (%s)", id)),
		stats:  &tracer.Stats{},
	}
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Setup resolves the marching kernel on dev.
func (tr *Tracer) Setup(dev device.Device) error {
	kernel, err := dev.Kernel(KernelName)
	if err != nil {
		return err
	}
	tr.dev = dev
	tr.kernel = kernel
	tr.buffers = tracer.NewBufferManager(dev)
	tr.logger.Infof("attached to %s (%s layout)", dev.Name(), tr.opts.Layout)
	return nil
}

func (tr *Tracer) Accumulates() bool {
	return false
}

// Operation returns the active boolean operation.
func (tr *Tracer) Operation() int32 {
	return tr.operation
}

// Append a change to the tracer's update buffer.
func (tr *Tracer) AppendChange(ct tracer.ChangeType, data interface{}) {
	tr.changes.Append(ct, data)
}

// Apply all pending changes from the update buffer.
func (tr *Tracer) ApplyPendingChanges() error {
	if tr.buffers == nil {
		return tracer.ErrNotSetup
	}
	if tr.changes.Len() == 0 {
		return nil
	}

	start := time.Now()
	err := tr.changes.Apply(tr.applyChange)
	tr.stats.SyncTime = time.Since(start)
	tr.stats.UploadedBytes = tr.buffers.TakeUploadedBytes()
	return err
}

func (tr *Tracer) applyChange(ct tracer.ChangeType, data interface{}) error {
	switch ct {
	case tracer.SetPrimitives:
		prims, ok := data.([]scene.Primitive)
		if !ok {
			return fmt.Errorf("%w: %s expects []scene.Primitive; got %T", tracer.ErrInvalidChangeValue, ct, data)
		}
		if _, err := tracer.SyncPrimitives(tr.buffers, prims, tr.opts.Layout); err != nil {
			return err
		}
		tr.primitiveCount = int32(len(prims))
		return nil
	case tracer.SetOperation:
		op, ok := data.(int32)
		if !ok {
			return fmt.Errorf("%w: %s expects int32; got %T", tracer.ErrInvalidChangeValue, ct, data)
		}
		if op < 0 || op >= OperationCount {
			return fmt.Errorf("%w: operation %d outside [0, %d)", tracer.ErrInvalidChangeValue, op, OperationCount)
		}
		tr.operation = op
		tr.logger.Infof("switched to operation %d", op)
		return nil
	case tracer.SetTextures:
		bindings, ok := data.([]tracer.TextureBinding)
		if !ok {
			return fmt.Errorf("%w: %s expects []tracer.TextureBinding; got %T", tracer.ErrInvalidChangeValue, ct, data)
		}
		return tr.textures.Replace(tr.dev, bindings)
	case tracer.SetSpheres, tracer.SetMeshes, tracer.UpdateCamera:
		// Ray tracing only state.
		return nil
	}
	return fmt.Errorf("%w: %d", tracer.ErrUnsupportedChange, ct)
}

// Dispatch binds the frame parameters and runs the kernel over the target.
func (tr *Tracer) Dispatch(p tracer.FrameParams) error {
	if tr.kernel == nil {
		return tracer.ErrNotSetup
	}

	start := time.Now()
	err := tracer.SetParams(tr.kernel,
		tracer.ParamCameraToWorld, p.CameraToWorld,
		tracer.ParamInverseProjection, p.InverseProjection,
		tracer.ParamDirectionalLight, p.Light,
		tracer.ParamTime, types.XYZW(p.Time/20, p.Time, 2*p.Time, 3*p.Time),
		tracer.ParamPrimitiveCnt, tr.primitiveCount,
		tracer.ParamOperation, tr.operation,
		tracer.ParamResult, p.Target,
	)
	if err == nil {
		err = tr.textures.Bind(tr.kernel)
	}
	if err == nil {
		err = tr.buffers.Bind(tr.kernel, tracer.BufferPrimitives)
	}
	if err != nil {
		return err
	}

	grid := device.Grid(uint32(p.Target.Width()), uint32(p.Target.Height()))
	if err = tr.kernel.Dispatch(grid[0], grid[1], grid[2]); err != nil {
		return err
	}

	tr.stats.Grid = grid
	tr.stats.DispatchTime = time.Since(start)
	return nil
}

// Retrieve last frame statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	if tr.buffers != nil {
		tr.buffers.Release()
	}
	tr.textures.Release()
	tr.logger.Debug("closed")
}
