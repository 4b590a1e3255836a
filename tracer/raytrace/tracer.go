// Package raytrace implements the ray tracing strategy: analytic spheres
// plus flattened triangle meshes, progressively accumulated.
package raytrace

import (
	"fmt"
	"sort"
	"time"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/scene/compiler"
	"github.com/achilleasa/gpurt/tracer"
	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/achilleasa/gpurt/types"
)

// Name of the kernel the tracer dispatches.
const KernelName = "raytrace"

// Options configures the ray tracer.
type Options struct {
	Layout tracer.Layout

	// Re-sort spheres back to front whenever the camera moves.
	SortSpheresByDistance bool
}

// Tracer dispatches the ray tracing kernel.
type Tracer struct {
	id     string
	opts   Options
	logger log.Logger

	dev      device.Device
	kernel   device.Kernel
	buffers  *tracer.BufferManager
	textures tracer.TextureSet
	changes  tracer.ChangeQueue

	// CPU copy of the uploaded spheres; reordered when sorting.
	spheres []scene.Sphere

	stats *tracer.Stats
}

// New creates a ray tracer. Setup must be called before use.
func New(id string, opts Options) *Tracer {
	return &Tracer{
		id:     id,
		opts:   opts,
		logger: log.New(fmt.Sprintf("ray tracer (%s)", id)),
		stats:  &tracer.Stats{},
	}
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Setup resolves the tracing kernel on dev.
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

// Accumulates is always true; the kernel jitters its primary rays.
func (tr *Tracer) Accumulates() bool {
	return true
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
	case tracer.SetSpheres:
		spheres, ok := data.([]scene.Sphere)
		if !ok {
			return fmt.Errorf("%w: %s expects []scene.Sphere; got %T", tracer.ErrInvalidChangeValue, ct, data)
		}
		tr.spheres = append(tr.spheres[:0], spheres...)
		_, err := tracer.SyncSpheres(tr.buffers, tr.spheres, tr.opts.Layout)
		return err
	case tracer.SetMeshes:
		geometry, ok := data.(*compiler.SceneGeometryState)
		if !ok {
			return fmt.Errorf("%w: %s expects *compiler.SceneGeometryState; got %T", tracer.ErrInvalidChangeValue, ct, data)
		}
		return tr.uploadGeometry(geometry)
	case tracer.SetTextures:
		bindings, ok := data.([]tracer.TextureBinding)
		if !ok {
			return fmt.Errorf("%w: %s expects []tracer.TextureBinding; got %T", tracer.ErrInvalidChangeValue, ct, data)
		}
		return tr.textures.Replace(tr.dev, bindings)
	case tracer.UpdateCamera:
		pos, ok := data.(types.Vec3)
		if !ok {
			return fmt.Errorf("%w: %s expects types.Vec3; got %T", tracer.ErrInvalidChangeValue, ct, data)
		}
		return tr.sortSpheres(pos)
	case tracer.SetPrimitives, tracer.SetOperation:
		// Ray-march only state.
		return nil
	}
	return fmt.Errorf("%w: %d", tracer.ErrUnsupportedChange, ct)
}

func (tr *Tracer) uploadGeometry(geometry *compiler.SceneGeometryState) error {
	if _, err := tracer.SyncMeshDescriptors(tr.buffers, geometry.Descriptors, tr.opts.Layout); err != nil {
		return err
	}
	if _, err := tracer.Sync(tr.buffers, tracer.BufferVertices, geometry.Vertices, tracer.VertexStride); err != nil {
		return err
	}
	_, err := tracer.Sync(tr.buffers, tracer.BufferIndices, geometry.Indices, tracer.IndexStride)
	return err
}

// Order spheres from farthest to nearest to the camera and re-upload them.
func (tr *Tracer) sortSpheres(cameraPos types.Vec3) error {
	if !tr.opts.SortSpheresByDistance || len(tr.spheres) == 0 {
		return nil
	}

	sort.SliceStable(tr.spheres, func(i, j int) bool {
		return tr.spheres[i].Position.Sub(cameraPos).LenSqr() > tr.spheres[j].Position.Sub(cameraPos).LenSqr()
	})
	_, err := tracer.SyncSpheres(tr.buffers, tr.spheres, tr.opts.Layout)
	return err
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
		tracer.ParamPixelOffset, p.PixelOffset,
		tracer.ParamSeed, p.Seed,
		tracer.ParamResult, p.Target,
	)
	if err == nil {
		err = tr.textures.Bind(tr.kernel)
	}
	if err == nil {
		err = tr.buffers.Bind(tr.kernel, tracer.BufferSpheres, tracer.BufferMeshObjects, tracer.BufferVertices, tracer.BufferIndices)
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
