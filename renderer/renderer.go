package renderer

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/scene/compiler"
	"github.com/achilleasa/gpurt/tracer"
	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/achilleasa/gpurt/tracer/raymarch"
	"github.com/achilleasa/gpurt/tracer/raytrace"
	"github.com/achilleasa/gpurt/types"
)

// NewTracer creates the tracer selected by opts.
func NewTracer(opts Options) tracer.Tracer {
	if opts.Strategy == RayMarch {
		return raymarch.New("primary", raymarch.Options{Layout: opts.Layout})
	}
	return raytrace.New("primary", raytrace.Options{
		Layout:                opts.Layout,
		SortSpheresByDistance: opts.SortSpheresByDistance,
	})
}

// Renderer drives a tracer frame by frame. Frames and reconfiguration
// requests are serialized by the embedded mutex so geometry never changes
// while a frame is being issued.
type Renderer struct {
	sync.Mutex

	opts   Options
	dev    device.Device
	tracer tracer.Tracer
	logger log.Logger

	accum Accumulator
	rng   *rand.Rand

	scene    *scene.Scene
	geometry *compiler.SceneGeometryState
	light    types.Vec4

	// Last camera state used for rendering.
	lastCamera scene.CameraState
	hasCamera  bool

	// Set when queued changes alter the rendered image.
	rebuild bool

	operation int32
	started   time.Time
	stats     FrameStats
	closed    bool
}

// Init attaches tr to dev and builds the scene described by cfg. A nil cfg
// selects scene.DefaultConfig. Everything acquired is released if Init
// fails.
func Init(dev device.Device, tr tracer.Tracer, opts Options, cfg *scene.Config) (*Renderer, error) {
	if dev == nil {
		return nil, ErrNoDevice
	}
	if tr == nil {
		return nil, ErrNoTracer
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return nil, ErrEmptyViewport
	}

	r := &Renderer{
		opts:    opts,
		dev:     dev,
		tracer:  tr,
		logger:  log.New("renderer"),
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0xda3e39cb94b95bdb)),
		started: time.Now(),
	}

	if err := tr.Setup(dev); err != nil {
		tr.Close()
		return nil, err
	}

	if err := r.Reconfigure(cfg); err != nil {
		r.Close()
		return nil, err
	}

	r.logger.Noticef("initialized %s renderer (%dx%d, %s layout) on %s", opts.Strategy, opts.FrameW, opts.FrameH, opts.Layout, dev.Name())
	return r, nil
}

// Reconfigure rebuilds the scene from cfg. The new geometry is uploaded at
// the start of the next frame, which restarts accumulation.
func (r *Renderer) Reconfigure(cfg *scene.Config) error {
	r.Lock()
	defer r.Unlock()
	if r.closed {
		return ErrClosed
	}

	sc := scene.Build(cfg)
	geometry := compiler.Flatten(sc.Meshes)
	if err := geometry.Validate(); err != nil {
		return err
	}

	r.scene = sc
	r.geometry = geometry
	r.light = sc.Light.Packed()

	r.tracer.AppendChange(tracer.SetSpheres, sc.Spheres)
	r.tracer.AppendChange(tracer.SetMeshes, geometry)
	r.tracer.AppendChange(tracer.SetPrimitives, sc.Primitives)
	r.rebuild = true
	return nil
}

// SetTextures replaces the sampled textures, e.g. the skybox.
func (r *Renderer) SetTextures(bindings []tracer.TextureBinding) error {
	r.Lock()
	defer r.Unlock()
	if r.closed {
		return ErrClosed
	}

	r.tracer.AppendChange(tracer.SetTextures, bindings)
	r.rebuild = true
	return nil
}

// Resize changes the viewport. The render targets are reallocated on the
// next frame.
func (r *Renderer) Resize(width, height uint32) error {
	r.Lock()
	defer r.Unlock()
	if r.closed {
		return ErrClosed
	}
	if width == 0 || height == 0 {
		return ErrEmptyViewport
	}

	if width != r.opts.FrameW || height != r.opts.FrameH {
		r.logger.Infof("viewport resized from %dx%d to %dx%d", r.opts.FrameW, r.opts.FrameH, width, height)
	}
	r.opts.FrameW, r.opts.FrameH = width, height
	return nil
}

// CycleOperation advances the ray-march boolean operation and returns the
// new value.
func (r *Renderer) CycleOperation() (int32, error) {
	r.Lock()
	defer r.Unlock()
	if r.closed {
		return r.operation, ErrClosed
	}

	r.operation = (r.operation + 1) % raymarch.OperationCount
	r.tracer.AppendChange(tracer.SetOperation, r.operation)
	r.rebuild = true
	return r.operation, nil
}

// Frame renders one frame for the given camera:
//
//  1. compare the camera with the previous frame and queue a camera update
//     on change
//  2. apply queued scene changes
//  3. make sure the render targets match the viewport
//  4. push frame parameters and dispatch the kernel
//  5. composite into the converged target and present it
//  6. advance the sample index
//
// If any step fails the frame is skipped without compositing; queued
// changes and allocations are retried by the next call.
func (r *Renderer) Frame(cam scene.CameraState) (FrameResult, error) {
	r.Lock()
	defer r.Unlock()
	if r.closed {
		return FrameResult{Skipped: true}, ErrClosed
	}

	start := time.Now()
	skip := func(err error) (FrameResult, error) {
		r.logger.Warningf("skipping frame: %v", err)
		return FrameResult{Skipped: true}, err
	}

	if !r.hasCamera || !cam.CameraToWorld.ApproxEqual(r.lastCamera.CameraToWorld) || !cam.InverseProjection.ApproxEqual(r.lastCamera.InverseProjection) {
		r.lastCamera = cam
		r.hasCamera = true
		r.accum.Invalidate()
		r.tracer.AppendChange(tracer.UpdateCamera, cam.Position)
	}

	if err := r.tracer.ApplyPendingChanges(); err != nil {
		return skip(fmt.Errorf("renderer: could not sync scene: %w", err))
	}
	if r.rebuild {
		r.rebuild = false
		r.accum.Invalidate()
	}
	if !r.tracer.Accumulates() {
		r.accum.Invalidate()
	}

	if _, err := r.accum.Resolve(r.dev, int(r.opts.FrameW), int(r.opts.FrameH)); err != nil {
		return skip(err)
	}
	target, converged := r.accum.Targets()

	params := tracer.FrameParams{
		CameraToWorld:     cam.CameraToWorld,
		InverseProjection: cam.InverseProjection,
		Light:             r.light,
		PixelOffset:       types.XY(r.rng.Float32(), r.rng.Float32()),
		Seed:              r.rng.Float32(),
		Time:              float32(time.Since(r.started).Seconds()),
		Target:            target,
	}
	if err := r.tracer.Dispatch(params); err != nil {
		return skip(fmt.Errorf("renderer: dispatch failed: %w", err))
	}

	compositeStart := time.Now()
	sampleIndex := r.accum.SampleIndex()
	if err := r.dev.Composite(target, converged, sampleIndex); err != nil {
		return skip(fmt.Errorf("renderer: composite failed: %w", err))
	}
	// The sample is part of the converged image from here on, even if it
	// never reaches the screen.
	r.accum.Advance()
	if err := r.dev.Present(converged); err != nil {
		return skip(fmt.Errorf("renderer: present failed: %w", err))
	}

	trStats := r.tracer.Stats()
	r.stats = FrameStats{
		Tracer:        r.tracer.Id(),
		SampleIndex:   sampleIndex,
		Grid:          trStats.Grid,
		SyncTime:      trStats.SyncTime,
		DispatchTime:  trStats.DispatchTime,
		CompositeTime: time.Since(compositeStart),
		UploadedBytes: trStats.UploadedBytes,
		RenderTime:    time.Since(start),
	}
	trStats.SyncTime, trStats.UploadedBytes = 0, 0

	return FrameResult{Reset: sampleIndex == 0, Stats: r.stats}, nil
}

// SampleIndex returns the number of samples accumulated so far.
func (r *Renderer) SampleIndex() uint32 {
	r.Lock()
	defer r.Unlock()
	return r.accum.SampleIndex()
}

// Scene returns the last built scene.
func (r *Renderer) Scene() *scene.Scene {
	r.Lock()
	defer r.Unlock()
	return r.scene
}

// Geometry returns the flattened geometry of the last built scene.
func (r *Renderer) Geometry() *compiler.SceneGeometryState {
	r.Lock()
	defer r.Unlock()
	return r.geometry
}

// Get render statistics for the last completed frame.
func (r *Renderer) Stats() FrameStats {
	r.Lock()
	defer r.Unlock()
	return r.stats
}

// Close releases the tracer and render targets. The device is left open.
func (r *Renderer) Close() {
	r.Lock()
	defer r.Unlock()
	if r.closed {
		return
	}

	r.tracer.Close()
	r.accum.Release()
	r.closed = true
	r.logger.Info("renderer closed")
}
