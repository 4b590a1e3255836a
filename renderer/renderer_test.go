package renderer

import (
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/tracer"
	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/achilleasa/gpurt/tracer/device/devicetest"
	"github.com/achilleasa/gpurt/tracer/raymarch"
	"github.com/achilleasa/gpurt/tracer/raytrace"
	"github.com/achilleasa/gpurt/types"
)

func TestMain(m *testing.M) {
	log.SetSink(io.Discard)
	os.Exit(m.Run())
}

func newTestRenderer(t *testing.T, opts Options) (*Renderer, *devicetest.Device) {
	dev := devicetest.New(raytrace.KernelName, raymarch.KernelName)
	r, err := Init(dev, NewTracer(opts), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r, dev
}

func fixedCamera() scene.CameraState {
	return scene.NewCamera(60, 4.0/3.0).State()
}

func renderFrames(t *testing.T, r *Renderer, cam scene.CameraState, n int) []FrameResult {
	results := make([]FrameResult, 0, n)
	for i := 0; i < n; i++ {
		res, err := r.Frame(cam)
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		results = append(results, res)
	}
	return results
}

func TestInitErrors(t *testing.T) {
	opts := DefaultOptions()
	dev := devicetest.New(raytrace.KernelName)

	if _, err := Init(nil, NewTracer(opts), opts, nil); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice; got %v", err)
	}
	if _, err := Init(dev, nil, opts, nil); !errors.Is(err, ErrNoTracer) {
		t.Fatalf("expected ErrNoTracer; got %v", err)
	}

	opts.FrameW = 0
	if _, err := Init(dev, NewTracer(opts), opts, nil); !errors.Is(err, ErrEmptyViewport) {
		t.Fatalf("expected ErrEmptyViewport; got %v", err)
	}

	opts = DefaultOptions()
	opts.Strategy = RayMarch
	if _, err := Init(dev, NewTracer(opts), opts, nil); err == nil {
		t.Fatal("expected Init to fail when the device lacks the marching kernel")
	}
}

func TestSampleIndexAdvancesWithoutInvalidation(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	defer r.Close()

	results := renderFrames(t, r, fixedCamera(), 5)
	for i, res := range results {
		if res.Stats.SampleIndex != uint32(i) {
			t.Fatalf("[frame %d] expected sample index %d; got %d", i, i, res.Stats.SampleIndex)
		}
	}
	if !results[0].Reset || results[1].Reset {
		t.Fatal("expected only the first frame to reset accumulation")
	}
	if r.SampleIndex() != 5 {
		t.Fatalf("expected 5 accumulated samples; got %d", r.SampleIndex())
	}

	if len(dev.Composites) != 5 || dev.Composites[4].SampleIndex != 4 {
		t.Fatalf("expected 5 composites ending at sample 4; got %v", dev.Composites)
	}
	if dev.Composites[0].Src != TargetName || dev.Composites[0].Dst != ConvergedName {
		t.Fatalf("expected composite from %s into %s; got %v", TargetName, ConvergedName, dev.Composites[0])
	}
	if len(dev.Presents) != 5 || dev.Presents[0] != ConvergedName {
		t.Fatalf("expected converged target to be presented every frame; got %v", dev.Presents)
	}
}

func TestCameraChangeResetsAccumulation(t *testing.T) {
	r, _ := newTestRenderer(t, DefaultOptions())
	defer r.Close()

	cam := scene.NewCamera(60, 4.0/3.0)
	renderFrames(t, r, cam.State(), 3)

	cam.Rotate(10, 0)
	res, err := r.Frame(cam.State())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.SampleIndex != 0 {
		t.Fatalf("expected camera change to reset sample index; got %d", res.Stats.SampleIndex)
	}

	res, _ = r.Frame(cam.State())
	if res.Stats.SampleIndex != 1 {
		t.Fatalf("expected sample index 1 after an unchanged frame; got %d", res.Stats.SampleIndex)
	}
}

func TestResizeReallocatesTargets(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	defer r.Close()

	renderFrames(t, r, fixedCamera(), 3)
	if dev.TargetAllocs != 2 {
		t.Fatalf("expected 2 target allocations; got %d", dev.TargetAllocs)
	}

	if err := r.Resize(1920, 1080); err != nil {
		t.Fatal(err)
	}
	res := renderFrames(t, r, fixedCamera(), 1)[0]
	if res.Stats.SampleIndex != 0 {
		t.Fatalf("expected resize to reset sample index; got %d", res.Stats.SampleIndex)
	}
	if res.Stats.Grid != [3]uint32{240, 135, 1} {
		t.Fatalf("expected grid (240, 135, 1); got %v", res.Stats.Grid)
	}
	if dev.TargetAllocs != 4 || dev.Live(TargetName) != 1 || dev.Live(ConvergedName) != 1 {
		t.Fatalf("expected old targets to be replaced; allocs=%d live=%d/%d", dev.TargetAllocs, dev.Live(TargetName), dev.Live(ConvergedName))
	}

	if err := r.Resize(0, 1080); !errors.Is(err, ErrEmptyViewport) {
		t.Fatalf("expected ErrEmptyViewport; got %v", err)
	}
}

func TestReconfigureResetsAccumulation(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	defer r.Close()

	renderFrames(t, r, fixedCamera(), 3)
	allocs := dev.BufferAllocs

	cfg := scene.DefaultConfig()
	cfg.Spheres.Seed = 99
	if err := r.Reconfigure(cfg); err != nil {
		t.Fatal(err)
	}

	res := renderFrames(t, r, fixedCamera(), 1)[0]
	if res.Stats.SampleIndex != 0 {
		t.Fatalf("expected scene rebuild to reset sample index; got %d", res.Stats.SampleIndex)
	}
	if res.Stats.UploadedBytes == 0 {
		t.Fatal("expected the rebuilt scene to be uploaded")
	}

	// Unchanged mesh geometry reuses its buffers.
	if dev.Live(tracer.BufferVertices) != 1 || dev.Live(tracer.BufferIndices) != 1 {
		t.Fatal("expected exactly one live vertex and index buffer")
	}
	if dev.BufferAllocs < allocs {
		t.Fatalf("allocation counter went backwards: %d < %d", dev.BufferAllocs, allocs)
	}
}

func TestAllocationFailureSkipsFrame(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	defer r.Close()

	if _, err := r.Frame(fixedCamera()); err != nil {
		t.Fatal(err)
	}
	if err := r.Resize(640, 480); err != nil {
		t.Fatal(err)
	}

	// The first reallocated render target fails.
	dev.FailAllocations = 1

	res, err := r.Frame(fixedCamera())
	if !errors.Is(err, ErrAllocation) {
		t.Fatalf("expected ErrAllocation; got %v", err)
	}
	if !res.Skipped {
		t.Fatal("expected frame to be skipped")
	}
	if len(dev.Composites) != 1 {
		t.Fatalf("expected no composite for the failed frame; got %d composites", len(dev.Composites))
	}
	if dev.Live(TargetName) != 0 || dev.Live(ConvergedName) != 0 {
		t.Fatal("expected no render targets to be held after a failed allocation")
	}

	res, err = r.Frame(fixedCamera())
	if err != nil {
		t.Fatalf("expected allocation to be retried; got %v", err)
	}
	if res.Stats.SampleIndex != 0 || len(dev.Composites) != 2 {
		t.Fatalf("expected the retried frame to composite sample 0; got sample %d and %d composites", res.Stats.SampleIndex, len(dev.Composites))
	}
}

func TestSceneSyncFailureIsRetried(t *testing.T) {
	dev := devicetest.New(raytrace.KernelName)
	opts := DefaultOptions()

	r, err := Init(dev, NewTracer(opts), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	// Scene buffers are only allocated by the first frame; fail the first one.
	dev.FailAllocations = 1

	if res, err := r.Frame(fixedCamera()); err == nil || !res.Skipped {
		t.Fatalf("expected a skipped frame; got %v", err)
	}
	if _, err := r.Frame(fixedCamera()); err != nil {
		t.Fatalf("expected scene sync to be retried; got %v", err)
	}
	if dev.Live(tracer.BufferSpheres) != 1 || dev.Live(tracer.BufferMeshObjects) != 1 {
		t.Fatal("expected scene buffers after retry")
	}
}

func TestRayMarchNeverAccumulates(t *testing.T) {
	opts := DefaultOptions()
	opts.Strategy = RayMarch
	r, dev := newTestRenderer(t, opts)
	defer r.Close()

	for _, res := range renderFrames(t, r, fixedCamera(), 4) {
		if res.Stats.SampleIndex != 0 {
			t.Fatalf("expected marcher frames to composite at sample 0; got %d", res.Stats.SampleIndex)
		}
	}

	if op, err := r.CycleOperation(); err != nil || op != 1 {
		t.Fatalf("expected operation 1; got %d (%v)", op, err)
	}
	renderFrames(t, r, fixedCamera(), 1)
	d, _ := dev.LastDispatch()
	if d.Params[tracer.ParamOperation] != int32(1) {
		t.Fatalf("expected operation 1 to be pushed; got %v", d.Params[tracer.ParamOperation])
	}

	for i := 0; i < 3; i++ {
		if _, err := r.CycleOperation(); err != nil {
			t.Fatal(err)
		}
	}
	renderFrames(t, r, fixedCamera(), 1)
	d, _ = dev.LastDispatch()
	if d.Params[tracer.ParamOperation] != int32(0) {
		t.Fatalf("expected operation to wrap to 0; got %v", d.Params[tracer.ParamOperation])
	}
}

func TestJitterIsFreshEveryFrame(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	defer r.Close()

	renderFrames(t, r, fixedCamera(), 3)
	seen := make(map[types.Vec2]bool)
	for _, d := range dev.Dispatches {
		offset := d.Params[tracer.ParamPixelOffset].(types.Vec2)
		if offset[0] < 0 || offset[0] >= 1 || offset[1] < 0 || offset[1] >= 1 {
			t.Fatalf("expected jitter in [0, 1); got %v", offset)
		}
		seen[offset] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected a new jitter per frame; got %d distinct values", len(seen))
	}
}

func TestCloseReleasesResources(t *testing.T) {
	r, dev := newTestRenderer(t, DefaultOptions())
	renderFrames(t, r, fixedCamera(), 2)

	r.Close()
	r.Close()

	if dev.LiveTotal() != 0 {
		t.Fatalf("expected all resources released; %d live", dev.LiveTotal())
	}
	if _, err := r.Frame(fixedCamera()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
	if err := r.Reconfigure(nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
	if _, err := r.CycleOperation(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed; got %v", err)
	}
}

// failPresent refuses to present the next n frames.
type failPresent struct {
	*devicetest.Device
	n int
}

var errPresent = errors.New("present failed")

func (d *failPresent) Present(src device.Target) error {
	if d.n > 0 {
		d.n--
		return errPresent
	}
	return d.Device.Present(src)
}

func TestPresentFailureStillAdvances(t *testing.T) {
	opts := DefaultOptions()
	dev := &failPresent{Device: devicetest.New(raytrace.KernelName), n: 1}
	r, err := Init(dev, NewTracer(opts), opts, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	cam := fixedCamera()
	if _, err = r.Frame(cam); !errors.Is(err, errPresent) {
		t.Fatalf("expected present error; got %v", err)
	}
	if r.SampleIndex() != 1 {
		t.Fatalf("expected the composited sample to be counted; got sample index %d", r.SampleIndex())
	}

	renderFrames(t, r, cam, 2)
	exp := []uint32{0, 1, 2}
	if len(dev.Composites) != len(exp) {
		t.Fatalf("expected %d composites; got %v", len(exp), dev.Composites)
	}
	for i, c := range dev.Composites {
		if c.SampleIndex != exp[i] {
			t.Fatalf("[composite %d] expected sample index %d; got %d", i, exp[i], c.SampleIndex)
		}
	}
}

func TestReconfigureDoesNotOverlapFrames(t *testing.T) {
	r, _ := newTestRenderer(t, DefaultOptions())
	defer r.Close()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, err := r.Frame(fixedCamera()); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			cfg := scene.DefaultConfig()
			cfg.Spheres.Seed = int64(i)
			if err := r.Reconfigure(cfg); err != nil {
				t.Error(err)
				return
			}
		}
	}()
	wg.Wait()
}
