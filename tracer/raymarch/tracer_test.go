package raymarch

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/tracer"
	"github.com/achilleasa/gpurt/tracer/device/devicetest"
	"github.com/achilleasa/gpurt/types"
)

func TestMain(m *testing.M) {
	log.SetSink(io.Discard)
	os.Exit(m.Run())
}

func TestDispatchPrimitives(t *testing.T) {
	type spec struct {
		layout tracer.Layout
		stride int
	}

	specs := []spec{
		{tracer.LayoutBasic, tracer.PrimitiveStrideBasic},
		{tracer.LayoutExtended, tracer.PrimitiveStrideExtended},
	}

	for _, s := range specs {
		dev := devicetest.New(KernelName)
		tr := New("test", Options{Layout: s.layout})
		if err := tr.Setup(dev); err != nil {
			t.Fatal(err)
		}

		tr.AppendChange(tracer.SetPrimitives, scene.DefaultPrimitives())
		tr.AppendChange(tracer.SetSpheres, []scene.Sphere{{Radius: 1}})
		if err := tr.ApplyPendingChanges(); err != nil {
			t.Fatal(err)
		}

		target, _ := dev.AllocateTarget("Target", 1920, 1080)
		if err := tr.Dispatch(tracer.FrameParams{Target: target, Time: 2}); err != nil {
			t.Fatal(err)
		}

		d, _ := dev.LastDispatch()
		if d.Groups != [3]uint32{240, 135, 1} {
			t.Fatalf("[%s] expected grid (240, 135, 1); got %v", s.layout, d.Groups)
		}
		if got := d.Params[tracer.ParamPrimitiveCnt]; got != int32(3) {
			t.Fatalf("[%s] expected primitive count 3; got %v", s.layout, got)
		}
		if got := d.Params[tracer.ParamTime]; got != types.XYZW(0.1, 2, 4, 6) {
			t.Fatalf("[%s] expected time vector (0.1, 2, 4, 6); got %v", s.layout, got)
		}
		buf := d.Params[tracer.BufferPrimitives].(*devicetest.Buffer)
		if buf.Stride() != s.stride || buf.Count() != 3 {
			t.Fatalf("[%s] expected 3 primitives with stride %d; got %d x %d", s.layout, s.stride, buf.Count(), buf.Stride())
		}
		if dev.Live(tracer.BufferSpheres) != 0 {
			t.Fatalf("[%s] expected spheres to be ignored by the marcher", s.layout)
		}

		tr.Close()
		if dev.Live(tracer.BufferPrimitives) != 0 {
			t.Fatalf("[%s] expected primitive buffer to be released", s.layout)
		}
	}
}

func TestSetOperation(t *testing.T) {
	dev := devicetest.New(KernelName)
	tr := New("test", Options{})
	if err := tr.Setup(dev); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()

	for op := int32(0); op < OperationCount; op++ {
		tr.AppendChange(tracer.SetOperation, op)
		if err := tr.ApplyPendingChanges(); err != nil {
			t.Fatal(err)
		}
		if tr.Operation() != op {
			t.Fatalf("expected operation %d; got %d", op, tr.Operation())
		}
	}

	tr.AppendChange(tracer.SetOperation, OperationCount)
	if err := tr.ApplyPendingChanges(); !errors.Is(err, tracer.ErrInvalidChangeValue) {
		t.Fatalf("expected out of range operation to be rejected; got %v", err)
	}
}

func TestDoesNotAccumulate(t *testing.T) {
	if New("test", Options{}).Accumulates() {
		t.Fatal("expected the marcher not to accumulate frames")
	}
}

func TestBindsPlanetTextures(t *testing.T) {
	dev := devicetest.New(KernelName)
	tr := New("test", Options{})
	if err := tr.Setup(dev); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	target, _ := dev.AllocateTarget("Target", 8, 8)

	var bindings []tracer.TextureBinding
	for _, param := range tracer.TextureParams {
		bindings = append(bindings, tracer.TextureBinding{Param: param, Width: 1, Height: 1, RGBA: []float32{1, 0, 0, 1}})
	}
	tr.AppendChange(tracer.SetPrimitives, scene.DefaultPrimitives())
	tr.AppendChange(tracer.SetTextures, bindings)
	if err := tr.ApplyPendingChanges(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Dispatch(tracer.FrameParams{Target: target}); err != nil {
		t.Fatal(err)
	}

	d, _ := dev.LastDispatch()
	for _, param := range tracer.TextureParams {
		if _, ok := d.Params[param].(*devicetest.Image); !ok {
			t.Fatalf("expected a texture bound to %s; got %v", param, d.Params[param])
		}
	}
	if dev.TextureAllocs != 7 {
		t.Fatalf("expected 7 texture uploads; got %d", dev.TextureAllocs)
	}

	// Dropping the planet textures must not leave released textures bound.
	tr.AppendChange(tracer.SetTextures, bindings[:1])
	if err := tr.ApplyPendingChanges(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Dispatch(tracer.FrameParams{Target: target}); err != nil {
		t.Fatalf("expected dispatch to succeed after dropping textures; got %v", err)
	}
	d, _ = dev.LastDispatch()
	if _, ok := d.Params[tracer.ParamSkybox]; !ok {
		t.Fatal("expected the skybox to stay bound")
	}
	for _, param := range tracer.TextureParams[1:] {
		if _, ok := d.Params[param]; ok {
			t.Fatalf("expected %s to be unbound", param)
		}
	}
}
