// Package devicetest provides an in-memory device that records every
// operation so that GPU orchestration can be tested without a GPU.
package devicetest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/achilleasa/gpurt/types"
)

// ErrInjected is returned by allocations when failures are injected.
var ErrInjected = errors.New("devicetest: injected allocation failure")

// Dispatch records a single kernel dispatch.
type Dispatch struct {
	Kernel string
	Groups [3]uint32
	Params map[string]interface{}
}

// Composite records a single composite call.
type Composite struct {
	Src, Dst    string
	SampleIndex uint32
}

// Device is a recording implementation of device.Device.
type Device struct {
	sync.Mutex

	// Number of upcoming allocations (of any kind) that should fail.
	FailAllocations int

	BufferAllocs  int
	BufferWrites  int
	TargetAllocs  int
	TextureAllocs int
	Releases      int

	Dispatches []Dispatch
	Composites []Composite
	Presents   []string

	kernels map[string]*Kernel
	live    map[string]int
	closed  bool
}

// New creates a device with kernels registered under the given names.
func New(kernelNames ...string) *Device {
	d := &Device{
		kernels: make(map[string]*Kernel),
		live:    make(map[string]int),
	}
	for _, name := range kernelNames {
		d.kernels[name] = &Kernel{dev: d, name: name, params: make(map[string]interface{})}
	}
	return d
}

func (d *Device) Name() string { return "recording device" }

func (d *Device) Kernel(name string) (device.Kernel, error) {
	d.Lock()
	defer d.Unlock()
	k, ok := d.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", device.ErrUnknownKernel, name)
	}
	return k, nil
}

func (d *Device) injectFailure() bool {
	if d.FailAllocations > 0 {
		d.FailAllocations--
		return true
	}
	return false
}

func (d *Device) AllocateBuffer(name string, count, stride int) (device.Buffer, error) {
	d.Lock()
	defer d.Unlock()
	if count <= 0 || stride <= 0 {
		return nil, device.ErrZeroSize
	}
	if d.injectFailure() {
		return nil, ErrInjected
	}
	d.BufferAllocs++
	d.live[name]++
	return &Buffer{dev: d, name: name, count: count, stride: stride}, nil
}

func (d *Device) AllocateTarget(name string, width, height int) (device.Target, error) {
	d.Lock()
	defer d.Unlock()
	if width <= 0 || height <= 0 {
		return nil, device.ErrZeroSize
	}
	if d.injectFailure() {
		return nil, ErrInjected
	}
	d.TargetAllocs++
	d.live[name]++
	return &Image{dev: d, name: name, width: width, height: height}, nil
}

func (d *Device) AllocateTexture(name string, width, height int, rgba []float32) (device.Texture, error) {
	d.Lock()
	defer d.Unlock()
	if width <= 0 || height <= 0 {
		return nil, device.ErrZeroSize
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("devicetest: texture %s expects %d floats; got %d", name, width*height*4, len(rgba))
	}
	if d.injectFailure() {
		return nil, ErrInjected
	}
	d.TextureAllocs++
	d.live[name]++
	return &Image{dev: d, name: name, width: width, height: height}, nil
}

func (d *Device) Composite(src, dst device.Target, sampleIndex uint32) error {
	d.Lock()
	defer d.Unlock()
	if src.(*Image).released || dst.(*Image).released {
		return device.ErrReleased
	}
	d.Composites = append(d.Composites, Composite{Src: src.Name(), Dst: dst.Name(), SampleIndex: sampleIndex})
	return nil
}

func (d *Device) Present(src device.Target) error {
	d.Lock()
	defer d.Unlock()
	if src.(*Image).released {
		return device.ErrReleased
	}
	d.Presents = append(d.Presents, src.Name())
	return nil
}

func (d *Device) Close() {
	d.Lock()
	defer d.Unlock()
	d.closed = true
}

// Live returns the number of unreleased resources with the given name.
func (d *Device) Live(name string) int {
	d.Lock()
	defer d.Unlock()
	return d.live[name]
}

// LiveTotal returns the number of unreleased resources.
func (d *Device) LiveTotal() int {
	d.Lock()
	defer d.Unlock()
	total := 0
	for _, n := range d.live {
		total += n
	}
	return total
}

// LastDispatch returns the most recent dispatch or false if none occurred.
func (d *Device) LastDispatch() (Dispatch, bool) {
	d.Lock()
	defer d.Unlock()
	if len(d.Dispatches) == 0 {
		return Dispatch{}, false
	}
	return d.Dispatches[len(d.Dispatches)-1], true
}

func (d *Device) release(name string) {
	d.Lock()
	defer d.Unlock()
	d.Releases++
	d.live[name]--
}

// Buffer is a recorded buffer. Its contents are kept so tests can inspect
// uploads.
type Buffer struct {
	dev      *Device
	name     string
	count    int
	stride   int
	data     []byte
	released bool
}

func (b *Buffer) Name() string { return b.name }
func (b *Buffer) Count() int   { return b.count }
func (b *Buffer) Stride() int  { return b.stride }

// Data returns a copy of the last upload.
func (b *Buffer) Data() []byte { return append([]byte(nil), b.data...) }

// Released reports whether Release was called.
func (b *Buffer) Released() bool { return b.released }

func (b *Buffer) Write(data []byte) error {
	if b.released {
		return device.ErrReleased
	}
	if len(data) != b.count*b.stride {
		return fmt.Errorf("devicetest: buffer %s expects %d bytes; got %d", b.name, b.count*b.stride, len(data))
	}
	b.data = append(b.data[:0], data...)
	b.dev.Lock()
	b.dev.BufferWrites++
	b.dev.Unlock()
	return nil
}

func (b *Buffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.dev.release(b.name)
}

// Image implements both device.Target and device.Texture.
type Image struct {
	dev           *Device
	name          string
	width, height int
	released      bool
}

func (i *Image) Name() string { return i.name }
func (i *Image) Width() int   { return i.width }
func (i *Image) Height() int  { return i.height }

// Released reports whether Release was called.
func (i *Image) Released() bool { return i.released }

func (i *Image) Release() {
	if i.released {
		return
	}
	i.released = true
	i.dev.release(i.name)
}

// Kernel records bound parameters and dispatches.
type Kernel struct {
	dev    *Device
	name   string
	params map[string]interface{}
}

func (k *Kernel) Name() string { return k.name }

func (k *Kernel) SetParam(name string, value interface{}) error {
	switch v := value.(type) {
	case nil:
		delete(k.params, name)
		return nil
	case int32, uint32, float32, types.Vec2, types.Vec4, types.Mat4:
	case *Buffer:
		if v.released {
			return device.ErrReleased
		}
	case *Image:
		if v.released {
			return device.ErrReleased
		}
	default:
		return device.UnsupportedParamError(k.name, name, value)
	}
	k.params[name] = value
	return nil
}

// Dispatch records the call. Like a real device, it fails if a bound
// resource was released after being bound.
func (k *Kernel) Dispatch(groupsX, groupsY, groupsZ uint32) error {
	snapshot := make(map[string]interface{}, len(k.params))
	for name, v := range k.params {
		switch res := v.(type) {
		case *Buffer:
			if res.released {
				return fmt.Errorf("%w: kernel %s, param %s", device.ErrReleased, k.name, name)
			}
		case *Image:
			if res.released {
				return fmt.Errorf("%w: kernel %s, param %s", device.ErrReleased, k.name, name)
			}
		}
		snapshot[name] = v
	}

	k.dev.Lock()
	defer k.dev.Unlock()
	k.dev.Dispatches = append(k.dev.Dispatches, Dispatch{
		Kernel: k.name,
		Groups: [3]uint32{groupsX, groupsY, groupsZ},
		Params: snapshot,
	})
	return nil
}

// Params returns the currently bound parameters.
func (k *Kernel) Params() map[string]interface{} {
	return k.params
}
