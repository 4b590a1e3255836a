// Package gl implements the compute device on top of OpenGL 4.3 compute
// shaders. All calls must be made from the goroutine that called Open,
// which must be locked to its OS thread.
package gl

import (
	"fmt"
	"os"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

type Options struct {
	// Window dims.
	Width  int
	Height int

	Title string

	// Create a hidden window; used for headless rendering.
	Hidden bool

	// Sync presentation to the display refresh rate.
	VSync bool
}

// Device is an OpenGL compute device bound to a glfw window.
type Device struct {
	logger log.Logger
	window *glfw.Window
	name   string

	kernels map[string]*kernel

	// Framebuffer used to blit targets to the window.
	presentFbo uint32
}

// Open creates the window and GL context and compiles the built-in
// composite kernel.
func Open(opts Options) (*Device, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("gl: failed to initialize glfw: %w", err)
	}

	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	if opts.Hidden {
		glfw.WindowHint(glfw.Visible, glfw.False)
	}

	window, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("gl: could not create window: %w", err)
	}
	window.MakeContextCurrent()
	if opts.VSync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if err = gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gl: could not init opengl: %w", err)
	}

	d := &Device{
		logger:  log.New("gl device"),
		window:  window,
		name:    fmt.Sprintf("%s (%s)", gl.GoStr(gl.GetString(gl.RENDERER)), gl.GoStr(gl.GetString(gl.VERSION))),
		kernels: make(map[string]*kernel),
	}
	gl.GenFramebuffers(1, &d.presentFbo)

	if err = d.LoadKernel(CompositeKernelName, compositeKernelSrc); err != nil {
		d.Close()
		return nil, err
	}

	d.logger.Noticef("opened device %s", d.name)
	return d, nil
}

// Window returns the window the device presents to.
func (d *Device) Window() *glfw.Window {
	return d.window
}

func (d *Device) Name() string {
	return d.name
}

// LoadKernel compiles a compute kernel and registers it under name,
// replacing any previous kernel with the same name.
func (d *Device) LoadKernel(name, src string) error {
	program, err := compileProgram(name, src)
	if err != nil {
		return err
	}
	if prev, exists := d.kernels[name]; exists {
		prev.release()
	}
	d.kernels[name] = newKernel(d, name, program)
	d.logger.Infof("compiled kernel %s", name)
	return nil
}

// LoadKernelFile compiles the kernel source stored at path.
func (d *Device) LoadKernelFile(name, path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("gl: could not read kernel %s: %w", name, err)
	}
	return d.LoadKernel(name, string(src))
}

func (d *Device) Kernel(name string) (device.Kernel, error) {
	k, ok := d.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", device.ErrUnknownKernel, name)
	}
	return k, nil
}

func (d *Device) AllocateBuffer(name string, count, stride int) (device.Buffer, error) {
	if count <= 0 || stride <= 0 {
		return nil, device.ErrZeroSize
	}

	b := &buffer{dev: d, name: name, count: count, stride: stride}
	gl.GenBuffers(1, &b.handle)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.handle)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, count*stride, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if err := checkError("allocate buffer " + name); err != nil {
		b.Release()
		return nil, err
	}

	d.logger.Debugf("allocated buffer %s (%d x %d bytes)", name, count, stride)
	return b, nil
}

func (d *Device) AllocateTarget(name string, width, height int) (device.Target, error) {
	if width <= 0 || height <= 0 {
		return nil, device.ErrZeroSize
	}
	img, err := newImage(d, name, width, height, nil, false)
	if err != nil {
		return nil, err
	}
	d.logger.Debugf("allocated target %s (%dx%d)", name, width, height)
	return img, nil
}

func (d *Device) AllocateTexture(name string, width, height int, rgba []float32) (device.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, device.ErrZeroSize
	}
	if len(rgba) != width*height*4 {
		return nil, fmt.Errorf("gl: texture %s expects %d floats; got %d", name, width*height*4, len(rgba))
	}
	img, err := newImage(d, name, width, height, rgba, true)
	if err != nil {
		return nil, err
	}
	d.logger.Debugf("allocated texture %s (%dx%d)", name, width, height)
	return img, nil
}

func (d *Device) Composite(src, dst device.Target, sampleIndex uint32) error {
	k := d.kernels[CompositeKernelName]
	if err := k.SetParam(compositeSource, src); err != nil {
		return err
	}
	if err := k.SetParam(compositeDestination, dst); err != nil {
		return err
	}
	if err := k.SetParam(compositeWeight, CompositeWeight(sampleIndex)); err != nil {
		return err
	}
	grid := device.Grid(uint32(dst.Width()), uint32(dst.Height()))
	return k.Dispatch(grid[0], grid[1], grid[2])
}

// Present blits the target to the window, scaling it to the framebuffer
// size, and swaps buffers.
func (d *Device) Present(src device.Target) error {
	img, ok := src.(*image)
	if !ok || img.handle == 0 {
		return device.ErrReleased
	}

	fbW, fbH := d.window.GetFramebufferSize()
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, d.presentFbo)
	gl.FramebufferTexture2D(gl.READ_FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, img.handle, 0)
	gl.BindFramebuffer(gl.DRAW_FRAMEBUFFER, 0)
	gl.BlitFramebuffer(0, 0, int32(img.width), int32(img.height), 0, 0, int32(fbW), int32(fbH), gl.COLOR_BUFFER_BIT, gl.LINEAR)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	if err := checkError("present " + img.name); err != nil {
		return err
	}

	d.window.SwapBuffers()
	return nil
}

func (d *Device) Close() {
	if d.window == nil {
		return
	}
	for _, k := range d.kernels {
		k.release()
	}
	d.kernels = nil
	if d.presentFbo != 0 {
		gl.DeleteFramebuffers(1, &d.presentFbo)
		d.presentFbo = 0
	}
	d.window.Destroy()
	d.window = nil
	glfw.Terminate()
	d.logger.Notice("device closed")
}

// CompositeWeight returns the blend factor of the newest sample when
// sampleIndex samples are already accumulated.
func CompositeWeight(sampleIndex uint32) float32 {
	return 1 / float32(sampleIndex+1)
}

// Info describes the GL implementation backing a device.
type Info struct {
	Vendor      string
	Renderer    string
	Version     string
	GLSLVersion string

	MaxWorkGroupCount   [3]int32
	MaxWorkGroupSize    [3]int32
	MaxInvocations      int32
	MaxStorageBlockSize int32
	MaxTextureSize      int32
}

// Info queries the compute limits of the device.
func (d *Device) Info() Info {
	info := Info{
		Vendor:      gl.GoStr(gl.GetString(gl.VENDOR)),
		Renderer:    gl.GoStr(gl.GetString(gl.RENDERER)),
		Version:     gl.GoStr(gl.GetString(gl.VERSION)),
		GLSLVersion: gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION)),
	}
	for axis := uint32(0); axis < 3; axis++ {
		gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, axis, &info.MaxWorkGroupCount[axis])
		gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_SIZE, axis, &info.MaxWorkGroupSize[axis])
	}
	gl.GetIntegerv(gl.MAX_COMPUTE_WORK_GROUP_INVOCATIONS, &info.MaxInvocations)
	gl.GetIntegerv(gl.MAX_SHADER_STORAGE_BLOCK_SIZE, &info.MaxStorageBlockSize)
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &info.MaxTextureSize)
	return info
}
