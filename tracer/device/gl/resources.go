package gl

import (
	"fmt"

	"github.com/achilleasa/gpurt/tracer/device"
	"github.com/go-gl/gl/v4.3-core/gl"
)

// buffer is a shader storage buffer.
type buffer struct {
	dev    *Device
	name   string
	count  int
	stride int
	handle uint32
}

func (b *buffer) Name() string { return b.name }
func (b *buffer) Count() int   { return b.count }
func (b *buffer) Stride() int  { return b.stride }

func (b *buffer) Write(data []byte) error {
	if b.handle == 0 {
		return device.ErrReleased
	}
	if len(data) != b.count*b.stride {
		return fmt.Errorf("gl: buffer %s expects %d bytes; got %d", b.name, b.count*b.stride, len(data))
	}

	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.handle)
	gl.BufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return checkError("write buffer " + b.name)
}

func (b *buffer) Release() {
	if b.handle == 0 {
		return
	}
	gl.DeleteBuffers(1, &b.handle)
	b.handle = 0
	b.dev.logger.Debugf("released buffer %s", b.name)
}

// image is an RGBA32F texture. Render targets are bound as writable images
// while textures are bound to sampler units.
type image struct {
	dev           *Device
	name          string
	width, height int
	handle        uint32
	sampled       bool
}

func (i *image) Name() string { return i.name }
func (i *image) Width() int   { return i.width }
func (i *image) Height() int  { return i.height }

func (i *image) Release() {
	if i.handle == 0 {
		return
	}
	gl.DeleteTextures(1, &i.handle)
	i.handle = 0
	i.dev.logger.Debugf("released image %s", i.name)
}

func newImage(dev *Device, name string, width, height int, rgba []float32, sampled bool) (*image, error) {
	img := &image{dev: dev, name: name, width: width, height: height, sampled: sampled}

	gl.GenTextures(1, &img.handle)
	gl.BindTexture(gl.TEXTURE_2D, img.handle)
	filter := int32(gl.NEAREST)
	if sampled {
		filter = gl.LINEAR
	}
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.REPEAT)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	if len(rgba) > 0 {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, gl.Ptr(rgba))
	} else {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA32F, int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, nil)
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)

	if err := checkError("allocate image " + name); err != nil {
		img.Release()
		return nil, err
	}
	return img, nil
}
