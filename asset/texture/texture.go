// Package texture decodes images into RGBA float pixels ready to be
// sampled by the tracing kernels.
package texture

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	// Register decoders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/achilleasa/gpurt/asset"
	"github.com/achilleasa/gpurt/tracer"
)

// A texture image and its metadata.
type Texture struct {
	// Source pixel format.
	Format Format

	// Container format reported by the decoder (png, jpeg, tiff ...).
	Codec string

	Width  int
	Height int

	// RGBA pixels in [0, 1]. Rows are stored bottom to top to match the
	// texture origin of the device.
	Data []float32
}

// New decodes a texture from a resource.
func New(res *asset.Resource) (*Texture, error) {
	img, codec, err := image.Decode(res)
	if err != nil {
		return nil, fmt.Errorf("texture: could not decode %s: %w", res.Path(), err)
	}

	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("texture: image %s has no pixels", res.Path())
	}

	tex := &Texture{
		Format: formatOf(img.ColorModel()),
		Codec:  codec,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   make([]float32, bounds.Dx()*bounds.Dy()*4),
	}

	wOffset := 0
	for y := bounds.Max.Y - 1; y >= bounds.Min.Y; y-- {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBA64Model.Convert(img.At(x, y)).(color.NRGBA64)
			tex.Data[wOffset] = float32(c.R) / 0xffff
			tex.Data[wOffset+1] = float32(c.G) / 0xffff
			tex.Data[wOffset+2] = float32(c.B) / 0xffff
			tex.Data[wOffset+3] = float32(c.A) / 0xffff
			wOffset += 4
		}
	}

	return tex, nil
}

// Load decodes the texture stored at location.
func Load(location string) (*Texture, error) {
	res, err := asset.NewResource(location, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return New(res)
}

// LoadBindings decodes the image behind every location and binds it to
// the parameter it is keyed by. Bindings are ordered by parameter.
func LoadBindings(locations map[string]string) ([]tracer.TextureBinding, error) {
	params := make([]string, 0, len(locations))
	for param := range locations {
		params = append(params, param)
	}
	sort.Strings(params)

	bindings := make([]tracer.TextureBinding, 0, len(params))
	for _, param := range params {
		tex, err := Load(locations[param])
		if err != nil {
			return nil, fmt.Errorf("texture: could not load %s: %w", param, err)
		}
		bindings = append(bindings, tex.Binding(param))
	}
	return bindings, nil
}

// Binding returns a binding of the texture to a kernel parameter.
func (t *Texture) Binding(param string) tracer.TextureBinding {
	return tracer.TextureBinding{
		Param:  param,
		Width:  t.Width,
		Height: t.Height,
		RGBA:   t.Data,
	}
}

func formatOf(model color.Model) Format {
	switch model {
	case color.GrayModel:
		return Luminance8
	case color.Gray16Model:
		return Luminance16
	case color.RGBA64Model, color.NRGBA64Model:
		return Rgba16
	}
	return Rgba8
}
