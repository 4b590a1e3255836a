package tracer

import (
	"fmt"
	"sort"

	"github.com/achilleasa/gpurt/tracer/device"
)

// TextureSet owns the sampled textures of a tracer keyed by the kernel
// parameter they are bound to.
type TextureSet struct {
	textures map[string]device.Texture

	// Every param a texture was ever uploaded for.
	params map[string]struct{}
}

// Replace releases the current textures and uploads the given bindings.
// On failure all textures uploaded so far are released.
func (ts *TextureSet) Replace(dev device.Device, bindings []TextureBinding) error {
	ts.Release()
	ts.textures = make(map[string]device.Texture, len(bindings))
	if ts.params == nil {
		ts.params = make(map[string]struct{})
	}

	for _, b := range bindings {
		tex, err := dev.AllocateTexture(b.Param, b.Width, b.Height, b.RGBA)
		if err != nil {
			ts.Release()
			return fmt.Errorf("tracer: could not upload texture %s (%dx%d): %w", b.Param, b.Width, b.Height, err)
		}
		ts.textures[b.Param] = tex
		ts.params[b.Param] = struct{}{}
	}
	return nil
}

// Bind binds every texture to its parameter. Params whose texture was
// dropped by a later Replace are unbound.
func (ts *TextureSet) Bind(k device.Kernel) error {
	for _, param := range sortedKeys(ts.params) {
		var value interface{}
		if tex, ok := ts.textures[param]; ok {
			value = tex
		}
		if err := k.SetParam(param, value); err != nil {
			return err
		}
	}
	return nil
}

// Has returns true if a texture is bound to param.
func (ts *TextureSet) Has(param string) bool {
	_, ok := ts.textures[param]
	return ok
}

// Release frees all textures.
func (ts *TextureSet) Release() {
	for _, param := range sortedKeys(ts.textures) {
		ts.textures[param].Release()
		delete(ts.textures, param)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
