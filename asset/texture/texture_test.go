package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/achilleasa/gpurt/asset"
	"github.com/achilleasa/gpurt/tracer"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestRgba8Texture(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	img.Set(0, 1, color.RGBA{0, 0, 255, 255})

	tex, err := New(encode(t, "png", img))
	if err != nil {
		t.Fatal(err)
	}

	if tex.Width != 1 || tex.Height != 2 {
		t.Fatalf("expected tex dims to be 1x2; got %dx%d", tex.Width, tex.Height)
	}
	if tex.Format != Rgba8 || tex.Codec != "png" {
		t.Fatalf("expected RGBA8 png; got %s %s", tex.Format, tex.Codec)
	}

	// Rows are flipped: the bottom (blue) row comes first.
	exp := []float32{0, 0, 1, 1, 1, 0, 0, 1}
	for i, v := range exp {
		if tex.Data[i] != v {
			t.Fatalf("expected pixel data %v; got %v", exp, tex.Data)
		}
	}
}

func TestDecoders(t *testing.T) {
	type spec struct {
		codec     string
		img       image.Image
		expFormat Format
	}

	specs := []spec{
		{"png", image.NewRGBA64(image.Rect(0, 0, 2, 2)), Rgba16},
		{"png", image.NewGray(image.Rect(0, 0, 2, 2)), Luminance8},
		{"bmp", image.NewRGBA(image.Rect(0, 0, 2, 2)), Rgba8},
		{"tiff", image.NewRGBA(image.Rect(0, 0, 2, 2)), Rgba8},
	}

	for specIndex, s := range specs {
		tex, err := New(encode(t, s.codec, s.img))
		if err != nil {
			t.Errorf("[spec %d] %v", specIndex, err)
			continue
		}
		if tex.Codec != s.codec {
			t.Errorf("[spec %d] expected codec %s; got %s", specIndex, s.codec, tex.Codec)
		}
		if tex.Format != s.expFormat {
			t.Errorf("[spec %d] expected format %s; got %s", specIndex, s.expFormat, tex.Format)
		}
		if expLen := 2 * 2 * 4; len(tex.Data) != expLen {
			t.Errorf("[spec %d] expected tex data len to be %d; got %d", specIndex, expLen, len(tex.Data))
		}
	}
}

func TestUnknownFormat(t *testing.T) {
	_, err := New(asset.NewResourceFromStream("sky.txt", bytes.NewReader([]byte("not an image"))))
	if err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestStreamHttpTexture(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/skybox.png" {
			png.Encode(w, image.NewRGBA64(image.Rect(0, 0, 4, 2)))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	tex, err := Load(server.URL + "/skybox.png")
	if err != nil {
		t.Fatal(err)
	}

	binding := tex.Binding("_SkyboxTexture")
	if binding.Param != "_SkyboxTexture" || binding.Width != 4 || binding.Height != 2 {
		t.Fatalf("unexpected binding %s %dx%d", binding.Param, binding.Width, binding.Height)
	}
	if len(binding.RGBA) != binding.Width*binding.Height*4 {
		t.Fatalf("expected %d floats; got %d", binding.Width*binding.Height*4, len(binding.RGBA))
	}
}

func encode(t *testing.T, codec string, img image.Image) *asset.Resource {
	var buf bytes.Buffer
	var err error
	switch codec {
	case "png":
		err = png.Encode(&buf, img)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
	return asset.NewResourceFromStream("texture."+codec, &buf)
}

func TestLoadBindings(t *testing.T) {
	dir := t.TempDir()
	files := map[string]image.Image{
		"planet.png": image.NewRGBA(image.Rect(0, 0, 4, 2)),
		"ring.png":   image.NewGray(image.Rect(0, 0, 1, 1)),
	}
	for name, img := range files {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	bindings, err := LoadBindings(map[string]string{
		tracer.ParamPlanetaryRingTexture: filepath.Join(dir, "ring.png"),
		tracer.ParamPlanetTexture:        filepath.Join(dir, "planet.png"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(bindings) != 2 {
		t.Fatalf("expected 2 bindings; got %d", len(bindings))
	}
	if b := bindings[0]; b.Param != tracer.ParamPlanetTexture || b.Width != 4 || b.Height != 2 || len(b.RGBA) != 32 {
		t.Fatalf("unexpected planet binding %s %dx%d (%d floats)", b.Param, b.Width, b.Height, len(b.RGBA))
	}
	if b := bindings[1]; b.Param != tracer.ParamPlanetaryRingTexture || b.Width != 1 || b.Height != 1 {
		t.Fatalf("unexpected ring binding %s %dx%d", b.Param, b.Width, b.Height)
	}

	if _, err = LoadBindings(map[string]string{tracer.ParamSkybox: filepath.Join(dir, "missing.png")}); err == nil {
		t.Fatal("expected an error for a missing texture")
	}
}
