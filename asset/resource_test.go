package asset

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalResource(t *testing.T) {
	dir := t.TempDir()
	objPath := filepath.Join(dir, "cube.OBJ")
	if err := os.WriteFile(objPath, []byte("v 0 0 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewResource(objPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Close()

	if res.IsRemote() {
		t.Fatal("expected a local resource")
	}
	if res.Ext() != ".obj" {
		t.Fatalf("expected extension .obj; got %q", res.Ext())
	}
	data, err := io.ReadAll(res)
	if err != nil || string(data) != "v 0 0 0\n" {
		t.Fatalf("unexpected contents %q (%v)", data, err)
	}
}

func TestRelativeLocalResource(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "meshes"), 0o755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(dir, "scene.toml")
	meshPath := filepath.Join(dir, "meshes", "teapot.obj")
	for _, p := range []string{configPath, meshPath} {
		if err := os.WriteFile(p, []byte(p), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	config, err := NewResource(configPath, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer config.Close()

	mesh, err := NewResource("meshes/teapot.obj", config)
	if err != nil {
		t.Fatal(err)
	}
	defer mesh.Close()

	data, _ := io.ReadAll(mesh)
	if string(data) != meshPath {
		t.Fatalf("expected to read %s; got %s", meshPath, data)
	}
}

func TestHttpResource(t *testing.T) {
	serverHits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serverHits++
		switch r.URL.Path {
		case "/scenes/scene.yaml", "/scenes/cube.obj":
			w.Write([]byte("OK"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	res1, err := NewResource(server.URL+"/scenes/scene.yaml", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer res1.Close()
	if !res1.IsRemote() {
		t.Fatal("expected a remote resource")
	}

	res2, err := NewResource("cube.obj", res1)
	if err != nil {
		t.Fatal(err)
	}
	defer res2.Close()

	if serverHits != 2 {
		t.Fatalf("expected server to receive 2 requests; got %d", serverHits)
	}

	_, err = NewResource(server.URL+"/missing.obj", nil)
	if !errors.Is(err, ErrFetch) || !strings.Contains(err.Error(), "status 404") {
		t.Fatalf("expected a 404 fetch error; got %v", err)
	}
}

func TestUnsupportedResourceScheme(t *testing.T) {
	_, err := NewResource("gopher://digging.obj", nil)
	if !errors.Is(err, ErrUnsupportedScheme) {
		t.Fatalf("expected ErrUnsupportedScheme; got %v", err)
	}
}

func TestResourceFromStream(t *testing.T) {
	res := NewResourceFromStream("embedded.yml", strings.NewReader("spheres: {}"))
	defer res.Close()

	if res.Ext() != ".yml" || res.Path() != "embedded.yml" {
		t.Fatalf("unexpected resource metadata: ext %q, path %q", res.Ext(), res.Path())
	}
}
