package mesh

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/achilleasa/gpurt/asset"
	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/types"
)

func TestMain(m *testing.M) {
	log.SetSink(io.Discard)
	os.Exit(m.Run())
}

func TestVec3Parser(t *testing.T) {
	expError := `unsupported syntax for "v"; expected 3 arguments; got 0`
	_, err := parseVec3([]string{"v"})
	if err == nil || err.Error() != expError {
		t.Fatalf("expected to get %s; got %v", expError, err)
	}

	_, err = parseVec3([]string{"v", "not-a-float", "2", "3"})
	if err == nil {
		t.Fatal("expected to get a parse error")
	}

	v, err := parseVec3([]string{"v", "3.14", "0", "0.4"})
	if err != nil {
		t.Fatal(err)
	}

	expVal := types.Vec3{3.14, 0, 0.4}
	if !reflect.DeepEqual(v, expVal) {
		t.Fatalf("expected parsed value to be %v; got %v", expVal, v)
	}
}

func TestSelectFaceCoordIndex(t *testing.T) {
	type spec struct {
		token  string
		exp    int
		expErr bool
	}

	specs := []spec{
		{token: "1", exp: 0},
		{token: "4", exp: 3},
		{token: "-1", exp: 3},
		{token: "-4", exp: 0},
		{token: "0", expErr: true},
		{token: "5", expErr: true},
		{token: "-5", expErr: true},
		{token: "x", expErr: true},
	}

	for specIndex, s := range specs {
		got, err := selectFaceCoordIndex(s.token, 4)
		if s.expErr {
			if err == nil {
				t.Errorf("[spec %d] expected an error for token %q", specIndex, s.token)
			}
			continue
		}
		if err != nil || got != s.exp {
			t.Errorf("[spec %d] expected index %d; got %d (%v)", specIndex, s.exp, got, err)
		}
	}
}

func TestLoadTriangulatesAndRemaps(t *testing.T) {
	payload := `
# a quad and a triangle in separate objects
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vt 0 0
vn 0 0 1
f 1/1/1 2/1/1 3/1/1 4/1/1

o tri
v 5 5 5
f -1 2 3
`
	meshes, err := Load(asset.NewResourceFromStream("test.obj", strings.NewReader(payload)))
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 {
		t.Fatalf("expected 2 meshes; got %d", len(meshes))
	}

	quad := meshes[0]
	if quad.Name != "quad" || len(quad.Vertices) != 4 {
		t.Fatalf("expected quad with 4 vertices; got %q with %d", quad.Name, len(quad.Vertices))
	}
	if exp := []uint32{0, 1, 2, 0, 2, 3}; !reflect.DeepEqual(quad.Indices, exp) {
		t.Fatalf("expected fan indices %v; got %v", exp, quad.Indices)
	}

	// The second object references global vertices; its indices must be
	// local to its own vertex list.
	tri := meshes[1]
	expVerts := []types.Vec3{{5, 5, 5}, {1, 0, 0}, {1, 1, 0}}
	if !reflect.DeepEqual(tri.Vertices, expVerts) {
		t.Fatalf("expected vertices %v; got %v", expVerts, tri.Vertices)
	}
	if exp := []uint32{0, 1, 2}; !reflect.DeepEqual(tri.Indices, exp) {
		t.Fatalf("expected indices %v; got %v", exp, tri.Indices)
	}
}

func TestLoadErrors(t *testing.T) {
	specs := []struct {
		payload string
		expErr  string
	}{
		{"v 0 0 0\nf 1 1", `expected at least 3 arguments`},
		{"v 0 0 0\nf 1 2 3", `index out of bounds`},
		{"v 0 0\n", `expected 3 arguments`},
		{"o empty\n", ErrNoGeometry.Error()},
		{"v 0 0 0\nf /1 1 1", `does not include a vertex index`},
	}

	for specIndex, s := range specs {
		_, err := Load(asset.NewResourceFromStream("bad.obj", strings.NewReader(s.payload)))
		if err == nil || !strings.Contains(err.Error(), s.expErr) {
			t.Errorf("[spec %d] expected error containing %q; got %v", specIndex, s.expErr, err)
		}
	}
}

func TestLoadFileWithCall(t *testing.T) {
	dir := t.TempDir()
	write := func(name, payload string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(payload), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("verts.obj", "v 0 0 0\nv 1 0 0\nv 0 1 0\nv 0 0 1\n")
	write("main.obj", "call verts.obj\no a\nf 1 2 3\no b\nf 1 3 4\n")
	write("broken.obj", "call missing.obj\n")

	data, err := LoadFile("merged", filepath.Join(dir, "main.obj"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if data.Name != "merged" || len(data.Vertices) != 6 {
		t.Fatalf("expected merged mesh with 6 vertices; got %q with %d", data.Name, len(data.Vertices))
	}
	if exp := []uint32{0, 1, 2, 3, 4, 5}; !reflect.DeepEqual(data.Indices, exp) {
		t.Fatalf("expected offset indices %v; got %v", exp, data.Indices)
	}

	_, err = LoadFile("broken", filepath.Join(dir, "broken.obj"), nil)
	if err == nil || !strings.Contains(err.Error(), "missing.obj") {
		t.Fatalf("expected a missing include error; got %v", err)
	}
	if errors.Is(err, ErrNoGeometry) {
		t.Fatal("expected include error rather than ErrNoGeometry")
	}
}
