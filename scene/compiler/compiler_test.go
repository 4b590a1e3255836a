package compiler

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/types"
)

func TestMain(m *testing.M) {
	log.SetSink(io.Discard)
	os.Exit(m.Run())
}

func triangleMesh(name string, offset float32) *scene.MeshData {
	return &scene.MeshData{
		Name: name,
		Vertices: []types.Vec3{
			{offset, 0, 0},
			{offset + 1, 0, 0},
			{offset, 1, 0},
			{offset + 1, 1, 0},
		},
		Indices: []uint32{0, 1, 2, 2, 1, 3},
	}
}

func TestFlattenRoundTrip(t *testing.T) {
	instances := []scene.MeshInstance{
		{Mesh: scene.CubeMesh(), LocalToWorld: types.Ident4(), Material: scene.Material{Albedo: types.Splat(0.8)}},
		{Mesh: triangleMesh("quad", 10), LocalToWorld: types.Translate4(types.XYZ(0, 5, 0))},
		{Mesh: &scene.MeshData{Name: "empty"}},
		{Mesh: scene.CubeMesh(), Material: scene.Material{Emission: types.XYZ(1, 0, 0)}},
	}

	state := Flatten(instances)
	if err := state.Validate(); err != nil {
		t.Fatal(err)
	}

	if len(state.Descriptors) != len(instances) {
		t.Fatalf("expected %d descriptors; got %d", len(instances), len(state.Descriptors))
	}

	for iIndex, mi := range instances {
		d := state.Descriptors[iIndex]
		if int(d.IndexCount) != len(mi.Mesh.Indices) {
			t.Fatalf("[instance %d] expected index count %d; got %d", iIndex, len(mi.Mesh.Indices), d.IndexCount)
		}

		for k := uint32(0); k < d.IndexCount; k++ {
			local := mi.Mesh.Indices[k]
			global := state.Indices[d.IndexOffset+k]
			if state.Vertices[global] != mi.Mesh.Vertices[local] {
				t.Fatalf("[instance %d] index %d: expected vertex %v; got %v", iIndex, k, mi.Mesh.Vertices[local], state.Vertices[global])
			}
		}

		if d.Albedo != mi.Material.Albedo || d.Emission != mi.Material.Emission {
			t.Fatalf("[instance %d] expected material to be copied into descriptor", iIndex)
		}
	}

	// Second cube starts after cube + quad vertices.
	if exp := uint32(24 + 4); state.Indices[state.Descriptors[3].IndexOffset] != exp {
		t.Fatalf("expected first index of last cube to be rebased to %d; got %d", exp, state.Indices[state.Descriptors[3].IndexOffset])
	}
}

func TestFlattenEmpty(t *testing.T) {
	state := Flatten(nil)
	if len(state.Vertices) != 0 || len(state.Indices) != 0 || len(state.Descriptors) != 0 {
		t.Fatalf("expected empty geometry; got %d/%d/%d", len(state.Vertices), len(state.Indices), len(state.Descriptors))
	}
}

func TestValidateDetectsBadRanges(t *testing.T) {
	state := Flatten([]scene.MeshInstance{{Mesh: triangleMesh("quad", 0)}})

	state.Descriptors[0].IndexCount++
	if err := state.Validate(); err == nil {
		t.Fatal("expected out of range descriptor to fail validation")
	}

	state.Descriptors[0].IndexCount--
	state.Indices[0] = 99
	if err := state.Validate(); err == nil {
		t.Fatal("expected dangling index to fail validation")
	}
}

func TestStats(t *testing.T) {
	stats := Flatten([]scene.MeshInstance{{Mesh: scene.CubeMesh()}}).Stats()
	for _, exp := range []string{"Vertices", "288 bytes", "144 bytes"} {
		if !strings.Contains(stats, exp) {
			t.Fatalf("expected stats to contain %q; got\n%s", exp, stats)
		}
	}
}
