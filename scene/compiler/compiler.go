package compiler

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/types"
	"github.com/olekukonko/tablewriter"
)

var logger = log.New("scene compiler")

// SceneGeometryState holds the flattened mesh geometry owned by a single
// renderer. All mesh instances share the vertex and index lists; each
// descriptor selects its own index range.
type SceneGeometryState struct {
	Vertices    []types.Vec3
	Indices     []uint32
	Descriptors []scene.MeshDescriptor
}

// Flatten merges the instances, in order, into a new geometry state.
// Indices are rebased by the first vertex of their instance so they address
// the shared vertex list directly. Offsets are positional, so any change to
// the instance set requires a full re-run.
func Flatten(instances []scene.MeshInstance) *SceneGeometryState {
	start := time.Now()

	var totalVertices, totalIndices int
	for _, mi := range instances {
		totalVertices += len(mi.Mesh.Vertices)
		totalIndices += len(mi.Mesh.Indices)
	}

	state := &SceneGeometryState{
		Vertices:    make([]types.Vec3, 0, totalVertices),
		Indices:     make([]uint32, 0, totalIndices),
		Descriptors: make([]scene.MeshDescriptor, 0, len(instances)),
	}

	for _, mi := range instances {
		firstVertex := uint32(len(state.Vertices))
		firstIndex := uint32(len(state.Indices))

		state.Vertices = append(state.Vertices, mi.Mesh.Vertices...)
		for _, index := range mi.Mesh.Indices {
			state.Indices = append(state.Indices, index+firstVertex)
		}

		state.Descriptors = append(state.Descriptors, scene.MeshDescriptor{
			LocalToWorld: mi.LocalToWorld,
			IndexOffset:  firstIndex,
			IndexCount:   uint32(len(mi.Mesh.Indices)),
			Albedo:       mi.Material.Albedo,
			Specular:     mi.Material.Specular,
			Emission:     mi.Material.Emission,
		})
	}

	logger.Infof("flattened %d mesh instances (%d vertices, %d indices) in %d ms", len(instances), len(state.Vertices), len(state.Indices), time.Since(start).Nanoseconds()/1e6)
	return state
}

// Validate checks that every descriptor range lies inside the index list
// and that every index addresses an existing vertex.
func (s *SceneGeometryState) Validate() error {
	for dIndex, d := range s.Descriptors {
		if uint64(d.IndexOffset)+uint64(d.IndexCount) > uint64(len(s.Indices)) {
			return fmt.Errorf("compiler: descriptor %d range [%d, %d) exceeds index count %d", dIndex, d.IndexOffset, d.IndexOffset+d.IndexCount, len(s.Indices))
		}
	}
	for iIndex, index := range s.Indices {
		if int(index) >= len(s.Vertices) {
			return fmt.Errorf("compiler: index %d references vertex %d; only %d vertices exist", iIndex, index, len(s.Vertices))
		}
	}
	return nil
}

// Stats renders a table with the memory used by each geometry list.
func (s *SceneGeometryState) Stats() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Geometry", "Count", "Size"})
	table.Append([]string{"Vertices", fmt.Sprint(len(s.Vertices)), fmtSize(s.Vertices)})
	table.Append([]string{"Indices", fmt.Sprint(len(s.Indices)), fmtSize(s.Indices)})
	table.Append([]string{"Mesh descriptors", fmt.Sprint(len(s.Descriptors)), fmtSize(s.Descriptors)})
	table.SetFooter([]string{"Total", " ", strings.TrimLeft(fmtSize(s.Vertices, s.Indices, s.Descriptors), " ")})
	table.Render()
	return buf.String()
}

// Sum the CPU-side space used by a set of slices and format it with the
// appropriate byte/kb/mb unit.
func fmtSize(items ...interface{}) string {
	var totalBytes float32
	for _, item := range items {
		v := reflect.ValueOf(item)
		if v.Len() == 0 {
			continue
		}
		totalBytes += float32(int(v.Type().Elem().Size()) * v.Len())
	}

	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", int(totalBytes))
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", totalBytes/1e3)
	}
	return fmt.Sprintf("%5.1f mb", totalBytes/1e6)
}
