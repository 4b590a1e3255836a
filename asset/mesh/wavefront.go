// Package mesh loads triangle meshes from wavefront obj files.
package mesh

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/achilleasa/gpurt/asset"
	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/types"
)

var ErrNoGeometry = errors.New("mesh: file contains no faces")

type wavefrontReader struct {
	logger log.Logger

	meshes []*meshBuilder

	// Global vertex list; faces may reference vertices defined by any
	// previously parsed object.
	vertexList []types.Vec3

	// Provides additional error context when files include other files.
	errStack []string
}

// meshBuilder accumulates the faces of one object and remaps global vertex
// indices to mesh-local ones.
type meshBuilder struct {
	data  scene.MeshData
	local map[int]uint32
}

func newMeshBuilder(name string) *meshBuilder {
	return &meshBuilder{
		data:  scene.MeshData{Name: name},
		local: make(map[int]uint32),
	}
}

func (b *meshBuilder) vertex(globalIndex int, v types.Vec3) uint32 {
	if index, exists := b.local[globalIndex]; exists {
		return index
	}
	index := uint32(len(b.data.Vertices))
	b.data.Vertices = append(b.data.Vertices, v)
	b.local[globalIndex] = index
	return index
}

// Load parses an obj stream and returns one mesh per object or group.
// Texture coordinates, normals and material libraries are ignored since
// materials are assigned per mesh instance.
func Load(res *asset.Resource) ([]scene.MeshData, error) {
	r := &wavefrontReader{logger: log.New("wavefront reader")}
	start := time.Now()

	if err := r.parse(res); err != nil {
		return nil, err
	}

	meshes := make([]scene.MeshData, 0, len(r.meshes))
	triangles := 0
	for _, b := range r.meshes {
		meshes = append(meshes, b.data)
		triangles += len(b.data.Indices) / 3
	}
	if len(meshes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoGeometry, res.Path())
	}

	r.logger.Infof(`parsed %d meshes (%d triangles) from "%s" in %d ms`, len(meshes), triangles, res.Path(), time.Since(start).Nanoseconds()/1e6)
	return meshes, nil
}

// LoadFile opens the obj file at path and merges all of its objects into a
// single mesh with the given name.
func LoadFile(name, path string, relTo *asset.Resource) (*scene.MeshData, error) {
	res, err := asset.NewResource(path, relTo)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	meshes, err := Load(res)
	if err != nil {
		return nil, err
	}
	merged := Merge(name, meshes)
	return &merged, nil
}

// Merge concatenates meshes into one, offsetting the indices of each mesh
// by the number of vertices preceding it.
func Merge(name string, meshes []scene.MeshData) scene.MeshData {
	out := scene.MeshData{Name: name}
	for _, m := range meshes {
		base := uint32(len(out.Vertices))
		out.Vertices = append(out.Vertices, m.Vertices...)
		for _, index := range m.Indices {
			out.Indices = append(out.Indices, base+index)
		}
	}
	return out
}

func (r *wavefrontReader) emitError(file string, line int, msgFormat string, args ...interface{}) error {
	msg := fmt.Sprintf(msgFormat, args...)
	return errors.New(strings.Trim(
		fmt.Sprintf("[%s: %d] error: %s\n%s", file, line, msg, strings.Join(r.errStack, "\n")),
		"\n",
	))
}

func (r *wavefrontReader) parse(res *asset.Resource) error {
	lineNum := 0

	scanner := bufio.NewScanner(res)
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 || strings.HasPrefix(lineTokens[0], "#") {
			continue
		}

		switch lineTokens[0] {
		case "call":
			if len(lineTokens) != 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "call"; expected 1 argument; got %d`, len(lineTokens)-1)
			}

			incRes, err := asset.NewResource(lineTokens[1], res)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}

			r.errStack = append([]string{fmt.Sprintf("referenced from %s:%d [call]", res.Path(), lineNum)}, r.errStack...)
			err = r.parse(incRes)
			incRes.Close()
			if err != nil {
				return err
			}
			r.errStack = r.errStack[1:]
		case "v":
			v, err := parseVec3(lineTokens)
			if err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
			r.vertexList = append(r.vertexList, v)
		case "g", "o":
			if len(lineTokens) < 2 {
				return r.emitError(res.Path(), lineNum, `unsupported syntax for "%s"; expected 1 argument for object name; got %d`, lineTokens[0], len(lineTokens)-1)
			}
			r.dropEmptyMesh()
			r.meshes = append(r.meshes, newMeshBuilder(lineTokens[1]))
		case "f":
			if len(r.meshes) == 0 {
				r.meshes = append(r.meshes, newMeshBuilder("default"))
			}
			if err := r.parseFace(lineTokens, r.meshes[len(r.meshes)-1]); err != nil {
				return r.emitError(res.Path(), lineNum, "%s", err.Error())
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return r.emitError(res.Path(), lineNum, "%s", err.Error())
	}

	r.dropEmptyMesh()
	return nil
}

// Drop the last parsed mesh if it contains no faces.
func (r *wavefrontReader) dropEmptyMesh() {
	last := len(r.meshes) - 1
	if last >= 0 && len(r.meshes[last].data.Indices) == 0 {
		r.logger.Warningf(`dropping mesh "%s" as it contains no polygons`, r.meshes[last].data.Name)
		r.meshes = r.meshes[:last]
	}
}

// parseFace appends a polygon to the mesh, triangulating it as a fan
// around its first vertex. Each face argument has one of the forms v,
// v/vt, v//vn or v/vt/vn; only the vertex index is used. Indices start
// at 1 and negative values count back from the end of the vertex list.
func (r *wavefrontReader) parseFace(lineTokens []string, b *meshBuilder) error {
	if len(lineTokens) < 4 {
		return fmt.Errorf(`unsupported syntax for "f"; expected at least 3 arguments; got %d`, len(lineTokens)-1)
	}

	corners := make([]uint32, 0, len(lineTokens)-1)
	for arg, token := range lineTokens[1:] {
		vToken, _, _ := strings.Cut(token, "/")
		if vToken == "" {
			return fmt.Errorf("face argument %d does not include a vertex index", arg)
		}

		globalIndex, err := selectFaceCoordIndex(vToken, len(r.vertexList))
		if err != nil {
			return fmt.Errorf("could not parse vertex coord for face argument %d: %s", arg, err.Error())
		}
		corners = append(corners, b.vertex(globalIndex, r.vertexList[globalIndex]))
	}

	for i := 1; i+1 < len(corners); i++ {
		b.data.Indices = append(b.data.Indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

func selectFaceCoordIndex(indexToken string, coordListLen int) (int, error) {
	index, err := strconv.ParseInt(indexToken, 10, 32)
	if err != nil {
		return -1, err
	}

	var offset int
	if index < 0 {
		offset = coordListLen + int(index)
	} else {
		offset = int(index - 1)
	}
	if offset < 0 || offset >= coordListLen {
		return -1, fmt.Errorf("index out of bounds")
	}
	return offset, nil
}

func parseVec3(lineTokens []string) (types.Vec3, error) {
	if len(lineTokens) < 4 {
		return types.Vec3{}, fmt.Errorf(`unsupported syntax for "%s"; expected 3 arguments; got %d`, lineTokens[0], len(lineTokens)-1)
	}

	v := types.Vec3{}
	for tokIdx := 1; tokIdx <= 3; tokIdx++ {
		coord, err := strconv.ParseFloat(lineTokens[tokIdx], 32)
		if err != nil {
			return v, err
		}
		v[tokIdx-1] = float32(coord)
	}
	return v, nil
}
