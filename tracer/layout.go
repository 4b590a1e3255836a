package tracer

import (
	"fmt"
	"strings"

	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/types"
)

// Layout selects how entities are packed for the kernel. The basic layout
// drops material fields that older kernels do not read.
type Layout uint8

const (
	LayoutExtended Layout = iota
	LayoutBasic
)

func (l Layout) String() string {
	if l == LayoutBasic {
		return "basic"
	}
	return "extended"
}

// ParseLayout maps "basic" or "extended" to a Layout.
func ParseLayout(name string) (Layout, error) {
	switch strings.ToLower(name) {
	case "", "extended":
		return LayoutExtended, nil
	case "basic":
		return LayoutBasic, nil
	}
	return LayoutExtended, fmt.Errorf("tracer: unknown layout %q", name)
}

// Element strides in bytes.
const (
	SphereStrideBasic       = 40
	SphereStrideExtended    = 56
	MeshStrideBasic         = 72
	MeshStrideExtended      = 108
	VertexStride            = 12
	IndexStride             = 4
	PrimitiveStrideBasic    = 32
	PrimitiveStrideExtended = 40
)

type gpuSphereBasic struct {
	Position types.Vec3
	Radius   float32
	Albedo   types.Vec3
	Specular types.Vec3
}

type gpuSphere struct {
	Radius     float32
	Smoothness float32
	Albedo     types.Vec3
	Emission   types.Vec3
	Position   types.Vec3
	Specular   types.Vec3
}

type gpuMeshBasic struct {
	LocalToWorld types.Mat4
	IndexOffset  uint32
	IndexCount   uint32
}

type gpuMesh struct {
	LocalToWorld types.Mat4
	IndexOffset  uint32
	IndexCount   uint32
	Albedo       types.Vec3
	Specular     types.Vec3
	Emission     types.Vec3
}

type gpuPrimitiveBasic struct {
	MeshID   int32
	Shape    int32
	Size     types.Vec3
	Position types.Vec3
}

type gpuPrimitive struct {
	MeshID     int32
	Shape      int32
	Size       types.Vec3
	Position   types.Vec3
	Blend      float32
	Smoothness float32
}

// SyncSpheres packs spheres with the given layout and syncs the sphere
// buffer.
func SyncSpheres(m *BufferManager, spheres []scene.Sphere, layout Layout) (bool, error) {
	if layout == LayoutBasic {
		packed := make([]gpuSphereBasic, len(spheres))
		for i, s := range spheres {
			packed[i] = gpuSphereBasic{Position: s.Position, Radius: s.Radius, Albedo: s.Albedo, Specular: s.Specular}
		}
		return Sync(m, BufferSpheres, packed, SphereStrideBasic)
	}

	packed := make([]gpuSphere, len(spheres))
	for i, s := range spheres {
		packed[i] = gpuSphere{
			Radius:     s.Radius,
			Smoothness: s.Smoothness,
			Albedo:     s.Albedo,
			Emission:   s.Emission,
			Position:   s.Position,
			Specular:   s.Specular,
		}
	}
	return Sync(m, BufferSpheres, packed, SphereStrideExtended)
}

// SyncMeshDescriptors packs mesh descriptors with the given layout and
// syncs the mesh object buffer.
func SyncMeshDescriptors(m *BufferManager, descriptors []scene.MeshDescriptor, layout Layout) (bool, error) {
	if layout == LayoutBasic {
		packed := make([]gpuMeshBasic, len(descriptors))
		for i, d := range descriptors {
			packed[i] = gpuMeshBasic{LocalToWorld: d.LocalToWorld, IndexOffset: d.IndexOffset, IndexCount: d.IndexCount}
		}
		return Sync(m, BufferMeshObjects, packed, MeshStrideBasic)
	}

	packed := make([]gpuMesh, len(descriptors))
	for i, d := range descriptors {
		packed[i] = gpuMesh{
			LocalToWorld: d.LocalToWorld,
			IndexOffset:  d.IndexOffset,
			IndexCount:   d.IndexCount,
			Albedo:       d.Albedo,
			Specular:     d.Specular,
			Emission:     d.Emission,
		}
	}
	return Sync(m, BufferMeshObjects, packed, MeshStrideExtended)
}

// SyncPrimitives packs ray-march primitives with the given layout and
// syncs the primitive buffer.
func SyncPrimitives(m *BufferManager, prims []scene.Primitive, layout Layout) (bool, error) {
	if layout == LayoutBasic {
		packed := make([]gpuPrimitiveBasic, len(prims))
		for i, p := range prims {
			packed[i] = gpuPrimitiveBasic{MeshID: p.MeshID, Shape: int32(p.Shape), Size: p.Size, Position: p.Position}
		}
		return Sync(m, BufferPrimitives, packed, PrimitiveStrideBasic)
	}

	packed := make([]gpuPrimitive, len(prims))
	for i, p := range prims {
		packed[i] = gpuPrimitive{
			MeshID:     p.MeshID,
			Shape:      int32(p.Shape),
			Size:       p.Size,
			Position:   p.Position,
			Blend:      p.Blend,
			Smoothness: p.Smoothness,
		}
	}
	return Sync(m, BufferPrimitives, packed, PrimitiveStrideExtended)
}
