package scene

import "github.com/achilleasa/gpurt/types"

// Sphere is an analytic sphere resting on the ground plane. Fields not used
// by a particular GPU layout are simply left out when the sphere is packed.
type Sphere struct {
	Position   types.Vec3
	Radius     float32
	Albedo     types.Vec3
	Specular   types.Vec3
	Emission   types.Vec3
	Smoothness float32
}

// Overlaps returns true if the two spheres intersect.
func (s Sphere) Overlaps(other Sphere) bool {
	minDist := s.Radius + other.Radius
	return s.Position.Sub(other.Position).LenSqr() < minDist*minDist
}

// IsEmissive returns true if the sphere emits light.
func (s Sphere) IsEmissive() bool {
	return s.Emission != (types.Vec3{})
}

// Material describes the surface response of a mesh instance.
type Material struct {
	Albedo   types.Vec3 `toml:"albedo" yaml:"albedo"`
	Specular types.Vec3 `toml:"specular" yaml:"specular"`
	Emission types.Vec3 `toml:"emission" yaml:"emission"`
}

// MeshData holds raw, locally indexed triangle geometry.
type MeshData struct {
	Name     string
	Vertices []types.Vec3
	Indices  []uint32
}

// MeshInstance places a MeshData in the world.
type MeshInstance struct {
	Mesh         *MeshData
	LocalToWorld types.Mat4
	Material     Material
}

// MeshDescriptor references a contiguous range of the flattened index
// buffer. Indices in that range address the flattened vertex buffer
// directly.
type MeshDescriptor struct {
	LocalToWorld types.Mat4
	IndexOffset  uint32
	IndexCount   uint32
	Albedo       types.Vec3
	Specular     types.Vec3
	Emission     types.Vec3
}

// Shape selects the distance function a ray-march primitive uses.
type Shape int32

const (
	ShapeSphere Shape = iota
	ShapeCube
	ShapeQuad
	ShapeRing
)

func (s Shape) String() string {
	switch s {
	case ShapeSphere:
		return "sphere"
	case ShapeCube:
		return "cube"
	case ShapeQuad:
		return "quad"
	case ShapeRing:
		return "ring"
	}
	return "unknown"
}

// Primitive is an implicit surface evaluated by the ray marcher.
type Primitive struct {
	MeshID   int32      `toml:"id" yaml:"id"`
	Shape    Shape      `toml:"shape" yaml:"shape"`
	Size     types.Vec3 `toml:"size" yaml:"size"`
	Position types.Vec3 `toml:"position" yaml:"position"`

	// Only packed by the extended marching layout.
	Blend      float32 `toml:"blend" yaml:"blend"`
	Smoothness float32 `toml:"smoothness" yaml:"smoothness"`
}

// DirectionalLight is packed as (direction.xyz, intensity) for the kernel.
type DirectionalLight struct {
	Direction types.Vec3 `toml:"direction" yaml:"direction"`
	Intensity float32    `toml:"intensity" yaml:"intensity"`
}

// Packed returns the light as a 4 component vector.
func (l DirectionalLight) Packed() types.Vec4 {
	return l.Direction.Normalize().Vec4(l.Intensity)
}
