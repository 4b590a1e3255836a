package scene

import "github.com/achilleasa/gpurt/types"

// MeshSourceCube selects the built-in unit cube as a mesh source.
const MeshSourceCube = "cube"

// SphereConfig controls procedural sphere placement.
type SphereConfig struct {
	Seed            int64   `toml:"seed" yaml:"seed"`
	Count           int     `toml:"count" yaml:"count"`
	RadiusMin       float32 `toml:"radius_min" yaml:"radius_min"`
	RadiusMax       float32 `toml:"radius_max" yaml:"radius_max"`
	PlacementRadius float32 `toml:"placement_radius" yaml:"placement_radius"`

	EmitProbability    float32 `toml:"emit_probability" yaml:"emit_probability"`
	MetalProbability   float32 `toml:"metal_probability" yaml:"metal_probability"`
	DielectricSpecular float32 `toml:"dielectric_specular" yaml:"dielectric_specular"`
	EmissionMin        float32 `toml:"emission_min" yaml:"emission_min"`
	EmissionMax        float32 `toml:"emission_max" yaml:"emission_max"`
}

// MeshSpec describes a static mesh instance. Source is either
// MeshSourceCube or a path to a wavefront obj file; file sources are
// resolved into Data by the scene reader.
type MeshSpec struct {
	Name     string     `toml:"name" yaml:"name"`
	Source   string     `toml:"source" yaml:"source"`
	Position types.Vec3 `toml:"position" yaml:"position"`
	Rotation types.Vec3 `toml:"rotation" yaml:"rotation"`
	Scale    types.Vec3 `toml:"scale" yaml:"scale"`
	Material Material   `toml:"material" yaml:"material"`

	Data *MeshData `toml:"-" yaml:"-"`
}

// Config is the full CPU-side scene description.
type Config struct {
	Spheres    SphereConfig     `toml:"spheres" yaml:"spheres"`
	Meshes     []MeshSpec       `toml:"meshes" yaml:"meshes"`
	Primitives []Primitive      `toml:"primitives" yaml:"primitives"`
	Light      DirectionalLight `toml:"light" yaml:"light"`

	// Image locations keyed by the sampler parameter they are bound to.
	Textures map[string]string `toml:"textures" yaml:"textures"`
}

// DefaultSphereConfig returns the stock sphere placement parameters.
func DefaultSphereConfig() SphereConfig {
	return SphereConfig{
		Seed:               0,
		Count:              100,
		RadiusMin:          3,
		RadiusMax:          8,
		PlacementRadius:    100,
		EmitProbability:    0.15,
		MetalProbability:   0.5,
		DielectricSpecular: 0.04,
		EmissionMin:        3,
		EmissionMax:        8,
	}
}

// DefaultMeshes returns the stock static mesh set: a reflective cube with an
// emissive red slab underneath it.
func DefaultMeshes() []MeshSpec {
	return []MeshSpec{
		{
			Name:     "center cube",
			Source:   MeshSourceCube,
			Position: types.XYZ(0, 40, 0),
			Scale:    types.Splat(10),
			Material: Material{Albedo: types.Splat(0.8), Specular: types.Splat(1)},
		},
		{
			Name:     "glow slab",
			Source:   MeshSourceCube,
			Position: types.XYZ(0, 34, 0),
			Scale:    types.XYZ(20, 2, 20),
			Material: Material{Specular: types.Splat(1), Emission: types.XYZ(1, 0, 0)},
		},
	}
}

// DefaultPrimitives returns the stock ray-march scene: a planet with a ring
// and a moon.
func DefaultPrimitives() []Primitive {
	return []Primitive{
		{MeshID: 1, Shape: ShapeSphere, Size: types.Splat(3), Position: types.XYZ(0, 0, 3)},
		{MeshID: 2, Shape: ShapeRing, Size: types.XYZ(8, 2.5, 8), Position: types.XYZ(0, 0, 3)},
		{MeshID: 3, Shape: ShapeSphere, Size: types.Splat(1), Position: types.XYZ(0, 0, 3)},
	}
}

// DefaultLight returns a light tilted 50 degrees down from the horizon.
func DefaultLight() DirectionalLight {
	return DirectionalLight{
		Direction: types.QuatFromEuler(types.XYZ(50, -30, 0)).Rotate(types.XYZ(0, 0, 1)),
		Intensity: 1,
	}
}

// DefaultConfig returns a complete scene configuration.
func DefaultConfig() *Config {
	return &Config{
		Spheres:    DefaultSphereConfig(),
		Meshes:     DefaultMeshes(),
		Primitives: DefaultPrimitives(),
		Light:      DefaultLight(),
	}
}

// normalize repairs degenerate values so that building never fails. The
// result may describe an empty scene.
func (c SphereConfig) normalize() SphereConfig {
	if c.Count < 0 {
		c.Count = 0
	}
	if c.RadiusMin < 0 {
		c.RadiusMin = 0
	}
	if c.RadiusMax < c.RadiusMin || c.RadiusMax <= 0 {
		c.Count = 0
	}
	if c.PlacementRadius < 0 {
		c.PlacementRadius = 0
	}
	c.EmitProbability = types.Clamp(c.EmitProbability, 0, 1)
	c.MetalProbability = types.Clamp(c.MetalProbability, 0, 1)
	if c.EmissionMax < c.EmissionMin {
		c.EmissionMin, c.EmissionMax = c.EmissionMax, c.EmissionMin
	}
	return c
}
