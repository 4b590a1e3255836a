package scene

import (
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/types"
)

var logger = log.New("scene builder")

// Scene is the CPU-side entity set produced by Build.
type Scene struct {
	Spheres    []Sphere
	Meshes     []MeshInstance
	Primitives []Primitive
	Light      DirectionalLight

	// Number of sphere candidates discarded because they overlapped.
	RejectedSpheres int
}

// Build assembles a scene from its configuration. It never fails;
// degenerate settings produce an empty or near-empty scene.
func Build(cfg *Config) *Scene {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	sc := &Scene{
		Primitives: append([]Primitive(nil), cfg.Primitives...),
		Light:      cfg.Light,
	}
	sc.Spheres, sc.RejectedSpheres = PlaceSpheres(cfg.Spheres)
	sc.Meshes = instantiateMeshes(cfg.Meshes)

	logger.Infof("built scene: %d spheres (%d rejected), %d meshes, %d primitives", len(sc.Spheres), sc.RejectedSpheres, len(sc.Meshes), len(sc.Primitives))
	return sc
}

// PlaceSpheres generates non-overlapping spheres inside a disk on the
// ground plane using rejection sampling. A rejected candidate is dropped
// rather than redrawn, so fewer than cfg.Count spheres may be returned.
// The output depends only on cfg.
func PlaceSpheres(cfg SphereConfig) ([]Sphere, int) {
	cfg = cfg.normalize()

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15))
	spheres := make([]Sphere, 0, cfg.Count)
	rejected := 0

	for i := 0; i < cfg.Count; i++ {
		radius := types.Lerp(cfg.RadiusMin, cfg.RadiusMax, rng.Float32())
		pos2d := pointInDisk(rng, cfg.PlacementRadius)
		candidate := Sphere{
			Radius:   radius,
			Position: types.XYZ(pos2d[0], radius, pos2d[1]),
		}

		if overlapsAny(candidate, spheres) {
			rejected++
			continue
		}

		color := types.HSVToRGB(rng.Float32(), rng.Float32(), rng.Float32())
		if rng.Float32() < cfg.EmitProbability {
			candidate.Emission = types.HSVToRGB(
				rng.Float32(),
				rng.Float32(),
				types.Lerp(cfg.EmissionMin, cfg.EmissionMax, rng.Float32()),
			)
		} else {
			if rng.Float32() < cfg.MetalProbability {
				candidate.Specular = color
			} else {
				candidate.Albedo = color
				candidate.Specular = types.Splat(cfg.DielectricSpecular)
			}
			candidate.Smoothness = rng.Float32()
		}

		spheres = append(spheres, candidate)
	}

	if rejected > 0 {
		logger.Debugf("sphere placement rejected %d of %d candidates", rejected, cfg.Count)
	}

	return spheres, rejected
}

// Uniformly sample a point inside a disk of the given radius.
func pointInDisk(rng *rand.Rand, radius float32) types.Vec2 {
	r := radius * math32.Sqrt(rng.Float32())
	theta := 2 * math32.Pi * rng.Float32()
	return types.XY(r*math32.Cos(theta), r*math32.Sin(theta))
}

func overlapsAny(candidate Sphere, placed []Sphere) bool {
	for _, other := range placed {
		if candidate.Overlaps(other) {
			return true
		}
	}
	return false
}

func instantiateMeshes(specs []MeshSpec) []MeshInstance {
	instances := make([]MeshInstance, 0, len(specs))
	for _, spec := range specs {
		data := spec.Data
		if data == nil {
			if spec.Source != "" && spec.Source != MeshSourceCube {
				logger.Warningf("skipping mesh %q: source %q was not loaded", spec.Name, spec.Source)
				continue
			}
			data = CubeMesh()
		}

		scale := spec.Scale
		if scale == (types.Vec3{}) {
			scale = types.Splat(1)
		}

		instances = append(instances, MeshInstance{
			Mesh:         data,
			LocalToWorld: types.TRS(spec.Position, types.QuatFromEuler(spec.Rotation), scale),
			Material:     spec.Material,
		})
	}
	return instances
}

// CubeMesh returns an axis aligned unit cube centered at the origin. Each
// face has its own four vertices.
func CubeMesh() *MeshData {
	faces := [6][3]types.Vec3{
		// normal, u, v with u x v == normal
		{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		{{-1, 0, 0}, {0, 0, 1}, {0, 1, 0}},
		{{0, 1, 0}, {0, 0, 1}, {1, 0, 0}},
		{{0, -1, 0}, {1, 0, 0}, {0, 0, 1}},
		{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}},
		{{0, 0, -1}, {0, 1, 0}, {1, 0, 0}},
	}

	mesh := &MeshData{
		Name:     MeshSourceCube,
		Vertices: make([]types.Vec3, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}

	for _, face := range faces {
		n, u, v := face[0].Mul(0.5), face[1].Mul(0.5), face[2].Mul(0.5)
		base := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices,
			n.Sub(u).Sub(v),
			n.Add(u).Sub(v),
			n.Add(u).Add(v),
			n.Sub(u).Add(v),
		)
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base, base+2, base+3)
	}

	return mesh
}
