package tracer

import (
	"fmt"

	"github.com/achilleasa/gpurt/tracer/device"
)

// Kernel parameter and buffer names shared by the tracing kernels.
const (
	ParamSeed              = "_Seed"
	ParamCameraToWorld     = "_CameraToWorld"
	ParamInverseProjection = "_CameraInverseProjection"
	ParamSkybox            = "_SkyboxTexture"
	ParamDirectionalLight  = "_DirectionalLight"
	ParamPixelOffset       = "_PixelOffset"
	ParamTime              = "_Time"
	ParamOperation         = "_Operation"
	ParamResult            = "Result"

	ParamPlanetTexture              = "_PlanetTexture"
	ParamPlanetHeightTexture        = "_PlanetHeightTexture"
	ParamPlanetNormalTexture        = "_PlanetNormalTexture"
	ParamPlanetaryRingTexture       = "_PlanetaryRingTexture"
	ParamPlanetaryRingHeightTexture = "_PlanetaryRingHeightTexture"
	ParamPlanetaryRingNormalTexture = "_PlanetaryRingNormalTexture"

	BufferSpheres     = "_Spheres"
	BufferMeshObjects = "_MeshObjects"
	BufferVertices    = "_Vertices"
	BufferIndices     = "_Indices"
	BufferPrimitives  = "Meshes"
	ParamPrimitiveCnt = "MeshCount"
)

// TextureParams lists the sampler parameters the stock kernels declare.
var TextureParams = []string{
	ParamSkybox,
	ParamPlanetTexture,
	ParamPlanetHeightTexture,
	ParamPlanetNormalTexture,
	ParamPlanetaryRingTexture,
	ParamPlanetaryRingHeightTexture,
	ParamPlanetaryRingNormalTexture,
}

// SetParams binds alternating name/value pairs to a kernel.
func SetParams(k device.Kernel, pairs ...interface{}) error {
	if len(pairs)%2 != 0 {
		return fmt.Errorf("tracer: odd number of parameter arguments (%d)", len(pairs))
	}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return fmt.Errorf("tracer: parameter name must be a string; got %T", pairs[i])
		}
		if err := k.SetParam(name, pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}
