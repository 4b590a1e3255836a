package scene

import "github.com/achilleasa/gpurt/types"

const (
	// Mouse drag deltas are divided by this value when panning.
	panDivisor float32 = 20

	// Degrees of rotation per pixel of mouse drag.
	rotateSensitivity float32 = 0.25

	// World units moved per scroll tick.
	zoomSpeed float32 = 15

	minCameraY float32 = -5
	maxCameraY float32 = 300
)

// CameraState is the per-frame camera input consumed by the renderer.
type CameraState struct {
	CameraToWorld     types.Mat4
	InverseProjection types.Mat4
	Position          types.Vec3
}

// Camera is a free-look camera driven by mouse input. Euler angles are
// stored in degrees as (pitch, yaw, roll).
type Camera struct {
	Position types.Vec3
	Euler    types.Vec3

	FOV    float32
	Near   float32
	Far    float32
	Aspect float32
}

// NewCamera creates a camera overlooking the sphere field.
func NewCamera(fov, aspect float32) *Camera {
	return &Camera{
		Position: types.XYZ(0, 60, -160),
		Euler:    types.XYZ(20, 0, 0),
		FOV:      fov,
		Near:     0.3,
		Far:      1000,
		Aspect:   aspect,
	}
}

func (c *Camera) orientation() types.Quat {
	return types.QuatFromEuler(c.Euler)
}

// Forward returns the world space viewing direction.
func (c *Camera) Forward() types.Vec3 {
	return c.orientation().Rotate(types.XYZ(0, 0, 1))
}

// Pan translates the camera in its own right/up plane.
func (c *Camera) Pan(dx, dy float32) {
	q := c.orientation()
	right := q.Rotate(types.XYZ(1, 0, 0))
	up := q.Rotate(types.XYZ(0, 1, 0))
	c.Position = c.Position.Sub(right.Mul(dx / panDivisor)).Add(up.Mul(dy / panDivisor))
	c.clampHeight()
}

// Rotate adjusts yaw and pitch from a mouse drag delta in pixels.
func (c *Camera) Rotate(dx, dy float32) {
	c.Euler[1] += dx * rotateSensitivity
	c.Euler[0] = types.Clamp(c.Euler[0]+dy*rotateSensitivity, -89, 89)
}

// Zoom moves the camera along its viewing direction.
func (c *Camera) Zoom(scroll float32) {
	c.Position = c.Position.Add(c.Forward().Mul(scroll * zoomSpeed))
	c.clampHeight()
}

func (c *Camera) clampHeight() {
	c.Position[1] = types.Clamp(c.Position[1], minCameraY, maxCameraY)
}

// State returns the matrices the kernel needs. The camera-to-world matrix
// maps a view space that looks down -Z.
func (c *Camera) State() CameraState {
	toWorld := types.TRS(c.Position, c.orientation(), types.XYZ(1, 1, -1))
	return CameraState{
		CameraToWorld:     toWorld,
		InverseProjection: types.Perspective4(c.FOV, c.Aspect, c.Near, c.Far).Inv(),
		Position:          c.Position,
	}
}
