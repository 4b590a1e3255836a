package types

import "github.com/go-gl/mathgl/mgl32"

// A column-major 4x4 matrix. Its memory layout matches what GPU kernels
// expect for float4x4 parameters.
type Mat4 mgl32.Mat4

// Ident4 returns the identity matrix.
func Ident4() Mat4 {
	return Mat4(mgl32.Ident4())
}

// Translate4 returns a translation matrix.
func Translate4(t Vec3) Mat4 {
	return Mat4(mgl32.Translate3D(t[0], t[1], t[2]))
}

// Scale4 returns a non-uniform scale matrix.
func Scale4(s Vec3) Mat4 {
	return Mat4(mgl32.Scale3D(s[0], s[1], s[2]))
}

// TRS composes translation, rotation and scale in that order so that
// scale is applied first.
func TRS(t Vec3, r Quat, s Vec3) Mat4 {
	return Translate4(t).Mul4(r.Mat4()).Mul4(Scale4(s))
}

// Perspective4 builds a perspective projection; fovY is in degrees.
func Perspective4(fovY, aspect, near, far float32) Mat4 {
	return Mat4(mgl32.Perspective(mgl32.DegToRad(fovY), aspect, near, far))
}

// LookAtV builds a view matrix.
func LookAtV(eye, center, up Vec3) Mat4 {
	return Mat4(mgl32.LookAtV(mgl32.Vec3(eye), mgl32.Vec3(center), mgl32.Vec3(up)))
}

// Multiply two matrices.
func (m Mat4) Mul4(m2 Mat4) Mat4 {
	return Mat4(mgl32.Mat4(m).Mul4(mgl32.Mat4(m2)))
}

// Multiply with a 4 component vector.
func (m Mat4) Mul4x1(v Vec4) Vec4 {
	return Vec4(mgl32.Mat4(m).Mul4x1(mgl32.Vec4(v)))
}

// Transform a point (w = 1).
func (m Mat4) TransformPoint(p Vec3) Vec3 {
	return m.Mul4x1(p.Vec4(1)).Vec3()
}

// Inverse of the matrix. Singular matrices invert to the zero matrix.
func (m Mat4) Inv() Mat4 {
	return Mat4(mgl32.Mat4(m).Inv())
}

// Translation component of an affine transform.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

// ApproxEqual reports whether all elements are within floatCmpEpsilon.
func (m Mat4) ApproxEqual(m2 Mat4) bool {
	return mgl32.Mat4(m).ApproxEqualThreshold(mgl32.Mat4(m2), floatCmpEpsilon)
}
