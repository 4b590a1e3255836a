package types

import "github.com/go-gl/mathgl/mgl32"

// Quat is a rotation quaternion backed by mgl32.
type Quat mgl32.Quat

// Create identity quaternion.
func QuatIdent() Quat {
	return Quat(mgl32.QuatIdent())
}

// Create a quaternion from an axis vector and an angle in radians.
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	return Quat(mgl32.QuatRotate(angle, mgl32.Vec3(axis).Normalize()))
}

// QuatFromEuler builds a rotation from pitch (X), yaw (Y) and roll (Z)
// angles in degrees, applied in yaw, pitch, roll order.
func QuatFromEuler(euler Vec3) Quat {
	return Quat(mgl32.AnglesToQuat(
		mgl32.DegToRad(euler[1]),
		mgl32.DegToRad(euler[0]),
		mgl32.DegToRad(euler[2]),
		mgl32.YXZ,
	))
}

// Multiply two quaternions.
func (q Quat) Mul(q2 Quat) Quat {
	return Quat(mgl32.Quat(q).Mul(mgl32.Quat(q2)))
}

// Rotate a vector by this quaternion.
func (q Quat) Rotate(v Vec3) Vec3 {
	return Vec3(mgl32.Quat(q).Rotate(mgl32.Vec3(v)))
}

// Normalize the quaternion.
func (q Quat) Normalize() Quat {
	return Quat(mgl32.Quat(q).Normalize())
}

// Convert to a rotation matrix.
func (q Quat) Mat4() Mat4 {
	return Mat4(mgl32.Quat(q).Mat4())
}
