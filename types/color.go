package types

import "github.com/chewxy/math32"

// HSVToRGB converts a hue/saturation/value triple to linear RGB. Hue and
// saturation are in [0, 1]; value is not clamped so HDR colors can be
// produced by passing values above 1.
func HSVToRGB(h, s, v float32) Vec3 {
	if s <= 0 {
		return Splat(v)
	}

	h = (h - math32.Floor(h)) * 6
	sector := int(h)
	f := h - float32(sector)
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))

	switch sector {
	case 0:
		return Vec3{v, t, p}
	case 1:
		return Vec3{q, v, p}
	case 2:
		return Vec3{p, v, t}
	case 3:
		return Vec3{p, q, v}
	case 4:
		return Vec3{t, p, v}
	default:
		return Vec3{v, p, q}
	}
}
