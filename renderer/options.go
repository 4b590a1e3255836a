package renderer

import (
	"fmt"
	"strings"

	"github.com/achilleasa/gpurt/tracer"
)

// Strategy selects the rendering technique.
type Strategy uint8

const (
	RayTrace Strategy = iota
	RayMarch
)

func (s Strategy) String() string {
	if s == RayMarch {
		return "raymarch"
	}
	return "raytrace"
}

// ParseStrategy maps "raytrace" or "raymarch" to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "raytrace":
		return RayTrace, nil
	case "raymarch":
		return RayMarch, nil
	}
	return RayTrace, fmt.Errorf("renderer: unknown strategy %q", name)
}

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Rendering technique and GPU entity layout.
	Strategy Strategy
	Layout   tracer.Layout

	// Seed for the per-frame jitter and kernel seed stream.
	Seed uint64

	// Re-sort spheres back to front when the camera moves.
	SortSpheresByDistance bool
}

// DefaultOptions returns options for an 800x600 ray traced frame.
func DefaultOptions() Options {
	return Options{
		FrameW:                800,
		FrameH:                600,
		Strategy:              RayTrace,
		Layout:                tracer.LayoutExtended,
		Seed:                  1,
		SortSpheresByDistance: true,
	}
}
