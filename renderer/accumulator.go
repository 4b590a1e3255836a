package renderer

import (
	"fmt"

	"github.com/achilleasa/gpurt/tracer/device"
)

// Names of the render target pair.
const (
	TargetName    = "Target"
	ConvergedName = "Converged"
)

type AccumState uint8

const (
	Dirty AccumState = iota
	Idle
)

func (s AccumState) String() string {
	if s == Idle {
		return "idle"
	}
	return "dirty"
}

// Accumulator tracks progressive sample accumulation and owns the render
// target pair. Any invalidation moves it to Dirty; resolving a Dirty
// accumulator restarts at sample 0.
type Accumulator struct {
	state       AccumState
	sampleIndex uint32

	target    device.Target
	converged device.Target
}

// State returns the current state.
func (a *Accumulator) State() AccumState {
	return a.state
}

// SampleIndex returns the number of samples composited since the last
// reset.
func (a *Accumulator) SampleIndex() uint32 {
	return a.sampleIndex
}

// Targets returns the raw and converged targets; both are nil until the
// first successful Resolve.
func (a *Accumulator) Targets() (target, converged device.Target) {
	return a.target, a.converged
}

// Invalidate discards accumulated samples.
func (a *Accumulator) Invalidate() {
	a.state = Dirty
}

// Resolve makes sure both targets exist with the given size, reallocating
// them on mismatch, and leaves the accumulator Idle. It returns true if
// the targets were (re)allocated. On failure no targets are held and the
// accumulator stays Dirty.
func (a *Accumulator) Resolve(dev device.Device, width, height int) (bool, error) {
	recreated := false
	if !a.targetsMatch(width, height) {
		a.Release()

		var err error
		if a.target, err = dev.AllocateTarget(TargetName, width, height); err != nil {
			a.Release()
			return false, fmt.Errorf("%w: %s target %dx%d: %v", ErrAllocation, TargetName, width, height, err)
		}
		if a.converged, err = dev.AllocateTarget(ConvergedName, width, height); err != nil {
			a.Release()
			return false, fmt.Errorf("%w: %s target %dx%d: %v", ErrAllocation, ConvergedName, width, height, err)
		}
		recreated = true
	}

	if a.state == Dirty {
		a.state = Idle
		a.sampleIndex = 0
	}
	return recreated, nil
}

// Advance records a composited sample.
func (a *Accumulator) Advance() {
	if a.state == Idle {
		a.sampleIndex++
	}
}

// Release frees both targets and marks the accumulator Dirty.
func (a *Accumulator) Release() {
	if a.target != nil {
		a.target.Release()
		a.target = nil
	}
	if a.converged != nil {
		a.converged.Release()
		a.converged = nil
	}
	a.state = Dirty
}

func (a *Accumulator) targetsMatch(width, height int) bool {
	return a.target != nil && a.converged != nil &&
		a.target.Width() == width && a.target.Height() == height &&
		a.converged.Width() == width && a.converged.Height() == height
}
