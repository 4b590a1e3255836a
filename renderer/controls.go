package renderer

import (
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/types"
)

// Mouse buttons tracked by the free-look controller.
const (
	leftMouseButton = iota
	rightMouseButton
)

// controller maps pointer input to camera motion: dragging with the left
// button pans, dragging with the right button rotates and scrolling zooms.
type controller struct {
	camera *scene.Camera

	lastCursorPos types.Vec2
	mousePressed  [2]bool
}

func newController(camera *scene.Camera) *controller {
	return &controller{camera: camera}
}

// press records a button state change at the given cursor position.
func (c *controller) press(button int, pressed bool, cursor types.Vec2) {
	if button != leftMouseButton && button != rightMouseButton {
		return
	}
	c.mousePressed[button] = pressed
	c.lastCursorPos = cursor
}

// move updates the camera for a cursor move and reports whether the camera
// changed.
func (c *controller) move(cursor types.Vec2) bool {
	delta := cursor.Sub(c.lastCursorPos)
	c.lastCursorPos = cursor

	switch {
	case c.mousePressed[leftMouseButton]:
		c.camera.Pan(delta[0], delta[1])
	case c.mousePressed[rightMouseButton]:
		c.camera.Rotate(delta[0], delta[1])
	default:
		return false
	}
	return delta[0] != 0 || delta[1] != 0
}

// scroll zooms the camera.
func (c *controller) scroll(amount float32) bool {
	if amount == 0 {
		return false
	}
	c.camera.Zoom(amount)
	return true
}

// resize updates the camera aspect ratio.
func (c *controller) resize(width, height int) {
	if width > 0 && height > 0 {
		c.camera.Aspect = float32(width) / float32(height)
	}
}
