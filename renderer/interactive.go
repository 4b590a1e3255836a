package renderer

import (
	"context"
	"errors"
	"time"

	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/types"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Number of frames between two progress log entries.
const statsLogInterval = 120

// Interactive renders into a glfw window until it is closed. The mouse
// drives the camera and the space key cycles the ray-march operation.
type Interactive struct {
	renderer *Renderer
	window   *glfw.Window
	camera   *scene.Camera
	controls *controller
}

// NewInteractive attaches input callbacks to window. The window must own
// the GL context of the device r renders on.
func NewInteractive(r *Renderer, window *glfw.Window, camera *scene.Camera) *Interactive {
	in := &Interactive{
		renderer: r,
		window:   window,
		camera:   camera,
		controls: newController(camera),
	}

	window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
	window.SetKeyCallback(in.onKeyEvent)
	window.SetMouseButtonCallback(in.onMouseEvent)
	window.SetCursorPosCallback(in.onCursorPosEvent)
	window.SetScrollCallback(in.onScrollEvent)
	window.SetFramebufferSizeCallback(in.onResizeEvent)
	return in
}

// Run renders frames until the window is closed, ctx is cancelled or
// maxFrames frames were attempted. A maxFrames value of 0 renders until the
// window closes.
func (in *Interactive) Run(ctx context.Context, maxFrames int) (RunStats, error) {
	var stats RunStats
	logger := in.renderer.logger
	start := time.Now()

	for frame := 0; maxFrames == 0 || frame < maxFrames; frame++ {
		if in.window.ShouldClose() {
			break
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		glfw.PollEvents()

		res, err := in.renderer.Frame(in.camera.State())
		if errors.Is(err, ErrClosed) {
			return stats, err
		}
		stats.Add(res)
		if res.Skipped {
			continue
		}
		if stats.Frames%statsLogInterval == 0 {
			fps := float64(stats.Frames) / time.Since(start).Seconds()
			logger.Infof("frame %d: sample %d, %.1f fps, last frame %s", stats.Frames, res.Stats.SampleIndex, fps, res.Stats.RenderTime)
		}
	}
	return stats, nil
}

func (in *Interactive) onKeyEvent(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action != glfw.Press {
		return
	}

	switch key {
	case glfw.KeyEscape:
		w.SetShouldClose(true)
	case glfw.KeySpace:
		op, err := in.renderer.CycleOperation()
		if err != nil {
			in.renderer.logger.Warningf("could not change operation: %v", err)
			return
		}
		in.renderer.logger.Infof("operation set to %d", op)
	}
}

func (in *Interactive) onMouseEvent(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mod glfw.ModifierKey) {
	var buttonIndex int
	switch button {
	case glfw.MouseButtonLeft:
		buttonIndex = leftMouseButton
	case glfw.MouseButtonRight:
		buttonIndex = rightMouseButton
	default:
		return
	}

	xPos, yPos := w.GetCursorPos()
	in.controls.press(buttonIndex, action == glfw.Press, types.XY(float32(xPos), float32(yPos)))
}

func (in *Interactive) onCursorPosEvent(w *glfw.Window, xPos, yPos float64) {
	in.controls.move(types.XY(float32(xPos), float32(yPos)))
}

func (in *Interactive) onScrollEvent(w *glfw.Window, xOff, yOff float64) {
	in.controls.scroll(float32(yOff))
}

func (in *Interactive) onResizeEvent(w *glfw.Window, width, height int) {
	if width == 0 || height == 0 {
		// Minimized.
		return
	}
	in.controls.resize(width, height)
	if err := in.renderer.Resize(uint32(width), uint32(height)); err != nil {
		in.renderer.logger.Warningf("could not resize viewport: %v", err)
	}
}
