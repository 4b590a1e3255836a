package renderer

import "time"

type FrameStats struct {
	// The tracer id.
	Tracer string

	// Sample index the frame was composited with.
	SampleIndex uint32

	// Dispatch grid.
	Grid [3]uint32

	// Time spent applying queued scene changes.
	SyncTime time.Duration

	// Time spent binding parameters and dispatching.
	DispatchTime time.Duration

	// Time spent compositing and presenting.
	CompositeTime time.Duration

	// Bytes uploaded to the device during this frame.
	UploadedBytes int

	// Total render time for entire frame.
	RenderTime time.Duration
}

// FrameResult is returned by Renderer.Frame.
type FrameResult struct {
	// True if the frame was not composited; the accumulator did not
	// advance.
	Skipped bool

	// True if accumulation restarted with this frame.
	Reset bool

	Stats FrameStats
}

// RunStats aggregates the results of consecutive frames.
type RunStats struct {
	Frames  int
	Skipped int

	// Sums over the rendered frames.
	SyncTime      time.Duration
	DispatchTime  time.Duration
	CompositeTime time.Duration
	RenderTime    time.Duration
	UploadedBytes int

	// Stats of the last rendered frame.
	Last FrameStats
}

// Add records a frame result.
func (rs *RunStats) Add(res FrameResult) {
	if res.Skipped {
		rs.Skipped++
		return
	}
	rs.Frames++
	rs.SyncTime += res.Stats.SyncTime
	rs.DispatchTime += res.Stats.DispatchTime
	rs.CompositeTime += res.Stats.CompositeTime
	rs.RenderTime += res.Stats.RenderTime
	rs.UploadedBytes += res.Stats.UploadedBytes
	rs.Last = res.Stats
}

// Average returns the mean of a summed duration over the rendered frames.
func (rs *RunStats) Average(total time.Duration) time.Duration {
	if rs.Frames == 0 {
		return 0
	}
	return total / time.Duration(rs.Frames)
}
