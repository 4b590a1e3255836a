package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/achilleasa/gpurt/asset/texture"
	"github.com/achilleasa/gpurt/renderer"
	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/scene/reader"
	"github.com/achilleasa/gpurt/tracer"
	"github.com/achilleasa/gpurt/tracer/device/gl"
	"github.com/achilleasa/gpurt/tracer/raymarch"
	"github.com/achilleasa/gpurt/tracer/raytrace"
)

// Render opens a window and renders the configured scene progressively.
func Render(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	opts, err := renderOptions(ctx)
	if err != nil {
		return err
	}
	if ctx.String("shader") == "" {
		return errors.New("missing kernel source; use --shader")
	}

	cfg, err := loadSceneConfig(ctx.String("config"))
	if err != nil {
		return err
	}

	dev, err := gl.Open(gl.Options{
		Width:  int(opts.FrameW),
		Height: int(opts.FrameH),
		Title:  fmt.Sprintf("gpurt - %s", opts.Strategy),
		Hidden: ctx.Bool("headless"),
		VSync:  ctx.Bool("vsync"),
	})
	if err != nil {
		return err
	}
	defer dev.Close()

	kernelName := raytrace.KernelName
	if opts.Strategy == renderer.RayMarch {
		kernelName = raymarch.KernelName
	}
	if err = dev.LoadKernelFile(kernelName, ctx.String("shader")); err != nil {
		return err
	}
	if path := ctx.String("composite-shader"); path != "" {
		if err = dev.LoadKernelFile(gl.CompositeKernelName, path); err != nil {
			return err
		}
	}

	r, err := renderer.Init(dev, renderer.NewTracer(opts), opts, cfg)
	if err != nil {
		return err
	}
	defer r.Close()

	if err = bindTextures(ctx, r, cfg); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if path := ctx.String("config"); path != "" && ctx.Bool("watch") {
		go func() {
			err := reader.Watch(runCtx, path, func(cfg *scene.Config) {
				if err := r.Reconfigure(cfg); err != nil {
					logger.Errorf("could not apply scene config: %v", err)
					return
				}
				if err := bindTextures(ctx, r, cfg); err != nil {
					logger.Errorf("could not reload scene textures: %v", err)
				}
			})
			if err != nil {
				logger.Errorf("scene config watcher stopped: %v", err)
			}
		}()
	}

	camera := scene.NewCamera(float32(ctx.Float64("fov")), float32(opts.FrameW)/float32(opts.FrameH))
	stats, err := renderer.NewInteractive(r, dev.Window(), camera).Run(runCtx, ctx.Int("frames"))
	displayFrameStats(stats)
	return err
}

func renderOptions(ctx *cli.Context) (renderer.Options, error) {
	opts := renderer.DefaultOptions()
	opts.FrameW = uint32(ctx.Int("width"))
	opts.FrameH = uint32(ctx.Int("height"))
	opts.Seed = uint64(ctx.Int64("seed"))
	opts.SortSpheresByDistance = !ctx.Bool("no-sort")

	var err error
	if opts.Strategy, err = renderer.ParseStrategy(ctx.String("strategy")); err != nil {
		return opts, err
	}
	if opts.Layout, err = tracer.ParseLayout(ctx.String("layout")); err != nil {
		return opts, err
	}
	if opts.FrameW == 0 || opts.FrameH == 0 {
		return opts, renderer.ErrEmptyViewport
	}
	return opts, nil
}

// bindTextures loads the textures named by the scene config and the
// texture flags and hands them to the renderer. Textures that are no longer
// named are dropped.
func bindTextures(ctx *cli.Context, r *renderer.Renderer, cfg *scene.Config) error {
	locations, err := textureLocations(ctx, cfg)
	if err != nil {
		return err
	}
	bindings, err := texture.LoadBindings(locations)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		logger.Infof("binding %dx%d texture to %s", b.Width, b.Height, b.Param)
	}
	return r.SetTextures(bindings)
}

// textureLocations merges the texture table of the scene config with the
// --skybox and --texture flags. Flags override the config.
func textureLocations(ctx *cli.Context, cfg *scene.Config) (map[string]string, error) {
	locations := make(map[string]string, len(cfg.Textures)+1)
	for param, location := range cfg.Textures {
		locations[param] = location
	}
	if path := ctx.String("skybox"); path != "" {
		locations[tracer.ParamSkybox] = path
	}
	for _, arg := range ctx.StringSlice("texture") {
		param, path, ok := strings.Cut(arg, "=")
		if !ok || param == "" || path == "" {
			return nil, fmt.Errorf("invalid texture binding %q; expected param=path", arg)
		}
		locations[param] = path
	}
	return locations, nil
}

// loadSceneConfig reads the scene config at path or returns the default
// config when path is empty.
func loadSceneConfig(path string) (*scene.Config, error) {
	if path == "" {
		logger.Notice("no scene config specified; using the default scene")
		return scene.DefaultConfig(), nil
	}
	return reader.ReadConfig(path)
}

func displayFrameStats(stats renderer.RunStats) {
	logger.Noticef("frame statistics\n%s", frameStatsTable(stats))
}

func frameStatsTable(stats renderer.RunStats) string {
	samples := uint32(0)
	if stats.Frames > 0 {
		samples = stats.Last.SampleIndex + 1
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Frames", "Skipped", "Samples", "Avg sync", "Avg dispatch", "Avg composite", "Avg frame"})
	table.Append([]string{
		stats.Last.Tracer,
		fmt.Sprintf("%d", stats.Frames),
		fmt.Sprintf("%d", stats.Skipped),
		fmt.Sprintf("%d", samples),
		stats.Average(stats.SyncTime).String(),
		stats.Average(stats.DispatchTime).String(),
		stats.Average(stats.CompositeTime).String(),
		stats.Average(stats.RenderTime).String(),
	})
	table.SetFooter([]string{"", "", "", "", "", "", "TOTAL", stats.RenderTime.String()})
	table.Render()
	return buf.String()
}
