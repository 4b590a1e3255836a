package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/achilleasa/gpurt/cmd"
	"github.com/urfave/cli"
)

func init() {
	// GL calls must be issued from the main thread.
	runtime.LockOSThread()
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "gpurt"
	app.Usage = "progressive GPU ray tracing and ray marching"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "log-level",
			Value: "notice",
			Usage: "minimum log level: debug, info, notice, warning or error",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render a scene in a window",
			Description: `
Build the scene described by a TOML or YAML config (or the default scene),
upload it to the GPU and progressively render it with the selected strategy.

Drag with the left mouse button to pan, with the right mouse button to rotate
and scroll to zoom. Space cycles the ray march operation and Esc quits.`,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "width",
					Value: 800,
					Usage: "frame width",
				},
				cli.IntFlag{
					Name:  "height",
					Value: 600,
					Usage: "frame height",
				},
				cli.StringFlag{
					Name:  "config, c",
					Usage: "scene config file (.toml, .yaml or .yml)",
				},
				cli.BoolFlag{
					Name:  "watch, w",
					Usage: "reload the scene config when it changes",
				},
				cli.StringFlag{
					Name:  "strategy, s",
					Value: "raytrace",
					Usage: "rendering strategy: raytrace or raymarch",
				},
				cli.StringFlag{
					Name:  "layout",
					Value: "extended",
					Usage: "GPU entity layout: basic or extended",
				},
				cli.StringFlag{
					Name:  "shader",
					Usage: "compute kernel source for the selected strategy",
				},
				cli.StringFlag{
					Name:  "composite-shader",
					Usage: "override the built-in composite kernel",
				},
				cli.StringFlag{
					Name:  "skybox",
					Usage: "skybox image (png, jpeg, gif, bmp, tiff or webp)",
				},
				cli.StringSliceFlag{
					Name:  "texture",
					Usage: "bind an image to a kernel sampler as param=path, e.g. _PlanetTexture=planet.png (repeatable)",
				},
				cli.Int64Flag{
					Name:  "seed",
					Value: 1,
					Usage: "seed for the per-frame jitter and kernel seed",
				},
				cli.IntFlag{
					Name:  "frames",
					Value: 0,
					Usage: "number of frames to render; 0 renders until the window is closed",
				},
				cli.Float64Flag{
					Name:  "fov",
					Value: 60,
					Usage: "vertical camera field of view in degrees",
				},
				cli.BoolFlag{
					Name:  "no-sort",
					Usage: "do not sort spheres by distance when the camera moves",
				},
				cli.BoolFlag{
					Name:  "headless",
					Usage: "render into a hidden window",
				},
				cli.BoolFlag{
					Name:  "vsync",
					Usage: "sync presentation to the display refresh rate",
				},
			},
			Action: cmd.Render,
		},
		{
			Name:      "scene",
			Usage:     "display statistics for a scene config",
			ArgsUsage: "[scene_config]",
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:  "seed",
					Usage: "override the sphere placement seed",
				},
			},
			Action: cmd.ShowSceneInfo,
		},
		{
			Name:   "device-info",
			Usage:  "display the compute limits of the GL device",
			Action: cmd.ShowDeviceInfo,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
