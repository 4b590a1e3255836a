package cmd

import (
	"github.com/urfave/cli"

	"github.com/achilleasa/gpurt/scene"
	"github.com/achilleasa/gpurt/scene/compiler"
)

// ShowSceneInfo builds the scene described by the config passed as an
// argument (or the default scene) and displays its statistics without
// touching the GPU.
func ShowSceneInfo(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	cfg, err := loadSceneConfig(ctx.Args().First())
	if err != nil {
		return err
	}
	if ctx.IsSet("seed") {
		cfg.Spheres.Seed = ctx.Int64("seed")
	}

	sc := scene.Build(cfg)
	geometry := compiler.Flatten(sc.Meshes)
	if err = geometry.Validate(); err != nil {
		return err
	}

	logger.Noticef("scene information:\n%s", sc.Stats())
	logger.Noticef("flattened geometry:\n%s", geometry.Stats())
	return nil
}
