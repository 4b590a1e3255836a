// Package reader loads scene configurations from TOML or YAML files and
// resolves the meshes they reference.
package reader

import (
	"errors"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/achilleasa/gpurt/asset"
	"github.com/achilleasa/gpurt/asset/mesh"
	"github.com/achilleasa/gpurt/log"
	"github.com/achilleasa/gpurt/scene"
)

var ErrUnsupportedFormat = errors.New("reader: unsupported scene config format")

var logger = log.New("scene reader")

// ReadConfig reads the scene configuration stored at location. The format
// is selected by extension: .toml, .yaml or .yml. Settings missing from
// the file keep their default values; omitting the mesh or primitive list
// selects the default list.
func ReadConfig(location string) (*scene.Config, error) {
	res, err := asset.NewResource(location, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return Read(res)
}

// Read decodes a scene configuration from a resource and loads the obj
// files its meshes reference relative to it.
func Read(res *asset.Resource) (*scene.Config, error) {
	cfg := scene.DefaultConfig()
	cfg.Meshes = nil
	cfg.Primitives = nil

	if err := decode(res, cfg); err != nil {
		return nil, err
	}

	if cfg.Meshes == nil {
		cfg.Meshes = scene.DefaultMeshes()
	}
	if cfg.Primitives == nil {
		cfg.Primitives = scene.DefaultPrimitives()
	}

	if err := resolveMeshes(cfg, res); err != nil {
		return nil, err
	}
	if err := resolveTextures(cfg, res); err != nil {
		return nil, err
	}

	logger.Noticef(`read scene config from "%s": %d spheres, %d meshes, %d primitives`, res.Path(), cfg.Spheres.Count, len(cfg.Meshes), len(cfg.Primitives))
	return cfg, nil
}

func decode(res *asset.Resource, cfg *scene.Config) error {
	data, err := io.ReadAll(res)
	if err != nil {
		return fmt.Errorf("reader: could not read %s: %w", res.Path(), err)
	}

	switch res.Ext() {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, res.Path())
	}
	if err != nil {
		return fmt.Errorf("reader: could not parse %s: %w", res.Path(), err)
	}
	return nil
}

// resolveTextures rewrites texture locations relative to the config file.
// The images themselves are decoded by whoever binds them.
func resolveTextures(cfg *scene.Config, relTo *asset.Resource) error {
	for param, location := range cfg.Textures {
		resolved, err := asset.Resolve(location, relTo)
		if err != nil {
			return fmt.Errorf("reader: invalid location for texture %s: %w", param, err)
		}
		cfg.Textures[param] = resolved
	}
	return nil
}

// resolveMeshes loads the obj file behind every mesh spec whose source is
// not a built-in mesh. Mesh files referenced more than once are parsed
// once.
func resolveMeshes(cfg *scene.Config, relTo *asset.Resource) error {
	loaded := make(map[string]*scene.MeshData)
	for i := range cfg.Meshes {
		spec := &cfg.Meshes[i]
		if spec.Source == "" || spec.Source == scene.MeshSourceCube {
			continue
		}

		data, exists := loaded[spec.Source]
		if !exists {
			var err error
			if data, err = mesh.LoadFile(spec.Source, spec.Source, relTo); err != nil {
				return fmt.Errorf("reader: could not load mesh %q: %w", spec.Name, err)
			}
			loaded[spec.Source] = data
		}
		spec.Data = data
	}
	return nil
}
