package loaders

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/lumen/engine/scene"
)

// SceneLoader turns glTF files into loaded scenes on Builder.
type SceneLoader struct {
	Builder SceneBuilder
}

func (sl *SceneLoader) Load(path string, params interface{}) (*Resource, error) {
	if sl.Builder == nil {
		return nil, errors.New("scene loader has no builder")
	}
	s, err := LoadGLTF(sl.Builder, path)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FullPath: path,
		Type:     ResourceTypeScene,
		Data:     s,
	}, nil
}

// Unload releases the GPU resources of a scene resource.
func (sl *SceneLoader) Unload(r *Resource) error {
	s, ok := r.Data.(*scene.LoadedScene)
	if !ok {
		return errors.Newf("resource %s is not a scene", r.Name)
	}
	s.ClearAll()
	r.Data = nil
	return nil
}
