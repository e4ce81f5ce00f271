package assets

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var minimalSPIRV = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

func newTestManager(t *testing.T) (*AssetManager, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "shaders"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "sky.comp.spv"), minimalSPIRV, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "sky.comp"), []byte("#version 450"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".cache", "old.spv"), minimalSPIRV, 0o644))

	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(dir))
	t.Cleanup(am.Shutdown)
	return am, dir
}

func TestInitializeIndexesKnownTypes(t *testing.T) {
	am, dir := newTestManager(t)

	info, ok := am.Lookup(filepath.Join(dir, "shaders", "sky.comp.spv"))
	require.True(t, ok)
	assert.Equal(t, loaders.ResourceTypeShader, info.Type)

	_, ok = am.Lookup(filepath.Join(dir, "shaders", "sky.comp"))
	assert.False(t, ok, "shader sources are not assets")
	_, ok = am.Lookup(filepath.Join(dir, ".cache", "old.spv"))
	assert.False(t, ok, "hidden directories are skipped")
	assert.Equal(t, 1, am.Count())
}

func TestLoadAssetDispatchesToLoader(t *testing.T) {
	am, dir := newTestManager(t)
	path := filepath.Join(dir, "shaders", "sky.comp.spv")

	res, err := am.LoadAsset(path, loaders.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 0x00010000}, res.Data)

	info, _ := am.Lookup(path)
	assert.False(t, info.LastLoaded.IsZero())
	assert.NoError(t, am.UnloadAsset(res))

	_, err = am.LoadAsset(path, loaders.ResourceTypeImage, nil)
	assert.Error(t, err, "type mismatch")

	_, err = am.LoadAsset(filepath.Join(dir, "missing.spv"), loaders.ResourceTypeShader, nil)
	assert.Error(t, err)
}

func TestLoadAssetWithoutLoader(t *testing.T) {
	am, dir := newTestManager(t)
	path := filepath.Join(dir, "scene.glb")
	require.NoError(t, os.WriteFile(path, []byte("glTF"), 0o644))

	_, err := am.LoadAsset(path, loaders.ResourceTypeScene, nil)
	assert.ErrorContains(t, err, "no loader registered")
}

type countingLoader struct {
	loads, unloads int
}

func (c *countingLoader) Load(path string, params interface{}) (*loaders.Resource, error) {
	c.loads++
	return &loaders.Resource{FullPath: path, Type: loaders.ResourceTypeScene}, nil
}

func (c *countingLoader) Unload(*loaders.Resource) error {
	c.unloads++
	return nil
}

func TestRegisterLoader(t *testing.T) {
	am, dir := newTestManager(t)
	path := filepath.Join(dir, "scene.gltf")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	loader := &countingLoader{}
	am.RegisterLoader(loaders.ResourceTypeScene, loader)

	res, err := am.LoadAsset(path, loaders.ResourceTypeScene, nil)
	require.NoError(t, err)
	require.NoError(t, am.UnloadAsset(res))
	assert.Equal(t, 1, loader.loads)
	assert.Equal(t, 1, loader.unloads)
}

func TestChangesReportsWrites(t *testing.T) {
	am, dir := newTestManager(t)
	path := filepath.Join(dir, "shaders", "mesh.vert.spv")
	require.NoError(t, os.WriteFile(path, minimalSPIRV, 0o644))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case changed := <-am.Changes():
			if changed != path {
				continue
			}
			_, ok := am.Lookup(path)
			assert.True(t, ok)
			return
		case <-timeout:
			t.Fatal("no change notification for new shader")
		}
	}
}

func TestShutdownClosesChanges(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	require.NoError(t, am.Initialize(t.TempDir()))

	am.Shutdown()
	am.Shutdown()
	_, open := <-am.Changes()
	assert.False(t, open)
	assert.ErrorIs(t, am.addRecursive(t.TempDir()), ErrAssetManagerClosed)
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, loaders.ResourceTypeShader, determineAssetType("a/b.frag.spv"))
	assert.Equal(t, loaders.ResourceTypeImage, determineAssetType("tex.JPG"))
	assert.Equal(t, loaders.ResourceTypeImage, determineAssetType("tex.webp"))
	assert.Equal(t, loaders.ResourceTypeScene, determineAssetType("structure.glb"))
	assert.Equal(t, loaders.ResourceTypeNone, determineAssetType("notes.txt"))
}
