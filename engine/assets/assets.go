package assets

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/lumen/engine/assets/loaders"
	"github.com/spaghettifunk/lumen/engine/core"
)

const changeBufferSize = 64

var ErrAssetManagerClosed = errors.New("asset manager already closed")

type AssetInfo struct {
	Path       string
	Type       loaders.ResourceType
	LastLoaded time.Time
	Modified   time.Time
}

/**
 * @brief Indexes the files under the asset directory and watches it for
 * changes. Loads are dispatched to the loader registered for the asset
 * type. Written files are reported on Changes so callers can reload them.
 */
type AssetManager struct {
	assets  map[string]AssetInfo
	loaders map[loaders.ResourceType]Loader

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
	changes  chan string
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}

	am := &AssetManager{
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[loaders.ResourceType]Loader),
		fsnotify: fsWatch,
		changes:  make(chan string, changeBufferSize),
		done:     make(chan struct{}),
	}
	am.RegisterLoader(loaders.ResourceTypeShader, &loaders.ShaderLoader{})
	am.RegisterLoader(loaders.ResourceTypeImage, &loaders.ImageLoader{})
	return am, nil
}

// Initialize indexes assetsDir recursively and starts watching it.
func (am *AssetManager) Initialize(assetsDir string) error {
	if err := am.addRecursive(assetsDir); err != nil {
		err = errors.Wrapf(err, "failed to watch asset directory %s", assetsDir)
		core.LogError(err.Error())
		return err
	}

	am.wg.Add(1)
	go am.start()

	core.LogInfo("Asset manager watching %s, %d assets indexed", assetsDir, am.Count())
	return nil
}

// AddRecursive starts watching the named directory and all sub-directories.
func (am *AssetManager) addRecursive(name string) error {
	if am.closed() {
		return ErrAssetManagerClosed
	}
	return am.watchRecursive(name)
}

func (am *AssetManager) closed() bool {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return am.isClosed
}

// RegisterLoader sets the loader used for assets of assetType.
func (am *AssetManager) RegisterLoader(assetType loaders.ResourceType, loader Loader) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	am.loaders[assetType] = loader
}

// LoadAsset loads path with the loader registered for resourceType. Files
// outside the watched directory are indexed on first load.
func (am *AssetManager) LoadAsset(path string, resourceType loaders.ResourceType, params interface{}) (*loaders.Resource, error) {
	path = filepath.Clean(path)

	am.mutex.Lock()
	asset, exists := am.assets[path]
	if !exists {
		if _, err := os.Stat(path); err != nil {
			am.mutex.Unlock()
			return nil, errors.Wrapf(err, "asset not found: %s", path)
		}
		asset = AssetInfo{Path: path, Type: determineAssetType(path)}
	}
	if asset.Type != resourceType {
		am.mutex.Unlock()
		return nil, errors.Newf("asset %s is a %s, not a %s", path, asset.Type, resourceType)
	}
	asset.LastLoaded = time.Now()
	am.assets[path] = asset
	loader, loaderExists := am.loaders[asset.Type]
	am.mutex.Unlock()

	if !loaderExists {
		return nil, errors.Newf("no loader registered for asset type: %s", asset.Type)
	}
	core.LogDebug("loading %s asset %s", asset.Type, path)
	return loader.Load(path, params)
}

func (am *AssetManager) UnloadAsset(res *loaders.Resource) error {
	if res == nil {
		return nil
	}
	am.mutex.RLock()
	loader, ok := am.loaders[res.Type]
	am.mutex.RUnlock()
	if !ok {
		return errors.Newf("no loader registered for asset type: %s", res.Type)
	}
	return loader.Unload(res)
}

// Lookup returns the index entry of path.
func (am *AssetManager) Lookup(path string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[filepath.Clean(path)]
	return info, ok
}

func (am *AssetManager) Count() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Changes reports the paths of indexed assets that were created or written.
// Notifications are dropped while the channel is full.
func (am *AssetManager) Changes() <-chan string {
	return am.changes
}

// Shutdown stops the watcher. Changes is closed afterwards.
func (am *AssetManager) Shutdown() {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	if err := am.fsnotify.Close(); err != nil {
		core.LogWarn("failed to close file watcher: %s", err.Error())
	}
	close(am.changes)
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("file watcher: %s", err.Error())

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	if e.Has(fsnotify.Create) {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := am.watchRecursive(e.Name); err != nil {
				core.LogWarn("failed to watch %s: %s", e.Name, err.Error())
			}
			return
		}
	}
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if am.handleFileEvent(e.Name) {
			am.notify(e.Name)
		}
	}
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
	}
}

func (am *AssetManager) notify(path string) {
	select {
	case am.changes <- filepath.Clean(path):
	default:
		core.LogDebug("dropped change notification for %s", path)
	}
}

// watchRecursive adds path and the directories under it to the watch list
// and indexes the files it finds.
func (am *AssetManager) watchRecursive(path string) error {
	return filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && walkPath != path {
				return filepath.SkipDir
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes path. It reports false for files of no known type.
func (am *AssetManager) handleFileEvent(path string) bool {
	assetType := determineAssetType(path)
	if assetType == loaders.ResourceTypeNone {
		return false
	}
	path = filepath.Clean(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info := am.assets[path]
	info.Path = path
	info.Type = assetType
	info.Modified = time.Now()
	am.assets[path] = info
	return true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, filepath.Clean(path))
}

func determineAssetType(path string) loaders.ResourceType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return loaders.ResourceTypeShader
	case ".png", ".jpg", ".jpeg", ".webp", ".bmp":
		return loaders.ResourceTypeImage
	case ".gltf", ".glb":
		return loaders.ResourceTypeScene
	default:
		return loaders.ResourceTypeNone
	}
}
