package assets

import "github.com/spaghettifunk/lumen/engine/assets/loaders"

// Loader reads one kind of asset. params carries loader specific options
// and may be nil.
type Loader interface {
	Load(path string, params interface{}) (*loaders.Resource, error)
	Unload(*loaders.Resource) error
}
