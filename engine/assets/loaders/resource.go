package loaders

type ResourceType uint8

const (
	ResourceTypeNone ResourceType = iota
	ResourceTypeShader
	ResourceTypeImage
	ResourceTypeScene
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeScene:
		return "scene"
	default:
		return "none"
	}
}

/**
 * @brief A loaded asset. Data holds the typed payload: []uint32 SPIR-V
 * words for shaders, *image.RGBA for images and *scene.LoadedScene for
 * scenes.
 */
type Resource struct {
	Name     string
	FullPath string
	Type     ResourceType
	DataSize uint64
	Data     interface{}
}
