package metadata

/** @brief Resources every renderer creates at startup and shares with loaded scenes. */
type DefaultResources struct {
	WhiteImage             AllocatedImage
	GreyImage              AllocatedImage
	BlackImage             AllocatedImage
	ErrorCheckerboardImage AllocatedImage

	SamplerLinear  Sampler
	SamplerNearest Sampler

	DefaultMaterial GLTFMaterial
}

// Owns reports whether image is one of the default images.
func (d *DefaultResources) Owns(image Image) bool {
	if image == 0 {
		return false
	}
	return image == d.WhiteImage.Image ||
		image == d.GreyImage.Image ||
		image == d.BlackImage.Image ||
		image == d.ErrorCheckerboardImage.Image
}
