package loaders

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/math"
	"github.com/spaghettifunk/lumen/engine/renderer/descriptors"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/scene"
	"golang.org/x/sync/errgroup"
)

/**
 * @brief What the glTF loader needs from the renderer to turn a file into
 * GPU resources. Everything it creates is released again through the
 * embedded ResourceReleaser when the scene is cleared.
 */
type SceneBuilder interface {
	scene.ResourceReleaser

	CreateBuffer(size uint64, usage metadata.BufferUsage, memoryUsage metadata.MemoryUsage) (metadata.AllocatedBuffer, error)
	CreateImageWithData(data []byte, extent metadata.Extent3D, format metadata.Format, usage metadata.ImageUsage, mipmapped bool) (metadata.AllocatedImage, error)
	CreateSampler(config metadata.SamplerConfig) (metadata.Sampler, error)
	UploadMesh(indices []uint32, vertices []metadata.Vertex) (metadata.GPUMeshBuffers, error)
	WriteMaterial(pass metadata.MaterialPass, resources metadata.MaterialResources, allocator descriptors.SetAllocator) (metadata.MaterialInstance, error)
	Defaults() *metadata.DefaultResources
}

var sceneDescriptorRatios = []descriptors.PoolSizeRatio{
	{Type: metadata.DescriptorTypeCombinedImageSampler, Ratio: 3},
	{Type: metadata.DescriptorTypeUniformBuffer, Ratio: 3},
	{Type: metadata.DescriptorTypeStorageBuffer, Ratio: 1},
}

// offsets into the constants buffer honour the largest minUniformBufferOffsetAlignment
const uniformOffsetAlignment = 256

var materialConstantsStride = metadata.GetAligned(uint64(unsafe.Sizeof(metadata.MaterialConstants{})), uniformOffsetAlignment)

// LoadGLTF reads a .gltf or .glb file and uploads its samplers, images,
// materials and meshes. Images that cannot be decoded are replaced by the
// error checkerboard. Any other failure releases what was created so far.
func LoadGLTF(builder SceneBuilder, path string) (*scene.LoadedScene, error) {
	core.LogInfo("Loading GLTF: %s", path)

	doc, err := gltf.Open(path)
	if err != nil {
		err = errors.Wrapf(err, "failed to load glTF %s", path)
		core.LogError(err.Error())
		return nil, err
	}

	name := filepath.Base(path)
	s := scene.NewLoadedScene(name, builder)
	l := &gltfLoader{
		builder: builder,
		doc:     doc,
		dir:     filepath.Dir(path),
		scene:   s,
	}
	if err := l.load(); err != nil {
		s.ClearAll()
		err = errors.Wrapf(err, "failed to build scene from %s", path)
		core.LogError(err.Error())
		return nil, err
	}

	core.LogInfo("Loaded GLTF %s: %d meshes, %d materials, %d images, %d nodes",
		name, len(s.Meshes), len(s.Materials), len(s.Images), len(s.Nodes))
	return s, nil
}

type gltfLoader struct {
	builder SceneBuilder
	doc     *gltf.Document
	dir     string
	scene   *scene.LoadedScene

	samplers  []metadata.Sampler
	images    []metadata.AllocatedImage
	materials []*metadata.GLTFMaterial
	meshes    []*metadata.MeshAsset
	nodes     []*scene.Node
}

func (l *gltfLoader) load() error {
	steps := []func() error{
		l.loadSamplers,
		l.loadImages,
		l.loadMaterials,
		l.loadMeshes,
		l.loadNodes,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// uniqueName returns name, or kind_index when name is empty or already used.
func uniqueName[T any](taken map[string]T, name, kind string, index int) string {
	if name == "" {
		return fmt.Sprintf("%s_%d", kind, index)
	}
	if _, ok := taken[name]; ok {
		return fmt.Sprintf("%s_%d", name, index)
	}
	return name
}

func extractFilter(filter gltf.MagFilter) metadata.Filter {
	if filter == gltf.MagNearest {
		return metadata.FilterNearest
	}
	return metadata.FilterLinear
}

func extractMinFilter(filter gltf.MinFilter) metadata.Filter {
	switch filter {
	case gltf.MinNearest, gltf.MinNearestMipMapNearest, gltf.MinNearestMipMapLinear:
		return metadata.FilterNearest
	default:
		return metadata.FilterLinear
	}
}

func extractMipmapMode(filter gltf.MinFilter) metadata.SamplerMipmapMode {
	switch filter {
	case gltf.MinNearestMipMapNearest, gltf.MinLinearMipMapNearest:
		return metadata.SamplerMipmapModeNearest
	default:
		return metadata.SamplerMipmapModeLinear
	}
}

func (l *gltfLoader) loadSamplers() error {
	for _, sampler := range l.doc.Samplers {
		handle, err := l.builder.CreateSampler(metadata.SamplerConfig{
			MagFilter:  extractFilter(sampler.MagFilter),
			MinFilter:  extractMinFilter(sampler.MinFilter),
			MipmapMode: extractMipmapMode(sampler.MinFilter),
		})
		if err != nil {
			return err
		}
		l.samplers = append(l.samplers, handle)
		l.scene.Samplers = append(l.scene.Samplers, handle)
	}
	return nil
}

func (l *gltfLoader) imageBytes(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if *img.BufferView >= len(l.doc.BufferViews) {
			return nil, errors.Newf("buffer view %d out of range", *img.BufferView)
		}
		return modeler.ReadBufferView(l.doc, l.doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		return os.ReadFile(filepath.Join(l.dir, filepath.FromSlash(img.URI)))
	default:
		return nil, errors.New("image has no source")
	}
}

// loadImages decodes every image in parallel, then uploads them in order
// on the calling goroutine.
func (l *gltfLoader) loadImages() error {
	decoded := make([]*image.RGBA, len(l.doc.Images))
	failures := make([]error, len(l.doc.Images))

	var g errgroup.Group
	for i, img := range l.doc.Images {
		g.Go(func() error {
			data, err := l.imageBytes(img)
			if err == nil {
				decoded[i], err = DecodeImage(data)
			}
			// a broken image never fails the scene
			failures[i] = err
			return nil
		})
	}
	_ = g.Wait()

	checkerboard := l.builder.Defaults().ErrorCheckerboardImage
	for i, img := range l.doc.Images {
		name := uniqueName(l.scene.Images, img.Name, "image", i)

		if failures[i] != nil {
			core.LogWarn("gltf failed to load texture %s: %s", name, failures[i].Error())
			l.images = append(l.images, checkerboard)
			continue
		}

		rgba := decoded[i]
		extent := metadata.Extent3D{Width: uint32(rgba.Rect.Dx()), Height: uint32(rgba.Rect.Dy()), Depth: 1}
		uploaded, err := l.builder.CreateImageWithData(rgba.Pix, extent, metadata.FormatR8G8B8A8Unorm, metadata.ImageUsageSampled, true)
		if err != nil {
			if core.IsFatal(err) {
				return err
			}
			core.LogWarn("gltf failed to upload texture %s: %s", name, err.Error())
			l.images = append(l.images, checkerboard)
			continue
		}
		l.images = append(l.images, uploaded)
		l.scene.Images[name] = uploaded
	}
	return nil
}

// textureImage resolves a texture index to its image and sampler.
func (l *gltfLoader) textureImage(index int) (metadata.AllocatedImage, metadata.Sampler, bool) {
	if index < 0 || index >= len(l.doc.Textures) {
		return metadata.AllocatedImage{}, 0, false
	}
	texture := l.doc.Textures[index]
	if texture.Source == nil || *texture.Source >= len(l.images) {
		return metadata.AllocatedImage{}, 0, false
	}
	sampler := l.builder.Defaults().SamplerLinear
	if texture.Sampler != nil && *texture.Sampler < len(l.samplers) {
		sampler = l.samplers[*texture.Sampler]
	}
	return l.images[*texture.Source], sampler, true
}

func (l *gltfLoader) loadMaterials() error {
	device := l.builder.DescriptorDevice()
	if err := l.scene.DescriptorPool.Init(device, uint32(max(len(l.doc.Materials), 1)), sceneDescriptorRatios); err != nil {
		return err
	}
	if len(l.doc.Materials) == 0 {
		return nil
	}

	constants, err := l.builder.CreateBuffer(materialConstantsStride*uint64(len(l.doc.Materials)),
		metadata.BufferUsageUniformBuffer, metadata.MemoryUsageCpuToGpu)
	if err != nil {
		return err
	}
	l.scene.MaterialDataBuffer = constants

	defaults := l.builder.Defaults()
	for i, mat := range l.doc.Materials {
		name := uniqueName(l.scene.Materials, mat.Name, "material", i)

		pbr := mat.PBRMetallicRoughness
		if pbr == nil {
			pbr = &gltf.PBRMetallicRoughness{}
		}
		baseColor := pbr.BaseColorFactorOrDefault()
		materialConstants := metadata.MaterialConstants{
			ColorFactors: mgl32.Vec4{
				float32(baseColor[0]),
				float32(baseColor[1]),
				float32(baseColor[2]),
				float32(baseColor[3]),
			},
			MetalRoughFactors: mgl32.Vec4{
				float32(pbr.MetallicFactorOrDefault()),
				float32(pbr.RoughnessFactorOrDefault()),
				0, 0,
			},
		}
		offset := uint64(i) * materialConstantsStride
		copy(constants.Mapped[offset:offset+materialConstantsStride], metadata.AsBytes(&materialConstants))

		passType := metadata.MaterialPassMainColor
		if mat.AlphaMode == gltf.AlphaBlend {
			passType = metadata.MaterialPassTransparent
		}

		resources := metadata.MaterialResources{
			ColorImage:        defaults.WhiteImage,
			ColorSampler:      defaults.SamplerLinear,
			MetalRoughImage:   defaults.WhiteImage,
			MetalRoughSampler: defaults.SamplerLinear,
			DataBuffer:        constants.Buffer,
			DataBufferOffset:  uint32(offset),
		}
		if pbr.BaseColorTexture != nil {
			if img, sampler, ok := l.textureImage(pbr.BaseColorTexture.Index); ok {
				resources.ColorImage, resources.ColorSampler = img, sampler
			}
		}
		if pbr.MetallicRoughnessTexture != nil {
			if img, sampler, ok := l.textureImage(pbr.MetallicRoughnessTexture.Index); ok {
				resources.MetalRoughImage, resources.MetalRoughSampler = img, sampler
			}
		}

		instance, err := l.builder.WriteMaterial(passType, resources, &l.scene.DescriptorPool)
		if err != nil {
			return err
		}
		material := &metadata.GLTFMaterial{Name: name, Data: instance}
		l.materials = append(l.materials, material)
		l.scene.Materials[name] = material
	}
	return nil
}

func (l *gltfLoader) accessor(index int) (*gltf.Accessor, error) {
	if index < 0 || index >= len(l.doc.Accessors) {
		return nil, errors.Newf("accessor %d out of range", index)
	}
	return l.doc.Accessors[index], nil
}

// readColors accepts every component type glTF allows for COLOR_0.
func (l *gltfLoader) readColors(acr *gltf.Accessor) ([]mgl32.Vec4, error) {
	data, err := modeler.ReadAccessor(l.doc, acr, nil)
	if err != nil {
		return nil, err
	}
	var out []mgl32.Vec4
	switch v := data.(type) {
	case [][4]float32:
		for _, c := range v {
			out = append(out, mgl32.Vec4{c[0], c[1], c[2], c[3]})
		}
	case [][3]float32:
		for _, c := range v {
			out = append(out, mgl32.Vec4{c[0], c[1], c[2], 1})
		}
	case [][4]uint8:
		for _, c := range v {
			out = append(out, mgl32.Vec4{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, float32(c[3]) / 255})
		}
	case [][3]uint8:
		for _, c := range v {
			out = append(out, mgl32.Vec4{float32(c[0]) / 255, float32(c[1]) / 255, float32(c[2]) / 255, 1})
		}
	case [][4]uint16:
		for _, c := range v {
			out = append(out, mgl32.Vec4{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535, float32(c[3]) / 65535})
		}
	case [][3]uint16:
		for _, c := range v {
			out = append(out, mgl32.Vec4{float32(c[0]) / 65535, float32(c[1]) / 65535, float32(c[2]) / 65535, 1})
		}
	default:
		return nil, errors.Newf("unsupported color accessor %T", data)
	}
	return out, nil
}

// appendPrimitive adds the vertices of p to vertices and its indices,
// offset by the vertices already present, to indices.
func (l *gltfLoader) appendPrimitive(p *gltf.Primitive, indices []uint32, vertices []metadata.Vertex) ([]uint32, []metadata.Vertex, []mgl32.Vec3, error) {
	positionIndex, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return nil, nil, nil, errors.New("primitive has no POSITION attribute")
	}
	acr, err := l.accessor(positionIndex)
	if err != nil {
		return nil, nil, nil, err
	}
	positions, err := modeler.ReadPosition(l.doc, acr, nil)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "positions")
	}

	initialVtx := uint32(len(vertices))
	firstIndex := len(indices)
	if p.Indices != nil {
		acr, err := l.accessor(*p.Indices)
		if err != nil {
			return nil, nil, nil, err
		}
		primIndices, err := modeler.ReadIndices(l.doc, acr, nil)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "indices")
		}
		for _, idx := range primIndices {
			indices = append(indices, idx+initialVtx)
		}
	} else {
		for i := range positions {
			indices = append(indices, uint32(i)+initialVtx)
		}
	}

	points := make([]mgl32.Vec3, len(positions))
	for i, pos := range positions {
		points[i] = mgl32.Vec3{pos[0], pos[1], pos[2]}
		vertices = append(vertices, metadata.Vertex{
			Position: points[i],
			Normal:   mgl32.Vec3{1, 0, 0},
			Color:    mgl32.Vec4{1, 1, 1, 1},
		})
	}
	primVertices := vertices[initialVtx:]

	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if acr, err := l.accessor(idx); err == nil {
			normals, err := modeler.ReadNormal(l.doc, acr, nil)
			if err != nil {
				return nil, nil, nil, errors.Wrap(err, "normals")
			}
			for i := range min(len(normals), len(primVertices)) {
				primVertices[i].Normal = mgl32.Vec3{normals[i][0], normals[i][1], normals[i][2]}
			}
		}
	} else {
		math.GeometryGenerateNormals(vertices, indices[firstIndex:])
	}

	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if acr, err := l.accessor(idx); err == nil {
			uvs, err := modeler.ReadTextureCoord(l.doc, acr, nil)
			if err != nil {
				return nil, nil, nil, errors.Wrap(err, "uvs")
			}
			for i := range min(len(uvs), len(primVertices)) {
				primVertices[i].UvX = uvs[i][0]
				primVertices[i].UvY = uvs[i][1]
			}
		}
	}

	if idx, ok := p.Attributes[gltf.COLOR_0]; ok {
		if acr, err := l.accessor(idx); err == nil {
			colors, err := l.readColors(acr)
			if err != nil {
				return nil, nil, nil, errors.Wrap(err, "colors")
			}
			for i := range min(len(colors), len(primVertices)) {
				primVertices[i].Color = colors[i]
			}
		}
	}
	return indices, vertices, points, nil
}

func (l *gltfLoader) loadMeshes() error {
	// reused between meshes to avoid reallocating
	var indices []uint32
	var vertices []metadata.Vertex

	for i, mesh := range l.doc.Meshes {
		name := uniqueName(l.scene.Meshes, mesh.Name, "mesh", i)
		asset := &metadata.MeshAsset{Name: name}

		indices = indices[:0]
		vertices = vertices[:0]

		for _, p := range mesh.Primitives {
			start := uint32(len(indices))
			var points []mgl32.Vec3
			var err error
			indices, vertices, points, err = l.appendPrimitive(p, indices, vertices)
			if err != nil {
				return errors.Wrapf(err, "mesh %s", name)
			}

			surface := metadata.GeoSurface{
				StartIndex: start,
				Count:      uint32(len(indices)) - start,
				Bounds:     metadata.NewBounds(points),
			}
			switch {
			case p.Material != nil && *p.Material < len(l.materials):
				surface.Material = l.materials[*p.Material]
			case len(l.materials) > 0:
				surface.Material = l.materials[0]
			default:
				surface.Material = &l.builder.Defaults().DefaultMaterial
			}
			asset.Surfaces = append(asset.Surfaces, surface)
		}

		if len(indices) == 0 {
			core.LogWarn("gltf mesh %s has no geometry", name)
			l.meshes = append(l.meshes, asset)
			continue
		}

		buffers, err := l.builder.UploadMesh(indices, vertices)
		if err != nil {
			return errors.Wrapf(err, "mesh %s", name)
		}
		asset.MeshBuffers = buffers
		l.meshes = append(l.meshes, asset)
		l.scene.Meshes[name] = asset
	}
	return nil
}

// nodeTransform returns the local transform of n. glTF stores matrices in
// column-major order like mgl32.
func nodeTransform(n *gltf.Node) mgl32.Mat4 {
	if n.Matrix != gltf.DefaultMatrix && n.Matrix != [16]float64{} {
		var m mgl32.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()

	translation := mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2]))
	rotation := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Mat4()
	scale := mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2]))
	return translation.Mul4(rotation).Mul4(scale)
}

func (l *gltfLoader) loadNodes() error {
	for i, n := range l.doc.Nodes {
		var mesh *metadata.MeshAsset
		if n.Mesh != nil && *n.Mesh < len(l.meshes) {
			mesh = l.meshes[*n.Mesh]
		}

		name := uniqueName(l.scene.Nodes, n.Name, "node", i)

		node := scene.NewNode(name, mesh)
		node.LocalTransform = nodeTransform(n)
		l.nodes = append(l.nodes, node)
		l.scene.Nodes[name] = node
	}

	for i, n := range l.doc.Nodes {
		for _, c := range n.Children {
			if c < 0 || c >= len(l.nodes) || c == i {
				return errors.Newf("node %d has invalid child %d", i, c)
			}
			l.nodes[i].AddChild(l.nodes[c])
		}
	}

	for _, node := range l.nodes {
		if node.Parent() == nil {
			l.scene.TopNodes = append(l.scene.TopNodes, node)
		}
	}
	for _, node := range l.scene.TopNodes {
		node.RefreshTransform(mgl32.Ident4())
	}
	return nil
}
