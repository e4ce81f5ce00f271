package loaders

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

type ImageParams struct {
	// FlipY mirrors the rows so the first row is the bottom of the image.
	FlipY bool
}

// DecodeImage decodes PNG, JPEG, WebP or BMP data into tightly packed RGBA8.
func DecodeImage(data []byte) (*image.RGBA, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode image")
	}
	if rgba, ok := src.(*image.RGBA); ok && rgba.Stride == rgba.Rect.Dx()*4 && rgba.Rect.Min == (image.Point{}) {
		return rgba, nil
	}

	bounds := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst, nil
}

func flipRows(img *image.RGBA) {
	h := img.Rect.Dy()
	row := make([]byte, img.Stride)
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", path)
	}
	if p, ok := params.(*ImageParams); ok && p.FlipY {
		flipRows(img)
	}
	return &Resource{
		Name:     filepath.Base(path),
		FullPath: path,
		Type:     ResourceTypeImage,
		DataSize: uint64(len(img.Pix)),
		Data:     img,
	}, nil
}

func (il *ImageLoader) Unload(*Resource) error {
	return nil
}
