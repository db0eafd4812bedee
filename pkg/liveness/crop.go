package liveness

import (
	"image"

	"golang.org/x/image/draw"
)

const (
	CropSize    = 128
	CropPadding = 20
	CropChannel = 3
)

// ExtractCrop cuts the padded face region out of frame and scales it to
// CropSize x CropSize.
func ExtractCrop(frame image.Image, region FaceRegion) (*image.RGBA, error) {
	padded := FaceRegion{
		X:      region.X - CropPadding,
		Y:      region.Y - CropPadding,
		Width:  region.Width + 2*CropPadding,
		Height: region.Height + 2*CropPadding,
	}
	padded = ClampRegion(padded, frame.Bounds())
	if padded.Empty() {
		return nil, ErrEmptyCrop
	}

	return resize(frame, padded.Rect(), CropSize), nil
}

func resize(src image.Image, area image.Rectangle, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, area, draw.Src, nil)
	return dst
}

// Tensor is a dense float32 buffer in NHWC layout.
type Tensor struct {
	Shape [4]int
	Data  []float32
}

// Preprocess turns a crop into the model input: CropSize x CropSize, RGB
// channel order, values in [0,1], batch of one.
func Preprocess(crop image.Image) Tensor {
	b := crop.Bounds()
	if b.Dx() != CropSize || b.Dy() != CropSize {
		crop = resize(crop, b, CropSize)
		b = crop.Bounds()
	}

	data := make([]float32, 0, CropSize*CropSize*CropChannel)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := crop.At(x, y).RGBA()
			data = append(data,
				float32(r>>8)/255,
				float32(g>>8)/255,
				float32(bl>>8)/255,
			)
		}
	}

	return Tensor{
		Shape: [4]int{1, CropSize, CropSize, CropChannel},
		Data:  data,
	}
}
