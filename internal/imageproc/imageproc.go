// Package imageproc loads images from disk and converts them into model input tensors.
package imageproc

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
)

// Layout is the memory order of the input tensor.
type Layout string

const (
	// NHWC interleaves channels per pixel (Keras/TensorFlow exports).
	NHWC Layout = "nhwc"
	// NCHW stores each channel as a contiguous plane (PyTorch exports).
	NCHW Layout = "nchw"
)

// Channels is the number of colour channels fed to the model.
const Channels = 3

// Valid reports whether l is a known layout.
func (l Layout) Valid() bool {
	return l == NHWC || l == NCHW
}

// Load opens and decodes the image at path and converts it with ToRGB.
// The file is closed before returning.
func Load(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return ToRGB(img), format, nil
}

// ToRGB drops the alpha channel of img, keeping the straight (unpremultiplied)
// colour of every pixel, including fully transparent ones. Opaque images are
// returned unchanged.
func ToRGB(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}

	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			out.SetRGBA(x, y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff})
		}
	}
	return out
}

// Resize scales img to size x size with nearest-neighbour sampling, the same
// interpolation Keras load_img uses by default.
func Resize(img image.Image, size int) image.Image {
	return resize.Resize(uint(size), uint(size), img, resize.NearestNeighbor)
}

// MobileNetNormalize maps an 8-bit channel value into [-1, 1].
func MobileNetNormalize(v uint8) float32 {
	return float32(v)/127.5 - 1
}

// ToTensor flattens img into a float32 tensor of Channels x width x height
// values in the requested layout, normalized for MobileNet.
func ToTensor(img image.Image, layout Layout) ([]float32, error) {
	if !layout.Valid() {
		return nil, fmt.Errorf("unsupported tensor layout %q", layout)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, Channels*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			rgb := [Channels]float32{
				MobileNetNormalize(uint8(r >> 8)),
				MobileNetNormalize(uint8(g >> 8)),
				MobileNetNormalize(uint8(b >> 8)),
			}

			pixelIndex := y*width + x
			for c, v := range rgb {
				if layout == NHWC {
					data[pixelIndex*Channels+c] = v
				} else {
					data[c*plane+pixelIndex] = v
				}
			}
		}
	}

	return data, nil
}

// Preprocess resizes img to size x size and converts it to a model input tensor.
func Preprocess(img image.Image, size int, layout Layout) ([]float32, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid target size %d", size)
	}
	return ToTensor(Resize(ToRGB(img), size), layout)
}
