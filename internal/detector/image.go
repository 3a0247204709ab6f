package detector

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	// Images whose longest side exceeds this are retried at downscaleTarget
	// when nothing was detected at full size.
	downscaleThreshold = 2000
	downscaleTarget    = 1600

	contrastFactor = 1.6
	jpegQuality    = 90
)

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedImage, err)
	}
	return img, nil
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func longestSide(img image.Image) int {
	b := img.Bounds()
	return max(b.Dx(), b.Dy())
}

// downscale resizes img so its longest side is maxSize, keeping aspect ratio.
// The returned factor maps coordinates in the resized image back to img.
func downscale(img image.Image, maxSize int) (image.Image, float64) {
	bounds := img.Bounds()
	scale := float64(maxSize) / float64(longestSide(img))
	newWidth := max(1, int(math.Round(float64(bounds.Dx())*scale)))
	newHeight := max(1, int(math.Round(float64(bounds.Dy())*scale)))

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized, float64(bounds.Dx()) / float64(newWidth)
}

// boostContrast stretches every channel away from the image's mean luminance
// by factor.
func boostContrast(img image.Image, factor float64) image.Image {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), img, bounds.Min, draw.Src)

	var sum float64
	pixels := bounds.Dx() * bounds.Dy()
	if pixels == 0 {
		return out
	}
	for y := range bounds.Dy() {
		for x := range bounds.Dx() {
			g := color.GrayModel.Convert(out.RGBAAt(x, y)).(color.Gray)
			sum += float64(g.Y)
		}
	}
	mean := sum / float64(pixels)

	adjust := func(v uint8) uint8 {
		return uint8(max(0, min(255, mean+factor*(float64(v)-mean)+0.5)))
	}
	for y := range bounds.Dy() {
		for x := range bounds.Dx() {
			c := out.RGBAAt(x, y)
			out.SetRGBA(x, y, color.RGBA{R: adjust(c.R), G: adjust(c.G), B: adjust(c.B), A: c.A})
		}
	}
	return out
}
