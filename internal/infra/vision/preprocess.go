package vision

import (
	"image"

	"golang.org/x/image/draw"
)

// ImageNet channel statistics, matching how the models were trained.
var (
	channelMean = [3]float64{0.485, 0.456, 0.406}
	channelStd  = [3]float64{0.229, 0.224, 0.225}
)

// preprocess rescales the image to size x size and returns the flattened
// normalized RGB feature vector in row-major pixel order.
func preprocess(img image.Image, size int) []float64 {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	features := make([]float64, 0, size*size*3)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			features = append(features,
				(float64(r)/65535.0-channelMean[0])/channelStd[0],
				(float64(g)/65535.0-channelMean[1])/channelStd[1],
				(float64(b)/65535.0-channelMean[2])/channelStd[2],
			)
		}
	}
	return features
}
