package liveness

import (
	"image"
	"math"
)

// laplacianVariance mirrors OpenCV's Laplacian (ksize 1, reflect-101 border)
// followed by the variance, so the heuristic can be tested without OpenCV.
func laplacianVariance(img image.Image) (float64, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0, nil
	}

	gray := make([]float64, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			gray = append(gray, math.Round(0.299*float64(r>>8)+0.587*float64(g>>8)+0.114*float64(bl>>8)))
		}
	}
	at := func(x, y int) float64 {
		return gray[reflect101(y, h)*w+reflect101(x, w)]
	}

	var sum, sumSq float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			l := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += l
			sumSq += l * l
		}
	}

	n := float64(w * h)
	mean := sum / n
	return sumSq/n - mean*mean, nil
}

func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	if i < 0 {
		return -i
	}
	if i >= n {
		return 2*n - 2 - i
	}
	return i
}
