package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Sharpness is the variance of the 3x3 Laplacian of the grayscale crop. It
// satisfies liveness.SharpnessFunc.
func Sharpness(crop image.Image) (float64, error) {
	if crop == nil || crop.Bounds().Empty() {
		return 0, fmt.Errorf("empty crop")
	}

	mat, err := gocv.ImageToMatRGB(crop)
	if err != nil {
		return 0, fmt.Errorf("failed to convert crop to mat: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	laplacian := gocv.NewMat()
	defer laplacian.Close()
	gocv.Laplacian(gray, &laplacian, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean := gocv.NewMat()
	defer mean.Close()
	stdDev := gocv.NewMat()
	defer stdDev.Close()
	gocv.MeanStdDev(laplacian, &mean, &stdDev)

	sd := stdDev.GetDoubleAt(0, 0)
	return sd * sd, nil
}
