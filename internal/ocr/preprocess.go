package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// maxLongEdge caps scanned page dimensions before recognition. Larger
// inputs slow Tesseract down without improving accuracy.
const maxLongEdge = 2500

// contrastBoost is the percentage applied ahead of recognition to
// sharpen faded scans.
const contrastBoost = 15

// preprocess converts img to grayscale, proportionally downscales it so
// the long edge is at most maxLongEdge pixels, and boosts contrast.
func preprocess(img image.Image) image.Image {
	gray := imaging.Grayscale(img)

	bounds := gray.Bounds()
	if bounds.Dx() > maxLongEdge || bounds.Dy() > maxLongEdge {
		gray = imaging.Fit(gray, maxLongEdge, maxLongEdge, imaging.Lanczos)
	}

	return imaging.AdjustContrast(gray, contrastBoost)
}
