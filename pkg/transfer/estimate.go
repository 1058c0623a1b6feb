package transfer

import "strings"

// Bytes per pixel by format: 3 bytes of RGB scaled by the compression
// each format typically achieves (jpeg keeps ~15% of raw, png ~60%,
// tiff ships close to uncompressed).
const (
	jpegBytesPerPixel = 0.45
	pngBytesPerPixel  = 1.8
	tiffBytesPerPixel = 3.0

	minEstimateBytes = 1024
)

// Estimator predicts encoded file sizes from pixel dimensions. Used for
// progress totals when neither the GET response nor a HEAD probe carries
// a Content-Length. The multipliers are tuning knobs, not guarantees.
type Estimator struct {
	BytesPerPixel map[string]float64
	MinBytes      int64
}

// DefaultEstimator returns the stock multipliers
func DefaultEstimator() Estimator {
	return Estimator{
		BytesPerPixel: map[string]float64{
			"jpeg": jpegBytesPerPixel,
			"jpg":  jpegBytesPerPixel,
			"png":  pngBytesPerPixel,
			"tiff": tiffBytesPerPixel,
			"tif":  tiffBytesPerPixel,
		},
		MinBytes: minEstimateBytes,
	}
}

// Estimate predicts the encoded size of an image with the given pixel
// dimensions. Formats without a configured multiplier use the jpeg one.
// Returns 0 when either dimension is unknown.
func (e Estimator) Estimate(width, height int, ext string) int64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	bpp, ok := e.BytesPerPixel[strings.ToLower(ext)]
	if !ok || bpp <= 0 {
		bpp = jpegBytesPerPixel
	}
	size := int64(float64(width) * float64(height) * bpp)
	if size < e.MinBytes {
		return e.MinBytes
	}
	return size
}

// EstimateScaled predicts the size when the request asks for a width
// other than the native one. Height scales with the aspect ratio.
func (e Estimator) EstimateScaled(nativeWidth, nativeHeight, requestWidth int, ext string) int64 {
	if nativeWidth <= 0 || nativeHeight <= 0 {
		return 0
	}
	if requestWidth <= 0 || requestWidth == nativeWidth {
		return e.Estimate(nativeWidth, nativeHeight, ext)
	}
	scaledHeight := int(float64(requestWidth) * float64(nativeHeight) / float64(nativeWidth))
	return e.Estimate(requestWidth, scaledHeight, ext)
}

// Refine raises a running total once the bytes actually received
// overtake it, keeping 25% headroom above what has arrived. Reported
// progress never exceeds the total this way.
func (e Estimator) Refine(total, received int64) int64 {
	if received <= total {
		return total
	}
	return received + received/4
}
