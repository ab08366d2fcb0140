package imghash

import (
	"errors"
	"image"
	"image/color"
	"sort"

	"github.com/nfnt/resize"
)

const (
	whashScale = 64 // side of the grayscale working image
	whashSize  = 8  // side of the low-frequency band kept for the hash
)

// waveletHash computes an 8x8 Haar wavelet hash: downscale to a 64x64
// grayscale image, keep the low-low band of a three-level Haar
// decomposition, and set a bit for every coefficient above the median.
// goimagehash carries no wavelet variant, so this one lives here.
func waveletHash(img image.Image) (Digest, error) {
	if img == nil {
		return Digest{}, errors.New("compute whash: nil image")
	}
	small := resize.Resize(whashScale, whashScale, img, resize.Bilinear)
	bounds := small.Bounds()
	if bounds.Dx() < whashScale || bounds.Dy() < whashScale {
		return Digest{}, errors.New("compute whash: image too small to resample")
	}

	pix := make([]float64, whashScale*whashScale)
	for y := 0; y < whashScale; y++ {
		for x := 0; x < whashScale; x++ {
			g := color.GrayModel.Convert(small.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
			pix[y*whashScale+x] = float64(g.Y)
		}
	}

	// Each level halves the image by averaging 2x2 blocks, which is the
	// low-low band of a Haar step up to scale.
	size := whashScale
	for size > whashSize {
		half := size / 2
		next := make([]float64, half*half)
		for y := 0; y < half; y++ {
			for x := 0; x < half; x++ {
				next[y*half+x] = (pix[(2*y)*size+2*x] +
					pix[(2*y)*size+2*x+1] +
					pix[(2*y+1)*size+2*x] +
					pix[(2*y+1)*size+2*x+1]) / 4
			}
		}
		pix = next
		size = half
	}

	med := median(pix)
	var hash uint64
	for i, v := range pix {
		if v > med {
			hash |= 1 << uint(len(pix)-1-i)
		}
	}
	return NewDigest(WHash, []uint64{hash}, 64)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
