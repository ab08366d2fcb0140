package imghash_test

import (
	"image"
	"image/color"
	"testing"

	"picdup/internal/imghash"
)

func gradientImage(invert bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 128, 128))
	for y := 0; y < 128; y++ {
		for x := 0; x < 128; x++ {
			v := uint8(x * 2)
			if invert {
				v = 255 - v
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestComputeProducesComparableDigests(t *testing.T) {
	img := gradientImage(false)
	for _, alg := range imghash.Algorithms() {
		d, err := imghash.Compute(alg, img)
		if err != nil {
			t.Fatalf("Compute(%s): %v", alg, err)
		}
		if d.Kind() != alg {
			t.Fatalf("Compute(%s): digest kind %s", alg, d.Kind())
		}
		if d.Width() != 64 {
			t.Fatalf("Compute(%s): width %d, want 64", alg, d.Width())
		}

		again, err := imghash.Compute(alg, img)
		if err != nil {
			t.Fatalf("Compute(%s) second run: %v", alg, err)
		}
		dist, err := d.Distance(again)
		if err != nil {
			t.Fatalf("Distance(%s): %v", alg, err)
		}
		if dist != 0 {
			t.Fatalf("Compute(%s) is not deterministic: distance %d", alg, dist)
		}
	}
}

func TestWaveletHashSeparatesDistinctContent(t *testing.T) {
	a, err := imghash.Compute(imghash.WHash, gradientImage(false))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	b, err := imghash.Compute(imghash.WHash, gradientImage(true))
	if err != nil {
		t.Fatalf("Compute inverted: %v", err)
	}
	dist, err := a.Distance(b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if dist == 0 {
		t.Fatal("inverted gradient hashed identically to the original")
	}
}

func TestWaveletHashSurvivesResize(t *testing.T) {
	full := gradientImage(false)

	// Nearest-neighbor shrink of the same gradient.
	small := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			small.SetGray(x, y, full.GrayAt(x*4, y*4))
		}
	}

	a, err := imghash.Compute(imghash.WHash, full)
	if err != nil {
		t.Fatalf("Compute full: %v", err)
	}
	b, err := imghash.Compute(imghash.WHash, small)
	if err != nil {
		t.Fatalf("Compute small: %v", err)
	}
	dist, err := a.Distance(b)
	if err != nil {
		t.Fatalf("Distance: %v", err)
	}
	if dist > 8 {
		t.Fatalf("resized copy drifted too far: distance %d", dist)
	}
}
