package organizer

import (
	"image"
	"image/color"
	"testing"
)

func TestFingerprint_Distance(t *testing.T) {
	tests := []struct {
		a, b     Fingerprint
		expected int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0xFFFFFFFFFFFFFFFF, 0, 64},
		{0b1010, 0b0101, 4},
		{0xFF00000000000000, 0x00000000000000FF, 16},
	}

	for _, tt := range tests {
		if got := tt.a.Distance(tt.b); got != tt.expected {
			t.Errorf("Distance(%#x, %#x) = %d, expected %d", tt.a, tt.b, got, tt.expected)
		}
	}
	if got := Fingerprint(0b1010).Distance(0b0101); got != Fingerprint(0b0101).Distance(0b1010) {
		t.Errorf("Distance is not symmetric: %d", got)
	}
}

// horizontalGradient and verticalGradient produce structurally distinct images
// whose average hashes are far apart, while any rescale of the same gradient
// hashes close to the original.
func horizontalGradient(t *testing.T, width, height int) image.Image {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 255 / (width - 1))})
		}
	}
	return img
}

func verticalGradient(t *testing.T, width, height int) image.Image {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(y * 255 / (height - 1))})
		}
	}
	return img
}

func TestFingerprintImage_SimilarImagesMatch(t *testing.T) {
	original, err := FingerprintImage(horizontalGradient(t, 64, 64))
	if err != nil {
		t.Fatalf("FingerprintImage failed: %v", err)
	}
	resized, err := FingerprintImage(horizontalGradient(t, 32, 48))
	if err != nil {
		t.Fatalf("FingerprintImage failed: %v", err)
	}

	if d := original.Distance(resized); d > duplicateThreshold {
		t.Errorf("Resized copy has distance %d, expected <= %d", d, duplicateThreshold)
	}
}

func TestFingerprintImage_DistinctImagesDiffer(t *testing.T) {
	horizontal, err := FingerprintImage(horizontalGradient(t, 64, 64))
	if err != nil {
		t.Fatalf("FingerprintImage failed: %v", err)
	}
	vertical, err := FingerprintImage(verticalGradient(t, 64, 64))
	if err != nil {
		t.Fatalf("FingerprintImage failed: %v", err)
	}

	if d := horizontal.Distance(vertical); d <= duplicateThreshold {
		t.Errorf("Distinct images have distance %d, expected > %d", d, duplicateThreshold)
	}
}

func TestDuplicateIndex_FindMatch(t *testing.T) {
	idx := NewDuplicateIndex()

	if _, found := idx.FindMatch(0x1234); found {
		t.Error("Empty index reported a match")
	}

	idx.Insert(0xAAAA000000000000, "first.jpg")

	tests := []struct {
		fp       Fingerprint
		expected string
		found    bool
	}{
		{0xAAAA000000000000, "first.jpg", true},          // exact
		{0xAAAA000000000001, "first.jpg", true},          // distance 1
		{0xAAAA00000000001F, "first.jpg", true},          // distance 5, at threshold
		{0xAAAA00000000003F, "", false},                  // distance 6, past threshold
		{0x5555FFFFFFFFFFFF, "", false},                  // far away
	}

	for _, tt := range tests {
		path, found := idx.FindMatch(tt.fp)
		if found != tt.found || path != tt.expected {
			t.Errorf("FindMatch(%#x) = (%q, %v), expected (%q, %v)", tt.fp, path, found, tt.expected, tt.found)
		}
	}
}

func TestDuplicateIndex_EarliestInsertedWins(t *testing.T) {
	idx := NewDuplicateIndex()
	idx.Insert(0x00000000000000F0, "first.jpg")
	idx.Insert(0x00000000000000F1, "second.jpg")

	// 0xF2 is within threshold of both entries; the earlier one represents it.
	path, found := idx.FindMatch(0x00000000000000F2)
	if !found {
		t.Fatal("Expected a match")
	}
	if path != "first.jpg" {
		t.Errorf("FindMatch = %q, expected first.jpg", path)
	}
}

func TestDuplicateIndex_Len(t *testing.T) {
	idx := NewDuplicateIndex()
	if idx.Len() != 0 {
		t.Errorf("Len = %d, expected 0", idx.Len())
	}
	idx.Insert(1, "a.jpg")
	idx.Insert(2, "b.jpg")
	if idx.Len() != 2 {
		t.Errorf("Len = %d, expected 2", idx.Len())
	}
}

func TestDuplicateIndex_MatchAcrossBlockBoundary(t *testing.T) {
	idx := NewDuplicateIndex()
	idx.Insert(0x0101010100000000, "spread.jpg")

	// Differs by one bit in each of four different byte blocks. The remaining
	// blocks still agree, so the bucketed lookup must find it.
	path, found := idx.FindMatch(0x0000000000000000)
	if !found {
		t.Fatal("Expected a match for fingerprint differing across blocks")
	}
	if path != "spread.jpg" {
		t.Errorf("FindMatch = %q, expected spread.jpg", path)
	}
}
