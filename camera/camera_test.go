package camera

import (
	"image"
	"testing"
)

func TestRoundUp(t *testing.T) {

	tests := []struct {
		value int
		n     int
		want  int
	}{
		{0, 32, 0},
		{1, 32, 32},
		{32, 32, 32},
		{33, 32, 64},
		{479, 16, 480},
		{480, 16, 480},
	}

	for _, tc := range tests {
		if got := RoundUp(tc.value, tc.n); got != tc.want {
			t.Errorf("RoundUp(%d, %d) = %d, expected %d",
				tc.value, tc.n, got, tc.want)
		}
	}
}

func TestRoundBufferDims(t *testing.T) {

	tests := []struct {
		width      int
		height     int
		wantWidth  int
		wantHeight int
	}{
		{640, 480, 640, 480},
		{1280, 720, 1280, 720},
		{650, 482, 672, 496},
		{1, 1, 32, 16},
	}

	for _, tc := range tests {
		w, h := RoundBufferDims(tc.width, tc.height)

		if w != tc.wantWidth || h != tc.wantHeight {
			t.Errorf("RoundBufferDims(%d, %d) = (%d, %d), expected (%d, %d)",
				tc.width, tc.height, w, h, tc.wantWidth, tc.wantHeight)
		}
	}
}

func TestFlipCode(t *testing.T) {

	tests := []struct {
		name     string
		hflip    bool
		vflip    bool
		wantCode int
		wantOK   bool
	}{
		{"both", true, true, -1, true},
		{"horizontal only", true, false, 1, true},
		{"vertical only", false, true, 0, true},
		{"none", false, false, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, ok := flipCode(tc.hflip, tc.vflip)

			if code != tc.wantCode || ok != tc.wantOK {
				t.Errorf("flipCode(%v, %v) = (%d, %v), expected (%d, %v)",
					tc.hflip, tc.vflip, code, ok, tc.wantCode, tc.wantOK)
			}
		})
	}
}

func TestFitWindow(t *testing.T) {

	t.Run("matching dimensions need no adjustment", func(t *testing.T) {
		resizeTo, crop := fitWindow(640, 480, 640, 480)

		if resizeTo != (image.Point{}) {
			t.Errorf("expected no resize, got %v", resizeTo)
		}

		if !crop.Empty() {
			t.Errorf("expected no crop, got %v", crop)
		}
	})

	t.Run("wider camera is scaled to height and centre cropped", func(t *testing.T) {
		// 1280x720 camera into a 640x480 window, the height scale 2/3
		// dominates, giving an 854x480 frame cropped to the centre 640
		resizeTo, crop := fitWindow(1280, 720, 640, 480)

		want := image.Point{X: 854, Y: 480}

		if resizeTo != want {
			t.Errorf("expected resize to %v, got %v", want, resizeTo)
		}

		wantCrop := image.Rect(107, 0, 747, 480)

		if crop != wantCrop {
			t.Errorf("expected crop %v, got %v", wantCrop, crop)
		}
	})

	t.Run("same aspect scales without crop margin", func(t *testing.T) {
		resizeTo, crop := fitWindow(320, 240, 640, 480)

		if resizeTo != (image.Point{X: 640, Y: 480}) {
			t.Errorf("expected resize to 640x480, got %v", resizeTo)
		}

		if crop != image.Rect(0, 0, 640, 480) {
			t.Errorf("expected full frame crop, got %v", crop)
		}
	})
}
