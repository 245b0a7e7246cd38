package tflitedetect

import (
	"testing"
)

func TestInputAttribute(t *testing.T) {

	tests := []struct {
		name    string
		dims    []int
		wantErr bool
		width   int
		height  int
	}{
		{"ssd shape", []int{1, 300, 300, 3}, false, 300, 300},
		{"yolo shape", []int{1, 416, 416, 3}, false, 416, 416},
		{"non batch shape", []int{2, 416, 416, 3}, true, 0, 0},
		{"grayscale", []int{1, 416, 416, 1}, true, 0, 0},
		{"missing dims", []int{416, 416}, true, 0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attr, err := inputAttribute(TensorAttr{Dims: tc.dims, Type: TensorUint8})

			if tc.wantErr {
				if err == nil {
					t.Errorf("expected error for dims %v", tc.dims)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if attr.Width != tc.width || attr.Height != tc.height {
				t.Errorf("expected %dx%d, got %dx%d",
					tc.width, tc.height, attr.Width, attr.Height)
			}
		})
	}
}

func TestElementCount(t *testing.T) {

	tests := []struct {
		name string
		dims []int
		want int
	}{
		{"image tensor", []int{1, 300, 300, 3}, 270000},
		{"scalar", []int{1}, 1},
		{"no dims", nil, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attr := TensorAttr{Dims: tc.dims}

			if got := attr.ElementCount(); got != tc.want {
				t.Errorf("expected %d elements for dims %v, got %d",
					tc.want, tc.dims, got)
			}
		})
	}
}

func TestFloat16BufferToFloat32(t *testing.T) {

	// 1.0 and -2.0 as little-endian float16 bits
	raw := []uint8{0x00, 0x3c, 0x00, 0xc0}

	buf := float16BufferToFloat32(raw)

	if len(buf) != 2 {
		t.Fatalf("expected 2 values, got %d", len(buf))
	}

	if buf[0] != 1.0 || buf[1] != -2.0 {
		t.Errorf("expected [1, -2], got %v", buf)
	}
}

func TestDeqntAffineBuffer(t *testing.T) {

	buf := deqntAffineBuffer([]uint8{0, 128, 255}, 128, 0.5)

	expected := []float32{-64, 0, 63.5}

	for i := range expected {
		if buf[i] != expected[i] {
			t.Errorf("expected %v, got %v", expected, buf)
			break
		}
	}
}
