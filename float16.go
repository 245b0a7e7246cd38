package tflitedetect

import "github.com/x448/float16"

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// float16BufferToFloat32 converts a raw little-endian float16 tensor buffer
// to float32 as Go has no native FP16 support
func float16BufferToFloat32(raw []uint8) []float32 {

	buf := make([]float32, len(raw)/2)

	for i := range buf {
		bits := uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
		buf[i] = f16LookupTable[bits]
	}

	return buf
}
