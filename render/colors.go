package render

import (
	"image/color"

	"gonum.org/v1/gonum/interp"
)

var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}

	// classColors is a list of distinct colors used when painting boxes by
	// class rather than by confidence
	classColors = []color.RGBA{
		{R: 255, G: 56, B: 56, A: 255},   // #FF3838
		{R: 255, G: 112, B: 31, A: 255},  // #FF701F
		{R: 255, G: 178, B: 29, A: 255},  // #FFB21D
		{R: 207, G: 210, B: 49, A: 255},  // #CFD231
		{R: 72, G: 249, B: 10, A: 255},   // #48F90A
		{R: 26, G: 147, B: 52, A: 255},   // #1A9334
		{R: 0, G: 212, B: 187, A: 255},   // #00D4BB
		{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
		{R: 52, G: 69, B: 147, A: 255},   // #344593
		{R: 100, G: 115, B: 255, A: 255}, // #6473FF
		{R: 0, G: 24, B: 236, A: 255},    // #0018EC
		{R: 132, G: 56, B: 255, A: 255},  // #8438FF
		{R: 82, G: 0, B: 133, A: 255},    // #520085
		{R: 255, G: 149, B: 200, A: 255}, // #FF95C8
		{R: 255, G: 55, B: 199, A: 255},  // #FF37C7
		{R: 255, G: 157, B: 151, A: 255}, // #FF9D97
		{R: 44, G: 153, B: 168, A: 255},  // #2C99A8
		{R: 61, G: 219, B: 134, A: 255},  // #3DDB86
		{R: 203, G: 56, B: 255, A: 255},  // #CB38FF
		{R: 146, G: 204, B: 23, A: 255},  // #92CC17
	}
)

// ClassColor returns the palette color for the given class index
func ClassColor(class int) color.RGBA {
	return classColors[class%len(classColors)]
}

// jet colormap channel anchors, each channel is a piecewise linear curve
// over [0, 1]
var (
	jetRed   interp.PiecewiseLinear
	jetGreen interp.PiecewiseLinear
	jetBlue  interp.PiecewiseLinear
)

func init() {
	mustFit(&jetRed,
		[]float64{0, 0.35, 0.66, 0.89, 1},
		[]float64{0, 0, 1, 1, 0.5})
	mustFit(&jetGreen,
		[]float64{0, 0.125, 0.375, 0.64, 0.91, 1},
		[]float64{0, 0, 1, 1, 0, 0})
	mustFit(&jetBlue,
		[]float64{0, 0.11, 0.34, 0.65, 1},
		[]float64{0.5, 1, 1, 0, 0})
}

func mustFit(pl *interp.PiecewiseLinear, xs, ys []float64) {
	if err := pl.Fit(xs, ys); err != nil {
		panic(err)
	}
}

// HeatColor maps a confidence score onto the jet colormap, so that a score
// at the detection threshold renders cold blue and a score of 1.0 renders
// hot red
func HeatColor(prob, threshold float32) color.RGBA {

	t := float64(prob-threshold) / float64(1.0-threshold)

	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	return color.RGBA{
		R: uint8(jetRed.Predict(t) * 255),
		G: uint8(jetGreen.Predict(t) * 255),
		B: uint8(jetBlue.Predict(t) * 255),
		A: 255,
	}
}
