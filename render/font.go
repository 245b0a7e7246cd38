package render

import (
	"fmt"
	"image/color"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the parameters for rendering text on an image using GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding to place around text
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the text label to the bounding box
	Alignment Alignment
	// TTF is an optional TrueType face used instead of the Hershey face,
	// needed for text outside the latin character set
	TTF font.Face
	// TTFSize is the point size TTF was loaded at
	TTFSize float64
}

// DefaultFont returns default font settings
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.5,
		Color:     White,
		Thickness: 1,
		LineType:  gocv.LineAA,
		LeftPad:   4,
		RightPad:  4,
		TopPad:    4,
		BottomPad: 6,
		Alignment: Left,
	}
}

// LoadTTF loads a TTF font file and sets up a font face at the given point
// size on the returned Font
func LoadTTF(fontPath string, size float64) (Font, error) {

	fnt := DefaultFont()

	// load font data
	fontBytes, err := os.ReadFile(fontPath)

	if err != nil {
		return fnt, fmt.Errorf("failed to load font: %w", err)
	}

	// parse the font
	f, err := opentype.Parse(fontBytes)

	if err != nil {
		return fnt, fmt.Errorf("failed to parse font: %w", err)
	}

	// create a type face
	fnt.TTF, err = opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})

	if err != nil {
		return fnt, fmt.Errorf("failed to create type face: %w", err)
	}

	fnt.TTFSize = size

	return fnt, nil
}
