package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/blue-cosmos/object-detection-tflite/postprocess"
	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// boxLabel holds the precalculated rendering details of a box's text label
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// DetectionBoxes renders the bounding boxes around the objects detected.
// Box color runs along the jet colormap from the threshold so low confidence
// detections render cold blue and certain ones hot red.
func DetectionBoxes(img *gocv.Mat, detectResults []postprocess.DetectResult,
	threshold float32, font Font, lineThickness int) {

	// keep a record of all box labels for later rendering
	boxLabels := make([]boxLabel, 0)

	// draw detection boxes
	for _, detResult := range detectResults {

		useClr := HeatColor(detResult.Probability, threshold)

		// draw rectangle around detected object
		rect := image.Rect(detResult.Box.Left, detResult.Box.Top,
			detResult.Box.Right, detResult.Box.Bottom)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		// create text for label
		text := fmt.Sprintf("%s %.2f", detResult.Name, detResult.Probability)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		// Calculate the alignment of text label
		var centerX int

		switch font.Alignment {
		case Center:
			centerX = (detResult.Box.Left + detResult.Box.Right) / 2

		case Right:
			centerX = detResult.Box.Right - (textSize.X / 2) - font.RightPad + (lineThickness / 2)

		case Left:
			fallthrough
		default:
			centerX = detResult.Box.Left + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)
		}

		// Adjust the label position so the text is centered horizontally
		labelPosition := image.Pt(centerX-textSize.X/2, detResult.Box.Top-font.BottomPad)

		// create box for placing text on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			detResult.Box.Top-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, detResult.Box.Top)

		// record label rendering details
		nextLabel := boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		}
		boxLabels = append(boxLabels, nextLabel)
	}

	// draw all precalculated box labels so they are the top most layer on
	// the image and don't get overlapped by neighbouring boxes
	for _, box := range boxLabels {
		// draw box text gets written on
		gocv.Rectangle(img, box.rect, box.clr, -1)

		putLabelText(img, box.text, box.textPos, font)
	}
}

// Stats renders the frame timing and detection count lines in the top left
// corner of the image
func Stats(img *gocv.Mat, elapsed time.Duration, count int, font Font) {

	elapsedText := fmt.Sprintf("Elapsed Time: %.1f[ms]",
		float64(elapsed.Microseconds())/1000.0)
	countText := fmt.Sprintf("Detected Objects: %d", count)

	lineHeight := gocv.GetTextSize(elapsedText, font.Face, font.Scale,
		font.Thickness).Y + font.TopPad

	putLabelText(img, elapsedText, image.Pt(5, 5+lineHeight), font)
	putLabelText(img, countText, image.Pt(5, 5+lineHeight*2), font)
}

// putLabelText writes text at the given baseline position using the TTF
// face when one is loaded, falling back to the fast Hershey vector font
func putLabelText(img *gocv.Mat, text string, pos image.Point, fnt Font) {

	if fnt.TTF == nil {
		gocv.PutTextWithParams(img, text, pos,
			fnt.Face, fnt.Scale, fnt.Color, fnt.Thickness,
			fnt.LineType, false)
		return
	}

	putTTFText(img, text, pos, fnt)
}

// putTTFText rasterizes text with the TTF face onto a transparent image the
// same size as the frame and blends it over.  Slower than the Hershey path
// but supports the full character set of the font.
func putTTFText(img *gocv.Mat, text string, pos image.Point, fnt Font) {

	// create image with text writing
	rgba := image.NewRGBA(image.Rect(0, 0, img.Cols(), img.Rows()))
	draw.Draw(rgba, rgba.Bounds(),
		image.NewUniform(color.RGBA{0, 0, 0, 0}), image.Point{}, draw.Src)

	dr := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(fnt.Color),
		Face: fnt.TTF,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(pos.X * 64),
			Y: fixed.Int26_6(pos.Y * 64),
		},
	}
	dr.DrawString(text)

	// Convert image.RGBA to gocv.Mat
	imgRGBA, err := gocv.NewMatFromBytes(rgba.Bounds().Dy(), rgba.Bounds().Dx(),
		gocv.MatTypeCV8UC4, rgba.Pix)

	// an unrasterizable frame leaves the label off rather than failing the
	// whole overlay
	if imgRGBA.Empty() || err != nil {
		return
	}

	defer imgRGBA.Close()

	gocv.CvtColor(imgRGBA, &imgRGBA, gocv.ColorRGBAToBGR)
	gocv.AddWeighted(*img, 1.0, imgRGBA, 1.0, 0, img)
}
