// Package camera captures frames from a V4L2 or USB camera device and
// normalizes them to the requested display dimensions, scaling up and centre
// cropping when the device's native aspect ratio differs.
package camera

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// RoundUp rounds value up to the next multiple of n
func RoundUp(value, n int) int {
	return (value + n - 1) / n * n
}

// RoundBufferDims rounds the requested capture dimensions up to the hardware
// buffer alignment, width to a multiple of 32 and height to a multiple of 16
func RoundBufferDims(width, height int) (int, int) {
	return RoundUp(width, 32), RoundUp(height, 16)
}

// flipCode maps the horizontal and vertical flip settings to an OpenCV flip
// code.  ok is false when no flip is needed.
func flipCode(hflip, vflip bool) (code int, ok bool) {
	switch {
	case hflip && vflip:
		return -1, true
	case hflip:
		return 1, true
	case vflip:
		return 0, true
	}

	return 0, false
}

// fitWindow works out how a native video frame is scaled up and centre
// cropped to fill the requested window.  A zero resize point means no resize
// is needed, an empty crop rectangle means no crop is needed.
func fitWindow(videoWidth, videoHeight, width, height int) (image.Point, image.Rectangle) {

	if videoWidth == width && videoHeight == height {
		return image.Point{}, image.Rectangle{}
	}

	// scale up on the tighter axis so the frame covers the whole window
	scale := math.Max(
		float64(width)/float64(videoWidth),
		float64(height)/float64(videoHeight),
	)

	resizeWidth := int(math.Ceil(scale * float64(videoWidth)))
	resizeHeight := int(math.Ceil(scale * float64(videoHeight)))

	var resizeTo image.Point

	if scale != 1.0 {
		resizeTo = image.Point{X: resizeWidth, Y: resizeHeight}
	}

	widthMargin := (resizeWidth - width) / 2
	heightMargin := (resizeHeight - height) / 2

	crop := image.Rect(widthMargin, heightMargin,
		widthMargin+width, heightMargin+height)

	return resizeTo, crop
}

// Camera captures frames from a video device
type Camera struct {
	cap      *gocv.VideoCapture
	width    int
	height   int
	resizeTo image.Point
	crop     image.Rectangle
	flip     int
	hasFlip  bool
}

// Open opens the given capture device and prepares the resize, crop and flip
// steps needed to produce width x height frames from it
func Open(device int, width, height int, hflip, vflip bool) (*Camera, error) {

	vc, err := gocv.OpenVideoCapture(device)

	if err != nil {
		return nil, fmt.Errorf("error opening capture device %d: %w",
			device, err)
	}

	videoWidth := int(vc.Get(gocv.VideoCaptureFrameWidth))
	videoHeight := int(vc.Get(gocv.VideoCaptureFrameHeight))

	if videoWidth == 0 || videoHeight == 0 {
		vc.Close()
		return nil, fmt.Errorf("capture device %d reports no frame dimensions",
			device)
	}

	c := &Camera{
		cap:    vc,
		width:  width,
		height: height,
	}

	c.resizeTo, c.crop = fitWindow(videoWidth, videoHeight, width, height)
	c.flip, c.hasFlip = flipCode(hflip, vflip)

	return c, nil
}

// Read captures the next frame into img, scaled, cropped and flipped to the
// camera's configured dimensions
func (c *Camera) Read(img *gocv.Mat) error {

	if ok := c.cap.Read(img); !ok {
		return fmt.Errorf("unable to read frame from capture device")
	}

	if img.Empty() {
		return fmt.Errorf("capture device returned an empty frame")
	}

	if c.resizeTo != (image.Point{}) {
		gocv.Resize(*img, img, c.resizeTo, 0, 0, gocv.InterpolationLinear)
	}

	if !c.crop.Empty() {
		region := img.Region(c.crop)
		cropped := region.Clone()
		region.Close()
		cropped.CopyTo(img)
		cropped.Close()
	}

	if c.hasFlip {
		gocv.Flip(*img, img, c.flip)
	}

	return nil
}

// Width returns the configured frame width
func (c *Camera) Width() int {
	return c.width
}

// Height returns the configured frame height
func (c *Camera) Height() int {
	return c.height
}

// Close releases the capture device
func (c *Camera) Close() error {
	return c.cap.Close()
}
