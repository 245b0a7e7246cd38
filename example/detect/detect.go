// Command detect runs live object detection on a camera feed and displays
// the annotated frames in a window.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tflitedetect "github.com/blue-cosmos/object-detection-tflite"
	"github.com/blue-cosmos/object-detection-tflite/camera"
	"github.com/blue-cosmos/object-detection-tflite/detector"
	"github.com/blue-cosmos/object-detection-tflite/postprocess"
	"github.com/blue-cosmos/object-detection-tflite/render"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var log = logrus.New()

// selectModel maps a short model name onto its tflite file and decode
// family.  EdgeTPU compiled model files carry an _edgetpu suffix.
func selectModel(model, modelDir string, tpu bool) (string, detector.Family,
	postprocess.YOLOParams, error) {

	suffix := ".tflite"

	if tpu {
		suffix = "_edgetpu.tflite"
	}

	switch model {
	case "yolov3-tiny":
		return filepath.Join(modelDir, "yolov3-tiny"+suffix),
			detector.FamilyYOLO, postprocess.YOLOv3TinyCOCOParams(), nil

	case "yolov3":
		return filepath.Join(modelDir, "yolov3"+suffix),
			detector.FamilyYOLO, postprocess.YOLOv3COCOParams(), nil

	case "yolov4":
		return filepath.Join(modelDir, "yolov4"+suffix),
			detector.FamilyYOLO, postprocess.YOLOv4COCOParams(), nil

	case "face":
		return filepath.Join(modelDir,
				"mobilenet_ssd_v2_face_quant_postprocess"+suffix),
			detector.FamilySSD, postprocess.YOLOParams{}, nil

	case "coco":
		return filepath.Join(modelDir,
				"mobilenet_ssd_v2_coco_quant_postprocess"+suffix),
			detector.FamilySSD, postprocess.YOLOParams{}, nil
	}

	return "", 0, postprocess.YOLOParams{},
		fmt.Errorf("unknown model %q", model)
}

func main() {

	// read in cli flags
	width := flag.Int("width", 640, "Display frame width")
	height := flag.Int("height", 640, "Display frame height")
	hflip := flag.Bool("hflip", false, "Flip the camera frame horizontally")
	vflip := flag.Bool("vflip", false, "Flip the camera frame vertically")
	tpu := flag.Bool("tpu", false, "Delegate inference to an EdgeTPU accelerator")
	model := flag.String("model", "coco",
		"Model to run [coco|face|yolov3-tiny|yolov3|yolov4]")
	modelDir := flag.String("modeldir", "models",
		"Directory holding the tflite model files")
	labelFile := flag.String("labels", "models/coco_labels.txt",
		"Class labels file")
	target := flag.String("target", "all",
		"Only report detections of this class name")
	threshold := flag.Float64("threshold", detector.DefaultThreshold,
		"Minimum confidence score")
	fontSize := flag.Int("fontsize", 20, "Label font size in points")
	ttfFont := flag.String("font", "", "Optional TTF font file for labels")
	device := flag.Int("device", 0, "Video capture device number")
	workers := flag.Int("workers", 1,
		"Number of pooled interpreters for concurrent inference, CPU only")

	flag.Parse()

	modelPath, family, yoloParams, err := selectModel(*model, *modelDir, *tpu)

	if err != nil {
		log.WithError(err).Fatal("Error selecting model")
	}

	// round the display dimensions up to the capture buffer alignment
	frameWidth, frameHeight := camera.RoundBufferDims(*width, *height)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	cam, err := camera.Open(*device, frameWidth, frameHeight, *hflip, *vflip)

	if err != nil {
		log.WithError(err).Fatal("Error opening camera")
	}

	defer cam.Close()

	// an EdgeTPU can only be claimed by one interpreter, ignore any larger
	// worker count
	if *tpu && *workers > 1 {
		log.Warn("EdgeTPU supports a single interpreter, using 1 worker")
		*workers = 1
	}

	var backend detector.Backend

	if *workers > 1 {
		pool, err := tflitedetect.NewPool(*workers, modelPath, *tpu)

		if err != nil {
			log.WithError(err).Fatal("Error initializing TFLite runtime pool")
		}

		defer pool.Close()
		backend = pool

	} else {
		rt, err := tflitedetect.NewRuntime(modelPath, *tpu)

		if err != nil {
			log.WithError(err).Fatal("Error initializing TFLite runtime")
		}

		defer rt.Close()

		// optional dump of model tensor attributes.  not necessary for
		// production inference code
		rt.Query(os.Stdout)

		backend = rt
	}

	// YOLO models index the label file by line position, SSD models by the
	// printed index
	labels, err := tflitedetect.LoadLabels(*labelFile,
		family == detector.FamilyYOLO)

	if err != nil {
		log.WithError(err).Fatal("Error loading labels")
	}

	det, err := detector.New(detector.Config{
		Family:      family,
		YOLO:        yoloParams,
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		Threshold:   float32(*threshold),
		Target:      *target,
	}, backend, labels)

	if err != nil {
		log.WithError(err).Fatal("Error creating detector")
	}

	fnt := render.DefaultFont()

	if *ttfFont != "" {
		fnt, err = render.LoadTTF(*ttfFont, float64(*fontSize))

		if err != nil {
			log.WithError(err).Fatal("Error loading TTF font")
		}
	}

	window := gocv.NewWindow("Object Detection")
	defer window.Close()
	window.ResizeWindow(frameWidth, frameHeight)

	img := gocv.NewMat()
	defer img.Close()

	log.WithFields(logrus.Fields{
		"model":  modelPath,
		"family": family.String(),
		"frame":  fmt.Sprintf("%dx%d", frameWidth, frameHeight),
	}).Info("Starting detection")

	for ctx.Err() == nil {

		if err := cam.Read(&img); err != nil {
			log.WithError(err).Warn("Error reading frame")
			continue
		}

		frame, err := img.ToImage()

		if err != nil {
			log.WithError(err).Warn("Error converting frame")
			continue
		}

		results, elapsed, err := det.Detect(frame)

		if err != nil {
			// the frame is dropped, the next one starts clean
			log.WithError(err).Warn("Error detecting objects")
			continue
		}

		render.DetectionBoxes(&img, results, float32(*threshold), fnt, 2)
		render.Stats(&img, elapsed, len(results), fnt)

		window.IMShow(img)

		if window.WaitKey(1) == 'q' {
			break
		}
	}

	log.Info("Shutting down")
}
