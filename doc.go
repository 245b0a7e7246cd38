/*
tflitedetect runs object detection models compiled for TensorFlow Lite and
turns their raw output tensors into labeled bounding boxes suitable for
real-time display.

Two model families are supported: SSD MobileNet style models whose outputs
are already decoded bounding boxes, and YOLO (v3-tiny, v3, v4) models whose
outputs are raw anchor-grid predictions that need manual box reconstruction
and Non-Maximum Suppression.  Post processing for both lives in the
postprocess subpackage, the frame loop orchestration in detector, webcam
capture in camera and overlay drawing in render.

See example code and usage in the example subdirectory.
*/
package tflitedetect
