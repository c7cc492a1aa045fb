package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// CameraFileName tags frame grabs so they are distinguishable from uploads
// in stored records.
const CameraFileName = "camera-capture.jpg"

// frameJPEGQuality matches the canvas encoding quality of the original
// capture flow (0.8).
const frameJPEGQuality = 80

// Constraints describe the requested video stream geometry.
type Constraints struct {
	Width       int
	Height      int
	FacingFront bool
}

// DefaultConstraints is the ideal capture geometry: 640x480, front-facing.
func DefaultConstraints() Constraints {
	return Constraints{Width: 640, Height: 480, FacingFront: true}
}

// VideoStream is an acquired camera stream.
type VideoStream interface {
	Stream
	// Frame returns the current video frame.
	Frame() (image.Image, error)
}

// VideoDevice acquires camera streams. Open fails with a user-facing error
// when permission is denied or no camera exists.
type VideoDevice interface {
	Open(ctx context.Context, c Constraints) (VideoStream, error)
}

// StartCamera acquires a video stream from dev. A previously held camera
// stream is released first: the device handle is exclusive, so two live
// streams must never coexist. On failure the captured media is untouched and
// the error surfaces to the caller.
func (s *Surface) StartCamera(ctx context.Context, dev VideoDevice) error {
	s.StopCamera()

	stream, err := dev.Open(ctx, DefaultConstraints())
	if err != nil {
		return fmt.Errorf("could not access camera: %w", err)
	}
	s.camera = stream
	return nil
}

// StopCamera releases all camera tracks. Safe to call when no camera is
// active.
func (s *Surface) StopCamera() {
	if s.camera == nil {
		return
	}
	stopTracks(s.camera)
	s.camera = nil
}

// CaptureFrame grabs the current camera frame, mirrors it horizontally so the
// stored image matches what the user saw in the preview, encodes it as JPEG
// and sets it as the image source. The camera stream stays live for retakes.
func (s *Surface) CaptureFrame() error {
	if s.camera == nil {
		return fmt.Errorf("no active camera stream")
	}
	frame, err := s.camera.Frame()
	if err != nil {
		return fmt.Errorf("could not read camera frame: %w", err)
	}

	data, err := encodeFrame(frame, DefaultConstraints())
	if err != nil {
		return err
	}
	s.image = &Media{Name: CameraFileName, Data: data, Source: SourceCamera}
	return nil
}

// encodeFrame scales the frame to the constraint geometry, mirrors it
// horizontally and encodes JPEG at the capture quality.
func encodeFrame(frame image.Image, c Constraints) ([]byte, error) {
	scaled := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	mirrored := image.NewRGBA(scaled.Bounds())
	for y := 0; y < c.Height; y++ {
		for x := 0; x < c.Width; x++ {
			mirrored.Set(c.Width-1-x, y, scaled.At(x, y))
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, mirrored, &jpeg.Options{Quality: frameJPEGQuality}); err != nil {
		return nil, fmt.Errorf("could not encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
