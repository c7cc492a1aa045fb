// Package capture produces ready-to-submit analysis payloads from exactly one
// active source per modality: an uploaded file, a camera frame grab, or a
// microphone recording.
//
// Camera and microphone hardware sits behind the Device interfaces; the
// package owns the lifecycle rules (one active stream per modality, all
// tracks stopped on reset) regardless of where the stream comes from.
package capture

import (
	"errors"
	"fmt"
)

// Mode selects which modalities are required and which endpoint combination
// is submitted.
type Mode string

const (
	ModeImage Mode = "image"
	ModeAudio Mode = "audio"
	ModeBoth  Mode = "both"
)

// ParseMode validates a raw mode string.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeImage, ModeAudio, ModeBoth:
		return Mode(raw), nil
	case "":
		return ModeImage, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want image, audio or both)", raw)
	}
}

// Source identifies where a media payload came from.
type Source string

const (
	SourceFile       Source = "file"
	SourceCamera     Source = "camera"
	SourceMicrophone Source = "microphone"
)

// Media is a captured binary payload.
type Media struct {
	Name   string
	Data   []byte
	Source Source
}

// Track is a single device track (video or audio). Stopping a track releases
// the underlying hardware handle; Active reports whether it is still held.
type Track interface {
	Kind() string
	Stop()
	Active() bool
}

// Stream is an acquired device stream holding one or more tracks.
type Stream interface {
	Tracks() []Track
}

// Payload is the submission-ready combination of captured media.
type Payload struct {
	Mode  Mode
	Image *Media
	Audio *Media
}

// Surface manages capture state for one analysis flow.
type Surface struct {
	mode Mode

	image *Media
	audio *Media

	camera   VideoStream
	recorder *Recorder
}

// NewSurface creates an empty capture surface in the given mode.
func NewSurface(mode Mode) *Surface {
	return &Surface{mode: mode}
}

// Mode returns the active mode.
func (s *Surface) Mode() Mode {
	return s.mode
}

// SetMode switches the required-input combination. Captured media stays; the
// gating in Ready decides what is actually needed.
func (s *Surface) SetMode(mode Mode) {
	s.mode = mode
}

// AttachImageFile sets an uploaded image file as the image source, replacing
// any previous image.
func (s *Surface) AttachImageFile(name string, data []byte) {
	s.image = &Media{Name: name, Data: data, Source: SourceFile}
}

// AttachAudioFile sets an uploaded audio file as the audio source.
func (s *Surface) AttachAudioFile(name string, data []byte) {
	s.audio = &Media{Name: name, Data: data, Source: SourceFile}
}

// Image returns the captured image, nil when none.
func (s *Surface) Image() *Media {
	return s.image
}

// Audio returns the captured audio, nil when none.
func (s *Surface) Audio() *Media {
	return s.audio
}

// Ready reports whether the required inputs for the active mode are present.
// The returned error is user-facing and produced before any network call.
func (s *Surface) Ready() error {
	switch s.mode {
	case ModeImage:
		if s.image == nil {
			return errors.New("an image is required")
		}
	case ModeAudio:
		if s.audio == nil {
			return errors.New("an audio clip is required")
		}
	case ModeBoth:
		if s.image == nil || s.audio == nil {
			return errors.New("both image and audio are required")
		}
	}
	return nil
}

// Payload returns the submission payload for the active mode, or the gating
// error when required inputs are missing.
func (s *Surface) Payload() (*Payload, error) {
	if err := s.Ready(); err != nil {
		return nil, err
	}
	p := &Payload{Mode: s.mode}
	if s.mode == ModeImage || s.mode == ModeBoth {
		p.Image = s.image
	}
	if s.mode == ModeAudio || s.mode == ModeBoth {
		p.Audio = s.audio
	}
	return p, nil
}

// ActiveTracks counts device tracks still held by the surface. After Reset
// this is always zero.
func (s *Surface) ActiveTracks() int {
	count := 0
	if s.camera != nil {
		for _, t := range s.camera.Tracks() {
			if t.Active() {
				count++
			}
		}
	}
	if s.recorder != nil {
		for _, t := range s.recorder.stream.Tracks() {
			if t.Active() {
				count++
			}
		}
	}
	return count
}

// Reset discards all captured media and releases every device track. The
// mode is kept so the user lands back on an empty surface in the same view.
func (s *Surface) Reset() {
	s.StopCamera()
	if s.recorder != nil {
		s.recorder.release()
		s.recorder = nil
	}
	s.image = nil
	s.audio = nil
}

func stopTracks(stream Stream) {
	if stream == nil {
		return
	}
	for _, t := range stream.Tracks() {
		t.Stop()
	}
}
