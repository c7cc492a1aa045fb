package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// RecordingFileName tags assembled microphone recordings.
const RecordingFileName = "recording.wav"

// Format describes the PCM stream delivered by an audio device.
type Format struct {
	SampleRate int
	BitDepth   int
	Channels   int
}

// DefaultFormat is the recorder's capture format: 16 kHz mono, 16-bit.
func DefaultFormat() Format {
	return Format{SampleRate: 16000, BitDepth: 16, Channels: 1}
}

// AudioStream is an acquired microphone stream delivering PCM sample chunks.
type AudioStream interface {
	Stream
	// Read returns the next chunk of interleaved PCM samples, io.EOF when
	// the stream ends.
	Read() ([]int, error)
}

// AudioDevice acquires microphone streams.
type AudioDevice interface {
	Open(ctx context.Context, f Format) (AudioStream, error)
}

// Recorder accumulates PCM chunks from a live stream and assembles them into
// a single WAV payload on stop.
type Recorder struct {
	stream AudioStream
	format Format
	chunks [][]int
}

// StartRecording acquires a microphone stream and begins accumulating. A
// previous recording session is released first.
func (s *Surface) StartRecording(ctx context.Context, dev AudioDevice) error {
	if s.recorder != nil {
		s.recorder.release()
		s.recorder = nil
	}

	stream, err := dev.Open(ctx, DefaultFormat())
	if err != nil {
		return fmt.Errorf("could not access microphone: %w", err)
	}
	s.recorder = &Recorder{stream: stream, format: DefaultFormat()}
	return nil
}

// RecordChunk pulls one PCM chunk from the live stream. Returns io.EOF when
// the stream is exhausted.
func (s *Surface) RecordChunk() error {
	if s.recorder == nil {
		return errors.New("no active recording")
	}
	return s.recorder.capture()
}

// RecordAll drains the stream until io.EOF. Used with file-backed streams
// and in tests; a live microphone stream is drained chunk by chunk instead.
func (s *Surface) RecordAll() error {
	if s.recorder == nil {
		return errors.New("no active recording")
	}
	for {
		if err := s.recorder.capture(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// StopRecording assembles the accumulated chunks into a WAV payload, stops
// the microphone tracks and sets the result as the audio source.
func (s *Surface) StopRecording() error {
	if s.recorder == nil {
		return errors.New("no active recording")
	}
	media, err := s.recorder.stop()
	s.recorder = nil
	if err != nil {
		return err
	}
	s.audio = media
	return nil
}

func (r *Recorder) capture() error {
	chunk, err := r.stream.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("could not read audio chunk: %w", err)
	}
	if len(chunk) > 0 {
		r.chunks = append(r.chunks, chunk)
	}
	return nil
}

// stop assembles the WAV blob and always releases the stream tracks, even
// when encoding fails.
func (r *Recorder) stop() (*Media, error) {
	defer r.release()

	total := 0
	for _, c := range r.chunks {
		total += len(c)
	}
	samples := make([]int, 0, total)
	for _, c := range r.chunks {
		samples = append(samples, c...)
	}

	data, err := encodeWAV(samples, r.format)
	if err != nil {
		return nil, err
	}
	return &Media{Name: RecordingFileName, Data: data, Source: SourceMicrophone}, nil
}

func (r *Recorder) release() {
	stopTracks(r.stream)
}

// encodeWAV writes PCM samples into a single in-memory WAV blob.
func encodeWAV(samples []int, f Format) ([]byte, error) {
	var buf seekBuffer
	enc := wav.NewEncoder(&buf, f.SampleRate, f.BitDepth, f.Channels, 1)

	intBuf := &audio.IntBuffer{
		Data:           samples,
		Format:         &audio.Format{NumChannels: f.Channels, SampleRate: f.SampleRate},
		SourceBitDepth: f.BitDepth,
	}
	if err := enc.Write(intBuf); err != nil {
		return nil, fmt.Errorf("could not write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("could not finalize WAV: %w", err)
	}
	return buf.Bytes(), nil
}

// seekBuffer is a minimal in-memory io.WriteSeeker for the WAV encoder,
// which seeks back to patch the RIFF header on Close.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if need := b.pos + len(p); need > len(b.data) {
		grown := make([]byte, need)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(b.pos) + offset
	case io.SeekEnd:
		pos = int64(len(b.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative seek position")
	}
	b.pos = int(pos)
	return pos, nil
}

func (b *seekBuffer) Bytes() []byte {
	return b.data
}
