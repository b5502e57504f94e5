package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Sink consumes rendered mono blocks.
type Sink interface {
	WriteBlock(block []float32) error
}

// RawSink writes headerless little-endian float32 samples.
type RawSink struct {
	w   io.Writer
	buf []byte
}

// NewRawSink returns a RawSink writing to w.
func NewRawSink(w io.Writer) *RawSink {
	return &RawSink{w: w}
}

// WriteBlock appends block to the output.
func (s *RawSink) WriteBlock(block []float32) error {
	n := 4 * len(block)
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	buf := s.buf[:n]
	for i, v := range block {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	_, err := s.w.Write(buf)
	return err
}

const wavFormatFloat = 3 // WAVE_FORMAT_IEEE_FLOAT

// MaxWAVFrames is the longest mono float32 WAV whose RIFF sizes fit in 32
// bits.
const MaxWAVFrames = (math.MaxUint32 - 36) / 4

// WAVSink writes a mono 32-bit IEEE-float WAV file. The header sizes are
// patched by Close, so the writer must be seekable.
type WAVSink struct {
	enc    *wav.Encoder
	buf    *goaudio.IntBuffer
	frames int
}

// NewWAVSink returns a WAVSink writing to w at sampleRate.
func NewWAVSink(w io.WriteSeeker, sampleRate float64) *WAVSink {
	sr := int(sampleRate)
	return &WAVSink{
		enc: wav.NewEncoder(w, sr, 32, 1, wavFormatFloat),
		buf: &goaudio.IntBuffer{
			Format:         &goaudio.Format{NumChannels: 1, SampleRate: sr},
			SourceBitDepth: 32,
		},
	}
}

// WriteBlock appends block. The encoder writes 32-bit words verbatim, so
// each sample travels as its IEEE bit pattern.
func (s *WAVSink) WriteBlock(block []float32) error {
	if s.frames+len(block) > MaxWAVFrames {
		return fmt.Errorf("wav output exceeds %d frames", MaxWAVFrames)
	}
	if cap(s.buf.Data) < len(block) {
		s.buf.Data = make([]int, len(block))
	}
	s.buf.Data = s.buf.Data[:len(block)]
	for i, v := range block {
		s.buf.Data[i] = int(int32(math.Float32bits(v)))
	}
	if err := s.enc.Write(s.buf); err != nil {
		return err
	}
	s.frames += len(block)
	return nil
}

// Close finalizes the header. It does not close the underlying writer.
// At least one block must have been written.
func (s *WAVSink) Close() error {
	if s.frames == 0 {
		return fmt.Errorf("wav output is empty")
	}
	return s.enc.Close()
}

// Render pulls blocks from src into sink. block is reused for every call.
func Render(src BlockSource, sink Sink, block []float32, blocks int) error {
	for i := 0; i < blocks; i++ {
		src.Process(block)
		if err := sink.WriteBlock(block); err != nil {
			return fmt.Errorf("render block %d: %w", i, err)
		}
	}
	return nil
}
