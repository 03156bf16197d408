// Package wavcodec reads and writes mono 16-bit PCM WAV files, backing
// both the audio source loader and the recording finalizer.
package wavcodec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Decode parses a RIFF/WAVE stream and returns its samples as linear
// PCM16, along with the stream's native sample rate. Stereo input is
// downmixed to mono by averaging channels.
func Decode(r io.Reader) (samples []int16, sampleRate int, err error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wavcodec: decode: %w", err)
	}
	if !dec.WasPCMAccessed() {
		return nil, 0, fmt.Errorf("wavcodec: stream contains no PCM data")
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	frames := len(buf.Data) / channels
	samples = make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int
		for c := 0; c < channels; c++ {
			sum += buf.Data[i*channels+c]
		}
		samples[i] = int16(sum / channels)
	}
	return samples, buf.Format.SampleRate, nil
}

// Encode renders mono 16-bit PCM samples as an in-memory RIFF/WAVE file.
func Encode(samples []int16, sampleRate int) ([]byte, error) {
	seeker := &memSeeker{}
	enc := wav.NewEncoder(seeker, sampleRate, 16, 1, 1)

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wavcodec: encode write: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wavcodec: encode close: %w", err)
	}
	return seeker.buf.Bytes(), nil
}

// memSeeker is a minimal io.WriteSeeker over a growable in-memory buffer,
// needed because wav.NewEncoder requires Seek support (it back-patches the
// RIFF/data chunk sizes on Close) and bytes.Buffer alone does not seek.
type memSeeker struct {
	buf bytes.Buffer
	pos int64
}

func (m *memSeeker) Write(p []byte) (int, error) {
	if m.pos == int64(m.buf.Len()) {
		n, err := m.buf.Write(p)
		m.pos += int64(n)
		return n, err
	}
	// Writing inside the existing buffer (used for the header back-patch).
	existing := m.buf.Bytes()
	end := m.pos + int64(len(p))
	if end > int64(len(existing)) {
		grown := make([]byte, end)
		copy(grown, existing)
		existing = grown
	}
	copy(existing[m.pos:end], p)
	m.buf.Reset()
	m.buf.Write(existing)
	m.pos = end
	return len(p), nil
}

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = m.pos + offset
	case io.SeekEnd:
		newPos = int64(m.buf.Len()) + offset
	default:
		return 0, fmt.Errorf("wavcodec: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("wavcodec: negative seek position")
	}
	m.pos = newPos
	return newPos, nil
}
