package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces 16-bit little-endian stereo
const (
	mp3Channels    = 2
	mp3BytesPerVal = 2
)

type mp3Decoder struct {
	file *os.File
	dec  *mp3.Decoder
	info StreamInfo
	raw  []byte
}

// OpenMP3 opens an MPEG-1/2 Layer III file.
func OpenMP3(path string) (Decoder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec, err := mp3.NewDecoder(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	return &mp3Decoder{
		file: file,
		dec:  dec,
		info: StreamInfo{
			SampleRate: dec.SampleRate(),
			Channels:   mp3Channels,
			BitDepth:   8 * mp3BytesPerVal,
		},
	}, nil
}

func (d *mp3Decoder) Info() StreamInfo { return d.info }

func (d *mp3Decoder) Read(buf []float64) (int, error) {
	want := frameAligned(len(buf), mp3Channels)
	if want == 0 {
		return 0, fmt.Errorf("buffer too small for %d channels", mp3Channels)
	}

	size := want * mp3BytesPerVal
	if cap(d.raw) < size {
		d.raw = make([]byte, size)
	}
	raw := d.raw[:size]

	// go-mp3 may return short reads mid-stream; fill as much as possible
	// so callers see whole frames.
	n, err := io.ReadFull(d.dec, raw)
	if err == io.EOF {
		return 0, io.EOF
	}
	if err != nil && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("failed to read mp3 samples: %w", err)
	}

	samples := frameAligned(n/mp3BytesPerVal, mp3Channels)
	if samples == 0 {
		return 0, io.EOF
	}
	scale := intScale(8 * mp3BytesPerVal)
	for i := 0; i < samples; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*mp3BytesPerVal:]))
		buf[i] = float64(v) / scale
	}
	return samples, nil
}

func (d *mp3Decoder) Close() error {
	return d.file.Close()
}
