package audio

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// flacDecoder walks FLAC frames, carrying a partially consumed frame
// between reads.
type flacDecoder struct {
	stream *flac.Stream
	info   StreamInfo
	scale  float64

	frame *frame.Frame
	pos   int // next unread sample index within frame
}

// OpenFLAC opens a FLAC file.
func OpenFLAC(path string) (Decoder, error) {
	stream, err := flac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	info := StreamInfo{
		SampleRate: int(stream.Info.SampleRate),
		Channels:   int(stream.Info.NChannels),
		BitDepth:   int(stream.Info.BitsPerSample),
	}
	if info.Channels <= 0 || info.BitDepth <= 0 {
		stream.Close()
		return nil, errors.New("flac stream info is incomplete")
	}

	return &flacDecoder{
		stream: stream,
		info:   info,
		scale:  intScale(info.BitDepth),
	}, nil
}

func (d *flacDecoder) Info() StreamInfo { return d.info }

func (d *flacDecoder) Read(buf []float64) (int, error) {
	channels := d.info.Channels
	frames := len(buf) / channels
	if frames == 0 {
		return 0, fmt.Errorf("buffer too small for %d channels", channels)
	}

	written := 0
	for written < frames {
		if d.frame == nil || d.pos >= len(d.frame.Subframes[0].Samples) {
			f, err := d.stream.ParseNext()
			if err == io.EOF {
				break
			}
			if err != nil {
				return 0, fmt.Errorf("failed to parse flac frame: %w", err)
			}
			if len(f.Subframes) != channels {
				return 0, fmt.Errorf("flac frame has %d subframes, want %d", len(f.Subframes), channels)
			}
			d.frame, d.pos = f, 0
		}

		avail := len(d.frame.Subframes[0].Samples) - d.pos
		n := min(avail, frames-written)
		for i := 0; i < n; i++ {
			for ch, sub := range d.frame.Subframes {
				buf[(written+i)*channels+ch] = float64(sub.Samples[d.pos+i]) / d.scale
			}
		}
		d.pos += n
		written += n
	}

	if written == 0 {
		return 0, io.EOF
	}
	return written * channels, nil
}

func (d *flacDecoder) Close() error {
	return d.stream.Close()
}
