package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavFormatPCM = 1

// wavDecoder streams integer PCM from a RIFF/WAVE file
type wavDecoder struct {
	file *os.File
	dec  *wav.Decoder
	info StreamInfo
	buf  *goaudio.IntBuffer
	bias int // unsigned 8-bit samples are centred on 128
}

// OpenWAV opens an integer PCM WAV file.
func OpenWAV(path string) (Decoder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return nil, errors.New("invalid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		file.Close()
		return nil, fmt.Errorf("wav audio format %d is not integer PCM", dec.WavAudioFormat)
	}

	info := StreamInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if info.Channels <= 0 {
		file.Close()
		return nil, errors.New("wav file reports zero channels")
	}
	switch info.BitDepth {
	case 8, 16, 24, 32:
	default:
		file.Close()
		return nil, fmt.Errorf("unsupported wav bit depth %d", info.BitDepth)
	}

	d := &wavDecoder{
		file: file,
		dec:  dec,
		info: info,
		buf: &goaudio.IntBuffer{
			Format: &goaudio.Format{NumChannels: info.Channels, SampleRate: info.SampleRate},
		},
	}
	if info.BitDepth == 8 {
		d.bias = 128
	}
	return d, nil
}

func (d *wavDecoder) Info() StreamInfo { return d.info }

func (d *wavDecoder) Read(buf []float64) (int, error) {
	want := frameAligned(len(buf), d.info.Channels)
	if want == 0 {
		return 0, fmt.Errorf("buffer too small for %d channels", d.info.Channels)
	}

	if cap(d.buf.Data) < want {
		d.buf.Data = make([]int, want)
	}
	d.buf.Data = d.buf.Data[:want]

	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return 0, fmt.Errorf("failed to read wav samples: %w", err)
	}
	n = frameAligned(n, d.info.Channels)
	if n == 0 {
		return 0, io.EOF
	}

	scale := intScale(d.info.BitDepth)
	for i, s := range d.buf.Data[:n] {
		buf[i] = float64(s-d.bias) / scale
	}
	return n, nil
}

func (d *wavDecoder) Close() error {
	return d.file.Close()
}
