package transcode

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// errUnsupportedWAV marks WAV encodings the in-process decoder cannot read;
// those files are retried through ffmpeg.
var errUnsupportedWAV = errors.New("unsupported wav encoding")

const wavFormatPCM = 1

func decodeWAV(r io.ReadSeeker) (*pcm, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: format tag %d", errUnsupportedWAV, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav pcm: %w", err)
	}

	depth := int(dec.BitDepth)
	if depth < 8 || depth > 32 {
		return nil, fmt.Errorf("%w: %d bits", errUnsupportedWAV, depth)
	}
	full := float64(int64(1) << (depth - 1))
	// 8-bit wav is unsigned
	offset := 0.0
	if depth == 8 {
		offset = full
	}

	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float64(v) - offset) / full
	}
	return &pcm{
		samples:    samples,
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
	}, nil
}
