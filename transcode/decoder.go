// Package transcode turns audio files into mono float64 PCM at the analysis
// sample rate. WAV and MP3 are decoded in process; anything else is handed
// to ffmpeg.
package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/logging"
)

// ErrNoAudio is returned when decoding succeeds but yields no samples.
var ErrNoAudio = errors.New("no audio samples decoded")

// AudioData is decoded, downmixed and resampled audio.
type AudioData struct {
	Samples    []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Duration   time.Duration `json:"duration"`

	// Properties of the source before conversion.
	Format           Format `json:"format"`
	SourceSampleRate int    `json:"source_sample_rate"`
	SourceChannels   int    `json:"source_channels"`
}

// pcm is interleaved audio as read from a container.
type pcm struct {
	samples    []float64
	sampleRate int
	channels   int

	// set when an external tool already converted the stream
	sourceRate     int
	sourceChannels int
}

// Decoder decodes audio files according to an AudioConfig.
type Decoder struct {
	config config.AudioConfig
	logger logging.Logger
}

// NewDecoder creates a decoder. A nil logger uses the package default.
func NewDecoder(cfg config.AudioConfig, logger logging.Logger) *Decoder {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Decoder{config: cfg, logger: logger}
}

// DecodeFile decodes the file at path.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*AudioData, error) {
	logger := d.logger.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  path,
	})

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	format, err := SniffReader(f)
	if err != nil {
		return nil, fmt.Errorf("sniff %s: %w", path, err)
	}
	logger.Debug("Detected audio format", logging.Fields{"format": format})

	start := time.Now()
	var raw *pcm
	switch format {
	case FormatWAV:
		raw, err = decodeWAV(f)
		if errors.Is(err, errUnsupportedWAV) {
			logger.Debug("Retrying wav through ffmpeg", logging.Fields{"reason": err.Error()})
			raw, err = d.decodeFFmpeg(ctx, path)
		}
	case FormatMP3:
		raw, err = decodeMP3(f)
	default:
		raw, err = d.decodeFFmpeg(ctx, path)
	}
	if err != nil {
		logger.Error(err, "Failed to decode audio file")
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}

	data, err := d.convert(raw, format)
	if err != nil {
		return nil, err
	}

	logger.Debug("Audio file decoded", logging.Fields{
		"source_sample_rate": data.SourceSampleRate,
		"source_channels":    data.SourceChannels,
		"samples":            len(data.Samples),
		"duration":           data.Duration.Seconds(),
		"decode_time":        time.Since(start).Seconds(),
	})
	return data, nil
}

// DecodeBytes decodes an in-memory WAV or MP3 file. Other formats need a
// path for ffmpeg and are rejected.
func (d *Decoder) DecodeBytes(data []byte) (*AudioData, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty audio data")
	}

	format := Sniff(data)
	var raw *pcm
	var err error
	switch format {
	case FormatWAV:
		raw, err = decodeWAV(bytes.NewReader(data))
	case FormatMP3:
		raw, err = decodeMP3(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("in-memory decoding of %s is not supported", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", format, err)
	}
	return d.convert(raw, format)
}

// convert downmixes, resamples and truncates raw to the configured limits.
func (d *Decoder) convert(raw *pcm, format Format) (*AudioData, error) {
	if raw.channels < 1 || raw.sampleRate <= 0 {
		return nil, fmt.Errorf("invalid stream: %d channels at %d Hz", raw.channels, raw.sampleRate)
	}

	mono := Downmix(raw.samples, raw.channels)
	if limit := d.config.MaxDuration(); limit > 0 {
		maxSamples := int(limit.Seconds() * float64(raw.sampleRate))
		if len(mono) > maxSamples {
			mono = mono[:maxSamples]
		}
	}

	rate := raw.sampleRate
	if target := d.config.SampleRate; target > 0 && target != rate {
		resampled, err := Resample(mono, rate, target, d.config.ResampleQuality)
		if err != nil {
			return nil, err
		}
		mono, rate = resampled, target
	}
	if len(mono) == 0 {
		return nil, ErrNoAudio
	}

	data := &AudioData{
		Samples:          mono,
		SampleRate:       rate,
		Duration:         time.Duration(float64(len(mono)) / float64(rate) * float64(time.Second)),
		Format:           format,
		SourceSampleRate: raw.sampleRate,
		SourceChannels:   raw.channels,
	}
	if raw.sourceRate > 0 {
		data.SourceSampleRate = raw.sourceRate
	}
	if raw.sourceChannels > 0 {
		data.SourceChannels = raw.sourceChannels
	}
	return data, nil
}

// Downmix averages interleaved channels into a mono signal.
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}
	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
