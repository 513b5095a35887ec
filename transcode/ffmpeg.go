package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-mood/logging"
)

// probeInfo holds the stream properties ffprobe reports.
type probeInfo struct {
	SampleRate int
	Channels   int
	Codec      string
	Duration   float64
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

func (d *Decoder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := d.config.Timeout(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

// probe asks ffprobe for the first audio stream of path.
func (d *Decoder) probe(ctx context.Context, path string) (*probeInfo, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFprobePath,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_type,codec_name,sample_rate,channels,duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, commandError("ffprobe", err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	for _, s := range parsed.Streams {
		if s.CodecType != "audio" {
			continue
		}
		info := &probeInfo{Channels: s.Channels, Codec: s.CodecName}
		info.SampleRate, _ = strconv.Atoi(s.SampleRate)
		info.Duration, _ = strconv.ParseFloat(s.Duration, 64)
		return info, nil
	}
	return nil, fmt.Errorf("no audio stream found")
}

// decodeFFmpeg converts path to mono float64 PCM at the target rate.
func (d *Decoder) decodeFFmpeg(ctx context.Context, path string) (*pcm, error) {
	logger := d.logger.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "decodeFFmpeg",
		"filename":  path,
	})

	info, err := d.probe(ctx, path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": info.SampleRate,
		"input_channels":    info.Channels,
		"input_codec":       info.Codec,
		"input_duration":    info.Duration,
	})

	args := []string{"-v", "error", "-i", path}
	if limit := d.config.MaxDuration(); limit > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", limit.Seconds()))
	}
	args = append(args,
		"-map", "0:a:0",
		"-vn",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(d.config.SampleRate),
		"-af", fmt.Sprintf("aresample=%d:resampler=soxr", d.config.SampleRate),
		"pipe:1",
	)

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	logger.Debug("Running FFmpeg command", logging.Fields{
		"command": d.config.FFmpegPath + " " + strings.Join(args, " "),
	})

	out, err := cmd.Output()
	if err != nil {
		return nil, commandError("ffmpeg", err)
	}

	return &pcm{
		samples:        bytesToFloat64(out),
		sampleRate:     d.config.SampleRate,
		channels:       1,
		sourceRate:     info.SampleRate,
		sourceChannels: info.Channels,
	}, nil
}

func commandError(tool string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s failed: %w, stderr: %s", tool, err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("%s failed: %w", tool, err)
}

// bytesToFloat64 decodes little-endian float64 samples, dropping a trailing
// partial sample.
func bytesToFloat64(data []byte) []float64 {
	samples := make([]float64, len(data)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return samples
}
