package extractor

import (
	"fmt"
	"strings"
	"time"
)

// Stats is the human-readable summary that accompanies a feature vector.
type Stats struct {
	TempoBPM            float64       `json:"tempo_bpm" msgpack:"tempo_bpm"`
	SpectralCentroidHz  float64       `json:"spectral_centroid_hz" msgpack:"spectral_centroid_hz"`
	SpectralBandwidthHz float64       `json:"spectral_bandwidth_hz" msgpack:"spectral_bandwidth_hz"`
	RMSEnergy           float64       `json:"rms_energy" msgpack:"rms_energy"`
	Duration            time.Duration `json:"duration" msgpack:"duration"`
	Frames              int           `json:"frames" msgpack:"frames"`
}

// StatLine is one labelled, formatted statistic.
type StatLine struct {
	Name  string
	Value string
}

// Lines returns the statistics in display order.
func (s Stats) Lines() []StatLine {
	return []StatLine{
		{Name: "Tempo", Value: fmt.Sprintf("%.2f BPM", s.TempoBPM)},
		{Name: "Spectral Centroid", Value: fmt.Sprintf("%.2f Hz", s.SpectralCentroidHz)},
		{Name: "Spectral Bandwidth", Value: fmt.Sprintf("%.2f Hz", s.SpectralBandwidthHz)},
		{Name: "RMS Energy", Value: fmt.Sprintf("%.4f", s.RMSEnergy)},
	}
}

// Summary renders Lines as "Name: Value" rows.
func (s Stats) Summary() string {
	var b strings.Builder
	for _, l := range s.Lines() {
		fmt.Fprintf(&b, "%s: %s\n", l.Name, l.Value)
	}
	return b.String()
}
