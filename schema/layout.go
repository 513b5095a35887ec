package schema

import "fmt"

// Segment names of the genre layout, in vector order.
const (
	Tempo             = "tempo"
	SpectralCentroid  = "spectral_centroid"
	SpectralBandwidth = "spectral_bandwidth"
	SpectralContrast  = "spectral_contrast"
	SpectralRolloff   = "spectral_rolloff"
	Chroma            = "chroma"
	MFCC              = "mfcc"
	RMSEnergy         = "rms_energy"
)

// Segment names of the mood layout.
const (
	Valence = "valence"
	Arousal = "arousal"
)

const (
	// GenreTotal is the declared length of the genre layout.
	GenreTotal = 28
	// MoodTotal is the declared length of the mood layout.
	MoodTotal = 2
)

// Segment is a named run of consecutive vector positions.
type Segment struct {
	Name  string `json:"name" msgpack:"name"`
	Width int    `json:"width" msgpack:"width"`
}

// Layout is an ordered list of segments together with the total length the
// author declared for it. Compose refuses a layout whose widths do not add up.
type Layout struct {
	Name     string    `json:"name" msgpack:"name"`
	Segments []Segment `json:"segments" msgpack:"segments"`
	Total    int       `json:"total" msgpack:"total"`
}

// GenreLayout returns the audio-descriptor layout used by both models.
func GenreLayout() Layout {
	return Layout{
		Name: "genre",
		Segments: []Segment{
			{Name: Tempo, Width: 1},
			{Name: SpectralCentroid, Width: 1},
			{Name: SpectralBandwidth, Width: 1},
			{Name: SpectralContrast, Width: 6},
			{Name: SpectralRolloff, Width: 1},
			{Name: Chroma, Width: 5},
			{Name: MFCC, Width: 12},
			{Name: RMSEnergy, Width: 1},
		},
		Total: GenreTotal,
	}
}

// MoodLayout returns the annotation layout appended after the genre layout.
func MoodLayout() Layout {
	return Layout{
		Name: "mood",
		Segments: []Segment{
			{Name: Valence, Width: 1},
			{Name: Arousal, Width: 1},
		},
		Total: MoodTotal,
	}
}

func (l Layout) width() int {
	sum := 0
	for _, s := range l.Segments {
		sum += s.Width
	}
	return sum
}

func (l Layout) check() error {
	if len(l.Segments) == 0 {
		return &ConfigError{Layout: l.Name, Reason: "no segments"}
	}
	for _, s := range l.Segments {
		if s.Name == "" {
			return &ConfigError{Layout: l.Name, Reason: "segment without a name"}
		}
		if s.Width <= 0 {
			return &ConfigError{Layout: l.Name, Reason: fmt.Sprintf("segment %s has non-positive width", s.Name)}
		}
	}
	if w := l.width(); w != l.Total {
		return &ConfigError{
			Layout: l.Name,
			Reason: fmt.Sprintf("segment widths sum to %d but total is declared as %d", w, l.Total),
		}
	}
	return nil
}
