package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-mood/extractor"
	"github.com/RyanBlaney/sonido-mood/inference"
	"github.com/RyanBlaney/sonido-mood/transcode"
)

// Report is everything learned about one file.
type Report struct {
	Path       string                    `json:"path" msgpack:"path"`
	Tags       transcode.Tags            `json:"tags,omitzero" msgpack:"tags"`
	Stats      extractor.Stats           `json:"stats" msgpack:"stats"`
	Genre      inference.GenrePrediction `json:"genre" msgpack:"genre"`
	Mood       inference.MoodPrediction  `json:"mood" msgpack:"mood"`
	Features   []float64                 `json:"features" msgpack:"features"`
	AnalyzedAt time.Time                 `json:"analyzed_at" msgpack:"analyzed_at"`
}

// Text renders the report as the plain result block shown to users.
func (r *Report) Text() string {
	var b strings.Builder
	if title := r.Tags.Title; title != "" {
		if r.Tags.Artist != "" {
			title = r.Tags.Artist + " - " + title
		}
		fmt.Fprintf(&b, "Track: %s\n\n", title)
	}

	b.WriteString(r.Stats.Summary())

	fmt.Fprintf(&b, "\nPredicted Genre: %s\n", r.Genre.Label)
	fmt.Fprintf(&b, "Top %d Genre Probabilities:\n", len(r.Genre.Ranked))
	for _, g := range r.Genre.Ranked {
		fmt.Fprintf(&b, "%s: %.2f\n", g.Genre, g.Probability)
	}

	fmt.Fprintf(&b, "\nMood: %s\n", r.Mood.Label)
	fmt.Fprintf(&b, "Valence: %.2f\n", r.Mood.Valence)
	fmt.Fprintf(&b, "Arousal: %.2f\n", r.Mood.Arousal)
	return b.String()
}
