package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Range is a half-open index range [Start, End) within a feature vector.
type Range struct {
	Start int `json:"start" msgpack:"start"`
	End   int `json:"end" msgpack:"end"`
}

// Width returns End - Start.
func (r Range) Width() int { return r.End - r.Start }

// Placement is a segment positioned inside a composed schema.
type Placement struct {
	Segment
	Range
	Group string `json:"group" msgpack:"group"`
}

// Schema is the composed feature layout: the genre segments at the head of
// the vector and the mood segments at its tail. A Schema is immutable once
// built.
type Schema struct {
	placements []Placement
	index      map[string]Range
	genreTotal int
	moodTotal  int
	names      []string
	hash       string
}

var defaultSchema *Schema

func init() {
	s, err := Compose(GenreLayout(), MoodLayout())
	if err != nil {
		panic(fmt.Sprintf("schema: built-in layout is invalid: %v", err))
	}
	defaultSchema = s
}

// Default returns the process-wide schema. It is validated during package
// initialisation, so a broken layout stops the program before any component
// can use it.
func Default() *Schema {
	return defaultSchema
}

// Compose concatenates the genre and mood layouts, offsetting the mood
// segments by the genre total.
func Compose(genre, mood Layout) (*Schema, error) {
	if err := genre.check(); err != nil {
		return nil, err
	}
	if err := mood.check(); err != nil {
		return nil, err
	}

	s := &Schema{
		index:      make(map[string]Range, len(genre.Segments)+len(mood.Segments)),
		genreTotal: genre.Total,
		moodTotal:  mood.Total,
	}

	offset := 0
	for _, l := range []Layout{genre, mood} {
		for _, seg := range l.Segments {
			if _, dup := s.index[seg.Name]; dup {
				return nil, &ConfigError{Layout: l.Name, Reason: fmt.Sprintf("duplicate segment name %q", seg.Name)}
			}
			r := Range{Start: offset, End: offset + seg.Width}
			s.index[seg.Name] = r
			s.placements = append(s.placements, Placement{Segment: seg, Range: r, Group: l.Name})
			offset = r.End
		}
	}

	if offset != s.genreTotal+s.moodTotal {
		return nil, &ConfigError{
			Layout: genre.Name + "+" + mood.Name,
			Reason: fmt.Sprintf("composed width %d differs from declared %d", offset, s.genreTotal+s.moodTotal),
		}
	}

	s.names = make([]string, 0, offset)
	var sig strings.Builder
	for _, p := range s.placements {
		fmt.Fprintf(&sig, "%s/%s/%d;", p.Group, p.Name, p.Segment.Width)
		if p.Segment.Width == 1 {
			s.names = append(s.names, p.Name)
			continue
		}
		for i := range p.Segment.Width {
			s.names = append(s.names, fmt.Sprintf("%s_%d", p.Name, i))
		}
	}
	sum := sha256.Sum256([]byte(sig.String()))
	s.hash = hex.EncodeToString(sum[:16])

	return s, nil
}

// TotalLength returns the combined genre and mood length.
func (s *Schema) TotalLength() int { return s.genreTotal + s.moodTotal }

// GenreTotal returns the length of the genre slice [0, GenreTotal).
func (s *Schema) GenreTotal() int { return s.genreTotal }

// MoodTotal returns the length of the mood tail.
func (s *Schema) MoodTotal() int { return s.moodTotal }

// MoodRange returns the index range of the mood tail.
func (s *Schema) MoodRange() Range {
	return Range{Start: s.genreTotal, End: s.genreTotal + s.moodTotal}
}

// Slice returns the index range of a named segment.
func (s *Schema) Slice(name string) (Range, error) {
	r, ok := s.index[name]
	if !ok {
		return Range{}, fmt.Errorf("unknown segment %q", name)
	}
	return r, nil
}

// Segments returns the placed segments in vector order.
func (s *Schema) Segments() []Placement {
	out := make([]Placement, len(s.placements))
	copy(out, s.placements)
	return out
}

// Names returns one feature name per vector index, e.g. "mfcc_3".
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Hash identifies the layout. Two schemas with the same segments in the same
// order share a hash.
func (s *Schema) Hash() string { return s.hash }

// Validate checks that v has the combined length.
func (s *Schema) Validate(v Vector) error {
	if v.Len() != s.TotalLength() {
		return &MismatchError{Component: "schema", Expected: s.TotalLength(), Actual: v.Len()}
	}
	return nil
}

// ValidateGenre checks that v has exactly the genre length.
func (s *Schema) ValidateGenre(v Vector) error {
	if v.Len() != s.genreTotal {
		return &MismatchError{Component: "schema", Expected: s.genreTotal, Actual: v.Len()}
	}
	return nil
}

// GenreSlice returns a view of the leading genre slice of v. Longer vectors
// are accepted and their mood tail ignored.
func (s *Schema) GenreSlice(v Vector) (Vector, error) {
	if v.Len() < s.genreTotal {
		return Vector{}, &MismatchError{Component: "genre slice", Expected: s.genreTotal, Actual: v.Len()}
	}
	return v.Slice(0, s.genreTotal), nil
}

// WithMood appends valence and arousal to a genre-length vector, producing a
// combined-length vector.
func (s *Schema) WithMood(v Vector, valence, arousal float64) (Vector, error) {
	if err := s.ValidateGenre(v); err != nil {
		return Vector{}, err
	}
	values := make([]float64, s.TotalLength())
	copy(values, v.values)
	vr := s.index[Valence]
	ar := s.index[Arousal]
	values[vr.Start] = valence
	values[ar.Start] = arousal
	return Vector{values: values}, nil
}

// WithMood is Default().WithMood.
func WithMood(v Vector, valence, arousal float64) (Vector, error) {
	return defaultSchema.WithMood(v, valence, arousal)
}
