package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchemaTotals(t *testing.T) {
	s := Default()
	assert.Equal(t, 28, s.GenreTotal())
	assert.Equal(t, 2, s.MoodTotal())
	assert.Equal(t, 30, s.TotalLength())
	assert.Equal(t, Range{Start: 28, End: 30}, s.MoodRange())

	sum := 0
	for _, p := range s.Segments() {
		assert.Equal(t, p.Segment.Width, p.Range.Width(), p.Name)
		sum += p.Segment.Width
	}
	assert.Equal(t, s.TotalLength(), sum)
	assert.Len(t, s.Names(), s.TotalLength())
}

func TestSegmentRanges(t *testing.T) {
	s := Default()
	tests := []struct {
		name string
		want Range
	}{
		{Tempo, Range{0, 1}},
		{SpectralCentroid, Range{1, 2}},
		{SpectralBandwidth, Range{2, 3}},
		{SpectralContrast, Range{3, 9}},
		{SpectralRolloff, Range{9, 10}},
		{Chroma, Range{10, 15}},
		{MFCC, Range{15, 27}},
		{RMSEnergy, Range{27, 28}},
		{Valence, Range{28, 29}},
		{Arousal, Range{29, 30}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := s.Slice(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}

	_, err := s.Slice("loudness")
	assert.Error(t, err)
}

func TestComposeRejectsBadLayouts(t *testing.T) {
	short := GenreLayout()
	short.Total = 27

	dup := MoodLayout()
	dup.Segments = append(dup.Segments, Segment{Name: Tempo, Width: 1})
	dup.Total = 3

	zero := MoodLayout()
	zero.Segments[0].Width = 0
	zero.Total = 1

	tests := []struct {
		name        string
		genre, mood Layout
	}{
		{"declared total disagrees", short, MoodLayout()},
		{"duplicate segment", GenreLayout(), dup},
		{"zero width", GenreLayout(), zero},
		{"empty layout", GenreLayout(), Layout{Name: "mood"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(tt.genre, tt.mood)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig))
			var cfgErr *ConfigError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestHashStability(t *testing.T) {
	a, err := Compose(GenreLayout(), MoodLayout())
	require.NoError(t, err)
	b, err := Compose(GenreLayout(), MoodLayout())
	require.NoError(t, err)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, Default().Hash(), a.Hash())

	g := GenreLayout()
	g.Segments[5], g.Segments[6] = g.Segments[6], g.Segments[5]
	c, err := Compose(g, MoodLayout())
	require.NoError(t, err)
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestValidate(t *testing.T) {
	s := Default()
	genre := NewVector(make([]float64, 28))
	full := NewVector(make([]float64, 30))

	assert.NoError(t, s.ValidateGenre(genre))
	assert.NoError(t, s.Validate(full))

	err := s.ValidateGenre(full)
	require.Error(t, err)
	var mm *MismatchError
	require.True(t, errors.As(err, &mm))
	assert.Equal(t, 28, mm.Expected)
	assert.Equal(t, 30, mm.Actual)
	assert.ErrorIs(t, s.Validate(genre), ErrMismatch)
}

func TestGenreSliceAndWithMood(t *testing.T) {
	s := Default()
	values := make([]float64, 28)
	for i := range values {
		values[i] = float64(i)
	}
	v := NewVector(values)

	combined, err := s.WithMood(v, 0.7, 0.2)
	require.NoError(t, err)
	require.Equal(t, 30, combined.Len())
	assert.Equal(t, 0.7, combined.At(28))
	assert.Equal(t, 0.2, combined.At(29))

	head, err := s.GenreSlice(combined)
	require.NoError(t, err)
	assert.Equal(t, values, head.Values())

	_, err = s.GenreSlice(NewVector(values[:10]))
	assert.ErrorIs(t, err, ErrMismatch)

	_, err = WithMood(combined, 0, 0)
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestVectorIsImmutable(t *testing.T) {
	src := []float64{1, 2, 3}
	v := NewVector(src)
	src[0] = 99
	assert.Equal(t, 1.0, v.At(0))

	out := v.Values()
	out[1] = 99
	assert.Equal(t, 2.0, v.At(1))

	view := v.Slice(1, 3)
	assert.Equal(t, []float64{2, 3}, view.Values())
}

func TestNames(t *testing.T) {
	names := Default().Names()
	assert.Equal(t, "tempo", names[0])
	assert.Equal(t, "spectral_contrast_0", names[3])
	assert.Equal(t, "mfcc_11", names[26])
	assert.Equal(t, "arousal", names[29])
}
