package transcode

import (
	"errors"
	"os"

	"github.com/dhowden/tag"
)

// Tags is the embedded metadata of an audio file.
type Tags struct {
	Title  string `json:"title,omitempty" msgpack:"title,omitempty"`
	Artist string `json:"artist,omitempty" msgpack:"artist,omitempty"`
	Album  string `json:"album,omitempty" msgpack:"album,omitempty"`
	Genre  string `json:"genre,omitempty" msgpack:"genre,omitempty"`
	Year   int    `json:"year,omitempty" msgpack:"year,omitempty"`
}

// Empty reports whether no tag was found.
func (t Tags) Empty() bool { return t == Tags{} }

// ReadTags reads ID3, MP4, FLAC or OGG tags from path. A file without tags
// yields empty Tags and no error.
func ReadTags(path string) (Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tags{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return Tags{}, nil
		}
		return Tags{}, err
	}
	return Tags{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Genre:  m.Genre(),
		Year:   m.Year(),
	}, nil
}
