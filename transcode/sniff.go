package transcode

import (
	"io"

	"github.com/h2non/filetype"
)

// Format is a container format recognised from file content.
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
	FormatM4A     Format = "m4a"
	FormatAIFF    Format = "aiff"
	FormatUnknown Format = "unknown"
)

// sniffLen is how many leading bytes filetype needs.
const sniffLen = 262

// Sniff identifies the container format from the first bytes of a file.
func Sniff(header []byte) Format {
	kind, err := filetype.Match(header)
	if err != nil || kind == filetype.Unknown {
		return FormatUnknown
	}
	switch kind.Extension {
	case "wav":
		return FormatWAV
	case "mp3":
		return FormatMP3
	case "flac":
		return FormatFLAC
	case "ogg", "opus":
		return FormatOGG
	case "m4a", "mp4", "aac":
		return FormatM4A
	case "aiff":
		return FormatAIFF
	}
	return FormatUnknown
}

// SniffReader sniffs the head of rs and rewinds it.
func SniffReader(rs io.ReadSeeker) (Format, error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(rs, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, err
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return FormatUnknown, err
	}
	return Sniff(header[:n]), nil
}
