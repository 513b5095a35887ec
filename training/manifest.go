package training

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// GenreEntry is one row of a genre manifest: path,genre.
type GenreEntry struct {
	Path  string
	Genre string
}

// MoodEntry is one row of a mood manifest: path,valence,arousal.
type MoodEntry struct {
	Path    string
	Valence float64
	Arousal float64
}

// ReadGenreManifest parses a genre manifest. A header row starting with
// "path" is skipped; relative paths are resolved against baseDir.
func ReadGenreManifest(r io.Reader, baseDir string) ([]GenreEntry, error) {
	rows, err := readRows(r, 2)
	if err != nil {
		return nil, err
	}
	entries := make([]GenreEntry, 0, len(rows))
	for _, row := range rows {
		genre := strings.TrimSpace(row.fields[1])
		if genre == "" {
			return nil, fmt.Errorf("line %d: empty genre", row.line)
		}
		entries = append(entries, GenreEntry{Path: resolve(baseDir, row.fields[0]), Genre: genre})
	}
	return entries, nil
}

// ReadMoodManifest parses a mood manifest of mean valence and arousal
// annotations.
func ReadMoodManifest(r io.Reader, baseDir string) ([]MoodEntry, error) {
	rows, err := readRows(r, 3)
	if err != nil {
		return nil, err
	}
	entries := make([]MoodEntry, 0, len(rows))
	for _, row := range rows {
		valence, err := strconv.ParseFloat(strings.TrimSpace(row.fields[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: valence: %w", row.line, err)
		}
		arousal, err := strconv.ParseFloat(strings.TrimSpace(row.fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: arousal: %w", row.line, err)
		}
		entries = append(entries, MoodEntry{Path: resolve(baseDir, row.fields[0]), Valence: valence, Arousal: arousal})
	}
	return entries, nil
}

// OpenManifest opens path and returns it together with the directory that
// relative entries are resolved against.
func OpenManifest(path string) (*os.File, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Dir(path), nil
}

type manifestRow struct {
	line   int
	fields []string
}

func readRows(r io.Reader, columns int) ([]manifestRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	var rows []manifestRow
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rows) == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "path") {
			continue
		}
		if len(record) < columns {
			return nil, fmt.Errorf("line %d: want %d columns, got %d", line, columns, len(record))
		}
		if strings.TrimSpace(record[0]) == "" {
			return nil, fmt.Errorf("line %d: empty path", line)
		}
		rows = append(rows, manifestRow{line: line, fields: record})
	}
	return rows, nil
}

func resolve(baseDir, path string) string {
	path = strings.TrimSpace(path)
	if filepath.IsAbs(path) || baseDir == "" {
		return path
	}
	return filepath.Join(baseDir, path)
}
