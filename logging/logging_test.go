package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewDefaultLoggerWithWriters(&stdout, &stderr)

	l.Debug("hidden")
	l.Info("decoded", Fields{"path": "a.wav"})
	l.Warn("slow")
	l.Error(errors.New("boom"), "failed")

	assert.NotContains(t, stdout.String(), "hidden")
	assert.Contains(t, stdout.String(), "[INFO] decoded path=a.wav")
	assert.Contains(t, stderr.String(), "[WARN] slow")
	assert.Contains(t, stderr.String(), "[ERROR] failed: boom")
}

func TestChildLoggersShareLevel(t *testing.T) {
	var stdout, stderr bytes.Buffer
	root := NewDefaultLoggerWithWriters(&stdout, &stderr)
	child := root.WithFields(Fields{"component": "extractor"})

	root.SetLevel(DebugLevel)
	child.Debug("frame", Fields{"n": 3})

	assert.Contains(t, stdout.String(), "[DEBUG] frame component=extractor n=3")
}

func TestFatalExits(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewDefaultLoggerWithWriters(&stdout, &stderr)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal(errors.New("no artifacts"), "cannot start")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "[FATAL] cannot start: no artifacts")
}

func TestWithContextFields(t *testing.T) {
	var stdout, stderr bytes.Buffer
	l := NewDefaultLoggerWithWriters(&stdout, &stderr)

	ctx := ContextWithFields(context.Background(), Fields{"request": "r1"})
	ctx = ContextWithFields(ctx, Fields{"path": "song.mp3"})
	l.WithContext(ctx).Info("analyzing")

	assert.Contains(t, stdout.String(), "path=song.mp3 request=r1")

	fields, ok := FieldsFromContext(context.Background())
	assert.False(t, ok)
	assert.Nil(t, fields)
}

func TestGlobalLoggerNilFallsBackToNoOp(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
	Info("dropped")
}
