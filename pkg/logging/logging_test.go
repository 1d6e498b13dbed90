package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"warn", logrus.WarnLevel},
		{"trace", logrus.TraceLevel},
		{"", logrus.InfoLevel},
		{"loud", logrus.InfoLevel},
	}
	for _, tt := range tests {
		if got := New(tt.level, &bytes.Buffer{}).GetLevel(); got != tt.want {
			t.Errorf("New(%q).GetLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestNewWritesFields(t *testing.T) {
	var buf bytes.Buffer
	New("info", &buf).WithField("bpm", 120).Info("playback started")
	assert.Contains(t, buf.String(), "playback started")
	assert.Contains(t, buf.String(), "bpm=120")
}

func TestToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "stepseq.log")
	logger := New("info", &bytes.Buffer{})
	closer, err := ToFile(logger, path)
	require.NoError(t, err)

	logger.Warn("port vanished")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port vanished")
}
