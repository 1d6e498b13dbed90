package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/stepseq/pkg/pattern"
)

// Format is a file format stepseq reads or writes
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatPattern Format = "pattern"
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file from its extension
func DetectFormat(filename string) Format {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mid", ".midi":
		return FormatMIDI
	case ".json":
		return FormatPattern
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects the format from the first bytes of a file
func DetectFormatFromContent(data []byte) Format {
	if len(data) >= 4 && string(data[:4]) == "MThd" {
		return FormatMIDI
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatPattern
	}
	return FormatUnknown
}

// ConvertFile converts a pattern file to MIDI or a MIDI file to a pattern,
// choosing the direction from the file names. bpm applies to pattern input;
// maxRows limits rows created from MIDI input.
func (e *Exporter) ConvertFile(inputPath, outputPath string, bpm float64, maxRows int) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	switch {
	case inputFormat == FormatPattern && outputFormat == FormatMIDI:
		p, err := pattern.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		return e.WriteFile(p, bpm, outputPath)
	case inputFormat == FormatMIDI && outputFormat == FormatPattern:
		p, _, err := Import(data, maxRows)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		return p.Save(outputPath)
	default:
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}
}

// SupportedConversions lists the conversion paths ConvertFile handles
func SupportedConversions() []string {
	return []string{
		"pattern -> midi",
		"midi -> pattern",
	}
}
