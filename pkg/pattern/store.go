package pattern

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Encode writes the pattern as indented JSON
func (p *Pattern) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Record()); err != nil {
		return fmt.Errorf("failed to encode pattern: %w", err)
	}
	return nil
}

// Decode reads a JSON pattern record and validates it
func Decode(r io.Reader) (*Pattern, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern: %w", err)
	}
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return FromRecord(rec)
}

// Save writes the pattern to a JSON file
func (p *Pattern) Save(path string) error {
	data, err := json.MarshalIndent(p.Record(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pattern: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write pattern file: %w", err)
	}
	return nil
}

// Load reads a pattern from a JSON file
func Load(path string) (*Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}
	defer func() { _ = f.Close() }()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return p, nil
}
