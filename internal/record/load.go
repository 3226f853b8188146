package record

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const maxDumpFileSize = 256 * 1024 * 1024 // 256MB

// Errors for record loading.
var (
	ErrInvalidKind = errors.New("invalid record kind")
	ErrMissingID   = errors.New("record id is required")
)

// dumpFile is the on-disk record dump layout.
type dumpFile struct {
	Records []*Entry `yaml:"records"`
}

// LoadFile reads a YAML record dump and builds a Graph.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open record dump: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat record dump: %w", err)
	}
	if info.Size() > maxDumpFileSize {
		return nil, fmt.Errorf("record dump too large: %d bytes (max %d)", info.Size(), maxDumpFileSize)
	}

	g, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load record dump %s: %w", path, err)
	}
	return g, nil
}

// Decode parses a YAML record dump from r.
func Decode(r io.Reader) (*Graph, error) {
	var dump dumpFile
	if err := yaml.NewDecoder(r).Decode(&dump); err != nil {
		if errors.Is(err, io.EOF) {
			return NewGraph(nil), nil
		}
		return nil, fmt.Errorf("failed to decode records: %w", err)
	}

	for i, e := range dump.Records {
		if e == nil {
			continue
		}
		if e.RecordID == "" {
			return nil, fmt.Errorf("record %d: %w", i, ErrMissingID)
		}
		if _, ok := ValidKinds[string(e.Kind)]; !ok {
			return nil, fmt.Errorf("record %s: %w: %q", e.RecordID, ErrInvalidKind, e.Kind)
		}
	}
	return NewGraph(dump.Records), nil
}
