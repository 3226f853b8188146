// Package catalog holds the built-in category hierarchies and loads
// user-supplied ones from YAML or TOML files.
//
// A hierarchy file lists categories in policy order; composites name their
// constituents with include and must come after them:
//
//	kind: statics
//	categories:
//	  - name: Goblet
//	    name_hints: [goblet, chalice]
//	  - name: Bowl
//	    keywords: [ClutterBowl]
//	  - name: Dishware
//	    include: [Goblet, Bowl]
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/studioph/StaticPatcher/internal/category"
)

// Hierarchy kinds shipped with the catalog.
const (
	KindLocations = "locations"
	KindStatics   = "statics"
)

const maxDefinitionFileSize = 4 * 1024 * 1024 // 4MB

// Errors returned by the loaders.
var (
	ErrUnsupportedFormat = errors.New("unsupported hierarchy file format")
	ErrUnknownKind       = errors.New("unknown hierarchy kind")
	ErrKindMismatch      = errors.New("hierarchy kind mismatch")
	ErrUnknownField      = errors.New("unknown field in hierarchy file")
)

//go:embed locations.yaml
var locationsYAML []byte

//go:embed statics.yaml
var staticsYAML []byte

// Format is a hierarchy file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Locations returns the built-in location hierarchy.
func Locations() (*category.Hierarchy, error) {
	return Parse(locationsYAML, FormatYAML)
}

// Statics returns the built-in static hierarchy.
func Statics() (*category.Hierarchy, error) {
	return Parse(staticsYAML, FormatYAML)
}

// Builtin returns the built-in hierarchy of the given kind.
func Builtin(kind string) (*category.Hierarchy, error) {
	switch category.Normalize(kind) {
	case KindLocations:
		return Locations()
	case KindStatics:
		return Statics()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Load returns the hierarchy of the given kind: the built-in one when path
// is empty, otherwise the file at path, whose declared kind must match.
func Load(kind, path string) (*category.Hierarchy, error) {
	if path == "" {
		return Builtin(kind)
	}
	h, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if h.Kind() != category.Normalize(kind) {
		return nil, fmt.Errorf("%s: %w: file declares %q, want %q", path, ErrKindMismatch, h.Kind(), kind)
	}
	return h, nil
}

// LoadFile reads and builds a hierarchy from a YAML or TOML file.
func LoadFile(path string) (*category.Hierarchy, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open hierarchy file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxDefinitionFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read hierarchy file: %w", err)
	}
	if len(data) > maxDefinitionFileSize {
		return nil, fmt.Errorf("hierarchy file %s too large: exceeds %d bytes", path, maxDefinitionFileSize)
	}

	h, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Parse decodes a hierarchy definition and builds it. Unknown fields are
// rejected so that a misspelled criterion does not silently match nothing.
func Parse(data []byte, format Format) (*category.Hierarchy, error) {
	def, err := decode(data, format)
	if err != nil {
		return nil, err
	}
	return category.Build(def)
}

func decode(data []byte, format Format) (category.HierarchyDefinition, error) {
	var def category.HierarchyDefinition

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
			return def, fmt.Errorf("failed to parse yaml hierarchy: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &def)
		if err != nil {
			return def, fmt.Errorf("failed to parse toml hierarchy: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return def, fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(keys, ", "))
		}
	default:
		return def, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	return def, nil
}
