package metadata

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource loads reference data from a YAML file. The file holds
// companies, artists and tags under top-level keys:
//
//	companies:
//	  - id: dac
//	    name: Diamond Art Club
//	tags:
//	  - id: landscape
//	    name: Landscape
//	    color: "#3fb950"
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the watched file path.
func (f *FileSource) Path() string {
	return f.path
}

// LoadMetadata implements Source. A missing file is not an error; it
// yields empty data, matching the empty-cache tolerance of consumers.
func (f *FileSource) LoadMetadata(_ context.Context) (Data, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return Data{}, nil
	}
	if err != nil {
		return Data{}, fmt.Errorf("read metadata file: %w", err)
	}

	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("parse metadata file %s: %w", f.path, err)
	}
	return d, nil
}
