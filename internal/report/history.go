package report

import (
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/modbisect/internal/harness"
	"gopkg.in/yaml.v3"
)

// History is the YAML document written after a search or survey.
type History struct {
	RunID   string          `yaml:"run_id"`
	Command string          `yaml:"command"`
	Symptom string          `yaml:"symptom,omitempty"`
	Result  []string        `yaml:"result,omitempty"`
	Runs    []harness.Stats `yaml:"runs"`
}

// WriteHistory encodes h as YAML.
func WriteHistory(w io.Writer, h History) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(h); err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	return enc.Close()
}

// SaveHistory writes h to path, replacing any existing file.
func SaveHistory(path string, h History) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating history file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteHistory(f, h)
}

// ReadHistory decodes a document written by WriteHistory.
func ReadHistory(r io.Reader) (History, error) {
	var h History
	if err := yaml.NewDecoder(r).Decode(&h); err != nil {
		return h, fmt.Errorf("decoding history: %w", err)
	}
	return h, nil
}
