package tab

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

// Snapshot captures the full tab and window state of the host at one point
// in time. It is the read-only input for an engine run.
type Snapshot struct {
	Tabs    []Tab    `json:"tabs" jsonschema:"title=Tabs"`
	Windows []Window `json:"windows" jsonschema:"title=Windows"`
}

// DecodeSnapshot reads a snapshot in JSON or YAML form.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	if !json.Valid(data) {
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot yaml: %w", err)
		}
	}

	s := &Snapshot{}

	err = json.Unmarshal(data, s)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	return s, nil
}

// LoadSnapshot reads a snapshot from a file.
func LoadSnapshot(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close() //nolint:errcheck // Read-only file.

	return DecodeSnapshot(f)
}

// WindowByID returns the window owning the given ID.
func (s *Snapshot) WindowByID(id int) (Window, bool) {
	for _, w := range s.Windows {
		if w.ID == id {
			return w, true
		}
	}

	return Window{}, false
}
