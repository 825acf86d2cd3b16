// Package freshness tracks when derived data last changed and caches reads
// against that marker.
package freshness

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNoMarker is returned when the marker file has never been written.
var ErrNoMarker = errors.New("no last-update marker")

type markerFile struct {
	LastUpdate string `json:"last_update"`
}

// Marker is the last-update file written after each completed pipeline run.
type Marker struct {
	path string
}

// NewMarker returns a marker stored at path. Nothing is written until Write.
func NewMarker(path string) *Marker {
	return &Marker{path: path}
}

// Path returns the marker file location.
func (m *Marker) Path() string {
	return m.path
}

// Write records t with sub-second precision, atomically: the payload goes to a temp file in the same
// directory which is then renamed over the marker.
func (m *Marker) Write(t time.Time) error {
	dir := filepath.Dir(m.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}

	data, err := json.Marshal(markerFile{LastUpdate: t.UTC().Format(time.RFC3339Nano)})
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".last_update-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp marker: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp marker: %w", err)
	}
	if err := os.Rename(tmpName, m.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace marker: %w", err)
	}
	return nil
}

// Read returns the recorded time, or ErrNoMarker if the file does not exist.
func (m *Marker) Read() (time.Time, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return time.Time{}, ErrNoMarker
		}
		return time.Time{}, fmt.Errorf("read marker: %w", err)
	}

	var f markerFile
	if err := json.Unmarshal(data, &f); err != nil {
		return time.Time{}, fmt.Errorf("parse marker: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, f.LastUpdate)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse marker time: %w", err)
	}
	return t, nil
}

// Stamp is the raw marker value used as a cache generation. A missing or
// unreadable marker yields "".
func (m *Marker) Stamp() string {
	t, err := m.Read()
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
