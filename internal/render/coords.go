// Package render draws captured values onto the scanned form image.
package render

import (
	"encoding/json"
	"fmt"
	"os"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Coordinates maps a field label to the pixel where its value is written.
// The file is meant to be corrected by hand between runs.
type Coordinates map[string]Point

func LoadCoordinates(path string) (Coordinates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coordinates: %w", err)
	}
	var c Coordinates
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse coordinates: %w", err)
	}
	if c == nil {
		c = Coordinates{}
	}
	return c, nil
}

// SaveCoordinates writes c with two-space indentation, keys sorted.
func SaveCoordinates(path string, c Coordinates) error {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal coordinates: %w", err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write coordinates: %w", err)
	}
	return nil
}
