// Package fields crops the named rectangles of a document layout out of a
// normalized raster and stacks them for single-call recognition engines.
package fields

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// ErrInvalidLayout is returned by Layout.Validate.
var ErrInvalidLayout = errors.New("invalid layout")

// Descriptor is one named field of a layout, in normalized pixel space.
type Descriptor struct {
	Name        string                 `json:"name"         yaml:"name"`
	UpperLeft   raster.NormalizedPoint `json:"upper_left"   yaml:"upper_left"`
	LowerRight  raster.NormalizedPoint `json:"lower_right"  yaml:"lower_right"`
	IsMultiline bool                   `json:"is_multiline" yaml:"is_multiline"`
}

// Rect rounds the descriptor to pixels: the origin is the rounded upper-left
// corner and the size is the rounded extent.
func (d Descriptor) Rect() image.Rectangle {
	origin := d.UpperLeft.Round()
	w := int(math.Round(d.LowerRight.X - d.UpperLeft.X))
	h := int(math.Round(d.LowerRight.Y - d.UpperLeft.Y))
	return image.Rect(origin.X, origin.Y, origin.X+w, origin.Y+h)
}

// Layout is a document type's field set together with the pixel size of
// the reference image the fields were drawn on.
type Layout struct {
	Name   string       `json:"name,omitempty" yaml:"name,omitempty"`
	Width  float64      `json:"width"          yaml:"width"`
	Height float64      `json:"height"         yaml:"height"`
	Fields []Descriptor `json:"fields"         yaml:"fields"`
}

// Dimensions returns the normalization target size.
func (l Layout) Dimensions() (int, int) {
	return int(math.Round(l.Width)), int(math.Round(l.Height))
}

// Validate checks authoring errors: positive size, unique names, and
// non-crossed rectangles inside the layout bounds.
func (l Layout) Validate() error {
	w, h := l.Dimensions()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidLayout, w, h)
	}
	if len(l.Fields) == 0 {
		return fmt.Errorf("%w: no fields", ErrInvalidLayout)
	}
	bounds := image.Rect(0, 0, w, h)
	seen := make(map[string]struct{}, len(l.Fields))
	for i, f := range l.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: field %d has no name", ErrInvalidLayout, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidLayout, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.LowerRight.X <= f.UpperLeft.X || f.LowerRight.Y <= f.UpperLeft.Y {
			return fmt.Errorf("%w: field %q lower_right must exceed upper_left", ErrInvalidLayout, f.Name)
		}
		if r := f.Rect(); r.Empty() || !r.In(bounds) {
			return fmt.Errorf("%w: field %q %v outside %v", ErrInvalidLayout, f.Name, r, bounds)
		}
	}
	return nil
}

// ParseLayout decodes a layout in JSON or YAML. format is a file
// extension ("json", "yaml", "yml"); anything else is tried as JSON.
func ParseLayout(data []byte, format string) (*Layout, error) {
	var l Layout
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("parse yaml layout: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, fmt.Errorf("parse json layout: %w", err)
		}
	}
	return &l, nil
}

// LoadLayout reads and validates a layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: layout path is user supplied
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	l, err := ParseLayout(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}
