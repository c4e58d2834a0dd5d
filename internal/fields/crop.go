package fields

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/docnorm/internal/raster"
)

// ErrFieldOutOfBounds is returned when a rounded field rectangle does not
// fit inside the normalized raster.
var ErrFieldOutOfBounds = errors.New("field out of bounds")

// Crop is a field together with its pixels.
type Crop struct {
	Field  Descriptor
	Raster *raster.Raster
}

// CropAll extracts one crop per descriptor, in input order.
func CropAll(src *raster.Raster, descriptors []Descriptor) ([]Crop, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	crops := make([]Crop, 0, len(descriptors))
	for _, d := range descriptors {
		c, err := CropOne(src, d)
		if err != nil {
			return nil, err
		}
		crops = append(crops, c)
	}
	return crops, nil
}

// CropOne extracts a single field.
func CropOne(src *raster.Raster, d Descriptor) (Crop, error) {
	rect := d.Rect()
	if rect.Empty() || !rect.In(src.Bounds()) {
		return Crop{}, fmt.Errorf("%w: %q %v not within %dx%d",
			ErrFieldOutOfBounds, d.Name, rect, src.Width, src.Height)
	}
	sub, err := src.SubRaster(rect)
	if err != nil {
		return Crop{}, fmt.Errorf("%w: %q: %w", ErrFieldOutOfBounds, d.Name, err)
	}
	return Crop{Field: d, Raster: sub}, nil
}
