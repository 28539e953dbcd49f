package pattern

import "errors"

// Error kinds reported by every stage of the pipeline. Stages wrap them with
// context, callers match them with errors.Is.
var (
	ErrInvalidPalette    = errors.New("invalid palette")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrSourceUnreadable  = errors.New("source unreadable")
	ErrUnsupportedRaster = errors.New("unsupported raster")
	ErrWrite             = errors.New("write error")
	ErrCancelled         = errors.New("cancelled")
)
