package surface

import (
	"errors"

	"github.com/banshee-data/groundmotion/internal/numeric"
)

var (
	// ErrMalformedGrid marks a grid whose axes or surfaces violate the
	// layout invariants, or a table whose grids disagree with each other.
	ErrMalformedGrid = errors.New("malformed ground-motion grid")

	// ErrOutOfRange is returned for SA periods outside the stored range.
	ErrOutOfRange = numeric.ErrOutOfRange

	// ErrNonFinite is returned when a lookup would produce NaN or Inf,
	// which only happens when the stored grid itself holds such values.
	ErrNonFinite = errors.New("non-finite value in ground-motion grid lookup")

	// ErrUnsupportedIMT is returned for PGA/PGV requests the table does not
	// store and for SA damping other than the table's.
	ErrUnsupportedIMT = errors.New("intensity measure type not stored in table")
)
