package coeffs

import (
	"errors"

	"github.com/banshee-data/groundmotion/internal/numeric"
)

var (
	// ErrMalformedTable marks an authoring defect in a coefficient table:
	// bad header, ragged rows, non-numeric cells, repeated or unordered
	// periods, or bracketing rows with different coefficient sets.
	ErrMalformedTable = errors.New("malformed coefficient table")

	// ErrOutOfRange is returned when the requested period lies outside the
	// tabulated spectral periods, or a PGA/PGV row is requested but absent.
	ErrOutOfRange = numeric.ErrOutOfRange

	// ErrDampingMismatch is returned for SA requests whose damping differs
	// from the damping the table was authored for.
	ErrDampingMismatch = errors.New("spectral damping does not match table")
)
