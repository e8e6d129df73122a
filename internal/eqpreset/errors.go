package eqpreset

import "errors"

// Domain errors for the eqpreset package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, eqpreset.ErrPresetNotFound) {
//	    // handle not found case
//	}
var (
	// ErrPresetNotFound is returned when no preset exists for a target.
	ErrPresetNotFound = errors.New("eqpreset: not found")

	// ErrInvalidPreset is returned when preset validation fails.
	ErrInvalidPreset = errors.New("eqpreset: invalid preset")

	// ErrInvalidBandType is returned when a band type is not recognised.
	ErrInvalidBandType = errors.New("eqpreset: invalid band type")

	// ErrInvalidTarget is returned when a target name is empty or too long.
	ErrInvalidTarget = errors.New("eqpreset: invalid target")
)
