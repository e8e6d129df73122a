package servicectl

import "errors"

var (
	// ErrUnitNotFound indicates systemd has no unit by that name.
	ErrUnitNotFound = errors.New("servicectl: unit not found")

	// ErrPropertyNotFound indicates the queried property was absent from
	// systemd's reply.
	ErrPropertyNotFound = errors.New("servicectl: property not found")
)
