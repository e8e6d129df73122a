// Package eqpreset persists parametric equaliser presets.
//
// A preset is a JSON document describing a filter chain (preamp plus an
// ordered list of biquad bands) keyed by the device or stream name it
// applies to. The package validates presets on the way in and stores
// them in SQLite, so an external filter manager can reconcile the chain
// whenever topology changes.
//
// Presets are owned here; the graph mirror knows nothing about them.
package eqpreset
