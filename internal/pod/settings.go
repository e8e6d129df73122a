package pod

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseUint parses an unsigned "settings" metadata value such as "48000".
// An empty value is reported as ErrBadValue; the caller treats both empty
// and zero as "auto".
func ParseUint(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrBadValue
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadValue, s)
	}
	return uint32(n), nil
}

// ParseRateList parses an allowed-rates value such as "[ 44100 48000 96000 ]".
// The surrounding brackets are optional and entries may be comma separated.
func ParseRateList(s string) ([]uint32, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.ReplaceAll(s, ",", " ")

	var rates []uint32
	for _, tok := range strings.Fields(s) {
		n, err := strconv.ParseUint(tok, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrBadValue, tok)
		}
		rates = append(rates, uint32(n))
	}
	return rates, nil
}

// FormatUint renders an unsigned value for a settings metadata write.
func FormatUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
