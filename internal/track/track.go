// Package track handles racing venue codes offered at data entry.
//
// Stored records may carry any track string; this package only decides
// what the entry form accepts.
package track

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// DefaultCodes is the venue list offered when none is configured.
var DefaultCodes = []string{"PARX", "TP", "DD", "GP", "PENN", "AQU", "SA", "LRL", "OP", "CT", "MHV"}

// codeRegex matches a normalized venue code, e.g. PARX or LRL.
var codeRegex = regexp.MustCompile(`^[A-Z0-9]{1,8}$`)

var (
	ErrInvalidCode  = errors.New("track: invalid track code")
	ErrUnknownTrack = errors.New("track: unknown track")
	ErrEmptySet     = errors.New("track: no tracks configured")
)

// Normalize upper-cases and trims a code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Set is the closed list of venues accepted at entry.
type Set struct {
	codes map[string]bool
}

// NewSet validates and normalizes codes. Duplicates collapse.
func NewSet(codes []string) (*Set, error) {
	if len(codes) == 0 {
		return nil, ErrEmptySet
	}
	s := &Set{codes: make(map[string]bool, len(codes))}
	for _, c := range codes {
		n := Normalize(c)
		if !codeRegex.MatchString(n) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCode, c)
		}
		s.codes[n] = true
	}
	return s, nil
}

// Validate returns the normalized code if it belongs to the set.
func (s *Set) Validate(code string) (string, error) {
	n := Normalize(code)
	if !s.codes[n] {
		return "", fmt.Errorf("%w: %q", ErrUnknownTrack, code)
	}
	return n, nil
}

// Codes returns the set in sorted order, as the entry form lists them.
func (s *Set) Codes() []string {
	out := make([]string, 0, len(s.codes))
	for c := range s.codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
