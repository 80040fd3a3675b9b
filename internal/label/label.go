// Package label converts decorated listing-count labels such as "۱۷ آگهی"
// into integers for ordering.
package label

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// SuffixRunes is the width of the unit suffix (" آگهی") that trails every label.
const SuffixRunes = 5

// ErrInvalidLabel is returned when a label does not carry a number.
var ErrInvalidLabel = eris.New("label: not a decorated number")

// digits maps Extended Arabic-Indic (Persian) and Arabic-Indic digits to ASCII.
var digits = runes.Map(func(r rune) rune {
	switch {
	case r >= '۰' && r <= '۹':
		return '0' + (r - '۰')
	case r >= '٠' && r <= '٩':
		return '0' + (r - '٠')
	default:
		return r
	}
})

// Normalize drops the trailing unit suffix, maps native digits to ASCII and
// parses the remainder as a base-10 integer.
func Normalize(label string) (int, error) {
	n := utf8.RuneCountInString(label)
	if n <= SuffixRunes {
		return 0, eris.Wrapf(ErrInvalidLabel, "%q is too short", label)
	}

	prefix := label
	for range SuffixRunes {
		_, size := utf8.DecodeLastRuneInString(prefix)
		prefix = prefix[:len(prefix)-size]
	}

	ascii, _, err := transform.String(digits, prefix)
	if err != nil {
		return 0, eris.Wrapf(err, "label: transform %q", label)
	}

	v, err := strconv.Atoi(strings.TrimSpace(ascii))
	if err != nil {
		return 0, eris.Wrapf(ErrInvalidLabel, "%q: %v", label, err)
	}
	return v, nil
}
