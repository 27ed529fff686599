package handle

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf16"
)

// Hash returns the 32-bit string hash used for StableIds. It matches the
// string hash computed on the JVM side of the Bitwig extension so ids derived
// in either process agree.
func Hash(s string) uint32 {
	var h uint32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = 31*h + uint32(unit)
	}
	return h
}

// Component formats one level of a hierarchical StableId from the object's
// index among its siblings and its name. The index keeps same-named siblings
// (two tracks called "Drums") apart.
func Component(index int, name string) string {
	return fmt.Sprintf("%08x_%d", Hash(name), index)
}

// Path joins StableId components from the outermost parent inwards.
func Path(components ...string) string {
	return strings.Join(components, "/")
}

var idPattern = regexp.MustCompile(`^[0-9a-f]{8}(_[0-9]+)?(/[0-9a-f]{8}(_[0-9]+)?)*$`)

// IsID reports whether s has the shape of a StableId: one or more
// components of eight hex digits, each optionally followed by a sibling
// index, joined by "/".
func IsID(s string) bool {
	return idPattern.MatchString(s)
}
