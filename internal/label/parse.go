package label

import (
	"fmt"
	"strconv"
)

// Parse parses a label token as it appears in network JSON and query
// strings: an unsigned integer for MPLS(n), or one of the reserved words
// "ip", "any", "null".
func Parse(s string) (Label, error) {
	switch s {
	case "ip", "any":
		return IP(), nil
	case "null":
		return Bottom(), nil
	case "*":
		return Wild(), nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return Label{}, fmt.Errorf("parsing label %q: not an integer and not ip/any/null: %w", s, err)
	}
	return Mpls(v), nil
}
