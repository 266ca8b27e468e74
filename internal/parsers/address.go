package parsers

import (
	"strings"

	"github.com/ginjaninja78/mess-import/internal/types"
)

// Address is a split postal address.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
}

// SplitAddress splits "street / city state / zip". The last two slashes
// separate the three segments and the middle segment splits on its last
// whitespace run. When the input does not have that shape the whole string
// is returned as Street and ok is false.
func SplitAddress(s string) (addr Address, ok bool) {
	verbatim := Address{Street: s}

	zipAt := strings.LastIndex(s, "/")
	if zipAt < 0 {
		return verbatim, false
	}
	cityAt := strings.LastIndex(s[:zipAt], "/")
	if cityAt < 0 {
		return verbatim, false
	}

	middle := strings.TrimSpace(s[cityAt+1 : zipAt])
	city, state, found := cutLastSpace(middle)
	if !found {
		return verbatim, false
	}

	return Address{
		Street:     strings.TrimSpace(s[:cityAt]),
		City:       city,
		State:      state,
		PostalCode: strings.TrimSpace(s[zipAt+1:]),
	}, true
}

// ParseAddress parses an address cell. Blank cells yield nil. A malformed
// address degrades to the verbatim string in Street.
func ParseAddress(cell types.RawCell) Result {
	text := cell.String()
	if text == "" {
		return OK(nil)
	}

	addr, ok := SplitAddress(text)
	if !ok {
		return Degrade(addr, "address %q is not street / city state / zip", text)
	}
	return OK(addr)
}
