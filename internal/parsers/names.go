package parsers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/mess-import/internal/types"
)

const (
	// BlankUsername replaces a slug with no usable characters.
	BlankUsername = "blanknam"

	// DefaultFirstName and DefaultLastName fill in missing name parts.
	DefaultFirstName = "Firstname"
	DefaultLastName  = "Lastname"

	slugLength = 8

	// MaxUsernameAttempts bounds the uniqueness probe.
	MaxUsernameAttempts = 10000
)

// ErrUsernameExhausted is returned when no free username was found within
// MaxUsernameAttempts probes.
var ErrUsernameExhausted = errors.New("no free username")

// SplitName splits a display name on its last whitespace run.
//
//	"John Smith"       -> "John", "Smith"
//	"Mary Ann Jones"   -> "Mary Ann", "Jones"
//	"Cher"             -> "Cher", "Lastname"
//	""                 -> "Firstname", "Lastname"
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultFirstName, DefaultLastName
	}

	head, tail, ok := cutLastSpace(name)
	if !ok {
		return name, DefaultLastName
	}
	return head, tail
}

// cutLastSpace splits s around its last whitespace rune. head is trimmed;
// tail starts after the full width of the separator, so multi-byte spaces
// such as U+00A0 never leave a partial rune behind.
func cutLastSpace(s string) (head, tail string, ok bool) {
	i := strings.LastIndexFunc(s, unicode.IsSpace)
	if i < 0 {
		return s, "", false
	}
	_, width := utf8.DecodeRuneInString(s[i:])
	return strings.TrimSpace(s[:i]), s[i+width:], true
}

// FirstName parses the first-name part of a display name cell.
func FirstName(cell types.RawCell) Result {
	first, _ := SplitName(cell.String())
	return OK(first)
}

// LastName parses the last-name part of a display name cell.
func LastName(cell types.RawCell) Result {
	_, last := SplitName(cell.String())
	return OK(last)
}

// SplitNotes separates an account name from an upper-case note typed after
// it, e.g. "Best Fest NEEDS SHIFT" -> "Best Fest", "NEEDS SHIFT". The split
// falls after the word holding the last lower-case letter. A name without
// lower-case letters is returned whole.
func SplitNotes(s string) (name, note string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ""
	}

	runes := []rune(s)
	last := -1
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsLower(runes[i]) {
			last = i
			break
		}
	}
	if last < 0 {
		return s, ""
	}

	end := last
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}
	return strings.TrimSpace(string(runes[:end])), strings.TrimSpace(string(runes[end:]))
}

// AccountName parses the name part of an account cell.
func AccountName(cell types.RawCell) Result {
	name, _ := SplitNotes(cell.String())
	return OK(name)
}

// AccountNote parses the note part of an account cell.
func AccountNote(cell types.RawCell) Result {
	_, note := SplitNotes(cell.String())
	return OK(note)
}

// Slug derives the base username from a display name: ASCII letters and
// digits only, lower case, at most eight characters.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range name {
		if b.Len() == slugLength {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	if b.Len() == 0 {
		return BlankUsername
	}
	return b.String()
}

// Username parses a display name cell into a base username.
func Username(cell types.RawCell) Result {
	slug := Slug(cell.String())
	if slug == BlankUsername {
		return Degrade(slug, "no usable characters in name %q", cell.String())
	}
	return OK(slug)
}

// UniqueUsername probes taken with slug, slug1, slug2, ... and returns the
// first free candidate. With N names already taken it makes at most N+1
// probes.
func UniqueUsername(ctx context.Context, slug string, taken func(ctx context.Context, username string) (bool, error)) (string, error) {
	for attempt := 0; attempt < MaxUsernameAttempts; attempt++ {
		candidate := slug
		if attempt > 0 {
			candidate = slug + strconv.Itoa(attempt)
		}

		used, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("probe username %q: %w", candidate, err)
		}
		if !used {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w for %q after %d attempts", ErrUsernameExhausted, slug, MaxUsernameAttempts)
}
