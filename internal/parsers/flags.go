package parsers

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/mess-import/internal/types"
)

// Text returns the trimmed text of the cell.
func Text(cell types.RawCell) Result {
	return OK(cell.String())
}

// IntOrOne parses a count, falling back to 1.
func IntOrOne(cell types.RawCell) Result {
	switch cell.Kind {
	case types.KindEmpty:
		return OK(1)
	case types.KindNumber:
		return OK(int(cell.Number))
	}

	n, err := strconv.Atoi(cell.String())
	if err != nil {
		return Degrade(1, "not a count: %q", cell.String())
	}
	return OK(n)
}

// IsYes reports whether the cell says "yes" in any case.
func IsYes(cell types.RawCell) Result {
	return OK(strings.EqualFold(cell.String(), "yes"))
}

// IsNonSpace reports whether the cell holds anything but whitespace.
func IsNonSpace(cell types.RawCell) Result {
	return OK(!cell.IsBlank())
}

// Section canonicalizes a section code so that the number 1, the text "1"
// and the text "1.0" all read as "1.0". Codes that are not numbers are
// returned trimmed.
func Section(cell types.RawCell) Result {
	switch cell.Kind {
	case types.KindEmpty:
		return OK("")
	case types.KindNumber:
		return OK(strconv.FormatFloat(cell.Number, 'f', 1, 64))
	}

	text := cell.String()
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return OK(strconv.FormatFloat(n, 'f', 1, 64))
	}
	return OK(text)
}

// Decimal parses a money or hours amount. "$1,234.50" and "(12.00)" are
// accepted. Blank is zero; unreadable input degrades to zero.
func Decimal(cell types.RawCell) Result {
	switch cell.Kind {
	case types.KindEmpty:
		return OK(decimal.Zero)
	case types.KindNumber, types.KindDate:
		return OK(decimal.NewFromFloat(cell.Number))
	}

	text := strings.TrimSpace(cell.String())
	negative := false
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = text[1 : len(text)-1]
	}
	text = strings.NewReplacer("$", "", ",", "", " ", "").Replace(text)

	d, err := decimal.NewFromString(text)
	if err != nil {
		return Degrade(decimal.Zero, "not an amount: %q", cell.String())
	}
	if negative {
		d = d.Neg()
	}
	return OK(d)
}

// Work status codes.
const (
	WorkShift     = "w"
	WorkCommittee = "c"
	WorkExempt    = "e"
	WorkNone      = "n"
)

// WorkStatus maps free text to a work status code. Blank is WorkShift, the
// default for active members.
func WorkStatus(cell types.RawCell) Result {
	text := strings.ToLower(cell.String())
	switch {
	case text == "":
		return OK(WorkShift)
	case text == WorkShift || text == WorkCommittee || text == WorkExempt || text == WorkNone:
		return OK(text)
	case strings.Contains(text, "committee"):
		return OK(WorkCommittee)
	case strings.Contains(text, "exempt"):
		return OK(WorkExempt)
	case strings.Contains(text, "shift"), strings.Contains(text, "work"):
		return OK(WorkShift)
	case strings.Contains(text, "none"), text == "-", text == "--":
		return OK(WorkNone)
	}
	return Degrade(WorkNone, "unknown work status %q", cell.String())
}

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Password generates an eight character placeholder credential.
func Password() (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	b := make([]byte, 8)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = passwordAlphabet[n.Int64()]
	}
	return string(b), nil
}
