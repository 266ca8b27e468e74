// =============================================================================
// Membership Importer - Raw Text Cleanup Rules
// =============================================================================
//
// This module applies configured cleanup actions to raw text cells before the
// domain parsers see them. The legacy workbooks were typed by hand over many
// years, so a header can need its own fixes (stray punctuation in phone
// numbers, inconsistent casing in the section column, and so on).
//
// Rules are keyed by header name and applied in the order listed. Only text
// and empty cells are touched; number and date cells keep their stored value.
//
// SUPPORTED ACTIONS:
//   trim, trim_left, trim_right, uppercase, lowercase, title_case,
//   prepend_string, append_string, replace, regex_replace,
//   normalize_whitespace, remove_special_chars, extract_digits,
//   extract_letters, lookup, lookup_with_default, if_empty_use_default
//
// =============================================================================

package transform

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ginjaninja78/mess-import/internal/config"
	"github.com/ginjaninja78/mess-import/internal/types"
)

// ErrUnknownAction is returned by New for an action type it does not know.
var ErrUnknownAction = errors.New("unknown transformation action")

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	lettersPattern    = regexp.MustCompile(`[a-zA-Z]+`)
	specialPattern    = regexp.MustCompile(`[^a-zA-Z0-9]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// =============================================================================
// TRANSFORMER
// =============================================================================

// Transformer holds the compiled cleanup rules.
type Transformer struct {
	rules map[string][]step
	title cases.Caser
}

// step is one compiled action.
type step struct {
	action config.TransformationAction
	re     *regexp.Regexp
}

// New compiles the rules. Unknown action types and bad regular expressions
// are configuration errors.
func New(rules []config.TransformationRule) (*Transformer, error) {
	t := &Transformer{
		rules: make(map[string][]step),
		title: cases.Title(language.English),
	}

	for _, rule := range rules {
		for _, action := range rule.Actions {
			s := step{action: action}

			switch action.Type {
			case "trim", "trim_left", "trim_right", "uppercase", "lowercase",
				"title_case", "prepend_string", "append_string", "replace",
				"normalize_whitespace", "remove_special_chars", "extract_digits",
				"extract_letters", "lookup", "lookup_with_default",
				"if_empty_use_default":
			case "regex_replace":
				re, err := regexp.Compile(action.Find)
				if err != nil {
					return nil, fmt.Errorf("field %q: invalid regex pattern: %w", rule.Field, err)
				}
				s.re = re
			default:
				return nil, fmt.Errorf("field %q: %w: %q", rule.Field, ErrUnknownAction, action.Type)
			}

			t.rules[rule.Field] = append(t.rules[rule.Field], s)
		}
	}

	return t, nil
}

// Has reports whether any rule targets the header.
func (t *Transformer) Has(header string) bool {
	if t == nil {
		return false
	}
	return len(t.rules[header]) > 0
}

// Clean applies the rules for header to a cell. A nil Transformer returns
// the cell unchanged.
func (t *Transformer) Clean(header string, cell types.RawCell) types.RawCell {
	if !t.Has(header) {
		return cell
	}
	if cell.Kind != types.KindText && cell.Kind != types.KindEmpty {
		return cell
	}

	value := cell.Value
	for _, s := range t.rules[header] {
		value = t.apply(value, s)
	}
	return types.Text(value)
}

// apply runs a single action.
func (t *Transformer) apply(value string, s step) string {
	action := s.action

	switch action.Type {
	case "trim":
		return strings.TrimSpace(value)

	case "trim_left":
		if action.Value != "" {
			return strings.TrimLeft(value, action.Value)
		}
		return strings.TrimLeft(value, " \t\n\r")

	case "trim_right":
		if action.Value != "" {
			return strings.TrimRight(value, action.Value)
		}
		return strings.TrimRight(value, " \t\n\r")

	case "uppercase":
		return strings.ToUpper(value)

	case "lowercase":
		return strings.ToLower(value)

	case "title_case":
		// Example: "SMITH-JONES" -> "Smith-Jones"
		return t.title.String(strings.ToLower(value))

	case "prepend_string":
		return action.Value + value

	case "append_string":
		return value + action.Value

	case "replace":
		if action.Find == "" {
			return value
		}
		return strings.ReplaceAll(value, action.Find, action.Value)

	case "regex_replace":
		if action.Find == "" {
			return value
		}
		return s.re.ReplaceAllString(value, action.Value)

	case "normalize_whitespace":
		return strings.TrimSpace(whitespacePattern.ReplaceAllString(value, " "))

	case "remove_special_chars":
		return specialPattern.ReplaceAllString(value, "")

	case "extract_digits":
		// Example: "(718) 555-1234" -> "7185551234"
		return strings.Join(digitsPattern.FindAllString(value, -1), "")

	case "extract_letters":
		return strings.Join(lettersPattern.FindAllString(value, -1), "")

	case "lookup":
		if replacement, ok := action.LookupTable[strings.TrimSpace(value)]; ok {
			return replacement
		}
		return value

	case "lookup_with_default":
		if replacement, ok := action.LookupTable[strings.TrimSpace(value)]; ok {
			return replacement
		}
		return action.Value

	case "if_empty_use_default":
		if strings.TrimSpace(value) == "" {
			return action.Value
		}
		return value
	}

	return value
}
