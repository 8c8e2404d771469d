package schema

import (
	"fmt"
	"regexp"
	"strings"
)

var tokenRegex = regexp.MustCompile(`\s*(?:` +
	`([A-Za-z_][A-Za-z0-9_]*)` + // word
	`|(-?\d+(?:\.\d+)?)` + // number
	`|('[^'\\]*')` + // string literal without quotes or backslashes inside
	`|(<=|>=|<>|!=|=|<|>)` + // comparison
	`|([()])` + // parenthesis
	`)`)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokNumber
	tokString
	tokOp
	tokParen
)

type token struct {
	kind tokenKind
	text string
}

func tokenize(s string) ([]token, error) {
	var tokens []token
	rest := s
	for strings.TrimSpace(rest) != "" {
		m := tokenRegex.FindStringSubmatchIndex(rest)
		if m == nil || m[0] != 0 {
			return nil, fmt.Errorf("%w: unexpected input %q", ErrInvalidConstraint, strings.TrimSpace(rest))
		}
		for group := 1; group <= 5; group++ {
			if m[2*group] >= 0 {
				tokens = append(tokens, token{kind: tokenKind(group - 1), text: rest[m[2*group]:m[2*group+1]]})
				break
			}
		}
		rest = rest[m[1]:]
	}
	return tokens, nil
}

var defaultKeywords = map[string]bool{
	"TRUE":              true,
	"FALSE":             true,
	"NULL":              true,
	"CURRENT_DATE":      true,
	"CURRENT_TIMESTAMP": true,
}

// NormalizeConstraint validates one constraint entry against the allow-list and
// returns it with normalized keywords. An entry may hold several clauses, e.g.
// "NOT NULL DEFAULT 0". columns holds the lower-cased column names usable in CHECK.
func NormalizeConstraint(raw string, columns map[string]bool) (string, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return "", err
	}

	var clauses []string
	for i := 0; i < len(tokens); {
		word := func(at int) string {
			if at < len(tokens) && tokens[at].kind == tokWord {
				return strings.ToUpper(tokens[at].text)
			}
			return ""
		}

		switch word(i) {
		case "NOT":
			if word(i+1) != "NULL" {
				return "", fmt.Errorf("%w: %q", ErrInvalidConstraint, raw)
			}
			clauses = append(clauses, "NOT NULL")
			i += 2
		case "NULL", "UNIQUE":
			clauses = append(clauses, word(i))
			i++
		case "PRIMARY":
			if word(i+1) != "KEY" {
				return "", fmt.Errorf("%w: %q", ErrInvalidConstraint, raw)
			}
			clauses = append(clauses, "PRIMARY KEY")
			i += 2
		case "DEFAULT":
			if i+1 >= len(tokens) {
				return "", fmt.Errorf("%w: DEFAULT needs a value", ErrInvalidConstraint)
			}
			lit := tokens[i+1]
			switch {
			case lit.kind == tokNumber, lit.kind == tokString:
				clauses = append(clauses, "DEFAULT "+lit.text)
			case lit.kind == tokWord && defaultKeywords[strings.ToUpper(lit.text)]:
				clauses = append(clauses, "DEFAULT "+strings.ToUpper(lit.text))
			default:
				return "", fmt.Errorf("%w: unsupported DEFAULT value %q", ErrInvalidConstraint, lit.text)
			}
			i += 2
		case "CHECK":
			// CHECK ( column op number )
			if i+5 >= len(tokens) {
				return "", fmt.Errorf("%w: malformed CHECK in %q", ErrInvalidConstraint, raw)
			}
			open, col, op, num, closing := tokens[i+1], tokens[i+2], tokens[i+3], tokens[i+4], tokens[i+5]
			if open.text != "(" || col.kind != tokWord || op.kind != tokOp || num.kind != tokNumber || closing.text != ")" {
				return "", fmt.Errorf("%w: malformed CHECK in %q", ErrInvalidConstraint, raw)
			}
			if !columns[strings.ToLower(col.text)] {
				return "", fmt.Errorf("%w: CHECK references unknown column %q", ErrInvalidConstraint, col.text)
			}
			clauses = append(clauses, fmt.Sprintf("CHECK (%s %s %s)", col.text, op.text, num.text))
			i += 6
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidConstraint, raw)
		}
	}
	return strings.Join(clauses, " "), nil
}
