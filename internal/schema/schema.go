// Package schema validates user supplied table descriptors and builds
// CREATE TABLE statements from the validated parts only.
package schema

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxIdentifierLength is the PostgreSQL identifier limit (NAMEDATALEN - 1)
const MaxIdentifierLength = 63

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrInvalidType       = errors.New("invalid type")
	ErrInvalidConstraint = errors.New("invalid constraint")
	ErrNoColumns         = errors.New("at least one column is required")
	ErrDuplicateColumn   = errors.New("duplicate column name")
	ErrUnknownTableKind  = errors.New("unknown table type")
)

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	typeSuffixRegex = regexp.MustCompile(`^\(\s*\d+\s*(,\s*\d+\s*)?\)$`)
)

// AllowedTypes lists the base column types a dynamic table may use
var AllowedTypes = map[string]bool{
	"INT":     true,
	"VARCHAR": true,
	"TEXT":    true,
	"DATE":    true,
	"FLOAT":   true,
	"BOOLEAN": true,
}

// Column describes one column of a dynamic table
type Column struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Constraints []string `json:"constraints"`
}

// TableRequest describes a dynamic table
type TableRequest struct {
	TableName string   `json:"table_name"`
	Columns   []Column `json:"columns"`
}

// ValidateIdentifier checks a table or column name against the allow-list
func ValidateIdentifier(name string) error {
	if name == "" || len(name) > MaxIdentifierLength || !identifierRegex.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// NormalizeType upper-cases a column type and checks its base against AllowedTypes.
// A parenthesized length/precision suffix is kept but must be digits only.
func NormalizeType(typ string) (string, error) {
	t := strings.ToUpper(strings.TrimSpace(typ))
	base, suffix := t, ""
	if i := strings.Index(t, "("); i >= 0 {
		base, suffix = strings.TrimSpace(t[:i]), t[i:]
	}
	if !AllowedTypes[base] {
		return "", fmt.Errorf("%w: %s", ErrInvalidType, typ)
	}
	if suffix != "" {
		if !typeSuffixRegex.MatchString(suffix) {
			return "", fmt.Errorf("%w: %s", ErrInvalidType, typ)
		}
		suffix = strings.Join(strings.Fields(suffix), "")
	}
	return base + suffix, nil
}

// Validate checks the request fail-fast: table name, then every column name,
// then every column type, then every constraint.
func (r TableRequest) Validate() error {
	_, err := r.validated()
	return err
}

// BuildCreateTable validates the request and returns the CREATE TABLE statement
func (r TableRequest) BuildCreateTable() (string, error) {
	cols, err := r.validated()
	if err != nil {
		return "", err
	}

	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		parts := append([]string{col.Name, col.Type}, col.Constraints...)
		defs = append(defs, strings.Join(parts, " "))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", r.TableName, strings.Join(defs, ", ")), nil
}

func (r TableRequest) validated() ([]Column, error) {
	if err := ValidateIdentifier(r.TableName); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	if len(r.Columns) == 0 {
		return nil, ErrNoColumns
	}

	seen := make(map[string]bool, len(r.Columns))
	for _, col := range r.Columns {
		if err := ValidateIdentifier(col.Name); err != nil {
			return nil, fmt.Errorf("invalid column name: %w", err)
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Name)
		}
		seen[key] = true
	}

	out := make([]Column, len(r.Columns))
	for i, col := range r.Columns {
		typ, err := NormalizeType(col.Type)
		if err != nil {
			return nil, err
		}
		out[i] = Column{Name: col.Name, Type: typ}
	}

	for i, col := range r.Columns {
		for _, raw := range col.Constraints {
			c, err := NormalizeConstraint(raw, seen)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", col.Name, err)
			}
			if c != "" {
				out[i].Constraints = append(out[i].Constraints, c)
			}
		}
	}
	return out, nil
}
