package shop

import (
	"fmt"
	"regexp"
	"strings"

	"ledger-service/internal/schema"
)

var databaseNameRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// NormalizeName derives the tenant database name from a shop name:
// prefix + lower-cased name with spaces replaced by underscores.
// The result must be a safe PostgreSQL identifier.
func NormalizeName(prefix, name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidShopName)
	}

	ident := prefix + strings.ReplaceAll(strings.ToLower(trimmed), " ", "_")
	if len(ident) > schema.MaxIdentifierLength {
		return "", fmt.Errorf("%w: %q is longer than %d bytes", ErrInvalidShopName, ident, schema.MaxIdentifierLength)
	}
	if !databaseNameRegex.MatchString(ident) {
		return "", fmt.Errorf("%w: %q may only contain letters, digits, spaces and underscores", ErrInvalidShopName, name)
	}
	return ident, nil
}

// ValidDatabaseName reports whether name may be used to select a tenant database
func ValidDatabaseName(name string) bool {
	return len(name) <= schema.MaxIdentifierLength && databaseNameRegex.MatchString(name)
}

// Scope decides which databases may serve as shop databases: those carrying
// the tenant prefix and the default tenant, never the maintenance database.
type Scope struct {
	Prefix  string
	Default string
	Admin   string
}

// Allows reports whether name may be selected as a shop database
func (s Scope) Allows(name string) bool {
	if !ValidDatabaseName(name) || name == s.Admin {
		return false
	}
	return strings.HasPrefix(name, s.Prefix) || name == s.Default
}
