package schema

import (
	"fmt"
	"sort"
	"strings"
)

var cannedTables = map[string]string{
	"sales": `CREATE TABLE sales (
	id SERIAL PRIMARY KEY,
	item_name VARCHAR(100) NOT NULL,
	quantity INT NOT NULL CHECK (quantity > 0),
	unit_price NUMERIC(12,2) NOT NULL CHECK (unit_price >= 0),
	sale_date DATE NOT NULL DEFAULT CURRENT_DATE
)`,
	"income": `CREATE TABLE income (
	id SERIAL PRIMARY KEY,
	source VARCHAR(100) NOT NULL,
	amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
	received_on DATE NOT NULL DEFAULT CURRENT_DATE,
	notes TEXT
)`,
	"expense": `CREATE TABLE expense (
	id SERIAL PRIMARY KEY,
	category VARCHAR(100) NOT NULL,
	amount NUMERIC(12,2) NOT NULL CHECK (amount > 0),
	paid_on DATE NOT NULL DEFAULT CURRENT_DATE,
	notes TEXT
)`,
}

// CannedTable returns the fixed CREATE TABLE statement for a table kind
func CannedTable(kind string) (string, error) {
	ddl, ok := cannedTables[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return "", fmt.Errorf("%w: %q (want one of %s)", ErrUnknownTableKind, kind, strings.Join(CannedKinds(), ", "))
	}
	return ddl, nil
}

// CannedKinds lists the supported canned table kinds
func CannedKinds() []string {
	kinds := make([]string, 0, len(cannedTables))
	for k := range cannedTables {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
