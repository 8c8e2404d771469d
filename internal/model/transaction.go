package model

// TransactionType tells whether money came in or went out
type TransactionType string

const (
	Credit TransactionType = "credit"
	Debit  TransactionType = "debit"
)

// Valid reports whether t is credit or debit
func (t TransactionType) Valid() bool {
	return t == Credit || t == Debit
}

// Transaction is a ledger entry
type Transaction struct {
	ID       uint            `json:"id" gorm:"primaryKey" db:"id"`
	Date     Date            `json:"date" gorm:"type:date;not null" db:"date"`
	ItemName string          `json:"item_name" gorm:"type:varchar(100);not null" db:"item_name"`
	Company  *string         `json:"company,omitempty" gorm:"type:varchar(100)" db:"company"`
	Amount   float64         `json:"amount" gorm:"not null" db:"amount"`
	Type     TransactionType `json:"type" gorm:"type:varchar(10);not null" db:"type"`
	Notes    *string         `json:"notes,omitempty" gorm:"type:text" db:"notes"`
}
