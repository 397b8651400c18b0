package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether money left (debit) or entered (credit) the account.
type Direction string

const (
	Debit  Direction = "debit"
	Credit Direction = "credit"
)

// CategorySource records which categorization stage assigned a category.
type CategorySource string

const (
	SourceLearned CategorySource = "learned"
	SourceAI      CategorySource = "ai"
	SourceKeyword CategorySource = "keyword"
	SourceDefault CategorySource = "default"
	SourceUser    CategorySource = "user"
)

// Transaction is a single statement record.
type Transaction struct {
	Date           time.Time        `json:"date"`
	DateInferred   bool             `json:"dateInferred,omitempty"`
	Description    string           `json:"description"`
	Amount         decimal.Decimal  `json:"amount"`
	Direction      Direction        `json:"direction"`
	Balance        *decimal.Decimal `json:"balance,omitempty"`
	Category       string           `json:"category,omitempty"`
	CategorySource CategorySource   `json:"categorySource,omitempty"`
	Issuer         string           `json:"issuer,omitempty"`
	DocumentID     string           `json:"documentId,omitempty"`
}

// Magnitude returns the absolute value of the amount.
func (t Transaction) Magnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// AccountInfo holds the account metadata an issuer prints on its statements.
type AccountInfo struct {
	Issuer        string    `json:"issuer,omitempty"`
	AccountHolder string    `json:"accountHolder,omitempty"`
	AccountNumber string    `json:"accountNumber,omitempty"`
	PeriodStart   time.Time `json:"periodStart,omitempty"`
	PeriodEnd     time.Time `json:"periodEnd,omitempty"`
}

// HasPeriod reports whether both ends of the statement period are known.
func (a AccountInfo) HasPeriod() bool {
	return !a.PeriodStart.IsZero() && !a.PeriodEnd.IsZero()
}
