package parser

import (
	"context"
	"errors"

	"github.com/insightdelivered/statement-expenses/internal/models"
)

// ErrAmbiguousAssociation marks an orphaned amount that could belong to more
// than one description line. The record is dropped.
var ErrAmbiguousAssociation = errors.New("ambiguous amount association")

// Matcher is a hand-written extractor for one issuer's statement layout.
type Matcher interface {
	// Name returns the human-readable issuer name.
	Name() string
	// CanParse is a cheap fingerprint check on the document text.
	CanParse(text string) bool
	// ExtractTransactions returns the transactions found in the text.
	ExtractTransactions(ctx context.Context, text string) []models.Transaction
	// AccountInfo returns the account metadata printed on the statement.
	AccountInfo(text string) models.AccountInfo
}

// DefaultMatchers returns the built-in matchers in priority order. New
// issuers are appended so they never outrank an existing, more specific one.
func DefaultMatchers() []Matcher {
	return []Matcher{
		&CitibankMatcher{},
		&BankOfAmericaMatcher{},
		&ChaseMatcher{},
		&CapitalOneMatcher{},
		&NavyFederalMatcher{},
		&MetroBankMatcher{},
		&HSBCMatcher{},
		&BarclaysMatcher{},
	}
}

// ByName finds a matcher by its Name, ignoring case.
func ByName(matchers []Matcher, name string) (Matcher, bool) {
	for _, m := range matchers {
		if equalFold(m.Name(), name) {
			return m, true
		}
	}
	return nil, false
}
