package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// CitibankMatcher handles Citi credit card statements.
//
// Rows carry a sale date and a posting date:
//
//	03/12 03/14 WHOLE FOODS MARKET #10234 AUSTIN TX $52.18
//
// Long merchant names push the amount onto its own line:
//
//	03/12 03/14 AMAZON MARKETPLACE AMZN.COM/BILL WA
//	$23.47
//
// Payments and credits are printed negative or in parentheses.
type CitibankMatcher struct{}

// associationWindow is how many lines an orphaned amount may sit below the
// description it belongs to.
const associationWindow = 4

var (
	citiIndicators = []string{
		"citibank", "citicards", "citi cards", "citi.com", "citigroup",
		"citi double cash", "citi custom cash", "citi simplicity", "costco anywhere visa",
	}
	citiWord = regexp.MustCompile(`(?i)\bciti\b`)

	citiExclusions = []string{
		"new balance as of", "previous balance", "payment due date", "minimum payment",
		"credit limit", "available credit", "cash advance limit", "account summary",
		"total fees", "total interest", "interest charged", "annual percentage rate",
		"billing period", "days in billing cycle", "fees charged", "customer service",
		"account messages",
	}

	citiDualDate   = regexp.MustCompile(`^(\d{1,2}/\d{1,2})\s+(\d{1,2}/\d{1,2})\s+(.+?)\s+(` + amountExpr + `)$`)
	citiSingleDate = regexp.MustCompile(`^(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\s+(.+?)\s+(` + amountExpr + `)$`)
	citiDescOnly   = regexp.MustCompile(`^(\d{1,2}/\d{1,2})(?:\s+(\d{1,2}/\d{1,2}))?\s+(.*[A-Za-z].*)$`)
)

func (p *CitibankMatcher) Name() string {
	return "Citibank"
}

func (p *CitibankMatcher) CanParse(text string) bool {
	return tokens.ContainsAnyFold(text, citiIndicators) || citiWord.MatchString(text)
}

func (p *CitibankMatcher) AccountInfo(text string) models.AccountInfo {
	return accountInfo(p.Name(), text, tokens.MonthFirst)
}

// pendingDescription is a dated description line still waiting for its amount.
type pendingDescription struct {
	line     int
	date     time.Time
	inferred bool
	text     string
}

func (p *CitibankMatcher) ExtractTransactions(ctx context.Context, text string) []models.Transaction {
	log := logger.FromContext(ctx)
	hint := findStatementPeriod(text, tokens.MonthFirst).hint

	var transactions []models.Transaction
	var pending []pendingDescription

	for i, line := range splitLines(text) {
		if line == "" || isExcluded(line, citiExclusions) {
			continue
		}

		if txn, ok := p.parseRow(line, hint); ok {
			transactions = append(transactions, txn)
			continue
		}

		if tokens.IsAmountOnly(line) {
			pending = dropStale(pending, i)
			switch len(pending) {
			case 0:
				log.Debug().Int("line", i+1).Str("amount", line).Msg("orphaned_amount_unclaimed")
			case 1:
				if txn, ok := p.pair(pending[0], line); ok {
					transactions = append(transactions, txn)
				}
			default:
				err := fmt.Errorf("%w: %d descriptions above amount %s", ErrAmbiguousAssociation, len(pending), line)
				log.Warn().Err(err).Int("line", i+1).Msg("orphaned_amount_dropped")
			}
			pending = nil
			continue
		}

		if m := citiDescOnly.FindStringSubmatch(line); m != nil && !tokens.Money.MatchString(line) {
			date, inferred, ok := citiDate(m[1], m[2], hint)
			if !ok {
				continue
			}
			pending = append(pending, pendingDescription{line: i, date: date, inferred: inferred, text: m[3]})
			continue
		}

		// Wrapped merchant name: continue the newest pending description.
		if len(pending) > 0 && !tokens.Money.MatchString(line) && strings.ContainsFunc(line, unicode.IsLetter) {
			last := &pending[len(pending)-1]
			last.text += " " + line
			last.line = i
		}
	}

	return transactions
}

func (p *CitibankMatcher) parseRow(line string, hint tokens.YearHint) (models.Transaction, bool) {
	var date time.Time
	var inferred, ok bool
	var desc, amt string

	if m := citiDualDate.FindStringSubmatch(line); m != nil {
		date, inferred, ok = citiDate(m[1], m[2], hint)
		desc, amt = m[3], m[4]
	} else if m := citiSingleDate.FindStringSubmatch(line); m != nil {
		date, inferred, ok = citiDate(m[1], "", hint)
		desc, amt = m[2], m[3]
	}
	if !ok {
		return models.Transaction{}, false
	}

	amount, err := tokens.ParseAmount(amt)
	if err != nil {
		return models.Transaction{}, false
	}
	return newTransaction(p.Name(), date, inferred, desc, amount, signDirection(amount)), true
}

func (p *CitibankMatcher) pair(desc pendingDescription, amountLine string) (models.Transaction, bool) {
	amount, err := tokens.ParseAmount(amountLine)
	if err != nil {
		return models.Transaction{}, false
	}
	return newTransaction(p.Name(), desc.date, desc.inferred, desc.text, amount, signDirection(amount)), true
}

// citiDate resolves the transaction date of a row. With two dates the sale
// date, printed first, is used.
func citiDate(sale, posted string, hint tokens.YearHint) (time.Time, bool, bool) {
	date, inferred, err := tokens.ParseDate(sale, hint)
	if err != nil {
		return time.Time{}, false, false
	}
	if posted != "" {
		if post, _, err := tokens.ParseDate(posted, hint); err == nil {
			date = tokens.SaleDate(date, post)
		}
	}
	return date, inferred, true
}

func dropStale(pending []pendingDescription, line int) []pendingDescription {
	kept := pending[:0]
	for _, d := range pending {
		if line-d.line <= associationWindow {
			kept = append(kept, d)
		}
	}
	return kept
}
