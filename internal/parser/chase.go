package parser

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// ChaseMatcher handles Chase card and checking statements.
//
//	03/14 WHOLE FOODS MARKET #10234 AUSTIN TX 52.18
//	03/18 Payment Thank You-Mobile -250.00
//	03/20 Check 1042 125.00
//	AMAZON PRIME MEMBERSHIP 14.99
//
// Charges are positive and payments negative. Rows printed without a date
// are dated to the start of the statement period and flagged inferred.
type ChaseMatcher struct{}

var (
	chasePrimary   = []string{"jpmorgan chase", "j.p. morgan", "jp morgan", "chase.com"}
	chaseSecondary = []string{"chase", "transactions this cycle"}
	citiMarkers    = []string{"citibank", "citicorp", "citigroup", "citi.com"}

	chaseActivityHeaders = []string{
		"account activity", "transactions this cycle", "transaction detail",
		"purchases and adjustments", "payments and other credits",
	}

	chaseExclusions = []string{
		"previous balance", "new balance", "payment due date", "minimum payment due",
		"credit limit", "available credit", "cash access line", "interest charged",
		"fees charged", "total fees", "total interest", "year-to-date", "annual percentage rate",
		"beginning balance", "ending balance", "account activity", "transactions this cycle",
		"opening/closing date",
	}

	chaseCheckPattern  = regexp.MustCompile(`(?i)^(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\s+check\s+#?(\d+)\b.*?\s+(` + amountExpr + `)$`)
	chaseDatedPattern  = regexp.MustCompile(`^(\d{1,2}/\d{1,2}(?:/\d{2,4})?)\s+(.+?)\s+(` + amountExpr + `)$`)
	chaseNoDatePattern = regexp.MustCompile(`^([A-Z][A-Z0-9 \-#&*.()']+?)\s+(` + amountExpr + `)$`)

	chaseTrailingDate = regexp.MustCompile(`\s+\d{2}/\d{2}$`)
	chaseTrailingRef  = regexp.MustCompile(`\s+#\w+$`)
	chaseAuthDate     = regexp.MustCompile(`^\d{1,2}/\d{1,2}\s+`)

	chasePrefixes = []string{
		"PURCHASE AUTHORIZED ON ", "AUTOMATIC PAYMENT - ", "ONLINE PAYMENT - ",
		"RECURRING PAYMENT - ", "CHECKCARD ", "DEBIT CARD ", "CARD PURCHASE ",
	}
)

func (p *ChaseMatcher) Name() string {
	return "Chase"
}

// CanParse accepts the JPMorgan names outright. The bare word "Chase"
// also appears on Citi and Capital One statements, so it only counts when
// neither issuer is named.
func (p *ChaseMatcher) CanParse(text string) bool {
	if tokens.ContainsAnyFold(text, chasePrimary) {
		return true
	}
	if tokens.ContainsAnyFold(text, citiMarkers) || citiWord.MatchString(text) {
		return false
	}
	if tokens.ContainsAnyFold(text, capOnePrimary) {
		return false
	}
	return tokens.ContainsAnyFold(text, chaseSecondary)
}

func (p *ChaseMatcher) AccountInfo(text string) models.AccountInfo {
	return accountInfo(p.Name(), text, tokens.MonthFirst)
}

func (p *ChaseMatcher) ExtractTransactions(_ context.Context, text string) []models.Transaction {
	period := findStatementPeriod(text, tokens.MonthFirst)
	inActivity := false

	var transactions []models.Transaction
	for _, line := range splitLines(text) {
		if line == "" {
			continue
		}
		if tokens.ContainsAnyFold(line, chaseActivityHeaders) {
			inActivity = true
			continue
		}
		if isExcluded(line, chaseExclusions) {
			continue
		}

		if m := chaseCheckPattern.FindStringSubmatch(line); m != nil {
			if txn, ok := p.dated(m[1], "Check #"+m[2], m[3], period.hint); ok {
				transactions = append(transactions, txn)
			}
			continue
		}
		if m := chaseDatedPattern.FindStringSubmatch(line); m != nil {
			if txn, ok := p.dated(m[1], cleanChaseDescription(m[2]), m[3], period.hint); ok {
				transactions = append(transactions, txn)
			}
			continue
		}
		// Undated rows only count inside the activity table; above it the
		// same shape is used by the account summary.
		if m := chaseNoDatePattern.FindStringSubmatch(line); m != nil && inActivity {
			amount, err := tokens.ParseAmount(m[2])
			if err != nil {
				continue
			}
			desc := cleanChaseDescription(m[1])
			transactions = append(transactions, newTransaction(p.Name(), undatedRowDate(period), true, desc, amount, signDirection(amount)))
		}
	}
	return transactions
}

func (p *ChaseMatcher) dated(dateStr, desc, amt string, hint tokens.YearHint) (models.Transaction, bool) {
	date, inferred, err := tokens.ParseDate(dateStr, hint)
	if err != nil {
		return models.Transaction{}, false
	}
	amount, err := tokens.ParseAmount(amt)
	if err != nil {
		return models.Transaction{}, false
	}
	return newTransaction(p.Name(), date, inferred, desc, amount, signDirection(amount)), true
}

// undatedRowDate is the date given to rows printed without one: the period
// start, else the period end, else today.
func undatedRowDate(period statementPeriod) time.Time {
	switch {
	case !period.start.IsZero():
		return period.start
	case period.known():
		return period.end
	default:
		now := tokens.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}

func cleanChaseDescription(desc string) string {
	desc = tokens.CollapseSpaces(desc)
	upper := strings.ToUpper(desc)
	for _, prefix := range chasePrefixes {
		if strings.HasPrefix(upper, prefix) {
			desc = strings.TrimSpace(desc[len(prefix):])
			// "PURCHASE AUTHORIZED ON 03/21 UBER TRIP"
			desc = chaseAuthDate.ReplaceAllString(desc, "")
			break
		}
	}
	desc = chaseTrailingDate.ReplaceAllString(desc, "")
	return chaseTrailingRef.ReplaceAllString(desc, "")
}
