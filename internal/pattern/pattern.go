// Package pattern derives a line pattern from a cluster of transaction-like
// lines and applies it back to a whole page.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

// ErrPatternRejected is returned when no pattern fits enough of the cluster.
var ErrPatternRejected = errors.New("synthesized pattern rejected")

// Field is one of the three parts of a transaction line.
type Field byte

const (
	FieldDate        Field = 'D'
	FieldDescription Field = 'S'
	FieldAmount      Field = 'A'
)

// preferredOrders breaks ties between equally common field orders.
var preferredOrders = []string{"DSA", "SDA", "DAS", "ASD", "SAD", "ADS"}

// Pattern is a compiled extraction rule for one page layout.
type Pattern struct {
	Order    string // field order, e.g. "DSA"
	DualDate bool   // a second date (posting date) follows the first
	Balance  bool   // a running balance follows the amount
	re       *regexp.Regexp
}

// String returns the regular expression.
func (p *Pattern) String() string {
	return p.re.String()
}

// shape describes one line: its field order and how many dates/amounts it
// carries in the leading/trailing runs.
type shape struct {
	order    string
	dualDate bool
	balance  bool
}

// Synthesize builds a Pattern from the member lines of a transaction cluster.
// The field order, the dual-date flag and the balance flag are decided by
// majority over the lines that contain a date, an amount and some text.
func Synthesize(lines []string) (*Pattern, error) {
	orders := map[string]int{}
	voters, dual, balance := 0, 0, 0

	for _, line := range lines {
		s, ok := analyze(line)
		if !ok {
			continue
		}
		voters++
		orders[s.order]++
		if s.dualDate {
			dual++
		}
		if s.balance {
			balance++
		}
	}
	if voters == 0 {
		return nil, fmt.Errorf("%w: no line has a date, a description and an amount", ErrPatternRejected)
	}

	p := &Pattern{
		Order:    majorityOrder(orders),
		DualDate: dual*2 > voters,
		Balance:  balance*2 >= voters,
	}
	re, err := regexp.Compile(p.expr())
	if err != nil {
		return nil, fmt.Errorf("compile pattern: %w", err)
	}
	p.re = re

	matched := 0
	for _, line := range lines {
		if p.re.MatchString(line) {
			matched++
		}
	}
	if matched*2 < len(lines) {
		return nil, fmt.Errorf("%w: matches %d of %d lines", ErrPatternRejected, matched, len(lines))
	}
	return p, nil
}

func majorityOrder(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	rank := func(order string) int {
		for i, o := range preferredOrders {
			if o == order {
				return i
			}
		}
		return len(preferredOrders)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return rank(keys[i]) < rank(keys[j])
	})
	return keys[0]
}

func analyze(line string) (shape, bool) {
	dates := tokens.Date.FindAllStringIndex(line, -1)
	money := tokens.Money.FindAllStringIndex(line, -1)
	if len(dates) == 0 || len(money) == 0 {
		return shape{}, false
	}

	// The amount is the last money token, unless the last two sit side by
	// side at the end of the line, where the final one is a balance.
	var s shape
	amount := money[len(money)-1]
	if len(money) >= 2 {
		prev := money[len(money)-2]
		if strings.TrimSpace(line[prev[1]:amount[0]]) == "" {
			s.balance = true
			amount = prev
		}
	}
	date := dates[0]
	if len(dates) >= 2 && strings.TrimSpace(line[date[1]:dates[1][0]]) == "" {
		s.dualDate = true
	}

	descPos := -1
	for i, r := range line {
		if !unicode.IsLetter(r) || inside(i, dates) || inside(i, money) {
			continue
		}
		descPos = i
		break
	}
	if descPos < 0 {
		return shape{}, false
	}

	type field struct {
		f   Field
		pos int
	}
	fields := []field{{FieldDate, date[0]}, {FieldDescription, descPos}, {FieldAmount, amount[0]}}
	sort.Slice(fields, func(i, j int) bool { return fields[i].pos < fields[j].pos })
	for _, f := range fields {
		s.order += string(f.f)
	}
	return s, true
}

func inside(i int, spans [][]int) bool {
	for _, sp := range spans {
		if i >= sp[0] && i < sp[1] {
			return true
		}
	}
	return false
}

func (p *Pattern) expr() string {
	var parts []string
	for _, f := range p.Order {
		switch Field(f) {
		case FieldDate:
			part := `(?P<date>` + tokens.DateExpr + `)`
			if p.DualDate {
				part += `(?:\s+(?P<date2>` + tokens.DateExpr + `))?`
			}
			parts = append(parts, part)
		case FieldDescription:
			parts = append(parts, `(?P<desc>.+?)`)
		case FieldAmount:
			part := `(?P<amount>` + tokens.MoneyExpr + `)`
			if p.Balance {
				part += `(?:\s+(?P<balance>` + tokens.MoneyExpr + `))?`
			}
			parts = append(parts, part)
		}
	}
	return `^\s*` + strings.Join(parts, `\s+`) + `\s*$`
}

// Match is the raw captures of one matching line.
type Match struct {
	Date        string
	Date2       string
	Description string
	Amount      string
	Balance     string
}

// Match applies the pattern to one line.
func (p *Pattern) Match(line string) (Match, bool) {
	m := p.re.FindStringSubmatch(line)
	if m == nil {
		return Match{}, false
	}
	var out Match
	for i, name := range p.re.SubexpNames() {
		switch name {
		case "date":
			out.Date = m[i]
		case "date2":
			out.Date2 = m[i]
		case "desc":
			out.Description = m[i]
		case "amount":
			out.Amount = m[i]
		case "balance":
			out.Balance = m[i]
		}
	}
	return out, true
}
