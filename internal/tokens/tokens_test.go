package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"52.18", "52.18"},
		{"$1,234.56", "1234.56"},
		{"-45.00", "-45"},
		{"(12.00)", "-12"},
		{"10.00-", "-10"},
		{"£25.99", "25.99"},
		{"+3.50", "3.5"},
		{"  $ 7.01 ", "7.01"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", "$", "abc", "--"} {
		_, err := ParseAmount(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestMoneyPattern(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"03/14/2024 WHOLE FOODS MARKET 52.18", []string{"52.18"}},
		{"06-15 POS DEBIT 10.00- 314.26", []string{"10.00-", "314.26"}},
		{"AUTOPAY PAYMENT (1,200.00)", []string{"(1,200.00)"}},
		{"Page 1 of 3", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Money.FindAllString(tt.line, -1))
		})
	}
}

func TestDatePattern(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"03/14/2024 WHOLE FOODS MARKET 52.18", []string{"03/14/2024"}},
		{"Jun 2 Jun 3 BEST BUY $194.95", []string{"Jun 2", "Jun 3"}},
		{"15 Jan 2024 TESCO 25.99", []string{"15 Jan 2024"}},
		{"2024-03-14 rent", []string{"2024-03-14"}},
		{"MAYFAIR CAFE 12.00", nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, Date.FindAllString(tt.line, -1))
		})
	}
}

func TestIsAmountOnly(t *testing.T) {
	assert.True(t, IsAmountOnly("  $52.18 "))
	assert.True(t, IsAmountOnly("(12.00)"))
	assert.False(t, IsAmountOnly("03/14 WHOLE FOODS 52.18"))
	assert.False(t, IsAmountOnly(""))
}

func TestParseDate(t *testing.T) {
	hint := YearHint{Year: 2025, EndMonth: time.January}

	tests := []struct {
		name         string
		input        string
		hint         YearHint
		want         time.Time
		wantInferred bool
	}{
		{"full numeric", "03/14/2024", YearHint{}, date(2024, 3, 14), false},
		{"two digit year", "06/12/25", YearHint{}, date(2025, 6, 12), false},
		{"iso", "2024-03-14", YearHint{}, date(2024, 3, 14), false},
		{"text with year", "May 22, 2025", YearHint{}, date(2025, 5, 22), false},
		{"day first text", "15 Jan 24", YearHint{}, date(2024, 1, 15), false},
		{"no year uses hint", "01/10", hint, date(2025, 1, 10), false},
		{"december rolls back", "12/28", hint, date(2024, 12, 28), false},
		{"short month name", "Jun 2", YearHint{Year: 2025, EndMonth: time.June}, date(2025, 6, 2), false},
		{"sept", "Sept 3, 2024", YearHint{}, date(2024, 9, 3), false},
		{"day first numeric", "15/01/2024", YearHint{Order: DayFirst}, date(2024, 1, 15), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, inferred, err := ParseDate(tt.input, tt.hint)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			assert.Equal(t, tt.wantInferred, inferred)
		})
	}
}

func TestParseDate_UnknownYearIsInferred(t *testing.T) {
	orig := Now
	Now = func() time.Time { return date(2031, 7, 1) }
	defer func() { Now = orig }()

	got, inferred, err := ParseDate("03/14", YearHint{})
	require.NoError(t, err)
	assert.True(t, inferred)
	assert.Equal(t, 2031, got.Year())
}

func TestParseDate_Invalid(t *testing.T) {
	for _, input := range []string{"", "13/45/2024", "hello", "02/29"} {
		_, _, err := ParseDate(input, YearHint{Year: 2023})
		assert.Error(t, err, "input %q", input)
	}
}

func TestFindPeriod(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		order Order
		start time.Time
		end   time.Time
	}{
		{"navy federal", "Statement Period 06/12/25 - 07/11/25", MonthFirst, date(2025, 6, 12), date(2025, 7, 11)},
		{"capital one", "May 22, 2025 - Jun 20, 2025 | 30 days in Billing Cycle", MonthFirst, date(2025, 5, 22), date(2025, 6, 20)},
		{"metro", "Statement period: 01/01/2024 to 31/01/2024", DayFirst, date(2024, 1, 1), date(2024, 1, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := FindPeriod(tt.text, tt.order)
			require.True(t, ok)
			assert.True(t, tt.start.Equal(start), "start %s", start)
			assert.True(t, tt.end.Equal(end), "end %s", end)
		})
	}

	_, _, ok := FindPeriod("no period here", MonthFirst)
	assert.False(t, ok)
}

func TestDetectOrder(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Order
	}{
		{"us dates", "03/14/2024 WHOLE FOODS 52.18\n03/20/2024 SHELL 40.00", MonthFirst},
		{"uk dates", "15/03/2024 TESCO STORES 12.00\n16/03/2024 BOOTS 8.50", DayFirst},
		{"ambiguous reads month first", "03/04/2024 CAFE 3.00", MonthFirst},
		{"iso dates ignored", "2024-03-14 CAFE 3.00\n15/03/2024 TESCO 12.00", DayFirst},
		{"no dates", "Dear customer", MonthFirst},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOrder(tt.text))
		})
	}
}

func TestSaleDate(t *testing.T) {
	tests := []struct {
		name   string
		sale   time.Time
		posted time.Time
		want   time.Time
	}{
		{"sale before post", date(2024, 3, 14), date(2024, 3, 16), date(2024, 3, 14)},
		{"post before sale keeps sale", date(2024, 3, 16), date(2024, 3, 14), date(2024, 3, 16)},
		{"already rolled over", date(2024, 12, 30), date(2025, 1, 2), date(2024, 12, 30)},
		{"same year across new year", date(2025, 12, 30), date(2025, 1, 2), date(2024, 12, 30)},
		{"no posting date", date(2025, 6, 1), time.Time{}, date(2025, 6, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SaleDate(tt.sale, tt.posted))
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
