package parser

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightdelivered/statement-expenses/internal/logger"
	"github.com/insightdelivered/statement-expenses/internal/models"
	"github.com/insightdelivered/statement-expenses/internal/tokens"
)

const capitalOneStatement = `Capital One
Quicksilver World Mastercard ending in 4821
May 22, 2025 - Jun 20, 2025
Trans Date Post Date Description Amount
May 22 May 22 CAPITAL ONE MOBILE PYMTAuthDate 22-May - $244.23
Jun 2 Jun 3 BEST BUY 00010371NEWNANGA $194.95
Total Transactions for This Period $194.95`

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertTxn(t *testing.T, txn models.Transaction, wantDate time.Time, wantDesc, wantAmount string, wantDir models.Direction) {
	t.Helper()
	assert.Equal(t, wantDate, txn.Date, "date of %q", txn.Description)
	assert.Equal(t, wantDesc, txn.Description)
	assert.True(t, dec(wantAmount).Equal(txn.Amount), "amount of %q: got %s want %s", txn.Description, txn.Amount, wantAmount)
	assert.Equal(t, wantDir, txn.Direction, "direction of %q", txn.Description)
}

func TestCitibank_DualDateAndTwoLineRecords(t *testing.T) {
	text := `Citi Cards
Billing Period: 03/01/24 - 03/31/24
Previous balance $1,020.00
03/12 03/14 AMAZON MARKETPLACE AMZN.COM/BILL WA
$23.47
03/15 03/16 SHELL OIL 57442 $40.10
03/18 03/17 ONLINE PAYMENT, THANK YOU -$500.00
03/20 03/21 REFUND COSTCO WHOLESALE (12.00)`

	txns := (&CitibankMatcher{}).ExtractTransactions(context.Background(), text)
	require.Len(t, txns, 4)

	assertTxn(t, txns[0], date(2024, 3, 12), "AMAZON MARKETPLACE AMZN.COM/BILL WA", "23.47", models.Debit)
	assertTxn(t, txns[1], date(2024, 3, 15), "SHELL OIL 57442", "40.10", models.Debit)
	// The sale date is printed first, even when it follows the posting date.
	assertTxn(t, txns[2], date(2024, 3, 18), "ONLINE PAYMENT, THANK YOU", "-500.00", models.Credit)
	assertTxn(t, txns[3], date(2024, 3, 20), "REFUND COSTCO WHOLESALE", "-12.00", models.Credit)
	for _, txn := range txns {
		assert.Equal(t, "Citibank", txn.Issuer)
		assert.False(t, txn.DateInferred)
	}
}

func TestCitibank_WrappedDescription(t *testing.T) {
	text := `Citibank
03/01/2024 - 03/31/2024
03/05 03/06 SQ *BLUE BOTTLE COFFEE
OAKLAND CA
$7.25`

	txns := (&CitibankMatcher{}).ExtractTransactions(context.Background(), text)
	require.Len(t, txns, 1)
	assertTxn(t, txns[0], date(2024, 3, 5), "SQ *BLUE BOTTLE COFFEE OAKLAND CA", "7.25", models.Debit)
}

func TestCitibank_AmbiguousAmountIsDropped(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	text := `Citi Cards
03/01/24 - 03/31/24
03/12 03/14 MERCHANT ONE
03/13 03/15 MERCHANT TWO
$23.47`

	txns := (&CitibankMatcher{}).ExtractTransactions(ctx, text)
	assert.Empty(t, txns)
	assert.Contains(t, buf.String(), "orphaned_amount_dropped")
	assert.Contains(t, buf.String(), ErrAmbiguousAssociation.Error())
}

func TestCitibank_AmountOutsideWindowIsUnclaimed(t *testing.T) {
	text := `Citi Cards
03/12 03/14 MERCHANT ONE
Minimum payment due
Credit limit
Available credit
Customer service
$23.47`

	txns := (&CitibankMatcher{}).ExtractTransactions(context.Background(), text)
	assert.Empty(t, txns)
}

func TestBankOfAmerica_Extract(t *testing.T) {
	text := `Bank of America, N.A.
Statement Period 03/01/2024 to 03/31/2024
Account number: 0000 1234 5678
03/05/2024 CHECKCARD 0304 STARBUCKS STORE -6.45
03/07/2024 Online Banking transfer from SAV 500.00
03/09/2024 Check 1042 -125.00
03/11/2024 DEBIT CARD PURCHASE OFFICE DEPOT #00912 -45.10
Ending balance on 03/31/2024 1,234.56`

	m := &BankOfAmericaMatcher{}
	txns := m.ExtractTransactions(context.Background(), text)
	require.Len(t, txns, 4)

	assertTxn(t, txns[0], date(2024, 3, 5), "0304 STARBUCKS STORE", "-6.45", models.Debit)
	assertTxn(t, txns[1], date(2024, 3, 7), "from SAV", "500.00", models.Credit)
	assertTxn(t, txns[2], date(2024, 3, 9), "Check #1042", "-125.00", models.Debit)
	assertTxn(t, txns[3], date(2024, 3, 11), "OFFICE DEPOT", "-45.10", models.Debit)

	info := m.AccountInfo(text)
	assert.Equal(t, "Bank of America", info.Issuer)
	assert.Equal(t, "0000 1234 5678", info.AccountNumber)
	assert.Equal(t, date(2024, 3, 1), info.PeriodStart)
	assert.Equal(t, date(2024, 3, 31), info.PeriodEnd)
}

func TestChase_CanParse(t *testing.T) {
	m := &ChaseMatcher{}
	assert.True(t, m.CanParse("Manage your account at chase.com"))
	assert.True(t, m.CanParse("CHASE SAPPHIRE\nTRANSACTIONS THIS CYCLE"))
	assert.False(t, m.CanParse("Citi Double Cash\nAutopay from CHASE checking"))
	assert.False(t, m.CanParse("Wells Fargo"))
	assert.False(t, m.CanParse(capitalOneStatement))
	assert.False(t, m.CanParse("Quicksilver World Mastercard ending in 4821"))
}

func TestChase_Extract(t *testing.T) {
	text := `CHASE FREEDOM
Opening/Closing Date 03/01/24 - 03/31/24
New Balance $1,234.00
ACCOUNT ACTIVITY
03/14 WHOLE FOODS MARKET #10234 AUSTIN TX 52.18
03/18 Payment Thank You-Mobile -250.00
03/20 Check 1042 125.00
03/22 PURCHASE AUTHORIZED ON 03/21 UBER TRIP 18.25
AMAZON PRIME MEMBERSHIP 14.99`

	txns := (&ChaseMatcher{}).ExtractTransactions(context.Background(), text)
	require.Len(t, txns, 5)

	assertTxn(t, txns[0], date(2024, 3, 14), "WHOLE FOODS MARKET #10234 AUSTIN TX", "52.18", models.Debit)
	assertTxn(t, txns[1], date(2024, 3, 18), "Payment Thank You-Mobile", "-250.00", models.Credit)
	assertTxn(t, txns[2], date(2024, 3, 20), "Check #1042", "125.00", models.Debit)
	assertTxn(t, txns[3], date(2024, 3, 22), "UBER TRIP", "18.25", models.Debit)

	undated := txns[4]
	assertTxn(t, undated, date(2024, 3, 1), "AMAZON PRIME MEMBERSHIP", "14.99", models.Debit)
	assert.True(t, undated.DateInferred)
	assert.False(t, txns[0].DateInferred)
}

func TestChase_UndatedRowsIgnoredOutsideActivity(t *testing.T) {
	text := `CHASE FREEDOM
PAYMENTS AND CREDITS 250.00`
	txns := (&ChaseMatcher{}).ExtractTransactions(context.Background(), text)
	assert.Empty(t, txns)
}

func TestCapitalOne_Extract(t *testing.T) {
	m := &CapitalOneMatcher{}
	require.True(t, m.CanParse(capitalOneStatement))

	txns := m.ExtractTransactions(context.Background(), capitalOneStatement)
	require.Len(t, txns, 2)

	assertTxn(t, txns[0], date(2025, 5, 22), "CAPITAL ONE MOBILE PYMT", "-244.23", models.Credit)
	assertTxn(t, txns[1], date(2025, 6, 2), "BEST BUY 00010371NEWNANGA", "194.95", models.Debit)

	info := m.AccountInfo(capitalOneStatement)
	assert.Equal(t, date(2025, 6, 20), info.PeriodEnd)
}

func TestCapitalOne_SecondaryFingerprintNeedsNoOtherBank(t *testing.T) {
	m := &CapitalOneMatcher{}
	assert.True(t, m.CanParse("Platinum Card\nTrans Date Post Date Description Amount"))
	assert.False(t, m.CanParse("Platinum Card from JPMorgan"))
}

func TestNavyFederal_Extract(t *testing.T) {
	text := `Navy Federal Credit Union
Statement Period 06/12/25 - 07/11/25
Date Transaction Detail Amount($) Balance($)
06-12 Beginning Balance 324.26
06-30 Dividend 0.08 324.34
07-11 Checking Monthly Service Fee 10.00- 314.34
08/24/24 08/26/24 24269794238500664550107 GREENS DISCOUNT BEVERA GREENVILLE SC $79.68
07-11 Ending Balance 314.34`

	txns := (&NavyFederalMatcher{}).ExtractTransactions(context.Background(), text)
	require.Len(t, txns, 3)

	assertTxn(t, txns[0], date(2025, 6, 30), "Dividend", "0.08", models.Credit)
	require.NotNil(t, txns[0].Balance)
	assert.True(t, dec("324.34").Equal(*txns[0].Balance))

	assertTxn(t, txns[1], date(2025, 7, 11), "Checking Monthly Service Fee", "-10.00", models.Debit)
	assertTxn(t, txns[2], date(2024, 8, 24), "GREENS DISCOUNT BEVERA GREENVILLE SC", "79.68", models.Debit)
}

func TestYearRollover(t *testing.T) {
	text := `Citi Cards
Billing Period: 12/15/23 - 01/14/24
12/28 12/29 HOTEL TONIGHT $180.00
01/03 01/04 LYFT RIDE $12.40`

	txns := (&CitibankMatcher{}).ExtractTransactions(context.Background(), text)
	require.Len(t, txns, 2)
	assert.Equal(t, date(2023, 12, 28), txns[0].Date)
	assert.Equal(t, date(2024, 1, 3), txns[1].Date)
}

func TestNoPeriodUsesCurrentYear(t *testing.T) {
	orig := tokens.Now
	tokens.Now = func() time.Time { return date(2026, 10, 19) }
	defer func() { tokens.Now = orig }()

	txns := (&CitibankMatcher{}).ExtractTransactions(context.Background(), "Citi\n03/12 03/14 LYFT RIDE $12.40")
	require.Len(t, txns, 1)
	assert.Equal(t, date(2026, 3, 12), txns[0].Date)
	assert.True(t, txns[0].DateInferred)
}

func TestNoPeriodDualDateAcrossNewYear(t *testing.T) {
	orig := tokens.Now
	tokens.Now = func() time.Time { return date(2025, 1, 10) }
	defer func() { tokens.Now = orig }()

	txns := (&CitibankMatcher{}).ExtractTransactions(context.Background(), "Citi\n12/30 01/02 HOTEL TONIGHT $180.00")
	require.Len(t, txns, 1)
	assert.Equal(t, date(2024, 12, 30), txns[0].Date)
	assert.True(t, txns[0].DateInferred)
}
