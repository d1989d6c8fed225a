package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
)

func sampleLedger() ledger.Ledger {
	l := ledger.New("alice")
	l.Records = []domain.Record{
		{Date: "2025-02-13", Category: domain.CategoryDinner, Name: "拉麵", Amount: 980, PaymentMethod: domain.PaymentCash},
		{Date: "2025-02-13", Category: domain.CategoryLunch, Name: "onigiri", Amount: 150, PaymentMethod: domain.PaymentCash},
		{Date: "2025-02-14", Category: domain.CategoryDeposit, Name: "Suica", Amount: 3000, PaymentMethod: domain.PaymentCreditCard},
		{Date: "2025-03-01", Category: domain.CategoryTransport, Name: "train", Amount: 210, PaymentMethod: domain.PaymentPayPay},
	}
	return l
}

func TestSummarize_ExcludesDepositByDefault(t *testing.T) {
	s, err := Summarize(sampleLedger(), Options{})
	require.NoError(t, err)

	assert.Equal(t, "alice", s.UserID)
	assert.Equal(t, "JPY", s.Currency)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, int64(1340), s.Total)
	assert.Contains(t, s.TotalDisplay, "1,340")

	require.Len(t, s.ByCategory, 3)
	assert.Equal(t, "dinner", s.ByCategory[0].Key)
	assert.Equal(t, int64(980), s.ByCategory[0].Amount)
	for _, b := range s.ByCategory {
		assert.NotEqual(t, "deposit", b.Key)
	}

	require.Len(t, s.ByPaymentMethod, 2)
	assert.Equal(t, Bucket{Key: "cash", Count: 2, Amount: 1130, Display: s.ByPaymentMethod[0].Display}, s.ByPaymentMethod[0])
}

func TestSummarize_IncludeDeposit(t *testing.T) {
	s, err := Summarize(sampleLedger(), Options{IncludeDeposit: true})
	require.NoError(t, err)

	assert.Equal(t, 4, s.Count)
	assert.Equal(t, int64(4340), s.Total)
	assert.Equal(t, "deposit", s.ByCategory[0].Key)
	assert.Equal(t, "credit-card", s.ByPaymentMethod[0].Key)
}

func TestSummarize_Month(t *testing.T) {
	s, err := Summarize(sampleLedger(), Options{Month: "2025-03"})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Count)
	assert.Equal(t, int64(210), s.Total)
	require.Len(t, s.ByCategory, 1)
	assert.Equal(t, "transport", s.ByCategory[0].Key)
}

func TestSummarize_FractionalCurrency(t *testing.T) {
	s, err := Summarize(sampleLedger(), Options{Currency: "usd"})
	require.NoError(t, err)

	assert.Equal(t, "USD", s.Currency)
	assert.Equal(t, int64(1340), s.Total)
	assert.Contains(t, s.TotalDisplay, "1,340.00")
}

func TestSummarize_EmptyLedger(t *testing.T) {
	s, err := Summarize(ledger.New("bob"), Options{})
	require.NoError(t, err)

	assert.Zero(t, s.Count)
	assert.Zero(t, s.Total)
	assert.NotNil(t, s.ByCategory)
	assert.Empty(t, s.ByCategory)
}

func TestSummarize_UnknownCurrency(t *testing.T) {
	_, err := Summarize(sampleLedger(), Options{Currency: "XXQ"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown currency")
}
