package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

var testRef = time.Date(2025, 2, 13, 20, 30, 0, 0, time.UTC)

func TestNormalizeAdd_Shapes(t *testing.T) {
	n := NewNormalizer(domain.DefaultVocabulary())
	want := domain.Record{Date: "2025-02-13", Category: domain.CategoryDinner, Name: "ramen", Amount: 980, PaymentMethod: domain.PaymentCash}

	tests := []struct {
		name string
		raw  string
	}{
		{"array", `[{"date":"2025-02-13","category":"dinner","name":"ramen","amount":980,"payment_method":"cash"}]`},
		{"single object", `{"date":"2025-02-13","category":"dinner","name":"ramen","amount":980,"payment_method":"cash"}`},
		{"fenced", "```json\n[{\"date\":\"2025-02-13\",\"category\":\"dinner\",\"name\":\"ramen\",\"amount\":980,\"payment_method\":\"cash\"}]\n```"},
		{"chatter around object", `Sure! Here you go: {"date":"2025-02-13","category":"dinner","name":"ramen","amount":980,"payment_method":"cash"} Hope it helps.`},
		{"wrapper key", `{"records":[{"date":"2025-02-13","category":"dinner","name":"ramen","amount":980,"payment_method":"cash"}]}`},
		{"localized keys and labels", `{"日期":"今天","類別":"晚餐","名稱":"ramen","價格":"980円","支付方式":"現金"}`},
		{"missing date defaults to reference day", `{"category":"Dinner","name":" ramen ","amount":"980","payment":"Cash"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, errs, err := n.NormalizeAdd(tt.raw, testRef)
			require.NoError(t, err)
			require.Len(t, cmds, 1)
			require.NoError(t, errs[0])
			assert.Equal(t, domain.KindAdd, cmds[0].Kind)
			assert.Equal(t, want, cmds[0].Record)
		})
	}
}

func TestNormalizeAdd_ParseErrors(t *testing.T) {
	n := NewNormalizer(domain.DefaultVocabulary())
	for _, raw := range []string{"", "I could not understand that.", "[{\"name\": }]", `"just a string"`} {
		_, _, err := n.NormalizeAdd(raw, testRef)
		var perr *domain.ParseError
		require.ErrorAs(t, err, &perr, raw)
		assert.Equal(t, raw, perr.Raw)
	}
}

func TestNormalizeAdd_PerItemValidation(t *testing.T) {
	n := NewNormalizer(domain.DefaultVocabulary())
	raw := `[
		{"category":"lunch","name":"udon","amount":500,"payment_method":"cash"},
		{"category":"lunch","name":"soba","amount":"abc","payment_method":"cash"},
		{"category":"groceries","name":"milk","amount":200,"payment_method":"cash"},
		{"category":"lunch","name":"tea","amount":150,"payment_method":"bitcoin"},
		{"category":"lunch","name":"cake","amount":-3,"payment_method":"cash"},
		{"category":"lunch","name":"","amount":1,"payment_method":"cash"},
		{"category":"lunch","name":"pie","payment_method":"cash"},
		{"date":"31/31","category":"lunch","name":"x","amount":1,"payment_method":"cash"},
		"not an object"
	]`
	cmds, errs, err := n.NormalizeAdd(raw, testRef)
	require.NoError(t, err)
	require.Len(t, cmds, 9)
	require.Len(t, errs, 9)

	assert.NoError(t, errs[0])
	assert.Equal(t, "udon", cmds[0].Record.Name)

	wantFields := []domain.Field{"", domain.FieldAmount, domain.FieldCategory, domain.FieldPaymentMethod, domain.FieldAmount, domain.FieldName, domain.FieldAmount, domain.FieldDate, ""}
	for i := 1; i < len(errs); i++ {
		var verr *domain.ValidationError
		require.ErrorAs(t, errs[i], &verr, "item %d", i)
		assert.Equal(t, wantFields[i], verr.Field, "item %d", i)
	}
}

func TestNormalizeAdd_AmountCoercion(t *testing.T) {
	n := NewNormalizer(domain.DefaultVocabulary())
	tests := []struct {
		amount string
		want   int64
	}{
		{`980`, 980},
		{`"1,200"`, 1200},
		{`"¥ 450"`, 450},
		{`99.5`, 100},
		{`"99.4"`, 99},
		{`0`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			raw := `{"category":"snack","name":"x","amount":` + tt.amount + `,"payment_method":"cash"}`
			cmds, errs, err := n.NormalizeAdd(raw, testRef)
			require.NoError(t, err)
			require.NoError(t, errs[0])
			assert.Equal(t, tt.want, cmds[0].Record.Amount)
		})
	}
}

func TestResolveDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"today", "2025-02-13", true},
		{"Yesterday", "2025-02-12", true},
		{"昨天", "2025-02-12", true},
		{"前天", "2025-02-11", true},
		{"明天", "2025-02-14", true},
		{"2025-02-01", "2025-02-01", true},
		{"2025/2/1", "2025-02-01", true},
		{"2025.02.01", "2025-02-01", true},
		{"02/10", "2025-02-10", true},
		{"2-10", "2025-02-10", true},
		{"2025-02-30", "", false},
		{"last week", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := resolveDate(tt.in, testRef)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeUpdate(t *testing.T) {
	n := NewNormalizer(domain.DefaultVocabulary())
	raw := `[{"search":{"name":"Ramen","date":"yesterday","payment":"現金"},"update":{"payment":"credit card","price":"1,000"}}]`

	cmds, errs, err := n.NormalizeUpdate(raw, testRef)
	require.NoError(t, err)
	require.Len(t, cmds, 1)
	require.NoError(t, errs[0])

	assert.Equal(t, domain.KindUpdate, cmds[0].Kind)
	assert.Equal(t, domain.FieldValues{
		domain.FieldName:          "Ramen",
		domain.FieldDate:          "2025-02-12",
		domain.FieldPaymentMethod: "cash",
	}, cmds[0].Search)
	assert.Equal(t, domain.FieldValues{
		domain.FieldPaymentMethod: "credit-card",
		domain.FieldAmount:        "1000",
	}, cmds[0].Update)
}

func TestNormalizeUpdate_SearchKeepsPartialValues(t *testing.T) {
	n := NewNormalizer(domain.DefaultVocabulary())
	cmds, errs, err := n.NormalizeUpdate(`{"search":{"amount":98,"date":"02-1","category":"din"},"update":{"name":"ramen"}}`, testRef)
	require.NoError(t, err)
	require.NoError(t, errs[0])
	assert.Equal(t, domain.FieldValues{
		domain.FieldAmount:   "98",
		domain.FieldDate:     "02-1",
		domain.FieldCategory: "din",
	}, cmds[0].Search)
}

func TestNormalizeUpdate_Invalid(t *testing.T) {
	n := NewNormalizer(domain.DefaultVocabulary())
	tests := []struct {
		name      string
		raw       string
		emptySrch bool
	}{
		{"unknown search column", `{"search":{"colour":"red"},"update":{"name":"x"}}`, false},
		{"unknown update column", `{"search":{"name":"x"},"update":{"shop":"y"}}`, false},
		{"empty search", `{"search":{},"update":{"name":"x"}}`, true},
		{"missing search", `{"update":{"name":"x"}}`, false},
		{"empty update", `{"search":{"name":"x"},"update":{}}`, false},
		{"bad enum in update", `{"search":{"name":"x"},"update":{"category":"groceries"}}`, false},
		{"bad amount in update", `{"search":{"name":"x"},"update":{"amount":"lots"}}`, false},
		{"null update value", `{"search":{"name":"x"},"update":{"name":null}}`, false},
		{"nested search value", `{"search":{"name":{"a":1}},"update":{"name":"x"}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds, errs, err := n.NormalizeUpdate(tt.raw, testRef)
			require.NoError(t, err)
			require.Len(t, cmds, 1)
			var verr *domain.ValidationError
			require.ErrorAs(t, errs[0], &verr)
			assert.Equal(t, tt.emptySrch, verr.Unwrap() == domain.ErrEmptySearch)
		})
	}
}
