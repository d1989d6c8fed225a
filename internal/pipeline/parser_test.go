package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[{\"a\":1}]\n```", `[{"a":1}]`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", "Here is the JSON:\n[{\"a\":1}]", `[{"a":1}]`},
		{"trailing prose", "{\"a\":1}\nLet me know!", `{"a":1}`},
		{"no json", "sorry", "sorry"},
		{"whitespace", "  \n [1] \n", "[1]"},
		{"backticks in value", "{\"name\":\"a```b\"}", "{\"name\":\"a```b\"}"},
		{"fenced backticks in value", "```json\n[{\"name\":\"a```b\"}]\n```", "[{\"name\":\"a```b\"}]"},
		{"fence then prose", "```json\n[1]\n```\nDone.", "[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanModelJSON(tt.in))
		})
	}
}

func TestGeminiIntentParser_Prompts(t *testing.T) {
	var prompts []string
	p := newIntentParser("test-model", domain.DefaultVocabulary(), func(ctx context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		return `[]`, nil
	})

	_, err := p.ParseAdd(context.Background(), "晚餐吃拉麵用現金支付980日幣", testRef)
	require.NoError(t, err)
	_, err = p.ParseUpdate(context.Background(), "the ramen was paid by card", testRef)
	require.NoError(t, err)

	require.Len(t, prompts, 2)
	assert.Contains(t, prompts[0], "use 2025-02-13 when the note gives no date")
	assert.Contains(t, prompts[0], "breakfast, lunch, dinner")
	assert.Contains(t, prompts[0], "cash, credit-card, rakuten-pay, paypay")
	assert.Contains(t, prompts[0], "晚餐吃拉麵用現金支付980日幣")
	assert.Contains(t, prompts[1], "yesterday was 2025-02-12")
	assert.Contains(t, prompts[1], `"search"`)
	assert.Equal(t, "test-model", p.Model())
}

func TestGeminiIntentParser_Errors(t *testing.T) {
	p := newIntentParser("m", domain.DefaultVocabulary(), func(ctx context.Context, prompt string) (string, error) {
		return "   ", nil
	})
	_, err := p.ParseAdd(context.Background(), "x", testRef)
	assert.ErrorContains(t, err, "empty response")

	boom := errors.New("quota exceeded")
	p = newIntentParser("m", domain.DefaultVocabulary(), func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	})
	_, err = p.ParseUpdate(context.Background(), "x", testRef)
	assert.ErrorIs(t, err, boom)
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		text string
		want domain.CommandKind
	}{
		{"晚餐吃拉麵用現金支付980日幣", domain.KindAdd},
		{"修改昨天的拉麵為信用卡", domain.KindUpdate},
		{"ramen 980 cash", domain.KindAdd},
		{"change the ramen to credit card", domain.KindUpdate},
		{"Fix yesterday's coffee price", domain.KindUpdate},
		{"currency exchange fee 300", domain.KindAdd},
		{"prefix tickets 1200", domain.KindAdd},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(tt.text))
		})
	}
}
