package notionsync

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jomei/notionapi"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

// Notion database property names.
const (
	PropName          = "Name"
	PropRowKey        = "Row Key"
	PropUser          = "User"
	PropDate          = "Date"
	PropCategory      = "Category"
	PropAmount        = "Amount"
	PropPaymentMethod = "Payment Method"
)

// RowKey identifies a ledger row in Notion as "<user>#<index>". Ledger rows
// are only ever appended or edited in place, so the index is stable.
func RowKey(userID string, index int) string {
	return fmt.Sprintf("%s#%d", userID, index)
}

// ParseRowKey splits a row key. ok is false for keys of another shape.
func ParseRowKey(key string) (userID string, index int, ok bool) {
	i := strings.LastIndex(key, "#")
	if i <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(key[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return key[:i], n, true
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

// RecordToNotionProperties converts one ledger row to page properties. A date
// that is not YYYY-MM-DD is left off rather than guessed.
func RecordToNotionProperties(userID string, index int, r domain.Record) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Title: richText(r.Name),
		},
		PropRowKey: notionapi.RichTextProperty{
			RichText: richText(RowKey(userID, index)),
		},
		PropUser: notionapi.SelectProperty{
			Select: notionapi.Option{Name: userID},
		},
		PropAmount: notionapi.NumberProperty{
			Number: float64(r.Amount),
		},
	}

	if t, err := time.Parse(time.DateOnly, r.Date); err == nil {
		d := notionapi.Date(t)
		props[PropDate] = notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &d},
		}
	}

	if r.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(r.Category)},
		}
	}

	if r.PaymentMethod != "" {
		props[PropPaymentMethod] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(r.PaymentMethod)},
		}
	}

	return props
}

// extractRowKey returns the Row Key text of a page, or "" if absent.
func extractRowKey(page notionapi.Page) string {
	prop, ok := page.Properties[PropRowKey]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	var b strings.Builder
	for _, t := range rt.RichText {
		if t.PlainText != "" {
			b.WriteString(t.PlainText)
		} else if t.Text != nil {
			b.WriteString(t.Text.Content)
		}
	}
	return b.String()
}
