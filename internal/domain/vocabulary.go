package domain

import (
	"strings"
)

// Category classifies a ledger record.
type Category string

const (
	CategoryBreakfast     Category = "breakfast"
	CategoryLunch         Category = "lunch"
	CategoryDinner        Category = "dinner"
	CategorySnack         Category = "snack"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryDeposit       Category = "deposit"
	CategoryOther         Category = "other"
)

// Categories is the fixed category enumeration.
var Categories = []Category{
	CategoryBreakfast, CategoryLunch, CategoryDinner, CategorySnack,
	CategoryTransport, CategoryEntertainment, CategoryDeposit, CategoryOther,
}

// PaymentMethod names how a record was paid.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit-card"
	PaymentRakutenPay PaymentMethod = "rakuten-pay"
	PaymentPayPay     PaymentMethod = "paypay"
)

// DefaultPaymentMethods are the methods available without configuration.
var DefaultPaymentMethods = []PaymentMethod{PaymentCash, PaymentCreditCard, PaymentRakutenPay, PaymentPayPay}

var categoryLabels = map[string]Category{
	"早餐": CategoryBreakfast,
	"午餐": CategoryLunch,
	"晚餐": CategoryDinner,
	"點心": CategorySnack,
	"点心": CategorySnack,
	"零食": CategorySnack,
	"交通": CategoryTransport,
	"娛樂": CategoryEntertainment,
	"娱乐": CategoryEntertainment,
	"儲值": CategoryDeposit,
	"储值": CategoryDeposit,
	"其他": CategoryOther,
}

var paymentLabels = map[string]PaymentMethod{
	"現金":      PaymentCash,
	"现金":      PaymentCash,
	"信用卡":     PaymentCreditCard,
	"credit":  PaymentCreditCard,
	"card":    PaymentCreditCard,
	"樂天pay":   PaymentRakutenPay,
	"乐天pay":   PaymentRakutenPay,
	"rakuten": PaymentRakutenPay,
}

// Vocabulary holds the enumerations a record is validated against. The
// category set is fixed; payment methods may be extended with named e-wallet
// or transit-card methods.
type Vocabulary struct {
	Categories     []Category
	PaymentMethods []PaymentMethod
}

// DefaultVocabulary returns the built-in categories and payment methods.
func DefaultVocabulary() Vocabulary {
	return NewVocabulary(nil)
}

// NewVocabulary builds a vocabulary whose payment methods are the given names,
// or the defaults when none are given.
func NewVocabulary(paymentMethods []string) Vocabulary {
	v := Vocabulary{Categories: append([]Category(nil), Categories...)}
	if len(paymentMethods) == 0 {
		v.PaymentMethods = append([]PaymentMethod(nil), DefaultPaymentMethods...)
		return v
	}
	seen := make(map[PaymentMethod]bool)
	for _, p := range paymentMethods {
		pm := PaymentMethod(normalizeToken(p))
		if pm == "" || seen[pm] {
			continue
		}
		seen[pm] = true
		v.PaymentMethods = append(v.PaymentMethods, pm)
	}
	return v
}

// HasCategory reports whether c is a member of the category enumeration.
func (v Vocabulary) HasCategory(c Category) bool {
	for _, x := range v.Categories {
		if x == c {
			return true
		}
	}
	return false
}

// HasPaymentMethod reports whether p is a configured payment method.
func (v Vocabulary) HasPaymentMethod(p PaymentMethod) bool {
	for _, x := range v.PaymentMethods {
		if x == p {
			return true
		}
	}
	return false
}

// ResolveCategory maps free text (canonical name in any case, or a localized
// label) onto the enumeration.
func (v Vocabulary) ResolveCategory(s string) (Category, bool) {
	tok := normalizeToken(s)
	if c, ok := categoryLabels[tok]; ok && v.HasCategory(c) {
		return c, true
	}
	c := Category(tok)
	return c, v.HasCategory(c)
}

// ResolvePaymentMethod maps free text onto a configured payment method.
func (v Vocabulary) ResolvePaymentMethod(s string) (PaymentMethod, bool) {
	tok := normalizeToken(s)
	if p, ok := paymentLabels[tok]; ok && v.HasPaymentMethod(p) {
		return p, true
	}
	p := PaymentMethod(tok)
	if v.HasPaymentMethod(p) {
		return p, true
	}
	// "credit card" and "creditcard" both mean credit-card.
	squashed := strings.ReplaceAll(tok, "-", "")
	for _, x := range v.PaymentMethods {
		if strings.ReplaceAll(string(x), "-", "") == squashed {
			return x, true
		}
	}
	return "", false
}

// CategoryNames returns the category enumeration as strings.
func (v Vocabulary) CategoryNames() []string {
	out := make([]string, len(v.Categories))
	for i, c := range v.Categories {
		out[i] = string(c)
	}
	return out
}

// PaymentMethodNames returns the payment methods as strings.
func (v Vocabulary) PaymentMethodNames() []string {
	out := make([]string, len(v.PaymentMethods))
	for i, p := range v.PaymentMethods {
		out[i] = string(p)
	}
	return out
}

func normalizeToken(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(s)
}
