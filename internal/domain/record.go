package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Field names one column of the persisted ledger table.
type Field string

const (
	FieldDate          Field = "date"
	FieldCategory      Field = "category"
	FieldName          Field = "name"
	FieldAmount        Field = "amount"
	FieldPaymentMethod Field = "payment_method"
)

// Columns is the canonical column order of the ledger table.
var Columns = []Field{FieldDate, FieldCategory, FieldName, FieldAmount, FieldPaymentMethod}

// fieldAliases maps accepted spellings (including the localized headers the
// extraction prompt historically used) to canonical fields.
var fieldAliases = map[string]Field{
	"date":           FieldDate,
	"日期":             FieldDate,
	"category":       FieldCategory,
	"類別":             FieldCategory,
	"类别":             FieldCategory,
	"name":           FieldName,
	"item":           FieldName,
	"名稱":             FieldName,
	"名称":             FieldName,
	"amount":         FieldAmount,
	"price":          FieldAmount,
	"價格":             FieldAmount,
	"价格":             FieldAmount,
	"payment_method": FieldPaymentMethod,
	"payment":        FieldPaymentMethod,
	"paymentmethod":  FieldPaymentMethod,
	"支付方式":           FieldPaymentMethod,
}

// ParseField resolves a column name or alias. Matching ignores case, and
// spaces or dashes are treated as underscores.
func ParseField(s string) (Field, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	f, ok := fieldAliases[key]
	return f, ok
}

// Record is one ledger line item.
//
// Date is kept as YYYY-MM-DD text rather than a time value so a row with a
// malformed date can still be loaded and corrected.
type Record struct {
	Date          string        `json:"date"`
	Category      Category      `json:"category"`
	Name          string        `json:"name"`
	Amount        int64         `json:"amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

// Get returns the textual value of a field.
func (r Record) Get(f Field) string {
	switch f {
	case FieldDate:
		return r.Date
	case FieldCategory:
		return string(r.Category)
	case FieldName:
		return r.Name
	case FieldAmount:
		return strconv.FormatInt(r.Amount, 10)
	case FieldPaymentMethod:
		return string(r.PaymentMethod)
	}
	return ""
}

// Set overwrites a field from its canonical textual value.
func (r *Record) Set(f Field, value string) error {
	switch f {
	case FieldDate:
		r.Date = value
	case FieldCategory:
		r.Category = Category(value)
	case FieldName:
		r.Name = value
	case FieldAmount:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return &ValidationError{Field: f, Value: value, Reason: "amount must be an integer", Err: err}
		}
		if n < 0 {
			return &ValidationError{Field: f, Value: value, Reason: "amount must not be negative"}
		}
		r.Amount = n
	case FieldPaymentMethod:
		r.PaymentMethod = PaymentMethod(value)
	default:
		return &ValidationError{Field: f, Value: value, Reason: "unknown column"}
	}
	return nil
}

// Complete reports whether every field is present. It is the check applied
// before a ledger is persisted.
func (r Record) Complete() error {
	for _, f := range []Field{FieldDate, FieldCategory, FieldName, FieldPaymentMethod} {
		if strings.TrimSpace(r.Get(f)) == "" {
			return &ValidationError{Field: f, Reason: "required field is empty"}
		}
	}
	if r.Amount < 0 {
		return &ValidationError{Field: FieldAmount, Value: r.Get(FieldAmount), Reason: "amount must not be negative"}
	}
	return nil
}

// Validate checks completeness and enum membership against a vocabulary.
func (r Record) Validate(v Vocabulary) error {
	if err := r.Complete(); err != nil {
		return err
	}
	if !v.HasCategory(r.Category) {
		return &ValidationError{Field: FieldCategory, Value: string(r.Category), Reason: "unknown category"}
	}
	if !v.HasPaymentMethod(r.PaymentMethod) {
		return &ValidationError{Field: FieldPaymentMethod, Value: string(r.PaymentMethod), Reason: "unknown payment method"}
	}
	return nil
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %q %d %s", r.Date, r.Category, r.Name, r.Amount, r.PaymentMethod)
}
