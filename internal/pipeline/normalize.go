package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

// Normalizer validates and repairs intent parser output into commands.
type Normalizer struct {
	Vocab domain.Vocabulary
}

func NewNormalizer(vocab domain.Vocabulary) *Normalizer {
	return &Normalizer{Vocab: vocab}
}

// NormalizeAdd turns raw output into Add commands. The returned error is a
// *domain.ParseError when the payload as a whole is unreadable. Otherwise
// errs is aligned with cmds and holds a *domain.ValidationError for each item
// that could not be normalized.
func (n *Normalizer) NormalizeAdd(raw string, ref time.Time) ([]domain.Command, []error, error) {
	items, err := decodeItems(raw)
	if err != nil {
		return nil, nil, err
	}

	cmds := make([]domain.Command, len(items))
	errs := make([]error, len(items))
	for i, item := range items {
		obj, err := asObject(item)
		if err != nil {
			errs[i] = err
			continue
		}
		rec, err := n.normalizeRecord(obj, ref)
		if err != nil {
			errs[i] = err
			continue
		}
		cmds[i] = domain.NewAdd(rec)
	}
	return cmds, errs, nil
}

// NormalizeUpdate turns raw output into Update commands, with the same
// error contract as NormalizeAdd.
func (n *Normalizer) NormalizeUpdate(raw string, ref time.Time) ([]domain.Command, []error, error) {
	items, err := decodeItems(raw)
	if err != nil {
		return nil, nil, err
	}

	cmds := make([]domain.Command, len(items))
	errs := make([]error, len(items))
	for i, item := range items {
		obj, err := asObject(item)
		if err != nil {
			errs[i] = err
			continue
		}
		search, err := n.normalizeSearch(obj["search"], ref)
		if err != nil {
			errs[i] = err
			continue
		}
		update, err := n.normalizeUpdate(obj["update"], ref)
		if err != nil {
			errs[i] = err
			continue
		}
		cmds[i] = domain.NewUpdate(search, update)
	}
	return cmds, errs, nil
}

// decodeItems cleans and decodes raw output into a list of items. A single
// object becomes a one-element list; an object holding nothing but a
// wrapper key is unwrapped.
func decodeItems(raw string) ([]interface{}, error) {
	clean := CleanModelJSON(raw)
	if clean == "" {
		return nil, &domain.ParseError{Raw: raw, Err: errors.New("empty output")}
	}

	dec := json.NewDecoder(strings.NewReader(clean))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, &domain.ParseError{Raw: raw, Err: err}
	}

	switch t := v.(type) {
	case []interface{}:
		return t, nil
	case map[string]interface{}:
		if len(t) == 1 {
			for _, k := range wrapperKeys {
				if arr, ok := t[k].([]interface{}); ok {
					return arr, nil
				}
			}
		}
		return []interface{}{t}, nil
	default:
		return nil, &domain.ParseError{Raw: raw, Err: fmt.Errorf("top-level value is %T, want object or array", v)}
	}
}

func asObject(item interface{}) (map[string]interface{}, error) {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("item is %T, want object", item)}
	}
	return obj, nil
}

// canonicalFields maps the keys of obj onto columns. Keys are visited in
// sorted order so that the first reported error is stable.
func canonicalFields(obj map[string]interface{}) (map[domain.Field]interface{}, []string) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make(map[domain.Field]interface{}, len(obj))
	var unknown []string
	for _, k := range keys {
		f, ok := domain.ParseField(k)
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		// The canonical spelling wins over an alias.
		if _, dup := fields[f]; dup && k != string(f) {
			continue
		}
		fields[f] = obj[k]
	}
	return fields, unknown
}

func (n *Normalizer) normalizeRecord(obj map[string]interface{}, ref time.Time) (domain.Record, error) {
	fields, _ := canonicalFields(obj)

	var rec domain.Record
	for _, f := range domain.Columns {
		v, present := fields[f]
		text, _ := scalarString(v)
		if f == domain.FieldDate && (!present || strings.TrimSpace(text) == "") {
			rec.Date = refDate(ref).String()
			continue
		}
		if !present || v == nil {
			return domain.Record{}, &domain.ValidationError{Field: f, Reason: "required field is missing"}
		}
		value, err := n.normalizeValue(f, v, ref)
		if err != nil {
			return domain.Record{}, err
		}
		if err := rec.Set(f, value); err != nil {
			return domain.Record{}, err
		}
	}
	return rec, nil
}

func (n *Normalizer) normalizeSearch(v interface{}, ref time.Time) (domain.FieldValues, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, &domain.ValidationError{Reason: "update item needs a \"search\" object"}
	}
	fields, unknown := canonicalFields(obj)
	if len(unknown) > 0 {
		return nil, &domain.ValidationError{Field: domain.Field(unknown[0]), Reason: "unknown column in search"}
	}
	if len(fields) == 0 {
		return nil, &domain.ValidationError{Reason: "search is empty", Err: domain.ErrEmptySearch}
	}

	search := make(domain.FieldValues, len(fields))
	for f, raw := range fields {
		text, ok := scalarString(raw)
		if !ok {
			return nil, &domain.ValidationError{Field: f, Reason: fmt.Sprintf("search value is %T, want scalar", raw)}
		}
		text = strings.TrimSpace(text)
		switch f {
		case domain.FieldDate:
			if d, ok := resolveRelativeDate(text, ref); ok {
				text = d
			}
		case domain.FieldCategory:
			if c, ok := n.Vocab.ResolveCategory(text); ok {
				text = string(c)
			}
		case domain.FieldPaymentMethod:
			if p, ok := n.Vocab.ResolvePaymentMethod(text); ok {
				text = string(p)
			}
		}
		search[f] = text
	}
	return search, nil
}

func (n *Normalizer) normalizeUpdate(v interface{}, ref time.Time) (domain.FieldValues, error) {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, &domain.ValidationError{Reason: "update item needs an \"update\" object"}
	}
	fields, unknown := canonicalFields(obj)
	if len(unknown) > 0 {
		return nil, &domain.ValidationError{Field: domain.Field(unknown[0]), Reason: "unknown column in update"}
	}
	if len(fields) == 0 {
		return nil, &domain.ValidationError{Reason: "update is empty"}
	}

	update := make(domain.FieldValues, len(fields))
	for _, f := range domain.Columns {
		raw, ok := fields[f]
		if !ok {
			continue
		}
		if raw == nil {
			return nil, &domain.ValidationError{Field: f, Reason: "update value must not be null"}
		}
		value, err := n.normalizeValue(f, raw, ref)
		if err != nil {
			return nil, err
		}
		update[f] = value
	}
	return update, nil
}

// normalizeValue returns the canonical text for one field value.
func (n *Normalizer) normalizeValue(f domain.Field, v interface{}, ref time.Time) (string, error) {
	if f == domain.FieldAmount {
		amount, err := coerceAmount(v)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(amount, 10), nil
	}

	text, ok := scalarString(v)
	if !ok {
		return "", &domain.ValidationError{Field: f, Reason: fmt.Sprintf("value is %T, want string", v)}
	}
	text = strings.TrimSpace(text)

	switch f {
	case domain.FieldDate:
		d, err := resolveDate(text, ref)
		if err != nil {
			return "", &domain.ValidationError{Field: f, Value: text, Reason: "date must be YYYY-MM-DD", Err: err}
		}
		return d, nil
	case domain.FieldCategory:
		c, ok := n.Vocab.ResolveCategory(text)
		if !ok {
			return "", &domain.ValidationError{Field: f, Value: text, Reason: "unknown category"}
		}
		return string(c), nil
	case domain.FieldPaymentMethod:
		p, ok := n.Vocab.ResolvePaymentMethod(text)
		if !ok {
			return "", &domain.ValidationError{Field: f, Value: text, Reason: "unknown payment method"}
		}
		return string(p), nil
	case domain.FieldName:
		if text == "" {
			return "", &domain.ValidationError{Field: f, Reason: "name must not be empty"}
		}
		return text, nil
	}
	return "", &domain.ValidationError{Field: f, Value: text, Reason: "unknown column"}
}

var amountNoise = strings.NewReplacer(
	",", "", "，", "", " ", "",
	"¥", "", "￥", "", "$", "",
	"日幣", "", "日元", "", "円", "", "元", "",
	"JPY", "", "jpy", "", "yen", "",
)

// coerceAmount accepts JSON numbers and numeric strings with incidental
// currency markers. Fractions are rounded half away from zero.
func coerceAmount(v interface{}) (int64, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch val := v.(type) {
	case json.Number:
		d, err = decimal.NewFromString(val.String())
	case float64:
		d = decimal.NewFromFloat(val)
	case string:
		cleaned := amountNoise.Replace(strings.TrimSpace(val))
		if cleaned == "" {
			return 0, &domain.ValidationError{Field: domain.FieldAmount, Value: val, Reason: "amount must be numeric"}
		}
		d, err = decimal.NewFromString(cleaned)
	default:
		return 0, &domain.ValidationError{Field: domain.FieldAmount, Value: fmt.Sprint(v), Reason: "amount must be numeric"}
	}
	if err != nil {
		return 0, &domain.ValidationError{Field: domain.FieldAmount, Value: fmt.Sprint(v), Reason: "amount must be numeric", Err: err}
	}
	if d.IsNegative() {
		return 0, &domain.ValidationError{Field: domain.FieldAmount, Value: d.String(), Reason: "amount must not be negative"}
	}
	return d.Round(0).IntPart(), nil
}

// scalarString renders a decoded JSON scalar as text. Null is "".
func scalarString(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	}
	return "", false
}
