// Package match selects ledger rows for an update from a sparse search set.
package match

import (
	"strings"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
)

// Term is one conjunct of a Predicate. An empty Value matches rows whose
// field is empty; otherwise the normalized field must contain the
// normalized value.
type Term struct {
	Field domain.Field
	Value string
}

// Predicate is a conjunction of terms. The zero Predicate matches every row;
// callers executing an update must reject it before evaluation.
type Predicate struct {
	Terms []Term
}

// Build turns a search set into a predicate with terms in column order.
func Build(search domain.FieldValues) Predicate {
	p := Predicate{Terms: make([]Term, 0, len(search))}
	for _, f := range search.Fields() {
		p.Terms = append(p.Terms, Term{Field: f, Value: normalize(search[f])})
	}
	return p
}

// Empty reports whether p has no terms.
func (p Predicate) Empty() bool { return len(p.Terms) == 0 }

// Eval reports whether r satisfies every term. Amounts are compared as
// text, so "98" matches 980.
func (p Predicate) Eval(r domain.Record) bool {
	for _, t := range p.Terms {
		got := normalize(r.Get(t.Field))
		if t.Value == "" {
			if got != "" {
				return false
			}
			continue
		}
		if !strings.Contains(got, t.Value) {
			return false
		}
	}
	return true
}

// Match returns the indices of every matching record in ledger order.
// No match is an empty result, not an error.
func Match(l ledger.Ledger, p Predicate) []int {
	out := []int{}
	for i, r := range l.Records {
		if p.Eval(r) {
			out = append(out, i)
		}
	}
	return out
}

// Narrow keeps only the indices whose fields equal every search value after
// normalization. When no candidate is an exact match the input is returned
// unchanged.
func Narrow(l ledger.Ledger, indices []int, p Predicate) []int {
	var out []int
	for _, i := range indices {
		exact := true
		for _, t := range p.Terms {
			if normalize(l.Records[i].Get(t.Field)) != t.Value {
				exact = false
				break
			}
		}
		if exact {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		return indices
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
