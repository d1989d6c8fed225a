package ledger

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Yuan922/MoneyMemoAI/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Header returns the canonical header row.
func Header() []string {
	h := make([]string, len(domain.Columns))
	for i, c := range domain.Columns {
		h[i] = string(c)
	}
	return h
}

// Encode writes l as a header row followed by one row per record.
func Encode(w io.Writer, l Ledger) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return err
	}
	row := make([]string, len(domain.Columns))
	for _, r := range l.Records {
		for i, c := range domain.Columns {
			row[i] = r.Get(c)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode reads a table written by Encode. Header cells may use any accepted
// column alias and may appear in any order. An empty input is an empty
// ledger. Dates are kept verbatim; an amount that is not a whole number
// makes the table corrupt.
func Decode(r io.Reader, userID string) (Ledger, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	l := New(userID)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return l, nil
	}
	if err != nil {
		return Ledger{}, fmt.Errorf("read header: %w", err)
	}

	index := make(map[domain.Field]int, len(header))
	for i, cell := range header {
		f, ok := domain.ParseField(cell)
		if !ok {
			continue
		}
		index[f] = i
	}
	for _, c := range domain.Columns {
		if _, ok := index[c]; !ok {
			return Ledger{}, fmt.Errorf("header missing column %q", c)
		}
	}

	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return Ledger{}, fmt.Errorf("line %d: %w", line, err)
		}
		raw := func(f domain.Field) string {
			if i := index[f]; i < len(row) {
				return row[i]
			}
			return ""
		}
		cell := func(f domain.Field) string { return strings.TrimSpace(raw(f)) }

		rec := domain.Record{
			Date:          cell(domain.FieldDate),
			Category:      domain.Category(cell(domain.FieldCategory)),
			Name:          raw(domain.FieldName),
			PaymentMethod: domain.PaymentMethod(cell(domain.FieldPaymentMethod)),
		}
		if text := cell(domain.FieldAmount); text != "" {
			amount, err := parseAmount(text)
			if err != nil {
				return Ledger{}, fmt.Errorf("line %d: %w", line, err)
			}
			rec.Amount = amount
		}
		l.Records = append(l.Records, rec)
	}
	return l, nil
}

// parseAmount accepts integral values in decimal notation, including a
// trailing ".0" left behind by spreadsheet tools.
func parseAmount(raw string) (int64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not numeric", raw)
	}
	if !d.Equal(d.Truncate(0)) {
		return 0, fmt.Errorf("amount %q is not a whole number", raw)
	}
	return d.IntPart(), nil
}
