package domain

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

// PriceTable prices seats by class. With no class entries every seat costs the
// flat base price.
type PriceTable struct {
	base    decimal.Decimal
	byClass map[SeatClass]decimal.Decimal
}

func FlatPrice(base decimal.Decimal) (PriceTable, error) {
	return NewPriceTable(base, nil)
}

func NewPriceTable(base decimal.Decimal, byClass map[SeatClass]decimal.Decimal) (PriceTable, error) {
	if base.IsNegative() {
		return PriceTable{}, errors.Wrapf(ErrNegativePrice, "base price %s", base)
	}
	t := PriceTable{base: base}
	if len(byClass) == 0 {
		return t, nil
	}
	t.byClass = make(map[SeatClass]decimal.Decimal, len(byClass))
	for class, price := range byClass {
		if !class.Valid() {
			return PriceTable{}, errors.Wrapf(ErrUnknownSeatClass, "%q", class)
		}
		if price.IsNegative() {
			return PriceTable{}, errors.Wrapf(ErrNegativePrice, "%s price %s", class, price)
		}
		t.byClass[class] = price
	}
	return t, nil
}

func (t PriceTable) Base() decimal.Decimal {
	return t.base
}

func (t PriceTable) ByClass() map[SeatClass]decimal.Decimal {
	out := make(map[SeatClass]decimal.Decimal, len(t.byClass))
	for k, v := range t.byClass {
		out[k] = v
	}
	return out
}

// Covers reports whether seats of the given class have a price.
func (t PriceTable) Covers(class SeatClass) bool {
	if len(t.byClass) == 0 {
		return class.Valid()
	}
	_, ok := t.byClass[class]
	return ok
}

func (t PriceTable) Price(class SeatClass) decimal.Decimal {
	if p, ok := t.byClass[class]; ok {
		return p
	}
	return t.base
}

type priceTableJSON struct {
	Base    decimal.Decimal               `json:"base"`
	ByClass map[SeatClass]decimal.Decimal `json:"by_class,omitempty"`
}

func (t PriceTable) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceTableJSON{Base: t.base, ByClass: t.byClass})
}

func (t *PriceTable) UnmarshalJSON(data []byte) error {
	var raw priceTableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewPriceTable(raw.Base, raw.ByClass)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ComputeTotal sums the class price of every seat in the selection.
func ComputeTotal(selection []Seat, prices PriceTable) decimal.Decimal {
	total := decimal.Zero
	for _, seat := range selection {
		total = total.Add(prices.Price(seat.Class))
	}
	return total
}

type Quote struct {
	SeatCount int             `json:"seat_count"`
	Total     decimal.Decimal `json:"total_amount"`
	Currency  string          `json:"currency"`
}

func NewQuote(selection []Seat, prices PriceTable, currency string) Quote {
	return Quote{
		SeatCount: len(selection),
		Total:     ComputeTotal(selection, prices),
		Currency:  currency,
	}
}
