// Package product holds the Product domain model: identity and value types,
// the immutable aggregate snapshot, change events consumed from the stream,
// domain events emitted by the projection and the error taxonomy that drives
// retry and dead-letter routing.
package product

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ID identifies a product. It is the store's primary key and never changes.
type ID string

func NewID(raw string) (ID, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", NewError(KindInvalidMessage, "productId must not be blank")
	}
	return ID(v), nil
}

func (id ID) String() string { return string(id) }

// Name is a non-blank product name.
type Name string

func NewName(raw string) (Name, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", NewError(KindInvalidMessage, "product name must not be blank")
	}
	return Name(v), nil
}

func (n Name) String() string { return string(n) }

// Price is a non-negative decimal amount. Comparison is exact.
type Price struct {
	amount decimal.Decimal
}

func NewPrice(amount decimal.Decimal) (Price, error) {
	if amount.IsNegative() {
		return Price{}, NewError(KindInvalidMessage, "price must be non-negative")
	}
	return Price{amount: amount}, nil
}

func ParsePrice(raw string) (Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Price{}, WrapError(KindInvalidMessage, fmt.Sprintf("invalid price %q", raw), err)
	}
	return NewPrice(d)
}

// MustPrice parses a price and panics on failure. For tests and literals.
func MustPrice(raw string) Price {
	p, err := ParsePrice(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Price) Decimal() decimal.Decimal { return p.amount }

func (p Price) Cmp(o Price) int { return p.amount.Cmp(o.amount) }

func (p Price) String() string { return p.amount.String() }

// MarshalJSON renders the price as a plain JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.amount.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a numeric string.
func (p *Price) UnmarshalJSON(data []byte) error {
	raw := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	parsed, err := ParsePrice(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Product is the materialized view of one product. Snapshots are immutable;
// every change produces a new value that replaces the prior one in the store.
type Product struct {
	ProductID   ID        `json:"productId"`
	Name        Name      `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       *Price    `json:"price,omitempty"`
	Category    *string   `json:"category,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int64     `json:"version"`
}

// New builds the first snapshot of a product. CreatedAt and UpdatedAt both
// take the event timestamp.
func New(id ID, name Name, description *string, price *Price, category *string, at time.Time, version int64) (Product, error) {
	if version < 1 {
		return Product{}, NewError(KindInvalidMessage, "version must be >= 1")
	}
	return Product{
		ProductID:   id,
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		CreatedAt:   at,
		UpdatedAt:   at,
		Version:     version,
	}, nil
}

// Update returns the next snapshot, preserving CreatedAt. The version rule is
// enforced by the projector, not here.
func (p Product) Update(name Name, description *string, price *Price, category *string, at time.Time, version int64) Product {
	next := p
	next.Name = name
	next.Description = description
	next.Price = price
	next.Category = category
	next.UpdatedAt = at
	next.Version = version
	return next
}
