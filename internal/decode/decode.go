// Package decode turns raw change-event payloads into validated domain
// change events. Every failure here is a non-retryable invalid message; no
// untyped value escapes into domain code.
package decode

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/product-view/internal/domain/product"
	"github.com/example/product-view/internal/sanitize"
)

// ChangeEvent decodes one wire record. The payload is a JSON object with the
// fields productId, name, description, price, category, changeType,
// timestamp and version.
func ChangeEvent(payload []byte) (*product.ChangeEvent, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, product.WrapError(product.KindInvalidMessage, "malformed change event payload", err)
	}

	productID, err := requiredText(record, "productId")
	if err != nil {
		return nil, err
	}
	id, err := product.NewID(productID)
	if err != nil {
		return nil, err
	}

	rawName, err := requiredText(record, "name")
	if err != nil {
		return nil, err
	}
	name, err := product.NewName(rawName)
	if err != nil {
		return nil, err
	}

	description, err := optionalText(record, "description")
	if err != nil {
		return nil, err
	}
	category, err := optionalText(record, "category")
	if err != nil {
		return nil, err
	}

	price, err := priceField(record)
	if err != nil {
		return nil, err
	}

	ts, err := timestampField(record)
	if err != nil {
		return nil, err
	}

	version, err := versionField(record)
	if err != nil {
		return nil, err
	}

	rawKind, err := requiredText(record, "changeType")
	if err != nil {
		return nil, product.NewError(product.KindInvalidMessage, "unknown change type")
	}
	kind, err := product.ParseChangeKind(rawKind)
	if err != nil {
		return nil, err
	}

	return &product.ChangeEvent{
		ProductID:   id,
		Name:        name,
		Description: description,
		Category:    category,
		Price:       price,
		Kind:        kind,
		Timestamp:   ts,
		Version:     version,
	}, nil
}

// requiredText extracts a string field, sanitizes it and fails if the result
// is blank.
func requiredText(record map[string]any, field string) (string, error) {
	s, err := optionalText(record, field)
	if err != nil {
		return "", err
	}
	if s == nil || *s == "" {
		return "", product.NewError(product.KindInvalidMessage, "missing "+field)
	}
	return *s, nil
}

// optionalText extracts a string field if present, sanitizing it and
// normalizing blank to absent.
func optionalText(record map[string]any, field string) (*string, error) {
	v, ok := record[field]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, product.NewError(product.KindInvalidMessage, fmt.Sprintf("field %q must be a string", field))
	}
	out := sanitize.Text(&s)
	if out == nil || *out == "" {
		return nil, nil
	}
	return out, nil
}

func priceField(record map[string]any) (*product.Price, error) {
	v, ok := record["price"]
	if !ok || v == nil {
		return nil, nil
	}
	var raw string
	switch n := v.(type) {
	case json.Number:
		raw = n.String()
	case string:
		raw = n
	default:
		return nil, product.NewError(product.KindInvalidMessage, "field \"price\" must be numeric")
	}
	p, err := product.ParsePrice(raw)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func timestampField(record map[string]any) (time.Time, error) {
	v, ok := record["timestamp"]
	if !ok || v == nil {
		return time.Time{}, product.NewError(product.KindInvalidMessage, "missing or invalid timestamp")
	}
	n, ok := v.(json.Number)
	if !ok {
		return time.Time{}, product.NewError(product.KindInvalidMessage, "missing or invalid timestamp")
	}
	millis, err := n.Int64()
	if err != nil {
		return time.Time{}, product.WrapError(product.KindInvalidMessage, "missing or invalid timestamp", err)
	}
	return time.UnixMilli(millis).UTC(), nil
}

func versionField(record map[string]any) (int64, error) {
	v, ok := record["version"]
	if !ok || v == nil {
		return 1, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, product.NewError(product.KindInvalidMessage, "field \"version\" must be an integer")
	}
	version, err := n.Int64()
	if err != nil {
		return 0, product.WrapError(product.KindInvalidMessage, "field \"version\" must be an integer", err)
	}
	if version < 1 {
		return 0, product.NewError(product.KindInvalidMessage, "version must be >= 1")
	}
	return version, nil
}
