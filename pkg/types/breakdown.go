package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Subcategory is one material line in a bulk request's requested breakdown.
type Subcategory struct {
	Name     string           `json:"name"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// Breakdown stores the subcategory list inside a JSONB column.
type Breakdown []Subcategory

// Value serializes the breakdown to JSON.
func (b Breakdown) Value() (driver.Value, error) {
	if b == nil {
		return "[]", nil
	}
	return json.Marshal(b)
}

// Scan decodes JSONB into the breakdown list.
func (b *Breakdown) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded Breakdown
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*b = decoded
	return nil
}

// LineItem is one scaled material line on a generated purchase order.
type LineItem struct {
	Name     string           `json:"name"`
	Quantity decimal.Decimal  `json:"quantity"`
	Price    *decimal.Decimal `json:"price,omitempty"`
}

// LineItems stores the generated order lines inside a JSONB column.
type LineItems []LineItem

// Value serializes the line items to JSON.
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan decodes JSONB into the line item list.
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded LineItems
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*l = decoded
	return nil
}

// JSONMap stores an arbitrary JSON object inside a JSONB column.
type JSONMap map[string]any

// Value serializes the map to JSON.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan decodes JSONB into the map.
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded JSONMap
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*j = decoded
	return nil
}

func asJSON(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("types: unsupported scan type %T", value)
	}
}
