package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// DeliveryAddress mirrors the delivery_address_t composite Postgres type.
// Fields follow Rwanda's administrative divisions down to the village level.
type DeliveryAddress struct {
	Province string  `json:"province"`
	District string  `json:"district"`
	Sector   string  `json:"sector"`
	Cell     string  `json:"cell"`
	Village  string  `json:"village"`
	Landmark *string `json:"landmark,omitempty"`
}

// Value marshals DeliveryAddress into a Postgres composite literal.
func (a DeliveryAddress) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Province) == "" {
		return nil, fmt.Errorf("delivery address: missing province")
	}
	if strings.TrimSpace(a.District) == "" {
		return nil, fmt.Errorf("delivery address: missing district")
	}
	if strings.TrimSpace(a.Sector) == "" {
		return nil, fmt.Errorf("delivery address: missing sector")
	}
	if strings.TrimSpace(a.Cell) == "" {
		return nil, fmt.Errorf("delivery address: missing cell")
	}
	if strings.TrimSpace(a.Village) == "" {
		return nil, fmt.Errorf("delivery address: missing village")
	}

	parts := []string{
		quoteCompositeString(a.Province),
		quoteCompositeString(a.District),
		quoteCompositeString(a.Sector),
		quoteCompositeString(a.Cell),
		quoteCompositeString(a.Village),
		quoteCompositeNullable(a.Landmark),
	}

	return "(" + strings.Join(parts, ",") + ")", nil
}

// Scan decodes the Postgres composite literal.
func (a *DeliveryAddress) Scan(value interface{}) error {
	if value == nil {
		*a = DeliveryAddress{}
		return nil
	}

	raw, ok := toString(value)
	if !ok {
		return fmt.Errorf("delivery address: unsupported scan type %T", value)
	}

	fields, err := parseComposite(raw, 6)
	if err != nil {
		return err
	}

	a.Province = fields[0]
	a.District = fields[1]
	a.Sector = fields[2]
	a.Cell = fields[3]
	a.Village = fields[4]
	a.Landmark = newCompositeNullable(fields[5])

	return nil
}

func toString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case fmt.Stringer:
		return v.String(), true
	default:
		return "", false
	}
}
