package record

import (
	"bytes"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Amount is a decimal quantity (hours, hourly rate) decoded leniently from JSON.
//
// Numbers, numeric strings, null and empty strings decode to a value. Anything
// else decodes to zero with Invalid set and the original text kept in Raw, so a
// bad cell degrades to zero instead of failing the whole record.
type Amount struct {
	Value   decimal.Decimal
	Raw     string
	Invalid bool
}

// NewAmount returns a valid Amount parsed from s. Unparseable input yields an invalid Amount.
func NewAmount(s string) Amount {
	var a Amount
	a.parse(s)
	return a
}

// exponents outside this window are treated as non-numeric
const (
	minExponent = -6
	maxExponent = 6
)

func (a *Amount) parse(s string) {
	s = strings.TrimSpace(s)
	*a = Amount{}
	if s == "" {
		return
	}
	v, err := decimal.NewFromString(s)
	if err != nil || v.Exponent() < minExponent || v.Exponent() > maxExponent {
		a.Raw = s
		a.Invalid = true
		return
	}
	a.Value = v
}

// UnmarshalJSON implements json.Unmarshaler
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*a = Amount{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		a.parse(s)
	default:
		a.parse(string(data))
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Invalid amounts round-trip as their raw text.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Invalid {
		return []byte(strconv.Quote(a.Raw)), nil
	}
	return []byte(a.Value.String()), nil
}

// Decimal returns the value, or zero when the amount is invalid
func (a Amount) Decimal() decimal.Decimal {
	if a.Invalid {
		return decimal.Zero
	}
	return a.Value
}

// Fixed formats the amount with two decimal places. Invalid amounts format as "".
func (a Amount) Fixed() string {
	if a.Invalid {
		return ""
	}
	return a.Value.StringFixed(2)
}
