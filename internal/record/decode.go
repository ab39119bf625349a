package record

import (
	"io"

	json "github.com/goccy/go-json"
)

// Decode reads a JSON record, derives missing day dates and validates it
func Decode(r io.Reader) (*Record, error) {
	var rec Record
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, &ValidationError{Field: "body", Reason: err.Error()}
	}
	rec.FillDates()
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}
