package engine

import (
	"encoding/json"
	"fmt"
)

// Optional is a float64 which may be not computed yet. It is encoded as
// JSON null when invalid.
type Optional struct {
	Value float64
	Valid bool
}

func Some(v float64) Optional {
	return Optional{Value: v, Valid: true}
}

// Get returns the value and whether it is valid.
func (o Optional) Get() (float64, bool) {
	return o.Value, o.Valid
}

func (o Optional) String() string {
	if !o.Valid {
		return "<none>"
	}
	return fmt.Sprintf("%.3f", o.Value)
}

func (o Optional) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Optional) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = Optional{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unable to unmarshal '%s' as a number: %w", b, err)
	}
	*o = Some(v)
	return nil
}
