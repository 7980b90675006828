package types

import "fmt"

// ValueKind classifies an addressable model quantity. The kind decides which
// widget renders the parameter and which validation applies to writes; it is
// resolved once when the entry is created and never changes afterwards.
type ValueKind string

const (
	KindNumeric    ValueKind = "numeric"
	KindEnumerated ValueKind = "enumerated"
	KindBoolean    ValueKind = "boolean"
	KindString     ValueKind = "string"
)

func ParseValueKind(raw string) (ValueKind, error) {
	switch ValueKind(raw) {
	case KindNumeric, KindEnumerated, KindBoolean, KindString:
		return ValueKind(raw), nil
	}
	return "", fmt.Errorf("unknown value kind: %q", raw)
}

// Limits is an inclusive numeric bound pair. A nil side is unbounded.
type Limits struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v falls inside the bounds.
func (l Limits) Contains(v float64) bool {
	if l.Min != nil && v < *l.Min {
		return false
	}
	if l.Max != nil && v > *l.Max {
		return false
	}
	return true
}

// Parameter mirrors one remote model quantity, addressed by its twig.
// The twig is opaque and globally unique: the same string is used for local
// lookup, remote get/set and solver adjustable-parameter lists, with no
// derivation or normalization applied anywhere.
type Parameter struct {
	Twig        string    `json:"twig"`
	UniqueID    string    `json:"uniqueid,omitempty"`
	Kind        ValueKind `json:"kind"`
	Value       any       `json:"value"`
	Limits      Limits    `json:"limits,omitempty"`
	Choices     []string  `json:"choices,omitempty"`
	Constrained bool      `json:"constrained"`
	Adjustable  bool      `json:"adjustable"`
	Step        float64   `json:"step,omitempty"`
	UIOnly      bool      `json:"ui_only,omitempty"`
	Description string    `json:"description,omitempty"`
}

// NumericValue coerces the stored value to float64. JSON decoding hands all
// numbers over as float64; ints appear only on locally attached entries.
func (p *Parameter) NumericValue() (float64, bool) {
	switch v := p.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
