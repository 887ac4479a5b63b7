// change.go — Differ output: one detected difference per key.
//
// JSON CONVENTION: All fields use snake_case.
package types

import "encoding/json"

// Reason classifies why a value at a key differs between two renders.
type Reason string

const (
	// ReasonValue is a plain content change (or an unchecked composite under shallow compare).
	ReasonValue Reason = "value"
	// ReasonType means the two values belong to different type classes.
	ReasonType Reason = "type"
	// ReasonFunction means both values are callables with different identity.
	ReasonFunction Reason = "function"
	// ReasonReference means the values are structurally equal but have different identity.
	ReasonReference Reason = "reference"
	// ReasonLength means both values are sequences of different length.
	ReasonLength Reason = "length"
)

// Change is one detected difference between a previous and next value at Key.
// Created fresh on every diff call and never mutated afterwards.
type Change struct {
	Key      string `json:"key"`
	Reason   Reason `json:"reason"`
	OldValue any    `json:"old_value"`
	NewValue any    `json:"new_value"`
}

// MarshalJSON writes old and new values in their display form, so callables
// and other values encoding/json rejects appear as marker objects.
func (c Change) MarshalJSON() ([]byte, error) {
	type plain Change
	out := plain(c)
	out.OldValue = DisplayValue(c.OldValue)
	out.NewValue = DisplayValue(c.NewValue)
	return json.Marshal(out)
}

// CountByReason returns how many changes carry the given reason.
func CountByReason(changes []Change, reason Reason) int {
	n := 0
	for _, c := range changes {
		if c.Reason == reason {
			n++
		}
	}
	return n
}

// KeysByReason returns the keys of changes with the given reason, in input order.
func KeysByReason(changes []Change, reason Reason) []string {
	var keys []string
	for _, c := range changes {
		if c.Reason == reason {
			keys = append(keys, c.Key)
		}
	}
	return keys
}
