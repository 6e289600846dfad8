package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Candidate is one row returned by a primary page fetch. Column order is the
// order the database returned, and is preserved when the row is written out.
type Candidate struct {
	Columns []string
	Values  map[string]any
}

// NewCandidate builds a candidate from parallel column and value slices.
// []byte values are converted to strings.
func NewCandidate(columns []string, values []any) Candidate {
	c := Candidate{
		Columns: make([]string, 0, len(columns)),
		Values:  make(map[string]any, len(columns)),
	}
	for i, col := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		if b, ok := v.([]byte); ok {
			v = string(b)
		}
		c.Set(col, v)
	}
	return c
}

// Set assigns a value, appending the column if it is new.
func (c *Candidate) Set(column string, value any) {
	if c.Values == nil {
		c.Values = make(map[string]any)
	}
	if _, exists := c.Values[column]; !exists {
		c.Columns = append(c.Columns, column)
	}
	c.Values[column] = value
}

// Get returns a column value. An exact match wins; otherwise the first column
// matching case-insensitively is used, since drivers differ in the case they
// report for unquoted identifiers.
func (c Candidate) Get(column string) (any, bool) {
	if v, ok := c.Values[column]; ok {
		return v, true
	}
	for _, col := range c.Columns {
		if strings.EqualFold(col, column) {
			return c.Values[col], true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an object with keys in column order.
func (c Candidate) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range c.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Values[col])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object back, keeping the key order of the input.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("candidate: expected object, got %v", tok)
	}

	*c = Candidate{Values: make(map[string]any)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("candidate: expected string key, got %v", tok)
		}
		var val any
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("candidate: column %s: %w", key, err)
		}
		c.Set(key, val)
	}
	_, err = dec.Token()
	return err
}

// CanonicalKey returns the comparison form of an identity key. Drivers return
// the same number as int64, float64, string or []byte depending on the query,
// so keys are compared by their printed form. Nil and empty values are not
// keys.
func CanonicalKey(v any) (string, bool) {
	switch k := v.(type) {
	case nil:
		return "", false
	case string:
		return k, k != ""
	case []byte:
		return string(k), len(k) > 0
	case json.Number:
		return k.String(), true
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

// KeySet is a set of canonical identity keys.
type KeySet map[string]struct{}

// NewKeySet builds a set from raw key values, skipping nil and empty ones.
func NewKeySet(values ...any) KeySet {
	s := make(KeySet, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts a raw value and reports whether it was a usable key.
func (s KeySet) Add(v any) bool {
	k, ok := CanonicalKey(v)
	if ok {
		s[k] = struct{}{}
	}
	return ok
}

// Has reports whether the raw value's canonical form is in the set.
func (s KeySet) Has(v any) bool {
	k, ok := CanonicalKey(v)
	if !ok {
		return false
	}
	_, found := s[k]
	return found
}
