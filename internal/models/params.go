package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
)

// ErrParamsFrozen is returned when signed parameters are modified
var ErrParamsFrozen = errors.New("order params are frozen after signing")

// OrderParams is an ordered set of order fields.
//
// Binance verifies the signature over the exact query string it receives, so
// the encoding follows insertion order rather than url.Values' sorted keys.
type OrderParams struct {
	keys   []string
	values map[string]string
	frozen bool
}

// NewOrderParams creates an empty parameter set
func NewOrderParams() *OrderParams {
	return &OrderParams{
		values: make(map[string]string),
	}
}

// Set adds a field, or replaces the value of an existing field in place
func (p *OrderParams) Set(key, value string) error {
	if p.frozen {
		return ErrParamsFrozen
	}
	if _, exists := p.values[key]; !exists {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
	return nil
}

// Get returns the value for key
func (p *OrderParams) Get(key string) (string, bool) {
	value, ok := p.values[key]
	return value, ok
}

// Value returns the value for key or an empty string
func (p *OrderParams) Value(key string) string {
	return p.values[key]
}

// Keys returns field names in insertion order
func (p *OrderParams) Keys() []string {
	keys := make([]string, len(p.keys))
	copy(keys, p.keys)
	return keys
}

// Len returns the number of fields
func (p *OrderParams) Len() int {
	return len(p.keys)
}

// Freeze makes the parameter set read-only
func (p *OrderParams) Freeze() {
	p.frozen = true
}

// Frozen reports whether the parameters have been frozen
func (p *OrderParams) Frozen() bool {
	return p.frozen
}

// Clone returns an unfrozen copy
func (p *OrderParams) Clone() *OrderParams {
	clone := NewOrderParams()
	for _, key := range p.keys {
		clone.keys = append(clone.keys, key)
		clone.values[key] = p.values[key]
	}
	return clone
}

// Encode serializes the fields as key=value pairs joined by '&'.
// Values are query-escaped, keys are written as is.
func (p *OrderParams) Encode() string {
	var sb strings.Builder
	for i, key := range p.keys {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(key)
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(p.values[key]))
	}
	return sb.String()
}

// EncodeWithSignature returns the encoded fields followed by the signature field
func (p *OrderParams) EncodeWithSignature(signature string) string {
	encoded := p.Encode()
	if encoded == "" {
		return "signature=" + signature
	}
	return encoded + "&signature=" + signature
}

// MarshalJSON writes the fields as a JSON object preserving insertion order
func (p *OrderParams) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range p.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(p.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
