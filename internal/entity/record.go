package entity

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Record is an ordered key/value mapping produced from the model output.
// Key order is preserved so serializing a parsed record reproduces its input layout.
type Record struct {
	keys   []string
	values map[string]Value
}

// LineItem is one entry of the "items" field.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

var errNotObject = errors.New("json value is not an object")

func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// ParseRecord decodes a single JSON object. Anything else is an error.
func ParseRecord(data []byte) (*Record, error) {
	if !json.Valid(data) {
		return nil, errors.New("invalid json")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	rec, ok := v.AsObject()
	if !ok {
		return nil, errNotObject
	}
	return rec, nil
}

// Set stores v under key. Existing keys keep their position.
func (r *Record) Set(key string, v Value) *Record {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
	return r
}

func (r *Record) Get(key string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	v, ok := r.values[key]
	return v, ok
}

// Present reports whether key exists with a non-null value.
func (r *Record) Present(key string) bool {
	v, ok := r.Get(key)
	return ok && !v.IsNull()
}

func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Text returns the display text of key, or "" when absent.
func (r *Record) Text(key string) string {
	v, _ := r.Get(key)
	return v.Text()
}

// IsDegraded reports whether the record stands in for an unparseable model response:
// either {raw_response} alone or {error: "JSON parse error", raw_response}.
func (r *Record) IsDegraded() bool {
	if _, raw := r.Get(constants.FieldRawResponse); !raw {
		return false
	}
	switch r.Len() {
	case 1:
		return true
	case 2:
		msg, ok := r.Get(constants.FieldError)
		if !ok {
			return false
		}
		s, isStr := msg.AsString()
		return isStr && s == constants.JSONParseError
	}
	return false
}

// LineItems interprets the "items" field. Entries that are not objects are skipped.
func (r *Record) LineItems() []LineItem {
	v, ok := r.Get(constants.FieldItems)
	if !ok {
		return nil
	}
	list, ok := v.AsList()
	if !ok {
		return nil
	}
	items := make([]LineItem, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.AsObject()
		if !ok || obj == nil {
			continue
		}
		var li LineItem
		if name, ok := obj.Get("name"); ok {
			li.Name = name.Text()
		}
		if q, ok := obj.Get("quantity"); ok {
			li.Quantity, _ = q.AsFloat()
		}
		if p, ok := obj.Get("unit_price"); ok {
			li.UnitPrice, _ = p.AsFloat()
		}
		items = append(items, li)
	}
	return items
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Record) UnmarshalJSON(data []byte) error {
	parsed, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = *parsed
	return nil
}

func (r *Record) writeJSON(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(buf, key); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := r.values[key].writeJSON(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
