package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a JSON value as returned by the model. Numbers keep their literal text.
type Value struct {
	kind Kind
	str  string
	num  json.Number
	b    bool
	list []Value
	obj  *Record
}

func Null() Value                { return Value{kind: KindNull} }
func String(s string) Value      { return Value{kind: KindString, str: s} }
func Number(n json.Number) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func List(items ...Value) Value  { return Value{kind: KindList, list: items} }
func Object(r *Record) Value     { return Value{kind: KindObject, obj: r} }

// Float builds a number value from f using the shortest exact representation.
func Float(f float64) Value {
	return Number(json.Number(strconv.FormatFloat(f, 'f', -1, 64)))
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

func (v Value) AsNumber() (json.Number, bool) {
	return v.num, v.kind == KindNumber
}

func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

func (v Value) AsObject() (*Record, bool) {
	return v.obj, v.kind == KindObject
}

// AsFloat reads numbers, and strings holding a plain number such as "1500.00".
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindNumber:
		f, err := v.num.Float64()
		return f, err == nil
	case KindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
		return f, err == nil
	}
	return 0, false
}

// Text renders scalars for display; lists and objects render as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return ""
	}
	return string(b)
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	parsed, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindString:
		return writeString(buf, v.str)
	case KindNumber:
		if v.num == "" {
			buf.WriteString("0")
			return nil
		}
		buf.WriteString(v.num.String())
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		if v.obj == nil {
			buf.WriteString("{}")
			return nil
		}
		return v.obj.writeJSON(buf)
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

// EncodeJSON encodes v without HTML escaping and without a trailing newline.
// json.Marshal re-escapes the output of any Marshaler it calls, so callers that need
// "&", "<" and ">" kept literally must encode through this or an Encoder configured the same way.
func EncodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// writeString emits s as a JSON string literal. The literal only stays unescaped when the
// outer encoder has HTML escaping disabled.
func writeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t), nil
	case bool:
		return Bool(t), nil
	case json.Delim:
		switch t {
		case '[':
			items := make([]Value, 0)
			for dec.More() {
				item, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return List(items...), nil
		case '{':
			rec, err := decodeObjectBody(dec)
			if err != nil {
				return Value{}, err
			}
			return Object(rec), nil
		}
	}
	return Value{}, fmt.Errorf("unexpected json token %v", tok)
}

// decodeObjectBody reads members after an opening '{' up to and including the closing '}'.
func decodeObjectBody(dec *json.Decoder) (*Record, error) {
	rec := NewRecord()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key is %T, want string", keyTok)
		}
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		rec.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return rec, nil
}
