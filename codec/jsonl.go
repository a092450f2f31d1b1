package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/buger/jsonparser"
)

// Ordered line-delimited JSON codec. A Doc is the ordered field list of one
// object line. Raw value bytes are carried through untouched (escape
// sequences included) so fields the tools do not rewrite survive
// byte-identical; only tool-written values are newly escaped.

type Field struct {
	Name string
	Raw  []byte // value bytes as they appear on the wire, without surrounding quotes for strings
	Kind jsonparser.ValueType
}

type Doc []Field

var ErrNotObject = fmt.Errorf("top-level JSON value is not an object")

// ParseObject parses one line as an object, preserving field order.
func ParseObject(line []byte) (Doc, error) {

	t := bytes.TrimLeft(line, " \t\r\n")
	if len(t) == 0 || t[0] != '{' {
		return nil, ErrNotObject
	}

	var d Doc
	err := jsonparser.ObjectEach(line, func(key []byte, value []byte, vt jsonparser.ValueType, _ int) error {
		raw := make([]byte, len(value))
		copy(raw, value)
		d = append(d, Field{Name: string(key), Raw: raw, Kind: vt})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Get returns the index of the named field, -1 if absent.
func (d Doc) Get(name string) int {
	for i := range d {
		if d[i].Name == name {
			return i
		}
	}
	return -1
}

// StringVal returns the unescaped value of a string field.
func (f *Field) StringVal() (string, error) {
	if f.Kind != jsonparser.String {
		return "", fmt.Errorf("field %s is not a string", f.Name)
	}
	return jsonparser.ParseString(f.Raw)
}

// StringField builds a string field from a logical value, escaping as needed.
func StringField(name, val string) Field {
	b, err := json.Marshal(val)
	if err != nil {
		// strings always marshal
		panic(err)
	}
	return Field{Name: name, Raw: b[1 : len(b)-1], Kind: jsonparser.String}
}

// Serialize writes the Doc as one JSON object line (no trailing newline).
func (d Doc) Serialize(b *bytes.Buffer) {

	b.WriteByte('{')
	for i := range d {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(d[i].Name)
		b.WriteByte('"')
		b.WriteByte(':')
		switch d[i].Kind {
		case jsonparser.String:
			b.WriteByte('"')
			b.Write(d[i].Raw)
			b.WriteByte('"')
		case jsonparser.Null:
			b.WriteString("null")
		default:
			b.Write(d[i].Raw)
		}
	}
	b.WriteByte('}')
}
