package codec

import (
	"bytes"
	"testing"

	"github.com/buger/jsonparser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serialize(d Doc) string {
	var b bytes.Buffer
	d.Serialize(&b)
	return b.String()
}

func TestParseObjectOrder(t *testing.T) {
	d, err := ParseObject([]byte(`{"b":1,"a":"x","c":null}`))
	require.NoError(t, err)
	require.Len(t, d, 3)
	assert.Equal(t, "b", d[0].Name)
	assert.Equal(t, "a", d[1].Name)
	assert.Equal(t, "c", d[2].Name)
	assert.Equal(t, jsonparser.Number, d[0].Kind)
	assert.Equal(t, jsonparser.String, d[1].Kind)
	assert.Equal(t, jsonparser.Null, d[2].Kind)
}

func TestParseObjectNotObject(t *testing.T) {
	for _, line := range []string{`[1,2]`, `"s"`, `17`, ``, `   `} {
		_, err := ParseObject([]byte(line))
		assert.Equal(t, ErrNotObject, err, "line %q", line)
	}
}

func TestSerializePreservesUntouchedFields(t *testing.T) {
	// raw value bytes pass through untouched, escapes included
	line := `{"a":"x\ny","n":1.5,"t":true,"z":null,"o":{"k":[1,2]}}`
	d, err := ParseObject([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, line, serialize(d))
}

func TestStringVal(t *testing.T) {
	d, err := ParseObject([]byte(`{"a":"x\ny"}`))
	require.NoError(t, err)
	s, err := d[0].StringVal()
	require.NoError(t, err)
	assert.Equal(t, "x\ny", s)
}

func TestStringFieldEscapes(t *testing.T) {
	f := StringField("k", `a"b`)
	d := Doc{f}
	assert.Equal(t, `{"k":"a\"b"}`, serialize(d))
}

func TestGet(t *testing.T) {
	d, _ := ParseObject([]byte(`{"a":1,"b":2}`))
	assert.Equal(t, 1, d.Get("b"))
	assert.Equal(t, -1, d.Get("c"))
}
