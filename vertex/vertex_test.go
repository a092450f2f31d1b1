package vertex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SmartGraph/translate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csvCfg() *Config {
	return &Config{SmartAttr: "smart_id", WriteKey: true, Sep: ',', Quo: '"'}
}

func TestCSVNoAttributeSource(t *testing.T) {
	// no value source and no attribute data: attribute stays empty, the key
	// still goes composite with an empty prefix
	cfg := csvCfg()
	c := NewCSV("name,_key", cfg)

	assert.Equal(t, "name,_key,smart_id", c.Header())
	assert.Equal(t, "Alice,:alice1,", c.Transform("Alice,alice1", 2, nil))
}

func TestCSVValueSourceWithTruncation(t *testing.T) {
	cfg := csvCfg()
	cfg.SmartValue = "country"
	cfg.SmartIndex = 2
	c := NewCSV("name,country,_key", cfg)

	assert.Equal(t, "name,country,_key,smart_id", c.Header())
	assert.Equal(t, "Bob,DE,DE:bob1,DE", c.Transform("Bob,DE,bob1", 2, nil))
	assert.Equal(t, "Eve,FRA,FR:eve1,FR", c.Transform("Eve,FRA,eve1", 3, nil))
}

func TestCSVIdempotent(t *testing.T) {
	cfg := csvCfg()
	cfg.SmartValue = "country"
	cfg.SmartIndex = 2
	c := NewCSV("name,country,_key", cfg)
	once := c.Transform("Bob,DE,bob1", 2, nil)

	cfg2 := csvCfg()
	cfg2.SmartValue = "country"
	cfg2.SmartIndex = 2
	c2 := NewCSV(c.Header(), cfg2)
	assert.Equal(t, c.Header(), c2.Header())
	assert.Equal(t, once, c2.Transform(once, 2, nil))
}

func TestCSVAttributeColumnInPlace(t *testing.T) {
	cfg := csvCfg()
	cfg.SmartIndex = 2
	c := NewCSV("smart_id,_key", cfg)

	// existing attribute data is truncated and written back
	assert.Equal(t, "DE,DE:k1", c.Transform("DEXX,k1", 2, nil))
	// short value untouched
	assert.Equal(t, "F,F:k2", c.Transform("F,k2", 3, nil))
}

func TestCSVPrefixMismatchCorrected(t *testing.T) {
	cfg := csvCfg()
	cfg.SmartValue = "country"
	c := NewCSV("country,_key", cfg)

	assert.Equal(t, "DE,DE:bob1,DE", c.Transform("DE,FR:bob1", 2, nil))
}

func TestCSVQuotedFields(t *testing.T) {
	cfg := csvCfg()
	cfg.SmartValue = "country"
	c := NewCSV(`name,country,_key`, cfg)

	// untouched fields keep their raw quoting
	assert.Equal(t, `"Li, Bo",DE,DE:li1,DE`, c.Transform(`"Li, Bo",DE,li1`, 2, nil))
}

func TestCSVKeyValueSource(t *testing.T) {
	cfg := csvCfg()
	cfg.SmartValue = "country"
	cfg.KeyValue = "id"
	c := NewCSV("id,country,_key", cfg)

	assert.Equal(t, "v7,DE,DE:v7,DE", c.Transform("v7,DE,ignored", 2, nil))
}

func TestCSVPopulatesTable(t *testing.T) {
	cfg := csvCfg()
	cfg.SmartValue = "country"
	cfg.Collection = "persons"
	c := NewCSV("country,_key", cfg)
	tbl := translate.New()

	c.Transform("DE,bob1", 2, tbl)
	c.Transform("FR,FR:eve1", 3, tbl)

	att, ok := tbl.Lookup("persons/bob1")
	require.True(t, ok)
	assert.Equal(t, "DE", att)
	att, ok = tbl.Lookup("persons/eve1")
	require.True(t, ok)
	assert.Equal(t, "FR", att)
}

func TestJSONValueSource(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id", SmartValue: "country"}

	out, ok := TransformJSON([]byte(`{"_key":"x1","country":"DE"}`), 1, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"DE:x1","smart_id":"DE","country":"DE"}`, string(out))
}

func TestJSONIdempotent(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id", SmartValue: "country"}

	once, ok := TransformJSON([]byte(`{"_key":"x1","country":"DE"}`), 1, cfg, nil)
	require.True(t, ok)
	twice, ok := TransformJSON(once, 1, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, string(once), string(twice))
}

func TestJSONCompositeKeyLeftAlone(t *testing.T) {
	// the object path warns on a wrong prefix but never rewrites the key
	cfg := &Config{SmartAttr: "smart_id", SmartValue: "country"}

	out, ok := TransformJSON([]byte(`{"_key":"FR:x1","country":"DE"}`), 1, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"FR:x1","smart_id":"DE","country":"DE"}`, string(out))
}

func TestJSONDefaultValue(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id", SmartDefault: "unknown"}

	out, ok := TransformJSON([]byte(`{"_key":"x1"}`), 1, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"unknown:x1","smart_id":"unknown"}`, string(out))

	out, ok = TransformJSON([]byte(`{"_key":"x2","smart_id":null}`), 2, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"unknown:x2","smart_id":"unknown"}`, string(out))
}

func TestJSONCoercesBoolAndNumber(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id"}

	out, ok := TransformJSON([]byte(`{"_key":"x1","smart_id":true}`), 1, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"true:x1","smart_id":"true"}`, string(out))

	out, ok = TransformJSON([]byte(`{"_key":"x2","smart_id":42}`), 2, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"42:x2","smart_id":"42"}`, string(out))
}

func TestJSONComplexAttributeRejected(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id"}

	out, ok := TransformJSON([]byte(`{"_key":"x1","smart_id":{"a":1}}`), 1, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"x1","smart_id":""}`, string(out))
}

func TestJSONNonObjectDropped(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id"}

	_, ok := TransformJSON([]byte(`[1,2,3]`), 1, cfg, nil)
	assert.False(t, ok)
	_, ok = TransformJSON([]byte(`{"broken":`), 2, cfg, nil)
	assert.False(t, ok)
}

func TestJSONTruncation(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id", SmartValue: "country", SmartIndex: 2}

	out, ok := TransformJSON([]byte(`{"_key":"x1","country":"FRA"}`), 1, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"FR:x1","smart_id":"FR","country":"FRA"}`, string(out))
}

func TestJSONPopulatesTable(t *testing.T) {
	cfg := &Config{SmartAttr: "smart_id", SmartValue: "country", Collection: "persons"}
	tbl := translate.New()

	_, ok := TransformJSON([]byte(`{"_key":"x1","country":"DE"}`), 1, cfg, tbl)
	require.True(t, ok)

	att, ok2 := tbl.Lookup("persons/x1")
	require.True(t, ok2)
	assert.Equal(t, "DE", att)
}

func TestProcessCSVFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "v.csv")
	out := filepath.Join(dir, "v.out.csv")
	require.NoError(t, os.WriteFile(in, []byte("name,country,_key\nBob,DE,bob1\nEve,FR,eve1\n"), 0644))

	cfg := csvCfg()
	cfg.Name = in
	cfg.SmartValue = "country"
	cfg.Collection = "persons"
	tbl := translate.New()

	status := Process(in, out, "csv", cfg, tbl)
	require.Equal(t, StatusOK, status)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "name,country,_key,smart_id\nBob,DE,DE:bob1,DE\nEve,FR,FR:eve1,FR\n", string(b))
	assert.Equal(t, 2, tbl.Len())
}

func TestProcessJSONLFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "v.jsonl")
	out := filepath.Join(dir, "v.out.jsonl")
	require.NoError(t, os.WriteFile(in, []byte(`{"_key":"x1","country":"DE"}`+"\n"), 0644))

	cfg := &Config{Name: in, SmartAttr: "smart_id", SmartValue: "country"}

	status := Process(in, out, "jsonl", cfg, nil)
	require.Equal(t, StatusOK, status)

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, `{"_key":"DE:x1","smart_id":"DE","country":"DE"}`+"\n", string(b))
}

func TestProcessMissingInput(t *testing.T) {
	cfg := csvCfg()
	assert.Equal(t, StatusOpenInput, Process(filepath.Join(t.TempDir(), "absent.csv"), filepath.Join(t.TempDir(), "o"), "csv", cfg, nil))
}

func TestProcessEmptyCSV(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(in, nil, 0644))

	cfg := csvCfg()
	assert.Equal(t, StatusHeader, Process(in, filepath.Join(dir, "o"), "csv", cfg, nil))
}

func TestPopulate(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "v.csv")
	require.NoError(t, os.WriteFile(in, []byte("country,_key\nDE,DE:bob1\n"), 0644))

	cfg := csvCfg()
	cfg.Name = in
	cfg.SmartValue = "country"
	cfg.Collection = "persons"
	tbl := translate.New()

	require.Equal(t, StatusOK, Populate(in, "csv", cfg, tbl))
	att, ok := tbl.Lookup("persons/bob1")
	require.True(t, ok)
	assert.Equal(t, "DE", att)
}
