package edge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/SmartGraph/translate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeCfg() *Config {
	return &Config{Sep: ',', Quo: '"'}
}

func TestParseSpec(t *testing.T) {
	sp, ok := ParseSpec("rel.csv:persons:persons")
	require.True(t, ok)
	assert.Equal(t, "rel.csv", sp.File)
	assert.Equal(t, "persons", sp.FromColl)
	assert.Equal(t, "persons", sp.ToColl)
	assert.Empty(t, sp.Renames)

	sp, ok = ParseSpec("rel.csv:a:b:3:weight:5:label")
	require.True(t, ok)
	assert.Equal(t, []Rename{{Col: 3, Name: "weight"}, {Col: 5, Name: "label"}}, sp.Renames)
}

func TestParseSpecMalformed(t *testing.T) {
	for _, s := range []string{"rel.csv", "rel.csv:a", "rel.csv:a:b:3", "rel.csv:a:b:x:weight"} {
		_, ok := ParseSpec(s)
		assert.False(t, ok, "spec %q", s)
	}
}

func TestTransformDirectTruncation(t *testing.T) {
	cfg := edgeCfg()
	cfg.SmartIndex = 2
	sp := &Spec{File: "rel.csv", FromColl: "persons", ToColl: "persons"}
	c, err := NewCSV("_key,_from,_to", sp, cfg)
	require.NoError(t, err)

	out := c.Transform("e1,persons/DE12345,persons/FR9876", 2, nil)
	assert.Equal(t, "DE:e1:FR,persons/DE:DE12345,persons/FR:FR9876", out)
}

func TestTransformAlreadyComposite(t *testing.T) {
	// a second pass leaves resolved endpoints and keys untouched
	cfg := edgeCfg()
	cfg.SmartIndex = 2
	sp := &Spec{File: "rel.csv", FromColl: "persons", ToColl: "persons"}
	c, err := NewCSV("_key,_from,_to", sp, cfg)
	require.NoError(t, err)

	once := c.Transform("e1,persons/DE12345,persons/FR9876", 2, nil)
	assert.Equal(t, once, c.Transform(once, 2, nil))
}

func TestTransformTableLookup(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.csv", FromColl: "persons", ToColl: "persons"}
	c, err := NewCSV("_key,_from,_to", sp, cfg)
	require.NoError(t, err)

	tbl := translate.New()
	tbl.Insert("persons/alice1", "DE")
	tbl.Insert("persons/bob1", "FR")

	// bare keys are qualified with the spec collections before lookup
	out := c.Transform("e1,alice1,bob1", 2, tbl)
	assert.Equal(t, "DE:e1:FR,persons/DE:alice1,persons/FR:bob1", out)
}

func TestTransformUnresolvedLeftAlone(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.csv", FromColl: "persons", ToColl: "persons"}
	c, err := NewCSV("_key,_from,_to", sp, cfg)
	require.NoError(t, err)

	tbl := translate.New()
	tbl.Insert("persons/alice1", "DE")

	// _to misses the table: qualified with the collection but not composite,
	// and the key is not composed
	out := c.Transform("e1,alice1,nobody", 2, tbl)
	assert.Equal(t, "e1,persons/DE:alice1,persons/nobody", out)
}

func TestTransformBareUnresolvedQualified(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.csv", FromColl: "persons", ToColl: "persons"}
	c, err := NewCSV("_key,_from,_to", sp, cfg)
	require.NoError(t, err)

	// empty table, no truncation: bare keys still gain their default collection
	out := c.Transform("e1,nobody,nobody2", 2, translate.New())
	assert.Equal(t, "e1,persons/nobody,persons/nobody2", out)
}

func TestTransformJSONBareUnresolvedQualified(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.jsonl", FromColl: "persons", ToColl: "persons"}

	out, ok := TransformJSON([]byte(`{"_from":"nobody","_to":"nobody2","_key":"e1"}`), 1, sp, cfg, translate.New())
	require.True(t, ok)
	assert.Equal(t, `{"_key":"e1","_from":"persons/nobody","_to":"persons/nobody2"}`, string(out))
}

func TestTransformQualifiedEndpoint(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.csv", FromColl: "persons", ToColl: "persons"}
	c, err := NewCSV("_from,_to", sp, cfg)
	require.NoError(t, err)

	tbl := translate.New()
	tbl.Insert("users/u1", "DE")

	// an explicit collection in the value overrides the spec collection
	out := c.Transform("users/u1,users/u1", 2, tbl)
	assert.Equal(t, "users/DE:u1,users/DE:u1", out)
}

func TestHeaderRenames(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.csv", FromColl: "a", ToColl: "b", Renames: []Rename{{Col: 3, Name: "weight"}}}
	c, err := NewCSV("_key,_from,_to,w", sp, cfg)
	require.NoError(t, err)

	assert.Equal(t, "_key,_from,_to,weight", c.Header())
}

func TestRenameMakesEndpointColumns(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.csv", FromColl: "a", ToColl: "b", Renames: []Rename{{Col: 0, Name: "_from"}, {Col: 1, Name: "_to"}}}
	_, err := NewCSV("src,dst", sp, cfg)
	assert.NoError(t, err)
}

func TestMissingEndpointColumns(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.csv", FromColl: "a", ToColl: "b"}
	_, err := NewCSV("_key,_from", sp, cfg)
	assert.Error(t, err)
}

func TestComposeKey(t *testing.T) {
	k, ok := composeKey("e1", "DE", "FR")
	assert.True(t, ok)
	assert.Equal(t, "DE:e1:FR", k)

	_, ok = composeKey("DE:e1:FR", "DE", "FR")
	assert.False(t, ok)
	_, ok = composeKey("e1", "", "FR")
	assert.False(t, ok)
	_, ok = composeKey("", "DE", "FR")
	assert.False(t, ok)
}

func TestTransformJSON(t *testing.T) {
	cfg := edgeCfg()
	cfg.SmartIndex = 2
	sp := &Spec{File: "rel.jsonl", FromColl: "persons", ToColl: "persons"}

	out, ok := TransformJSON([]byte(`{"_from":"persons/DE12345","_to":"persons/FR9876","_key":"e1","w":1}`), 1, sp, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, `{"_key":"DE:e1:FR","_from":"persons/DE:DE12345","_to":"persons/FR:FR9876","w":1}`, string(out))
}

func TestTransformJSONMissingEndpoints(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.jsonl", FromColl: "a", ToColl: "b"}

	line := []byte(`{"_key":"e1","w":1}`)
	out, ok := TransformJSON(line, 1, sp, cfg, nil)
	require.True(t, ok)
	assert.Equal(t, string(line), string(out))
}

func TestTransformJSONNonObjectDropped(t *testing.T) {
	cfg := edgeCfg()
	sp := &Spec{File: "rel.jsonl", FromColl: "a", ToColl: "b"}

	_, ok := TransformJSON([]byte(`[1]`), 1, sp, cfg, nil)
	assert.False(t, ok)
}

func TestProcessFileReplacesInPlace(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rel.csv")
	require.NoError(t, os.WriteFile(file, []byte("_key,_from,_to\ne1,persons/DE12345,persons/FR9876\n"), 0644))

	cfg := edgeCfg()
	cfg.SmartIndex = 2
	sp := &Spec{File: file, FromColl: "persons", ToColl: "persons"}

	require.Equal(t, StatusOK, ProcessFile(sp, "csv", cfg, nil))

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, "_key,_from,_to\nDE:e1:FR,persons/DE:DE12345,persons/FR:FR9876\n", string(b))

	_, err = os.Stat(file + ".out")
	assert.True(t, os.IsNotExist(err))
}

func TestProcessFileJSONL(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rel.jsonl")
	require.NoError(t, os.WriteFile(file, []byte(`{"_from":"alice1","_to":"bob1","_key":"e1"}`+"\n"), 0644))

	tbl := translate.New()
	tbl.Insert("persons/alice1", "DE")
	tbl.Insert("persons/bob1", "FR")

	sp := &Spec{File: file, FromColl: "persons", ToColl: "persons"}
	require.Equal(t, StatusOK, ProcessFile(sp, "jsonl", edgeCfg(), tbl))

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, `{"_key":"DE:e1:FR","_from":"persons/DE:alice1","_to":"persons/FR:bob1"}`+"\n", string(b))
}

func TestProcessFileMissingColumns(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "rel.csv")
	content := []byte("_key,weight\ne1,2\n")
	require.NoError(t, os.WriteFile(file, content, 0644))

	sp := &Spec{File: file, FromColl: "a", ToColl: "b"}
	assert.Equal(t, StatusMissingCols, ProcessFile(sp, "csv", edgeCfg(), nil))

	// input untouched on failure
	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, string(content), string(b))
}

func TestProcessFileMissingInput(t *testing.T) {
	sp := &Spec{File: filepath.Join(t.TempDir(), "absent.csv"), FromColl: "a", ToColl: "b"}
	assert.Equal(t, StatusOpenInput, ProcessFile(sp, "csv", edgeCfg(), nil))
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.yaml")
	doc := `
type: csv
smartGraphAttribute: country
smartIndex: 2
vertices:
  - file: profiles.csv
    collection: profiles
edges:
  - file: rel.csv
    from: profiles
    to: profiles
    renames:
      - col: 3
        name: weight
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "csv", m.Type)
	assert.Equal(t, "country", m.SmartAttr)
	assert.Equal(t, 2, m.SmartIndex)
	require.Len(t, m.Vertices, 1)
	assert.Equal(t, "profiles", m.Vertices[0].Collection)

	specs := m.Specs()
	require.Len(t, specs, 1)
	assert.Equal(t, Spec{File: "rel.csv", FromColl: "profiles", ToColl: "profiles", Renames: []Rename{{Col: 3, Name: "weight"}}}, specs[0])
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
