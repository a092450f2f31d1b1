package edge

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/SmartGraph/codec"
	elog "github.com/SmartGraph/errlog"
	"github.com/SmartGraph/monitor"
	slog "github.com/SmartGraph/syslog"
	"github.com/SmartGraph/translate"

	"github.com/buger/jsonparser"
)

// edge rewrites the _from and _to endpoints of edge records into composite
// form collection/attribute:key, and composes the edge _key from the two
// endpoint attributes. Endpoints are resolved by truncation when a smart
// index is set, otherwise by lookup in the translation table built from the
// vertex files.

const logid = "edge"

// Rename renames the header column at position Col.
type Rename struct {
	Col  int
	Name string
}

// Spec describes one edge file: the file name, the default collections for
// bare _from/_to keys, and optional column renames.
type Spec struct {
	File     string
	FromColl string
	ToColl   string
	Renames  []Rename
}

// ParseSpec parses file:fromColl:toColl[:col:name]* . A malformed spec is
// reported and skipped (ok=false).
func ParseSpec(s string) (Spec, bool) {

	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		elog.Add(logid, fmt.Errorf("edge file spec %q malformed, expecting file:fromColl:toColl[:column:newName]... Skipping", s))
		return Spec{}, false
	}
	sp := Spec{File: parts[0], FromColl: parts[1], ToColl: parts[2]}

	rest := parts[3:]
	if len(rest)%2 != 0 {
		elog.Add(logid, fmt.Errorf("edge file spec %q has an odd number of rename components. Skipping", s))
		return Spec{}, false
	}
	for i := 0; i < len(rest); i += 2 {
		col, err := strconv.Atoi(rest[i])
		if err != nil || col < 0 {
			elog.Add(logid, fmt.Errorf("edge file spec %q has a bad column number %q. Skipping", s, rest[i]))
			return Spec{}, false
		}
		sp.Renames = append(sp.Renames, Rename{Col: col, Name: rest[i+1]})
	}
	return sp, true
}

// Config holds the per-run settings shared by all edge files.
type Config struct {
	SmartIndex int // truncation length, <=0 disables direct resolution
	Sep        byte
	Quo        byte
}

// fixEndpoint resolves one endpoint value. The returned value is the possibly
// rewritten endpoint; att is the resolved attribute, empty when the endpoint
// was already composite or could not be resolved.
func fixEndpoint(val, defaultColl string, cfg *Config, tbl *translate.Table) (out string, att string) {

	coll := defaultColl
	key := val
	if slash := strings.IndexByte(val, '/'); slash >= 0 {
		coll = val[:slash]
		key = val[slash+1:]
	}

	if strings.IndexByte(key, ':') >= 0 {
		// already composite - qualify a bare value, record no attribute
		monitor.Incr(monitor.AlreadyComposite)
		return coll + "/" + key, ""
	}

	if cfg.SmartIndex > 0 && len(key) > cfg.SmartIndex {
		att = key[:cfg.SmartIndex]
		monitor.Incr(monitor.EndpointTruncated)
		return coll + "/" + att + ":" + key, att
	}

	if tbl != nil {
		if a, ok := tbl.Lookup(coll + "/" + key); ok {
			monitor.Incr(monitor.TableHit)
			return coll + "/" + a + ":" + key, a
		}
	}

	// unresolved - the reference stays collection qualified but not composite
	monitor.Incr(monitor.TableMiss)
	return coll + "/" + key, ""
}

// composeKey builds the edge key fromAtt:key:toAtt. The key is left alone
// when it is already composite or either attribute is unknown.
func composeKey(key, fromAtt, toAtt string) (string, bool) {
	if len(key) == 0 || len(fromAtt) == 0 || len(toAtt) == 0 {
		return key, false
	}
	if strings.IndexByte(key, ':') >= 0 {
		return key, false
	}
	return fromAtt + ":" + key + ":" + toAtt, true
}

// CSV holds the per-file header state of the tabular edge path.
type CSV struct {
	cfg     *Config
	spec    *Spec
	headers []string
	ncols   int
	fromPos int
	toPos   int
	keyPos  int
}

// NewCSV resolves the header. An error return means _from or _to is absent
// and the file cannot be processed.
func NewCSV(headerLine string, spec *Spec, cfg *Config) (*CSV, error) {

	c := &CSV{cfg: cfg, spec: spec}

	for _, h := range codec.Split(headerLine, cfg.Sep, cfg.Quo) {
		c.headers = append(c.headers, codec.Unquote(h, cfg.Quo))
	}
	c.ncols = len(c.headers)

	for _, r := range spec.Renames {
		if r.Col >= c.ncols {
			slog.LogAlert(logid, fmt.Sprintf("rename of column %d in %s ignored, file has %d columns", r.Col, spec.File, c.ncols))
			continue
		}
		c.headers[r.Col] = r.Name
	}

	c.fromPos = codec.FindCol(c.headers, "_from")
	c.toPos = codec.FindCol(c.headers, "_to")
	c.keyPos = codec.FindCol(c.headers, "_key")

	if c.fromPos < 0 || c.toPos < 0 {
		return nil, fmt.Errorf("did not find _from and _to columns in %s", spec.File)
	}
	return c, nil
}

// Header returns the rewritten header row.
func (c *CSV) Header() string {
	out := make([]string, len(c.headers))
	for i, h := range c.headers {
		out[i] = codec.Quote(h, c.cfg.Sep, c.cfg.Quo)
	}
	return codec.JoinRow(out, c.cfg.Sep)
}

// Transform rewrites one edge row.
func (c *CSV) Transform(line string, n int, tbl *translate.Table) string {

	cfg := c.cfg
	parts := codec.Split(line, cfg.Sep, cfg.Quo)
	for len(parts) < c.ncols {
		parts = append(parts, "")
	}

	from, fromAtt := fixEndpoint(codec.Unquote(parts[c.fromPos], cfg.Quo), c.spec.FromColl, cfg, tbl)
	parts[c.fromPos] = codec.Quote(from, cfg.Sep, cfg.Quo)

	to, toAtt := fixEndpoint(codec.Unquote(parts[c.toPos], cfg.Quo), c.spec.ToColl, cfg, tbl)
	parts[c.toPos] = codec.Quote(to, cfg.Sep, cfg.Quo)

	if c.keyPos >= 0 {
		key := codec.Unquote(parts[c.keyPos], cfg.Quo)
		if nk, ok := composeKey(key, fromAtt, toAtt); ok {
			parts[c.keyPos] = codec.Quote(nk, cfg.Sep, cfg.Quo)
			monitor.Incr(monitor.EdgeKeySet)
		}
	}

	monitor.Incr(monitor.EdgeTransformed)

	return codec.JoinRow(parts, cfg.Sep)
}

// TransformJSON rewrites one JSONL edge record. Records that are not objects
// are dropped; records missing a string _from or _to pass through unchanged.
func TransformJSON(line []byte, n int, spec *Spec, cfg *Config, tbl *translate.Table) ([]byte, bool) {

	doc, err := codec.ParseObject(line)
	if err != nil {
		if err == codec.ErrNotObject {
			elog.Add(logid, fmt.Errorf("expected an object in JSON line %d of %s, found something else. Skipping", n, spec.File))
		} else {
			elog.Add(logid, fmt.Errorf("JSON parse error on line %d of %s: %w", n, spec.File, err))
		}
		monitor.Incr(monitor.RecordDropped)
		return nil, false
	}

	fi := doc.Get("_from")
	ti := doc.Get("_to")
	if fi < 0 || ti < 0 || doc[fi].Kind != jsonparser.String || doc[ti].Kind != jsonparser.String {
		slog.LogAlert(logid, fmt.Sprintf("edge record without string _from and _to on line %d of %s, left unchanged", n, spec.File))
		monitor.Incr(monitor.TableMiss)
		return line, true
	}

	fromVal, err := doc[fi].StringVal()
	if err != nil {
		elog.Add(logid, fmt.Errorf("could not read _from on line %d of %s: %w", n, spec.File, err))
		return line, true
	}
	toVal, err := doc[ti].StringVal()
	if err != nil {
		elog.Add(logid, fmt.Errorf("could not read _to on line %d of %s: %w", n, spec.File, err))
		return line, true
	}

	from, fromAtt := fixEndpoint(fromVal, spec.FromColl, cfg, tbl)
	to, toAtt := fixEndpoint(toVal, spec.ToColl, cfg, tbl)
	doc[fi] = codec.StringField("_from", from)
	doc[ti] = codec.StringField("_to", to)

	var hasKey bool
	var keyField codec.Field
	if ki := doc.Get("_key"); ki >= 0 && doc[ki].Kind == jsonparser.String {
		if key, err := doc[ki].StringVal(); err == nil {
			if nk, ok := composeKey(key, fromAtt, toAtt); ok {
				doc[ki] = codec.StringField("_key", nk)
				monitor.Incr(monitor.EdgeKeySet)
			}
			hasKey = true
			keyField = doc[ki]
		}
	}

	// key first, endpoints next, remaining fields in their original order
	out := make(codec.Doc, 0, len(doc))
	if hasKey {
		out = append(out, keyField)
	}
	out = append(out, doc[fi], doc[ti])
	for i := range doc {
		if i == fi || i == ti {
			continue
		}
		if hasKey && doc[i].Name == "_key" {
			continue
		}
		out = append(out, doc[i])
	}

	monitor.Incr(monitor.EdgeTransformed)

	var b bytes.Buffer
	out.Serialize(&b)
	return b.Bytes(), true
}
