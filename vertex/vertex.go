package vertex

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/SmartGraph/codec"
	elog "github.com/SmartGraph/errlog"
	"github.com/SmartGraph/monitor"
	slog "github.com/SmartGraph/syslog"
	"github.com/SmartGraph/translate"

	"github.com/buger/jsonparser"
)

// vertex stamps each record with its sharding attribute and rewrites the key
// field into composite form attribute:key. When a collection name is
// configured the identifier -> attribute mapping is recorded in the
// translation table for the edge resolution phase.

type Config struct {
	Name         string // input name used in diagnostics (file or collection)
	SmartAttr    string // sharding attribute field, default smart_id
	SmartValue   string // optional distinct value-source field
	SmartIndex   int    // truncation length, <=0 unbounded
	SmartDefault string // default attribute value (JSONL only)
	WriteKey     bool   // force-materialise the key field
	KeyValue     string // optional key-value-source field
	Collection   string // collection used for translation table inserts
	Sep          byte
	Quo          byte
}

func (c *Config) logid() string {
	if len(c.Name) > 0 {
		return "vertex " + c.Name
	}
	return "vertex"
}

// truncate applies the smart index limit. Once truncated the full raw value is
// discarded - only the truncated value is retained.
func (c *Config) truncate(v string) string {
	if c.SmartIndex > 0 && len(v) > c.SmartIndex {
		return v[:c.SmartIndex]
	}
	return v
}

// CSV holds the per-file header state of the tabular path. The header is
// resolved once, before any row.
type CSV struct {
	cfg          *Config
	headers      []string
	ncols        int
	smartAttrPos int
	smartValPos  int
	keyPos       int
	keyValPos    int
}

// NewCSV resolves column positions from the header line, appending the
// attribute column (and the key column under WriteKey) when absent.
func NewCSV(headerLine string, cfg *Config) *CSV {

	c := &CSV{cfg: cfg, smartValPos: -1, keyValPos: -1}

	for _, h := range codec.Split(headerLine, cfg.Sep, cfg.Quo) {
		c.headers = append(c.headers, codec.Unquote(h, cfg.Quo))
	}
	c.ncols = len(c.headers)

	c.smartAttrPos = codec.FindCol(c.headers, cfg.SmartAttr)
	if c.smartAttrPos < 0 {
		c.smartAttrPos = c.ncols
		c.headers = append(c.headers, cfg.SmartAttr)
		c.ncols++
	}

	if len(cfg.SmartValue) > 0 {
		c.smartValPos = codec.FindCol(c.headers, cfg.SmartValue)
		if c.smartValPos < 0 {
			slog.LogAlert(cfg.logid(), fmt.Sprintf("could not find the smart value column %s. Ignoring...", cfg.SmartValue))
		}
	}

	c.keyPos = codec.FindCol(c.headers, "_key")
	if c.keyPos < 0 && cfg.WriteKey {
		c.keyPos = c.ncols
		c.headers = append(c.headers, "_key")
		c.ncols++
	}

	if len(cfg.KeyValue) > 0 {
		c.keyValPos = codec.FindCol(c.headers, cfg.KeyValue)
		if c.keyValPos < 0 && cfg.WriteKey {
			slog.LogAlert(cfg.logid(), fmt.Sprintf("could not find column %s for key value. Ignoring...", cfg.KeyValue))
		}
	}

	return c
}

// Header returns the rewritten header row.
func (c *CSV) Header() string {
	out := make([]string, len(c.headers))
	for i, h := range c.headers {
		out[i] = codec.Quote(h, c.cfg.Sep, c.cfg.Quo)
	}
	return codec.JoinRow(out, c.cfg.Sep)
}

// Transform rewrites one data row. n is the 1-based input line number.
func (c *CSV) Transform(line string, n int, tbl *translate.Table) string {

	cfg := c.cfg
	parts := codec.Split(line, cfg.Sep, cfg.Quo)
	// reconcile row with header - pad missing trailing fields
	for len(parts) < c.ncols {
		parts = append(parts, "")
	}

	// derive the sharding attribute value
	var att string
	if c.smartValPos >= 0 {
		val := cfg.truncate(codec.Unquote(parts[c.smartValPos], cfg.Quo))
		parts[c.smartAttrPos] = codec.Quote(val, cfg.Sep, cfg.Quo)
		att = val
	} else {
		att = codec.Unquote(parts[c.smartAttrPos], cfg.Quo)
		if cfg.SmartIndex > 0 && len(att) > cfg.SmartIndex {
			att = att[:cfg.SmartIndex]
			parts[c.smartAttrPos] = codec.Quote(att, cfg.Sep, cfg.Quo)
		}
	}

	// rewrite the key field into composite form
	if c.keyPos >= 0 {
		var key string
		if c.keyValPos >= 0 {
			key = codec.Unquote(parts[c.keyValPos], cfg.Quo)
		} else {
			key = codec.Unquote(parts[c.keyPos], cfg.Quo)
		}

		if colon := strings.IndexByte(key, ':'); colon < 0 {
			parts[c.keyPos] = codec.Quote(att+":"+key, cfg.Sep, cfg.Quo)
			c.record(tbl, key, att)
		} else {
			// already composite - correct the prefix on mismatch
			if key[:colon] != att {
				slog.LogAlert(cfg.logid(), fmt.Sprintf("Found wrong key w.r.t. smart graph attribute: %s (smart = %s) in line %d", key, att, n))
				suffix := key[colon+1:]
				parts[c.keyPos] = codec.Quote(att+":"+suffix, cfg.Sep, cfg.Quo)
				monitor.Incr(monitor.KeyCorrected)
				c.record(tbl, suffix, att)
			} else {
				c.record(tbl, key[colon+1:], att)
			}
		}
	}

	monitor.Incr(monitor.VertexTransformed)

	return codec.JoinRow(parts, cfg.Sep)
}

func (c *CSV) record(tbl *translate.Table, key, att string) {
	if tbl == nil || len(c.cfg.Collection) == 0 || len(key) == 0 || len(att) == 0 {
		return
	}
	tbl.Insert(c.cfg.Collection+"/"+key, att)
	monitor.Incr(monitor.TableInsert)
}

// smartToString coerces a JSON field value to the attribute string. Strings
// pass through, null/absent fall back to the configured default, bool and
// number convert with a warning, complex values are rejected with an error.
func smartToString(d codec.Doc, field string, cfg *Config, n int) string {

	i := d.Get(field)
	if i < 0 {
		return cfg.SmartDefault
	}

	f := &d[i]
	switch f.Kind {
	case jsonparser.String:
		s, err := f.StringVal()
		if err != nil {
			elog.Add(cfg.logid(), fmt.Errorf("could not read smart graph attribute on line %d: %w", n, err))
			return ""
		}
		return s
	case jsonparser.Null:
		return cfg.SmartDefault
	case jsonparser.Boolean:
		slog.LogAlert(cfg.logid(), fmt.Sprintf("WARNING: Vertex with non-string smart graph attribute (bool) on line %d. Converting to String.", n))
		return string(f.Raw)
	case jsonparser.Number:
		slog.LogAlert(cfg.logid(), fmt.Sprintf("WARNING: Vertex with non-string smart graph attribute (number) on line %d. Converting to String.", n))
		return string(f.Raw)
	default:
		elog.Add(cfg.logid(), fmt.Errorf("found a complex type for the smart graph attribute on line %d. Not converting", n))
		return ""
	}
}

// TransformJSON rewrites one JSONL record. Returns ok=false when the record
// is dropped (malformed or non-object line).
func TransformJSON(line []byte, n int, cfg *Config, tbl *translate.Table) ([]byte, bool) {

	doc, err := codec.ParseObject(line)
	if err != nil {
		if err == codec.ErrNotObject {
			elog.Add(cfg.logid(), fmt.Errorf("expected an object in JSON line %d, found something else. Skipping", n))
		} else {
			elog.Add(cfg.logid(), fmt.Errorf("JSON parse error on line %d: %w", n, err))
		}
		monitor.Incr(monitor.RecordDropped)
		return nil, false
	}

	// derive the sharding attribute
	src := cfg.SmartAttr
	if len(cfg.SmartValue) > 0 {
		src = cfg.SmartValue
	}
	att := cfg.truncate(smartToString(doc, src, cfg, n))

	// derive the new key
	keyField := "_key"
	if len(cfg.KeyValue) > 0 {
		keyField = cfg.KeyValue
	}
	var newKey, origKey string
	if i := doc.Get(keyField); i >= 0 && doc[i].Kind == jsonparser.String {
		ks, err := doc[i].StringVal()
		if err == nil {
			if colon := strings.IndexByte(ks, ':'); colon >= 0 {
				// already composite - warn only, the key is left as found
				if ks[:colon] != att {
					slog.LogAlert(cfg.logid(), fmt.Sprintf("_key is already smart, but with the wrong prefix on line %d: %s (smart = %s)", n, ks, att))
				}
				newKey = ks
			} else {
				origKey = ks
				if len(att) > 0 {
					newKey = att + ":" + ks
				} else {
					newKey = ks
				}
			}
		}
	}

	// key first (when materialised), attribute second, remaining fields in
	// their original relative order
	out := make(codec.Doc, 0, len(doc)+2)
	if cfg.WriteKey || len(newKey) > 0 {
		out = append(out, codec.StringField("_key", newKey))
	}
	out = append(out, codec.StringField(cfg.SmartAttr, att))
	for i := range doc {
		if doc[i].Name == "_key" || doc[i].Name == cfg.SmartAttr {
			continue
		}
		out = append(out, doc[i])
	}

	if tbl != nil && len(cfg.Collection) > 0 && len(origKey) > 0 && len(att) > 0 {
		tbl.Insert(cfg.Collection+"/"+origKey, att)
		monitor.Incr(monitor.TableInsert)
	}

	var b bytes.Buffer
	out.Serialize(&b)
	monitor.Incr(monitor.VertexTransformed)
	return b.Bytes(), true
}
