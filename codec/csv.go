package codec

import (
	"strings"
)

// Quote-aware CSV field handling. Fields returned by Split are the raw byte
// spans between separators (quote characters intact) so untouched fields can
// be written back byte-identical. Unquote/Quote convert between raw field and
// logical value for the fields the tools rewrite.

// Split splits a line on sep, taking quotes into account. A doubled quote
// inside a quoted span is a literal quote and does not close the span. An
// unterminated quote is tolerated - the remainder of the line is one field.
// Single forward scan, state none/in-quote.
func Split(line string, sep, quo byte) []string {

	result := make([]string, 0, 8)
	start := 0
	inQuote := false

	for pos := 0; pos < len(line); {
		c := line[pos]
		if !inQuote {
			switch c {
			case quo:
				inQuote = true
				pos++
			case sep:
				result = append(result, line[start:pos])
				pos++
				start = pos
			default:
				pos++
			}
		} else {
			if c == quo {
				if pos+1 < len(line) && line[pos+1] == quo {
					// doubled quote - stay in quoted span
					pos += 2
					continue
				}
				inQuote = false
			}
			pos++
		}
	}
	// last field
	result = append(result, line[start:])

	return result
}

// Unquote returns the logical value of a raw field. A field without the quote
// character is returned unchanged. Otherwise content before the first quote is
// discarded and content is collected from inside quoted spans, a doubled quote
// producing one literal quote. A closing quote may be followed by a re-opening
// into a further quoted span whose content is appended.
func Unquote(s string, quo byte) string {

	if strings.IndexByte(s, quo) < 0 {
		return s
	}

	var res strings.Builder
	pos := 0
	// skip to the first quote
	for pos < len(s) && s[pos] != quo {
		pos++
	}
	pos++
	inQuote := true
	for pos < len(s) {
		if inQuote {
			if s[pos] == quo {
				if pos+1 < len(s) && s[pos+1] == quo {
					res.WriteByte(quo)
					pos += 2
					continue
				}
				inQuote = false
			} else {
				res.WriteByte(s[pos])
			}
		} else {
			if s[pos] == quo {
				inQuote = true
			}
		}
		pos++
	}
	return res.String()
}

// Quote serialises a logical value as a raw field: wrapped in the quote
// character when it contains the quote character or the separator, internal
// quote characters doubled. Anything else passes through unchanged.
func Quote(s string, sep, quo byte) string {

	if strings.IndexByte(s, quo) < 0 && strings.IndexByte(s, sep) < 0 {
		return s
	}
	var res strings.Builder
	res.WriteByte(quo)
	for i := 0; i < len(s); i++ {
		if s[i] == quo {
			res.WriteByte(quo)
			res.WriteByte(quo)
		} else {
			res.WriteByte(s[i])
		}
	}
	res.WriteByte(quo)
	return res.String()
}

// JoinRow joins raw fields with the separator - no trailing separator.
func JoinRow(fields []string, sep byte) string {

	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(f)
	}
	return b.String()
}

// FindCol returns the position of a column in a header slice, -1 if not found.
func FindCol(colHeaders []string, header string) int {
	for i, h := range colHeaders {
		if h == header {
			return i
		}
	}
	return -1
}
