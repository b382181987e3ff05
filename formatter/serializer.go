package formatter

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
)

// dumper renders composite values in raw output
var dumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// serializer writes scalar values with format-specific quoting and escaping
type serializer struct {
	format string
}

func newSerializer(format string) serializer {
	return serializer{format: format}
}

// writeString writes s with format-specific handling
func (se serializer) writeString(buf *[]byte, s string) {
	switch se.format {
	case "raw":
		*buf = append(*buf, s...)

	case "txt":
		sanitized := hexEncodeNonPrintable(s)
		if needsQuotes(sanitized) {
			*buf = append(*buf, '"')
			for i := 0; i < len(sanitized); i++ {
				if sanitized[i] == '"' || sanitized[i] == '\\' {
					*buf = append(*buf, '\\')
				}
				*buf = append(*buf, sanitized[i])
			}
			*buf = append(*buf, '"')
		} else {
			*buf = append(*buf, sanitized...)
		}

	case "json":
		*buf = append(*buf, '"')
		*buf = appendJSONEscaped(*buf, s)
		*buf = append(*buf, '"')
	}
}

// writeBare writes s without quoting; txt output still hex-encodes
// non-printable runes so terminals never see control sequences
func (se serializer) writeBare(buf *[]byte, s string) {
	switch se.format {
	case "txt":
		*buf = append(*buf, hexEncodeNonPrintable(s)...)
	case "json":
		*buf = appendJSONEscaped(*buf, s)
	default:
		*buf = append(*buf, s...)
	}
}

func (se serializer) writeNumber(buf *[]byte, n string) {
	*buf = append(*buf, n...)
}

func (se serializer) writeBool(buf *[]byte, b bool) {
	*buf = strconv.AppendBool(*buf, b)
}

func (se serializer) writeNil(buf *[]byte) {
	if se.format == "raw" {
		*buf = append(*buf, "nil"...)
		return
	}
	*buf = append(*buf, "null"...)
}

// writeComplex writes maps, slices, and structs
func (se serializer) writeComplex(buf *[]byte, v any) {
	if se.format == "raw" {
		var b bytes.Buffer
		dumper.Fdump(&b, v)
		*buf = append(*buf, bytes.TrimSpace(b.Bytes())...)
		return
	}
	se.writeString(buf, fmt.Sprintf("%+v", v))
}

// hexEncodeNonPrintable replaces every non-printable rune with "<hex>"
func hexEncodeNonPrintable(s string) string {
	clean := true
	for _, r := range s {
		if !strconv.IsPrint(r) {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	out := make([]byte, 0, len(s)+8)
	for _, r := range s {
		if strconv.IsPrint(r) {
			out = utf8.AppendRune(out, r)
			continue
		}
		var runeBytes [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeBytes[:], r)
		out = append(out, '<')
		out = append(out, hex.EncodeToString(runeBytes[:n])...)
		out = append(out, '>')
	}
	return string(out)
}

func appendJSONEscaped(buf []byte, s string) []byte {
	for i := 0; i < len(s); {
		c := s[i]
		if c >= ' ' && c != '"' && c != '\\' && c < 0x7f {
			start := i
			for i < len(s) && s[i] >= ' ' && s[i] != '"' && s[i] != '\\' && s[i] < 0x7f {
				i++
			}
			buf = append(buf, s[start:i]...)
			continue
		}
		switch c {
		case '\\', '"':
			buf = append(buf, '\\', c)
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case '\t':
			buf = append(buf, '\\', 't')
		case '\b':
			buf = append(buf, '\\', 'b')
		case '\f':
			buf = append(buf, '\\', 'f')
		default:
			if c < 0x20 || c == 0x7f {
				buf = append(buf, fmt.Sprintf("\\u%04x", c)...)
			} else {
				// Multi-byte UTF-8 passes through
				buf = append(buf, c)
			}
		}
		i++
	}
	return buf
}

// needsQuotes reports whether a txt value must be quoted
func needsQuotes(s string) bool {
	if len(s) == 0 {
		return true
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			return true
		}
		switch r {
		case '"', '\'', '\\', '$', '`', '!', '&', '|', ';',
			'(', ')', '<', '>', '*', '?', '[', ']', '{', '}',
			'~', '#', '%', '=':
			return true
		}
		if !unicode.IsPrint(r) {
			return true
		}
	}
	return false
}
