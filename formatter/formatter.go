// Package formatter renders status lines and result strings as txt, json, or
// raw bytes for console and file output.
package formatter

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"
)

// Format flags for controlling output structure
const (
	FlagRaw          int64 = 0b0001
	FlagShowTime     int64 = 0b0010
	FlagShowSeverity int64 = 0b0100
	FlagShowLocation int64 = 0b1000
	FlagDefault            = FlagShowTime | FlagShowSeverity | FlagShowLocation
)

// Formatter manages the buffered formatting of log entries. A Formatter reuses
// its buffer and is not safe for concurrent use; callers serialize access.
type Formatter struct {
	format          string
	timestampFormat string
	showTime        bool
	showSeverity    bool
	showLocation    bool
	buf             []byte
}

// New creates a txt formatter showing every header field
func New() *Formatter {
	return &Formatter{
		format:          "txt",
		timestampFormat: time.RFC3339Nano,
		showTime:        true,
		showSeverity:    true,
		showLocation:    true,
		buf:             make([]byte, 0, 1024),
	}
}

// Type sets the output format ("txt", "json", or "raw")
func (f *Formatter) Type(format string) *Formatter {
	f.format = format
	return f
}

// TimestampFormat sets the timestamp format string
func (f *Formatter) TimestampFormat(format string) *Formatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// ShowTime sets whether to include the timestamp in output
func (f *Formatter) ShowTime(show bool) *Formatter {
	f.showTime = show
	return f
}

// ShowSeverity sets whether to include the severity in output
func (f *Formatter) ShowSeverity(show bool) *Formatter {
	f.showSeverity = show
	return f
}

// ShowLocation sets whether to include the source location in output
func (f *Formatter) ShowLocation(show bool) *Formatter {
	f.showLocation = show
	return f
}

// Kind returns the configured format
func (f *Formatter) Kind() string {
	return f.format
}

// effectiveFlags merges explicit flags with configured defaults; zero flags
// select the configured header fields
func (f *Formatter) effectiveFlags(flags int64) int64 {
	if flags != 0 {
		return flags
	}
	if f.showTime {
		flags |= FlagShowTime
	}
	if f.showSeverity {
		flags |= FlagShowSeverity
	}
	if f.showLocation {
		flags |= FlagShowLocation
	}
	return flags
}

// FormatStatus formats one status line. The message is written unquoted.
// The returned slice is reused by the next call.
func (f *Formatter) FormatStatus(flags int64, timestamp time.Time, severity, location, message string) []byte {
	f.Reset()
	flags = f.effectiveFlags(flags)

	if flags&FlagRaw != 0 || f.format == "raw" {
		f.buf = append(f.buf, message...)
		return f.buf
	}

	se := newSerializer(f.format)
	switch f.format {
	case "json":
		f.appendJSONHeader(flags, timestamp, severity, location, se)
		f.appendJSONKey(`"message":`)
		se.writeString(&f.buf, message)
		f.buf = append(f.buf, '}', '\n')
	default:
		needsSpace := f.appendTxtHeader(flags, timestamp, severity, location, se)
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		se.writeBare(&f.buf, message)
		f.buf = append(f.buf, '\n')
	}
	return f.buf
}

// Format formats a header followed by arbitrary values, in the manner of
// FormatStatus. Values are space separated in txt and raw, and collected in a
// "fields" array in json.
func (f *Formatter) Format(flags int64, timestamp time.Time, severity, location string, args []any) []byte {
	f.Reset()
	flags = f.effectiveFlags(flags)
	se := newSerializer(f.format)

	if flags&FlagRaw != 0 || f.format == "raw" {
		se = newSerializer("raw")
		for i, arg := range args {
			f.convertValue(&f.buf, arg, se, i > 0)
		}
		return f.buf
	}

	switch f.format {
	case "json":
		f.appendJSONHeader(flags, timestamp, severity, location, se)
		if len(args) > 0 {
			f.appendJSONKey(`"fields":[`)
			for i, arg := range args {
				if i > 0 {
					f.buf = append(f.buf, ',')
				}
				f.convertValue(&f.buf, arg, se, false)
			}
			f.buf = append(f.buf, ']')
		}
		f.buf = append(f.buf, '}', '\n')
	default:
		needsSpace := f.appendTxtHeader(flags, timestamp, severity, location, se)
		for _, arg := range args {
			f.convertValue(&f.buf, arg, se, needsSpace)
			needsSpace = true
		}
		f.buf = append(f.buf, '\n')
	}
	return f.buf
}

// FormatString formats a result string. txt and raw output pass the text
// through with a trailing newline in txt; json wraps it with its category.
func (f *Formatter) FormatString(category, text string) []byte {
	f.Reset()
	switch f.format {
	case "json":
		se := newSerializer("json")
		f.buf = append(f.buf, `{"category":`...)
		se.writeString(&f.buf, category)
		f.buf = append(f.buf, `,"text":`...)
		se.writeString(&f.buf, text)
		f.buf = append(f.buf, '}', '\n')
	case "raw":
		f.buf = append(f.buf, text...)
	default:
		f.buf = append(f.buf, text...)
		f.buf = append(f.buf, '\n')
	}
	return f.buf
}

// Reset clears the formatter buffer for reuse
func (f *Formatter) Reset() {
	f.buf = f.buf[:0]
}

func (f *Formatter) appendJSONKey(key string) {
	if len(f.buf) > 1 {
		f.buf = append(f.buf, ',')
	}
	f.buf = append(f.buf, key...)
}

func (f *Formatter) appendJSONHeader(flags int64, timestamp time.Time, severity, location string, se serializer) {
	f.buf = append(f.buf, '{')
	if flags&FlagShowTime != 0 {
		f.appendJSONKey(`"time":"`)
		f.buf = timestamp.AppendFormat(f.buf, f.timestampFormat)
		f.buf = append(f.buf, '"')
	}
	if flags&FlagShowSeverity != 0 {
		f.appendJSONKey(`"severity":`)
		se.writeString(&f.buf, severity)
	}
	if flags&FlagShowLocation != 0 && location != "" {
		f.appendJSONKey(`"location":`)
		se.writeString(&f.buf, location)
	}
}

func (f *Formatter) appendTxtHeader(flags int64, timestamp time.Time, severity, location string, se serializer) bool {
	needsSpace := false
	if flags&FlagShowTime != 0 {
		f.buf = timestamp.AppendFormat(f.buf, f.timestampFormat)
		needsSpace = true
	}
	if flags&FlagShowSeverity != 0 {
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		se.writeBare(&f.buf, severity)
		needsSpace = true
	}
	if flags&FlagShowLocation != 0 && location != "" {
		if needsSpace {
			f.buf = append(f.buf, ' ')
		}
		se.writeBare(&f.buf, location)
		needsSpace = true
	}
	return needsSpace
}

// convertValue provides unified type conversion
func (f *Formatter) convertValue(buf *[]byte, v any, se serializer, needsSpace bool) {
	if needsSpace && len(*buf) > 0 {
		*buf = append(*buf, ' ')
	}

	switch val := v.(type) {
	case string:
		se.writeString(buf, val)

	case []byte:
		se.writeString(buf, string(val))

	case rune:
		var runeStr [utf8.UTFMax]byte
		n := utf8.EncodeRune(runeStr[:], val)
		se.writeString(buf, string(runeStr[:n]))

	case int:
		se.writeNumber(buf, strconv.FormatInt(int64(val), 10))

	case int64:
		se.writeNumber(buf, strconv.FormatInt(val, 10))

	case uint:
		se.writeNumber(buf, strconv.FormatUint(uint64(val), 10))

	case uint32:
		se.writeNumber(buf, strconv.FormatUint(uint64(val), 10))

	case uint64:
		se.writeNumber(buf, strconv.FormatUint(val, 10))

	case float32:
		se.writeNumber(buf, strconv.FormatFloat(float64(val), 'f', -1, 32))

	case float64:
		se.writeNumber(buf, strconv.FormatFloat(val, 'f', -1, 64))

	case bool:
		se.writeBool(buf, val)

	case nil:
		se.writeNil(buf)

	case time.Time:
		se.writeString(buf, val.Format(f.timestampFormat))

	case error:
		se.writeString(buf, val.Error())

	case fmt.Stringer:
		se.writeString(buf, val.String())

	default:
		se.writeComplex(buf, val)
	}
}
