// Package strfile implements reading and writing of Apple .strings
// localization files.
//
// Parsing is lossless: comments, blank lines, and the original byte
// representation of every entry are retained, so serializing a file whose
// entries were not semantically changed reproduces the input byte for byte.
package strfile

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// Encoding identifies the on-disk encoding of a .strings file.
type Encoding int

const (
	// UTF8 is plain UTF-8, the common encoding for modern projects.
	UTF8 Encoding = iota
	// UTF16LE is UTF-16 little-endian (the classic Xcode output).
	UTF16LE
	// UTF16BE is UTF-16 big-endian.
	UTF16BE
)

// String returns the IANA-style name of the encoding.
func (e Encoding) String() string {
	switch e {
	case UTF16LE:
		return "UTF-16LE"
	case UTF16BE:
		return "UTF-16BE"
	default:
		return "UTF-8"
	}
}

// FormatError describes a malformed .strings file.
type FormatError struct {
	// Line is the 1-based line number where parsing failed (0 if unknown).
	Line int
	// Msg describes the problem.
	Msg string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("strings format: line %d: %s", e.Line, e.Msg)
	}
	return "strings format: " + e.Msg
}

// Entry is a single "key" = "value"; pair with its preceding comment.
type Entry struct {
	// Key is the unescaped string key.
	Key string
	// Value is the unescaped string value.
	Value string
	// Comment is the text of the /* ... */ block immediately preceding
	// the entry, without the comment markers.
	Comment string

	// commentRaw holds the original comment lines, verbatim.
	commentRaw []string
	// raw holds the original entry lines, verbatim.
	raw []string
	// dirty marks an entry whose value changed after parsing; dirty
	// entries are re-rendered instead of replayed from raw.
	dirty bool
}

// SetValue replaces the entry's value. The entry will be re-rendered
// on the next serialization; its key, comment, and position are kept.
func (e *Entry) SetValue(v string) {
	if e.Value == v {
		return
	}
	e.Value = v
	e.dirty = true
}

// nodeKind distinguishes the file's layout nodes.
type nodeKind int

const (
	nodeBlank nodeKind = iota
	nodeComment
	nodeEntry
)

// node is one layout element of the file: a blank line, a standalone
// comment, or an entry (with its attached comment).
type node struct {
	kind  nodeKind
	raw   []string // verbatim lines for blank/comment nodes
	entry *Entry
}

// File is a parsed .strings file. Entry order matches the source file.
type File struct {
	nodes []*node
	byKey map[string]*Entry

	// Encoding is the detected source encoding, reproduced on write.
	Encoding Encoding
	// BOM records whether the source carried a byte-order mark.
	BOM bool
	// TrailingNewline records whether the source ended with a newline.
	TrailingNewline bool
	// Warnings collects non-fatal parse notes (e.g. unknown escapes).
	Warnings []string
}

// New creates an empty file with the default encoding (UTF-8, trailing
// newline, no BOM).
func New() *File {
	return &File{
		byKey:           make(map[string]*Entry),
		TrailingNewline: true,
	}
}

// Len returns the number of entries.
func (f *File) Len() int {
	n := 0
	for _, nd := range f.nodes {
		if nd.kind == nodeEntry {
			n++
		}
	}
	return n
}

// Entries returns the entries in file order.
func (f *File) Entries() []*Entry {
	var out []*Entry
	for _, nd := range f.nodes {
		if nd.kind == nodeEntry {
			out = append(out, nd.entry)
		}
	}
	return out
}

// Keys returns the keys in file order.
func (f *File) Keys() []string {
	var out []string
	for _, nd := range f.nodes {
		if nd.kind == nodeEntry {
			out = append(out, nd.entry.Key)
		}
	}
	return out
}

// Get returns the entry for key, or nil if absent.
func (f *File) Get(key string) *Entry {
	return f.byKey[key]
}

// Has reports whether key is present.
func (f *File) Has(key string) bool {
	_, ok := f.byKey[key]
	return ok
}

// SetValue updates the value of an existing entry. It reports whether
// the key was present.
func (f *File) SetValue(key, value string) bool {
	e, ok := f.byKey[key]
	if !ok {
		return false
	}
	e.SetValue(value)
	return true
}

// Append adds a new entry at the end of the file.
func (f *File) Append(key, value, comment string) *Entry {
	e := &Entry{Key: key, Value: value, Comment: comment, dirty: true}
	f.nodes = append(f.nodes, &node{kind: nodeEntry, entry: e})
	f.byKey[key] = e
	return e
}

// Delete removes the entry for key along with its attached comment.
// It reports whether the key was present.
func (f *File) Delete(key string) bool {
	if _, ok := f.byKey[key]; !ok {
		return false
	}
	for i, nd := range f.nodes {
		if nd.kind == nodeEntry && nd.entry.Key == key {
			f.nodes = append(f.nodes[:i], f.nodes[i+1:]...)
			// Collapse the blank separator left dangling at the cut.
			switch {
			case i == 0 && len(f.nodes) > 0 && f.nodes[0].kind == nodeBlank:
				f.nodes = f.nodes[1:]
			case i > 0 && i < len(f.nodes) &&
				f.nodes[i-1].kind == nodeBlank && f.nodes[i].kind == nodeBlank:
				f.nodes = append(f.nodes[:i], f.nodes[i+1:]...)
			case i > 0 && i == len(f.nodes) && f.nodes[i-1].kind == nodeBlank:
				f.nodes = f.nodes[:i-1]
			}
			break
		}
	}
	delete(f.byKey, key)
	return true
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// Parse decodes and parses .strings file content, auto-detecting the
// encoding from the byte-order mark (UTF-16) or falling back to UTF-8.
func Parse(data []byte) (*File, error) {
	f := New()
	f.TrailingNewline = false

	content, err := decode(data, f)
	if err != nil {
		return nil, err
	}

	if strings.HasSuffix(content, "\n") {
		f.TrailingNewline = true
		content = content[:len(content)-1]
		// A file of just "\n" is one empty line.
		if content == "" {
			f.nodes = append(f.nodes, &node{kind: nodeBlank, raw: []string{""}})
		}
	}

	var lines []string
	if content != "" {
		lines = strings.Split(content, "\n")
	}

	// pending comment block waiting for its entry
	var pendingComment []string
	var pendingText string

	flushComment := func() {
		if pendingComment != nil {
			f.nodes = append(f.nodes, &node{kind: nodeComment, raw: pendingComment})
			pendingComment = nil
			pendingText = ""
		}
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			flushComment()
			f.nodes = append(f.nodes, &node{kind: nodeBlank, raw: []string{line}})
			i++
			continue
		}

		if strings.HasPrefix(trimmed, "/*") {
			// A new comment supersedes a pending one, which then
			// stays in place as a standalone comment.
			flushComment()
			start := i
			for {
				if strings.Contains(lines[i], "*/") {
					break
				}
				i++
				if i >= len(lines) {
					return nil, &FormatError{Line: start + 1, Msg: "unterminated comment"}
				}
			}
			pendingComment = append([]string(nil), lines[start:i+1]...)
			pendingText = commentText(strings.Join(pendingComment, "\n"))
			i++
			continue
		}

		if strings.HasPrefix(trimmed, "//") {
			flushComment()
			pendingComment = []string{line}
			pendingText = strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))
			i++
			continue
		}

		if strings.HasPrefix(trimmed, `"`) {
			start := i
			entry, consumed, err := parseEntry(lines, i, f)
			if err != nil {
				return nil, err
			}
			i = consumed
			if f.byKey[entry.Key] != nil {
				return nil, &FormatError{Line: start + 1, Msg: fmt.Sprintf("duplicate key %q", entry.Key)}
			}
			entry.commentRaw = pendingComment
			entry.Comment = pendingText
			pendingComment = nil
			pendingText = ""
			f.nodes = append(f.nodes, &node{kind: nodeEntry, entry: entry})
			f.byKey[entry.Key] = entry
			continue
		}

		return nil, &FormatError{Line: i + 1, Msg: fmt.Sprintf("unexpected content: %s", truncate(trimmed, 40))}
	}

	// Comment with no following entry stays standalone at its position.
	flushComment()

	return f, nil
}

// ParseFile reads and parses a .strings file from disk.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// parseEntry parses one "key" = "value"; entry starting at lines[start].
// Entries may span multiple lines inside quoted strings. It returns the
// entry and the index of the first unconsumed line.
func parseEntry(lines []string, start int, f *File) (*Entry, int, error) {
	// Join lines lazily: scan within the current line, pulling in the
	// next line (as a literal newline) when a quoted string continues.
	lineIdx := start
	text := lines[lineIdx]
	pos := 0

	skipSpace := func() {
		for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\r') {
			pos++
		}
	}

	readString := func() (string, error) {
		if pos >= len(text) || text[pos] != '"' {
			return "", &FormatError{Line: lineIdx + 1, Msg: "expected opening quote"}
		}
		pos++
		var sb strings.Builder
		for {
			if pos >= len(text) {
				// String continues on the next physical line.
				if lineIdx+1 >= len(lines) {
					return "", &FormatError{Line: start + 1, Msg: "unterminated quote"}
				}
				lineIdx++
				text = lines[lineIdx]
				pos = 0
				sb.WriteByte('\n')
				continue
			}
			c := text[pos]
			if c == '"' {
				pos++
				return sb.String(), nil
			}
			if c == '\\' {
				if pos+1 >= len(text) {
					// Trailing backslash at end of line: keep it, the
					// line break is handled by the continuation path.
					sb.WriteByte('\\')
					pos++
					continue
				}
				next := text[pos+1]
				switch next {
				case 'n':
					sb.WriteByte('\n')
				case 'r':
					sb.WriteByte('\r')
				case 't':
					sb.WriteByte('\t')
				case '"':
					sb.WriteByte('"')
				case '\\':
					sb.WriteByte('\\')
				default:
					// Unknown escape: keep it verbatim, note it.
					sb.WriteByte('\\')
					sb.WriteByte(next)
					f.Warnings = append(f.Warnings,
						fmt.Sprintf("line %d: unknown escape \\%c left as-is", lineIdx+1, next))
				}
				pos += 2
				continue
			}
			sb.WriteByte(c)
			pos++
		}
	}

	skipSpace()
	key, err := readString()
	if err != nil {
		return nil, 0, err
	}

	skipSpace()
	if pos >= len(text) || text[pos] != '=' {
		return nil, 0, &FormatError{Line: lineIdx + 1, Msg: fmt.Sprintf("expected '=' after key %q", key)}
	}
	pos++

	skipSpace()
	value, err := readString()
	if err != nil {
		return nil, 0, err
	}

	skipSpace()
	if pos >= len(text) || text[pos] != ';' {
		return nil, 0, &FormatError{Line: lineIdx + 1, Msg: fmt.Sprintf("missing ';' terminator after key %q", key)}
	}
	pos++
	skipSpace()
	if pos < len(text) {
		return nil, 0, &FormatError{Line: lineIdx + 1, Msg: "unexpected content after ';'"}
	}

	e := &Entry{
		Key:   key,
		Value: value,
		raw:   append([]string(nil), lines[start:lineIdx+1]...),
	}
	return e, lineIdx + 1, nil
}

// commentText extracts the body of a /* ... */ block.
func commentText(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "/*")
	s = strings.TrimSuffix(s, "*/")
	return strings.TrimSpace(s)
}

// ---------------------------------------------------------------------------
// Serialization
// ---------------------------------------------------------------------------

// Format renders the file as text. Untouched entries replay their
// original lines; changed or appended entries are re-rendered.
func (f *File) Format() string {
	var lines []string
	prevEntry := false
	for _, nd := range f.nodes {
		switch nd.kind {
		case nodeBlank, nodeComment:
			lines = append(lines, nd.raw...)
			prevEntry = false
		case nodeEntry:
			e := nd.entry
			if !e.dirty && e.raw != nil {
				lines = append(lines, e.commentRaw...)
				lines = append(lines, e.raw...)
			} else {
				// Separate appended entries from the previous one.
				if prevEntry && e.raw == nil {
					lines = append(lines, "")
				}
				if e.commentRaw != nil {
					// Only the value changed; replay the comment as-is.
					lines = append(lines, e.commentRaw...)
				} else if e.Comment != "" {
					lines = append(lines, "/* "+e.Comment+" */")
				}
				lines = append(lines, `"`+Escape(e.Key)+`" = "`+Escape(e.Value)+`";`)
			}
			prevEntry = true
		}
	}
	out := strings.Join(lines, "\n")
	if f.TrailingNewline && len(lines) > 0 {
		out += "\n"
	}
	return out
}

// Bytes renders the file in its source encoding, BOM included.
func (f *File) Bytes() ([]byte, error) {
	return encode(f.Format(), f.Encoding, f.BOM)
}

// WriteFile serializes the file to disk in its source encoding.
func (f *File) WriteFile(path string) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Escape encodes the .strings escape sequences in s.
func Escape(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// ---------------------------------------------------------------------------
// Encoding detection
// ---------------------------------------------------------------------------

func decode(data []byte, f *File) (string, error) {
	switch {
	case len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE:
		f.Encoding = UTF16LE
		f.BOM = true
		return decodeUTF16(data[2:], unicode.LittleEndian)
	case len(data) >= 2 && data[0] == 0xFE && data[1] == 0xFF:
		f.Encoding = UTF16BE
		f.BOM = true
		return decodeUTF16(data[2:], unicode.BigEndian)
	case len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF:
		f.Encoding = UTF8
		f.BOM = true
		return string(data[3:]), nil
	case utf8.Valid(data):
		f.Encoding = UTF8
		return string(data), nil
	case len(data)%2 == 0:
		// No BOM, not UTF-8: assume little-endian UTF-16.
		f.Encoding = UTF16LE
		return decodeUTF16(data, unicode.LittleEndian)
	default:
		return "", &FormatError{Msg: "unsupported encoding: not UTF-8 or UTF-16"}
	}
}

func decodeUTF16(data []byte, e unicode.Endianness) (string, error) {
	dec := unicode.UTF16(e, unicode.IgnoreBOM).NewDecoder()
	out, err := dec.Bytes(data)
	if err != nil {
		return "", &FormatError{Msg: "invalid UTF-16 content: " + err.Error()}
	}
	return string(out), nil
}

func encode(content string, enc Encoding, bom bool) ([]byte, error) {
	switch enc {
	case UTF16LE, UTF16BE:
		e := unicode.LittleEndian
		bomBytes := []byte{0xFF, 0xFE}
		if enc == UTF16BE {
			e = unicode.BigEndian
			bomBytes = []byte{0xFE, 0xFF}
		}
		out, err := unicode.UTF16(e, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(content))
		if err != nil {
			return nil, fmt.Errorf("encoding UTF-16: %w", err)
		}
		if bom {
			return append(bomBytes, out...), nil
		}
		return out, nil
	default:
		if bom {
			return append([]byte{0xEF, 0xBB, 0xBF}, content...), nil
		}
		return []byte(content), nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
