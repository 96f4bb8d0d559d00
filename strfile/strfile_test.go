package strfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"
)

const sample = `/* Greeting shown on launch */
"hello" = "Hello, World!";

/* Multi-line
   explanation */
"bye" = "Goodbye";

// Slash comment style
"slash" = "value";

/* orphan comment at end of file */
`

func TestParseEntriesAndComments(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if f.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", f.Len())
	}
	if got := f.Keys(); !reflect.DeepEqual(got, []string{"hello", "bye", "slash"}) {
		t.Fatalf("Keys() = %v", got)
	}

	hello := f.Get("hello")
	if hello == nil {
		t.Fatal("hello entry not found")
	}
	if hello.Value != "Hello, World!" {
		t.Fatalf("hello value = %q", hello.Value)
	}
	if hello.Comment != "Greeting shown on launch" {
		t.Fatalf("hello comment = %q", hello.Comment)
	}

	bye := f.Get("bye")
	if bye.Comment != "Multi-line\n   explanation" {
		t.Fatalf("bye comment = %q", bye.Comment)
	}

	slash := f.Get("slash")
	if slash.Comment != "Slash comment style" {
		t.Fatalf("slash comment = %q", slash.Comment)
	}

	if f.Has("orphan") {
		t.Fatal("orphan comment must not produce an entry")
	}
}

func TestRoundTripByteIdentity(t *testing.T) {
	inputs := []string{
		sample,
		"",
		"\n",
		`"a" = "b";`,
		"\"a\" = \"b\";\n",
		"\n\n/* c */\n\"k\" = \"v\";\n\n",
		"/* unattached */\n\n\"k\" = \"v\";\n",
		"  \"indented\"  =  \"kept verbatim\" ;  \n",
	}

	for _, in := range inputs {
		f, err := Parse([]byte(in))
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", in, err)
		}
		out, err := f.Bytes()
		if err != nil {
			t.Fatalf("Bytes(%q) error: %v", in, err)
		}
		if string(out) != in {
			t.Fatalf("round trip mismatch:\n in: %q\nout: %q", in, string(out))
		}
	}
}

func TestEscapes(t *testing.T) {
	in := `"tabs\tand\nnewlines" = "quote \" backslash \\ return \r";` + "\n"
	f, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	e := f.Get("tabs\tand\nnewlines")
	if e == nil {
		t.Fatalf("escaped key not decoded, keys = %v", f.Keys())
	}
	if e.Value != "quote \" backslash \\ return \r" {
		t.Fatalf("value = %q", e.Value)
	}

	out, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if string(out) != in {
		t.Fatalf("round trip mismatch: %q", string(out))
	}
}

func TestUnknownEscapeKeptWithWarning(t *testing.T) {
	f, err := Parse([]byte(`"k" = "percent \U0041 kept";` + "\n"))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := f.Get("k").Value; got != `percent \U0041 kept` {
		t.Fatalf("value = %q", got)
	}
	if len(f.Warnings) != 1 || !strings.Contains(f.Warnings[0], `\U`) {
		t.Fatalf("Warnings = %v, want one about \\U", f.Warnings)
	}
}

func TestFormatErrors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		line  int
	}{
		{name: "missing semicolon", input: `"a" = "b"`, line: 1},
		{name: "missing equals", input: "\"a\" \"b\";\n", line: 1},
		{name: "unterminated quote", input: "\"a\" = \"b;\n", line: 1},
		{name: "unterminated comment", input: "\"x\" = \"y\";\n/* no end\n", line: 2},
		{name: "bare content", input: "\"a\" = \"b\";\nnot strings syntax\n", line: 2},
		{name: "duplicate key", input: "\"a\" = \"1\";\n\"a\" = \"2\";\n", line: 2},
		{name: "trailing garbage", input: "\"a\" = \"b\"; extra\n", line: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.input))
			var ferr *FormatError
			if !errors.As(err, &ferr) {
				t.Fatalf("error = %v, want *FormatError", err)
			}
			if ferr.Line != tc.line {
				t.Fatalf("error line = %d, want %d (%v)", ferr.Line, tc.line, ferr)
			}
		})
	}
}

func TestMultiLineValue(t *testing.T) {
	in := "\"k\" = \"first line\nsecond line\";\n"
	f, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := f.Get("k").Value; got != "first line\nsecond line" {
		t.Fatalf("value = %q", got)
	}
	out, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if string(out) != in {
		t.Fatalf("round trip mismatch: %q", string(out))
	}
}

func TestSetValueRerendersOnlyTouchedEntry(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	if !f.SetValue("bye", "Farewell") {
		t.Fatal("SetValue(bye) reported missing key")
	}
	out, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}

	want := strings.Replace(sample, `"bye" = "Goodbye";`, `"bye" = "Farewell";`, 1)
	if string(out) != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestSetValueSameValueStaysVerbatim(t *testing.T) {
	in := "  \"k\"  =  \"v\" ;\n"
	f, err := Parse([]byte(in))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	f.SetValue("k", "v")
	out, _ := f.Bytes()
	if string(out) != in {
		t.Fatalf("unchanged value must keep original spelling, got %q", string(out))
	}
}

func TestAppendAndDelete(t *testing.T) {
	f, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	f.Append("new_key", "new value", "Added later")
	if !f.Has("new_key") {
		t.Fatal("appended key missing")
	}
	out, _ := f.Bytes()
	if !strings.Contains(string(out), "/* Added later */\n\"new_key\" = \"new value\";") {
		t.Fatalf("appended entry not rendered with comment:\n%s", out)
	}

	if !f.Delete("hello") {
		t.Fatal("Delete(hello) reported missing key")
	}
	if f.Has("hello") {
		t.Fatal("hello still present after Delete")
	}
	out, _ = f.Bytes()
	if strings.Contains(string(out), "hello") || strings.Contains(string(out), "Greeting") {
		t.Fatalf("deleted entry or its comment still rendered:\n%s", out)
	}
	if strings.HasPrefix(string(out), "\n") {
		t.Fatalf("dangling blank line after delete:\n%q", string(out))
	}

	if f.Delete("nope") {
		t.Fatal("Delete of absent key must report false")
	}
}

func TestAppendToEmptyFile(t *testing.T) {
	f := New()
	f.Append("first", "value", "")
	out, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if string(out) != "\"first\" = \"value\";\n" {
		t.Fatalf("output = %q", string(out))
	}
}

func TestUTF16RoundTrip(t *testing.T) {
	text := "/* комментарий */\n\"ключ\" = \"значение\";\n"

	for _, tc := range []struct {
		name string
		enc  Encoding
		end  unicode.Endianness
		bom  []byte
	}{
		{name: "little endian", enc: UTF16LE, end: unicode.LittleEndian, bom: []byte{0xFF, 0xFE}},
		{name: "big endian", enc: UTF16BE, end: unicode.BigEndian, bom: []byte{0xFE, 0xFF}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			enc := unicode.UTF16(tc.end, unicode.IgnoreBOM).NewEncoder()
			body, err := enc.Bytes([]byte(text))
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			data := append(append([]byte(nil), tc.bom...), body...)

			f, err := Parse(data)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if f.Encoding != tc.enc {
				t.Fatalf("Encoding = %v, want %v", f.Encoding, tc.enc)
			}
			if !f.BOM {
				t.Fatal("BOM not detected")
			}
			if got := f.Get("ключ").Value; got != "значение" {
				t.Fatalf("value = %q", got)
			}

			out, err := f.Bytes()
			if err != nil {
				t.Fatalf("Bytes error: %v", err)
			}
			if !bytes.Equal(out, data) {
				t.Fatalf("round trip mismatch: %d bytes in, %d bytes out", len(data), len(out))
			}
		})
	}
}

func TestUTF16WithoutBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	data, err := enc.Bytes([]byte("\"ключ\" = \"v\";\n"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if f.Encoding != UTF16LE || f.BOM {
		t.Fatalf("Encoding = %v BOM = %v, want UTF16LE without BOM", f.Encoding, f.BOM)
	}
	out, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("round trip mismatch for BOM-less UTF-16")
	}
}

func TestUTF8BOMPreserved(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("\"k\" = \"v\";\n")...)
	f, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !f.BOM || f.Encoding != UTF8 {
		t.Fatalf("Encoding = %v BOM = %v", f.Encoding, f.BOM)
	}
	out, _ := f.Bytes()
	if !bytes.Equal(out, data) {
		t.Fatal("UTF-8 BOM lost on round trip")
	}
}

func TestParseFileAndWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Localizable.strings")
	if err := os.WriteFile(path, []byte(sample), 0644); err != nil {
		t.Fatal(err)
	}

	f, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile error: %v", err)
	}
	f.SetValue("hello", "Hi!")

	out := filepath.Join(dir, "out.strings")
	if err := f.WriteFile(out); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"hello" = "Hi!";`) {
		t.Fatalf("written file missing updated entry:\n%s", data)
	}
}

func TestParseFileReportsPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.strings")
	if err := os.WriteFile(path, []byte(`"a" = "b"`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := ParseFile(path)
	if err == nil || !strings.Contains(err.Error(), "bad.strings") {
		t.Fatalf("error = %v, want path in message", err)
	}
	var ferr *FormatError
	if !errors.As(err, &ferr) {
		t.Fatalf("error = %v, want wrapped *FormatError", err)
	}
}

func TestEscapeHelper(t *testing.T) {
	if got := Escape("a\"b\\c\nd\te\r"); got != `a\"b\\c\nd\te\r` {
		t.Fatalf("Escape = %q", got)
	}
}
