// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstream

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/creachadair/jstream/internal/escape"

	"go4.org/mem"
)

// A Writer emits a JSON5, JSONC, or strict JSON document to a stream,
// one token at a time. The document must contain exactly one top-level
// value. To write nested structure, pair calls to BeginObject and
// BeginArray with EndObject and EndArray; inside an object, alternate
// calls to Name with calls that produce the member's value.
//
// Output is buffered; call Flush or Close to ensure it reaches the
// underlying stream. A Writer owns its output stream for the duration of
// its lifetime, and is not safe for concurrent use.
type Writer struct {
	w   *bufio.Writer
	out io.Writer // the original sink, closed by Close if it is an io.Closer

	stack  scopeStack
	strict bool
	closed bool
	cerr   error // result of the first Close

	indent    string // whitespace per nesting level; empty means compact
	separator string // name/value separator, ":" or ": "

	htmlSafe       bool
	serializeNulls bool

	// At most one member name may be pending at a time. It is retained
	// until the member's value is known, because the value determines
	// whether the member is written at all (see Null).
	name    string
	hasName bool

	// Comment text pending attachment to the next token, accumulated
	// newline-joined across calls to Comment.
	comment    string
	hasComment bool

	scratch []byte
}

// NewWriter constructs a writer that emits a JSON5-encoded document to w.
func NewWriter(w io.Writer) *Writer {
	wr := &Writer{
		w:              bufio.NewWriter(w),
		out:            w,
		indent:         "\t",
		separator:      ": ",
		serializeNulls: true,
	}
	wr.stack.push(emptyDocument)
	return wr
}

// NewStrictWriter constructs a writer that emits a strict (RFC 8259)
// JSON document to w. In strict mode comments are discarded, member
// names are always quoted, and non-finite numbers report
// ErrNonFiniteNumber.
func NewStrictWriter(w io.Writer) *Writer {
	wr := NewWriter(w)
	wr.strict = true
	return wr
}

// Strict reports whether w emits strict JSON rather than JSON5.
func (w *Writer) Strict() bool { return w.strict }

// SetIndent sets the whitespace string repeated once per level of
// nesting in the output. Setting an empty indent makes the output
// compact, with no whitespace at all and ":" as the name separator.
// SetIndent panics if indent contains anything but whitespace.
func (w *Writer) SetIndent(indent string) {
	if strings.TrimSpace(indent) != "" {
		panic("indent must contain only whitespace")
	}
	if indent == "" {
		w.indent, w.separator = "", ":"
	} else {
		w.indent, w.separator = indent, ": "
	}
}

// Indent reports the current indentation string. An empty indent means
// the output is compact.
func (w *Writer) Indent() string { return w.indent }

// SetCompact is shorthand for SetIndent("").
func (w *Writer) SetCompact() { w.SetIndent("") }

// Compact reports whether the output is entirely one line, with no
// whitespace or comments.
func (w *Writer) Compact() bool { return w.indent == "" }

// SetHTMLSafe configures whether the output is safe for direct inclusion
// in HTML and XML documents, additionally escaping the characters < > &
// = and ' in strings and comments.
func (w *Writer) SetHTMLSafe(ok bool) { w.htmlSafe = ok }

// HTMLSafe reports whether HTML-safe escaping is in effect.
func (w *Writer) HTMLSafe() bool { return w.htmlSafe }

// SetSerializeNulls configures whether object members with a null value
// are written. When disabled, writing a null value for a pending member
// name discards the whole member. This has no effect on array elements.
// The default is true.
func (w *Writer) SetSerializeNulls(ok bool) { w.serializeNulls = ok }

// SerializeNulls reports whether null-valued object members are written.
func (w *Writer) SerializeNulls() bool { return w.serializeNulls }

// BeginObject opens a new object. Each call to BeginObject must be
// paired with a call to EndObject.
func (w *Writer) BeginObject() error {
	if err := w.writeName(); err != nil {
		return err
	}
	return w.openScope(emptyObject, '{')
}

// EndObject closes the most recently opened object.
func (w *Writer) EndObject() error {
	return w.closeScope(emptyObject, nonemptyObject, '}')
}

// BeginArray opens a new array. Each call to BeginArray must be paired
// with a call to EndArray.
func (w *Writer) BeginArray() error {
	if err := w.writeName(); err != nil {
		return err
	}
	return w.openScope(emptyArray, '[')
}

// EndArray closes the most recently opened array.
func (w *Writer) EndArray() error {
	return w.closeScope(emptyArray, nonemptyArray, ']')
}

// Name sets the name of the next object member. The name is not written
// until the member's value is known. It is an error to set a second name
// while one is already pending.
func (w *Writer) Name(name string) error {
	if _, err := w.stack.peek(); err != nil {
		return err
	}
	if w.hasName {
		return fmt.Errorf("%w: %q is already pending", ErrDanglingName, w.name)
	}
	w.name, w.hasName = name, true
	return nil
}

// String writes a quoted, escaped string value.
func (w *Writer) String(s string) error {
	if err := w.writeName(); err != nil {
		return err
	}
	if err := w.beforeValue(); err != nil {
		return err
	}
	return w.writeString(s, true, true)
}

// Bool writes the literal true or false.
func (w *Writer) Bool(v bool) error {
	if err := w.writeName(); err != nil {
		return err
	}
	if err := w.beforeValue(); err != nil {
		return err
	}
	if v {
		return w.emit("true")
	}
	return w.emit("false")
}

// Int writes a signed integer value.
func (w *Writer) Int(v int64) error {
	if err := w.writeName(); err != nil {
		return err
	}
	if err := w.beforeValue(); err != nil {
		return err
	}
	return w.emit(strconv.FormatInt(v, 10))
}

// Float writes a floating-point value. In strict mode a NaN or infinite
// value reports ErrNonFiniteNumber; otherwise such values are written as
// the JSON5 literals NaN, Infinity, and -Infinity.
func (w *Writer) Float(v float64) error {
	if w.strict && (math.IsNaN(v) || math.IsInf(v, 0)) {
		return fmt.Errorf("%w: %v", ErrNonFiniteNumber, v)
	}
	if err := w.writeName(); err != nil {
		return err
	}
	if err := w.beforeValue(); err != nil {
		return err
	}
	return w.emit(formatFloat(v))
}

// Number writes a numeric literal verbatim. The caller is responsible
// for the conformance of the literal to the numeric grammar in effect.
// In strict mode the literals NaN, Infinity, and -Infinity report
// ErrNonFiniteNumber.
func (w *Writer) Number(lit string) error {
	if w.strict && (lit == "NaN" || lit == "Infinity" || lit == "-Infinity") {
		return fmt.Errorf("%w: %s", ErrNonFiniteNumber, lit)
	}
	if err := w.writeName(); err != nil {
		return err
	}
	if err := w.beforeValue(); err != nil {
		return err
	}
	return w.emit(lit)
}

// Null writes a null value. If a member name is pending and
// SetSerializeNulls(false) is in effect, the name and the value are both
// discarded and the member is omitted from the object.
func (w *Writer) Null() error {
	if w.hasName {
		if _, err := w.stack.peek(); err != nil {
			return err
		}
		if !w.serializeNulls {
			w.name, w.hasName = "", false
			return nil
		}
	}
	if err := w.writeName(); err != nil {
		return err
	}
	if err := w.beforeValue(); err != nil {
		return err
	}
	return w.emit("null")
}

// Raw writes a pre-encoded JSON fragment verbatim, with no quoting or
// escaping applied. The usual separators and indentation still precede
// the fragment.
func (w *Writer) Raw(json string) error {
	if err := w.writeName(); err != nil {
		return err
	}
	if err := w.beforeValue(); err != nil {
		return err
	}
	return w.emit(json)
}

// Comment attaches a line comment to the next token. Successive calls
// before that token accumulate, one comment line per call, and the
// accumulated text is written immediately before the token at its
// indentation depth. Comments are silently discarded in strict mode, in
// compact mode, and when text is empty.
func (w *Writer) Comment(text string) error {
	if w.Compact() || w.strict || text == "" {
		return nil
	}
	top, err := w.stack.peek()
	if err != nil {
		return err
	}
	if w.hasComment {
		w.comment += "\n" + text
	} else {
		w.comment, w.hasComment = text, true
	}

	// At the top level after the document value there is no further token
	// to attach to, so flush aggressively.
	if w.stack.depth() == 1 && top == nonemptyDocument {
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
		return w.writeComment()
	}
	return nil
}

// BlockComment attaches a comment to the next token. Emission in
// /* ... */ form is not implemented; the text is written as a line
// comment.
func (w *Writer) BlockComment(text string) error {
	// TODO(creachadair): Emit block form once the grammar work settles.
	return w.Comment(text)
}

// Flush writes any buffered output to the underlying stream.
func (w *Writer) Flush() error {
	if _, err := w.stack.peek(); err != nil {
		return err
	}
	return w.w.Flush()
}

// Close flushes the writer and closes the underlying stream if it
// implements io.Closer. It reports ErrIncompleteDocument if the document
// does not consist of exactly one complete top-level value. Further
// calls to Close repeat the result of the first.
func (w *Writer) Close() error {
	if w.closed {
		return w.cerr
	}
	w.closed = true

	ferr := w.w.Flush()
	var cerr error
	if c, ok := w.out.(io.Closer); ok {
		cerr = c.Close()
	}
	depth := w.stack.depth()
	top, _ := w.stack.peek()
	w.stack.clear()

	if ferr != nil {
		w.cerr = ferr
	} else if cerr != nil {
		w.cerr = cerr
	} else if depth > 1 || top != nonemptyDocument {
		w.cerr = ErrIncompleteDocument
	}
	return w.cerr
}

// openScope enters a new scope by appending any necessary whitespace and
// the given open bracket.
func (w *Writer) openScope(sc scope, bracket byte) error {
	if err := w.beforeValue(); err != nil {
		return err
	}
	w.stack.push(sc)
	return w.w.WriteByte(bracket)
}

// closeScope closes the current scope by appending any necessary
// whitespace and the given close bracket.
func (w *Writer) closeScope(empty, nonempty scope, bracket byte) error {
	top, err := w.stack.peek()
	if err != nil {
		return err
	}
	if top != empty && top != nonempty {
		return fmt.Errorf("%w: unmatched %q", ErrNesting, bracket)
	}
	if w.hasName {
		return fmt.Errorf("%w: %q has no value", ErrDanglingName, w.name)
	}

	w.stack.pop()
	if top == nonempty {
		if err := w.commentAndNewline(); err != nil {
			return err
		}
	}
	return w.w.WriteByte(bracket)
}

// writeName flushes the pending member name, if one is set. The name is
// left unquoted when the grammar permits a bare key with this shape.
func (w *Writer) writeName() error {
	if !w.hasName {
		return nil
	}
	if err := w.beforeName(); err != nil {
		return err
	}
	quoted := w.strict || !isBareName(w.name)
	err := w.writeString(w.name, quoted, true)
	w.name, w.hasName = "", false
	return err
}

// isBareName reports whether name may be written without quotes in JSON5
// output. The rule matches the scanner's bare identifier rule, so every
// unquoted name the writer emits is one the reader will accept.
func isBareName(name string) bool {
	for i, r := range name {
		if i == 0 {
			if !isIdentStart(r) {
				return false
			}
		} else if !isIdentPart(r) {
			return false
		}
	}
	return name != ""
}

// beforeName inserts any necessary separators and whitespace before a
// member name, and adjusts the scope to expect the name's value.
func (w *Writer) beforeName() error {
	top, err := w.stack.peek()
	if err != nil {
		return err
	}
	switch top {
	case nonemptyObject: // subsequent member of the object
		if err := w.w.WriteByte(','); err != nil {
			return err
		}
	case emptyObject: // first member, no separator
	default:
		return fmt.Errorf("%w: name not expected here", ErrNesting)
	}
	if err := w.commentAndNewline(); err != nil {
		return err
	}
	w.stack.replaceTop(danglingName)
	return nil
}

// beforeValue inserts any necessary comments, separators, and whitespace
// before a literal value or the opening bracket of a nested structure,
// and adjusts the scope to expect what follows the value.
func (w *Writer) beforeValue() error {
	top, err := w.stack.peek()
	if err != nil {
		return err
	}
	switch top {
	case emptyDocument: // first in document
		if err := w.writeComment(); err != nil {
			return err
		}
		w.stack.replaceTop(nonemptyDocument)
		return nil

	case nonemptyDocument:
		return fmt.Errorf("%w: multiple top-level values", ErrNesting)

	case emptyArray: // first element in array
		w.stack.replaceTop(nonemptyArray)
		return w.commentAndNewline()

	case nonemptyArray: // subsequent element in array
		if err := w.w.WriteByte(','); err != nil {
			return err
		}
		return w.commentAndNewline()

	case danglingName: // value for a member name
		w.stack.replaceTop(nonemptyObject)
		return w.emit(w.separator)

	default:
		return fmt.Errorf("%w: value not expected here", ErrNesting)
	}
}

// commentAndNewline writes a line break, any deferred comment, and
// indentation for the current depth. It is a no-op in compact mode.
func (w *Writer) commentAndNewline() error {
	if w.Compact() {
		return nil
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.writeComment(); err != nil {
		return err
	}
	return w.writeIndent()
}

func (w *Writer) writeIndent() error {
	for i := 1; i < w.stack.depth(); i++ {
		if err := w.emit(w.indent); err != nil {
			return err
		}
	}
	return nil
}

// writeComment flushes the deferred comment, one "//" line per comment
// line, each indented to the current depth and terminated by a newline.
func (w *Writer) writeComment() error {
	if !w.hasComment {
		return nil
	}
	for _, line := range strings.Split(w.comment, "\n") {
		if err := w.writeIndent(); err != nil {
			return err
		}
		if err := w.emit("// "); err != nil {
			return err
		}
		if err := w.writeString(line, false, false); err != nil {
			return err
		}
		if err := w.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	w.comment, w.hasComment = "", false
	return nil
}

// writeString writes s with escaping applied, enclosed in double
// quotation marks if quoted is true. If quoteEsc is false, double
// quotation marks in s are left unescaped; this is used for comment
// text, which is written outside of quotes.
func (w *Writer) writeString(s string, quoted, quoteEsc bool) error {
	buf := w.scratch[:0]
	if quoted {
		buf = append(buf, '"')
	}
	buf = escape.Append(buf, mem.S(s), w.htmlSafe, quoteEsc)
	if quoted {
		buf = append(buf, '"')
	}
	w.scratch = buf
	_, err := w.w.Write(buf)
	return err
}

func (w *Writer) emit(s string) error {
	_, err := w.w.WriteString(s)
	return err
}

// formatFloat renders v using the shortest decimal representation that
// parses back exactly, with the non-finite values spelled as their JSON5
// literals.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
