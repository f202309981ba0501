// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstream

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// A Kind describes the type of the next structural element available
// from a Reader.
type Kind byte

const (
	noKind Kind = iota

	KindBeginObject // the opening brace of an object
	KindEndObject   // the closing brace of an object
	KindBeginArray  // the opening bracket of an array
	KindEndArray    // the closing bracket of an array
	KindName        // an object member name
	KindString      // a string value
	KindNumber      // a numeric value
	KindBool        // a true or false value
	KindNull        // a null value
	KindEOF         // the end of the input
)

var kindStr = [...]string{
	noKind:          "invalid",
	KindBeginObject: "begin object",
	KindEndObject:   "end object",
	KindBeginArray:  "begin array",
	KindEndArray:    "end array",
	KindName:        "name",
	KindString:      "string",
	KindNumber:      "number",
	KindBool:        "boolean",
	KindNull:        "null",
	KindEOF:         "end of input",
}

func (k Kind) String() string {
	if int(k) < len(kindStr) {
		return kindStr[k]
	}
	return fmt.Sprintf("kind(%d)", byte(k))
}

// A Reader consumes a JSON5, JSONC, or strict JSON document from a
// stream, one structural element at a time. Use Peek to discover the
// kind of the next element, then call the method of the matching kind to
// consume it. Calling a method whose kind does not match the next
// element reports ErrTypeMismatch and does not consume anything.
//
// A Reader is not safe for concurrent use.
type Reader struct {
	sc     *Scanner
	strict bool

	stack  scopeStack
	closed bool
	cerr   error // result of the first Close

	// The lookahead element, valid while kind != noKind.
	kind Kind
	tok  Token
	text []byte
	tloc Location

	err error // sticky
}

// NewReader constructs a reader that consumes a JSON5 document from r.
// Comments and the other JSON5 extensions are accepted.
func NewReader(r io.Reader) *Reader {
	sc := NewScanner(r)
	sc.AllowComments(true)
	sc.AllowJSON5(true)
	rd := &Reader{sc: sc}
	rd.stack.push(emptyDocument)
	return rd
}

// NewStrictReader constructs a reader that consumes a strict (RFC 8259)
// JSON document from r. Comments and JSON5 syntax extensions report
// ErrStrictMode.
func NewStrictReader(r io.Reader) *Reader {
	sc := NewScanner(r)
	rd := &Reader{sc: sc, strict: true}
	rd.stack.push(emptyDocument)
	return rd
}

// Strict reports whether r consumes strict JSON rather than JSON5.
func (r *Reader) Strict() bool { return r.strict }

// Peek reports the kind of the next element of the document without
// consuming it. At the end of input after a complete document, Peek
// reports KindEOF. Once Peek reports an error, all subsequent calls
// report the same error.
func (r *Reader) Peek() (Kind, error) {
	if r.err != nil {
		return noKind, r.err
	}
	if r.kind != noKind {
		return r.kind, nil
	}
	kind, err := r.peekNext()
	if err != nil {
		r.err = err
		return noKind, err
	}
	r.kind = kind
	return kind, nil
}

// peekNext advances the scanner to the next structural element and
// classifies it against the current scope.
func (r *Reader) peekNext() (Kind, error) {
	top, err := r.stack.peek()
	if err != nil {
		return noKind, err
	}
	tok, ok, err := r.nextToken()
	if err != nil {
		return noKind, err
	}

	switch top {
	case emptyDocument:
		if !ok {
			return noKind, ErrIncompleteDocument
		}
		r.stack.replaceTop(nonemptyDocument)
		return r.valueKind(tok)

	case nonemptyDocument:
		if !ok {
			return KindEOF, nil
		}
		return noKind, r.syntaxError(fmt.Errorf("%w: multiple top-level values", ErrNesting))

	case emptyArray:
		if !ok {
			return noKind, ErrIncompleteDocument
		}
		if tok == RSquare {
			return KindEndArray, nil
		}
		r.stack.replaceTop(nonemptyArray)
		return r.valueKind(tok)

	case nonemptyArray:
		if !ok {
			return noKind, ErrIncompleteDocument
		}
		if tok == RSquare {
			return KindEndArray, nil
		}
		if tok != Comma {
			return noKind, r.syntaxError(fmt.Errorf("%w: got %v, want , or ]", ErrMalformedLiteral, tok))
		}
		tok, ok, err = r.nextToken()
		if err != nil {
			return noKind, err
		} else if !ok {
			return noKind, ErrIncompleteDocument
		}
		if tok == RSquare { // trailing comma
			if r.strict {
				return noKind, r.syntaxError(fmt.Errorf("%w: trailing comma", ErrStrictMode))
			}
			return KindEndArray, nil
		}
		return r.valueKind(tok)

	case emptyObject:
		if !ok {
			return noKind, ErrIncompleteDocument
		}
		if tok == RBrace {
			return KindEndObject, nil
		}
		return r.nameKind(tok)

	case nonemptyObject:
		if !ok {
			return noKind, ErrIncompleteDocument
		}
		if tok == RBrace {
			return KindEndObject, nil
		}
		if tok != Comma {
			return noKind, r.syntaxError(fmt.Errorf("%w: got %v, want , or }", ErrMalformedLiteral, tok))
		}
		tok, ok, err = r.nextToken()
		if err != nil {
			return noKind, err
		} else if !ok {
			return noKind, ErrIncompleteDocument
		}
		if tok == RBrace { // trailing comma
			if r.strict {
				return noKind, r.syntaxError(fmt.Errorf("%w: trailing comma", ErrStrictMode))
			}
			return KindEndObject, nil
		}
		return r.nameKind(tok)

	case danglingName:
		if !ok {
			return noKind, ErrIncompleteDocument
		}
		if tok != Colon {
			return noKind, r.syntaxError(fmt.Errorf("%w: got %v, want :", ErrMalformedLiteral, tok))
		}
		tok, ok, err = r.nextToken()
		if err != nil {
			return noKind, err
		} else if !ok {
			return noKind, ErrIncompleteDocument
		}
		return r.valueKind(tok)

	default:
		return noKind, fmt.Errorf("invalid scope %v", top)
	}
}

// nextToken fetches the next non-comment token from the scanner. It
// reports ok false without error at the end of input. In strict mode the
// scanner itself rejects comments, so none arrive here.
func (r *Reader) nextToken() (Token, bool, error) {
	for r.sc.Next() {
		tok := r.sc.Token()
		if tok == LineComment || tok == BlockComment {
			continue
		}
		r.tok = tok
		r.text = append(r.text[:0], r.sc.Text()...)
		r.tloc = r.sc.Location()
		return tok, true, nil
	}
	if err := r.sc.Err(); err != nil {
		return Invalid, false, r.wrapScanError(err)
	}
	return Invalid, false, nil
}

// valueKind classifies tok as a value in the current scope. After a
// member name's colon, the danglingName scope is restored to
// nonemptyObject.
func (r *Reader) valueKind(tok Token) (Kind, error) {
	if top, _ := r.stack.peek(); top == danglingName {
		r.stack.replaceTop(nonemptyObject)
	}
	switch tok {
	case LBrace:
		return KindBeginObject, nil
	case LSquare:
		return KindBeginArray, nil
	case String:
		return KindString, nil
	case Integer, Number:
		return KindNumber, nil
	case True, False:
		return KindBool, nil
	case Null:
		return KindNull, nil
	case Word:
		return noKind, r.syntaxError(fmt.Errorf("%w: unknown literal %q", ErrMalformedLiteral, r.text))
	}
	return noKind, r.syntaxError(fmt.Errorf("%w: got %v, want a value", ErrMalformedLiteral, tok))
}

// nameKind classifies tok as an object member name. A bare identifier is
// permitted as a name outside of strict mode.
func (r *Reader) nameKind(tok Token) (Kind, error) {
	switch tok {
	case String:
		return KindName, nil
	case Word, True, False, Null:
		if r.strict {
			return noKind, r.syntaxError(fmt.Errorf("%w: unquoted name %q", ErrStrictMode, r.text))
		}
		return KindName, nil
	case Integer, Number:
		if !r.strict && isBareName(string(r.text)) {
			return KindName, nil
		}
	}
	return noKind, r.syntaxError(fmt.Errorf("%w: got %v, want a name", ErrMalformedLiteral, tok))
}

// advance consumes the lookahead element.
func (r *Reader) advance() { r.kind = noKind }

// expect peeks the next element and consumes it if its kind is want;
// otherwise it reports ErrTypeMismatch and consumes nothing.
func (r *Reader) expect(want Kind) error {
	kind, err := r.Peek()
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("%w: got %v, want %v", ErrTypeMismatch, kind, want)
	}
	r.advance()
	return nil
}

// BeginObject consumes the opening brace of an object.
func (r *Reader) BeginObject() error {
	if err := r.expect(KindBeginObject); err != nil {
		return err
	}
	r.stack.push(emptyObject)
	return nil
}

// EndObject consumes the closing brace of an object.
func (r *Reader) EndObject() error {
	if err := r.expect(KindEndObject); err != nil {
		return err
	}
	r.stack.pop()
	return nil
}

// BeginArray consumes the opening bracket of an array.
func (r *Reader) BeginArray() error {
	if err := r.expect(KindBeginArray); err != nil {
		return err
	}
	r.stack.push(emptyArray)
	return nil
}

// EndArray consumes the closing bracket of an array.
func (r *Reader) EndArray() error {
	if err := r.expect(KindEndArray); err != nil {
		return err
	}
	r.stack.pop()
	return nil
}

// More reports whether the object or array being read has another
// element, and whether an error occurred in checking.
func (r *Reader) More() (bool, error) {
	kind, err := r.Peek()
	if err != nil {
		return false, err
	}
	return kind != KindEndObject && kind != KindEndArray && kind != KindEOF, nil
}

// Name consumes and returns the next object member name, decoded.
func (r *Reader) Name() (string, error) {
	if err := r.expect(KindName); err != nil {
		return "", err
	}
	r.stack.replaceTop(danglingName)
	if r.tok == String {
		dec, err := Unquote(string(r.text))
		if err != nil {
			return "", r.syntaxError(fmt.Errorf("%w: %v", ErrMalformedLiteral, err))
		}
		return string(dec), nil
	}
	return string(r.text), nil
}

// String consumes and returns the next string value, decoded.
func (r *Reader) String() (string, error) {
	if err := r.expect(KindString); err != nil {
		return "", err
	}
	dec, err := Unquote(string(r.text))
	if err != nil {
		return "", r.syntaxError(fmt.Errorf("%w: %v", ErrMalformedLiteral, err))
	}
	return string(dec), nil
}

// Bool consumes and returns the next true or false value.
func (r *Reader) Bool() (bool, error) {
	if err := r.expect(KindBool); err != nil {
		return false, err
	}
	return r.tok == True, nil
}

// Int consumes the next numeric value and returns it as an int64. A
// value with a fractional or exponent part, or out of range for int64,
// reports an error without consuming the value.
func (r *Reader) Int() (int64, error) {
	kind, err := r.Peek()
	if err != nil {
		return 0, err
	}
	if kind != KindNumber || r.tok != Integer {
		return 0, fmt.Errorf("%w: got %v, want integer", ErrTypeMismatch, kind)
	}
	v, err := parseInt(string(r.text))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
	}
	r.advance()
	return v, nil
}

// Float consumes the next numeric value and returns it as a float64.
// Any numeric literal the grammar accepts can be read as a float,
// including hexadecimal and the non-finite JSON5 literals.
func (r *Reader) Float() (float64, error) {
	if err := r.expect(KindNumber); err != nil {
		return 0, err
	}
	v, err := parseFloat(string(r.text))
	if err != nil {
		return 0, r.syntaxError(fmt.Errorf("%w: %v", ErrMalformedLiteral, err))
	}
	return v, nil
}

// Number consumes the next numeric value and returns its literal text
// unparsed.
func (r *Reader) Number() (string, error) {
	if err := r.expect(KindNumber); err != nil {
		return "", err
	}
	return string(r.text), nil
}

// Null consumes the next null value.
func (r *Reader) Null() error { return r.expect(KindNull) }

// SkipValue consumes and discards the next value, including all the
// elements of a nested object or array. If the next element is a member
// name, the name and its value are both skipped.
func (r *Reader) SkipValue() error {
	kind, err := r.Peek()
	if err != nil {
		return err
	}
	if kind == KindName {
		if _, err := r.Name(); err != nil {
			return err
		}
		kind, err = r.Peek()
		if err != nil {
			return err
		}
	}

	switch kind {
	case KindBeginObject, KindBeginArray:
	case KindEndObject, KindEndArray, KindEOF:
		return fmt.Errorf("%w: got %v, want a value", ErrTypeMismatch, kind)
	default:
		r.advance()
		return nil
	}

	// Discard tokens until the bracket that opened here is matched.
	base := r.stack.depth()
	for {
		kind, err := r.Peek()
		if err != nil {
			return err
		}
		switch kind {
		case KindBeginObject:
			r.stack.push(emptyObject)
		case KindBeginArray:
			r.stack.push(emptyArray)
		case KindEndObject, KindEndArray:
			r.stack.pop()
		case KindName:
			r.advance()
			if _, err := r.stack.peek(); err == nil {
				r.stack.replaceTop(danglingName)
			}
			continue
		case KindEOF:
			return ErrIncompleteDocument
		}
		r.advance()
		if r.stack.depth() == base {
			return nil
		}
	}
}

// Location reports the location of the most recently consumed or peeked
// element in the input.
func (r *Reader) Location() Location { return r.tloc }

// Close releases the reader. It reports ErrIncompleteDocument if the
// input did not contain one complete top-level value. After Close, all
// read operations report ErrClosed, and further calls to Close repeat
// the result of the first. Close does not drain or verify input
// remaining after the last element read.
func (r *Reader) Close() error {
	if r.closed {
		return r.cerr
	}
	r.closed = true

	depth := r.stack.depth()
	top, _ := r.stack.peek()
	r.stack.clear()
	r.kind = noKind
	r.err = ErrClosed
	if depth > 1 || top != nonemptyDocument {
		r.cerr = ErrIncompleteDocument
	}
	return r.cerr
}

// syntaxError wraps err with the location of the current token.
func (r *Reader) syntaxError(err error) error {
	return &SyntaxError{Location: r.tloc.First, Message: err.Error(), err: err}
}

// wrapScanError converts a scanner failure into a SyntaxError carrying
// the failure position. Input that ends inside a token is a malformed
// literal, not an incomplete document: ErrIncompleteDocument is reserved
// for input that ends cleanly between tokens.
func (r *Reader) wrapScanError(err error) error {
	var pe posError
	if errors.As(err, &pe) {
		kerr := pe.err
		if !errors.Is(kerr, ErrStrictMode) {
			kerr = fmt.Errorf("%w: %v", ErrMalformedLiteral, pe.err)
		}
		return &SyntaxError{Location: r.sc.Location().Last, Message: pe.err.Error(), err: kerr}
	}
	return err
}

// parseInt parses an integer literal, including hexadecimal and an
// explicit leading sign. The base is chosen by the 0x prefix alone, so
// base-0 conventions such as octal leading zeroes never apply.
func parseInt(text string) (int64, error) {
	t := strings.TrimPrefix(text, "+")
	if mag := strings.TrimPrefix(t, "-"); strings.HasPrefix(mag, "0x") || strings.HasPrefix(mag, "0X") {
		return strconv.ParseInt(t, 0, 64)
	}
	return strconv.ParseInt(t, 10, 64)
}

// parseFloat parses any numeric literal of the JSON5 grammar, including
// hexadecimal integers and the non-finite literals.
func parseFloat(text string) (float64, error) {
	t := strings.TrimPrefix(text, "+")
	mag := strings.TrimPrefix(t, "-")
	switch mag {
	case "NaN":
		return math.NaN(), nil
	case "Infinity":
		if len(mag) != len(t) {
			return math.Inf(-1), nil
		}
		return math.Inf(1), nil
	}
	if strings.HasPrefix(mag, "0x") || strings.HasPrefix(mag, "0X") {
		// ParseFloat requires a binary exponent on hexadecimal input, so
		// route plain hex integers through ParseInt.
		v, err := strconv.ParseInt(t, 0, 64)
		if err != nil {
			return 0, err
		}
		return float64(v), nil
	}
	return strconv.ParseFloat(t, 64)
}
