// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package escape

import (
	"fmt"

	"go4.org/mem"
)

// Replacement tables for the 128 low code points. An empty entry means
// the character passes through unescaped. The tables are populated once
// at init and never modified afterward; HTML-safe output selects the
// second table at the call site.
var stdEsc, htmlEsc [128]string

func init() {
	for i := 0; i <= 0x1f; i++ {
		stdEsc[i] = fmt.Sprintf(`\u%04x`, i)
	}
	stdEsc['\t'] = `\t`
	stdEsc['\b'] = `\b`
	stdEsc['\n'] = `\n`
	stdEsc['\r'] = `\r`
	stdEsc['\f'] = `\f`
	stdEsc['"'] = `\"`
	stdEsc['\\'] = `\\`

	htmlEsc = stdEsc
	htmlEsc['<'] = `\u003c`
	htmlEsc['>'] = `\u003e`
	htmlEsc['&'] = `\u0026`
	htmlEsc['='] = `\u003d`
	htmlEsc['\''] = `\u0027`
}

// Append appends the text of src to dst with escape sequences applied,
// and returns the updated slice. Runs of unescaped characters are copied
// through in a single pass. If htmlSafe is true the characters < > & =
// and ' are escaped as well. If quotes is false, double quotation marks
// pass through unescaped; this is used for comment text, which is not
// enclosed in quotes.
//
// The code points U+2028 and U+2029 are always escaped, independent of
// the table: they are legal in a JSON string, but some downstream
// consumers treat them as line terminators.
func Append(dst []byte, src mem.RO, htmlSafe, quotes bool) []byte {
	table := &stdEsc
	if htmlSafe {
		table = &htmlEsc
	}

	var start, i int
	for i < src.Len() {
		r, n := mem.DecodeRune(src.SliceFrom(i))
		var rep string
		if r < 128 {
			rep = table[r]
			if r == '"' && !quotes {
				rep = ""
			}
		} else if r == '\u2028' {
			rep = `\u2028`
		} else if r == '\u2029' {
			rep = `\u2029`
		}
		if rep == "" {
			i += n
			continue
		}
		dst = mem.Append(dst, src.SliceFrom(start).SliceTo(i-start))
		dst = append(dst, rep...)
		i += n
		start = i
	}
	return mem.Append(dst, src.SliceFrom(start))
}

// Quote encodes src as a quoted JSON string: escape sequences are
// applied and double quotation marks are added.
func Quote(src mem.RO) []byte {
	buf := make([]byte, 0, src.Len()+2)
	buf = append(buf, '"')
	buf = Append(buf, src, false, true)
	return append(buf, '"')
}
