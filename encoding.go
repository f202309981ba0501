// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstream

import (
	"errors"

	"github.com/creachadair/jstream/internal/escape"

	"go4.org/mem"
)

// Quote encodes src as a JSON string value. The contents are escaped and
// double quotation marks are added.
func Quote(src string) string { return string(escape.Quote(mem.S(src))) }

// Unquote decodes a JSON or JSON5 string value. The enclosing quotation
// marks, which may be single or double, are removed, and escape
// sequences are replaced with their unescaped equivalents.
//
// Invalid escapes are replaced by the Unicode replacement rune. Unquote
// reports an error for an incomplete escape sequence.
func Unquote(src string) ([]byte, error) {
	if len(src) < 2 || src[0] != src[len(src)-1] || (src[0] != '"' && src[0] != '\'') {
		return nil, errors.New("missing quotations")
	}
	return escape.Unquote(mem.S(src[1 : len(src)-1]))
}
