// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstream_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/creachadair/jstream"
	"github.com/google/go-cmp/cmp"
	"github.com/tailscale/hujson"
)

// encodeValue writes v to w. Maps are written in the iteration order of
// their keys, which the decoded comparison does not depend on.
func encodeValue(t *testing.T, w *jstream.Writer, v any) {
	t.Helper()
	var err error
	switch v := v.(type) {
	case nil:
		err = w.Null()
	case bool:
		err = w.Bool(v)
	case float64:
		err = w.Float(v)
	case string:
		err = w.String(v)
	case []any:
		if err := w.BeginArray(); err != nil {
			t.Fatalf("BeginArray failed: %v", err)
		}
		for _, elt := range v {
			encodeValue(t, w, elt)
		}
		err = w.EndArray()
	case map[string]any:
		if err := w.BeginObject(); err != nil {
			t.Fatalf("BeginObject failed: %v", err)
		}
		for name, elt := range v {
			if err := w.Name(name); err != nil {
				t.Fatalf("Name failed: %v", err)
			}
			encodeValue(t, w, elt)
		}
		err = w.EndObject()
	default:
		t.Fatalf("Unsupported value %T", v)
	}
	if err != nil {
		t.Fatalf("Encode %v failed: %v", v, err)
	}
}

// decodeValue reads the next value from r as a generic tree, in the
// shape encoding/json uses for unmarshaling into any.
func decodeValue(t *testing.T, r *jstream.Reader) any {
	t.Helper()
	kind, err := r.Peek()
	if err != nil {
		t.Fatalf("Peek failed: %v", err)
	}
	switch kind {
	case jstream.KindNull:
		if err := r.Null(); err != nil {
			t.Fatalf("Null failed: %v", err)
		}
		return nil
	case jstream.KindBool:
		v, err := r.Bool()
		if err != nil {
			t.Fatalf("Bool failed: %v", err)
		}
		return v
	case jstream.KindNumber:
		v, err := r.Float()
		if err != nil {
			t.Fatalf("Float failed: %v", err)
		}
		return v
	case jstream.KindString:
		v, err := r.String()
		if err != nil {
			t.Fatalf("String failed: %v", err)
		}
		return v
	case jstream.KindBeginArray:
		r.BeginArray()
		var out []any
		for {
			if ok, err := r.More(); err != nil {
				t.Fatalf("More failed: %v", err)
			} else if !ok {
				break
			}
			out = append(out, decodeValue(t, r))
		}
		if err := r.EndArray(); err != nil {
			t.Fatalf("EndArray failed: %v", err)
		}
		return out
	case jstream.KindBeginObject:
		r.BeginObject()
		out := make(map[string]any)
		for {
			if ok, err := r.More(); err != nil {
				t.Fatalf("More failed: %v", err)
			} else if !ok {
				break
			}
			name, err := r.Name()
			if err != nil {
				t.Fatalf("Name failed: %v", err)
			}
			out[name] = decodeValue(t, r)
		}
		if err := r.EndObject(); err != nil {
			t.Fatalf("EndObject failed: %v", err)
		}
		return out
	}
	t.Fatalf("Unexpected kind %v", kind)
	return nil
}

var testTree = map[string]any{
	"name":     "mixed nuts",
	"size":     float64(25),
	"fraction": 0.25,
	"exact":    true,
	"missing":  nil,
	"tags":     []any{"a", "b\tc", `d "e"`},
	"nested": map[string]any{
		"empty list": []any{},
		"empty obj":  map[string]any{},
		"deep":       []any{float64(1), []any{float64(2), []any{float64(3)}}},
	},
	"odd key \n": "kept",
}

func TestRoundTrip(t *testing.T) {
	configs := []struct {
		name  string
		wnew  func(w *strings.Builder) *jstream.Writer
		rnew  func(s string) *jstream.Reader
		setup func(*jstream.Writer)
	}{
		{"JSON5", func(w *strings.Builder) *jstream.Writer { return jstream.NewWriter(w) },
			func(s string) *jstream.Reader { return jstream.NewReader(strings.NewReader(s)) }, nil},
		{"JSON5Compact", func(w *strings.Builder) *jstream.Writer { return jstream.NewWriter(w) },
			func(s string) *jstream.Reader { return jstream.NewReader(strings.NewReader(s)) },
			func(w *jstream.Writer) { w.SetCompact() }},
		{"Strict", func(w *strings.Builder) *jstream.Writer { return jstream.NewStrictWriter(w) },
			func(s string) *jstream.Reader { return jstream.NewStrictReader(strings.NewReader(s)) }, nil},
		{"StrictCompact", func(w *strings.Builder) *jstream.Writer { return jstream.NewStrictWriter(w) },
			func(s string) *jstream.Reader { return jstream.NewStrictReader(strings.NewReader(s)) },
			func(w *jstream.Writer) { w.SetCompact() }},
	}
	for _, cfg := range configs {
		t.Run(cfg.name, func(t *testing.T) {
			var sb strings.Builder
			w := cfg.wnew(&sb)
			if cfg.setup != nil {
				cfg.setup(w)
			}
			encodeValue(t, w, testTree)
			if err := w.Flush(); err != nil {
				t.Fatalf("Flush failed: %v", err)
			}

			r := cfg.rnew(sb.String())
			got := decodeValue(t, r)
			if err := r.Close(); err != nil {
				t.Errorf("Close: got %v, want nil", err)
			}
			if diff := cmp.Diff(testTree, got); diff != "" {
				t.Errorf("Document: %s\nDecoded: (-want, +got)\n%s", sb.String(), diff)
			}
		})
	}
}

// Strict output must be accepted verbatim by encoding/json.
func TestStrictOutputIsJSON(t *testing.T) {
	var sb strings.Builder
	w := jstream.NewStrictWriter(&sb)
	encodeValue(t, w, testTree)
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	var got any
	if err := json.Unmarshal([]byte(sb.String()), &got); err != nil {
		t.Fatalf("Unmarshal failed: %v\nDocument: %s", err, sb.String())
	}
	if diff := cmp.Diff(testTree, got); diff != "" {
		t.Errorf("Decoded: (-want, +got)\n%s", diff)
	}
}

// Output restricted to quoted names and comments is valid JWCC, which
// hujson can standardize back to plain JSON.
func TestCommentedOutputIsJWCC(t *testing.T) {
	var sb strings.Builder
	w := jstream.NewWriter(&sb)
	w.Comment("header comment")
	w.BeginObject()
	w.Comment("member comment")
	w.Name("a-b") // not identifier-shaped, stays quoted
	w.Int(1)
	w.Name("two words")
	w.BeginArray()
	w.Comment("element comment")
	w.String("x")
	w.EndArray()
	w.EndObject()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	std, err := hujson.Standardize([]byte(sb.String()))
	if err != nil {
		t.Fatalf("Standardize failed: %v\nDocument: %s", err, sb.String())
	}
	var got any
	if err := json.Unmarshal(std, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	want := map[string]any{
		"a-b":       float64(1),
		"two words": []any{"x"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Document: %s\nDecoded: (-want, +got)\n%s", sb.String(), diff)
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	var inputs []string
	for b := byte(0); b <= 0x1f; b++ {
		inputs = append(inputs, "a"+string(rune(b))+"z")
	}
	inputs = append(inputs,
		`"`, `\`, `\\"`, "'",
		" ", " ", "�",
		"plain text", "mixed \t tabs \n and ünïcode",
	)
	for _, input := range inputs {
		q := jstream.Quote(input)
		got, err := jstream.Unquote(q)
		if err != nil {
			t.Errorf("Unquote(%#q) failed: %v", q, err)
		} else if string(got) != input {
			t.Errorf("Round trip: got %#q, want %#q (quoted %#q)", got, input, q)
		}
	}
}
