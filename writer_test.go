// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstream_test

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/creachadair/jstream"
	"github.com/creachadair/mds/mtest"
)

// collect runs f on a fresh writer configured by setup, and returns the
// accumulated output. Errors from f fail the test immediately.
func collect(t *testing.T, setup func(*jstream.Writer), f func(w *jstream.Writer) error) string {
	t.Helper()
	var sb strings.Builder
	w := jstream.NewWriter(&sb)
	if setup != nil {
		setup(w)
	}
	if err := f(w); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	return sb.String()
}

func compact(w *jstream.Writer) { w.SetCompact() }

func TestWriter_compact(t *testing.T) {
	got := collect(t, compact, func(w *jstream.Writer) error {
		w.BeginObject()
		w.Name("a")
		w.Int(1)
		w.Name("b")
		w.BeginArray()
		w.Int(1)
		w.Int(2)
		w.EndArray()
		return w.EndObject()
	})
	const want = `{"a":1,"b":[1,2]}`
	if got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_indented(t *testing.T) {
	got := collect(t, nil, func(w *jstream.Writer) error {
		w.BeginObject()
		w.Name("size")
		w.Int(25)
		w.Name("big file")
		w.String("x")
		return w.EndObject()
	})
	const want = "{\n\tsize: 25,\n\t\"big file\": \"x\"\n}"
	if got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_strictNames(t *testing.T) {
	var sb strings.Builder
	w := jstream.NewStrictWriter(&sb)
	w.SetCompact()
	w.BeginObject()
	w.Name("size")
	w.Int(25)
	w.EndObject()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	const want = `{"size":25}`
	if got := sb.String(); got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_comments(t *testing.T) {
	t.Run("BeforeMember", func(t *testing.T) {
		got := collect(t, nil, func(w *jstream.Writer) error {
			w.BeginObject()
			w.Comment("one line")
			w.Comment("and another")
			w.Name("a")
			w.Int(1)
			return w.EndObject()
		})
		const want = "{\n\t// one line\n\t// and another\n\ta: 1\n}"
		if got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("BeforeClose", func(t *testing.T) {
		got := collect(t, nil, func(w *jstream.Writer) error {
			w.BeginArray()
			w.Int(1)
			w.Comment("last")
			return w.EndArray()
		})
		const want = "[\n\t1\n// last\n]"
		if got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("BeforeDocument", func(t *testing.T) {
		got := collect(t, nil, func(w *jstream.Writer) error {
			w.Comment("header")
			return w.Int(1)
		})
		const want = "// header\n1"
		if got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("AfterDocument", func(t *testing.T) {
		got := collect(t, nil, func(w *jstream.Writer) error {
			w.Int(1)
			return w.Comment("goodbye")
		})
		const want = "1\n// goodbye\n"
		if got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("MultiLine", func(t *testing.T) {
		got := collect(t, nil, func(w *jstream.Writer) error {
			w.Comment("one\ntwo")
			return w.Bool(true)
		})
		const want = "// one\n// two\ntrue"
		if got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("CompactDrops", func(t *testing.T) {
		got := collect(t, compact, func(w *jstream.Writer) error {
			w.BeginArray()
			w.Comment("invisible")
			w.Int(1)
			return w.EndArray()
		})
		if want := "[1]"; got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("StrictDrops", func(t *testing.T) {
		var sb strings.Builder
		w := jstream.NewStrictWriter(&sb)
		w.Comment("invisible")
		w.Bool(false)
		w.Flush()
		if got, want := sb.String(), "false"; got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("Block", func(t *testing.T) {
		got := collect(t, nil, func(w *jstream.Writer) error {
			w.BlockComment("still a line")
			return w.Null()
		})
		if want := "// still a line\nnull"; got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})
}

func TestWriter_serializeNulls(t *testing.T) {
	got := collect(t, func(w *jstream.Writer) {
		w.SetCompact()
		w.SetSerializeNulls(false)
	}, func(w *jstream.Writer) error {
		w.BeginObject()
		w.Name("a")
		w.Null() // dropped, along with its name
		w.Name("b")
		w.Int(1)
		w.Name("c")
		w.BeginArray()
		w.Null() // array elements are kept
		w.EndArray()
		return w.EndObject()
	})
	const want = `{"b":1,"c":[null]}`
	if got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_htmlSafe(t *testing.T) {
	got := collect(t, func(w *jstream.Writer) {
		w.SetCompact()
		w.SetHTMLSafe(true)
	}, func(w *jstream.Writer) error {
		return w.String("<a&b>'=")
	})
	want := "\"\\u003ca\\u0026b\\u003e\\u0027\\u003d\""
	if got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_values(t *testing.T) {
	got := collect(t, compact, func(w *jstream.Writer) error {
		w.BeginArray()
		w.Float(1)
		w.Float(0.5)
		w.Float(1e21)
		w.Float(math.NaN())
		w.Float(math.Inf(1))
		w.Float(math.Inf(-1))
		w.Number("0x1F")
		w.Bool(true)
		w.Null()
		w.Raw(`{"pre":"encoded"}`)
		w.String("s")
		return w.EndArray()
	})
	const want = `[1,0.5,1e+21,NaN,Infinity,-Infinity,0x1F,true,null,{"pre":"encoded"},"s"]`
	if got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}

func TestWriter_errors(t *testing.T) {
	mustErr := func(t *testing.T, err error, want error) {
		t.Helper()
		if !errors.Is(err, want) {
			t.Errorf("Got error %v, want %v", err, want)
		}
	}

	t.Run("NonFinite", func(t *testing.T) {
		var sb strings.Builder
		w := jstream.NewStrictWriter(&sb)
		w.SetCompact()
		w.BeginArray()
		mustErr(t, w.Float(math.NaN()), jstream.ErrNonFiniteNumber)
		mustErr(t, w.Number("Infinity"), jstream.ErrNonFiniteNumber)
		mustErr(t, w.Number("-Infinity"), jstream.ErrNonFiniteNumber)
		w.EndArray()
		w.Flush()

		// The failed writes must not leave partial output behind.
		if got, want := sb.String(), "[]"; got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("NonFiniteNamed", func(t *testing.T) {
		var sb strings.Builder
		w := jstream.NewStrictWriter(&sb)
		w.SetCompact()
		w.BeginObject()
		w.Name("x")
		mustErr(t, w.Float(math.Inf(1)), jstream.ErrNonFiniteNumber)

		// The pending name is retained, and a valid value completes it.
		if err := w.Int(3); err != nil {
			t.Fatalf("Int failed: %v", err)
		}
		w.EndObject()
		w.Flush()
		if got, want := sb.String(), `{"x":3}`; got != want {
			t.Errorf("Output: got %#q, want %#q", got, want)
		}
	})

	t.Run("UnmatchedEnd", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		mustErr(t, w.EndArray(), jstream.ErrNesting)
	})

	t.Run("MismatchedEnd", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.BeginObject()
		mustErr(t, w.EndArray(), jstream.ErrNesting)
	})

	t.Run("DoubleName", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.BeginObject()
		w.Name("a")
		mustErr(t, w.Name("b"), jstream.ErrDanglingName)
	})

	t.Run("DanglingName", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.BeginObject()
		w.Name("a")
		mustErr(t, w.EndObject(), jstream.ErrDanglingName)
	})

	t.Run("NameInArray", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.BeginArray()
		w.Name("a")
		mustErr(t, w.Int(1), jstream.ErrNesting)
	})

	t.Run("SecondValue", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.Int(1)
		mustErr(t, w.Int(2), jstream.ErrNesting)
	})

	t.Run("AfterClose", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.Int(1)
		if err := w.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
		mustErr(t, w.Int(2), jstream.ErrClosed)
		mustErr(t, w.Flush(), jstream.ErrClosed)
	})
}

func TestWriter_close(t *testing.T) {
	t.Run("Complete", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.BeginArray()
		w.EndArray()
		if err := w.Close(); err != nil {
			t.Errorf("Close: got %v, want nil", err)
		}
		if err := w.Close(); err != nil {
			t.Errorf("Second Close: got %v, want nil", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		if err := w.Close(); !errors.Is(err, jstream.ErrIncompleteDocument) {
			t.Errorf("Close: got %v, want %v", err, jstream.ErrIncompleteDocument)
		}
	})

	t.Run("OpenScope", func(t *testing.T) {
		w := jstream.NewWriter(&strings.Builder{})
		w.BeginObject()
		if err := w.Close(); !errors.Is(err, jstream.ErrIncompleteDocument) {
			t.Errorf("Close: got %v, want %v", err, jstream.ErrIncompleteDocument)
		}

		// A failed Close reports the same result every time.
		if err := w.Close(); !errors.Is(err, jstream.ErrIncompleteDocument) {
			t.Errorf("Second Close: got %v, want %v", err, jstream.ErrIncompleteDocument)
		}
	})
}

func TestWriter_setIndent(t *testing.T) {
	w := jstream.NewWriter(&strings.Builder{})
	mtest.MustPanic(t, func() { w.SetIndent("xy") })

	w.SetIndent("  ")
	if w.Compact() {
		t.Error("Compact: got true, want false")
	}
	w.SetIndent("")
	if !w.Compact() {
		t.Error("Compact: got false, want true")
	}
}

func TestWriter_indentWidth(t *testing.T) {
	var sb strings.Builder
	w := jstream.NewWriter(&sb)
	w.SetIndent("  ")
	w.BeginObject()
	w.Name("list")
	w.BeginArray()
	w.Int(1)
	w.Int(2)
	w.EndArray()
	w.EndObject()
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	const want = "{\n  list: [\n    1,\n    2\n  ]\n}"
	if got := sb.String(); got != want {
		t.Errorf("Output: got %#q, want %#q", got, want)
	}
}
