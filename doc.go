// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

// Package jstream implements a streaming reader and writer for JSON and
// two of its relaxed supersets, JSONC and JSON5.
//
// # Writing
//
// The Writer type emits a document one token at a time. Construct a
// writer from an io.Writer with NewWriter (JSON5 output) or
// NewStrictWriter (RFC 8259 output), and call its methods in the order
// of the document's structure:
//
//	w := jstream.NewWriter(output)
//	w.BeginObject()
//	w.Name("size")
//	w.Int(25)
//	w.EndObject()
//	if err := w.Close(); err != nil {
//	   log.Fatalf("Write failed: %v", err)
//	}
//
// Calls that do not fit the structure at the current position, such as
// an EndArray with no matching BeginArray, report an error and write
// nothing. Close verifies that the document is complete.
//
// # Scanning
//
// The Scanner type implements a lexical scanner over the combined token
// grammar. Construct a scanner from an io.Reader and call its Next
// method to iterate over the stream:
//
//	s := jstream.NewScanner(input)
//	for s.Next() {
//	   log.Printf("Next token: %v", s.Token())
//	}
//	if s.Err() != nil {
//	   log.Fatalf("Scanning failed: %v", s.Err())
//	}
//
// By default the scanner accepts only strict JSON tokens; use
// AllowComments and AllowJSON5 to enable the extensions.
//
// # Reading
//
// The Reader type implements a pull parser over the scanner. Construct a
// reader from an io.Reader with NewReader (JSON5 input) or
// NewStrictReader (RFC 8259 input). Call Peek to discover the kind of
// the next element, then the method of that kind to consume it:
//
//	r := jstream.NewReader(input)
//	r.BeginObject()
//	for {
//	   if ok, err := r.More(); err != nil {
//	      log.Fatalf("Read failed: %v", err)
//	   } else if !ok {
//	      break
//	   }
//	   name, err := r.Name()
//	   ...
//	}
//	r.EndObject()
//
// Syntax errors are reported as a *jstream.SyntaxError carrying the
// offending location. Violations of the strict grammar in strict mode
// satisfy errors.Is with ErrStrictMode.
package jstream
