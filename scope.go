// Copyright (C) 2024 Michael J. Fromberger. All Rights Reserved.

package jstream

// A scope is one level of document nesting context. The scope on top of
// the stack determines which tokens are legal next, for both reading and
// writing.
type scope byte

const (
	emptyDocument    scope = iota // before the top-level value
	nonemptyDocument              // after the top-level value
	emptyArray                    // inside "[" with no elements yet
	nonemptyArray                 // inside "[" with at least one element
	emptyObject                   // inside "{" with no members yet
	nonemptyObject                // inside "{" with at least one member
	danglingName                  // after a member name, before its value
)

// A scopeStack records the nesting contexts enclosing the current
// position of a reader or writer. The bottom element is present for the
// whole open lifetime of the stream; an empty stack means the stream has
// been closed. The stack itself does no validation.
type scopeStack struct {
	elts []scope
}

// push adds sc to the top of the stack. Storage grows as needed and is
// not released until the stream closes, since deep documents regrow it.
func (s *scopeStack) push(sc scope) { s.elts = append(s.elts, sc) }

// pop removes and returns the top of the stack.
// Precondition: the stack is not empty.
func (s *scopeStack) pop() scope {
	sc := s.elts[len(s.elts)-1]
	s.elts = s.elts[:len(s.elts)-1]
	return sc
}

// peek reports the scope on top of the stack. It reports ErrClosed if
// the stack is empty, meaning the stream has already been closed.
func (s *scopeStack) peek() (scope, error) {
	if len(s.elts) == 0 {
		return 0, ErrClosed
	}
	return s.elts[len(s.elts)-1], nil
}

// replaceTop replaces the scope on top of the stack without changing the
// depth. Precondition: the stack is not empty.
func (s *scopeStack) replaceTop(sc scope) { s.elts[len(s.elts)-1] = sc }

// depth reports the number of scopes on the stack.
func (s *scopeStack) depth() int { return len(s.elts) }

// clear empties the stack, marking the stream closed.
func (s *scopeStack) clear() { s.elts = nil }
