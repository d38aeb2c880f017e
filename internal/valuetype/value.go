// Package valuetype defines the tagged value union stored in the keyspace.
package valuetype

import "fmt"

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNil Kind = iota
	KindString
	KindList
	KindSet
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	default:
		return "none"
	}
}

// Value is the closed union of everything a key can hold. Exactly one of
// the fields is meaningful, selected by Kind. Nil is never stored in the
// keyspace; it only appears as a read result.
type Value struct {
	Kind Kind
	Str  string
	List []string
	Set  map[string]struct{}
}

// Nil is the absent-value sentinel.
var Nil = Value{Kind: KindNil}

// NewString wraps a string value.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewList wraps an ordered sequence, cloning the input slice.
func NewList(elems []string) Value {
	cp := make([]string, len(elems))
	copy(cp, elems)
	return Value{Kind: KindList, List: cp}
}

// NewSet wraps an unordered member collection, cloning the input members.
func NewSet(members []string) Value {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	return Value{Kind: KindSet, Set: set}
}

// IsNil reports whether v is the absent-value sentinel.
func (v Value) IsNil() bool { return v.Kind == KindNil }

// Clone produces an independent copy so callers that need to install a
// value under another key (copy) don't alias the original's
// backing storage.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindString:
		return NewString(v.Str)
	case KindList:
		cp := make([]string, len(v.List))
		copy(cp, v.List)
		return Value{Kind: KindList, List: cp}
	case KindSet:
		cp := make(map[string]struct{}, len(v.Set))
		for m := range v.Set {
			cp[m] = struct{}{}
		}
		return Value{Kind: KindSet, Set: cp}
	default:
		return Nil
	}
}

// SetMembers returns the set's members in no particular order.
func (v Value) SetMembers() []string {
	out := make([]string, 0, len(v.Set))
	for m := range v.Set {
		out = append(out, m)
	}
	return out
}

func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindList:
		return fmt.Sprintf("%v", v.List)
	case KindSet:
		return fmt.Sprintf("%v", v.SetMembers())
	default:
		return "(nil)"
	}
}
