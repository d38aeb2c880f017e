package snapshot

import (
	"bytes"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/adred-codev/kvengine/internal/keyspace"
	"github.com/adred-codev/kvengine/internal/valuetype"
)

func entrySet(entries []keyspace.Entry) map[string]bool {
	out := make(map[string]bool, len(entries))
	for _, e := range entries {
		rendered := e.Value.String()
		if e.Value.Kind == valuetype.KindSet {
			members := e.Value.SetMembers()
			sort.Strings(members)
			rendered = fmt.Sprintf("%v", members)
		}
		out[fmt.Sprintf("%s=%s", e.Key, rendered)] = true
	}
	return out
}

func TestRoundTripBasicTypes(t *testing.T) {
	entries := []keyspace.Entry{
		{Key: "str", Value: valuetype.NewString("hello"), Deadline: keyspace.Persistent},
		{Key: "lst", Value: valuetype.NewList([]string{"a", "b", "c"}), Deadline: keyspace.Persistent},
		{Key: "set", Value: valuetype.NewSet([]string{"x", "y"}), Deadline: keyspace.Persistent},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != len(entries) {
		t.Fatalf("got %d entries, want %d", len(decoded), len(entries))
	}

	want := entrySet(entries)
	got := entrySet(decoded)
	for k := range want {
		if !got[k] {
			t.Fatalf("missing decoded entry %q", k)
		}
	}
}

func TestRoundTripWithFutureDeadline(t *testing.T) {
	dl := time.Now().Add(time.Hour).Truncate(time.Second)
	entries := []keyspace.Entry{
		{Key: "k", Value: valuetype.NewString("v"), Deadline: dl},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 1 {
		t.Fatalf("got %d entries, want 1", len(decoded))
	}
	if decoded[0].Deadline.Unix() != dl.Unix() {
		t.Fatalf("deadline = %v, want %v", decoded[0].Deadline, dl)
	}
}

func TestPastDeadlineDiscardedOnDecode(t *testing.T) {
	entries := []keyspace.Entry{
		{Key: "expired", Value: valuetype.NewString("v"), Deadline: time.Unix(1, 0)},
		{Key: "alive", Value: valuetype.NewString("v2"), Deadline: keyspace.Persistent},
	}

	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Key != "alive" {
		t.Fatalf("expected only the live entry to survive, got %+v", decoded)
	}
}

func TestEmptyKeyspaceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected no entries, got %+v", decoded)
	}
}

func TestLengthEncodingTiers(t *testing.T) {
	for _, n := range []int{10, 500, 100000} {
		elems := make([]string, n)
		for i := range elems {
			elems[i] = "x"
		}
		entries := []keyspace.Entry{
			{Key: "k", Value: valuetype.NewList(elems), Deadline: keyspace.Persistent},
		}

		var buf bytes.Buffer
		if err := Encode(&buf, entries); err != nil {
			t.Fatalf("Encode(n=%d): %v", n, err)
		}
		decoded, err := Decode(&buf)
		if err != nil {
			t.Fatalf("Decode(n=%d): %v", n, err)
		}
		if len(decoded) != 1 || len(decoded[0].Value.List) != n {
			t.Fatalf("n=%d: round-trip length mismatch, got %d", n, len(decoded[0].Value.List))
		}
	}
}

func TestMalformedStreamAborts(t *testing.T) {
	buf := bytes.NewBuffer([]byte{opResize, 0x00, 0x00, 0x99})
	if _, err := Decode(buf); err == nil {
		t.Fatalf("expected error decoding truncated/unknown record")
	}
}

func TestAcceptsEOFOnlyStream(t *testing.T) {
	buf := bytes.NewBuffer([]byte{opEOF})
	decoded, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 0 {
		t.Fatalf("expected empty result for bare EOF stream")
	}
}
