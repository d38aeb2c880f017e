// Package snapshot implements the engine's binary snapshot codec: a
// compact, self-describing byte stream that round-trips a keyspace to
// disk. Records are framed by one-byte opcodes with variable-width,
// length-prefixed payloads; the on-disk format is a stable boundary
// independent of the in-memory layout.
package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/adred-codev/kvengine/internal/keyspace"
	"github.com/adred-codev/kvengine/internal/valuetype"
)

// Opcodes framing each record in the stream.
const (
	opString byte = 0x00
	opList   byte = 0x01
	opSet    byte = 0x02
	opResize byte = 0xFB
	opExpire byte = 0xFD
	opEOF    byte = 0xFF
)

// Encode writes every live entry in entries as a self-describing byte
// stream to w: one RESIZE header, then one record per entry (EXPIRE
// immediately before VALUE when the entry carries a deadline), terminated
// by EOF. Entries whose value kind is out of the VALUE opcode range are
// silently skipped, per the serialization contract.
func Encode(w io.Writer, entries []keyspace.Entry) error {
	bw := bufio.NewWriter(w)

	ttlCount := 0
	for _, e := range entries {
		if !e.Deadline.Equal(keyspace.Persistent) {
			ttlCount++
		}
	}

	if err := writeOpcode(bw, opResize); err != nil {
		return err
	}
	if err := writeLength(bw, uint32(len(entries))); err != nil {
		return err
	}
	if err := writeLength(bw, uint32(ttlCount)); err != nil {
		return err
	}

	for _, e := range entries {
		var typeOp byte
		switch e.Value.Kind {
		case valuetype.KindString:
			typeOp = opString
		case valuetype.KindList:
			typeOp = opList
		case valuetype.KindSet:
			typeOp = opSet
		default:
			continue // out-of-range type tag: skip silently
		}

		if !e.Deadline.Equal(keyspace.Persistent) {
			if err := writeOpcode(bw, opExpire); err != nil {
				return err
			}
			if err := binary.Write(bw, binary.BigEndian, uint32(e.Deadline.Unix())); err != nil {
				return err
			}
		}

		if err := writeOpcode(bw, typeOp); err != nil {
			return err
		}
		if err := writeString(bw, e.Key); err != nil {
			return err
		}
		if err := writeValue(bw, e.Value); err != nil {
			return err
		}
	}

	if err := writeOpcode(bw, opEOF); err != nil {
		return err
	}
	return bw.Flush()
}

func writeOpcode(w io.Writer, op byte) error {
	_, err := w.Write([]byte{op})
	return err
}

func writeValue(w io.Writer, v valuetype.Value) error {
	switch v.Kind {
	case valuetype.KindString:
		return writeString(w, v.Str)
	case valuetype.KindList:
		return writeStringSeq(w, v.List)
	case valuetype.KindSet:
		return writeStringSeq(w, v.SetMembers())
	default:
		return fmt.Errorf("snapshot: cannot encode value kind %v", v.Kind)
	}
}

func writeStringSeq(w io.Writer, elems []string) error {
	if err := writeLength(w, uint32(len(elems))); err != nil {
		return err
	}
	for _, e := range elems {
		if err := writeString(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := writeLength(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

// writeLength emits the variable-width length encoding:
//
//	1 byte:  high bits 00, low 6 bits = length (0-63)
//	2 bytes: high bits 01, low 6 bits + next byte = length (64-16383)
//	5 bytes: 0x80, then 4 big-endian bytes = length
func writeLength(w io.Writer, n uint32) error {
	switch {
	case n <= 0x3F:
		_, err := w.Write([]byte{byte(n)})
		return err
	case n <= 0x3FFF:
		b0 := byte(0x40) | byte(n>>8)
		b1 := byte(n)
		_, err := w.Write([]byte{b0, b1})
		return err
	default:
		buf := make([]byte, 5)
		buf[0] = 0x80
		binary.BigEndian.PutUint32(buf[1:], n)
		_, err := w.Write(buf)
		return err
	}
}

// Decode reads a snapshot stream from r and returns the reconstructed
// entries. Any malformed record (truncated length, unknown opcode,
// invalid UTF-8) aborts with a descriptive error and no partial result.
func Decode(r io.Reader) ([]keyspace.Entry, error) {
	br := bufio.NewReader(r)

	first, err := br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("snapshot: reading first opcode: %w", err)
	}

	var entries []keyspace.Entry

	switch first {
	case opEOF:
		return entries, nil
	case opResize:
		if _, err := readLength(br); err != nil {
			return nil, fmt.Errorf("snapshot: reading store-size hint: %w", err)
		}
		if _, err := readLength(br); err != nil {
			return nil, fmt.Errorf("snapshot: reading ttl-count hint: %w", err)
		}
	default:
		return nil, fmt.Errorf("snapshot: expected RESIZE or EOF as first opcode, got 0x%02X", first)
	}

	for {
		op, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("snapshot: reading record opcode: %w", err)
		}

		var deadline time.Time
		hasDeadline := false

		if op == opEOF {
			return entries, nil
		}

		if op == opExpire {
			var secs uint32
			if err := binary.Read(br, binary.BigEndian, &secs); err != nil {
				return nil, fmt.Errorf("snapshot: reading EXPIRE seconds: %w", err)
			}
			deadline = time.Unix(int64(secs), 0)
			hasDeadline = true

			op, err = br.ReadByte()
			if err != nil {
				return nil, fmt.Errorf("snapshot: reading VALUE opcode after EXPIRE: %w", err)
			}
		}

		entry, err := readValueRecord(br, op)
		if err != nil {
			return nil, err
		}

		if hasDeadline && deadline.Before(time.Now()) {
			continue // discard the VALUE: deadline already in the past
		}
		if hasDeadline {
			entry.Deadline = deadline
		} else {
			entry.Deadline = keyspace.Persistent
		}
		entries = append(entries, entry)
	}
}

func readValueRecord(br *bufio.Reader, op byte) (keyspace.Entry, error) {
	key, err := readString(br)
	if err != nil {
		return keyspace.Entry{}, fmt.Errorf("snapshot: reading key: %w", err)
	}

	var value valuetype.Value
	switch op {
	case opString:
		s, err := readString(br)
		if err != nil {
			return keyspace.Entry{}, fmt.Errorf("snapshot: reading string payload for key %q: %w", key, err)
		}
		value = valuetype.NewString(s)
	case opList:
		elems, err := readStringSeq(br)
		if err != nil {
			return keyspace.Entry{}, fmt.Errorf("snapshot: reading list payload for key %q: %w", key, err)
		}
		value = valuetype.NewList(elems)
	case opSet:
		elems, err := readStringSeq(br)
		if err != nil {
			return keyspace.Entry{}, fmt.Errorf("snapshot: reading set payload for key %q: %w", key, err)
		}
		value = valuetype.NewSet(elems)
	default:
		return keyspace.Entry{}, fmt.Errorf("snapshot: unknown record opcode 0x%02X", op)
	}

	return keyspace.Entry{Key: key, Value: value}, nil
}

func readStringSeq(br *bufio.Reader) ([]string, error) {
	n, err := readLength(br)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, n)
	for i := uint32(0); i < n; i++ {
		s, err := readString(br)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func readString(br *bufio.Reader) (string, error) {
	n, err := readLength(br)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", fmt.Errorf("reading %d bytes: %w", n, err)
	}
	if !utf8.Valid(buf) {
		return "", fmt.Errorf("payload is not valid UTF-8")
	}
	return string(buf), nil
}

func readLength(br *bufio.Reader) (uint32, error) {
	b0, err := br.ReadByte()
	if err != nil {
		return 0, err
	}

	switch {
	case b0 == 0x80:
		var n uint32
		if err := binary.Read(br, binary.BigEndian, &n); err != nil {
			return 0, fmt.Errorf("reading 5-byte length: %w", err)
		}
		return n, nil
	case b0&0xC0 == 0x40:
		b1, err := br.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("reading 2-byte length: %w", err)
		}
		return uint32(b0&0x3F)<<8 | uint32(b1), nil
	case b0&0xC0 == 0x00:
		return uint32(b0 & 0x3F), nil
	default:
		return 0, fmt.Errorf("invalid length prefix byte 0x%02X", b0)
	}
}
