// Package encoding implements marshalling and unmarshalling of user process
// images as Intel Hex text. No `aegis` CLI command uses it.
//
// Each line is a prefix, length, address, record type, optional data, and a
// checksum:
//
//	:LLAAAATT[DD...]CC
//	0123456789
//
// See [Grammar] for a formal grammar.
//
// # Bugs
//
// This is not a complete implementation of Intel Hex encoding; it supports
// only the data and end-of-file record types, and a 16-bit address field,
// which is enough to describe the offset-addressed segments a process image
// is built from.
package encoding

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const Grammar = `
file  = { line } ;
line  = ':' len addr type data check nl ;
len   = byte ;
addr  = byte byte ;
type  = byte ;
data  = { byte }
check = byte ;
byte  = hex hex ;
hex   = '0' | '1' | '2' | '3' | '4' | '5' | '6' | '7' | '8' | '9'
      | 'a' | 'b' | 'c' | 'd' | 'e' | 'f' | 'A' | 'B' | 'C' | 'D' | 'E' | 'F' ;
nl    = '\n' ;
`

// Segment is one contiguous run of bytes at a fixed address-within-image
// offset: one line of a process image.
type Segment struct {
	Addr uint16
	Data []byte
}

// HexEncoding implements marshalling and unmarshalling of process images as
// Intel Hex files.
type HexEncoding struct {
	Segments []Segment
}

func (h *HexEncoding) MarshalText() ([]byte, error) {
	var buf bytes.Buffer

	enc := hex.NewEncoder(&buf)

	for _, seg := range h.Segments {
		var check byte

		buf.WriteByte(':')

		lenByte := byte(len(seg.Data))
		check += lenByte

		if _, err := enc.Write([]byte{lenByte}); err != nil {
			return buf.Bytes(), err
		}

		addrBytes := []byte{byte(seg.Addr >> 8), byte(seg.Addr & 0xff)}
		check += addrBytes[0] + addrBytes[1]

		if _, err := enc.Write(addrBytes); err != nil {
			return buf.Bytes(), err
		}

		buf.WriteString("00") // record type: data

		if _, err := enc.Write(seg.Data); err != nil {
			return buf.Bytes(), err
		}

		for _, b := range seg.Data {
			check += b
		}

		checksum := byte(1 + ^check)
		if _, err := enc.Write([]byte{checksum}); err != nil {
			return buf.Bytes(), err
		}

		buf.WriteByte('\n')
	}

	buf.WriteString(":00000001ff\n")

	return buf.Bytes(), nil
}

func (h *HexEncoding) UnmarshalText(bs []byte) error {
	scanner := bufio.NewScanner(bytes.NewReader(bs))

	for scanner.Scan() {
		line := scanner.Bytes()

		if len(line) == 0 {
			continue
		}

		if line[0] != ':' {
			return fmt.Errorf("%w: line does not start with ':'", ErrDecode)
		}

		var dec [1]byte

		if _, err := hex.Decode(dec[:], line[1:3]); err != nil {
			return fmt.Errorf("%w: len: %s", ErrDecode, err)
		}

		recLen := dec[0]
		check := recLen

		var addrBuf [2]byte

		if _, err := hex.Decode(addrBuf[:], line[3:7]); err != nil {
			return fmt.Errorf("%w: addr: %s", ErrDecode, err)
		}

		recAddr := binary.BigEndian.Uint16(addrBuf[:])
		check += addrBuf[0] + addrBuf[1]

		if _, err := hex.Decode(dec[:], line[7:9]); err != nil {
			return fmt.Errorf("%w: type: %s", ErrDecode, err)
		}

		recKind := dec[0]
		check += recKind

		var checkBuf [1]byte
		if _, err := hex.Decode(checkBuf[:], line[len(line)-2:]); err != nil {
			return fmt.Errorf("%w: check: %s", ErrDecode, err)
		}

		switch recKind {
		case kindData:
			data := make([]byte, recLen)

			if recLen > 0 {
				if _, err := hex.Decode(data, line[9:9+int(recLen)*2]); err != nil {
					return fmt.Errorf("%w: data: %s", ErrDecode, err)
				}

				for _, b := range data {
					check += b
				}
			}

			check = 1 + ^check
			if check != checkBuf[0] {
				return fmt.Errorf("%w: checksum invalid: %02x != %02x", ErrDecode, check, checkBuf[0])
			}

			h.Segments = append(h.Segments, Segment{Addr: recAddr, Data: data})
		case kindEOF:
			check = 1 + ^check
			if check != checkBuf[0] {
				return fmt.Errorf("%w: checksum invalid: %02x != %02x", ErrDecode, check, checkBuf[0])
			}

			return endOfSegments(h)
		default:
			return fmt.Errorf("%w: unexpected record type: %d", ErrDecode, recKind)
		}
	}

	return endOfSegments(h)
}

func endOfSegments(h *HexEncoding) error {
	if len(h.Segments) == 0 {
		return ErrEmpty
	}

	return nil
}

const (
	kindData = 0
	kindEOF  = 1
)

// ErrDecode is returned, wrapped with more specific context, when decoding
// malformed Intel Hex text.
var ErrDecode = fmt.Errorf("encoding: invalid hex record")

// ErrEmpty is returned when UnmarshalText finds no data records at all.
var ErrEmpty = fmt.Errorf("%w: no data decoded", ErrDecode)
