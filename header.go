// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

import "encoding/binary"

// Wire format: every message is exactly HeaderSize header octets
// immediately followed by Length payload octets. No padding, no
// trailer; the next message's header begins immediately after the
// previous payload's last octet.
//
//	magic(5) pad(2) type(1) length(8)
//
// magic is the constant ASCII tag "DSmsg". length is the payload
// length in octets, network (big-endian) byte order, bounded by the
// representable range of a signed 64-bit integer.

const (
	// HeaderSize is the fixed on-wire header length in octets (§3.1).
	HeaderSize = 16

	magicLen = 5
	padLen   = 2
)

// magic is the constant tag every header must start with.
var magic = [magicLen]byte{'D', 'S', 'm', 's', 'g'}

// Type identifies the payload kind carried by a message (§3.1).
type Type uint8

const (
	// Buffer is the only payload kind currently defined: an opaque
	// in-memory octet buffer.
	Buffer Type = 0
)

// header is the in-memory mirror of the 16-octet wire header.
type header [HeaderSize]byte

// writeHeader materialises hdr in place for a message of the given type
// and length, converting length from host to network byte order.
func writeHeader(hdr *header, typ Type, length int64) {
	copy(hdr[0:magicLen], magic[:])
	// hdr[magicLen:magicLen+padLen] is left zero; reserved for future flags.
	hdr[magicLen+padLen] = byte(typ)
	binary.BigEndian.PutUint64(hdr[magicLen+padLen+1:], uint64(length))
}

// readHeader validates the magic tag and decodes type/length from a fully
// received header. It is the single decode step guarded by
// Message.parsedHeader (§3.2).
func readHeader(hdr *header) (typ Type, length int64, err error) {
	if [magicLen]byte(hdr[0:magicLen]) != magic {
		return 0, 0, ErrBadMagic
	}
	typ = Type(hdr[magicLen+padLen])
	if typ != Buffer {
		return 0, 0, ErrUnknownType
	}
	u64 := binary.BigEndian.Uint64(hdr[magicLen+padLen+1:])
	length = int64(u64)
	if length < 0 {
		// u64 doesn't fit in the signed pointer-difference range (§3.1 edge case).
		return 0, 0, ErrTooLong
	}
	return typ, length, nil
}
