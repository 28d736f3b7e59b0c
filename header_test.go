// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dsmsg

import (
	"errors"
	"testing"
)

func TestWriteReadHeaderRoundTrip(t *testing.T) {
	var hdr header
	writeHeader(&hdr, Buffer, 12345)

	typ, length, err := readHeader(&hdr)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	if typ != Buffer {
		t.Fatalf("type = %v, want Buffer", typ)
	}
	if length != 12345 {
		t.Fatalf("length = %d, want 12345", length)
	}
}

func TestWriteHeaderMagic(t *testing.T) {
	var hdr header
	writeHeader(&hdr, Buffer, 0)
	if string(hdr[0:magicLen]) != "DSmsg" {
		t.Fatalf("magic = %q, want %q", hdr[0:magicLen], "DSmsg")
	}
}

func TestReadHeaderBadMagic(t *testing.T) {
	var hdr header
	writeHeader(&hdr, Buffer, 1)
	hdr[0] = 'X'

	_, _, err := readHeader(&hdr)
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("err = %v, want ErrBadMagic", err)
	}
}

func TestReadHeaderUnknownType(t *testing.T) {
	var hdr header
	writeHeader(&hdr, Buffer, 1)
	hdr[magicLen+padLen] = 0xFF

	_, _, err := readHeader(&hdr)
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

func TestReadHeaderNegativeLength(t *testing.T) {
	var hdr header
	writeHeader(&hdr, Buffer, 0)
	// Force the top bit so the stored uint64 casts to a negative int64.
	hdr[magicLen+padLen+1] = 0x80

	_, _, err := readHeader(&hdr)
	if !errors.Is(err, ErrTooLong) {
		t.Fatalf("err = %v, want ErrTooLong", err)
	}
}

func TestHeaderSizeConstant(t *testing.T) {
	var hdr header
	if len(hdr) != HeaderSize {
		t.Fatalf("len(header) = %d, want HeaderSize = %d", len(hdr), HeaderSize)
	}
	if HeaderSize != 16 {
		t.Fatalf("HeaderSize = %d, want 16", HeaderSize)
	}
}
