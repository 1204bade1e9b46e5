// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package modbus

import (
	"encoding/binary"
	"math"
	"strings"
)

// ByteOrder is the permutation of the four bytes of a 32-bit value across two
// consecutive 16-bit registers.
type ByteOrder string

const (
	// ABCD is big-endian: R1 is the high word.
	ABCD ByteOrder = "ABCD"
	// DCBA is little-endian: everything reversed.
	DCBA ByteOrder = "DCBA"
	// BADC swaps the word order, bytes within words stay big-endian.
	BADC ByteOrder = "BADC"
	// CDAB keeps the word order, bytes within words are swapped.
	CDAB ByteOrder = "CDAB"
)

// RegistersToFloat32 decodes two 16-bit registers into an IEEE-754 float
// according to the byte order. An unknown order decodes as ABCD.
func RegistersToFloat32(r1, r2 uint16, order ByteOrder) float32 {
	var b [4]byte
	r1hi, r1lo := byte(r1>>8), byte(r1)
	r2hi, r2lo := byte(r2>>8), byte(r2)

	switch order {
	case DCBA:
		b = [4]byte{r2lo, r2hi, r1lo, r1hi}
	case BADC:
		b = [4]byte{r2hi, r2lo, r1hi, r1lo}
	case CDAB:
		b = [4]byte{r1lo, r1hi, r2lo, r2hi}
	default: // ABCD
		b = [4]byte{r1hi, r1lo, r2hi, r2lo}
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b[:]))
}

// Float32ToRegisters is the inverse of RegistersToFloat32.
func Float32ToRegisters(f float32, order ByteOrder) (r1, r2 uint16) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(f))

	switch order {
	case DCBA:
		r2 = uint16(b[1])<<8 | uint16(b[0])
		r1 = uint16(b[3])<<8 | uint16(b[2])
	case BADC:
		r2 = uint16(b[0])<<8 | uint16(b[1])
		r1 = uint16(b[2])<<8 | uint16(b[3])
	case CDAB:
		r1 = uint16(b[1])<<8 | uint16(b[0])
		r2 = uint16(b[3])<<8 | uint16(b[2])
	default: // ABCD
		r1 = uint16(b[0])<<8 | uint16(b[1])
		r2 = uint16(b[2])<<8 | uint16(b[3])
	}
	return r1, r2
}

// ToSigned interprets a 16-bit register as signed two's complement.
func ToSigned(v uint16) int16 {
	return int16(v)
}

// RegistersToString decodes registers as ASCII, high byte then low byte per
// register, terminating at the first zero byte.
func RegistersToString(regs []uint16) string {
	var sb strings.Builder
	for _, reg := range regs {
		hi := byte(reg >> 8)
		if hi == 0 {
			break
		}
		sb.WriteByte(hi)
		lo := byte(reg)
		if lo == 0 {
			break
		}
		sb.WriteByte(lo)
	}
	return sb.String()
}
