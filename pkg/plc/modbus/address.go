// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

package modbus

import (
	"strconv"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

// RegisterKind is the Modbus register class a read targets.
type RegisterKind int

const (
	// Coil is a read/write single bit (function code 1).
	Coil RegisterKind = iota
	// Discrete is a read-only single bit (function code 2).
	Discrete
	// Input is a read-only 16-bit register (function code 4).
	Input
	// Holding is a read/write 16-bit register (function code 3).
	Holding
)

func (k RegisterKind) String() string {
	switch k {
	case Coil:
		return "coil"
	case Discrete:
		return "discrete"
	case Input:
		return "input"
	default:
		return "holding"
	}
}

// ParseAddress maps the classic Modbus address convention to a register kind
// and zero-based offset:
//
//	0-9999      coils
//	10001-19999 discrete inputs
//	30001-39999 input registers
//	40001-49999 holding registers
//
// Anything else is treated as a raw holding-register offset.
func ParseAddress(address int) (RegisterKind, uint16) {
	switch {
	case address >= 40001 && address <= 49999:
		return Holding, uint16(address - 40001)
	case address >= 30001 && address <= 39999:
		return Input, uint16(address - 30001)
	case address >= 10001 && address <= 19999:
		return Discrete, uint16(address - 10001)
	case address >= 0 && address <= 9999:
		return Coil, uint16(address)
	default:
		return Holding, uint16(address)
	}
}

// maxAddress bounds raw register offsets; anything above cannot fit the wire
// format's 16-bit address field.
const maxAddress = 65535

// ParseAddressString parses a field-mapping address into the numeric Modbus
// convention. Mapping addresses are free-form strings in the catalog; for the
// Modbus protocol they must be unsigned integers.
func ParseAddressString(address string) (int, error) {
	n, err := strconv.Atoi(address)
	if err != nil || n < 0 {
		return 0, errs.New(errs.ConfigError, "malformed modbus address %q", address)
	}
	if n > maxAddress {
		return 0, errs.New(errs.ConfigError, "modbus address %d out of range", n)
	}
	return n, nil
}
