// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Neuract.
// Copyright 2024-present Neuract, Inc.

// Package modbus reads typed values from PLCs over Modbus/TCP. Connections
// are pooled per (host,port) and evicted on any I/O failure so the next read
// reconnects.
package modbus

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/aldas/go-modbus-client/packet"

	"github.com/RohithBalasubramani/LoggerDeploy/pkg/errs"
)

// stringRegisterCount is how many registers a string read fetches
// (2 ASCII chars per register, 32 chars max).
const stringRegisterCount = 16

// Service is the process-wide Modbus client pool.
type Service struct {
	mu      sync.Mutex
	clients map[string]*pooledConn
	connect ConnectFunc
}

// NewService returns a Service dialing real TCP connections.
func NewService() *Service {
	return NewServiceWithConnect(DefaultConnect)
}

// NewServiceWithConnect returns a Service with a custom dialer; used by tests.
func NewServiceWithConnect(connect ConnectFunc) *Service {
	return &Service{
		clients: make(map[string]*pooledConn),
		connect: connect,
	}
}

// ReadRequest describes one typed read.
type ReadRequest struct {
	Host      string
	Port      int
	Address   int // Modbus convention, e.g. 40001 for the first holding register
	DataType  string
	UnitID    uint8
	ByteOrder ByteOrder
	Scale     float64
	Timeout   time.Duration
}

// ReadValue reads and converts a single value from a Modbus device.
func (s *Service) ReadValue(ctx context.Context, req ReadRequest) (interface{}, error) {
	kind, offset := ParseAddress(req.Address)
	scale := req.Scale
	if scale == 0 {
		scale = 1.0
	}

	switch req.DataType {
	case "bool":
		if kind == Coil || kind == Discrete {
			return s.readBit(ctx, req, kind, offset)
		}
		regs, err := s.readRegisters(ctx, req, kind, offset, 1)
		if err != nil {
			return nil, err
		}
		return regs[0] != 0, nil

	case "int":
		regs, err := s.readRegisters(ctx, req, kind, offset, 1)
		if err != nil {
			return nil, err
		}
		return int64(float64(ToSigned(regs[0])) * scale), nil

	case "float":
		regs, err := s.readRegisters(ctx, req, kind, offset, 2)
		if err != nil {
			return nil, err
		}
		return float64(RegistersToFloat32(regs[0], regs[1], req.ByteOrder)) * scale, nil

	case "string":
		regs, err := s.readRegisters(ctx, req, kind, offset, stringRegisterCount)
		if err != nil {
			return nil, err
		}
		return RegistersToString(regs), nil

	default:
		return nil, errs.New(errs.ConfigError, "unknown data type %q", req.DataType)
	}
}

// readBit reads a single coil or discrete input.
func (s *Service) readBit(ctx context.Context, req ReadRequest, kind RegisterKind, offset uint16) (interface{}, error) {
	var (
		preq packet.Request
		err  error
	)
	if kind == Coil {
		preq, err = packet.NewReadCoilsRequestTCP(req.UnitID, offset, 1)
	} else {
		preq, err = packet.NewReadDiscreteInputsRequestTCP(req.UnitID, offset, 1)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ConfigError, err, "build %s read at %d", kind, offset)
	}

	resp, err := s.do(ctx, req, preq)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch r := resp.(type) {
	case *packet.ReadCoilsResponseTCP:
		data = r.Data
	case *packet.ReadDiscreteInputsResponseTCP:
		data = r.Data
	default:
		return nil, errs.New(errs.DecodeError, "unexpected %s response %T", kind, resp)
	}
	if len(data) == 0 {
		return nil, errs.New(errs.DecodeError, "empty %s response at %d", kind, offset)
	}
	return data[0]&0x01 != 0, nil
}

// readRegisters reads count consecutive 16-bit registers.
func (s *Service) readRegisters(ctx context.Context, req ReadRequest, kind RegisterKind, offset uint16, count uint16) ([]uint16, error) {
	var (
		preq packet.Request
		err  error
	)
	if kind == Input {
		preq, err = packet.NewReadInputRegistersRequestTCP(req.UnitID, offset, count)
	} else {
		preq, err = packet.NewReadHoldingRegistersRequestTCP(req.UnitID, offset, count)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ConfigError, err, "build %s read at %d", kind, offset)
	}

	resp, err := s.do(ctx, req, preq)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch r := resp.(type) {
	case *packet.ReadHoldingRegistersResponseTCP:
		data = r.Data
	case *packet.ReadInputRegistersResponseTCP:
		data = r.Data
	default:
		return nil, errs.New(errs.DecodeError, "unexpected %s response %T", kind, resp)
	}
	if len(data) < int(count)*2 {
		return nil, errs.New(errs.DecodeError, "short %s response at %d: %d bytes", kind, offset, len(data))
	}

	regs := make([]uint16, count)
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return regs, nil
}

// do executes one request on the pooled connection, serialized per client.
// Any failure evicts the connection so the next call reconnects.
func (s *Service) do(ctx context.Context, req ReadRequest, preq packet.Request) (packet.Response, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	pc, err := s.client(ctx, req.Host, req.Port, timeout)
	if err != nil {
		return nil, errs.Wrap(errs.TransportError, err, "connect %s", poolKey(req.Host, req.Port))
	}

	pc.mu.Lock()
	resp, err := pc.conn.Do(ctx, preq)
	pc.mu.Unlock()
	if err != nil {
		s.evict(req.Host, req.Port)
		return nil, errs.Wrap(errs.TransportError, err, "read %s", poolKey(req.Host, req.Port))
	}
	return resp, nil
}

// TestConnection opens a throwaway connection, reads holding register 0 and
// reports (ok, latency in ms, error message). The pooled connection is not
// touched.
func (s *Service) TestConnection(ctx context.Context, host string, port int, unitID uint8, timeout time.Duration) (bool, int64, string) {
	start := time.Now()

	conn, err := s.connect(ctx, host, port, timeout)
	if err != nil {
		return false, time.Since(start).Milliseconds(), err.Error()
	}
	defer conn.Close() //nolint:errcheck

	preq, err := packet.NewReadHoldingRegistersRequestTCP(unitID, 0, 1)
	if err != nil {
		return false, time.Since(start).Milliseconds(), err.Error()
	}
	if _, err := conn.Do(ctx, preq); err != nil {
		return false, time.Since(start).Milliseconds(), err.Error()
	}
	return true, time.Since(start).Milliseconds(), ""
}
